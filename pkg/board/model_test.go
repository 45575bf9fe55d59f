package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocumentSkipsTombstones(t *testing.T) {
	doc, err := DecodeDocument(map[string]any{
		"docId":      "ab12-34",
		"boardTitle": "Board",
		"lists": map[string]any{
			"l1": map[string]any{"id": "l1", "title": "One", "wip": int64(3)},
			"l2": nil,
		},
		"cards": map[string]any{
			"c1": map[string]any{"id": "c1", "listId": "l1", "title": "t", "order": float64(4), "assigned": map[string]any{"Yuri": true}},
			"c2": map[string]any{"id": "c2", "listId": "l1", "title": "no order"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "ab12-34", doc.DocID)
	assert.Nil(t, doc.Comments)
	assert.Equal(t, []string{"l1", "l2"}, doc.Lists.Slots())
	assert.Len(t, doc.AllLists(), 1)
	assert.Equal(t, map[string]any{"wip": int64(3)}, doc.AllLists()[0].Attributes)

	cards := doc.CardsByList("l1")
	require.Len(t, cards, 2)
	assert.Equal(t, "c2", cards[0].ID)
	assert.Equal(t, int64(4), cards[1].Order)
	assert.Equal(t, map[string]bool{"Yuri": true}, cards[1].Assigned)
}

func TestDecodeDocumentKeepsMissingCollectionsNil(t *testing.T) {
	doc, err := DecodeDocument(map[string]any{"docId": "abcdef12", "lists": nil})
	require.NoError(t, err)
	assert.Nil(t, doc.Lists)
	assert.Nil(t, doc.Cards)
	assert.Empty(t, doc.AllLists())
	assert.Empty(t, doc.CardsByList("l"))

	assert.Equal(t, map[string]any{"docId": "abcdef12", "boardTitle": ""}, doc.Encode())
}

func TestDecodeDocumentRejectsBadShapes(t *testing.T) {
	_, err := DecodeDocument(map[string]any{"cards": "nope"})
	assert.Error(t, err)

	_, err = DecodeDocument(map[string]any{"cards": map[string]any{"c": map[string]any{"order": "high"}}})
	assert.Error(t, err)

	_, err = DecodeDocument(map[string]any{"comments": map[string]any{"m": map[string]any{"createdAt": "yesterday"}}})
	assert.Error(t, err)
}

func TestEncodeDecodeKeepsComments(t *testing.T) {
	doc := Empty()
	doc.Comments = NewCollection[Comment]()
	at := time.Date(2024, 2, 3, 4, 5, 6, 7, time.UTC)
	doc.Comments.Put("m1", &Comment{ID: "m1", CardID: "c1", Body: "hi", Author: "Yuri", CreatedAt: at})
	doc.Comments.Tombstone("m0")

	back, err := DecodeDocument(doc.Encode())
	require.NoError(t, err)
	m, ok := back.FindComment("m1")
	require.True(t, ok)
	assert.True(t, at.Equal(m.CreatedAt))
	assert.True(t, back.Comments.Tombstoned("m0"))
}

func TestCardsByListDoesNotMutateSnapshot(t *testing.T) {
	doc := Empty()
	doc.Cards.Put("b", &Card{ID: "b", ListID: "l", Order: 1})
	doc.Cards.Put("a", &Card{ID: "a", ListID: "l", Order: 2})
	before := doc.Encode()

	got := doc.CardsByList("l")
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, before, doc.Encode())

	// resolved values are the snapshot's own entities
	orig, _ := doc.Cards.Get("b")
	assert.Same(t, orig, got[0])
}

func TestActionEncoding(t *testing.T) {
	raw, err := EncodeAction(MoveCard{CardID: "c", ListID: "l"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"MOVE_CARD","cardId":"c","listId":"l"}`, string(raw))

	a, err := DecodeAction([]byte(`{"type":"CREATE_CARD","listId":"l","title":"Task A"}`))
	require.NoError(t, err)
	assert.Equal(t, CreateCard{ListID: "l", Title: "Task A"}, a)

	a, err = DecodeAction([]byte(`{"type":"STOP_TIME_TRAVEL"}`))
	require.NoError(t, err)
	assert.Equal(t, ActionStopTimeTravel, a.Type())

	_, err = DecodeAction([]byte(`{"type":"LAUNCH_ROCKET"}`))
	assert.Error(t, err)
}

func TestMetaRoundTrip(t *testing.T) {
	msg, err := EncodeMeta(Meta{Author: "Valentina", Action: DeleteCard{CardID: "c"}})
	require.NoError(t, err)
	author, typ := DecodeMeta(msg)
	assert.Equal(t, "Valentina", author)
	assert.Equal(t, ActionDeleteCard, typ)

	msg, err = EncodeMeta(Meta{})
	require.NoError(t, err)
	author, typ = DecodeMeta(msg)
	assert.Equal(t, "Unknown", author)
	assert.Equal(t, ActionType(""), typ)

	author, typ = DecodeMeta("seed")
	assert.Empty(t, author)
	assert.Empty(t, typ)
}
