package board

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t   *testing.T
	doc *Document
	bc  BuildContext
}

func newFixture(t *testing.T) *fixture {
	n := 0
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &fixture{
		t:   t,
		doc: Empty(),
		bc: BuildContext{
			Author: "Amelia",
			Now: func() time.Time {
				clock = clock.Add(time.Minute)
				return clock
			},
			NewID: func() string {
				n++
				return fmt.Sprintf("id-%03d", n)
			},
		},
	}
}

func (f *fixture) try(a Action) error {
	p, err := Build(f.doc, a, f.bc)
	if err != nil {
		return err
	}
	next, err := ApplyPatch(f.doc, p)
	require.NoError(f.t, err)
	f.doc = next
	return nil
}

func (f *fixture) do(a Action) {
	require.NoError(f.t, f.try(a))
}

func (f *fixture) list(title string) string {
	before := len(f.doc.AllLists())
	f.do(CreateList{Title: title})
	lists := f.doc.AllLists()
	require.Len(f.t, lists, before+1)
	return lists[len(lists)-1].ID
}

func (f *fixture) card(listID, title string) string {
	f.do(CreateCard{ListID: listID, Title: title})
	cards := f.doc.CardsByList(listID)
	return cards[len(cards)-1].ID
}

func orders(cards []*Card) []int64 {
	out := make([]int64, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.Order)
	}
	return out
}

func titles(cards []*Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.Title)
	}
	return out
}

func TestCreateCardsAndMoveAfter(t *testing.T) {
	f := newFixture(t)
	l := f.list("Backlog")
	a := f.card(l, "Task A")
	b := f.card(l, "Task B")

	ca, _ := f.doc.FindCard(a)
	cb, _ := f.doc.FindCard(b)
	assert.Equal(t, int64(0), ca.Order)
	assert.Equal(t, int64(1), cb.Order)
	assert.Equal(t, map[string]bool{}, ca.Assigned)

	f.do(MoveCard{CardID: a, ListID: l, AfterCardID: b})

	ca, _ = f.doc.FindCard(a)
	cb, _ = f.doc.FindCard(b)
	assert.Equal(t, int64(1), cb.Order)
	assert.Equal(t, int64(2), ca.Order)
	assert.Equal(t, []string{"Task B", "Task A"}, titles(f.doc.CardsByList(l)))
}

func TestMoveCardToFrontOfOtherList(t *testing.T) {
	f := newFixture(t)
	todo := f.list("To Do")
	done := f.list("Done")
	x := f.card(todo, "x")
	f.card(done, "d1")
	f.card(done, "d2")

	f.do(MoveCard{CardID: x, ListID: done})

	assert.Empty(t, f.doc.CardsByList(todo))
	got := f.doc.CardsByList(done)
	assert.Equal(t, []string{"x", "d1", "d2"}, titles(got))
	assert.Equal(t, []int64{0, 1, 2}, orders(got))
}

func TestMoveCardRenumbersFollowingCards(t *testing.T) {
	f := newFixture(t)
	l := f.list("l")
	ids := []string{f.card(l, "a"), f.card(l, "b"), f.card(l, "c"), f.card(l, "d")}

	// d after a
	f.do(MoveCard{CardID: ids[3], ListID: l, AfterCardID: ids[0]})
	got := f.doc.CardsByList(l)
	assert.Equal(t, []string{"a", "d", "b", "c"}, titles(got))
	assert.Equal(t, []int64{0, 1, 2, 3}, orders(got))
	assert.Equal(t, 1, f.doc.IndexOfCard(ids[3]))
	assert.Equal(t, 3, f.doc.IndexOfCard(ids[2]))
	assert.Equal(t, -1, f.doc.IndexOfCard("ghost"))
}

func TestMoveCardKeepsOrdersStrictlyIncreasing(t *testing.T) {
	f := newFixture(t)
	l := f.list("l")
	other := f.list("other")
	var ids []string
	for i := 0; i < 6; i++ {
		ids = append(ids, f.card(l, fmt.Sprintf("c%d", i)))
	}
	f.card(other, "o")

	r := rand.New(rand.NewSource(42))
	for step := 0; step < 200; step++ {
		card := ids[r.Intn(len(ids))]
		move := MoveCard{CardID: card, ListID: l}
		if r.Intn(3) > 0 {
			move.AfterCardID = ids[r.Intn(len(ids))]
		}
		f.do(move)

		got := orders(f.doc.CardsByList(l))
		require.Len(t, got, len(ids))
		for i := 1; i < len(got); i++ {
			require.Less(t, got[i-1], got[i], "step %d: %v", step, got)
		}
	}
}

func TestMoveCardEqualOrdersBreakTiesById(t *testing.T) {
	f := newFixture(t)
	l := f.list("l")
	a := f.card(l, "a")
	b := f.card(l, "b")
	f.do(InspectorUpdate{Table: KeyCards, Row: b, Column: "order", Value: "0"})

	assert.Equal(t, []string{a, b}, []string{f.doc.CardsByList(l)[0].ID, f.doc.CardsByList(l)[1].ID})

	f.do(MoveCard{CardID: a, ListID: l, AfterCardID: b})
	assert.Equal(t, []string{"b", "a"}, titles(f.doc.CardsByList(l)))
}

func TestMoveCardUnknownIds(t *testing.T) {
	f := newFixture(t)
	l := f.list("l")
	a := f.card(l, "a")

	err := f.try(MoveCard{CardID: "nope", ListID: l})
	assert.ErrorIs(t, err, ErrEntityNotFound)

	err = f.try(MoveCard{CardID: a, ListID: "nope"})
	var nf *EntityNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "list", nf.Kind)

	err = f.try(MoveCard{CardID: a, ListID: l, AfterCardID: "ghost"})
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ghost", nf.ID)
}

func TestDeleteListTombstonesItsCards(t *testing.T) {
	f := newFixture(t)
	keep := f.list("keep")
	drop := f.list("drop")
	k := f.card(keep, "k")
	d1 := f.card(drop, "d1")
	d2 := f.card(drop, "d2")

	f.do(DeleteList{ListID: drop})

	_, ok := f.doc.FindList(drop)
	assert.False(t, ok)
	assert.True(t, f.doc.Lists.Tombstoned(drop))
	assert.True(t, f.doc.Cards.Tombstoned(d1))
	assert.True(t, f.doc.Cards.Tombstoned(d2))
	_, ok = f.doc.FindCard(k)
	assert.True(t, ok)

	for _, e := range f.doc.Cards.Live() {
		_, ok := f.doc.FindList(e.Value.ListID)
		assert.True(t, ok, "card %s references a dead list", e.Value.ID)
	}

	assert.ErrorIs(t, f.try(DeleteList{ListID: drop}), ErrEntityNotFound)
	assert.ErrorIs(t, f.try(CreateCard{ListID: drop, Title: "late"}), ErrEntityNotFound)
}

func TestCardFieldUpdates(t *testing.T) {
	f := newFixture(t)
	l := f.list("l")
	c := f.card(l, "c")

	f.do(UpdateCardTitle{CardID: c, NewTitle: "renamed"})
	f.do(UpdateCardDescription{CardID: c, NewDescription: "details"})
	f.do(UpdateAssignments{CardID: c, Person: "Yuri", IsAssigned: true})
	f.do(UpdateAssignments{CardID: c, Person: "Marco", IsAssigned: false})

	card, ok := f.doc.FindCard(c)
	require.True(t, ok)
	assert.Equal(t, "renamed", card.Title)
	assert.Equal(t, "details", card.Description)
	assert.Equal(t, map[string]bool{"Yuri": true, "Marco": false}, card.Assigned)

	f.do(DeleteCard{CardID: c})
	_, ok = f.doc.FindCard(c)
	assert.False(t, ok)
	assert.Equal(t, 0, f.doc.Cards.Len())
	assert.Equal(t, []string{c}, f.doc.Cards.Slots())

	assert.ErrorIs(t, f.try(UpdateCardTitle{CardID: c, NewTitle: "x"}), ErrEntityNotFound)
	assert.ErrorIs(t, f.try(DeleteCard{CardID: c}), ErrEntityNotFound)
	assert.ErrorIs(t, f.try(UpdateAssignments{CardID: c, Person: "x"}), ErrEntityNotFound)
}

func TestCreateCommentInitialisesCollection(t *testing.T) {
	f := newFixture(t)
	l := f.list("l")
	c := f.card(l, "c")
	assert.Nil(t, f.doc.Comments)
	assert.Empty(t, f.doc.CommentsByCard(c))

	f.do(CreateComment{CardID: c, Body: "first"})
	f.do(CreateComment{CardID: c, Body: "second"})

	got := f.doc.CommentsByCard(c)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Body)
	assert.Equal(t, "first", got[1].Body)
	assert.Equal(t, "Amelia", got[0].Author)
	assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt))

	assert.ErrorIs(t, f.try(CreateComment{CardID: "ghost", Body: "x"}), ErrEntityNotFound)
}

func TestInspectorUpdate(t *testing.T) {
	f := newFixture(t)
	l := f.list("l")
	c := f.card(l, "c")

	f.do(InspectorUpdate{Table: KeyCards, Row: c, Column: "title", Value: `"from inspector"`})
	f.do(InspectorUpdate{Table: KeyCards, Row: c, Column: "color", Value: `"red"`})
	f.do(InspectorUpdate{Key: KeyBoardTitle, Value: `"Roadmap"`})

	card, _ := f.doc.FindCard(c)
	assert.Equal(t, "from inspector", card.Title)
	assert.Equal(t, map[string]any{"color": "red"}, card.Attributes)
	assert.Equal(t, "Roadmap", f.doc.BoardTitle)

	for _, bad := range []InspectorUpdate{
		{Key: KeyBoardTitle, Value: `{not json`},
		{Key: KeyBoardTitle},
		{Key: "lists", Value: `"x"`},
		{Table: KeyCards, Row: c, Column: "id", Value: `"x"`},
		{Table: KeyCards, Row: "ghost", Column: "title", Value: `"x"`},
		{Table: "people", Row: c, Column: "title", Value: `"x"`},
		{Table: KeyCards, Row: c, Value: `"x"`},
		{Table: KeyCards, Row: c, Column: "order", Value: `"late"`},
		{Table: KeyCards, Row: c, Column: "listId", Value: `"ghost"`},
		{Table: KeyCards, Row: c, Column: "assigned", Value: `{"Yuri": 1}`},
		{Table: KeyCards, Row: c, Column: "listId", Value: `null`},
		{Table: KeyCards, Row: c, Column: "assigned", Value: `null`},
		{Table: KeyCards, Row: c, Column: "order", Value: `null`},
		{Table: KeyCards, Row: c, Column: "order", Value: `1.9`},
		{Table: KeyLists, Row: l, Column: "title", Value: `null`},
		{Key: KeyDocID, Value: `"../../outside"`},
		{Key: KeyDocID, Value: `"boards/mine"`},
		{Key: KeyDocID, Value: `" "`},
		{Key: KeyDocID, Value: `null`},
	} {
		assert.ErrorIs(t, f.try(bad), ErrMalformedEdit, "%+v", bad)
	}

	card, _ = f.doc.FindCard(c)
	assert.Equal(t, l, card.ListID)
	f.do(UpdateAssignments{CardID: c, Person: "Yuri", IsAssigned: true})

	f.do(InspectorUpdate{Table: KeyCards, Row: c, Column: "order", Value: `4`})
	f.do(InspectorUpdate{Table: KeyCards, Row: c, Column: "color", Value: `null`})
	f.do(InspectorUpdate{Key: KeyDocID, Value: `"ab12-34"`})
	card, _ = f.doc.FindCard(c)
	assert.Equal(t, int64(4), card.Order)
	assert.Empty(t, card.Attributes)
	assert.Equal(t, "ab12-34", f.doc.DocID)
}

func TestCreationsNeedSyncedCollections(t *testing.T) {
	f := newFixture(t)
	f.doc = &Document{DocID: "abcdef12"}

	assert.ErrorIs(t, f.try(CreateList{Title: "too early"}), ErrBoardNotReady)
	assert.ErrorIs(t, f.try(CreateCard{ListID: "l", Title: "too early"}), ErrBoardNotReady)
	f.do(UpdateBoardTitle{Value: "titles need no collection"})

	f.doc = &Document{DocID: "abcdef12", Lists: NewCollection[List]()}
	l := f.list("lists arrived")
	assert.ErrorIs(t, f.try(CreateCard{ListID: l, Title: "cards have not"}), ErrBoardNotReady)
}

func TestPointerActionsBuildLikeValues(t *testing.T) {
	f := newFixture(t)
	f.do(&CreateList{Title: "by pointer"})
	require.Len(t, f.doc.AllLists(), 1)

	var nilList *CreateList
	_, err := Build(f.doc, nilList, f.bc)
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Nil(t, Deref(nilList))
	assert.Equal(t, DeleteCard{CardID: "c"}, Deref(&DeleteCard{CardID: "c"}))
}

func TestBuildUnknownAction(t *testing.T) {
	f := newFixture(t)
	_, err := Build(f.doc, StopTimeTravel{}, f.bc)
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestSeedPatch(t *testing.T) {
	f := newFixture(t)
	doc, err := ApplyPatch(f.doc, SeedPatch("cobalt-tokyo-7", f.bc))
	require.NoError(t, err)
	assert.Equal(t, "cobalt-tokyo-7", doc.DocID)
	lists := doc.AllLists()
	require.Len(t, lists, 3)
	assert.Equal(t, "To Do", lists[0].Title)
	assert.NotNil(t, doc.Comments)
	assert.Equal(t, []string{"Invite a peer to this board", "Rename this board"}, titles(doc.CardsByList(lists[0].ID)))
}
