// Package board holds the shape of a replicated trellis board and the pure logic that
// turns user intents into patches against it.
//
// Nothing in this package talks to the replication engine. Builders read a prior
// snapshot and return a Patch; the engine applies the patch as one commit.
package board

import (
	"fmt"
	"sort"
	"time"
)

// Keys used for the document and its entities inside the replicated document.
const (
	KeyDocID      = "docId"
	KeyBoardTitle = "boardTitle"
	KeyLists      = "lists"
	KeyCards      = "cards"
	KeyComments   = "comments"

	fieldID          = "id"
	fieldTitle       = "title"
	fieldListID      = "listId"
	fieldCardID      = "cardId"
	fieldDescription = "description"
	fieldOrder       = "order"
	fieldAssigned    = "assigned"
	fieldBody        = "body"
	fieldAuthor      = "author"
	fieldCreatedAt   = "createdAt"
)

// Document is a decoded board. A nil collection does not exist in the replicated
// document yet: Lists and Cards arrive with the seed or with the first sync of a board
// opened by id, Comments with the first comment.
type Document struct {
	DocID      string
	BoardTitle string
	Lists      *Collection[List]
	Cards      *Collection[Card]
	Comments   *Collection[Comment]
}

type List struct {
	ID         string
	Title      string
	Attributes map[string]any
}

type Card struct {
	ID          string
	ListID      string
	Title       string
	Description string
	Order       int64
	Assigned    map[string]bool
	Attributes  map[string]any
}

type Comment struct {
	ID        string
	CardID    string
	Body      string
	Author    string
	CreatedAt time.Time
}

// Entry is a live slot of a collection.
type Entry[T any] struct {
	Slot  string
	Value *T
}

// Collection is a sparse slot map. A slot holding nil is a tombstone: the slot keeps its
// identity for the lifetime of the document and is skipped by every iteration.
type Collection[T any] struct {
	slots map[string]*T
}

func NewCollection[T any]() *Collection[T] {
	return &Collection[T]{slots: make(map[string]*T)}
}

func (c *Collection[T]) Put(slot string, v *T) {
	c.slots[slot] = v
}

func (c *Collection[T]) Tombstone(slot string) {
	c.slots[slot] = nil
}

// Get returns the live value at slot. Tombstoned and unknown slots report false.
func (c *Collection[T]) Get(slot string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	v := c.slots[slot]
	return v, v != nil
}

// Tombstoned reports whether slot exists but was deleted.
func (c *Collection[T]) Tombstoned(slot string) bool {
	if c == nil {
		return false
	}
	v, ok := c.slots[slot]
	return ok && v == nil
}

// Slots returns every slot key, tombstones included, in key order.
func (c *Collection[T]) Slots() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.slots))
	for k := range c.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Live returns the live entries in slot key order.
func (c *Collection[T]) Live() []Entry[T] {
	out := make([]Entry[T], 0)
	for _, k := range c.Slots() {
		if v := c.slots[k]; v != nil {
			out = append(out, Entry[T]{Slot: k, Value: v})
		}
	}
	return out
}

func (c *Collection[T]) Len() int {
	return len(c.Live())
}

// Empty returns a board with empty lists and cards and no comments.
func Empty() *Document {
	return &Document{
		Lists: NewCollection[List](),
		Cards: NewCollection[Card](),
	}
}

// DecodeDocument builds a Document from the plain value tree of a replicated document
// root. Collections missing from root stay nil.
func DecodeDocument(root map[string]any) (*Document, error) {
	doc := &Document{}
	doc.DocID, _ = root[KeyDocID].(string)
	doc.BoardTitle, _ = root[KeyBoardTitle].(string)

	var err error
	if doc.Lists, err = decodeCollection(root, KeyLists, decodeList); err != nil {
		return nil, err
	}
	if doc.Cards, err = decodeCollection(root, KeyCards, decodeCard); err != nil {
		return nil, err
	}
	if doc.Comments, err = decodeCollection(root, KeyComments, decodeComment); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeCollection[T any](root map[string]any, key string, decode func(map[string]any) (*T, error)) (*Collection[T], error) {
	raw, ok := root[key]
	if !ok || raw == nil {
		return nil, nil
	}
	slots, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to decode %s: expected map, got %T", key, raw)
	}
	into := NewCollection[T]()
	for slot, v := range slots {
		if v == nil {
			into.Tombstone(slot)
			continue
		}
		fields, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("failed to decode %s/%s: expected map, got %T", key, slot, v)
		}
		item, err := decode(fields)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", key, slot, err)
		}
		into.Put(slot, item)
	}
	return into, nil
}

func decodeList(m map[string]any) (*List, error) {
	l := &List{Attributes: extraAttributes(m, fieldID, fieldTitle)}
	l.ID, _ = m[fieldID].(string)
	l.Title, _ = m[fieldTitle].(string)
	return l, nil
}

func decodeCard(m map[string]any) (*Card, error) {
	c := &Card{
		Assigned:   make(map[string]bool),
		Attributes: extraAttributes(m, fieldID, fieldListID, fieldTitle, fieldDescription, fieldOrder, fieldAssigned),
	}
	c.ID, _ = m[fieldID].(string)
	c.ListID, _ = m[fieldListID].(string)
	c.Title, _ = m[fieldTitle].(string)
	c.Description, _ = m[fieldDescription].(string)
	order, err := toInt64(m[fieldOrder])
	if err != nil {
		return nil, fmt.Errorf("bad order: %w", err)
	}
	c.Order = order
	if assigned, ok := m[fieldAssigned].(map[string]any); ok {
		for person, v := range assigned {
			if b, ok := v.(bool); ok {
				c.Assigned[person] = b
			}
		}
	}
	return c, nil
}

func decodeComment(m map[string]any) (*Comment, error) {
	c := &Comment{}
	c.ID, _ = m[fieldID].(string)
	c.CardID, _ = m[fieldCardID].(string)
	c.Body, _ = m[fieldBody].(string)
	c.Author, _ = m[fieldAuthor].(string)
	if raw, ok := m[fieldCreatedAt].(string); ok && raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("bad createdAt: %w", err)
		}
		c.CreatedAt = t
	}
	return c, nil
}

func extraAttributes(m map[string]any, known ...string) map[string]any {
	var out map[string]any
outer:
	for k, v := range m {
		if v == nil {
			continue
		}
		for _, kn := range known {
			if k == kn {
				continue outer
			}
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = v
	}
	return out
}

// missing order values count as 0
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

// Fields returns the replicated representation of the list.
func (l *List) Fields() map[string]any {
	out := copyAttributes(l.Attributes)
	out[fieldID] = l.ID
	out[fieldTitle] = l.Title
	return out
}

func (c *Card) Fields() map[string]any {
	out := copyAttributes(c.Attributes)
	assigned := make(map[string]any, len(c.Assigned))
	for person, v := range c.Assigned {
		assigned[person] = v
	}
	out[fieldID] = c.ID
	out[fieldListID] = c.ListID
	out[fieldTitle] = c.Title
	out[fieldDescription] = c.Description
	out[fieldOrder] = c.Order
	out[fieldAssigned] = assigned
	return out
}

func (c *Comment) Fields() map[string]any {
	return map[string]any{
		fieldID:        c.ID,
		fieldCardID:    c.CardID,
		fieldBody:      c.Body,
		fieldAuthor:    c.Author,
		fieldCreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func copyAttributes(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+6)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Encode returns the plain value tree of the document, tombstones included as nil.
func (d *Document) Encode() map[string]any {
	out := map[string]any{
		KeyDocID:      d.DocID,
		KeyBoardTitle: d.BoardTitle,
	}
	if d.Lists != nil {
		out[KeyLists] = encodeCollection(d.Lists, (*List).Fields)
	}
	if d.Cards != nil {
		out[KeyCards] = encodeCollection(d.Cards, (*Card).Fields)
	}
	if d.Comments != nil {
		out[KeyComments] = encodeCollection(d.Comments, (*Comment).Fields)
	}
	return out
}

func encodeCollection[T any](c *Collection[T], fields func(*T) map[string]any) map[string]any {
	out := make(map[string]any)
	for slot, v := range c.slots {
		if v == nil {
			out[slot] = nil
		} else {
			out[slot] = fields(v)
		}
	}
	return out
}
