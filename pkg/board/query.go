package board

import (
	"sort"
)

func (d *Document) FindList(id string) (*List, bool) {
	_, l, ok := findEntry(d.Lists, func(l *List) bool { return l.ID == id })
	return l, ok
}

func (d *Document) FindCard(id string) (*Card, bool) {
	_, c, ok := findEntry(d.Cards, func(c *Card) bool { return c.ID == id })
	return c, ok
}

func (d *Document) FindComment(id string) (*Comment, bool) {
	_, c, ok := findEntry(d.Comments, func(c *Comment) bool { return c.ID == id })
	return c, ok
}

func (d *Document) listSlot(id string) (string, bool) {
	slot, _, ok := findEntry(d.Lists, func(l *List) bool { return l.ID == id })
	return slot, ok
}

func (d *Document) cardSlot(id string) (string, bool) {
	slot, _, ok := findEntry(d.Cards, func(c *Card) bool { return c.ID == id })
	return slot, ok
}

func findEntry[T any](c *Collection[T], match func(*T) bool) (string, *T, bool) {
	for _, e := range c.Live() {
		if match(e.Value) {
			return e.Slot, e.Value, true
		}
	}
	return "", nil, false
}

// AllLists returns the live lists in creation order.
func (d *Document) AllLists() []*List {
	entries := d.Lists.Live()
	out := make([]*List, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Value)
	}
	return out
}

// CardsByList returns the live cards of a list by ascending order. Equal orders fall
// back to the card id so that every caller sees the same total order.
func (d *Document) CardsByList(listID string) []*Card {
	var filtered []Card
	for _, e := range d.Cards.Live() {
		if e.Value.ListID == listID {
			filtered = append(filtered, *e.Value)
		}
	}
	sorted := sortCopies(filtered, func(a, b *Card) bool {
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})
	return resolve(sorted, func(c *Card) (*Card, bool) { return d.FindCard(c.ID) })
}

// CommentsByCard returns the comments of a card, newest first.
func (d *Document) CommentsByCard(cardID string) []*Comment {
	if d.Comments == nil {
		return []*Comment{}
	}
	var filtered []Comment
	for _, e := range d.Comments.Live() {
		if e.Value.CardID == cardID {
			filtered = append(filtered, *e.Value)
		}
	}
	sorted := sortCopies(filtered, func(a, b *Comment) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})
	return resolve(sorted, func(c *Comment) (*Comment, bool) { return d.FindComment(c.ID) })
}

// sortCopies sorts the shallow copies it is given, never the snapshot's own values.
func sortCopies[T any](items []T, less func(a, b *T) bool) []T {
	sort.SliceStable(items, func(i, j int) bool { return less(&items[i], &items[j]) })
	return items
}

func resolve[T any](sorted []T, find func(*T) (*T, bool)) []*T {
	out := make([]*T, 0, len(sorted))
	for i := range sorted {
		if v, ok := find(&sorted[i]); ok {
			out = append(out, v)
		}
	}
	return out
}

// IndexOfCard returns the position of a live card within its list, or -1.
func (d *Document) IndexOfCard(cardID string) int {
	c, ok := d.FindCard(cardID)
	if !ok {
		return -1
	}
	for i, other := range d.CardsByList(c.ListID) {
		if other.ID == cardID {
			return i
		}
	}
	return -1
}
