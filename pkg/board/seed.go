package board

// SeedPatch fills an empty document with a starter board under docID. It creates every
// collection so that peers never race to create one.
func SeedPatch(docID string, bc BuildContext) Patch {
	var p Patch
	p.Set(docID, KeyDocID)
	p.Set("Trellis", KeyBoardTitle)

	lists := map[string]any{}
	cards := map[string]any{}
	seed := []struct {
		title string
		cards []string
	}{
		{"To Do", []string{"Invite a peer to this board", "Rename this board"}},
		{"Doing", []string{"Drag a card between lists"}},
		{"Done", []string{"Create a board"}},
	}
	for _, s := range seed {
		l := &List{ID: bc.newID(), Title: s.title}
		lists[l.ID] = l.Fields()
		for i, title := range s.cards {
			c := &Card{ID: bc.newID(), ListID: l.ID, Title: title, Order: int64(i), Assigned: map[string]bool{}}
			cards[c.ID] = c.Fields()
		}
	}
	p.Set(lists, KeyLists)
	p.Set(cards, KeyCards)
	p.Set(map[string]any{}, KeyComments)
	return p
}
