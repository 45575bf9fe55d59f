package board

// moveCard reassigns the card to the target list and renumbers the target list so that
// orders stay strictly increasing. All writes land in p.
//
// With an afterCardID the moved card takes after.order+1 and every card following
// after in the pre-move ordering is renumbered sequentially behind it. Without one the
// moved card takes 0 and the whole list is renumbered 1, 2, 3...
func moveCard(prior *Document, a MoveCard, p *Patch) error {
	cardSlot, ok := prior.cardSlot(a.CardID)
	if !ok {
		return notFound("card", a.CardID)
	}
	if _, ok := prior.FindList(a.ListID); !ok {
		return notFound("list", a.ListID)
	}

	p.Set(a.ListID, KeyCards, cardSlot, fieldListID)

	listCards := prior.CardsByList(a.ListID)
	start := 0
	var order int64

	if a.AfterCardID != "" {
		insertIndex := -1
		for i, c := range listCards {
			if c.ID == a.AfterCardID {
				insertIndex = i
				break
			}
		}
		if insertIndex < 0 {
			return notFound("card", a.AfterCardID)
		}
		order = listCards[insertIndex].Order + 1
		start = insertIndex + 1
	}

	p.Set(order, KeyCards, cardSlot, fieldOrder)

	for _, c := range listCards[start:] {
		if c.ID == a.CardID {
			continue
		}
		slot, ok := prior.cardSlot(c.ID)
		if !ok {
			return notFound("card", c.ID)
		}
		order++
		p.Set(order, KeyCards, slot, fieldOrder)
	}
	return nil
}
