package board

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Build returns the patch for a document command, computed only from prior. Control
// actions (time travel, lifecycle, deltas) are not builders' business and report
// ErrUnknownAction like any other unrecognised type.
func Build(prior *Document, action Action, bc BuildContext) (Patch, error) {
	action = Deref(action)
	if action == nil {
		return Patch{}, fmt.Errorf("%w: nil", ErrUnknownAction)
	}
	var p Patch
	var err error
	switch a := action.(type) {
	case UpdateBoardTitle:
		p.Set(a.Value, KeyBoardTitle)
	case CreateList:
		err = createList(prior, a, bc, &p)
	case DeleteList:
		err = deleteList(prior, a, &p)
	case CreateCard:
		err = createCard(prior, a, bc, &p)
	case UpdateCardTitle:
		err = setCardField(prior, a.CardID, fieldTitle, a.NewTitle, &p)
	case UpdateCardDescription:
		err = setCardField(prior, a.CardID, fieldDescription, a.NewDescription, &p)
	case UpdateAssignments:
		err = updateAssignments(prior, a, &p)
	case DeleteCard:
		err = deleteCard(prior, a, &p)
	case MoveCard:
		err = moveCard(prior, a, &p)
	case CreateComment:
		err = createComment(prior, a, bc, &p)
	case InspectorUpdate:
		err = inspectorUpdate(prior, a, &p)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownAction, action.Type())
	}
	if err != nil {
		return Patch{}, err
	}
	return p, nil
}

func createList(prior *Document, a CreateList, bc BuildContext, p *Patch) error {
	if prior.Lists == nil {
		return notReady(KeyLists)
	}
	id := bc.newID()
	l := &List{ID: id, Title: a.Title, Attributes: a.Attributes}
	p.Set(l.Fields(), KeyLists, id)
	return nil
}

func deleteList(prior *Document, a DeleteList, p *Patch) error {
	listSlot, ok := prior.listSlot(a.ListID)
	if !ok {
		return notFound("list", a.ListID)
	}
	for _, c := range prior.CardsByList(a.ListID) {
		slot, ok := prior.cardSlot(c.ID)
		if !ok {
			return notFound("card", c.ID)
		}
		p.Tombstone(KeyCards, slot)
	}
	p.Tombstone(KeyLists, listSlot)
	return nil
}

func createCard(prior *Document, a CreateCard, bc BuildContext, p *Patch) error {
	if prior.Cards == nil {
		return notReady(KeyCards)
	}
	if _, ok := prior.FindList(a.ListID); !ok {
		return notFound("list", a.ListID)
	}
	var order int64
	if listCards := prior.CardsByList(a.ListID); len(listCards) > 0 {
		order = listCards[len(listCards)-1].Order + 1
	}
	id := bc.newID()
	c := &Card{
		ID:          id,
		ListID:      a.ListID,
		Title:       a.Title,
		Description: a.Description,
		Order:       order,
		Assigned:    map[string]bool{},
		Attributes:  a.Attributes,
	}
	p.Set(c.Fields(), KeyCards, id)
	return nil
}

func setCardField(prior *Document, cardID, field string, value any, p *Patch) error {
	slot, ok := prior.cardSlot(cardID)
	if !ok {
		return notFound("card", cardID)
	}
	p.Set(value, KeyCards, slot, field)
	return nil
}

func updateAssignments(prior *Document, a UpdateAssignments, p *Patch) error {
	slot, ok := prior.cardSlot(a.CardID)
	if !ok {
		return notFound("card", a.CardID)
	}
	p.Set(a.IsAssigned, KeyCards, slot, fieldAssigned, a.Person)
	return nil
}

func deleteCard(prior *Document, a DeleteCard, p *Patch) error {
	slot, ok := prior.cardSlot(a.CardID)
	if !ok {
		return notFound("card", a.CardID)
	}
	p.Tombstone(KeyCards, slot)
	return nil
}

func createComment(prior *Document, a CreateComment, bc BuildContext, p *Patch) error {
	if _, ok := prior.FindCard(a.CardID); !ok {
		return notFound("card", a.CardID)
	}
	if prior.Comments == nil {
		p.Set(map[string]any{}, KeyComments)
	}
	id := bc.newID()
	author := bc.Author
	if author == "" {
		author = "Unknown"
	}
	c := &Comment{ID: id, CardID: a.CardID, Body: a.Body, Author: author, CreatedAt: bc.now()}
	p.Set(c.Fields(), KeyComments, id)
	return nil
}

var (
	inspectorKeys = map[string]bool{KeyBoardTitle: true, KeyDocID: true}
	knownColumns  = map[string]bool{
		fieldTitle: true, fieldDescription: true, fieldListID: true, fieldCardID: true, fieldBody: true,
		fieldAuthor: true, fieldOrder: true, fieldAssigned: true, fieldCreatedAt: true,
	}
)

func inspectorUpdate(prior *Document, a InspectorUpdate, p *Patch) error {
	if a.Value == "" {
		return malformed("no value")
	}
	var value any
	if err := json.Unmarshal([]byte(a.Value), &value); err != nil {
		return malformed("value %q: %v", a.Value, err)
	}

	if a.Table != "" || a.Row != "" || a.Column != "" {
		if a.Table == "" || a.Row == "" || a.Column == "" {
			return malformed("table, row and column are all required")
		}
		if a.Column == fieldID || strings.TrimSpace(a.Column) == "" {
			return malformed("column %q is not writable", a.Column)
		}
		var live bool
		switch a.Table {
		case KeyLists:
			_, live = prior.Lists.Get(a.Row)
		case KeyCards:
			_, live = prior.Cards.Get(a.Row)
		case KeyComments:
			_, live = prior.Comments.Get(a.Row)
		default:
			return malformed("unknown table %q", a.Table)
		}
		if !live {
			return malformed("no live row %s/%s", a.Table, a.Row)
		}
		if err := checkColumn(a.Table, a.Column, value); err != nil {
			return err
		}
		if a.Table == KeyCards && a.Column == fieldListID {
			if _, ok := prior.FindList(value.(string)); !ok {
				return malformed("list %v does not exist", value)
			}
		}
		if a.Column == fieldOrder {
			value = int64(value.(float64))
		}
		p.Set(value, a.Table, a.Row, a.Column)
		return nil
	}

	if !inspectorKeys[a.Key] {
		return malformed("key %q is not writable", a.Key)
	}
	s, ok := value.(string)
	if !ok {
		return malformed("key %q needs a string, got %T", a.Key, value)
	}
	if a.Key == KeyDocID && !safeDocID(s) {
		return malformed("doc id %q cannot name a board file", s)
	}
	p.Set(s, a.Key)
	return nil
}

// doc ids become file names, see persist.Files
func safeDocID(id string) bool {
	return strings.TrimSpace(id) != "" && !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}

// checkColumn keeps known columns decodable and non-null. Unknown columns land in
// Attributes and accept any JSON value, null removing the attribute.
func checkColumn(table, column string, value any) error {
	if value == nil {
		if knownColumns[column] {
			return malformed("%s.%s cannot be null", table, column)
		}
		return nil
	}
	switch column {
	case fieldTitle, fieldDescription, fieldListID, fieldCardID, fieldBody, fieldAuthor:
		if _, ok := value.(string); !ok {
			return malformed("%s.%s needs a string, got %T", table, column, value)
		}
	case fieldOrder:
		f, ok := value.(float64)
		if !ok {
			return malformed("%s.%s needs a number, got %T", table, column, value)
		}
		if f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
			return malformed("%s.%s needs an integer, got %v", table, column, f)
		}
	case fieldAssigned:
		m, ok := value.(map[string]any)
		if !ok {
			return malformed("%s.%s needs an object, got %T", table, column, value)
		}
		for person, v := range m {
			if _, ok := v.(bool); !ok {
				return malformed("%s.%s[%s] needs a bool, got %T", table, column, person, v)
			}
		}
	case fieldCreatedAt:
		s, ok := value.(string)
		if !ok {
			return malformed("%s.%s needs a string, got %T", table, column, value)
		}
		if _, err := time.Parse(time.RFC3339Nano, s); err != nil {
			return malformed("%s.%s: %v", table, column, err)
		}
	}
	return nil
}
