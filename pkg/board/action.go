package board

import (
	"encoding/json"
	"fmt"
	"reflect"
)

type ActionType string

const (
	ActionUpdateBoardTitle      ActionType = "UPDATE_BOARD_TITLE"
	ActionCreateList            ActionType = "CREATE_LIST"
	ActionDeleteList            ActionType = "DELETE_LIST"
	ActionCreateCard            ActionType = "CREATE_CARD"
	ActionUpdateCardTitle       ActionType = "UPDATE_CARD_TITLE"
	ActionUpdateCardDescription ActionType = "UPDATE_CARD_DESCRIPTION"
	ActionUpdateAssignments     ActionType = "UPDATE_ASSIGNMENTS"
	ActionDeleteCard            ActionType = "DELETE_CARD"
	ActionMoveCard              ActionType = "MOVE_CARD"
	ActionCreateComment         ActionType = "CREATE_COMMENT"
	ActionInspectorUpdate       ActionType = "INSPECTOR_UPDATE"

	ActionTimeTravel     ActionType = "TIME_TRAVEL"
	ActionStopTimeTravel ActionType = "STOP_TIME_TRAVEL"
	ActionApplyDeltas    ActionType = "APPLY_DELTAS"

	ActionNewDocument   ActionType = "NEW_DOCUMENT"
	ActionForkDocument  ActionType = "FORK_DOCUMENT"
	ActionOpenDocument  ActionType = "OPEN_DOCUMENT"
	ActionMergeDocument ActionType = "MERGE_DOCUMENT"
)

// Action is an immutable command submitted to the dispatcher.
type Action interface {
	Type() ActionType
}

type UpdateBoardTitle struct {
	Value string `json:"value"`
}

type CreateList struct {
	Title      string         `json:"title"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type DeleteList struct {
	ListID string `json:"listId"`
}

type CreateCard struct {
	ListID      string         `json:"listId"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

type UpdateCardTitle struct {
	CardID   string `json:"cardId"`
	NewTitle string `json:"newTitle"`
}

type UpdateCardDescription struct {
	CardID         string `json:"cardId"`
	NewDescription string `json:"newDescription"`
}

type UpdateAssignments struct {
	CardID     string `json:"cardId"`
	Person     string `json:"person"`
	IsAssigned bool   `json:"isAssigned"`
}

type DeleteCard struct {
	CardID string `json:"cardId"`
}

// MoveCard moves a card into ListID after AfterCardID, or to the front when AfterCardID
// is empty.
type MoveCard struct {
	CardID      string `json:"cardId"`
	ListID      string `json:"listId"`
	AfterCardID string `json:"afterCardId,omitempty"`
}

type CreateComment struct {
	CardID string `json:"cardId"`
	Body   string `json:"body"`
}

// InspectorUpdate writes a JSON encoded Value either into Table/Row/Column or into the
// top level Key.
type InspectorUpdate struct {
	Table  string `json:"table,omitempty"`
	Row    string `json:"row,omitempty"`
	Column string `json:"column,omitempty"`
	Key    string `json:"key,omitempty"`
	Value  string `json:"value"`
}

type TimeTravel struct {
	Index int `json:"index"`
}

type StopTimeTravel struct{}

// ApplyDeltas carries remote changes. With a Peer it is a sync message from that peer,
// otherwise Data is an incremental save.
type ApplyDeltas struct {
	Peer string `json:"peer,omitempty"`
	Data []byte `json:"data"`
}

type NewDocument struct{}

type ForkDocument struct{}

// OpenDocument opens saved bytes from File, or starts an empty board for DocID.
type OpenDocument struct {
	File  []byte `json:"file,omitempty"`
	DocID string `json:"docId,omitempty"`
}

type MergeDocument struct {
	File []byte `json:"file"`
}

func (UpdateBoardTitle) Type() ActionType      { return ActionUpdateBoardTitle }
func (CreateList) Type() ActionType            { return ActionCreateList }
func (DeleteList) Type() ActionType            { return ActionDeleteList }
func (CreateCard) Type() ActionType            { return ActionCreateCard }
func (UpdateCardTitle) Type() ActionType       { return ActionUpdateCardTitle }
func (UpdateCardDescription) Type() ActionType { return ActionUpdateCardDescription }
func (UpdateAssignments) Type() ActionType     { return ActionUpdateAssignments }
func (DeleteCard) Type() ActionType            { return ActionDeleteCard }
func (MoveCard) Type() ActionType              { return ActionMoveCard }
func (CreateComment) Type() ActionType         { return ActionCreateComment }
func (InspectorUpdate) Type() ActionType       { return ActionInspectorUpdate }
func (TimeTravel) Type() ActionType            { return ActionTimeTravel }
func (StopTimeTravel) Type() ActionType        { return ActionStopTimeTravel }
func (ApplyDeltas) Type() ActionType           { return ActionApplyDeltas }
func (NewDocument) Type() ActionType           { return ActionNewDocument }
func (ForkDocument) Type() ActionType          { return ActionForkDocument }
func (OpenDocument) Type() ActionType          { return ActionOpenDocument }
func (MergeDocument) Type() ActionType         { return ActionMergeDocument }

var actionFactories = map[ActionType]func() Action{
	ActionUpdateBoardTitle:      func() Action { return &UpdateBoardTitle{} },
	ActionCreateList:            func() Action { return &CreateList{} },
	ActionDeleteList:            func() Action { return &DeleteList{} },
	ActionCreateCard:            func() Action { return &CreateCard{} },
	ActionUpdateCardTitle:       func() Action { return &UpdateCardTitle{} },
	ActionUpdateCardDescription: func() Action { return &UpdateCardDescription{} },
	ActionUpdateAssignments:     func() Action { return &UpdateAssignments{} },
	ActionDeleteCard:            func() Action { return &DeleteCard{} },
	ActionMoveCard:              func() Action { return &MoveCard{} },
	ActionCreateComment:         func() Action { return &CreateComment{} },
	ActionInspectorUpdate:       func() Action { return &InspectorUpdate{} },
	ActionTimeTravel:            func() Action { return &TimeTravel{} },
	ActionStopTimeTravel:        func() Action { return &StopTimeTravel{} },
	ActionApplyDeltas:           func() Action { return &ApplyDeltas{} },
	ActionNewDocument:           func() Action { return &NewDocument{} },
	ActionForkDocument:          func() Action { return &ForkDocument{} },
	ActionOpenDocument:          func() Action { return &OpenDocument{} },
	ActionMergeDocument:         func() Action { return &MergeDocument{} },
}

// EncodeAction renders an action as a JSON object carrying its "type".
func EncodeAction(a Action) ([]byte, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", a.Type(), err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", a.Type(), err)
	}
	typ, _ := json.Marshal(a.Type())
	fields["type"] = typ
	return json.Marshal(fields)
}

// DecodeAction is the inverse of EncodeAction. Unknown types are rejected.
func DecodeAction(raw []byte) (Action, error) {
	var head struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("failed to decode action: %w", err)
	}
	factory, ok := actionFactories[head.Type]
	if !ok {
		return nil, fmt.Errorf("failed to decode action: unknown type %q", head.Type)
	}
	a := factory()
	if err := json.Unmarshal(raw, a); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", head.Type, err)
	}
	return Deref(a), nil
}

// Deref returns the value form of a pointer action so that *CreateList routes like
// CreateList. A nil pointer yields nil.
func Deref(a Action) Action {
	v := reflect.ValueOf(a)
	if v.Kind() != reflect.Pointer {
		return a
	}
	if v.IsNil() {
		return nil
	}
	if inner, ok := v.Elem().Interface().(Action); ok {
		return inner
	}
	return a
}
