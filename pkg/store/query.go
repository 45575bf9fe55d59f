package store

import (
	"github.com/astromechza/automerge-trellis/pkg/board"
)

func (s *Store) FindCard(id string) (*board.Card, bool) {
	return s.GetState().FindCard(id)
}

func (s *Store) FindList(id string) (*board.List, bool) {
	return s.GetState().FindList(id)
}

func (s *Store) FindComment(id string) (*board.Comment, bool) {
	return s.GetState().FindComment(id)
}

func (s *Store) Lists() []*board.List {
	return s.GetState().AllLists()
}

func (s *Store) CardsByList(listID string) []*board.Card {
	return s.GetState().CardsByList(listID)
}

func (s *Store) CommentsByCard(cardID string) []*board.Comment {
	return s.GetState().CommentsByCard(cardID)
}
