package store

import (
	"fmt"
	"log/slog"

	"github.com/astromechza/automerge-trellis/pkg/board"
	"github.com/astromechza/automerge-trellis/pkg/docid"
)

func (s *Store) NewDocument() error {
	return s.Dispatch(board.NewDocument{})
}

func (s *Store) ForkDocument() error {
	return s.Dispatch(board.ForkDocument{})
}

func (s *Store) OpenDocument(raw []byte) error {
	return s.Dispatch(board.OpenDocument{File: raw})
}

// OpenDocID starts an empty board for an id shared by another peer. Its content
// arrives through sync.
func (s *Store) OpenDocID(id string) error {
	if err := docid.Validate(id); err != nil {
		return err
	}
	return s.Dispatch(board.OpenDocument{DocID: id})
}

func (s *Store) MergeDocument(raw []byte) error {
	return s.Dispatch(board.MergeDocument{File: raw})
}

func (s *Store) newDocument(a board.NewDocument) error {
	e := s.cfg.NewEngine()
	if err := e.Apply(board.SeedPatch(s.cfg.NewDocID(), s.buildContext()), s.meta(a)); err != nil {
		return fmt.Errorf("failed to seed document: %w", err)
	}
	return s.swap(e)
}

func (s *Store) forkDocument(a board.ForkDocument) error {
	var p board.Patch
	p.Set(s.cfg.NewDocID(), board.KeyDocID)
	if err := s.engine.Apply(p, s.meta(a)); err != nil {
		return fmt.Errorf("failed to apply changeset: %w", err)
	}
	slog.Info("forked board", "from", s.snapshot.DocID, "to", p.Ops[0].Value)
	return s.refresh()
}

func (s *Store) openDocument(a board.OpenDocument) error {
	if a.File != nil {
		e, err := s.cfg.LoadEngine(a.File)
		if err != nil {
			return err
		}
		return s.swap(e)
	}
	if err := docid.Validate(a.DocID); err != nil {
		return err
	}
	e := s.cfg.NewEngine()
	var p board.Patch
	p.Set(a.DocID, board.KeyDocID)
	if err := e.Apply(p, s.meta(a)); err != nil {
		return fmt.Errorf("failed to apply changeset: %w", err)
	}
	return s.swap(e)
}

// swap replaces the engine only once the new one decodes.
func (s *Store) swap(e Engine) error {
	doc, err := e.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	slog.Info("switched board", "from", s.snapshot.DocID, "to", doc.DocID, "lists", doc.Lists.Len(), "cards", doc.Cards.Len())
	s.engine = e
	s.snapshot = doc
	return nil
}
