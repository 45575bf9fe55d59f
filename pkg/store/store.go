// Package store is the single entry point for board commands. It routes actions to
// changeset builders, guards the live board while time travelling and tells
// subscribers when the visible state changed.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/astromechza/automerge-trellis/pkg/board"
	"github.com/astromechza/automerge-trellis/pkg/docid"
	"github.com/astromechza/automerge-trellis/pkg/engine"
	"github.com/astromechza/automerge-trellis/pkg/session"
)

// Engine is the replicated document the store writes changesets into.
type Engine interface {
	Apply(p board.Patch, meta board.Meta) error
	Snapshot() (*board.Document, error)
	Save() []byte
	ApplyDeltas(peer string, data []byte) error
	GenerateSyncMessage(peer string) ([]byte, bool)
	ForgetPeer(peer string)
	Merge(raw []byte) error
	Revisions() ([]board.Revision, error)
	Revision(index int) (*board.Revision, error)
}

type Config struct {
	// Session supplies the author of every changeset.
	Session *session.Session

	NewEngine  func() Engine
	LoadEngine func(raw []byte) (Engine, error)
	NewDocID   func() string

	Now   func() time.Time
	NewID func() string
}

func (c Config) withDefaults() Config {
	if c.NewEngine == nil {
		c.NewEngine = func() Engine { return engine.New() }
	}
	if c.LoadEngine == nil {
		c.LoadEngine = func(raw []byte) (Engine, error) { return engine.Load(raw) }
	}
	if c.NewDocID == nil {
		c.NewDocID = docid.Generate
	}
	return c
}

type Store struct {
	cfg Config

	// dispatchMu serializes whole dispatches including notification.
	dispatchMu sync.Mutex

	mu       sync.RWMutex
	engine   Engine
	snapshot *board.Document
	local    LocalState

	subsMu sync.Mutex
	subs   []subscriber
	nextID int
}

type subscriber struct {
	id int
	fn func()
}

// New returns a store over an empty document. Hosts follow up with NEW_DOCUMENT or
// OPEN_DOCUMENT.
func New(cfg Config) *Store {
	cfg = cfg.withDefaults()
	return &Store{cfg: cfg, engine: cfg.NewEngine(), snapshot: &board.Document{}}
}

// Subscribe registers fn to run synchronously after every accepted action. fn may read
// the store but must not dispatch from the same goroutine.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify() {
	s.subsMu.Lock()
	subs := append([]subscriber(nil), s.subs...)
	s.subsMu.Unlock()
	for _, sub := range subs {
		sub.fn()
	}
}

func (s *Store) buildContext() board.BuildContext {
	return board.BuildContext{Author: s.cfg.Session.Author(), Now: s.cfg.Now, NewID: s.cfg.NewID}
}

func (s *Store) meta(a board.Action) board.Meta {
	return board.Meta{Author: s.cfg.Session.Author(), Action: a}
}

// passesTimeTravel lists the actions accepted while a historical view is shown.
func passesTimeTravel(t board.ActionType) bool {
	switch t {
	case board.ActionTimeTravel, board.ActionStopTimeTravel, board.ActionApplyDeltas:
		return true
	}
	return false
}

// Dispatch runs action to completion. Pointer actions are routed like their values.
// Dangling ids come back as board.ErrEntityNotFound, creations into a board that has not
// synced its collections yet as board.ErrBoardNotReady, and engine failures are
// returned wrapped with the action type. Actions dropped by time travel, malformed
// inspector edits and unknown types return nil.
func (s *Store) Dispatch(action board.Action) error {
	action = board.Deref(action)
	if action == nil {
		slog.Debug("ignoring nil action")
		return nil
	}

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	changed, err := s.dispatch(action)
	if err != nil {
		slog.Debug("dispatch failed", "action", action.Type(), "doc", s.DocID(), "err", err)
		return fmt.Errorf("failed to dispatch %s: %w", action.Type(), err)
	}
	if changed {
		s.notify()
	}
	return nil
}

func (s *Store) dispatch(action board.Action) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.local.TimeTravel != nil && !passesTimeTravel(action.Type()) {
		slog.Info("ignoring action because we are time traveling", "action", action.Type(), "index", s.local.TimeTravel.Index)
		return false, nil
	}

	switch a := action.(type) {
	case board.TimeTravel:
		return true, s.timeTravel(a)
	case board.StopTimeTravel:
		s.local.TimeTravel = nil
		return true, nil
	case board.ApplyDeltas:
		if err := s.engine.ApplyDeltas(a.Peer, a.Data); err != nil {
			return false, err
		}
		return true, s.refresh()
	case board.NewDocument:
		return true, s.newDocument(a)
	case board.ForkDocument:
		return true, s.forkDocument(a)
	case board.OpenDocument:
		return true, s.openDocument(a)
	case board.MergeDocument:
		if err := s.engine.Merge(a.File); err != nil {
			return false, err
		}
		return true, s.refresh()
	}

	p, err := board.Build(s.snapshot, action, s.buildContext())
	switch {
	case errors.Is(err, board.ErrUnknownAction):
		slog.Debug("ignoring unknown action", "action", action.Type())
		return false, nil
	case errors.Is(err, board.ErrMalformedEdit):
		slog.Warn("discarding malformed edit", "action", action.Type(), "doc", s.snapshot.DocID, "err", err)
		return false, nil
	case err != nil:
		return false, err
	}
	if p.Empty() {
		return false, nil
	}
	if err := s.engine.Apply(p, s.meta(action)); err != nil {
		slog.Error("failed to apply changeset", "action", action.Type(), "doc", s.snapshot.DocID, "ops", len(p.Ops), "err", err)
		return false, fmt.Errorf("failed to apply changeset: %w", err)
	}
	slog.Debug("applied changeset", "action", action.Type(), "doc", s.snapshot.DocID, "ops", len(p.Ops))
	return true, s.refresh()
}

// refresh re-reads the live snapshot after the engine changed.
func (s *Store) refresh() error {
	doc, err := s.engine.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	s.snapshot = doc
	return nil
}

// GetState returns the board to display: the historical snapshot while time travelling,
// the live board otherwise. The result must not be modified.
func (s *Store) GetState() *board.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tt := s.local.TimeTravel; tt != nil && tt.Change != nil && tt.Change.Snapshot != nil {
		return tt.Change.Snapshot
	}
	return s.snapshot
}

// LiveState ignores time travel.
func (s *Store) LiveState() *board.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Store) DocID() string {
	return s.LiveState().DocID
}

// Save serializes the live document.
func (s *Store) Save() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Save()
}

func (s *Store) History() ([]board.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Revisions()
}

// SyncMessage returns the next message for peer, if any.
func (s *Store) SyncMessage(peer string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.GenerateSyncMessage(peer)
}

func (s *Store) ForgetPeer(peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.ForgetPeer(peer)
}

// ReceiveSyncMessage applies a sync message from peer as APPLY_DELTAS.
func (s *Store) ReceiveSyncMessage(peer string, msg []byte) error {
	return s.Dispatch(board.ApplyDeltas{Peer: peer, Data: msg})
}
