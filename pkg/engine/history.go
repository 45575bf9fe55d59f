package engine

import (
	"errors"
	"fmt"

	"github.com/automerge/automerge-go"

	"github.com/astromechza/automerge-trellis/pkg/board"
)

var ErrRevisionNotFound = errors.New("revision not found")

// Revisions lists the change history in causal order without snapshots.
func (a *Automerge) Revisions() ([]board.Revision, error) {
	changes, err := a.doc.Changes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate changes: %w", err)
	}
	out := make([]board.Revision, 0, len(changes))
	for i, c := range changes {
		out = append(out, revisionOf(i, c))
	}
	return out, nil
}

// Revision returns the history entry at index together with the board as of that
// change.
func (a *Automerge) Revision(index int) (*board.Revision, error) {
	changes, err := a.doc.Changes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate changes: %w", err)
	}
	if index < 0 || index >= len(changes) {
		return nil, fmt.Errorf("%w: %d of %d", ErrRevisionNotFound, index, len(changes))
	}
	c := changes[index]
	docAt, err := a.doc.Fork(c.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to checkout %s: %w", c.Hash(), err)
	}
	snapshot, err := decode(docAt)
	if err != nil {
		return nil, err
	}
	rev := revisionOf(index, c)
	rev.Snapshot = snapshot
	return &rev, nil
}

func revisionOf(index int, c *automerge.Change) board.Revision {
	author, action := board.DecodeMeta(c.Message())
	deps := make([]string, 0, len(c.Dependencies()))
	for _, h := range c.Dependencies() {
		deps = append(deps, h.String())
	}
	return board.Revision{
		Index:  index,
		Hash:   c.Hash().String(),
		Actor:  c.ActorID(),
		Seq:    c.ActorSeq(),
		Deps:   deps,
		Author: author,
		Action: action,
		Time:   c.Timestamp(),
	}
}
