// Package engine binds the board to automerge. Every patch becomes exactly one
// automerge change whose message carries the changeset metadata.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/automerge/automerge-go"

	"github.com/astromechza/automerge-trellis/pkg/board"
)

type Automerge struct {
	doc      *automerge.Doc
	syncs    map[string]*automerge.SyncState
	snapshot *board.Document
}

func New() *Automerge {
	return wrap(automerge.New())
}

func Load(raw []byte) (*Automerge, error) {
	doc, err := automerge.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load doc: %w", err)
	}
	return wrap(doc), nil
}

func wrap(doc *automerge.Doc) *Automerge {
	return &Automerge{doc: doc, syncs: make(map[string]*automerge.SyncState)}
}

// Doc exposes the underlying document for read only tooling such as history rendering.
func (a *Automerge) Doc() *automerge.Doc {
	return a.doc
}

func (a *Automerge) ActorID() string {
	return a.doc.ActorID()
}

func (a *Automerge) Heads() []string {
	heads := a.doc.Heads()
	out := make([]string, 0, len(heads))
	for _, h := range heads {
		out = append(out, h.String())
	}
	return out
}

// Apply writes every op of p into a fork that shares our actor, commits it with the
// encoded meta and merges it back. A failing op leaves the document untouched.
func (a *Automerge) Apply(p board.Patch, meta board.Meta) error {
	msg, err := board.EncodeMeta(meta)
	if err != nil {
		return err
	}
	fork, err := a.doc.Fork()
	if err != nil {
		return fmt.Errorf("failed to fork: %w", err)
	}
	if err := fork.SetActorID(a.doc.ActorID()); err != nil {
		return fmt.Errorf("failed to set actor: %w", err)
	}
	for _, op := range p.Ops {
		if err := fork.Path(pathOf(op.Path)...).Set(op.Value); err != nil {
			return fmt.Errorf("failed to apply %s: %w", op, err)
		}
	}
	if _, err := fork.Commit(msg, automerge.CommitOptions{AllowEmpty: true}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	if _, err := a.doc.Merge(fork); err != nil {
		return fmt.Errorf("failed to merge commit: %w", err)
	}
	a.snapshot = nil
	return nil
}

func pathOf(keys []string) []interface{} {
	out := make([]interface{}, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}

// Snapshot returns the decoded live board. The result is shared until the next change
// and must not be modified.
func (a *Automerge) Snapshot() (*board.Document, error) {
	if a.snapshot != nil {
		return a.snapshot, nil
	}
	doc, err := decode(a.doc)
	if err != nil {
		return nil, err
	}
	a.snapshot = doc
	return doc, nil
}

func decode(doc *automerge.Doc) (*board.Document, error) {
	root, err := automerge.As[map[string]interface{}](doc.Root())
	if err != nil {
		return nil, fmt.Errorf("failed to read root: %w", err)
	}
	out, err := board.DecodeDocument(root)
	if err != nil {
		return nil, fmt.Errorf("failed to decode board: %w", err)
	}
	return out, nil
}

func (a *Automerge) Save() []byte {
	return a.doc.Save()
}

func (a *Automerge) SaveIncremental() []byte {
	return a.doc.SaveIncremental()
}

// ApplyDeltas takes a sync message from peer, or an incremental save when peer is
// empty.
func (a *Automerge) ApplyDeltas(peer string, data []byte) error {
	defer func() { a.snapshot = nil }()
	if peer == "" {
		if err := a.doc.LoadIncremental(data); err != nil {
			return fmt.Errorf("failed to load incremental changes: %w", err)
		}
		return nil
	}
	if _, err := a.syncState(peer).ReceiveMessage(data); err != nil {
		return fmt.Errorf("failed to receive message from %s: %w", peer, err)
	}
	return nil
}

func (a *Automerge) GenerateSyncMessage(peer string) ([]byte, bool) {
	if msg, valid := a.syncState(peer).GenerateMessage(); valid {
		return msg.Bytes(), true
	}
	return nil, false
}

// ForgetPeer drops the sync state of a peer whose connection ended.
func (a *Automerge) ForgetPeer(peer string) {
	delete(a.syncs, peer)
}

func (a *Automerge) syncState(peer string) *automerge.SyncState {
	ss, ok := a.syncs[peer]
	if !ok {
		slog.Debug("new sync state", "peer", peer)
		ss = automerge.NewSyncState(a.doc)
		a.syncs[peer] = ss
	}
	return ss
}

func (a *Automerge) Merge(raw []byte) error {
	other, err := automerge.Load(raw)
	if err != nil {
		return fmt.Errorf("failed to load doc to merge: %w", err)
	}
	if _, err := a.doc.Merge(other); err != nil {
		return fmt.Errorf("failed to merge: %w", err)
	}
	a.snapshot = nil
	return nil
}
