package board

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Op writes Value at Path. A nil Value tombstones the slot at Path.
type Op struct {
	Path  []string
	Value any
}

func (o Op) String() string {
	return fmt.Sprintf("%v=%v", o.Path, o.Value)
}

// Patch is the data form of one changeset. The engine applies all of its ops as a
// single commit or not at all.
type Patch struct {
	Ops []Op
}

func (p *Patch) Set(value any, path ...string) {
	p.Ops = append(p.Ops, Op{Path: path, Value: value})
}

func (p *Patch) Tombstone(path ...string) {
	p.Ops = append(p.Ops, Op{Path: path})
}

func (p Patch) Empty() bool {
	return len(p.Ops) == 0
}

// Meta is attached to every changeset.
type Meta struct {
	Author string
	Action Action
}

// BuildContext carries what a builder needs beyond the prior snapshot. Zero values for
// Now and NewID fall back to the wall clock and time ordered UUIDs.
type BuildContext struct {
	Author string
	Now    func() time.Time
	NewID  func() string
}

func (c BuildContext) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// ids double as slot keys so v7 keeps slots in creation order
func (c BuildContext) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ApplyPatch applies p to a copy of doc and returns the result. It mirrors what the
// engine does with a patch and is used where no engine is involved.
func ApplyPatch(doc *Document, p Patch) (*Document, error) {
	root := doc.Encode()
	for _, op := range p.Ops {
		if err := setPath(root, op.Path, op.Value); err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", op, err)
		}
	}
	return DecodeDocument(root)
}

func setPath(root map[string]any, path []string, value any) error {
	if len(path) == 0 {
		return fmt.Errorf("empty path")
	}
	m := root
	for i, key := range path[:len(path)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			return fmt.Errorf("no map at %v", path[:i+1])
		}
		m = next
	}
	m[path[len(path)-1]] = value
	return nil
}
