package persist

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/astromechza/automerge-trellis/pkg/docid"
	"github.com/astromechza/automerge-trellis/pkg/store"
)

const Ext = ".trellis"

// ErrUnsafeDocID rejects doc ids that would not name a file directly inside Dir.
var ErrUnsafeDocID = errors.New("doc id cannot be used as a file name")

func checkID(id string) error {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrUnsafeDocID, id)
	}
	return nil
}

// Files keeps one <docId>.trellis file per board in Dir.
type Files struct {
	Dir string
}

func NewFiles(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &Files{Dir: dir}, nil
}

func (f *Files) PathFor(id string) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}
	return filepath.Join(f.Dir, id+Ext), nil
}

func (f *Files) Exists(id string) bool {
	path, err := f.PathFor(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (f *Files) Write(id string, raw []byte) (string, error) {
	path, err := f.PathFor(id)
	if err != nil {
		return "", fmt.Errorf("refusing to save board: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return path, nil
}

// SaveStore writes the live document of s under its doc id.
func (f *Files) SaveStore(s *store.Store) (string, error) {
	return f.Write(s.DocID(), s.Save())
}

// Autosave writes the board after every notification until unsubscribed.
func (f *Files) Autosave(s *store.Store) (unsubscribe func()) {
	return s.Subscribe(func() {
		path, err := f.SaveStore(s)
		if err != nil {
			slog.Error("failed to auto save", "err", err)
			return
		}
		slog.Debug("auto saved", "path", path)
	})
}

// Open loads the board file at path into s.
func Open(s *store.Store, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read board: %w", err)
	}
	return s.OpenDocument(raw)
}

// OpenDocID opens the local copy of a shared board when there is one, otherwise
// starts an empty board under that id. It returns the path the board saves to.
func (f *Files) OpenDocID(s *store.Store, id string) (string, error) {
	if err := docid.Validate(id); err != nil {
		return "", err
	}
	path, err := f.PathFor(id)
	if err != nil {
		return "", err
	}
	if err := Open(s, path); err == nil {
		return path, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	if err := s.OpenDocID(id); err != nil {
		return "", err
	}
	return path, nil
}
