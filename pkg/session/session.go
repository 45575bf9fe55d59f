// Package session keeps the small per-machine record that survives restarts: who the
// local peer is and which board was open last.
package session

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var defaultNames = []string{"Amelia", "Marco", "Isabella", "Meriweather", "Valentina", "Yuri"}

type Session struct {
	PeerName       string `yaml:"peerName"`
	LastFileOpened string `yaml:"lastFileOpened,omitempty"`

	path string
}

// Default returns a session with a peer name picked from the built in list.
func Default(rnd *rand.Rand) *Session {
	return &Session{PeerName: defaultNames[rnd.Intn(len(defaultNames))]}
}

// Load reads the session at path. A missing file yields a default session bound to
// path so that Save writes it there.
func Load(path string, rnd *rand.Rand) (*Session, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s := Default(rnd)
		s.path = path
		return s, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	s := new(Session)
	if err := yaml.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", path, err)
	}
	if s.PeerName == "" {
		s.PeerName = Default(rnd).PeerName
	}
	s.path = path
	return s, nil
}

func (s *Session) Save() error {
	if s.path == "" {
		return fmt.Errorf("session has no path")
	}
	raw, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Author is the name stamped on changesets. It is never empty.
func (s *Session) Author() string {
	if s == nil || s.PeerName == "" {
		return "Unknown"
	}
	return s.PeerName
}
