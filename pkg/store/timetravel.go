package store

import (
	"github.com/astromechza/automerge-trellis/pkg/board"
)

// LocalState is process local and never replicated.
type LocalState struct {
	TimeTravel *TimeTravel
}

// TimeTravel pins the view to the change at Index of the history.
type TimeTravel struct {
	Index  int
	Change *board.Revision
}

func (s *Store) LocalState() LocalState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.local
}

func (s *Store) TimeTraveling() bool {
	return s.LocalState().TimeTravel != nil
}

// timeTravel enters or moves within the historical view. The live document is not
// touched.
func (s *Store) timeTravel(a board.TimeTravel) error {
	rev, err := s.engine.Revision(a.Index)
	if err != nil {
		return err
	}
	s.local.TimeTravel = &TimeTravel{Index: a.Index, Change: rev}
	return nil
}
