package board

import (
	"errors"
	"fmt"
)

var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrMalformedEdit  = errors.New("malformed edit")
	ErrUnknownAction  = errors.New("unknown action")

	// ErrBoardNotReady rejects creations into a collection the document does not have
	// yet. Creating it locally would race the collection arriving from a peer and one
	// of the two would be dropped on merge.
	ErrBoardNotReady = errors.New("board not ready")
)

// EntityNotFoundError names the stale or deleted id a command referred to.
type EntityNotFoundError struct {
	Kind string
	ID   string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *EntityNotFoundError) Is(target error) bool {
	return target == ErrEntityNotFound
}

func notFound(kind, id string) error {
	return &EntityNotFoundError{Kind: kind, ID: id}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformedEdit}, args...)...)
}

func notReady(key string) error {
	return fmt.Errorf("%w: no %s yet, wait for the board to sync", ErrBoardNotReady, key)
}
