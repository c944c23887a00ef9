package session

import (
	"context"
	"errors"
)

// ErrConflict is returned when a concurrent writer kept winning the race for
// the same session.
var ErrConflict = errors.New("session: concurrent update conflict")

// Store keeps session State by id. A missing session reads as the zero State.
type Store interface {
	Get(ctx context.Context, id string) (State, error)
	// Update runs fn on the current state and persists the result atomically.
	// If fn returns an error nothing is written and the error is returned.
	// A zero result removes the session.
	Update(ctx context.Context, id string, fn func(*State) error) (State, error)
	Delete(ctx context.Context, id string) error
}
