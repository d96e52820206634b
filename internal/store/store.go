// Package store holds the registry of active sessions. Implementations must
// be safe under concurrent request handling: operations on different session
// ids never block each other, and a stale read-modify-write on the same id
// fails with ErrConflict instead of silently overwriting.
package store

import (
	"context"
	"errors"

	"github.com/atarigo/goban-server/internal/domain"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	// ErrConflict means the session was modified since it was read; the
	// caller should re-read and retry.
	ErrConflict = errors.New("session modified concurrently")
)

type Store interface {
	// Create inserts a new session. An existing session with the same id is
	// left untouched and no error is returned (duplicate guard, not merge).
	Create(ctx context.Context, session *domain.Session) error

	// Get returns a copy of the session with the given id.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// FindByPlayer returns the session the player participates in. At most
	// one exists at any time.
	FindByPlayer(ctx context.Context, playerID string) (*domain.Session, error)

	// Update replaces the stored session if its version still matches the
	// caller's copy, then bumps the version on both. Fails with
	// ErrSessionNotFound for unknown ids and ErrConflict on a version race.
	Update(ctx context.Context, session *domain.Session) error

	Remove(ctx context.Context, session *domain.Session) error
	RemoveAll(ctx context.Context, sessions []*domain.Session) error
	ListAll(ctx context.Context) ([]*domain.Session, error)
}
