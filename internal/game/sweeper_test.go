package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/atarigo/goban-server/internal/domain"
	"github.com/atarigo/goban-server/internal/store"
)

func storedSessionAged(t *testing.T, st store.Store, age time.Duration, players ...string) *domain.Session {
	t.Helper()
	s, err := domain.NewSession(9, "")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	for _, id := range players {
		if err := s.AddPlayer(domain.HumanPlayer(id)); err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
	}
	s.Updated = time.Now().Add(-age)
	if err := st.Create(context.Background(), s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return s
}

func TestSweeper_RemovesStaleAndEmpty(t *testing.T) {
	st := store.NewMemoryStore()
	var mu sync.Mutex
	var forgotten []string
	forget := func(id string) {
		mu.Lock()
		forgotten = append(forgotten, id)
		mu.Unlock()
	}
	sw := NewSweeper(st, forget, 2*time.Minute, time.Minute, zap.NewNop())
	ctx := context.Background()

	stale := storedSessionAged(t, st, 3*time.Minute, "alice")
	fresh := storedSessionAged(t, st, 30*time.Second, "bob")
	empty := storedSessionAged(t, st, 0)

	removed, err := sw.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	if _, err := st.Get(ctx, stale.ID); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("stale session survived: %v", err)
	}
	if _, err := st.Get(ctx, empty.ID); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("empty session survived: %v", err)
	}
	if _, err := st.Get(ctx, fresh.ID); err != nil {
		t.Fatalf("fresh session removed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(forgotten) != 2 {
		t.Fatalf("forgotten = %v, want the two removed ids", forgotten)
	}
}

func TestSweeper_NothingToDo(t *testing.T) {
	st := store.NewMemoryStore()
	sw := NewSweeper(st, nil, 2*time.Minute, time.Minute, zap.NewNop())

	storedSessionAged(t, st, 10*time.Second, "alice")
	removed, err := sw.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	st := store.NewMemoryStore()
	sw := NewSweeper(st, nil, time.Minute, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
