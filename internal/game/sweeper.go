package game

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atarigo/goban-server/internal/domain"
	"github.com/atarigo/goban-server/internal/store"
)

const (
	defaultSweepInterval = 2 * time.Minute
	defaultSessionTTL    = 2 * time.Minute
)

// Sweeper periodically removes sessions that have gone quiet. It runs on its
// own timer and never holds anything move processing waits on.
type Sweeper struct {
	store    store.Store
	forget   func(sessionID string)
	ttl      time.Duration
	interval time.Duration
	log      *zap.Logger
}

func NewSweeper(st store.Store, forget func(string), ttl, interval time.Duration, log *zap.Logger) *Sweeper {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		store:    st,
		forget:   forget,
		ttl:      ttl,
		interval: interval,
		log:      log,
	}
}

// Run blocks until ctx is cancelled, sweeping on every tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Warn("sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep removes all sessions inactive past the threshold, plus any left with
// no players, in one bulk operation. Returns how many were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	sessions, err := s.store.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	var stale []*domain.Session
	for _, session := range sessions {
		if session.Expired(now, s.ttl) || len(session.Players) == 0 {
			stale = append(stale, session)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := s.store.RemoveAll(ctx, stale); err != nil {
		return 0, err
	}
	for _, session := range stale {
		if s.forget != nil {
			s.forget(session.ID)
		}
	}
	s.log.Info("stale sessions removed", zap.Int("count", len(stale)))
	return len(stale), nil
}
