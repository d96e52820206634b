package archive

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is the archive used when no database is configured.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64

	bySession map[string]*Game
	byPlayer  map[string][]*Game
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bySession: make(map[string]*Game),
		byPlayer:  make(map[string][]*Game),
	}
}

func (m *MemoryRepository) Record(ctx context.Context, game Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bySession[game.SessionID]; exists {
		return ErrDuplicateGame
	}

	m.nextID++
	game.ID = m.nextID
	cp := game
	m.bySession[game.SessionID] = &cp
	for _, player := range []string{game.PlayerBlack, game.PlayerWhite} {
		if player != "" {
			m.byPlayer[player] = append(m.byPlayer[player], &cp)
		}
	}
	return nil
}

func (m *MemoryRepository) RecentByPlayer(ctx context.Context, playerID string, limit int) ([]Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.byPlayer[playerID]
	games := make([]Game, 0, len(list))
	for _, g := range list {
		games = append(games, *g)
	}
	sort.Slice(games, func(i, j int) bool {
		if !games[i].EndedAt.Equal(games[j].EndedAt) {
			return games[i].EndedAt.After(games[j].EndedAt)
		}
		return games[i].ID > games[j].ID
	})
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}
