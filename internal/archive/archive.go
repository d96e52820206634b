// Package archive persists finished games. The live session registry is
// elsewhere; this is write-once history for completed matches.
package archive

import (
	"context"
	"errors"
	"time"
)

var ErrDuplicateGame = errors.New("game already archived")

// Game is one completed match.
type Game struct {
	ID          int64
	SessionID   string
	BoardSize   int
	Difficulty  string
	PlayerBlack string
	PlayerWhite string
	Moves       []string
	Margin      float64
	Winner      string // black, white, or empty for no winner
	EndedAt     time.Time
}

type Repository interface {
	Record(ctx context.Context, game Game) error
	RecentByPlayer(ctx context.Context, playerID string, limit int) ([]Game, error)
}
