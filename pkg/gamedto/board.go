package gamedto

import (
	"time"

	"github.com/atarigo/goban-server/internal/archive"
	"github.com/atarigo/goban-server/internal/domain"
)

type BoardState struct {
	BoardSize     int        `json:"boardSize"`
	Positions     [][]string `json:"positions"` // rows top to bottom, values empty|black|white
	ActivePlayer  Player     `json:"activePlayer"`
	PassivePlayer Player     `json:"passivePlayer"`
	Ended         bool       `json:"ended"`
}

type EndGame struct {
	Margin  float64  `json:"margin"`
	Winners []Player `json:"winners"`
}

func FromSnapshot(s *domain.Snapshot) BoardState {
	positions := make([][]string, len(s.Grid))
	for y, row := range s.Grid {
		out := make([]string, len(row))
		for x, stone := range row {
			out[x] = string(stone)
		}
		positions[y] = out
	}
	return BoardState{
		BoardSize:     s.Size,
		Positions:     positions,
		ActivePlayer:  FromPlayer(s.Active),
		PassivePlayer: FromPlayer(s.Passive),
		Ended:         s.Ended,
	}
}

// GameRecord is one finished game as served from the archive.
type GameRecord struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"sessionId"`
	BoardSize   int       `json:"boardSize"`
	Difficulty  string    `json:"difficulty,omitempty"`
	PlayerBlack string    `json:"playerBlack"`
	PlayerWhite string    `json:"playerWhite"`
	Moves       []string  `json:"moves"`
	Margin      float64   `json:"margin"`
	Winner      string    `json:"winner,omitempty"`
	EndedAt     time.Time `json:"endedAt"`
}

func FromArchivedGame(g archive.Game) GameRecord {
	return GameRecord{
		ID:          g.ID,
		SessionID:   g.SessionID,
		BoardSize:   g.BoardSize,
		Difficulty:  g.Difficulty,
		PlayerBlack: g.PlayerBlack,
		PlayerWhite: g.PlayerWhite,
		Moves:       g.Moves,
		Margin:      g.Margin,
		Winner:      g.Winner,
		EndedAt:     g.EndedAt,
	}
}

func FromEndGame(r *domain.EndGameResult) EndGame {
	winners := make([]Player, 0, len(r.Winners))
	for _, p := range r.Winners {
		winners = append(winners, FromPlayer(p))
	}
	return EndGame{Margin: r.Margin, Winners: winners}
}
