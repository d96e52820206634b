// Package gamedto holds the wire-level shapes exchanged with clients. The
// core works on internal/domain types; these are their outward projection.
package gamedto

import "github.com/atarigo/goban-server/internal/domain"

type Player struct {
	ID    string `json:"id"`
	Color string `json:"color"`
	Bot   bool   `json:"bot"`
}

type SessionSummary struct {
	ID         string   `json:"id"`
	Players    []Player `json:"players"`
	BoardSize  int      `json:"boardSize"`
	Difficulty string   `json:"difficulty,omitempty"`
	Pending    bool     `json:"pending"`
}

func FromPlayer(p domain.Player) Player {
	return Player{
		ID:    p.ID,
		Color: string(p.Color),
		Bot:   p.IsBot(),
	}
}

func FromSession(s *domain.Session) SessionSummary {
	players := make([]Player, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, FromPlayer(p))
	}
	return SessionSummary{
		ID:         s.ID,
		Players:    players,
		BoardSize:  s.BoardSize,
		Difficulty: string(s.Difficulty),
		Pending:    s.Pending(),
	}
}
