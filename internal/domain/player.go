package domain

import "github.com/google/uuid"

type Color string

const (
	Black Color = "black"
	White Color = "white"
)

func (c Color) Opponent() Color {
	if c == Black {
		return White
	}
	return Black
}

// PlayerKind distinguishes a human-controlled seat from a bot-controlled one.
type PlayerKind string

const (
	KindHuman PlayerKind = "human"
	KindBot   PlayerKind = "bot"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Player occupies one of the two color seats in a session. Color is assigned
// by the session at join time and fixed afterwards.
type Player struct {
	ID    string     `json:"id"`
	Color Color      `json:"color"`
	Kind  PlayerKind `json:"kind"`
}

func HumanPlayer(id string) Player {
	return Player{ID: id, Kind: KindHuman}
}

// BotPlayer mints a bot seat with a fresh identity.
func BotPlayer() Player {
	return Player{ID: uuid.New().String(), Kind: KindBot}
}

func (p Player) IsBot() bool {
	return p.Kind == KindBot
}
