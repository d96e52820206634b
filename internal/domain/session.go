package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	playersPerSession = 2

	MinBoardSize     = 9
	MaxBoardSize     = 19
	DefaultBoardSize = 9
)

var (
	ErrSessionFull      = errors.New("session already has two players")
	ErrInvalidBoardSize = errors.New("board size must be between 9 and 19")
)

// Session is the durable aggregate for a single game. The board itself is
// never stored; it is a pure function of (BoardSize, Moves) and gets rebuilt
// by replaying the history through the rules engine.
type Session struct {
	ID         string     `json:"id"`
	Players    []Player   `json:"players"`
	BoardSize  int        `json:"board_size"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	Moves      []string   `json:"moves"`
	Updated    time.Time  `json:"updated"`
	Terminated bool       `json:"terminated"`

	// Version is bumped by the store on every successful update. A stale
	// read-modify-write fails instead of silently overwriting.
	Version int64 `json:"version"`
}

func NewSession(boardSize int, difficulty Difficulty) (*Session, error) {
	if boardSize == 0 {
		boardSize = DefaultBoardSize
	}
	if boardSize < MinBoardSize || boardSize > MaxBoardSize {
		return nil, ErrInvalidBoardSize
	}
	return &Session{
		ID:         uuid.New().String(),
		BoardSize:  boardSize,
		Difficulty: difficulty,
		Updated:    time.Now(),
	}, nil
}

// AddPlayer seats a player on the next free color: first black, then white.
func (s *Session) AddPlayer(p Player) error {
	if len(s.Players) >= playersPerSession {
		return ErrSessionFull
	}
	if len(s.Players) == 0 {
		p.Color = Black
	} else {
		p.Color = White
	}
	s.Players = append(s.Players, p)
	return nil
}

// NextColor returns the color to move, determined solely by history length.
func (s *Session) NextColor() Color {
	if len(s.Moves)%2 == 0 {
		return Black
	}
	return White
}

func (s *Session) PlayerByColor(c Color) (Player, bool) {
	for _, p := range s.Players {
		if p.Color == c {
			return p, true
		}
	}
	return Player{}, false
}

func (s *Session) PlayerByID(id string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

func (s *Session) HasPlayer(id string) bool {
	_, ok := s.PlayerByID(id)
	return ok
}

// Pending reports whether the session is still waiting for a second player.
func (s *Session) Pending() bool {
	return len(s.Players) < playersPerSession
}

// Ended reports whether the game is over: the last two moves are both passes.
func (s *Session) Ended() bool {
	n := len(s.Moves)
	return n >= 2 && IsPassToken(s.Moves[n-1]) && IsPassToken(s.Moves[n-2])
}

// AppendMove records an engine-native move token and bumps the activity time.
func (s *Session) AppendMove(token string) {
	s.Moves = append(s.Moves, token)
	s.Touch()
}

func (s *Session) Touch() {
	s.Updated = time.Now()
}

// Terminate empties the seats and marks the session terminal.
func (s *Session) Terminate() {
	s.Players = nil
	s.Terminated = true
	s.Touch()
}

// Expired reports whether the session has been inactive for at least ttl.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.Updated) >= ttl
}

// Clone returns a deep copy so callers never share mutable slices with the
// store's view of the session.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Players = append([]Player(nil), s.Players...)
	cp.Moves = append([]string(nil), s.Moves...)
	return &cp
}
