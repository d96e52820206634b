package domain

import (
	"fmt"
	"strings"
)

// PassToken is the engine-native spelling of a pass, as stored in history.
const PassToken = "PASS"

// Move is the structured form used at the API boundary: either a stone placed
// at zero-based (X, Y), or a pass carrying no coordinate.
type Move struct {
	X    int  `json:"x"`
	Y    int  `json:"y"`
	Pass bool `json:"pass"`
}

func MoveAt(x, y int) Move {
	return Move{X: x, Y: y}
}

func PassMove() Move {
	return Move{Pass: true}
}

// InRange reports whether the move's coordinate lies on a board of the given
// size. Passes are always in range.
func (m Move) InRange(boardSize int) bool {
	if m.Pass {
		return true
	}
	return m.X >= 0 && m.X < boardSize && m.Y >= 0 && m.Y < boardSize
}

func (m Move) String() string {
	if m.Pass {
		return PassToken
	}
	return fmt.Sprintf("(%d,%d)", m.X, m.Y)
}

func IsPassToken(token string) bool {
	return strings.EqualFold(token, PassToken)
}
