package gtp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atarigo/goban-server/internal/domain"
)

// GTP coordinates are a column letter (skipping the ambiguous "I") plus a
// one-based row number counted from the bottom of the board. Internal
// coordinates are zero-based with y counted from the top, so the row is
// vertically flipped.

// FormatMove encodes a structured move into the engine's text form.
func FormatMove(m domain.Move, boardSize int) (string, error) {
	if m.Pass {
		return domain.PassToken, nil
	}
	if !m.InRange(boardSize) {
		return "", fmt.Errorf("coordinate (%d,%d) outside board of size %d", m.X, m.Y, boardSize)
	}
	col := rune('A' + m.X)
	if col >= 'I' {
		col++
	}
	row := boardSize - m.Y
	return fmt.Sprintf("%c%d", col, row), nil
}

// ParseMove decodes an engine coordinate token, case-insensitively. It is the
// exact inverse of FormatMove for every valid coordinate.
func ParseMove(token string, boardSize int) (domain.Move, error) {
	token = strings.ToUpper(strings.TrimSpace(token))
	if token == domain.PassToken {
		return domain.PassMove(), nil
	}
	if len(token) < 2 {
		return domain.Move{}, fmt.Errorf("malformed coordinate %q", token)
	}
	col := rune(token[0])
	if col < 'A' || col > 'Z' || col == 'I' {
		return domain.Move{}, fmt.Errorf("malformed coordinate %q", token)
	}
	row, err := strconv.Atoi(token[1:])
	if err != nil {
		return domain.Move{}, fmt.Errorf("malformed coordinate %q", token)
	}
	x := int(col - 'A')
	if col > 'I' {
		x--
	}
	y := boardSize - row
	mv := domain.MoveAt(x, y)
	if !mv.InRange(boardSize) {
		return domain.Move{}, fmt.Errorf("coordinate %q outside board of size %d", token, boardSize)
	}
	return mv, nil
}
