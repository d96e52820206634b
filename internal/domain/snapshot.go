package domain

// Stone is the state of a single intersection.
type Stone string

const (
	Empty      Stone = "empty"
	BlackStone Stone = "black"
	WhiteStone Stone = "white"
)

// Snapshot is a fully reconstructed board state. It is derived by replaying
// the session's history through the rules engine and is never persisted.
type Snapshot struct {
	Size    int
	Grid    [][]Stone // indexed [y][x]
	Active  Player
	Passive Player
	Ended   bool
}

// EndGameResult is the outcome once both players have passed. Margin is the
// winning margin reported by the engine; Winners is empty when no winner
// could be determined.
type EndGameResult struct {
	Margin  float64
	Winners []Player
}

// Equal reports whether two snapshots describe the same board position and
// turn state.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s.Size != other.Size || s.Ended != other.Ended {
		return false
	}
	if s.Active != other.Active || s.Passive != other.Passive {
		return false
	}
	for y := range s.Grid {
		for x := range s.Grid[y] {
			if s.Grid[y][x] != other.Grid[y][x] {
				return false
			}
		}
	}
	return true
}
