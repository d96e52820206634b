package engine

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/atarigo/goban-server/internal/domain"
)

// Engine strength per difficulty, in the engine's own 1..20 scale.
const (
	levelEasy    = 1
	levelMedium  = 10
	levelHard    = 20
	levelDefault = levelMedium
)

// Levels maps bot difficulties to engine strength levels. The zero value is
// unusable; start from DefaultLevels.
type Levels struct {
	Easy    int `yaml:"easy"`
	Medium  int `yaml:"medium"`
	Hard    int `yaml:"hard"`
	Default int `yaml:"default"`
}

func DefaultLevels() Levels {
	return Levels{
		Easy:    levelEasy,
		Medium:  levelMedium,
		Hard:    levelHard,
		Default: levelDefault,
	}
}

// LoadLevels reads a YAML override file on top of the defaults. Absent keys
// keep their default value.
func LoadLevels(path string) (Levels, error) {
	levels := DefaultLevels()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Levels{}, fmt.Errorf("read levels file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &levels); err != nil {
		return Levels{}, fmt.Errorf("parse levels file: %w", err)
	}
	if err := levels.validate(); err != nil {
		return Levels{}, err
	}
	return levels, nil
}

// For returns the engine level for a difficulty. An absent or unknown
// difficulty maps to the default level.
func (l Levels) For(d domain.Difficulty) int {
	switch d {
	case domain.DifficultyEasy:
		return l.Easy
	case domain.DifficultyMedium:
		return l.Medium
	case domain.DifficultyHard:
		return l.Hard
	default:
		return l.Default
	}
}

func (l Levels) validate() error {
	for name, v := range map[string]int{
		"easy":    l.Easy,
		"medium":  l.Medium,
		"hard":    l.Hard,
		"default": l.Default,
	} {
		if v < 1 || v > 20 {
			return fmt.Errorf("level %s=%d out of range 1-20", name, v)
		}
	}
	return nil
}
