package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/atarigo/goban-server/internal/domain"
)

func writeLevelsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "levels.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write levels file: %v", err)
	}
	return path
}

func TestDefaultLevels(t *testing.T) {
	l := DefaultLevels()
	if l.For(domain.DifficultyEasy) != 1 {
		t.Fatalf("easy = %d, want 1", l.For(domain.DifficultyEasy))
	}
	if l.For(domain.DifficultyMedium) != 10 {
		t.Fatalf("medium = %d, want 10", l.For(domain.DifficultyMedium))
	}
	if l.For(domain.DifficultyHard) != 20 {
		t.Fatalf("hard = %d, want 20", l.For(domain.DifficultyHard))
	}
	if l.For("") != 10 {
		t.Fatalf("unset difficulty = %d, want default 10", l.For(""))
	}
	if l.For("extreme") != 10 {
		t.Fatalf("unknown difficulty = %d, want default 10", l.For("extreme"))
	}
}

func TestLoadLevels_PartialOverride(t *testing.T) {
	path := writeLevelsFile(t, "easy: 3\nhard: 15\n")
	l, err := LoadLevels(path)
	if err != nil {
		t.Fatalf("LoadLevels: %v", err)
	}
	if l.Easy != 3 || l.Hard != 15 {
		t.Fatalf("overrides not applied: %+v", l)
	}
	if l.Medium != 10 || l.Default != 10 {
		t.Fatalf("absent keys must keep defaults: %+v", l)
	}
}

func TestLoadLevels_Rejects(t *testing.T) {
	if _, err := LoadLevels(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := LoadLevels(writeLevelsFile(t, "easy: 0\n")); err == nil {
		t.Fatal("expected error for level below range")
	}
	if _, err := LoadLevels(writeLevelsFile(t, "hard: 21\n")); err == nil {
		t.Fatal("expected error for level above range")
	}
	if _, err := LoadLevels(writeLevelsFile(t, "easy: [\n")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
