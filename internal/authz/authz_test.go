package authz

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeList(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func newLists(t *testing.T) *Lists {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "PLAY_USERS"), filepath.Join(dir, "SKIP_USERS"))
}

func TestParseSet(t *testing.T) {
	set, err := parseSet(strings.NewReader("111\n\n  222  \n# comment\n333 # inline\n"))
	if err != nil {
		t.Fatalf("parseSet error: %v", err)
	}

	if len(set) != 3 {
		t.Fatalf("Expected 3 ids, got %d: %v", len(set), set)
	}
	for _, id := range []string{"111", "222", "333"} {
		if !set.Has(id) {
			t.Errorf("Expected set to contain %s", id)
		}
	}
}

func TestCanPlay(t *testing.T) {
	l := newLists(t)
	writeList(t, l.PlayersPath, "1")
	writeList(t, l.SkippersPath, "2")

	tests := []struct {
		id   string
		want bool
	}{
		{"1", true},
		{"2", true},
		{"3", false},
	}
	for _, tt := range tests {
		got, err := l.CanPlay(tt.id)
		if err != nil {
			t.Fatalf("CanPlay(%s) error: %v", tt.id, err)
		}
		if got != tt.want {
			t.Errorf("CanPlay(%s) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestCanSkip(t *testing.T) {
	l := newLists(t)
	writeList(t, l.PlayersPath, "1")
	writeList(t, l.SkippersPath, "2")

	if ok, _ := l.CanSkip("1"); ok {
		t.Error("Expected player-only identity to be denied skip")
	}
	if ok, _ := l.CanSkip("2"); !ok {
		t.Error("Expected skipper to be allowed to skip")
	}
}

func TestReadThrough(t *testing.T) {
	l := newLists(t)
	writeList(t, l.PlayersPath, "1")

	if ok, _ := l.CanPlay("9"); ok {
		t.Fatal("Expected 9 to be denied before the edit")
	}

	writeList(t, l.PlayersPath, "1", "9")

	if ok, _ := l.CanPlay("9"); !ok {
		t.Error("Expected edit of the allow-list to take effect without reload")
	}
}

func TestMissingFilesAreEmpty(t *testing.T) {
	l := newLists(t)

	sets, err := l.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(sets.Players) != 0 || len(sets.Skippers) != 0 {
		t.Errorf("Expected empty sets, got %v", sets)
	}
}

func TestUnreadableFile(t *testing.T) {
	l := newLists(t)
	// A directory in place of the file cannot be read as a list.
	if err := os.Mkdir(l.PlayersPath, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	if _, err := l.CanPlay("1"); err == nil {
		t.Error("Expected error for unreadable allow-list")
	}
}

func TestInvalid(t *testing.T) {
	sets := Sets{
		Players:  Set{"123456789012345678": {}, "bob": {}},
		Skippers: Set{"42": {}},
	}

	bad := Invalid(sets)
	if len(bad) != 1 || bad[0] != "bob" {
		t.Errorf("Expected [bob], got %v", bad)
	}
}
