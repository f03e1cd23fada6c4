// Package authz answers who may queue and who may skip audio. The allow-lists
// live in flat files with one user ID per line and are re-read on every
// check, so edits take effect without a restart.
package authz

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

type Set map[string]struct{}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sets is a point-in-time read of both allow-lists.
type Sets struct {
	Players  Set
	Skippers Set
}

// CanPlay reports whether id may queue audio. Skippers may always play.
func (s Sets) CanPlay(id string) bool {
	return s.Players.Has(id) || s.Skippers.Has(id)
}

func (s Sets) CanSkip(id string) bool {
	return s.Skippers.Has(id)
}

type Lists struct {
	PlayersPath  string
	SkippersPath string
}

func New(playersPath, skippersPath string) *Lists {
	return &Lists{PlayersPath: playersPath, SkippersPath: skippersPath}
}

// Load reads both files. A missing file is an empty list.
func (l *Lists) Load() (Sets, error) {
	players, err := readSet(l.PlayersPath)
	if err != nil {
		return Sets{}, err
	}
	skippers, err := readSet(l.SkippersPath)
	if err != nil {
		return Sets{}, err
	}
	return Sets{Players: players, Skippers: skippers}, nil
}

func (l *Lists) CanPlay(id string) (bool, error) {
	sets, err := l.Load()
	if err != nil {
		return false, err
	}
	return sets.CanPlay(id), nil
}

func (l *Lists) CanSkip(id string) (bool, error) {
	skippers, err := readSet(l.SkippersPath)
	if err != nil {
		return false, err
	}
	return skippers.Has(id), nil
}

func readSet(path string) (Set, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open allow-list %q: %w", path, err)
	}
	defer f.Close()

	set, err := parseSet(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read allow-list %q: %w", path, err)
	}
	return set, nil
}

// parseSet reads one ID per line. Blank lines and lines starting with '#'
// are skipped, and anything after an inline '#' is dropped.
func parseSet(r io.Reader) (Set, error) {
	set := Set{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, _, _ := strings.Cut(line, "#")
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return set, scanner.Err()
}
