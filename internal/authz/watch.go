package authz

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch logs every edit of the allow-list files together with the resulting
// list sizes and any entry that does not look like a Discord user ID. Checks
// never read from the watcher; it only makes edits visible in the logs.
func (l *Lists) Watch(ctx context.Context, log zerolog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	// Editors usually replace files, so watch the parent directories.
	watched := map[string]bool{}
	for _, p := range []string{l.PlayersPath, l.SkippersPath} {
		dir := filepath.Dir(filepath.Clean(p))
		if watched[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %q: %w", dir, err)
		}
		watched[dir] = true
	}

	l.report(log)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !l.isListFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("allow-list changed")
			l.report(log)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("allow-list watcher error")
		}
	}
}

func (l *Lists) isListFile(name string) bool {
	name = filepath.Clean(name)
	return name == filepath.Clean(l.PlayersPath) || name == filepath.Clean(l.SkippersPath)
}

func (l *Lists) report(log zerolog.Logger) {
	sets, err := l.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load allow-lists")
		return
	}
	for _, id := range Invalid(sets) {
		log.Warn().Str("id", id).Msg("allow-list entry is not a Discord user ID")
	}
	log.Info().Int("players", len(sets.Players)).Int("skippers", len(sets.Skippers)).Msg("allow-lists loaded")
}

// Invalid returns entries of either list that are not numeric snowflakes.
func Invalid(sets Sets) []string {
	var bad []string
	for _, set := range []Set{sets.Players, sets.Skippers} {
		for id := range set {
			if _, err := strconv.ParseUint(id, 10, 64); err != nil {
				bad = append(bad, id)
			}
		}
	}
	return bad
}
