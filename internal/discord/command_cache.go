package discord

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// commandCache remembers the hash of every slash command last pushed to a
// guild so unchanged definitions are not re-sent on each start.
type commandCache struct {
	dir string
}

func newCommandCache(dir string) *commandCache {
	if dir == "" {
		dir = filepath.Join("data", "commands")
	}
	return &commandCache{dir: dir}
}

// path returns the path to the guild command cache
func (c *commandCache) path(guildID string) string {
	return filepath.Join(c.dir, guildID+".json")
}

// load loads the guild command cache. A missing or corrupt file is empty.
func (c *commandCache) load(guildID string) map[string]string {
	data := make(map[string]string)
	file, err := os.ReadFile(c.path(guildID))
	if err == nil {
		_ = json.Unmarshal(file, &data)
	}
	return data
}

// save saves the guild command cache
func (c *commandCache) save(guildID string, hashes map[string]string) error {
	path := c.path(guildID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(hashes, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
