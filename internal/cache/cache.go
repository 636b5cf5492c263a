// Package cache tracks which playlists have already been synchronised and
// protects the catalog database with startup backups.
//
// Both concerns guard against redundant or unsafe work at the same lifecycle
// points: the cache skips unchanged playlists during the startup
// reconciliation pass, and the backup preserves the database before the
// daemon starts writing to it.
package cache

import (
	"encoding/json"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/strawsync/internal/playlist"
)

// Entry records the last-synced modification time for one playlist.
// Timestamps are stored as fractional unix seconds so cache files written by
// earlier releases stay readable.
type Entry struct {
	LastModified float64 `json:"last_modified"`
}

// fileFormat is the on-disk shape of the cache file.
type fileFormat struct {
	Playlists map[string]Entry `json:"playlists"`
}

// Cache maps playlist names to their last-synced modification timestamps.
// It owns the cache file exclusively and rewrites it wholesale on every
// update so a crash never loses more than the in-flight entry.
type Cache struct {
	path    string
	entries map[string]Entry
	logger  *log.Logger
}

// Load reads the cache file at path, starting empty when the file is missing
// or unreadable. A corrupt cache only costs one redundant reconciliation
// pass, so load failures are logged rather than surfaced.
func Load(path string, logger *log.Logger) *Cache {
	c := &Cache{path: path, entries: make(map[string]Entry), logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("failed to load cache file: %v", err)
		}
		return c
	}

	var stored fileFormat
	if err := json.Unmarshal(data, &stored); err != nil {
		logger.Warnf("failed to parse cache file %s: %v", path, err)
		return c
	}

	if stored.Playlists != nil {
		c.entries = stored.Playlists
	}
	logger.Infof("loaded cache for %d playlists", len(c.entries))

	return c
}

// LastModified returns the recorded modification time for a playlist name.
func (c *Cache) LastModified(name string) (float64, bool) {
	entry, ok := c.entries[name]
	return entry.LastModified, ok
}

// NeedsSync reports whether the playlist file at path must be resynchronised:
// true when the playlist has never been synced, when its modification time is
// strictly newer than the recorded one, or when the file cannot be inspected
// (fail open toward re-syncing, never silently skip).
func (c *Cache) NeedsSync(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		c.logger.Warnf("failed to check modification time for %s: %v", path, err)
		return true
	}

	name := playlist.Name(path)
	recorded, ok := c.entries[name]
	if !ok {
		c.logger.Infof("playlist not previously synced: %s", name)
		return true
	}

	if mtimeSeconds(info.ModTime()) > recorded.LastModified {
		c.logger.Infof("playlist modified since last sync: %s", name)
		return true
	}

	c.logger.Debugf("playlist unchanged since last sync: %s", name)
	return false
}

// RecordSynced overwrites the stored timestamp for name and persists the
// whole cache immediately. Persistence failures are logged; the in-memory
// entry still reflects the update for the remainder of the run.
func (c *Cache) RecordSynced(name string, modTime time.Time) {
	c.entries[name] = Entry{LastModified: mtimeSeconds(modTime)}

	if err := c.save(); err != nil {
		c.logger.Errorf("failed to save cache file: %v", err)
	}
}

func (c *Cache) save() error {
	data, err := json.MarshalIndent(fileFormat{Playlists: c.entries}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}

func mtimeSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
