// Package syncer orchestrates playlist synchronisation.
//
// The Coordinator receives change notifications from the watcher (or an
// explicit reconcile request), debounces event storms, and drives the
// parse → resolve/write → record-synced cycle. Any failure inside a single
// file's cycle is contained here: it is logged with the playlist name and
// never terminates the watch loop or affects other files.
package syncer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/strawsync/internal/cache"
	"github.com/desertthunder/strawsync/internal/catalog"
	"github.com/desertthunder/strawsync/internal/playlist"
	"github.com/desertthunder/strawsync/internal/shared"
	"github.com/desertthunder/strawsync/internal/watcher"
)

// Config holds the coordinator's filesystem locations and timing knobs.
type Config struct {
	PlaylistDir     string
	PlaylistExt     string // defaults to ".m3u8"
	DatabasePath    string
	BackupDir       string
	BackupRetention int
	DebounceWindow  time.Duration
}

// Coordinator drives sync cycles against handles lent to it at construction
// time; it owns neither the cache file nor the database schema.
type Coordinator struct {
	cfg    Config
	store  *catalog.Store
	parser *playlist.Parser
	cache  *cache.Cache
	logger *log.Logger

	// mu serializes event handling so sync cycles never overlap.
	mu sync.Mutex

	// limiters holds one debounce gate per playlist path. Entries are never
	// evicted; the playlist directory is small and long-lived, so unbounded
	// growth stays negligible.
	limiters map[string]*rate.Limiter
}

// New creates a Coordinator. An empty PlaylistExt defaults to ".m3u8".
func New(cfg Config, store *catalog.Store, parser *playlist.Parser, c *cache.Cache, logger *log.Logger) *Coordinator {
	if cfg.PlaylistExt == "" {
		cfg.PlaylistExt = ".m3u8"
	}
	return &Coordinator{
		cfg:      cfg,
		store:    store,
		parser:   parser,
		cache:    c,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Backup copies the catalog database into the backup directory. Failure is
// logged and swallowed: sync proceeds without a backup.
func (c *Coordinator) Backup() {
	c.logger.Info("creating database backup")
	path, err := cache.CreateBackup(c.cfg.DatabasePath, c.cfg.BackupDir, c.cfg.BackupRetention, c.logger)
	if err != nil {
		c.logger.Warnf("failed to create database backup, proceeding with sync anyway: %v", err)
		return
	}
	c.logger.Infof("database backup location: %s", path)
}

// ReconcileAll scans the playlist directory non-recursively and syncs every
// playlist whose file changed since its last recorded sync. Returns how many
// playlists were synced and how many were skipped as unchanged.
func (c *Coordinator) ReconcileAll() (synced, skipped int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.cfg.PlaylistDir)
	if err != nil {
		c.logger.Errorf("failed to list playlist directory: %v", err)
		return 0, 0
	}

	for _, entry := range entries {
		if entry.IsDir() || !c.matchesExt(entry.Name()) {
			continue
		}

		path := filepath.Join(c.cfg.PlaylistDir, entry.Name())
		if !c.cache.NeedsSync(path) {
			c.logger.Debugf("skipping unchanged playlist: %s", entry.Name())
			skipped++
			continue
		}

		c.logger.Infof("initial sync: %s", entry.Name())
		if c.syncFile(path) {
			synced++
		}
	}

	c.logger.Infof("reconciliation complete: %d playlists synced, %d skipped", synced, skipped)
	return synced, skipped
}

// SyncAll syncs every playlist file in the directory regardless of cache
// state. Returns how many playlists were synced.
func (c *Coordinator) SyncAll() (synced int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.cfg.PlaylistDir)
	if err != nil {
		c.logger.Errorf("failed to list playlist directory: %v", err)
		return 0
	}

	for _, entry := range entries {
		if entry.IsDir() || !c.matchesExt(entry.Name()) {
			continue
		}
		if c.syncFile(filepath.Join(c.cfg.PlaylistDir, entry.Name())) {
			synced++
		}
	}

	return synced
}

// HandleEvent applies extension filtering and debouncing, then runs a sync
// cycle for accepted events. Created events are never debounced: the first
// sight of a playlist always syncs.
func (c *Coordinator) HandleEvent(ev watcher.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.matchesExt(ev.Path) {
		return
	}

	if ev.Op == watcher.OpModify && !c.allowModify(ev.Path) {
		c.logger.Debugf("debounced %s event for %s", ev.Op, filepath.Base(ev.Path))
		return
	}

	c.logger.Infof("detected %s of playlist: %s", ev.Op, filepath.Base(ev.Path))
	c.syncFile(ev.Path)
}

// allowModify reports whether a modify event for path falls outside the
// debounce window of the previous accepted event.
func (c *Coordinator) allowModify(path string) bool {
	if c.cfg.DebounceWindow <= 0 {
		return true
	}

	limiter, ok := c.limiters[path]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(c.cfg.DebounceWindow), 1)
		c.limiters[path] = limiter
	}
	return limiter.Allow()
}

// SyncFile runs one explicit sync cycle for path. Returns true when a sync
// was applied and recorded.
func (c *Coordinator) SyncFile(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncFile(path)
}

// syncFile is the shared sync cycle: parse the file, replace the stored
// playlist, and record the file's modification time on success. A zero-track
// parse aborts the cycle without touching storage or cache, so a subsequent
// genuine write retries cleanly. Callers must hold mu.
func (c *Coordinator) syncFile(path string) bool {
	name := playlist.Name(path)
	logger := c.logger.With("playlist", name, "cycle", shared.CycleID())

	refs := c.parser.Parse(path)
	if len(refs) == 0 {
		logger.Warnf("no tracks found in %s, skipping sync", filepath.Base(path))
		return false
	}

	counts, err := c.store.SyncPlaylist(name, refs, path)
	if err != nil {
		logger.Errorf("failed to sync playlist: %v", err)
		return false
	}

	logger.Infof("playlist synchronised: %d tracks added, %d tracks missing", counts.Added, counts.Missing)

	info, err := os.Stat(path)
	if err != nil {
		logger.Warnf("failed to read modification time, cache not updated: %v", err)
		return true
	}
	c.cache.RecordSynced(name, info.ModTime())

	return true
}

// Run consumes watcher events one at a time until ctx is cancelled or the
// watcher's channels close. An in-flight cycle always finishes its current
// transaction before shutdown proceeds.
func (c *Coordinator) Run(ctx context.Context, w *watcher.Watcher) error {
	c.logger.Info("monitoring for changes...")

	events, errs := w.Events(), w.Errors()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("received interrupt signal, shutting down...")
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.HandleEvent(ev)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				c.logger.Warnf("watch error: %v", err)
			}
		}
	}
}

func (c *Coordinator) matchesExt(path string) bool {
	return strings.EqualFold(filepath.Ext(path), c.cfg.PlaylistExt)
}
