package cache

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestCache(t *testing.T) {
	t.Run("NeedsSyncForUnknownPlaylist", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "Favorites.m3u8")
		if err := os.WriteFile(path, []byte("a.mp3\n"), 0644); err != nil {
			t.Fatalf("failed to write playlist: %v", err)
		}

		c := Load(filepath.Join(dir, "cache.json"), testLogger())
		if !c.NeedsSync(path) {
			t.Error("never-seen playlist should need sync")
		}
	})

	t.Run("RecordSyncedGatesUnmodifiedFile", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "Favorites.m3u8")
		if err := os.WriteFile(path, []byte("a.mp3\n"), 0644); err != nil {
			t.Fatalf("failed to write playlist: %v", err)
		}

		c := Load(filepath.Join(dir, "cache.json"), testLogger())

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("failed to stat playlist: %v", err)
		}
		c.RecordSynced("Favorites", info.ModTime())

		if c.NeedsSync(path) {
			t.Error("unmodified playlist should not need sync after RecordSynced")
		}
	})

	t.Run("NeedsSyncAfterModification", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "Favorites.m3u8")
		if err := os.WriteFile(path, []byte("a.mp3\n"), 0644); err != nil {
			t.Fatalf("failed to write playlist: %v", err)
		}

		c := Load(filepath.Join(dir, "cache.json"), testLogger())

		info, _ := os.Stat(path)
		c.RecordSynced("Favorites", info.ModTime())

		// Bump the mtime past the recorded value.
		later := info.ModTime().Add(2 * time.Second)
		if err := os.Chtimes(path, later, later); err != nil {
			t.Fatalf("failed to bump mtime: %v", err)
		}

		if !c.NeedsSync(path) {
			t.Error("modified playlist should need sync")
		}
	})

	t.Run("NeedsSyncFailsOpenOnStatError", func(t *testing.T) {
		dir := t.TempDir()
		c := Load(filepath.Join(dir, "cache.json"), testLogger())

		if !c.NeedsSync(filepath.Join(dir, "gone.m3u8")) {
			t.Error("unreadable playlist metadata should default to needing sync")
		}
	})

	t.Run("PersistsAcrossLoads", func(t *testing.T) {
		dir := t.TempDir()
		cacheFile := filepath.Join(dir, "cache.json")

		c := Load(cacheFile, testLogger())
		synced := time.Now()
		c.RecordSynced("Road Trip", synced)

		reloaded := Load(cacheFile, testLogger())
		got, ok := reloaded.LastModified("Road Trip")
		if !ok {
			t.Fatal("expected persisted entry for Road Trip")
		}

		want := float64(synced.UnixNano()) / float64(time.Second)
		if got != want {
			t.Errorf("expected persisted mtime %v, got %v", want, got)
		}
	})

	t.Run("ToleratesCorruptCacheFile", func(t *testing.T) {
		dir := t.TempDir()
		cacheFile := filepath.Join(dir, "cache.json")
		if err := os.WriteFile(cacheFile, []byte("{not json"), 0644); err != nil {
			t.Fatalf("failed to write corrupt cache: %v", err)
		}

		c := Load(cacheFile, testLogger())
		if _, ok := c.LastModified("anything"); ok {
			t.Error("corrupt cache should start empty")
		}
	})
}
