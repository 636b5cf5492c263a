package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/strawsync/internal/catalog"
	"github.com/desertthunder/strawsync/internal/shared"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// newApp builds the CLI exactly as main() does, with captured output.
func newApp(output io.Writer) *cli.Command {
	runner := NewRunner(RunnerOpts{Logger: testLogger(), Output: output})
	return &cli.Command{
		Name:     "strawsync",
		Commands: runner.register(),
	}
}

// setupEnvironment creates a playlist directory, a catalog database at a
// supported schema version, and a config file pointing at both.
func setupEnvironment(t *testing.T) (configPath, playlistDir, dbPath string) {
	t.Helper()

	dir := t.TempDir()
	playlistDir = filepath.Join(dir, "playlists")
	if err := os.MkdirAll(playlistDir, 0755); err != nil {
		t.Fatalf("failed to create playlist dir: %v", err)
	}

	dbPath = filepath.Join(dir, "strawberry.db")
	db, err := shared.NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	defer db.Close()

	statements := []string{
		`CREATE TABLE schema_version (version INTEGER NOT NULL)`,
		`CREATE TABLE songs (url TEXT NOT NULL, title TEXT)`,
		`CREATE TABLE playlists (name TEXT NOT NULL, last_played INTEGER, ui_order INTEGER, is_favorite INTEGER)`,
		`CREATE TABLE playlist_items (
			playlist INTEGER, type INTEGER, collection_id INTEGER, track INTEGER,
			disc INTEGER, year INTEGER, originalyear INTEGER, compilation INTEGER,
			beginning INTEGER, length INTEGER, bitrate INTEGER, samplerate INTEGER,
			bitdepth INTEGER, source INTEGER, directory_id INTEGER, filetype INTEGER,
			filesize INTEGER, mtime INTEGER, ctime INTEGER, unavailable INTEGER,
			playcount INTEGER, skipcount INTEGER, lastplayed INTEGER, lastseen INTEGER,
			compilation_detected INTEGER, compilation_on INTEGER, compilation_off INTEGER,
			compilation_effective INTEGER, effective_originalyear INTEGER, rating INTEGER,
			art_embedded INTEGER, art_unset INTEGER
		)`,
		`INSERT INTO schema_version (version) VALUES (21)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}

	configPath = filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`playlist_directory = %q
database_path = %q
cache_file = "cache.json"
backup_directory = "backups"
backup_retention = 3

[monitoring]
debounce_delay = 0.1
max_retries = 0
retry_delay = 0.01
`, playlistDir, dbPath)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	return configPath, playlistDir, dbPath
}

func addSong(t *testing.T, dbPath, absPath string) {
	t.Helper()
	db, err := shared.NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("INSERT INTO songs (url, title) VALUES (?, ?)", catalog.FileURI(absPath), filepath.Base(absPath)); err != nil {
		t.Fatalf("failed to insert song: %v", err)
	}
}

func TestNewRunner(t *testing.T) {
	t.Run("with nil logger uses default", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.logger == nil {
			t.Error("expected default logger to be set")
		}
	})

	t.Run("with nil output uses stdout", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.output != os.Stdout {
			t.Error("expected output to default to os.Stdout")
		}
	})
}

func TestConfigCreateCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	output := &bytes.Buffer{}
	app := newApp(output)

	if err := app.Run(context.Background(), []string{"strawsync", "config", "create", "-c", configPath}); err != nil {
		t.Fatalf("config create failed: %v", err)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("config file should exist: %v", err)
	}

	// A second invocation refuses to overwrite.
	if err := app.Run(context.Background(), []string{"strawsync", "config", "create", "-c", configPath}); err == nil {
		t.Error("expected error when config file already exists")
	}
}

func TestSyncCommand(t *testing.T) {
	configPath, playlistDir, dbPath := setupEnvironment(t)
	addSong(t, dbPath, filepath.Join(playlistDir, "music/a.flac"))
	if err := os.WriteFile(filepath.Join(playlistDir, "Mix.m3u8"), []byte("music/a.flac\n"), 0644); err != nil {
		t.Fatalf("failed to write playlist: %v", err)
	}

	output := &bytes.Buffer{}
	app := newApp(output)

	if err := app.Run(context.Background(), []string{"strawsync", "sync", "-c", configPath}); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if !strings.Contains(output.String(), "synced") {
		t.Errorf("expected sync summary in output, got %q", output.String())
	}
}

func TestSyncFailsWithoutPlaylistDirectory(t *testing.T) {
	configPath, playlistDir, _ := setupEnvironment(t)
	if err := os.RemoveAll(playlistDir); err != nil {
		t.Fatalf("failed to remove playlist dir: %v", err)
	}

	app := newApp(&bytes.Buffer{})
	err := app.Run(context.Background(), []string{"strawsync", "sync", "-c", configPath})
	if !errors.Is(err, shared.ErrMissingPlaylistDir) {
		t.Errorf("expected ErrMissingPlaylistDir, got %v", err)
	}
}

func TestSyncFailsWithoutDatabase(t *testing.T) {
	configPath, _, dbPath := setupEnvironment(t)
	if err := os.Remove(dbPath); err != nil {
		t.Fatalf("failed to remove database: %v", err)
	}

	app := newApp(&bytes.Buffer{})
	err := app.Run(context.Background(), []string{"strawsync", "sync", "-c", configPath})
	if !errors.Is(err, shared.ErrMissingDatabase) {
		t.Errorf("expected ErrMissingDatabase, got %v", err)
	}
}

func TestSchemaGateAndBypassFlag(t *testing.T) {
	configPath, _, dbPath := setupEnvironment(t)

	db, err := shared.NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("failed to downgrade schema: %v", err)
	}
	db.Close()

	app := newApp(&bytes.Buffer{})

	err = app.Run(context.Background(), []string{"strawsync", "sync", "-c", configPath})
	if !errors.Is(err, shared.ErrUnsupportedSchema) {
		t.Fatalf("expected ErrUnsupportedSchema, got %v", err)
	}
	if !strings.Contains(err.Error(), "--ignore-schema-version") {
		t.Errorf("fatal schema error should name the bypass flag, got %q", err.Error())
	}

	if err := app.Run(context.Background(), []string{"strawsync", "sync", "-c", configPath, "--ignore-schema-version"}); err != nil {
		t.Errorf("bypass flag should permit sync, got %v", err)
	}
}

func TestBackupCommand(t *testing.T) {
	configPath, _, _ := setupEnvironment(t)

	output := &bytes.Buffer{}
	app := newApp(output)

	if err := app.Run(context.Background(), []string{"strawsync", "backup", "-c", configPath}); err != nil {
		t.Fatalf("backup failed: %v", err)
	}

	if !strings.Contains(output.String(), "before_first_use") {
		t.Errorf("expected baseline backup path in output, got %q", output.String())
	}
}
