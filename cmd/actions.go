package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/strawsync/internal/cache"
	"github.com/desertthunder/strawsync/internal/shared"
	"github.com/desertthunder/strawsync/internal/watcher"
)

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	summaryCountStyle = lipgloss.NewStyle().Bold(true)
)

// Run starts the daemon: schema check, backup, reconciliation pass, then the
// watch loop until an interrupt arrives.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("starting strawberry playlist synchronisation daemon")

	env, err := r.setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	w, err := watcher.New(".m3u8")
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch before the reconciliation pass so edits made during it queue up
	// instead of getting lost; they are consumed only once the loop starts.
	if err := w.Start(env.paths.PlaylistDir); err != nil {
		return err
	}
	defer func() {
		if err := w.Stop(); err != nil {
			r.logger.Warnf("failed to stop watcher: %v", err)
		}
		r.logger.Info("strawberry playlist synchronisation daemon stopped")
	}()

	env.coord.Backup()

	r.logger.Info("checking playlists for changes since last sync...")
	env.coord.ReconcileAll()

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Infof("monitoring playlist files in: %s", env.paths.PlaylistDir)
	return env.coord.Run(signalCtx, w)
}

// Sync performs a single reconciliation pass and prints a summary.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	env, err := r.setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	env.coord.Backup()

	var synced, skipped int
	if cmd.Bool("all") {
		synced = env.coord.SyncAll()
	} else {
		synced, skipped = env.coord.ReconcileAll()
	}

	r.writePlainln("%s", summaryTitleStyle.Render("Playlist synchronisation complete"))
	r.writePlainln("  synced:  %s", summaryCountStyle.Render(fmt.Sprintf("%d", synced)))
	r.writePlainln("  skipped: %s", summaryCountStyle.Render(fmt.Sprintf("%d", skipped)))

	return nil
}

// Backup creates a database backup on demand.
func (r *Runner) Backup(ctx context.Context, cmd *cli.Command) error {
	config, paths := r.loadConfig(cmd)

	if _, err := os.Stat(paths.Database); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrMissingDatabase, paths.Database)
	}

	path, err := cache.CreateBackup(paths.Database, paths.BackupDir, config.BackupRetention, r.logger)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrBackupFailed, err)
	}

	r.writePlainln("backup created: %s", path)
	return nil
}

// ConfigCreate writes a default configuration file, refusing to overwrite an
// existing one.
func (r *Runner) ConfigCreate(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.writePlainln("configuration file created: %s", configPath)
	r.writePlainln("please review and edit it to match your setup:")
	r.writePlainln("  - playlist_directory: path to your playlist directory")
	r.writePlainln("  - database_path: path to Strawberry's database file")
	r.writePlainln("  - other settings can be left as defaults")
	return nil
}
