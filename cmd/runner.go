package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/strawsync/internal/cache"
	"github.com/desertthunder/strawsync/internal/catalog"
	"github.com/desertthunder/strawsync/internal/playlist"
	"github.com/desertthunder/strawsync/internal/shared"
	"github.com/desertthunder/strawsync/internal/syncer"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, syncCommand, backupCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// environment bundles everything a sync pass needs: resolved config, an open
// database, the schema-validated store and a coordinator.
type environment struct {
	config *shared.Config
	paths  shared.Paths
	db     *sql.DB
	coord  *syncer.Coordinator
}

func (e *environment) Close() {
	if e.db != nil {
		e.db.Close()
	}
}

// loadConfig reads the config file named by the command's --config flag,
// falling back to defaults when the file is absent.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, shared.Paths) {
	configPath := cmd.String("config")

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			r.logger.Warnf("failed to load %s, using defaults: %v", configPath, err)
		} else {
			config = loaded
			r.logger.Infof("using configuration file: %s", configPath)
		}
	} else {
		r.logger.Infof("config file not found (%s), using defaults; run 'strawsync config create' to create one", configPath)
	}

	shared.SetLogLevel(r.logger, config.Logging.Level)

	return config, config.ResolvePaths(configPath)
}

// setup validates the startup environment and wires the coordinator.
//
// A missing playlist directory or catalog database, or an incompatible
// schema version, returns an error that terminates the process with a
// remediation hint.
func (r *Runner) setup(cmd *cli.Command) (*environment, error) {
	config, paths := r.loadConfig(cmd)

	r.logger.Infof("playlist directory: %s", paths.PlaylistDir)
	r.logger.Infof("database: %s", paths.Database)

	if info, err := os.Stat(paths.PlaylistDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", shared.ErrMissingPlaylistDir, paths.PlaylistDir)
	}

	if _, err := os.Stat(paths.Database); err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrMissingDatabase, paths.Database)
	}

	db, err := shared.NewDatabase(paths.Database)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	store, err := catalog.NewStore(db, paths.MediaDir, cmd.Bool("ignore-schema-version"), r.logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w\nbypassing this check could cause data corruption or loss; use --ignore-schema-version to proceed at your own risk", err)
	}

	parser := playlist.NewParser(config.Monitoring.MaxRetries, config.Monitoring.RetryInterval(), r.logger)
	playlistCache := cache.Load(paths.CacheFile, r.logger)

	coord := syncer.New(syncer.Config{
		PlaylistDir:     paths.PlaylistDir,
		DatabasePath:    paths.Database,
		BackupDir:       paths.BackupDir,
		BackupRetention: config.BackupRetention,
		DebounceWindow:  config.Monitoring.DebounceWindow(),
	}, store, parser, playlistCache, r.logger)

	return &environment{config: config, paths: paths, db: db, coord: coord}, nil
}
