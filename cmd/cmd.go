// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func ignoreSchemaFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "ignore-schema-version",
		Usage: "Bypass the database schema version check (WARNING: may cause data corruption or loss!)",
	}
}

// runCommand starts the watch daemon.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Watch the playlist directory and sync changes into Strawberry's database",
		Flags:  []cli.Flag{configFlag(), ignoreSchemaFlag()},
		Action: r.Run,
	}
}

// syncCommand performs a one-shot reconciliation pass without watching.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run a single reconciliation pass and exit",
		Flags: []cli.Flag{
			configFlag(),
			ignoreSchemaFlag(),
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Sync every playlist, ignoring the change cache",
			},
		},
		Action: r.Sync,
	}
}

// backupCommand runs the database backup step on demand.
func backupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "backup",
		Usage:  "Create a backup of Strawberry's database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Backup,
	}
}

// configCommand handles configuration file management.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file commands",
		Commands: []*cli.Command{
			{
				Name:   "create",
				Usage:  "Create a configuration file with default settings",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigCreate,
			},
		},
	}
}
