package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Startup validation errors. These terminate the process before any
	// database write happens.
	ErrMissingPlaylistDir  = fmt.Errorf("playlist directory does not exist")
	ErrMissingDatabase     = fmt.Errorf("catalog database does not exist")
	ErrUnsupportedSchema   = fmt.Errorf("unsupported database schema")
	ErrMissingSchemaMarker = fmt.Errorf("schema version marker not found")

	// Sync errors
	ErrBackupFailed     = fmt.Errorf("database backup failed")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
)
