package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the daemon configuration loaded from a TOML file.
type Config struct {
	PlaylistDirectory string `toml:"playlist_directory"`
	DatabasePath      string `toml:"database_path"`
	MediaDirectory    string `toml:"media_directory"`
	CacheFile         string `toml:"cache_file"`
	BackupDirectory   string `toml:"backup_directory"`
	BackupRetention   int    `toml:"backup_retention"`

	Monitoring MonitoringConfig `toml:"monitoring"`
	Database   DatabaseConfig   `toml:"database"`
	Logging    LoggingConfig    `toml:"logging"`
}

// MonitoringConfig contains file-watching and parser retry settings.
// Delays are expressed in seconds to keep the file format compatible with
// configs written for earlier releases.
type MonitoringConfig struct {
	DebounceDelay float64 `toml:"debounce_delay"`
	MaxRetries    int     `toml:"max_retries"`
	RetryDelay    float64 `toml:"retry_delay"`
}

// DebounceWindow returns the debounce delay as a [time.Duration].
func (m MonitoringConfig) DebounceWindow() time.Duration {
	return time.Duration(m.DebounceDelay * float64(time.Second))
}

// RetryInterval returns the parser retry delay as a [time.Duration].
func (m MonitoringConfig) RetryInterval() time.Duration {
	return time.Duration(m.RetryDelay * float64(time.Second))
}

// DatabaseConfig contains connection pool settings for the catalog database.
type DatabaseConfig struct {
	MaxOpenConns int `toml:"max_open_conns"`
	MaxIdleConns int `toml:"max_idle_conns"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ExpandPath resolves a leading ~ against the current user's home directory
// and returns an absolute path.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// Paths holds the fully resolved filesystem locations derived from a Config.
type Paths struct {
	PlaylistDir string
	Database    string
	MediaDir    string
	CacheFile   string
	BackupDir   string
}

// ResolvePaths expands and absolutizes every path option in the config.
//
// The playlist directory and database path are expanded in place. The cache
// file and backup directory are resolved relative to the directory containing
// the config file when they are not absolute, so that a daemon launched from
// anywhere keeps its state next to its config. MediaDir falls back to the
// playlist directory when media_directory is unset.
func (c *Config) ResolvePaths(configPath string) Paths {
	configDir := filepath.Dir(ExpandPath(configPath))

	rel := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" {
			return configDir
		}
		if strings.HasPrefix(p, "~") || filepath.IsAbs(p) {
			return ExpandPath(p)
		}
		return filepath.Join(configDir, p)
	}

	paths := Paths{
		PlaylistDir: ExpandPath(c.PlaylistDirectory),
		Database:    ExpandPath(c.DatabasePath),
		CacheFile:   rel(c.CacheFile),
		BackupDir:   rel(c.BackupDirectory),
	}

	if strings.TrimSpace(c.MediaDirectory) != "" {
		paths.MediaDir = ExpandPath(c.MediaDirectory)
	} else {
		paths.MediaDir = paths.PlaylistDir
	}

	return paths
}
