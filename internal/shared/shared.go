// package shared defines helpers used across the sync daemon
package shared

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// SetLogLevel parses a level name ("debug", "info", "warn", "error") and applies it to the given [log.Logger].
//
// Unknown names leave the level unchanged.
func SetLogLevel(l *log.Logger, name string) {
	if name == "" {
		return
	}
	level, err := log.ParseLevel(strings.ToLower(name))
	if err != nil {
		l.Warnf("unknown log level %q, keeping current level", name)
		return
	}
	l.SetLevel(level)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// CycleID returns a short correlation token used to tag a single sync cycle in log output.
func CycleID() string {
	return GenerateID()[:8]
}
