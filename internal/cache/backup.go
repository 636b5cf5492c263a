package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	baselineSuffix = "_before_first_use"
	startupInfix   = "_backup_startup_"
)

// CreateBackup copies the catalog database into backupDir before the daemon
// begins writing to it.
//
// The very first backup ever taken is tagged "_before_first_use" and is
// permanently retained as a baseline, exempt from rotation. Every later call
// produces a timestamp-suffixed copy and prunes the oldest timestamped
// backups (by modification time) so that exactly retention of them remain
// after the new one is written.
//
// Success requires the copy to exist and be non-empty. Callers treat a
// returned error as a logged warning, not a fatal condition: sync proceeds
// without a backup.
func CreateBackup(dbPath, backupDir string, retention int, logger *log.Logger) (string, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return "", fmt.Errorf("database file not found: %w", err)
	}

	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	ext := filepath.Ext(dbPath)
	stem := strings.TrimSuffix(filepath.Base(dbPath), ext)

	existing, err := filepath.Glob(filepath.Join(backupDir, "*"+ext))
	if err != nil {
		return "", fmt.Errorf("failed to list existing backups: %w", err)
	}

	var backupPath string
	if len(existing) == 0 {
		backupPath = filepath.Join(backupDir, stem+baselineSuffix+ext)
		logger.Infof("creating initial backup before first use: %s", filepath.Base(backupPath))
	} else {
		timestamp := time.Now().Format("20060102_150405")
		backupPath = filepath.Join(backupDir, stem+startupInfix+timestamp+ext)
		logger.Infof("creating startup backup: %s", filepath.Base(backupPath))

		pruneBackups(backupDir, stem, ext, retention, logger)
	}

	if err := copyFile(dbPath, backupPath); err != nil {
		return "", fmt.Errorf("failed to copy database: %w", err)
	}

	info, err := os.Stat(backupPath)
	if err != nil || info.Size() == 0 {
		return "", fmt.Errorf("backup verification failed for %s", backupPath)
	}

	logger.Infof("database backup created: %s", backupPath)
	return backupPath, nil
}

// pruneBackups deletes the oldest timestamped backups so that retention-1
// remain before a new one is added. The before-first-use baseline never
// matches the startup pattern and is never considered.
func pruneBackups(backupDir, stem, ext string, retention int, logger *log.Logger) {
	pattern := filepath.Join(backupDir, stem+startupInfix+"*"+ext)
	backups, err := filepath.Glob(pattern)
	if err != nil {
		logger.Warnf("failed to list startup backups: %v", err)
		return
	}

	if retention < 1 || len(backups) < retention {
		return
	}

	sort.Slice(backups, func(i, j int) bool {
		return modTime(backups[i]).Before(modTime(backups[j]))
	})

	toDelete := len(backups) - retention + 1
	for _, stale := range backups[:toDelete] {
		if err := os.Remove(stale); err != nil {
			logger.Warnf("failed to remove old backup %s: %v", filepath.Base(stale), err)
			continue
		}
		logger.Infof("removed old backup: %s", filepath.Base(stale))
	}
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
