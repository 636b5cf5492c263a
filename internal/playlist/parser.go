// Package playlist parses M3U8 playlist files into ordered track references.
//
// A track reference is the raw path string written on a non-comment line of
// the playlist. The parser never surfaces errors: when a file cannot be read
// the result is an empty slice and the caller treats the playlist as having
// nothing to sync.
package playlist

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Parser reads M3U8 files with bounded retries for transiently empty reads.
//
// Playlist files are written by external devices in multiple discrete writes,
// so an empty or comment-only file may just mean the writer has not finished
// yet. The parser re-reads up to maxRetries times before accepting an empty
// result as final.
type Parser struct {
	maxRetries int
	retryDelay time.Duration
	logger     *log.Logger
}

// NewParser creates a Parser. Non-positive maxRetries disables retrying and
// non-positive retryDelay falls back to 500ms.
func NewParser(maxRetries int, retryDelay time.Duration, logger *log.Logger) *Parser {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryDelay <= 0 {
		retryDelay = 500 * time.Millisecond
	}
	return &Parser{maxRetries: maxRetries, retryDelay: retryDelay, logger: logger}
}

// Parse extracts track references from the playlist file at path, preserving
// file order. Blank lines and lines starting with '#' are skipped.
//
// A missing file returns an empty slice immediately. An existing file that
// yields zero references is retried with a fixed delay; after all attempts
// the empty result stands. Parse never returns an error.
func (p *Parser) Parse(path string) []string {
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			p.logger.Warnf("playlist file does not exist: %s", path)
			return nil
		}

		tracks, err := p.readTracks(path)
		if err != nil {
			if attempt < p.maxRetries {
				p.logger.Warnf("failed to read %s (attempt %d/%d): %v", filepath.Base(path), attempt+1, p.maxRetries+1, err)
				time.Sleep(p.retryDelay)
				continue
			}
			p.logger.Errorf("failed to read %s after %d retries: %v", filepath.Base(path), p.maxRetries, err)
			return nil
		}

		if len(tracks) > 0 {
			p.logger.Infof("parsed %d tracks from %s", len(tracks), filepath.Base(path))
			return tracks
		}

		if attempt < p.maxRetries {
			p.logger.Warnf("no tracks found in playlist, retrying in %v (attempt %d/%d): %s",
				p.retryDelay, attempt+1, p.maxRetries+1, filepath.Base(path))
			time.Sleep(p.retryDelay)
			continue
		}

		p.logger.Warnf("no tracks found in playlist after %d retries: %s", p.maxRetries, filepath.Base(path))
	}

	return nil
}

// readTracks performs a single read pass over the file.
func (p *Parser) readTracks(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tracks []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tracks = append(tracks, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return tracks, nil
}

// Name derives the playlist name from a playlist file path: the base name
// with the extension stripped. "Favorites.m3u8" becomes "Favorites".
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
