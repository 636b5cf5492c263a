// Package catalog is the storage adapter for Strawberry's SQLite database.
//
// The Store resolves track references against the songs table and performs
// transactional full-replace playlist writes. It is the only component
// permitted to write to the database, and it refuses to operate against a
// schema version it does not know unless explicitly bypassed.
package catalog

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/strawsync/internal/shared"
)

// SupportedSchemaVersions is the allow-list of Strawberry schema versions
// this daemon is known to write safely.
var SupportedSchemaVersions = []int{20, 21}

// Counts summarises the outcome of one playlist sync.
type Counts struct {
	Added   int // references resolved and written
	Missing int // references with no matching song row, skipped
}

// Store provides transactional access to the playlists, playlist_items and
// songs tables.
type Store struct {
	db       *sql.DB
	mediaDir string
	logger   *log.Logger
}

// NewStore creates a Store and validates schema compatibility.
//
// mediaDir is the base directory for track references that do not start with
// a relative-traversal marker. When ignoreSchema is set the version check is
// skipped with a loud warning; writing against an unknown schema risks
// corrupting the host player's data.
func NewStore(db *sql.DB, mediaDir string, ignoreSchema bool, logger *log.Logger) (*Store, error) {
	s := &Store{db: db, mediaDir: mediaDir, logger: logger}

	if ignoreSchema {
		logger.Warn("database schema version check bypassed; data corruption or loss is possible")
		return s, nil
	}

	if err := s.checkSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

// checkSchema reads the schema version marker and fails unless the version
// is on the allow-list.
func (s *Store) checkSchema() error {
	var tableName string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: schema_version table not found, this may be an older or incompatible database", shared.ErrMissingSchemaMarker)
	}
	if err != nil {
		return fmt.Errorf("failed to check for schema_version table: %w", err)
	}

	var version int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: no version row in schema_version table", shared.ErrMissingSchemaMarker)
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, supported := range SupportedSchemaVersions {
		if version == supported {
			s.logger.Infof("database schema version %d is supported", version)
			return nil
		}
	}

	return fmt.Errorf("%w: version %d (supported: %s)",
		shared.ErrUnsupportedSchema, version, formatVersions(SupportedSchemaVersions))
}

func formatVersions(versions []int) string {
	parts := make([]string, len(versions))
	for i, v := range versions {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}

// querier is satisfied by both *sql.DB and *sql.Tx so resolution can run
// inside or outside a transaction.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

// ResolveTrack finds the song rowid for a track reference.
//
// References starting with "../" or "./" resolve against the playlist file's
// own directory; everything else resolves against the configured media base
// directory. A miss is an expected outcome, not an error.
func (s *Store) ResolveTrack(ref, playlistPath string) (int64, bool) {
	return s.resolveTrack(s.db, ref, playlistPath)
}

func (s *Store) resolveTrack(q querier, ref, playlistPath string) (int64, bool) {
	uri := FileURI(s.absolutePath(ref, playlistPath))

	var id int64
	err := q.QueryRow("SELECT rowid FROM songs WHERE url = ?", uri).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false
	}
	if err != nil {
		s.logger.Warnf("song lookup failed for %s: %v", ref, err)
		return 0, false
	}

	return id, true
}

// absolutePath converts a track reference into an absolute filesystem path.
func (s *Store) absolutePath(ref, playlistPath string) string {
	if playlistPath != "" && (strings.HasPrefix(ref, "../") || strings.HasPrefix(ref, "./")) {
		return filepath.Clean(filepath.Join(filepath.Dir(playlistPath), ref))
	}
	return filepath.Join(s.mediaDir, ref)
}

// SyncPlaylist atomically replaces the named playlist's items with the
// resolvable subset of refs, in input order.
//
// The playlist row is created on first sight. Unresolvable references are
// counted as Missing and skipped; they never block the rest of the write.
// Repeated syncs of an unchanged file are idempotent. The whole replace runs
// in one transaction, so a failure leaves the previous contents intact.
func (s *Store) SyncPlaylist(name string, refs []string, playlistPath string) (Counts, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return Counts{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	playlistID, err := s.getOrCreatePlaylist(tx, name)
	if err != nil {
		return Counts{}, err
	}

	if _, err := tx.Exec("DELETE FROM playlist_items WHERE playlist = ?", playlistID); err != nil {
		return Counts{}, fmt.Errorf("failed to clear playlist %q: %w", name, err)
	}

	var counts Counts
	for _, ref := range refs {
		songID, ok := s.resolveTrack(tx, ref, playlistPath)
		if !ok {
			s.logger.Warnf("song not found in database: %s", ref)
			counts.Missing++
			continue
		}

		if err := insertItem(tx, playlistID, songID); err != nil {
			return Counts{}, fmt.Errorf("failed to add song to playlist %q: %w", name, err)
		}
		counts.Added++
	}

	if err := tx.Commit(); err != nil {
		return Counts{}, fmt.Errorf("failed to commit playlist %q: %w", name, err)
	}

	return counts, nil
}

// getOrCreatePlaylist returns the rowid for name, inserting a new playlist
// row when none exists.
func (s *Store) getOrCreatePlaylist(tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT rowid FROM playlists WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up playlist %q: %w", name, err)
	}

	s.logger.Infof("creating new playlist: %s", name)
	result, err := tx.Exec(
		"INSERT INTO playlists (name, last_played, ui_order, is_favorite) VALUES (?, -1, -1, 1)",
		name,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create playlist %q: %w", name, err)
	}

	return result.LastInsertId()
}

// insertItem writes one playlist_items row. type=2 marks a local collection
// file and source=2 a collection song; the remaining non-null columns take
// Strawberry's "not applicable" sentinels so the player treats the row like
// one it wrote itself.
func insertItem(tx *sql.Tx, playlistID, songID int64) error {
	_, err := tx.Exec(
		`INSERT INTO playlist_items
		   (playlist, type, collection_id, track, disc, year, originalyear,
		    compilation, beginning, length, bitrate, samplerate, bitdepth,
		    source, directory_id, filetype, filesize, mtime, ctime, unavailable,
		    playcount, skipcount, lastplayed, lastseen, compilation_detected,
		    compilation_on, compilation_off, compilation_effective,
		    effective_originalyear, rating, art_embedded, art_unset)
		   VALUES (?, 2, ?, -1, -1, -1, -1, 0, 0, -1, -1, -1, -1, 2, -1, 0, 0, -1, -1, 0,
		           0, 0, -1, -1, 0, 0, 0, 0, 0, -1, 0, 0)`,
		playlistID, songID,
	)
	return err
}

// PlaylistItems returns the song rowids for a named playlist in stored row
// order, primarily for verification and diagnostics.
func (s *Store) PlaylistItems(name string) ([]int64, error) {
	var playlistID int64
	err := s.db.QueryRow("SELECT rowid FROM playlists WHERE name = ?", name).Scan(&playlistID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up playlist %q: %w", name, err)
	}

	rows, err := s.db.Query("SELECT collection_id FROM playlist_items WHERE playlist = ? ORDER BY rowid", playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist items: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan playlist item: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}
