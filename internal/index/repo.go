package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/chordbook/internal/apperr"
)

// SongRow represents a row in the songs table.
type SongRow struct {
	Path      string
	Title     string
	Artist    string
	Key       string
	Format    string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Artist  string `json:"artist,omitempty"`
	Snippet string `json:"snippet"`
}

// GraphNode is a song or a chord in the chord graph.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"` // "song" or "chord"
}

// GraphLink connects a song to a chord it uses.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// ChordNodeID returns the graph node id for chord.
func ChordNodeID(chord string) string {
	return "chord:" + chord
}

// UpsertSong inserts or replaces a song, its FTS entry, and its chords within a transaction.
func (db *DB) UpsertSong(s SongRow, body string, chords []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(nonNil(s.Tags))
	format := s.Format
	if format == "" {
		format = "annotated"
	}

	_, err = tx.Exec(`
		INSERT INTO songs (path, title, artist, song_key, format, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			artist     = excluded.artist,
			song_key   = excluded.song_key,
			format     = excluded.format,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, s.Path, s.Title, s.Artist, s.Key, format, s.Checksum, string(tagsJSON), body, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert song: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, s.Path, s.Title, s.Artist, body, s.Tags); err != nil {
		return err
	}

	// Replace chords: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM song_chords WHERE song = ?`, s.Path)
	if len(chords) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO song_chords (song, chord, position) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare chord insert: %w", err)
		}
		defer stmt.Close()
		for i, chord := range chords {
			if _, err := stmt.Exec(s.Path, chord, i); err != nil {
				return fmt.Errorf("index: insert chord: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteSong removes a song, its FTS entry, and its chords.
func (db *DB) DeleteSong(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM song_chords WHERE song = ?`, path)
	_, _ = tx.Exec(`DELETE FROM songs WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a song, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM songs WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

const songColumns = `path, title, artist, song_key, format, checksum, tags, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(r rowScanner) (SongRow, error) {
	var s SongRow
	var tags string
	if err := r.Scan(&s.Path, &s.Title, &s.Artist, &s.Key, &s.Format, &s.Checksum, &tags, &s.UpdatedAt); err != nil {
		return SongRow{}, err
	}
	_ = json.Unmarshal([]byte(tags), &s.Tags)
	return s, nil
}

// GetSong returns the indexed row for path.
func (db *DB) GetSong(path string) (*SongRow, error) {
	s, err := scanSong(db.conn.QueryRow(`SELECT `+songColumns+` FROM songs WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get song: %w", err)
	}
	return &s, nil
}

// ListSongs returns a page of songs and the total count. tag filters by an
// exact tag; sort is "title", "updated" or the default path order.
func (db *DB) ListSongs(limit, offset int, tag, sort string) ([]SongRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	var args []any
	if tag != "" {
		tagJSON, _ := json.Marshal(tag)
		where = `WHERE tags LIKE ?`
		args = append(args, "%"+string(tagJSON)+"%")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM songs `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count songs: %w", err)
	}

	order := "path ASC"
	switch sort {
	case "title":
		order = "title COLLATE NOCASE ASC, path ASC"
	case "updated":
		order = "updated_at DESC, path ASC"
	}

	rows, err := db.conn.Query(`SELECT `+songColumns+` FROM songs `+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list songs: %w", err)
	}
	defer rows.Close()

	var out []SongRow
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// AllChecksums returns path → checksum for every indexed song.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM songs`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// SongsWithChord returns the paths of all songs that use chord.
func (db *DB) SongsWithChord(chord string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT song FROM song_chords WHERE chord = ? ORDER BY song`, chord)
	if err != nil {
		return nil, fmt.Errorf("index: songs with chord: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Graph returns song and chord nodes with a link for every chord use.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	rows, err := db.conn.Query(`SELECT path, title FROM songs ORDER BY path`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph songs: %w", err)
	}
	var nodes []GraphNode
	for rows.Next() {
		var path, title string
		if err := rows.Scan(&path, &title); err != nil {
			rows.Close()
			return nil, nil, err
		}
		label := title
		if label == "" {
			label = path
		}
		nodes = append(nodes, GraphNode{ID: path, Label: label, Kind: "song"})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = db.conn.Query(`SELECT song, chord FROM song_chords ORDER BY song, position`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph chords: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	var links []GraphLink
	for rows.Next() {
		var song, chord string
		if err := rows.Scan(&song, &chord); err != nil {
			return nil, nil, err
		}
		id := ChordNodeID(chord)
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			nodes = append(nodes, GraphNode{ID: id, Label: chord, Kind: "chord"})
		}
		links = append(links, GraphLink{Source: song, Target: id})
	}
	return nodes, links, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
