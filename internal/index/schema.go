// Package index keeps a SQLite index of the song vault: metadata, chord
// usage and full-text search (FTS5 when built with the sqlite_fts5 tag).
package index

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is stored in PRAGMA user_version. Bump it when the
// tables below change shape.
const schemaVersion = 1

const songsSchema = `
CREATE TABLE IF NOT EXISTS songs (
	path       TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	artist     TEXT NOT NULL DEFAULT '',
	song_key   TEXT NOT NULL DEFAULT '',
	format     TEXT NOT NULL DEFAULT 'annotated',
	checksum   TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_songs_title ON songs(title COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS song_chords (
	song     TEXT NOT NULL,
	chord    TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	UNIQUE(song, chord)
);
CREATE INDEX IF NOT EXISTS idx_song_chords_chord ON song_chords(chord);
`

// DB is the song index.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the index at path and applies the schema. An index
// written by a newer build is refused rather than silently downgraded.
func Open(path string) (*DB, error) {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	conn, err := sql.Open("sqlite3", path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func migrate(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("index: read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("index: schema version %d is newer than supported %d", version, schemaVersion)
	}
	if _, err := conn.Exec(songsSchema); err != nil {
		return fmt.Errorf("index: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		return fmt.Errorf("index: apply fts schema: %w", err)
	}
	if _, err := conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("index: write schema version: %w", err)
	}
	return nil
}

// Ping checks the connection. The server's readiness gate uses it.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database.
func (db *DB) Close() error {
	return db.conn.Close()
}
