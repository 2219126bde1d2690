package index

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/chordbook/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM songs`).Scan(&count); err != nil {
		t.Fatalf("songs table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM song_chords`).Scan(&count); err != nil {
		t.Fatalf("song_chords table missing: %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestOpen_RefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var version int
	_ = db.conn.QueryRow(`PRAGMA user_version`).Scan(&version)
	if version != schemaVersion {
		t.Errorf("user_version = %d, want %d", version, schemaVersion)
	}
	if _, err := db.conn.Exec(`PRAGMA user_version = 99`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := Open(path); err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("Open newer schema err = %v", err)
	}
}

func TestUpsertAndGetSong(t *testing.T) {
	db := testDB(t)
	row := SongRow{
		Path:      "hello.cho",
		Title:     "Hello",
		Artist:    "Someone",
		Key:       "G",
		Format:    "tablature",
		Checksum:  "abc123",
		Tags:      []string{"folk", "live"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertSong(row, "[G]Hello", []string{"G", "D"}); err != nil {
		t.Fatalf("UpsertSong: %v", err)
	}
	cs, err := db.GetChecksum("hello.cho")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	got, err := db.GetSong("hello.cho")
	if err != nil {
		t.Fatalf("GetSong: %v", err)
	}
	if got.Title != "Hello" || got.Artist != "Someone" || got.Key != "G" || got.Format != "tablature" {
		t.Errorf("song = %+v", got)
	}
	if diff := cmp.Diff([]string{"folk", "live"}, got.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestGetSong_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetSong("missing.cho"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSongsWithChord(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertSong(SongRow{Path: "a.cho", Checksum: "1", UpdatedAt: time.Now()}, "body", []string{"Am", "C"})
	_ = db.UpsertSong(SongRow{Path: "b.cho", Checksum: "2", UpdatedAt: time.Now()}, "body", []string{"C", "G"})

	got, err := db.SongsWithChord("C")
	if err != nil {
		t.Fatalf("SongsWithChord: %v", err)
	}
	if diff := cmp.Diff([]string{"a.cho", "b.cho"}, got); diff != "" {
		t.Errorf("songs mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteSong(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertSong(SongRow{Path: "del.cho", Checksum: "x", UpdatedAt: time.Now()}, "body", []string{"E"})

	if err := db.DeleteSong("del.cho"); err != nil {
		t.Fatalf("DeleteSong: %v", err)
	}
	cs, _ := db.GetChecksum("del.cho")
	if cs != "" {
		t.Errorf("deleted song still has checksum %q", cs)
	}
	songs, _ := db.SongsWithChord("E")
	if len(songs) != 0 {
		t.Errorf("expected no chord uses after delete, got %v", songs)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertSong(SongRow{Path: "up.cho", Title: "Old", Checksum: "1", UpdatedAt: now}, "old body", []string{"F"})
	_ = db.UpsertSong(SongRow{Path: "up.cho", Title: "New", Checksum: "2", Tags: []string{"new"}, UpdatedAt: now}, "new body", []string{"Bb"})

	cs, _ := db.GetChecksum("up.cho")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	if s, _ := db.SongsWithChord("F"); len(s) != 0 {
		t.Error("old chord should be removed on upsert")
	}
	if s, _ := db.SongsWithChord("Bb"); len(s) != 1 {
		t.Error("new chord should exist")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.cho")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestListSongs_TagSortAndPaging(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = db.UpsertSong(SongRow{Path: "c.cho", Title: "alpha", Checksum: "1", Tags: []string{"folk"}, UpdatedAt: base}, "", nil)
	_ = db.UpsertSong(SongRow{Path: "a.cho", Title: "Charlie", Checksum: "2", Tags: []string{"rock"}, UpdatedAt: base.Add(time.Hour)}, "", nil)
	_ = db.UpsertSong(SongRow{Path: "b.cho", Title: "bravo", Checksum: "3", Tags: []string{"folk", "live"}, UpdatedAt: base.Add(2 * time.Hour)}, "", nil)

	paths := func(rows []SongRow) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.Path
		}
		return out
	}

	rows, total, err := db.ListSongs(10, 0, "", "")
	if err != nil {
		t.Fatalf("ListSongs: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if diff := cmp.Diff([]string{"a.cho", "b.cho", "c.cho"}, paths(rows)); diff != "" {
		t.Errorf("path order mismatch (-want +got):\n%s", diff)
	}

	rows, _, _ = db.ListSongs(10, 0, "", "title")
	if diff := cmp.Diff([]string{"c.cho", "b.cho", "a.cho"}, paths(rows)); diff != "" {
		t.Errorf("title order mismatch (-want +got):\n%s", diff)
	}

	rows, _, _ = db.ListSongs(10, 0, "", "updated")
	if diff := cmp.Diff([]string{"b.cho", "a.cho", "c.cho"}, paths(rows)); diff != "" {
		t.Errorf("updated order mismatch (-want +got):\n%s", diff)
	}

	rows, total, _ = db.ListSongs(1, 1, "folk", "")
	if total != 2 {
		t.Errorf("folk total = %d, want 2", total)
	}
	if diff := cmp.Diff([]string{"c.cho"}, paths(rows)); diff != "" {
		t.Errorf("folk page mismatch (-want +got):\n%s", diff)
	}
}

func TestGraph(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertSong(SongRow{Path: "a.cho", Title: "A", Checksum: "1", UpdatedAt: time.Now()}, "", []string{"C", "G"})
	_ = db.UpsertSong(SongRow{Path: "b.cho", Checksum: "2", UpdatedAt: time.Now()}, "", []string{"G"})

	nodes, links, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	wantNodes := []GraphNode{
		{ID: "a.cho", Label: "A", Kind: "song"},
		{ID: "b.cho", Label: "b.cho", Kind: "song"},
		{ID: "chord:C", Label: "C", Kind: "chord"},
		{ID: "chord:G", Label: "G", Kind: "chord"},
	}
	if diff := cmp.Diff(wantNodes, nodes); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	wantLinks := []GraphLink{
		{Source: "a.cho", Target: "chord:C"},
		{Source: "a.cho", Target: "chord:G"},
		{Source: "b.cho", Target: "chord:G"},
	}
	if diff := cmp.Diff(wantLinks, links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertSong(SongRow{Path: "s.cho", Title: "Search Me", Checksum: "1", UpdatedAt: time.Now()}, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.cho" {
		t.Errorf("search results = %+v, want 1 hit for s.cho", results)
	}
}

func TestIsIndexable(t *testing.T) {
	for rel, want := range map[string]bool{
		"song.cho":             true,
		"dir/tab.txt":          true,
		"attachments/note.txt": false,
		".git/x.txt":           false,
		"readme.md":            false,
	} {
		if got := isIndexable(rel); got != want {
			t.Errorf("isIndexable(%q) = %v, want %v", rel, got, want)
		}
	}
}
