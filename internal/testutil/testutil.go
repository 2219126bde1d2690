// Package testutil holds fixtures shared by the service, API and MCP tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/chordbook/internal/index"
	"github.com/starford/chordbook/internal/storage"
)

// TestDB opens a throwaway index inside t.TempDir.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("testutil: open index: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestVault returns an empty vault directory and a filesystem provider over it.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatalf("testutil: open vault: %v", err)
	}
	return dir, store
}

// WriteSong writes content to rel under vaultDir, creating parent folders.
func WriteSong(t *testing.T, vaultDir, rel, content string) {
	t.Helper()
	full := filepath.Join(vaultDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TabSheet is a minimal Ultimate Guitar style sheet: a section header, a
// chord line and a lyric line.
const TabSheet = "[Verse 1]\nC G Am F\nHello there my friend"
