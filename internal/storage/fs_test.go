package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("{title: Hello}\n[C]World\n")
	if err := s.Write("song.cho", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("song.cho")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("a/b/c.cho", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.cho")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("del.cho", []byte("bye"))
	if err := s.Delete("del.cho"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.cho"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("old.cho", []byte("data"))
	if err := s.Move("old.cho", "sub/new.cho"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/new.cho")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.cho"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.cho", []byte("a"))
	_ = s.Write("sub/b.chordpro", []byte("b"))
	_ = s.Write("tabs/c.txt", []byte("c"))
	_ = s.Write("notes.md", []byte("not a song"))
	_ = s.Write("attachments/scan.txt", []byte("skipped"))
	_ = s.Write(".hidden/d.cho", []byte("skipped"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("len = %d, want 3: %+v", len(items), items)
	}
	for _, it := range items {
		if it.Checksum == "" {
			t.Errorf("missing checksum for %s", it.Path)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.cho",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	// Verify that if we read during a write the old content is intact
	// (the rename is atomic on POSIX).
	s := tempVault(t)
	original := []byte("original content")
	_ = s.Write("atomic.cho", original)

	// Overwrite with new content.
	updated := []byte("updated content")
	if err := s.Write("atomic.cho", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.cho")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.root, ".chordbook-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/chordbook-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "chordbook-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestIsSongFile(t *testing.T) {
	for name, want := range map[string]bool{
		"a.cho": true, "b.CHORDPRO": true, "c.crd": true, "d.txt": true,
		"e.md": false, "f.png": false, "noext": false,
	} {
		if got := IsSongFile(name); got != want {
			t.Errorf("IsSongFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestExists(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("here.cho", []byte("[C]x"))
	_ = os.MkdirAll(filepath.Join(s.root, "dir.cho"), 0o755)

	for path, want := range map[string]bool{"here.cho": true, "gone.cho": false, "dir.cho": false} {
		got, err := s.Exists(path)
		if err != nil {
			t.Fatalf("Exists(%q): %v", path, err)
		}
		if got != want {
			t.Errorf("Exists(%q) = %v, want %v", path, got, want)
		}
	}
	if _, err := s.Exists("../escape.cho"); err == nil {
		t.Error("expected traversal error")
	}
}

func TestMove_RefusesOverwrite(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.cho", []byte("a"))
	_ = s.Write("b.cho", []byte("b"))

	err := s.Move("a.cho", "b.cho")
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("err = %v, want os.ErrExist", err)
	}
	if got, _ := s.Read("b.cho"); string(got) != "b" {
		t.Errorf("destination overwritten: %q", got)
	}
}

func TestWrite_TooLarge(t *testing.T) {
	s := tempVault(t)
	big := bytes.Repeat([]byte("C G Am F\n"), MaxSongSize/8)
	if err := s.Write("big.cho", big); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
	// The cap only applies to songs.
	if err := s.Write("attachments/big.bin", big); err != nil {
		t.Errorf("attachment write: %v", err)
	}
}

func TestList_Metadata(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("sub/size.cho", []byte("12345"))

	items, err := s.List("sub")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Path != filepath.Join("sub", "size.cho") || items[0].Size != 5 || items[0].UpdatedAt.IsZero() {
		t.Errorf("meta = %+v", items[0])
	}
}
