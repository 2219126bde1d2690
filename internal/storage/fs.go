package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/chordbook/internal/checksum"
	"github.com/starford/chordbook/internal/models"
)

// FS is a Provider over a directory of song files.
type FS struct {
	root string // absolute
}

// NewFS returns a vault rooted at root, which must be an existing directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	switch {
	case err != nil:
		return nil, fmt.Errorf("storage: stat root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// resolve maps a vault-relative path to an absolute one. Absolute paths
// and paths leaving the vault are rejected.
func (f *FS) resolve(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(f.root, filepath.Clean(rel))
	if abs != f.root && !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// skipDir reports whether the walk should not descend into dir.
func (f *FS) skipDir(abs, base string, d fs.DirEntry) bool {
	if abs == base {
		return false
	}
	return strings.HasPrefix(d.Name(), ".") ||
		(filepath.Dir(abs) == f.root && d.Name() == AttachmentsDir)
}

// List returns metadata for every song under dir. Hidden directories and
// the attachments directory are skipped.
func (f *FS) List(dir string) ([]models.SongMetadata, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	var songs []models.SongMetadata
	walk := func(abs string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir():
			if f.skipDir(abs, base, d) {
				return filepath.SkipDir
			}
			return nil
		case !d.Type().IsRegular() || !IsSongFile(d.Name()):
			return nil
		}
		meta, err := f.describe(abs, d)
		if err != nil {
			return err
		}
		songs = append(songs, meta)
		return nil
	}
	if err := filepath.WalkDir(base, walk); err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return songs, nil
}

func (f *FS) describe(abs string, d fs.DirEntry) (models.SongMetadata, error) {
	info, err := d.Info()
	if err != nil {
		return models.SongMetadata{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.SongMetadata{}, err
	}
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return models.SongMetadata{}, err
	}
	return models.SongMetadata{
		Path:      rel,
		Checksum:  checksum.Sum(data),
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Read returns the contents of the file at path.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether a regular file exists at path.
func (f *FS) Exists(path string) (bool, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// Write replaces the file at path through a temp file in the same
// directory, so readers see either the old or the new song. Song files
// above MaxSongSize are refused.
func (f *FS) Write(path string, content []byte) error {
	if IsSongFile(path) && len(content) > MaxSongSize {
		return fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, len(content))
	}
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	return writeAtomic(abs, content)
}

func writeAtomic(abs string, content []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(abs), ".chordbook-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}

// Delete removes the file at path.
func (f *FS) Delete(path string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// Move renames oldPath to newPath, creating parent directories. An
// existing newPath is left alone and os.ErrExist returned.
func (f *FS) Move(oldPath, newPath string) error {
	from, err := f.resolve(oldPath)
	if err != nil {
		return err
	}
	to, err := f.resolve(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(to); err == nil {
		return fmt.Errorf("storage: move to %s: %w", newPath, os.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}
