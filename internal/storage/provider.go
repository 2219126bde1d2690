// Package storage defines the song vault file-system abstraction.
package storage

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/starford/chordbook/internal/models"
)

// SongExtensions lists the file extensions treated as songs.
var SongExtensions = []string{".cho", ".chordpro", ".crd", ".txt"}

// AttachmentsDir is the vault directory holding uploaded files. It is
// never scanned for songs.
const AttachmentsDir = "attachments"

// MaxSongSize caps the size of a song file accepted by Write.
const MaxSongSize = 1 << 20

// ErrTooLarge is returned when a song exceeds MaxSongSize.
var ErrTooLarge = errors.New("storage: song too large")

// IsSongFile reports whether name has a song extension.
func IsSongFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SongExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Provider is the interface for vault file operations. Paths are relative
// to the vault root.
type Provider interface {
	// List returns metadata for every song file under dir.
	List(dir string) ([]models.SongMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath, failing if newPath exists.
	Move(oldPath, newPath string) error
}
