// Package songservice coordinates the song vault and the song index.
package songservice

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/starford/chordbook/internal/apperr"
	"github.com/starford/chordbook/internal/checksum"
	"github.com/starford/chordbook/internal/chordsheet"
	"github.com/starford/chordbook/internal/index"
	"github.com/starford/chordbook/internal/songmeta"
	"github.com/starford/chordbook/internal/storage"
)

// SongDetail is the full representation of a song.
type SongDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Artist      string         `json:"artist,omitempty"`
	Key         string         `json:"key,omitempty"`
	Format      string         `json:"format"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Chords      []string       `json:"chords"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// SongListItem is a lightweight item in a list response.
type SongListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist,omitempty"`
	Key       string    `json:"key,omitempty"`
	Format    string    `json:"format"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Converter turns tablature chord sheets into annotated ones.
type Converter interface {
	ConvertToAnnotated(text string) string
}

// Option configures a Service.
type Option func(*Service)

// WithConvertOnSave converts tablature content to ChordPro before it is
// written to the vault.
func WithConvertOnSave(c Converter) Option {
	return func(s *Service) { s.converter = c }
}

// Service coordinates storage and index operations.
type Service struct {
	store     storage.Provider
	db        *index.DB
	converter Converter
}

// NewService creates a new song service.
func NewService(store storage.Provider, db *index.DB, opts ...Option) *Service {
	s := &Service{store: store, db: db}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetSong reads a song from storage and parses it.
func (s *Service) GetSong(_ context.Context, path string) (*SongDetail, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return buildSongDetail(path, data)
}

// ReadRaw returns the stored bytes of a song.
func (s *Service) ReadRaw(_ context.Context, path string) ([]byte, error) {
	return s.read(path)
}

// CreateSong writes a new song and indexes it.
func (s *Service) CreateSong(_ context.Context, path string, content []byte) (*SongDetail, error) {
	if !storage.IsSongFile(path) {
		return nil, apperr.ErrInvalidPath
	}
	exists, err := s.store.Exists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.ErrAlreadyExists
	}
	return s.save(path, content)
}

// UpdateSong writes updated content with optimistic concurrency. ifMatch
// is an If-Match value (see checksum.Matches); empty skips the check.
func (s *Service) UpdateSong(_ context.Context, path string, content []byte, ifMatch string) (*SongDetail, error) {
	existing, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && !checksum.Matches(ifMatch, checksum.Sum(existing)) {
		return nil, apperr.ErrConflict
	}
	return s.save(path, content)
}

// MoveSong renames a song and moves its index entry.
func (s *Service) MoveSong(_ context.Context, from, to string) (*SongDetail, error) {
	if !storage.IsSongFile(to) {
		return nil, apperr.ErrInvalidPath
	}
	if err := s.store.Move(from, to); err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil, apperr.ErrNotFound
		case errors.Is(err, os.ErrExist):
			return nil, apperr.ErrAlreadyExists
		}
		return nil, err
	}
	if err := s.db.DeleteSong(from); err != nil {
		return nil, err
	}
	data, err := s.read(to)
	if err != nil {
		return nil, err
	}
	if err := s.IndexFile(to, data); err != nil {
		return nil, err
	}
	return buildSongDetail(to, data)
}

// DeleteSong removes a song from storage and index.
func (s *Service) DeleteSong(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteSong(path)
}

// ListSongs returns paginated songs with optional tag filter.
func (s *Service) ListSongs(_ context.Context, limit, offset int, tag, sort string) ([]SongListItem, int, error) {
	rows, total, err := s.db.ListSongs(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]SongListItem, len(rows))
	for i, r := range rows {
		items[i] = SongListItem{
			Path:      r.Path,
			Title:     r.Title,
			Artist:    r.Artist,
			Key:       r.Key,
			Format:    r.Format,
			Checksum:  r.Checksum,
			Tags:      nonNilSlice(r.Tags),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Graph returns song and chord nodes for graph visualization.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.Graph()
}

// SongsWithChord returns the paths of songs that use chord.
func (s *Service) SongsWithChord(_ context.Context, chord string) ([]string, error) {
	paths, err := s.db.SongsWithChord(chord)
	return nonNilSlice(paths), err
}

// IndexFile parses data and upserts it into the index.
func (s *Service) IndexFile(path string, data []byte) error {
	return index.IndexFile(s.db, path, data)
}

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Service) save(path string, content []byte) (*SongDetail, error) {
	if s.converter != nil && chordsheet.IsTablature(string(content)) {
		content = []byte(s.converter.ConvertToAnnotated(string(content)))
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return buildSongDetail(path, content)
}

func buildSongDetail(path string, data []byte) (*SongDetail, error) {
	res, err := songmeta.Parse(data)
	if err != nil {
		return nil, err
	}
	return &SongDetail{
		Path:        path,
		Title:       res.Title,
		Artist:      res.Artist,
		Key:         res.Key,
		Format:      res.Format.String(),
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Chords:      nonNilSlice(res.Chords),
		Frontmatter: res.Frontmatter,
		UpdatedAt:   time.Now(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
