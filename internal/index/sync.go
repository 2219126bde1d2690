package index

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/chordbook/internal/checksum"
	"github.com/starford/chordbook/internal/songmeta"
	"github.com/starford/chordbook/internal/storage"
)

// Sync walks the vault and brings the index up to date: new or changed
// songs are parsed and upserted, songs gone from disk are dropped.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	return reconcile(db, store, logger, nil)
}

// reconcile compares the vault listing with the stored checksums and
// applies the difference, reporting each change to cb when set.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return err
	}
	indexed, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: checksums failed", slog.String("error", err.Error()))
		return err
	}

	onDisk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		onDisk[m.Path] = struct{}{}
		prev, known := indexed[m.Path]
		if prev == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("reconcile: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("reconcile: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("reconcile: indexed", slog.String("path", m.Path))
		if cb != nil {
			kind := KindUpdated
			if !known {
				kind = KindCreated
			}
			cb(kind, m.Path)
		}
	}

	for p := range indexed {
		if _, ok := onDisk[p]; ok {
			continue
		}
		if err := db.DeleteSong(p); err != nil {
			logger.Warn("reconcile: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("reconcile: removed stale", slog.String("path", p))
		if cb != nil {
			cb(KindDeleted, p)
		}
	}
	return nil
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, path string, data []byte) error {
	res, err := songmeta.Parse(data)
	if err != nil {
		return err
	}
	row := SongRow{
		Path:      path,
		Title:     res.Title,
		Artist:    res.Artist,
		Key:       res.Key,
		Format:    res.Format.String(),
		Checksum:  checksum.Sum(data),
		Tags:      res.Tags,
		UpdatedAt: time.Now(),
	}
	return db.UpsertSong(row, res.Body, res.Chords)
}

// IndexFile is indexFile for callers outside the package.
func IndexFile(db *DB, path string, data []byte) error {
	return indexFile(db, path, data)
}

// isIndexable reports whether a vault-relative path names a song file
// outside hidden directories and the attachments directory.
func isIndexable(rel string) bool {
	if !storage.IsSongFile(rel) {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 1 && parts[0] == storage.AttachmentsDir {
		return false
	}
	for _, p := range parts[:len(parts)-1] {
		if strings.HasPrefix(p, ".") {
			return false
		}
	}
	return true
}
