// Package models defines the domain types shared by storage and index.
package models

import "time"

// SongMetadata describes a song file without its content.
type SongMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
