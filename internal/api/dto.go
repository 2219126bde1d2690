package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/chordbook/internal/index"
	"github.com/starford/chordbook/internal/lifecycle"
	"github.com/starford/chordbook/internal/songservice"
	"github.com/starford/chordbook/internal/storage"
)

// CreateSongRequest is the request body for creating a song.
type CreateSongRequest struct {
	Path    string `json:"path" example:"folk/hello.cho" validate:"required"`
	Content string `json:"content" example:"{title: Hello}\n[C]Hello" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *CreateSongRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required, validation.By(songFileRule)),
		validation.Field(&r.Content, validation.Required),
	)
}

// UpdateSongRequest is the request body for updating a song.
type UpdateSongRequest struct {
	Content string `json:"content" example:"{title: Hello}\n[G]Hello" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *UpdateSongRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required),
	)
}

// MoveSongRequest renames a song.
type MoveSongRequest struct {
	From string `json:"from" example:"hello.cho" validate:"required"`
	To   string `json:"to" example:"folk/hello.cho" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *MoveSongRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.From, validation.Required),
		validation.Field(&r.To, validation.Required, validation.By(songFileRule)),
	)
}

// SheetRequest carries a raw chord sheet for classify, convert and render.
type SheetRequest struct {
	Content string `json:"content" example:"[Verse 1]\nC G Am F\nHello there my friend" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *SheetRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required),
	)
}

// PassRequest asks for one lifecycle pass over an HTML document.
type PassRequest struct {
	HTML    string `json:"html" example:"<div class=\"chordpro-container\" data-chordpro-content=\"[C]la\"></div>" validate:"required"`
	Trigger string `json:"trigger" example:"document-ready"`
}

// Validate implements validation.Validatable.
func (r *PassRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.HTML, validation.Required),
		validation.Field(&r.Trigger, validation.By(func(v any) error {
			_, err := lifecycle.ParseTrigger(v.(string))
			return err
		})),
	)
}

func songFileRule(v any) error {
	p, _ := v.(string)
	if p != "" && !storage.IsSongFile(p) {
		return validation.NewError("validation_song_file", "must end in one of "+strings.Join(storage.SongExtensions, ", "))
	}
	return nil
}

// SongDetail is the full song response type (aliased from the domain layer).
type SongDetail = songservice.SongDetail

// SongListItem is a lightweight item in a list response (aliased from the domain layer).
type SongListItem = songservice.SongListItem

// SongListResponse wraps paginated song listings.
type SongListResponse struct {
	Songs []SongListItem `json:"songs" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// GraphResponse wraps the song/chord graph.
type GraphResponse struct {
	Nodes []index.GraphNode `json:"nodes" validate:"required"`
	Links []index.GraphLink `json:"links" validate:"required"`
}

// ClassifyResponse reports the format of a chord sheet.
type ClassifyResponse struct {
	Format string `json:"format" example:"tablature" validate:"required"`
}

// ConvertResponse carries the converted sheet.
type ConvertResponse struct {
	Content   string `json:"content" validate:"required"`
	Format    string `json:"format" example:"tablature" validate:"required"`
	Converted bool   `json:"converted"`
}

// RenderResponse carries rendered HTML and the strategy that produced it.
type RenderResponse struct {
	HTML      string `json:"html" validate:"required"`
	Strategy  string `json:"strategy" example:"ultimate-guitar/html-table" validate:"required"`
	Fallback  bool   `json:"fallback"`
	Transpose int    `json:"transpose"`
}

// PassResponse carries the document after a lifecycle pass.
type PassResponse struct {
	HTML   string               `json:"html" validate:"required"`
	Report lifecycle.PassReport `json:"report"`
}

// ChordSongsResponse lists songs using a chord.
type ChordSongsResponse struct {
	Chord string   `json:"chord" example:"Am" validate:"required"`
	Songs []string `json:"songs" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"capo-chart.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/attachments/capo-chart.png" validate:"required"`
}
