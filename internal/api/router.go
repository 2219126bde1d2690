package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/starford/chordbook/internal/lifecycle"
	"github.com/starford/chordbook/internal/pipeline"
	"github.com/starford/chordbook/internal/songservice"
)

// Deps are the collaborators the routers need.
type Deps struct {
	Songs      *songservice.Service
	Pipeline   *pipeline.Pipeline
	Controller *lifecycle.Controller

	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler

	// VaultRoot is used to resolve the attachments directory.
	VaultRoot string

	AuthEnabled bool
	Token       string

	// Limiter throttles the conversion and render endpoints; nil disables it.
	Limiter *rate.Limiter

	Logger *slog.Logger
}

// NewRouter creates a chi router with all API routes, to be mounted at /api.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d.Songs, d.Pipeline, d.Controller, d.Logger)
	ah := NewAttachmentHandler(d.VaultRoot, d.Logger)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(d.AuthEnabled, d.Token))

	// Songs CRUD; GET /songs/<path>/render renders a stored song.
	r.Get("/songs", h.ListSongs)
	r.Post("/songs", h.CreateSong)
	r.Post("/songs/move", h.MoveSong)
	r.Get("/songs/*", h.GetSong)
	r.Put("/songs/*", h.UpdateSong)
	r.Delete("/songs/*", h.DeleteSong)

	// Chord sheet tools.
	r.Group(func(r chi.Router) {
		r.Use(RateLimit(d.Limiter))
		r.Post("/classify", h.Classify)
		r.Post("/convert", h.Convert)
		r.Post("/render", h.Render)
		r.Post("/lifecycle/pass", h.Pass)
	})

	r.Get("/search", h.Search)
	r.Get("/graph", h.Graph)
	r.Get("/chords/{chord}/songs", h.SongsWithChord)

	r.Post("/attachments", ah.Upload)

	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}

	return r
}

// Mount registers the HTML routes on r: song pages, attachment files and
// the conversion endpoint used by convert buttons.
func Mount(r chi.Router, d Deps) {
	h := NewHandler(d.Songs, d.Pipeline, d.Controller, d.Logger)
	ah := NewAttachmentHandler(d.VaultRoot, d.Logger)

	r.With(RateLimit(d.Limiter)).Post("/convert-to-chordpro/", h.ConvertField)
	r.Get("/songs/*", h.SongPage)
	r.Get("/attachments/{filename}", ah.ServeFile)
}
