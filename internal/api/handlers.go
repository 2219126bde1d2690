package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/chordbook/internal/apperr"
	"github.com/starford/chordbook/internal/checksum"
	"github.com/starford/chordbook/internal/index"
	"github.com/starford/chordbook/internal/lifecycle"
	"github.com/starford/chordbook/internal/pipeline"
	"github.com/starford/chordbook/internal/songservice"
	"github.com/starford/chordbook/internal/storage"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *songservice.Service
	pipe   *pipeline.Pipeline
	ctrl   *lifecycle.Controller
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *songservice.Service, pipe *pipeline.Pipeline, ctrl *lifecycle.Controller, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, pipe: pipe, ctrl: ctrl, logger: logger}
}

// songPath extracts the song path from the URL (everything after /api/songs/).
// Supports encoded slashes from OpenAPI clients (e.g. folk%2Fhello.cho).
func songPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// renderTarget reports whether path addresses the render view of a song
// ("<song>/render") and returns the song path.
func renderTarget(path string) (string, bool) {
	song, ok := strings.CutSuffix(path, "/render")
	if !ok || !storage.IsSongFile(song) {
		return "", false
	}
	return song, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("song already exists"))
	case errors.Is(err, apperr.ErrInvalidPath):
		writeJSON(w, http.StatusBadRequest, errorBody("not a song file"))
	case errors.Is(err, storage.ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("song too large"))
	default:
		h.logger.Error(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListSongs handles GET /api/songs.
//
//	@Summary		List songs with optional pagination and filtering
//	@Tags			songs
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated, title, path)
//	@Success		200		{object}	SongListResponse
//	@Security		BearerAuth
//	@Router			/songs [get]
func (h *Handler) ListSongs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListSongs(r.Context(), limit, offset, q.Get("tag"), q.Get("sort"))
	if err != nil {
		h.writeServiceError(w, "list songs", "", err)
		return
	}
	writeJSON(w, http.StatusOK, SongListResponse{Songs: items, Total: total})
}

// GetSong handles GET /api/songs/*. A path ending in "/render" returns
// the rendered song instead.
//
//	@Summary		Get a single song by path
//	@Tags			songs
//	@Produce		json
//	@Param			path	path		string	true	"Song path"
//	@Success		200		{object}	SongDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/songs/{path} [get]
func (h *Handler) GetSong(w http.ResponseWriter, r *http.Request) {
	path := songPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if song, ok := renderTarget(path); ok {
		h.renderSong(w, r, song)
		return
	}
	song, err := h.svc.GetSong(r.Context(), path)
	if err != nil {
		h.writeServiceError(w, "get song", path, err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(song.Checksum))
	writeJSON(w, http.StatusOK, song)
}

// renderSong handles GET /api/songs/*/render.
//
//	@Summary		Render a stored song to HTML
//	@Tags			songs
//	@Produce		json
//	@Param			path		path		string	true	"Song path"
//	@Param			transpose	query		int		false	"Semitones to transpose"
//	@Success		200			{object}	RenderResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/songs/{path}/render [get]
func (h *Handler) renderSong(w http.ResponseWriter, r *http.Request, path string) {
	n, ok := transposeParam(w, r)
	if !ok {
		return
	}
	raw, err := h.svc.ReadRaw(r.Context(), path)
	if err != nil {
		h.writeServiceError(w, "render song", path, err)
		return
	}
	res := h.pipe.RenderToDisplay(string(raw), pipeline.WithTranspose(n))
	writeJSON(w, http.StatusOK, RenderResponse{HTML: res.HTML, Strategy: res.Strategy, Fallback: res.Fallback, Transpose: n})
}

// CreateSong handles POST /api/songs.
//
//	@Summary		Create a new song
//	@Tags			songs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSongRequest	true	"Song to create"
//	@Success		201		{object}	SongDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/songs [post]
func (h *Handler) CreateSong(w http.ResponseWriter, r *http.Request) {
	var req CreateSongRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	song, err := h.svc.CreateSong(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		h.writeServiceError(w, "create song", req.Path, err)
		return
	}
	writeJSON(w, http.StatusCreated, song)
}

// UpdateSong handles PUT /api/songs/*.
//
//	@Summary		Update a song with optimistic concurrency
//	@Tags			songs
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Song path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateSongRequest	true	"Updated content"
//	@Success		200		{object}	SongDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/songs/{path} [put]
func (h *Handler) UpdateSong(w http.ResponseWriter, r *http.Request) {
	path := songPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateSongRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	song, err := h.svc.UpdateSong(r.Context(), path, []byte(req.Content), r.Header.Get("If-Match"))
	if err != nil {
		h.writeServiceError(w, "update song", path, err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(song.Checksum))
	writeJSON(w, http.StatusOK, song)
}

// MoveSong handles POST /api/songs/move.
//
//	@Summary		Rename or move a song
//	@Tags			songs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveSongRequest	true	"Source and destination"
//	@Success		200		{object}	SongDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/songs/move [post]
func (h *Handler) MoveSong(w http.ResponseWriter, r *http.Request) {
	var req MoveSongRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	song, err := h.svc.MoveSong(r.Context(), req.From, req.To)
	if err != nil {
		h.writeServiceError(w, "move song", req.From, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// DeleteSong handles DELETE /api/songs/*.
//
//	@Summary		Delete a song
//	@Tags			songs
//	@Param			path	path	string	true	"Song path"
//	@Success		204		"Song deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/songs/{path} [delete]
func (h *Handler) DeleteSong(w http.ResponseWriter, r *http.Request) {
	path := songPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteSong(r.Context(), path); err != nil {
		h.writeServiceError(w, "delete song", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across songs
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		h.logger.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the song/chord graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		h.logger.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if nodes == nil {
		nodes = []index.GraphNode{}
	}
	if links == nil {
		links = []index.GraphLink{}
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}
