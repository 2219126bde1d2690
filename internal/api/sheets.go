package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/chordbook/internal/chordsheet"
	"github.com/starford/chordbook/internal/lifecycle"
	"github.com/starford/chordbook/internal/pipeline"
	"github.com/starford/chordbook/internal/readiness"
)

// transposeParam reads the optional ?transpose= query parameter. It
// writes the 400 response itself and reports false when the value is bad.
func transposeParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("transpose")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err == nil {
		err = validation.Validate(n, validation.Min(-11), validation.Max(11))
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("transpose must be an integer between -11 and 11"))
		return 0, false
	}
	return n, true
}

// Classify handles POST /api/classify.
//
//	@Summary		Classify a chord sheet as tablature or annotated
//	@Tags			sheets
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SheetRequest	true	"Chord sheet"
//	@Success		200		{object}	ClassifyResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/classify [post]
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req SheetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, ClassifyResponse{Format: chordsheet.Classify(req.Content).String()})
}

// Convert handles POST /api/convert.
//
//	@Summary		Convert an Ultimate Guitar sheet to ChordPro
//	@Tags			sheets
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SheetRequest	true	"Chord sheet"
//	@Success		200		{object}	ConvertResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert [post]
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req SheetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out := h.pipe.ConvertToAnnotated(req.Content)
	writeJSON(w, http.StatusOK, ConvertResponse{
		Content:   out,
		Format:    chordsheet.Classify(req.Content).String(),
		Converted: out != req.Content,
	})
}

// Render handles POST /api/render.
//
//	@Summary		Render a chord sheet to HTML
//	@Tags			sheets
//	@Accept			json
//	@Produce		json
//	@Param			transpose	query		int				false	"Semitones to transpose"
//	@Param			body		body		SheetRequest	true	"Chord sheet"
//	@Success		200			{object}	RenderResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render [post]
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	n, ok := transposeParam(w, r)
	if !ok {
		return
	}
	var req SheetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := h.pipe.RenderToDisplay(req.Content, pipeline.WithTranspose(n))
	writeJSON(w, http.StatusOK, RenderResponse{HTML: res.HTML, Strategy: res.Strategy, Fallback: res.Fallback, Transpose: n})
}

// Pass handles POST /api/lifecycle/pass.
//
//	@Summary		Run one lifecycle pass over an HTML document
//	@Tags			lifecycle
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PassRequest	true	"Document and trigger"
//	@Success		200		{object}	PassResponse
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/lifecycle/pass [post]
func (h *Handler) Pass(w http.ResponseWriter, r *http.Request) {
	var req PassRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trigger, _ := lifecycle.ParseTrigger(req.Trigger)
	doc, err := lifecycle.ParseString(req.HTML)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid HTML document"))
		return
	}
	report, err := h.ctrl.Handle(r.Context(), trigger, doc)
	if err != nil {
		if errors.Is(err, readiness.ErrNotReady) {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("renderer not ready"))
			return
		}
		h.logger.Error("lifecycle pass failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, PassResponse{HTML: doc.String(), Report: report})
}

// SongsWithChord handles GET /api/chords/{chord}/songs.
//
//	@Summary		List songs that use a chord
//	@Tags			graph
//	@Produce		json
//	@Param			chord	path		string	true	"Chord symbol"
//	@Success		200		{object}	ChordSongsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/chords/{chord}/songs [get]
func (h *Handler) SongsWithChord(w http.ResponseWriter, r *http.Request) {
	chord, err := url.PathUnescape(chi.URLParam(r, "chord"))
	if err != nil || !chordsheet.IsChord(chord) {
		writeJSON(w, http.StatusBadRequest, errorBody("not a chord symbol"))
		return
	}
	songs, err := h.svc.SongsWithChord(r.Context(), chord)
	if err != nil {
		h.writeServiceError(w, "songs with chord", chord, err)
		return
	}
	writeJSON(w, http.StatusOK, ChordSongsResponse{Chord: chord, Songs: songs})
}
