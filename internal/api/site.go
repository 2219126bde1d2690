package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/net/html"

	"github.com/starford/chordbook/internal/apperr"
	"github.com/starford/chordbook/internal/chordsheet"
	"github.com/starford/chordbook/internal/lifecycle"
	"github.com/starford/chordbook/internal/pipeline"
	"github.com/starford/chordbook/internal/readiness"
)

var fieldNameRule = validation.Match(regexp.MustCompile(`^[A-Za-z0-9_-]+$`))

// convertForm is the form posted by convert buttons.
type convertForm struct {
	Content      string
	TextAreaID   string
	TextAreaName string
}

// Validate implements validation.Validatable.
func (f *convertForm) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.TextAreaID, fieldNameRule),
		validation.Field(&f.TextAreaName, validation.Required, fieldNameRule),
	)
}

func formFromValues(v url.Values) convertForm {
	return convertForm{
		Content:      v.Get("content"),
		TextAreaID:   v.Get("textarea_id"),
		TextAreaName: v.Get("textarea_name"),
	}
}

// convertField converts content when it is a tablature sheet and picks
// the status line shown under the field.
// Surrounding whitespace is dropped before classifying and converting; an
// unconverted field keeps its value as sent.
func (h *Handler) convertField(content string) (string, lifecycle.Level, string) {
	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		return content, lifecycle.LevelWarning, lifecycle.MsgEmptyContent
	case !chordsheet.IsTablature(trimmed):
		return content, lifecycle.LevelWarning, lifecycle.MsgNotApplicable
	}
	return h.pipe.ConvertToAnnotated(trimmed), lifecycle.LevelSuccess, lifecycle.MsgConverted
}

// ConvertField handles POST /convert-to-chordpro/. It answers with the
// replacement field markup that convert buttons swap into the page.
func (h *Handler) ConvertField(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := formFromValues(r.PostForm)
	if err := form.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	content, level, status := h.convertField(form.Content)
	h.logger.Debug("convert field",
		slog.String("textarea_name", form.TextAreaName),
		slog.String("result", string(level)))
	writeHTML(w, http.StatusOK, chordproField(form.TextAreaID, form.TextAreaName, content, level, status))
}

// LocalRequester answers convert buttons in-process with the markup
// POST /convert-to-chordpro/ would return.
func LocalRequester(pipe *pipeline.Pipeline) lifecycle.Requester {
	h := &Handler{pipe: pipe}
	return lifecycle.RequesterFunc(func(_ context.Context, v url.Values) (string, error) {
		form := formFromValues(v)
		if err := form.Validate(); err != nil {
			return "", fmt.Errorf("api: convert form: %w", err)
		}
		content, level, status := h.convertField(form.Content)
		var b strings.Builder
		if err := html.Render(&b, chordproField(form.TextAreaID, form.TextAreaName, content, level, status)); err != nil {
			return "", fmt.Errorf("api: render field: %w", err)
		}
		return b.String(), nil
	})
}

// SongPage handles GET /songs/*: the song rendered server-side by a
// document-ready lifecycle pass.
func (h *Handler) SongPage(w http.ResponseWriter, r *http.Request) {
	path := songPath(r)
	if path == "" {
		http.NotFound(w, r)
		return
	}
	song, err := h.svc.GetSong(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("song page failed", slog.String("path", path), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	doc := lifecycle.NewDocument(songPage(song, h.ctrl.Config()))
	if _, err := h.ctrl.Handle(r.Context(), lifecycle.DocumentReady, doc); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, readiness.ErrNotReady) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	writeHTML(w, http.StatusOK, doc.Root())
}
