package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/chordbook/internal/storage"
)

const maxUploadBytes = 50 << 20

// attachmentExts lists the file types a song may carry alongside it:
// scanned charts, recordings, notation and plain-text notes.
var attachmentExts = map[string]struct{}{
	".pdf": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {},
	".mp3": {}, ".ogg": {}, ".m4a": {}, ".wav": {},
	".gp": {}, ".gp5": {}, ".gpx": {}, ".mid": {}, ".midi": {},
	".txt": {},
}

var (
	errNoFilename    = errors.New("filename is required")
	errBadAttachment = errors.New("unsupported attachment type")
)

// AttachmentHandler serves and stores the files kept under the vault's
// attachments folder.
type AttachmentHandler struct {
	dir    string
	logger *slog.Logger
}

// NewAttachmentHandler roots the handler at vaultRoot/attachments.
func NewAttachmentHandler(vaultRoot string, logger *slog.Logger) *AttachmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttachmentHandler{dir: filepath.Join(vaultRoot, storage.AttachmentsDir), logger: logger}
}

// locate maps a bare file name to its absolute path. Names carrying a
// directory part, a leading dot or an unknown extension are refused.
func (h *AttachmentHandler) locate(name string) (string, error) {
	if name == "" {
		return "", errNoFilename
	}
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	if _, ok := attachmentExts[strings.ToLower(filepath.Ext(name))]; !ok {
		return "", fmt.Errorf("%w: %s", errBadAttachment, name)
	}
	return filepath.Join(h.dir, name), nil
}

// ServeFile handles GET /attachments/{filename}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.locate(chi.URLParam(r, "filename"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fi, err := os.Stat(abs)
	if err != nil || fi.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
// A name already taken gets a short random prefix instead of overwriting.
//
//	@Summary		Upload an attachment
//	@Tags			attachments
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	AttachmentUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attachments [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	src, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer src.Close()

	name := filepath.Base(filepath.Clean(header.Filename))
	abs, err := h.locate(name)
	switch {
	case errors.Is(err, errBadAttachment):
		writeJSON(w, http.StatusUnsupportedMediaType, errorBody(err.Error()))
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		h.logger.Error("attachments: mkdir failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create attachments dir"))
		return
	}

	dst, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		name = uuid.NewString()[:8] + "-" + name
		abs = filepath.Join(h.dir, name)
		dst, err = os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		h.logger.Error("attachments: create failed", slog.String("name", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create file"))
		return
	}

	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(abs)
		h.logger.Error("attachments: write failed", slog.String("name", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}

	h.logger.Info("attachments: stored", slog.String("name", name), slog.Int64("size", written))
	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Filename: name,
		Size:     written,
		URL:      "/attachments/" + name,
	})
}
