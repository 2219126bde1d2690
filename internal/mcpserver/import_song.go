package mcpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/chordbook/internal/storage"
)

var (
	// dataURITypes are the media types import_song accepts inline. An
	// empty type means text/plain.
	dataURITypes = map[string]struct{}{
		"":                         {},
		"text/plain":               {},
		"text/x-chordpro":          {},
		"application/octet-stream": {},
	}

	unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
)

// fetchFunc downloads a sheet; replaced in tests.
type fetchFunc func(ctx context.Context, rawURL string) ([]byte, error)

func (s *Server) importSong(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sheet, err := s.loadSheet(ctx, rawURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	target := req.GetString("path", "")
	if target == "" {
		target = songNameFromURL(rawURL)
	}
	if !storage.IsSongFile(target) {
		target = strings.TrimSuffix(target, filepath.Ext(target)) + ".cho"
	}
	return s.saveSong(ctx, target, s.pipe.ConvertToAnnotated(sheet))
}

// loadSheet resolves rawURL to plain sheet text. Ultimate Guitar tab pages
// are unwrapped and their [ch]/[tab] markup removed.
func (s *Server) loadSheet(ctx context.Context, rawURL string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(rawURL, "data:"):
		data, err = decodeDataURI(rawURL)
	case s.fetcher != nil:
		data, err = s.fetcher(ctx, rawURL)
	default:
		data, err = fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return "", err
	}
	if isHTML(data) {
		text, ok := extractPageSheet(data)
		if !ok {
			return "", errors.New("no chord sheet found in page")
		}
		data = []byte(text)
	}
	if err := checkSheet(data); err != nil {
		return "", err
	}
	return stripUGMarkup(string(data)), nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI holding text.
func decodeDataURI(uri string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("invalid data URI: missing comma separator")
	}

	params := strings.Split(meta, ";")
	if _, ok := dataURITypes[strings.ToLower(params[0])]; !ok {
		return nil, fmt.Errorf("unsupported MIME type in data URI: %s", params[0])
	}

	if params[len(params)-1] != "base64" {
		text, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("invalid data URI: %w", err)
		}
		return []byte(text), nil
	}

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding} {
		if data, err := enc.DecodeString(payload); err == nil {
			return data, nil
		}
	}
	return nil, errors.New("invalid base64 data in data URI")
}

// checkSheet accepts non-empty UTF-8 text within the song size limit.
func checkSheet(data []byte) error {
	switch {
	case len(data) > storage.MaxSongSize:
		return fmt.Errorf("sheet too large: exceeds %d bytes", storage.MaxSongSize)
	case len(strings.TrimSpace(string(data))) == 0:
		return errors.New("sheet is empty")
	case !utf8.Valid(data):
		return errors.New("sheet is not valid UTF-8 text")
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "text/") {
		return fmt.Errorf("content does not look like text (detected: %s)", ct)
	}
	return nil
}

func isHTML(data []byte) bool {
	return strings.HasPrefix(http.DetectContentType(data), "text/html")
}

// songNameFromURL derives a vault file name from the last URL path
// segment. Data URIs and empty paths get a random name.
func songNameFromURL(rawURL string) string {
	if strings.HasPrefix(rawURL, "data:") {
		return uuid.NewString() + ".cho"
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return uuid.NewString() + ".cho"
	}
	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		return uuid.NewString() + ".cho"
	}
	name := strings.Trim(unsafeNameRe.ReplaceAllString(base, "_"), "_")
	if name == "" || strings.HasPrefix(name, ".") {
		return uuid.NewString() + ".cho"
	}
	return name
}
