// Package logging builds the application's slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New returns a logger writing to w (stdout when nil). FormatJSON emits
// structured JSON lines; FormatText emits colourised key=value lines for
// terminals.
func New(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	if w == nil {
		w = os.Stdout
	}
	switch format {
	case "", FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	case FormatText:
		h := charmlog.NewWithOptions(w, charmlog.Options{
			ReportTimestamp: true,
			Level:           charmlog.Level(level),
		})
		return slog.New(h), nil
	}
	return nil, fmt.Errorf("logging: unknown format %q", format)
}
