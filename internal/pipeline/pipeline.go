// Package pipeline runs chord sheet text through an ordered list of
// parser/formatter strategies and falls back to the input when every
// strategy fails.
package pipeline

import (
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/starford/chordbook/internal/chordsheet"
)

// FallbackStrategy names the verbatim tier of RenderToDisplay.
const FallbackStrategy = "verbatim"

// Strategy pairs a parser with a formatter.
type Strategy struct {
	Name      string
	Parser    chordsheet.Parser
	Formatter chordsheet.Formatter
}

// run applies the strategy. A panic in the parser or formatter is
// returned as an error.
func (s Strategy) run(text string, transpose int) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline: %s: panic: %v", s.Name, r)
		}
	}()
	song, err := s.Parser.Parse(text)
	if err != nil {
		return "", err
	}
	if transpose != 0 {
		song = song.Transpose(transpose)
	}
	return s.Formatter.Format(song)
}

// Rendered is the outcome of RenderToDisplay.
type Rendered struct {
	HTML     string `json:"html"`
	Strategy string `json:"strategy"`
	Fallback bool   `json:"fallback"`
}

// Pipeline holds the conversion and render strategy lists.
type Pipeline struct {
	convert []Strategy
	render  []Strategy
	logger  *slog.Logger
}

// New returns a Pipeline with the default strategies: the tablature
// parser first, the chords-over-words parser second.
func New(logger *slog.Logger) *Pipeline {
	return NewWithStrategies(logger,
		[]Strategy{
			{Name: "ultimate-guitar/chordpro", Parser: chordsheet.TablatureParser{}, Formatter: chordsheet.ChordProFormatter{}},
			{Name: "chords-over-words/chordpro", Parser: chordsheet.ChordsOverWordsParser{}, Formatter: chordsheet.ChordProFormatter{}},
		},
		[]Strategy{
			{Name: "ultimate-guitar/html-table", Parser: chordsheet.TablatureParser{}, Formatter: chordsheet.HTMLTableFormatter{}},
			{Name: "chords-over-words/html-table", Parser: chordsheet.ChordsOverWordsParser{}, Formatter: chordsheet.HTMLTableFormatter{}},
		},
	)
}

// NewWithStrategies returns a Pipeline with explicit strategy lists.
func NewWithStrategies(logger *slog.Logger, convert, render []Strategy) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{convert: convert, render: render, logger: logger}
}

// ConvertToAnnotated converts text to inline-annotated ChordPro. When no
// strategy succeeds the input is returned unchanged.
func (p *Pipeline) ConvertToAnnotated(text string) string {
	out, _, ok := p.first(p.convert, text, 0)
	if !ok {
		return text
	}
	return out
}

// RenderOption adjusts a single RenderToDisplay call.
type RenderOption func(*renderOptions)

type renderOptions struct {
	transpose int
}

// WithTranspose shifts every chord by n semitones before rendering.
func WithTranspose(n int) RenderOption {
	return func(o *renderOptions) { o.transpose = n }
}

// RenderToDisplay renders text as HTML. When no strategy succeeds the
// text is wrapped, escaped, in a pre.chord-sheet-fallback block.
func (p *Pipeline) RenderToDisplay(text string, opts ...RenderOption) Rendered {
	var o renderOptions
	for _, opt := range opts {
		opt(&o)
	}
	out, name, ok := p.first(p.render, text, o.transpose)
	if !ok {
		return Rendered{HTML: Verbatim(text), Strategy: FallbackStrategy, Fallback: true}
	}
	return Rendered{HTML: out, Strategy: name}
}

// Parse returns the song from the first parser in the conversion list
// that accepts text.
func (p *Pipeline) Parse(text string) (*chordsheet.Song, error) {
	var errs []error
	for _, s := range p.convert {
		song, err := parseSafe(s, text)
		if err == nil {
			return song, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("pipeline: parse: %w", errors.Join(errs...))
}

// Verbatim wraps text in the fallback pre block.
func Verbatim(text string) string {
	return `<pre class="chord-sheet-fallback">` + html.EscapeString(text) + `</pre>`
}

func (p *Pipeline) first(strategies []Strategy, text string, transpose int) (string, string, bool) {
	for _, s := range strategies {
		out, err := s.run(text, transpose)
		if err == nil {
			return out, s.Name, true
		}
		p.logger.Warn("pipeline: strategy failed",
			slog.String("strategy", s.Name),
			slog.String("error", err.Error()))
	}
	return "", "", false
}

func parseSafe(s Strategy, text string) (song *chordsheet.Song, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline: %s: panic: %v", s.Parser.Name(), r)
		}
	}()
	return s.Parser.Parse(text)
}
