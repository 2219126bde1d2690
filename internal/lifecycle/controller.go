// Package lifecycle re-initialises chord sheet widgets on an HTML
// document after the initial load and after every partial content swap:
// it renders chord sheet containers, intercepts pastes into text areas
// and wires convert buttons to the conversion endpoint.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/starford/chordbook/internal/pipeline"
	"github.com/starford/chordbook/internal/readiness"
)

// Listener keys. Registering under a fixed key keeps repeated passes
// from stacking handlers.
const (
	pasteListenerKey   = "chordbook.paste"
	convertListenerKey = "chordbook.convert"
)

// Trigger says why a pass runs.
type Trigger int

// Triggers.
const (
	DocumentReady Trigger = iota
	ContentSwapped
)

func (t Trigger) String() string {
	if t == ContentSwapped {
		return "content-swapped"
	}
	return "document-ready"
}

// ParseTrigger maps a trigger name back to its value.
func ParseTrigger(s string) (Trigger, error) {
	switch s {
	case "", "document-ready":
		return DocumentReady, nil
	case "content-swapped":
		return ContentSwapped, nil
	}
	return 0, fmt.Errorf("lifecycle: unknown trigger %q", s)
}

// State is the controller's position within a pass.
type State int32

// States.
const (
	Idle State = iota
	Scanning
	Rendering
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Rendering:
		return "rendering"
	default:
		return "idle"
	}
}

// Pipeline converts and renders chord sheet text.
type Pipeline interface {
	ConvertToAnnotated(text string) string
	RenderToDisplay(text string, opts ...pipeline.RenderOption) pipeline.Rendered
}

// Requester posts a conversion form and returns replacement markup.
type Requester interface {
	Convert(ctx context.Context, form url.Values) (string, error)
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(ctx context.Context, form url.Values) (string, error)

// Convert calls f.
func (f RequesterFunc) Convert(ctx context.Context, form url.Values) (string, error) {
	return f(ctx, form)
}

// Config names the markup the controller looks for.
type Config struct {
	ContainerSelector string `yaml:"container_selector" toml:"container_selector"`
	ContentAttr       string `yaml:"content_attr" toml:"content_attr"`
	RenderedClass     string `yaml:"rendered_class" toml:"rendered_class"`
	TextAreaSelector  string `yaml:"textarea_selector" toml:"textarea_selector"`
	ButtonSelector    string `yaml:"button_selector" toml:"button_selector"`
}

// DefaultConfig returns the stock markup contract.
func DefaultConfig() Config {
	return Config{
		ContainerSelector: ".chordpro-container",
		ContentAttr:       "data-chordpro-content",
		RenderedClass:     "chord-sheet-rendered",
		TextAreaSelector:  "textarea",
		ButtonSelector:    ".convert-chordpro-btn[data-textarea-index]",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ContainerSelector == "" {
		c.ContainerSelector = d.ContainerSelector
	}
	if c.ContentAttr == "" {
		c.ContentAttr = d.ContentAttr
	}
	if c.RenderedClass == "" {
		c.RenderedClass = d.RenderedClass
	}
	if c.TextAreaSelector == "" {
		c.TextAreaSelector = d.TextAreaSelector
	}
	if c.ButtonSelector == "" {
		c.ButtonSelector = d.ButtonSelector
	}
	return c
}

// PassReport summarises one pass.
type PassReport struct {
	ID         string        `json:"id"`
	Trigger    string        `json:"trigger"`
	Containers int           `json:"containers"`
	Rendered   int           `json:"rendered"`
	Fallbacks  int           `json:"fallbacks"`
	Strategies []string      `json:"strategies,omitempty"`
	Skipped    int           `json:"skipped"`
	TextAreas  int           `json:"text_areas"`
	Buttons    int           `json:"buttons"`
	Duration   time.Duration `json:"duration"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets the notification surface.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithRequester sets the client used by convert buttons.
func WithRequester(r Requester) Option {
	return func(c *Controller) { c.requester = r }
}

// WithGate sets the readiness gate awaited before each pass.
func WithGate(g *readiness.Gate) Option {
	return func(c *Controller) { c.gate = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithConfig overrides the markup contract.
func WithConfig(cfg Config) Option {
	return func(c *Controller) { c.cfg = cfg }
}

// Controller runs lifecycle passes. Passes are serialised.
type Controller struct {
	pipe      Pipeline
	notifier  Notifier
	requester Requester
	gate      *readiness.Gate
	logger    *slog.Logger
	cfg       Config

	mu    sync.Mutex
	state atomic.Int32
}

// New returns a controller using p for rendering and conversion.
func New(p Pipeline, opts ...Option) *Controller {
	c := &Controller{pipe: p}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.notifier == nil {
		c.notifier = LogNotifier{Logger: c.logger}
	}
	if c.gate == nil {
		c.gate = readiness.Always()
	}
	c.cfg = c.cfg.withDefaults()
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Config returns the effective markup contract.
func (c *Controller) Config() Config {
	return c.cfg
}

// Handle runs one pass over doc: render every container, then register
// paste and convert handlers. Running it again on the same document
// gives the same markup and the same handler set.
func (c *Controller) Handle(ctx context.Context, trigger Trigger, doc *Document) (PassReport, error) {
	start := time.Now()
	report := PassReport{ID: uuid.NewString(), Trigger: trigger.String()}
	logger := c.logger.With(slog.String("pass", report.ID), slog.String("trigger", report.Trigger))

	// The gate is awaited outside c.mu so a pass stuck on it never blocks
	// later callers past their own deadlines.
	if err := c.gate.Wait(ctx); err != nil {
		logger.Warn("lifecycle: renderer not ready", slog.String("error", err.Error()))
		return report, fmt.Errorf("lifecycle: wait for renderer: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("lifecycle: handle: %w", err)
	}

	c.state.Store(int32(Scanning))
	defer c.state.Store(int32(Idle))

	containers, err := doc.QueryAll(c.cfg.ContainerSelector)
	if err != nil {
		return report, err
	}
	report.Containers = len(containers)

	c.state.Store(int32(Rendering))
	for _, n := range containers {
		content, _ := Attr(n, c.cfg.ContentAttr)
		if strings.TrimSpace(content) == "" {
			report.Skipped++
			continue
		}
		r := c.pipe.RenderToDisplay(content)
		if err := doc.SetInnerHTML(n, r.HTML); err != nil {
			logger.Warn("lifecycle: replace container failed", slog.String("error", err.Error()))
			report.Skipped++
			continue
		}
		AddClass(n, c.cfg.RenderedClass)
		report.Rendered++
		report.Strategies = append(report.Strategies, r.Strategy)
		if r.Fallback {
			report.Fallbacks++
		}
	}
	c.state.Store(int32(Scanning))

	areas, err := doc.QueryAll(c.cfg.TextAreaSelector)
	if err != nil {
		return report, err
	}
	for _, n := range areas {
		doc.On(n, EventPaste, pasteListenerKey, c.onPaste)
	}
	report.TextAreas = len(areas)

	buttons, err := doc.QueryAll(c.cfg.ButtonSelector)
	if err != nil {
		return report, err
	}
	for _, n := range buttons {
		doc.On(n, EventClick, convertListenerKey, c.onConvertClick)
	}
	report.Buttons = len(buttons)

	report.Duration = time.Since(start)
	logger.Debug("lifecycle: pass complete",
		slog.Int("containers", report.Containers),
		slog.Int("rendered", report.Rendered),
		slog.Int("text_areas", report.TextAreas),
		slog.Int("buttons", report.Buttons))
	return report, nil
}

// onPaste splices the clipboard text over the selection, puts the caret
// after it and notifies input listeners.
func (c *Controller) onPaste(ctx context.Context, ev *Event) {
	ev.PreventDefault()
	ta := ev.Doc.TextArea(ev.Target)
	ta.Insert(ev.Clipboard)
	ev.Doc.Dispatch(ctx, &Event{Type: EventInput, Target: ev.Target})
}

// onConvertClick sends the paired textarea to the conversion endpoint and
// swaps its wrapper with the response.
func (c *Controller) onConvertClick(ctx context.Context, ev *Event) {
	doc := ev.Doc
	idx, _ := Attr(ev.Target, "data-textarea-index")
	name := "text_content_" + idx

	n, err := doc.Query(fmt.Sprintf("textarea[name=%q]", name))
	if err != nil || n == nil {
		c.logger.Warn("lifecycle: convert target missing", slog.String("textarea_name", name))
		return
	}
	if c.requester == nil {
		c.logger.Warn("lifecycle: no requester configured", slog.String("textarea_name", name))
		return
	}

	id, _ := Attr(n, "id")
	if id == "" {
		id = name
	}
	form := url.Values{}
	form.Set("content", doc.TextArea(n).Value())
	form.Set("textarea_id", id)
	form.Set("textarea_name", name)

	markup, err := c.requester.Convert(ctx, form)
	if err != nil {
		c.logger.Error("lifecycle: convert request failed",
			slog.String("textarea_name", name),
			slog.String("error", err.Error()))
		c.notifier.Notify(ctx, Notification{Level: LevelError, Message: "Conversion request failed", Err: err})
		return
	}

	target := n.Parent
	if target == nil || target.Type != html.ElementNode {
		target = n
	}
	if _, err := doc.ReplaceOuter(target, markup); err != nil {
		c.logger.Error("lifecycle: swap failed", slog.String("error", err.Error()))
		return
	}
	if _, err := c.Handle(ctx, ContentSwapped, doc); err != nil {
		c.logger.Warn("lifecycle: post-swap pass failed", slog.String("error", err.Error()))
	}
}
