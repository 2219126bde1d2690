package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Event types dispatched on a Document.
const (
	EventPaste = "paste"
	EventInput = "input"
	EventClick = "click"
)

// Event is delivered to listeners registered on a node.
type Event struct {
	Type      string
	Target    *html.Node
	Doc       *Document
	Clipboard string

	defaultPrevented bool
}

// PreventDefault suppresses the built-in action for the event.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// Listener handles an event.
type Listener func(ctx context.Context, ev *Event)

type keyedListener struct {
	key string
	fn  Listener
}

type selection struct {
	start, end int
}

// Document is a parsed HTML page with per-node event listeners and text
// area selections.
type Document struct {
	root *html.Node

	mu        sync.Mutex
	listeners map[*html.Node]map[string][]keyedListener
	selection map[*html.Node]selection
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: parse document: %w", err)
	}
	return NewDocument(root), nil
}

// ParseString reads an HTML document from s.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// NewDocument wraps an existing node tree.
func NewDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		listeners: make(map[*html.Node]map[string][]keyedListener),
		selection: make(map[*html.Node]selection),
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, returning "" on error.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// QueryAll returns all nodes matching selector in document order.
func (d *Document) QueryAll(selector string) ([]*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: selector %q: %w", selector, err)
	}
	return sel.MatchAll(d.root), nil
}

// Query returns the first node matching selector, or nil.
func (d *Document) Query(selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: selector %q: %w", selector, err)
	}
	return sel.MatchFirst(d.root), nil
}

// On registers fn for eventType on n under key. A listener already
// registered under the same key is replaced.
func (d *Document) On(n *html.Node, eventType, key string, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byType, ok := d.listeners[n]
	if !ok {
		byType = make(map[string][]keyedListener)
		d.listeners[n] = byType
	}
	list := byType[eventType]
	for i := range list {
		if list[i].key == key {
			list[i].fn = fn
			return
		}
	}
	byType[eventType] = append(list, keyedListener{key: key, fn: fn})
}

// Off removes the listener registered under key.
func (d *Document) Off(n *html.Node, eventType, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byType := d.listeners[n]
	list := byType[eventType]
	for i := range list {
		if list[i].key == key {
			byType[eventType] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of listeners for eventType on n.
func (d *Document) ListenerCount(n *html.Node, eventType string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners[n][eventType])
}

// Dispatch delivers ev to the listeners of its target in registration
// order. Listeners may register or remove listeners while running.
func (d *Document) Dispatch(ctx context.Context, ev *Event) {
	ev.Doc = d
	d.mu.Lock()
	list := append([]keyedListener(nil), d.listeners[ev.Target][ev.Type]...)
	d.mu.Unlock()

	for _, l := range list {
		l.fn(ctx, ev)
	}
}

// Click dispatches a click event on n.
func (d *Document) Click(ctx context.Context, n *html.Node) {
	d.Dispatch(ctx, &Event{Type: EventClick, Target: n})
}

// SetInnerHTML replaces the children of n with the parsed markup.
func (d *Document) SetInnerHTML(n *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		return fmt.Errorf("lifecycle: parse fragment: %w", err)
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		d.forget(c)
		n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

// ReplaceOuter replaces n with the nodes parsed from markup and returns
// them. Listeners on the removed subtree are dropped.
func (d *Document) ReplaceOuter(n *html.Node, markup string) ([]*html.Node, error) {
	parent := n.Parent
	if parent == nil {
		return nil, errors.New("lifecycle: replace detached node")
	}
	ctxNode := parent
	if parent.Type != html.ElementNode {
		ctxNode = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctxNode)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: parse fragment: %w", err)
	}
	for _, c := range nodes {
		parent.InsertBefore(c, n)
	}
	d.forget(n)
	parent.RemoveChild(n)
	return nodes, nil
}

// forget drops listener and selection state for the subtree rooted at n.
func (d *Document) forget(n *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		delete(d.listeners, n)
		delete(d.selection, n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasClass reports whether n carries class.
func HasClass(n *html.Node, class string) bool {
	v, _ := Attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass adds class to n unless already present.
func AddClass(n *html.Node, class string) {
	if HasClass(n, class) {
		return
	}
	for i := range n.Attr {
		if n.Attr[i].Key == "class" {
			n.Attr[i].Val = strings.TrimSpace(n.Attr[i].Val + " " + class)
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
}
