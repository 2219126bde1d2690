package lifecycle

import (
	"context"
	"strings"

	"golang.org/x/net/html"
)

// TextArea edits the value and selection of a textarea node. Offsets are
// in runes.
type TextArea struct {
	doc  *Document
	node *html.Node
}

// TextArea wraps n.
func (d *Document) TextArea(n *html.Node) *TextArea {
	return &TextArea{doc: d, node: n}
}

// TextAreaByID finds the textarea with the given id attribute.
func (d *Document) TextAreaByID(id string) (*TextArea, bool) {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "textarea" {
			if v, ok := Attr(n, "id"); ok && v == id {
				found = n
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	if found == nil {
		return nil, false
	}
	return d.TextArea(found), true
}

// Node returns the underlying node.
func (t *TextArea) Node() *html.Node { return t.node }

// Value returns the text content.
func (t *TextArea) Value() string {
	var sb strings.Builder
	for c := t.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// SetValue replaces the text content and moves the caret to the end.
func (t *TextArea) SetValue(v string) {
	for c := t.node.FirstChild; c != nil; {
		next := c.NextSibling
		t.node.RemoveChild(c)
		c = next
	}
	if v != "" {
		t.node.AppendChild(&html.Node{Type: html.TextNode, Data: v})
	}
	n := len([]rune(v))
	t.SetSelection(n, n)
}

// Selection returns the selection bounds. Without an explicit selection
// the caret sits at the end of the value.
func (t *TextArea) Selection() (start, end int) {
	n := len([]rune(t.Value()))
	t.doc.mu.Lock()
	s, ok := t.doc.selection[t.node]
	t.doc.mu.Unlock()
	if !ok {
		return n, n
	}
	return clamp(s.start, 0, n), clamp(s.end, 0, n)
}

// SetSelection sets the selection bounds, clamped to the value.
func (t *TextArea) SetSelection(start, end int) {
	n := len([]rune(t.Value()))
	start = clamp(start, 0, n)
	end = clamp(end, start, n)
	t.doc.mu.Lock()
	t.doc.selection[t.node] = selection{start: start, end: end}
	t.doc.mu.Unlock()
}

// Insert replaces the selection with text and places the caret after it.
func (t *TextArea) Insert(text string) {
	start, end := t.Selection()
	v := []rune(t.Value())
	ins := []rune(text)

	out := make([]rune, 0, len(v)-(end-start)+len(ins))
	out = append(out, v[:start]...)
	out = append(out, ins...)
	out = append(out, v[end:]...)

	t.SetValue(string(out))
	caret := start + len(ins)
	t.SetSelection(caret, caret)
}

// Paste dispatches a paste event carrying text. Unless a listener
// prevents it, text is inserted over the selection.
func (t *TextArea) Paste(ctx context.Context, text string) {
	ev := &Event{Type: EventPaste, Target: t.node, Clipboard: text}
	t.doc.Dispatch(ctx, ev)
	if !ev.DefaultPrevented() {
		t.Insert(text)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
