package chordsheet

import (
	"bytes"
	"errors"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var errNilSong = errors.New("nil song")

// HTMLTableFormatter renders a Song as a div of paragraphs, each lyric
// line a two-row table with chords above lyrics.
type HTMLTableFormatter struct{}

// Name returns the formatter name used in logs.
func (HTMLTableFormatter) Name() string { return "html-table" }

// Format builds the node tree and serialises it.
func (f HTMLTableFormatter) Format(song *Song) (string, error) {
	if song == nil {
		return "", &RenderError{Formatter: f.Name(), Err: errNilSong}
	}
	root := SongNode(song)
	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", &RenderError{Formatter: f.Name(), Err: err}
	}
	return buf.String(), nil
}

// SongNode returns the div.chord-sheet tree for song.
func SongNode(song *Song) *html.Node {
	root := element("div", "chord-sheet")
	if title, ok := song.Metadata.Get("title"); ok && title != "" {
		root.AppendChild(textElement("h1", "title", title))
	}
	sub, ok := song.Metadata.Get("subtitle")
	if !ok || sub == "" {
		sub, _ = song.Metadata.Get("artist")
	}
	if sub != "" {
		root.AppendChild(textElement("h2", "subtitle", sub))
	}

	var para *html.Node
	current := func() *html.Node {
		if para == nil {
			para = element("div", "paragraph")
			root.AppendChild(para)
		}
		return para
	}

	for _, l := range song.Lines {
		switch l.Kind {
		case LineEmpty:
			para = nil
		case LineDirective:
			d := l.Directive
			switch {
			case strings.HasPrefix(d.Name, "start_of_"):
				para = element("div", "paragraph "+strings.TrimPrefix(d.Name, "start_of_"))
				root.AppendChild(para)
				if d.Value != "" {
					para.AppendChild(textElement("h3", "label", d.Value))
				}
			case strings.HasPrefix(d.Name, "end_of_"):
				para = nil
			case strings.HasPrefix(d.Name, "comment"):
				current().AppendChild(textElement("div", "comment", d.Value))
			}
		default:
			current().AppendChild(rowNode(l))
		}
	}
	return root
}

func rowNode(l Line) *html.Node {
	table := element("table", "row")
	if l.HasChords() {
		tr := element("tr", "")
		for _, s := range l.Segments {
			tr.AppendChild(textElement("td", "chord", s.Chord))
		}
		table.AppendChild(tr)
	}
	tr := element("tr", "")
	for _, s := range l.Segments {
		tr.AppendChild(textElement("td", "lyrics", s.Lyrics))
	}
	table.AppendChild(tr)
	return table
}

func element(tag, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	if class != "" {
		n.Attr = []html.Attribute{{Key: "class", Val: class}}
	}
	return n
}

func textElement(tag, class, text string) *html.Node {
	n := element(tag, class)
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return n
}
