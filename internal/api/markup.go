package api

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/chordbook/internal/lifecycle"
	"github.com/starford/chordbook/internal/songservice"
)

// Markup shared with the lifecycle controller's default configuration.
const (
	textAreaPrefix = "text_content_"
	fieldClass     = "chordpro-field"
	buttonClass    = "convert-chordpro-btn"
	buttonLabel    = "Convert to ChordPro"
)

func el(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i+1] == "" {
			continue
		}
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func text(n *html.Node, s string) *html.Node {
	if s != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
	return n
}

// classFromSelector returns the class named by a simple ".class"
// selector, or fallback for anything more complex.
func classFromSelector(sel, fallback string) string {
	c, ok := strings.CutPrefix(sel, ".")
	if !ok || c == "" || strings.ContainsAny(c, " .#[]:>+~,") {
		return fallback
	}
	return c
}

// chordproField builds the editable field returned by the conversion
// endpoint: the textarea, its convert button and a status line.
func chordproField(id, name, content string, level lifecycle.Level, status string) *html.Node {
	field := el("div", "class", fieldClass)
	field.AppendChild(text(el("textarea", "id", id, "name", name, "rows", "20"), content))

	if idx, ok := strings.CutPrefix(name, textAreaPrefix); ok && idx != "" {
		field.AppendChild(text(el("button",
			"type", "button",
			"class", buttonClass,
			"data-textarea-index", idx,
			"hx-post", "/convert-to-chordpro/",
		), buttonLabel))
	}
	if status != "" {
		field.AppendChild(text(el("div",
			"class", "chordpro-status chordpro-status-"+string(level),
			"role", "status",
		), status))
	}
	return field
}

// songPage builds a full HTML page for a song: a chord sheet container
// holding the raw content and an editor field for it.
func songPage(song *songservice.SongDetail, cfg lifecycle.Config) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := el("html", "lang", "en")
	doc.AppendChild(root)

	head := el("head")
	head.AppendChild(el("meta", "charset", "utf-8"))
	title := song.Title
	if title == "" {
		title = song.Path
	}
	head.AppendChild(text(el("title"), title))
	root.AppendChild(head)

	body := el("body")
	root.AppendChild(body)
	main := el("main", "class", "song", "data-song-path", song.Path)
	body.AppendChild(main)

	main.AppendChild(SongContainer(song.Content, cfg))

	form := el("form", "class", "song-editor", "method", "post")
	form.AppendChild(chordproField("id_"+textAreaPrefix+"0", textAreaPrefix+"0", song.Content, lifecycle.LevelInfo, ""))
	main.AppendChild(form)
	return doc
}

// SongContainer returns an unrendered chord sheet container holding content.
func SongContainer(content string, cfg lifecycle.Config) *html.Node {
	return el("div",
		"class", classFromSelector(cfg.ContainerSelector, "chordpro-container"),
		cfg.ContentAttr, content,
	)
}
