package mcpserver

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	storeSel = cascadia.MustCompile("div.js-store[data-content]")
	preSel   = cascadia.MustCompile("pre")

	// ugMarkupRe matches the inline tags Ultimate Guitar wraps around
	// chords and chord-over-lyric blocks.
	ugMarkupRe = regexp.MustCompile(`\[/?(?:ch|tab)\]`)
)

// ugStore is the part of the page state blob that holds the sheet.
type ugStore struct {
	Store struct {
		Page struct {
			Data struct {
				TabView struct {
					WikiTab struct {
						Content string `json:"content"`
					} `json:"wiki_tab"`
				} `json:"tab_view"`
			} `json:"data"`
		} `json:"page"`
	} `json:"store"`
}

// extractPageSheet pulls the sheet text out of a tab page. It reads the
// embedded page state first and falls back to the first <pre> block.
func extractPageSheet(page []byte) (string, bool) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", false
	}

	if n := cascadia.Query(doc, storeSel); n != nil {
		var st ugStore
		if json.Unmarshal([]byte(attr(n, "data-content")), &st) == nil {
			if c := st.Store.Page.Data.TabView.WikiTab.Content; strings.TrimSpace(c) != "" {
				return normalizeNewlines(c), true
			}
		}
	}

	if n := cascadia.Query(doc, preSel); n != nil {
		if text := textOf(n); strings.TrimSpace(text) != "" {
			return normalizeNewlines(text), true
		}
	}
	return "", false
}

// stripUGMarkup removes [ch] and [tab] wrappers, leaving the plain
// chords-over-lyrics layout.
func stripUGMarkup(s string) string {
	return ugMarkupRe.ReplaceAllString(s, "")
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
