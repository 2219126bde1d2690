// Package songmeta extracts frontmatter, directives, tags and chords from
// chord sheet files.
package songmeta

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/chordbook/internal/chordsheet"
)

// Result holds the output of parsing a song file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
	Artist      string
	Key         string
	Tags        []string
	Chords      []string
	Format      chordsheet.Verdict
}

// Parse extracts frontmatter, body, metadata and chords from raw bytes.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)
	song := parseSong(body)

	res := &Result{
		Frontmatter: fm,
		Body:        body,
		Format:      chordsheet.Classify(body),
	}
	if song != nil {
		res.Chords = song.Chords()
	}
	res.Title = pick(fm, song, "title")
	res.Artist = pick(fm, song, "artist")
	if res.Artist == "" {
		res.Artist = pick(nil, song, "subtitle")
	}
	res.Key = pick(fm, song, "key")
	res.Tags = extractTags(fm, song)
	return res, nil
}

// parseSong tries the tablature parser, then the chords-over-words
// parser. It returns nil when neither accepts the body.
func parseSong(body string) *chordsheet.Song {
	parsers := []chordsheet.Parser{chordsheet.TablatureParser{}, chordsheet.ChordsOverWordsParser{}}
	for _, p := range parsers {
		if song, err := p.Parse(body); err == nil {
			return song
		}
	}
	return nil
}

// splitFrontmatter separates YAML frontmatter (between leading ---
// delimiters) from the body. Without frontmatter, or with invalid YAML,
// the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// pick returns a frontmatter string value, falling back to song metadata
// set by directives.
func pick(fm map[string]interface{}, song *chordsheet.Song, key string) string {
	if fm != nil {
		if v, ok := fm[key]; ok {
			switch s := v.(type) {
			case string:
				if s != "" {
					return s
				}
			case int, float64:
				return yamlScalar(s)
			}
		}
	}
	if song != nil {
		if v, ok := song.Metadata.Get(key); ok {
			return v
		}
	}
	return ""
}

func yamlScalar(v interface{}) string {
	out, err := yaml.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// extractTags collects tags from the frontmatter "tags" field and from
// {tag: x} directives, without duplicates.
func extractTags(fm map[string]interface{}, song *chordsheet.Song) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if fm != nil {
		switch v := fm["tags"].(type) {
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		case string:
			for _, s := range strings.Split(v, ",") {
				add(s)
			}
		}
	}

	if song != nil {
		for _, l := range song.Lines {
			if l.Kind == chordsheet.LineDirective && l.Directive.Name == "tag" {
				add(l.Directive.Value)
			}
		}
	}
	return out
}
