package chordsheet

import (
	"regexp"
	"strings"
)

var directiveRe = regexp.MustCompile(`^\{\s*([A-Za-z_][A-Za-z0-9_-]*)\s*(?::\s*(.*?))?\s*\}$`)

var directiveAliases = map[string]string{
	"t":   "title",
	"st":  "subtitle",
	"c":   "comment",
	"ci":  "comment_italic",
	"cb":  "comment_box",
	"soc": "start_of_chorus",
	"eoc": "end_of_chorus",
	"sov": "start_of_verse",
	"eov": "end_of_verse",
	"sob": "start_of_bridge",
	"eob": "end_of_bridge",
	"sot": "start_of_tab",
	"eot": "end_of_tab",
}

var metadataDirectives = map[string]bool{
	"title":     true,
	"subtitle":  true,
	"artist":    true,
	"composer":  true,
	"lyricist":  true,
	"album":     true,
	"year":      true,
	"key":       true,
	"tempo":     true,
	"time":      true,
	"capo":      true,
	"duration":  true,
	"copyright": true,
}

// parseDirective reads a "{name}" or "{name: value}" line. Aliases are
// expanded to their long names.
func parseDirective(line string) (Directive, bool) {
	m := directiveRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Directive{}, false
	}
	name := strings.ToLower(m[1])
	if long, ok := directiveAliases[name]; ok {
		name = long
	}
	return Directive{Name: name, Value: m[2]}, true
}

// IsMetadataDirective reports whether name is stored as song metadata
// rather than kept as a directive line.
func IsMetadataDirective(name string) bool {
	return metadataDirectives[name]
}
