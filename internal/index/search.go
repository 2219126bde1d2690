package index

import (
	"strings"
	"unicode"
)

const (
	defaultSearchLimit = 20
	snippetRadius      = 60
)

// excerpt returns up to radius runes either side of the first
// case-insensitive occurrence of query in body. A body without a match
// yields its opening runes.
func excerpt(body, query string, radius int) string {
	src := []rune(body)
	pos := runeIndexFold(src, []rune(query))
	start, end := 0, min(len(src), 2*radius)
	if pos >= 0 {
		start = max(0, pos-radius)
		end = min(len(src), pos+len([]rune(query))+radius)
	}
	out := strings.Join(strings.Fields(string(src[start:end])), " ")
	if start > 0 {
		out = "..." + out
	}
	if end < len(src) {
		out += "..."
	}
	return out
}

func runeIndexFold(s, sub []rune) int {
	if len(sub) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(sub) <= len(s); i++ {
		for j, r := range sub {
			if unicode.ToLower(s[i+j]) != unicode.ToLower(r) {
				continue outer
			}
		}
		return i
	}
	return -1
}
