package chordsheet

import (
	"regexp"
	"strings"
	"unicode"
)

// headerRe matches a whole-line bracketed section header like "[Chorus]".
var headerRe = regexp.MustCompile(`^\s*\[([^\[\]]*)\]\s*$`)

// Parser turns chord sheet text into a Song.
type Parser interface {
	Name() string
	Parse(text string) (*Song, error)
}

// Formatter turns a Song into output text.
type Formatter interface {
	Name() string
	Format(song *Song) (string, error)
}

type chordToken struct {
	col  int
	text string
}

// splitLines normalises line endings and splits text into lines.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// chordLineTokens returns the chords of line with their rune columns. The
// second result is false for blank lines and for lines with any token
// that is not a chord.
func chordLineTokens(line string) ([]chordToken, bool) {
	runes := []rune(line)
	var out []chordToken
	for i := 0; i < len(runes); {
		if unicode.IsSpace(runes[i]) {
			i++
			continue
		}
		start := i
		for i < len(runes) && !unicode.IsSpace(runes[i]) {
			i++
		}
		tok := string(runes[start:i])
		if !IsChord(tok) {
			return nil, false
		}
		out = append(out, chordToken{col: start, text: tok})
	}
	return out, len(out) > 0
}

// isLyricLine reports whether line can sit under a chord line.
func isLyricLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "{") || strings.ContainsAny(line, "[]") {
		return false
	}
	_, chords := chordLineTokens(line)
	return !chords
}

// mergeChordsOverLyrics splits lyrics at the chord columns. Lyrics shorter
// than the last chord column are padded with spaces so every chord keeps
// its offset.
func mergeChordsOverLyrics(chords []chordToken, lyrics string) []Segment {
	runes := []rune(lyrics)
	last := chords[len(chords)-1].col
	for len(runes) < last {
		runes = append(runes, ' ')
	}

	segs := make([]Segment, 0, len(chords)+1)
	if chords[0].col > 0 {
		segs = append(segs, Segment{Lyrics: string(runes[:chords[0].col])})
	}
	for i, c := range chords {
		end := len(runes)
		if i+1 < len(chords) {
			end = chords[i+1].col
		}
		segs = append(segs, Segment{Chord: c.text, Lyrics: string(runes[c.col:end])})
	}
	return segs
}

func chordOnlySegments(chords []chordToken) []Segment {
	segs := make([]Segment, len(chords))
	for i, c := range chords {
		segs[i] = Segment{Chord: c.text}
	}
	return segs
}

// sectionKind maps a header label to a ChordPro environment name.
func sectionKind(label string) string {
	l := strings.ToLower(label)
	switch {
	case strings.HasPrefix(l, "verse"):
		return "verse"
	case strings.HasPrefix(l, "chorus"):
		return "chorus"
	case strings.HasPrefix(l, "bridge"):
		return "bridge"
	default:
		return "part"
	}
}

// chordsOverWords handles a chord line at lines[i]. It returns the line to
// append and how many input lines it consumed.
func chordsOverWords(lines []string, i int, chords []chordToken) (Line, int) {
	if i+1 < len(lines) && isLyricLine(lines[i+1]) {
		return lyricLine(mergeChordsOverLyrics(chords, lines[i+1])), 2
	}
	return lyricLine(chordOnlySegments(chords)), 1
}
