package chordsheet

import (
	"regexp"
	"strings"
)

// chordRe matches a single chord symbol: root, accidental, quality,
// extensions, parenthesised alterations and an optional slash bass.
var chordRe = regexp.MustCompile(`^([A-G][#b]?)((?:maj|min|dim|aug|sus|add|m|M|\+|°|ø)?\d*(?:(?:sus|add|maj|no|b|#)\d+)*(?:\([^()\s]*\))?)(?:/([A-G][#b]?))?$`)

var (
	sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	flatNames  = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}

	noteIndex = map[string]int{
		"C": 0, "B#": 0,
		"C#": 1, "Db": 1,
		"D":  2,
		"D#": 3, "Eb": 3,
		"E": 4, "Fb": 4,
		"F": 5, "E#": 5,
		"F#": 6, "Gb": 6,
		"G":  7,
		"G#": 8, "Ab": 8,
		"A":  9,
		"A#": 10, "Bb": 10,
		"B": 11, "Cb": 11,
	}
)

// Chord is a parsed chord symbol such as "C#m7" or "G/B".
type Chord struct {
	Root   string
	Suffix string
	Bass   string
}

// ParseChord parses a chord symbol. The second result is false when s is
// not a chord.
func ParseChord(s string) (Chord, bool) {
	m := chordRe.FindStringSubmatch(s)
	if m == nil {
		return Chord{}, false
	}
	return Chord{Root: m[1], Suffix: m[2], Bass: m[3]}, true
}

// IsChord reports whether s is a chord symbol.
func IsChord(s string) bool {
	return chordRe.MatchString(s)
}

// String returns the chord symbol.
func (c Chord) String() string {
	var b strings.Builder
	b.WriteString(c.Root)
	b.WriteString(c.Suffix)
	if c.Bass != "" {
		b.WriteByte('/')
		b.WriteString(c.Bass)
	}
	return b.String()
}

// Transpose shifts the root and bass by n semitones. Flat roots keep
// flat spelling, everything else is spelled with sharps.
func (c Chord) Transpose(n int) Chord {
	flat := strings.HasSuffix(c.Root, "b")
	c.Root = transposeNote(c.Root, n, flat)
	if c.Bass != "" {
		c.Bass = transposeNote(c.Bass, n, flat)
	}
	return c
}

func transposeNote(note string, n int, flat bool) string {
	idx, ok := noteIndex[note]
	if !ok {
		return note
	}
	i := ((idx+n)%12 + 12) % 12
	if flat {
		return flatNames[i]
	}
	return sharpNames[i]
}

// TransposeSymbol transposes a chord symbol, returning it unchanged when
// it does not parse.
func TransposeSymbol(symbol string, n int) string {
	c, ok := ParseChord(symbol)
	if !ok || n%12 == 0 {
		return symbol
	}
	return c.Transpose(n).String()
}
