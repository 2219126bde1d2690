package chordsheet

import (
	"regexp"
	"strings"
)

var (
	bracketLineRe = regexp.MustCompile(`^\[.*\]$`)
	chordLineRe   = regexp.MustCompile(`^[A-G][#b]?[m]?[0-9]*[/A-G#b]*(\s+[A-G][#b]?[m]?[0-9]*[/A-G#b]*)*\s*$`)
	letterRe      = regexp.MustCompile(`[a-zA-Z]`)
)

// Verdict is the result of classifying a chord sheet.
type Verdict int

// Verdicts.
const (
	Annotated Verdict = iota
	Tablature
)

func (v Verdict) String() string {
	if v == Tablature {
		return "tablature"
	}
	return "annotated"
}

// Classify decides whether text uses the tablature layout (chords on
// their own line above the lyrics) or is already annotated inline.
//
// Text is tablature when a trimmed line is wholly bracketed ("[Verse 1]")
// or when a chord line is immediately followed by a line containing
// letters.
func Classify(text string) Verdict {
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		if bracketLineRe.MatchString(strings.TrimSpace(line)) {
			return Tablature
		}
	}
	for i := 0; i < len(lines)-1; i++ {
		if !chordLineRe.MatchString(strings.TrimSpace(lines[i])) {
			continue
		}
		if letterRe.MatchString(strings.TrimSpace(lines[i+1])) {
			return Tablature
		}
	}
	return Annotated
}

// IsTablature reports whether Classify returns Tablature.
func IsTablature(text string) bool {
	return Classify(text) == Tablature
}
