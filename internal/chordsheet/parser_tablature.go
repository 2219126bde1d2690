package chordsheet

import "strings"

const frontmatterFence = "---"

// TablatureParser reads Ultimate Guitar style sheets: bracketed section
// headers and chord lines positioned above lyric lines.
type TablatureParser struct{}

// Name returns the parser name used in logs.
func (TablatureParser) Name() string { return "ultimate-guitar" }

// Parse builds a Song from tablature text. Inline chord annotations,
// ChordPro directives and YAML frontmatter are not part of this layout
// and produce a *ParseError.
func (p TablatureParser) Parse(text string) (*Song, error) {
	lines := splitLines(text)
	if strings.TrimSpace(lines[0]) == frontmatterFence {
		return nil, &ParseError{Parser: p.Name(), Line: 1, Msg: "frontmatter is not part of the tablature layout"}
	}

	b := newSongBuilder()
	for i := 0; i < len(lines); {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			b.closeSection()
			b.add(emptyLine())
			i++
			continue
		}
		if strings.HasPrefix(trimmed, "{") {
			return nil, &ParseError{Parser: p.Name(), Line: i + 1, Msg: "chordpro directive in tablature"}
		}
		if m := headerRe.FindStringSubmatch(line); m != nil {
			label := strings.TrimSpace(m[1])
			if label == "" {
				return nil, &ParseError{Parser: p.Name(), Line: i + 1, Msg: "empty section header"}
			}
			b.openSection(sectionKind(label), label)
			i++
			continue
		}
		if strings.ContainsAny(line, "[]") {
			return nil, &ParseError{Parser: p.Name(), Line: i + 1, Msg: "inline chord annotation in tablature"}
		}
		if chords, ok := chordLineTokens(line); ok {
			l, n := chordsOverWords(lines, i, chords)
			b.add(l)
			i += n
			continue
		}

		b.add(lyricLine([]Segment{{Lyrics: line}}))
		i++
	}
	b.closeSection()
	return b.song, nil
}
