package chordsheet

import "strings"

// ChordsOverWordsParser reads ChordPro-flavoured sheets. It accepts
// frontmatter, directives, inline annotations, bracketed headers and
// chord lines over lyrics, in any mix.
type ChordsOverWordsParser struct{}

// Name returns the parser name used in logs.
func (ChordsOverWordsParser) Name() string { return "chords-over-words" }

// Parse builds a Song, failing with a *ParseError on unbalanced brackets,
// empty chord annotations and malformed directives.
func (p ChordsOverWordsParser) Parse(text string) (*Song, error) {
	meta, lines, offset, err := splitFrontmatter(splitLines(text))
	if err != nil {
		return nil, &ParseError{Parser: p.Name(), Line: 1, Msg: err.Error()}
	}

	b := newSongBuilder()
	b.song.Metadata = meta
	for i := 0; i < len(lines); {
		line := lines[i]
		lineNo := offset + i + 1
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			b.closeSection()
			b.add(emptyLine())
			i++
			continue

		case strings.HasPrefix(trimmed, "{"):
			d, ok := parseDirective(trimmed)
			if !ok {
				return nil, &ParseError{Parser: p.Name(), Line: lineNo, Msg: "malformed directive"}
			}
			if IsMetadataDirective(d.Name) {
				b.song.Metadata.Set(d.Name, d.Value)
			} else {
				if strings.HasPrefix(d.Name, "start_of_") {
					b.closeSection()
				}
				b.add(directiveLine(d.Name, d.Value))
			}
			i++
			continue
		}

		if m := headerRe.FindStringSubmatch(line); m != nil {
			label := strings.TrimSpace(m[1])
			if label == "" {
				return nil, &ParseError{Parser: p.Name(), Line: lineNo, Msg: "empty chord annotation"}
			}
			if !IsChord(label) {
				b.openSection(sectionKind(label), label)
				i++
				continue
			}
		}

		if strings.ContainsAny(line, "[]") {
			segs, err := parseInline(line)
			if err != nil {
				return nil, &ParseError{Parser: p.Name(), Line: lineNo, Msg: err.Error()}
			}
			b.add(lyricLine(segs))
			i++
			continue
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
