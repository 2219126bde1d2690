package chordsheet

import "strings"

// ChordProFormatter writes a Song as ChordPro text with inline chords.
type ChordProFormatter struct{}

// Name returns the formatter name used in logs.
func (ChordProFormatter) Name() string { return "chordpro" }

// Format renders metadata as directives, then every line in order.
func (f ChordProFormatter) Format(song *Song) (string, error) {
	if song == nil {
		return "", &RenderError{Formatter: f.Name(), Err: errNilSong}
	}
	out := make([]string, 0, len(song.Metadata)+len(song.Lines))
	for _, e := range song.Metadata {
		out = append(out, formatDirective(Directive{Name: e.Key, Value: e.Value}))
	}
	for _, l := range song.Lines {
		switch l.Kind {
		case LineDirective:
			out = append(out, formatDirective(l.Directive))
		case LineEmpty:
			out = append(out, "")
		default:
			out = append(out, formatSegments(l.Segments))
		}
	}
	return strings.Join(out, "\n"), nil
}

func formatDirective(d Directive) string {
	if d.Value == "" {
		return "{" + d.Name + "}"
	}
	return "{" + d.Name + ": " + d.Value + "}"
}

func formatSegments(segs []Segment) string {
	chordOnly := true
	for _, s := range segs {
		if s.Lyrics != "" {
			chordOnly = false
			break
		}
	}

	var sb strings.Builder
	for i, s := range segs {
		if chordOnly && i > 0 {
			sb.WriteByte(' ')
		}
		if s.Chord != "" {
			sb.WriteString("[" + s.Chord + "]")
		}
		sb.WriteString(s.Lyrics)
	}
	return sb.String()
}
