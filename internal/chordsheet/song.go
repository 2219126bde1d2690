// Package chordsheet models chord sheets and converts between the
// chords-over-lyrics tablature layout and inline ChordPro annotations.
package chordsheet

// LineKind distinguishes lyric lines, directive lines and blank lines.
type LineKind int

// Line kinds.
const (
	LineLyrics LineKind = iota
	LineDirective
	LineEmpty
)

// Segment pairs an optional chord with the lyric text that follows it.
type Segment struct {
	Chord  string `json:"chord,omitempty"`
	Lyrics string `json:"lyrics"`
}

// Directive is a ChordPro tag such as {start_of_chorus} or {comment: x}.
type Directive struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// Line is one line of a song.
type Line struct {
	Kind      LineKind  `json:"kind"`
	Segments  []Segment `json:"segments,omitempty"`
	Directive Directive `json:"directive"`
}

// HasChords reports whether any segment carries a chord.
func (l Line) HasChords() bool {
	for _, s := range l.Segments {
		if s.Chord != "" {
			return true
		}
	}
	return false
}

// MetaEntry is a single metadata key/value pair.
type MetaEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Metadata holds song metadata in insertion order.
type Metadata []MetaEntry

// Set stores value under key, replacing an existing entry in place.
func (m *Metadata) Set(key, value string) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, MetaEntry{Key: key, Value: value})
}

// Get returns the value stored under key.
func (m Metadata) Get(key string) (string, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Keys returns the metadata keys in insertion order.
func (m Metadata) Keys() []string {
	keys := make([]string, len(m))
	for i, e := range m {
		keys[i] = e.Key
	}
	return keys
}

// Len returns the number of entries.
func (m Metadata) Len() int { return len(m) }

// Song is the structured result of parsing a chord sheet.
type Song struct {
	Metadata Metadata `json:"metadata,omitempty"`
	Lines    []Line   `json:"lines"`
}

// Chords returns the distinct chord symbols in order of first use.
func (s *Song) Chords() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range s.Lines {
		for _, seg := range l.Segments {
			if seg.Chord == "" {
				continue
			}
			if _, ok := seen[seg.Chord]; ok {
				continue
			}
			seen[seg.Chord] = struct{}{}
			out = append(out, seg.Chord)
		}
	}
	return out
}

// Transpose returns a copy of the song with every chord, and the key
// metadata, shifted by n semitones.
func (s *Song) Transpose(n int) *Song {
	out := &Song{
		Metadata: make(Metadata, len(s.Metadata)),
		Lines:    make([]Line, len(s.Lines)),
	}
	copy(out.Metadata, s.Metadata)
	if key, ok := out.Metadata.Get("key"); ok {
		out.Metadata.Set("key", TransposeSymbol(key, n))
	}
	for i, l := range s.Lines {
		nl := l
		if len(l.Segments) > 0 {
			nl.Segments = make([]Segment, len(l.Segments))
			for j, seg := range l.Segments {
				if seg.Chord != "" {
					seg.Chord = TransposeSymbol(seg.Chord, n)
				}
				nl.Segments[j] = seg
			}
		}
		out.Lines[i] = nl
	}
	return out
}

func lyricLine(segs []Segment) Line {
	return Line{Kind: LineLyrics, Segments: segs}
}

func directiveLine(name, value string) Line {
	return Line{Kind: LineDirective, Directive: Directive{Name: name, Value: value}}
}

func emptyLine() Line {
	return Line{Kind: LineEmpty}
}

// songBuilder appends lines and tracks a section opened by a bracketed
// header so it can be closed on the next blank line, header or EOF.
type songBuilder struct {
	song *Song
	open string
}

func newSongBuilder() *songBuilder {
	return &songBuilder{song: &Song{}}
}

func (b *songBuilder) add(l Line) {
	b.song.Lines = append(b.song.Lines, l)
}

func (b *songBuilder) openSection(kind, label string) {
	b.closeSection()
	b.add(directiveLine("start_of_"+kind, label))
	b.open = kind
}

func (b *songBuilder) closeSection() {
	if b.open == "" {
		return
	}
	b.add(directiveLine("end_of_"+b.open, ""))
	b.open = ""
}
