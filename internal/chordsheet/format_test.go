package chordsheet

import (
	"errors"
	"strings"
	"testing"
)

func TestChordProFormatter_VerseScenario(t *testing.T) {
	song, err := TablatureParser{}.Parse("[Verse 1]\nC G Am F\nHello there my friend")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := ChordProFormatter{}.Format(song)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := "{start_of_verse: Verse 1}\n[C]He[G]ll[Am]o t[F]here my friend\n{end_of_verse}"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestChordProFormatter_MetadataAndChordOnly(t *testing.T) {
	song := &Song{
		Metadata: Metadata{{Key: "title", Value: "Song"}},
		Lines: []Line{
			lyricLine([]Segment{{Chord: "C"}, {Chord: "G"}}),
			emptyLine(),
			directiveLine("start_of_chorus", ""),
		},
	}
	got, err := ChordProFormatter{}.Format(song)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := "{title: Song}\n[C] [G]\n\n{start_of_chorus}"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestChordProFormatter_StableOverOwnOutput(t *testing.T) {
	inputs := []string{
		"[Verse 1]\nC G Am F\nHello there my friend",
		"---\ntitle: Song\n---\n[Chorus]\nD  A\nsing it\n\nC G\n",
		"[C]Hello [G]world\n{c: end}",
	}
	for _, in := range inputs {
		first := convert(t, in)
		second := convert(t, first)
		if first != second {
			t.Errorf("not stable for %q:\nfirst  %q\nsecond %q", in, first, second)
		}
	}
}

func convert(t *testing.T, text string) string {
	t.Helper()
	song, err := TablatureParser{}.Parse(text)
	if err != nil {
		song, err = ChordsOverWordsParser{}.Parse(text)
	}
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	out, err := ChordProFormatter{}.Format(song)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	return out
}

func TestHTMLTableFormatter_Structure(t *testing.T) {
	song, err := ChordsOverWordsParser{}.Parse("{title: Song}\n{artist: Band}\n[Verse 1]\nC G Am F\nHello there my friend\n\njust words\n{c: quietly}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := HTMLTableFormatter{}.Format(song)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	for _, want := range []string{
		`<div class="chord-sheet">`,
		`<h1 class="title">Song</h1>`,
		`<h2 class="subtitle">Band</h2>`,
		`<div class="paragraph verse"><h3 class="label">Verse 1</h3>`,
		`<td class="chord">Am</td>`,
		`<td class="lyrics">o t</td>`,
		`<div class="paragraph"><table class="row"><tr><td class="lyrics">just words</td></tr></table><div class="comment">quietly</div></div>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestHTMLTableFormatter_Escapes(t *testing.T) {
	song := &Song{Lines: []Line{lyricLine([]Segment{{Lyrics: "<script>alert(1)</script>"}})}}
	got, err := HTMLTableFormatter{}.Format(song)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("unescaped output: %s", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("expected escaped script tag: %s", got)
	}
}

func TestFormatters_NilSong(t *testing.T) {
	for _, f := range []Formatter{ChordProFormatter{}, HTMLTableFormatter{}} {
		if _, err := f.Format(nil); !errors.Is(err, ErrRender) {
			t.Errorf("%s: err = %v, want ErrRender", f.Name(), err)
		}
	}
}
