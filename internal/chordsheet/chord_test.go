package chordsheet

import "testing"

func TestIsChord(t *testing.T) {
	valid := []string{"C", "Am", "F#m7", "Bb", "G/B", "Dsus4", "Cadd9", "Emaj7", "C7b9", "A7(#5)", "Bdim", "C+", "Gm7/F", "D6"}
	for _, s := range valid {
		if !IsChord(s) {
			t.Errorf("IsChord(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "H", "Hello", "c", "Am/", "[C]", "Cx", "Amen"}
	for _, s := range invalid {
		if IsChord(s) {
			t.Errorf("IsChord(%q) = true, want false", s)
		}
	}
}

func TestParseChord_Parts(t *testing.T) {
	c, ok := ParseChord("F#m7/C#")
	if !ok {
		t.Fatal("expected chord")
	}
	if c.Root != "F#" || c.Suffix != "m7" || c.Bass != "C#" {
		t.Errorf("chord = %+v", c)
	}
	if c.String() != "F#m7/C#" {
		t.Errorf("String() = %q", c.String())
	}
}

func TestTransposeSymbol(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"C", 2, "D"},
		{"Am", 3, "Cm"},
		{"B", 1, "C"},
		{"C", -1, "B"},
		{"Bb", 2, "C"},
		{"Eb", 1, "E"},
		{"Ab", 3, "B"},
		{"Db7", 1, "D7"},
		{"G/B", 2, "A/C#"},
		{"F#m7", 12, "F#m7"},
		{"N.C.", 2, "N.C."},
	}
	for _, c := range cases {
		if got := TransposeSymbol(c.in, c.n); got != c.want {
			t.Errorf("TransposeSymbol(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}
