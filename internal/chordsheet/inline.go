package chordsheet

import (
	"errors"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// inlineLine is the grammar for a lyric line with inline chord
// annotations, e.g. "[C]Hello [G]world".
//
//nolint:govet // participle grammar tags are not standard struct tags
type inlineLine struct {
	Parts []*inlinePart `@@*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type inlinePart struct {
	Chord *string `  @Chord`
	Text  *string `| @Text`
}

var inlineLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Chord", Pattern: `\[[^\[\]]*\]`},
	{Name: "Text", Pattern: `[^\[\]]+`},
})

var inlineParser = participle.MustBuild[inlineLine](
	participle.Lexer(inlineLexer),
)

// parseInline splits an annotated line into segments. Text before the
// first chord becomes a chordless segment.
func parseInline(line string) ([]Segment, error) {
	parsed, err := inlineParser.ParseString("", line)
	if err != nil {
		return nil, err
	}

	var segs []Segment
	for _, p := range parsed.Parts {
		switch {
		case p.Chord != nil:
			chord := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(*p.Chord, "["), "]"))
			if chord == "" {
				return nil, errors.New("empty chord annotation")
			}
			segs = append(segs, Segment{Chord: chord})
		case p.Text != nil:
			if len(segs) == 0 {
				segs = append(segs, Segment{})
			}
			segs[len(segs)-1].Lyrics += *p.Text
		}
	}
	return segs, nil
}
