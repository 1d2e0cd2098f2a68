package align

import "strings"

// SegmentKind tells kana passthrough segments from annotated kanji runs.
type SegmentKind int

const (
	KanaSegment SegmentKind = iota
	KanjiSegment
)

// Segment is one piece of an aligned headword.
type Segment struct {
	Kind    SegmentKind
	Kana    rune
	Kanji   string
	Reading string
}

// Kana returns a passthrough segment for a single headword kana.
func Kana(r rune) Segment {
	return Segment{Kind: KanaSegment, Kana: r}
}

// Kanji pairs a kanji run with its reading slice.
func Kanji(run, reading string) Segment {
	return Segment{Kind: KanjiSegment, Kanji: run, Reading: reading}
}

func (s Segment) String() string {
	if s.Kind == KanaSegment {
		return string(s.Kana)
	}
	return s.Kanji + "(" + s.Reading + ")"
}

// Render concatenates segments left to right.
func Render(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		if s.Kind == KanaSegment {
			b.WriteRune(s.Kana)
			continue
		}
		b.WriteString(s.Kanji)
		b.WriteByte('(')
		b.WriteString(s.Reading)
		b.WriteByte(')')
	}
	return b.String()
}
