package dictionary

import (
	"context"
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/width"

	"furiganafmt/align"
)

// Rule is how records of a dictionary file are rewritten.
type Rule int

const (
	// RuleNone: the file is not handled.
	RuleNone Rule = iota
	// RuleNotation: trans[0] starts with an annotated headword that becomes the notation field.
	RuleNotation
	// RuleRomaji: the record name is a romaji rendering. Recognised but not produced here.
	RuleRomaji
)

func (r Rule) String() string {
	switch r {
	case RuleNotation:
		return "notation"
	case RuleRomaji:
		return "romaji"
	}
	return "none"
}

// file name prefixes, checked in order
var prefixRules = []struct {
	prefix string
	rule   Rule
}{
	{"Japanesebasicword", RuleRomaji},
	{"JapVocab", RuleRomaji},
	{"Jap_", RuleNotation},
}

// MatchRule picks the rule for a file name.
func MatchRule(name string) Rule {
	for _, pr := range prefixRules {
		if strings.HasPrefix(name, pr.prefix) {
			return pr.rule
		}
	}
	return RuleNone
}

// Aligner is the part of align.Engine the processor uses.
type Aligner interface {
	Align(ctx context.Context, raw string) align.Result
}

// SplitTrans separates the annotated headword at the front of a translation line from
// the rest. Fields are separated by two spaces; the first single space inside the
// headword field is dropped.
func SplitTrans(trans string) (annotation, rest string) {
	parts := strings.Split(trans, "  ")
	annotation = strings.Replace(parts[0], " ", "", 1)
	rest = strings.Join(parts[1:], "  ")
	return annotation, rest
}

// NormalizeAnnotation folds full-width ASCII (parentheses, Latin letters) to half width
// so scraped annotations like 食べる（たべる） parse.
func NormalizeAnnotation(s string) string {
	out, _, err := transform.String(width.Fold, s)
	if err != nil {
		return s
	}
	return out
}
