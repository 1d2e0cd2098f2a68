// Package align attaches readings to dictionary headwords.
//
// A raw annotation looks like 言い方(いいかた). The reading is distributed over the
// headword so that each maximal kanji run gets the part of the reading it stands for,
// while hiragana in the headword passes through:
//
//	言い方(いいかた) -> 言(い)い方(かた)
//
// Text alone does not mark where one kanji's reading ends, so the headword is scanned
// right to left and every headword kana is used as an anchor in the reading. When that
// fails the headword is handed to a fallback Converter instead.
package align

import (
	"context"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"furiganafmt/kanji"
	"furiganafmt/logger"
	"furiganafmt/model"
)

// Classifier tags headword characters.
type Classifier interface {
	IsHiragana(r rune) bool
	IsKanji(r rune) bool
}

// Converter converts text the scan could not align.
type Converter interface {
	Convert(ctx context.Context, text string, opts model.ConvertOptions) (string, error)
}

// FallbackOptions are what the engine always asks the fallback for.
var FallbackOptions = model.ConvertOptions{Mode: model.ModeOkurigana, To: model.ScriptHiragana}

// Outcome says how a Result's text was produced.
type Outcome int

const (
	// Success: the text was built by the engine itself.
	Success Outcome = iota
	// Fallback: the text is the fallback converter's output, verbatim.
	Fallback
	// Unreachable: the fallback failed too; the text is the headword as given.
	Unreachable
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Fallback:
		return "fallback"
	case Unreachable:
		return "unreachable"
	}
	return "unknown"
}

// Result is the outcome of a single Align call.
type Result struct {
	Text    string
	Outcome Outcome
	// Segments is set only when the scan produced the text.
	Segments []Segment
	// AlignErr is the scan failure that sent the headword to the fallback, if any.
	AlignErr *Error
	// FallbackErr is set when Outcome is Unreachable.
	FallbackErr error
}

// Annotation is a raw input split into its headword and reading.
type Annotation struct {
	Headword string
	Reading  string
}

// Parse splits raw at the first '(' and the first ')' after it.
// ok is false when either parenthesis is missing; Headword is then raw itself.
func Parse(raw string) (a Annotation, ok bool) {
	open := strings.IndexByte(raw, '(')
	if open < 0 {
		return Annotation{Headword: raw}, false
	}
	closing := strings.IndexByte(raw[open+1:], ')')
	if closing < 0 {
		return Annotation{Headword: raw}, false
	}
	return Annotation{
		Headword: raw[:open],
		Reading:  raw[open+1 : open+1+closing],
	}, true
}

// Engine aligns annotations. It holds no per-call state and is safe for concurrent use.
type Engine struct {
	classifier Classifier
	fallback   Converter
	logger     *zap.SugaredLogger
}

// New returns an engine. A nil logger discards output.
func New(classifier Classifier, fallback Converter, log *zap.SugaredLogger) *Engine {
	return &Engine{
		classifier: classifier,
		fallback:   fallback,
		logger:     logger.OrNop(log),
	}
}

// Align renders raw with its reading distributed over the headword.
// It never fails: scan errors and fallback errors are reported in the Result.
func (e *Engine) Align(ctx context.Context, raw string) Result {
	a, ok := Parse(raw)
	if !ok || a.Reading == "" {
		return Result{Text: a.Headword, Outcome: Success}
	}

	first, _ := utf8.DecodeRuneInString(a.Reading)
	if kanji.IsLatin(first) {
		// an English gloss, not a reading
		return Result{Text: a.Headword, Outcome: Success}
	}
	if !e.classifier.IsHiragana(first) {
		e.logger.Debugw("reading is not hiragana, using fallback", logger.FieldRaw, raw)
		return e.delegate(ctx, a.Headword, nil)
	}

	segs, serr := scan(a.Headword, a.Reading, e.classifier)
	if serr != nil {
		serr.Raw = raw
		e.logger.Warnw("alignment failed, using fallback",
			logger.FieldErrorType, serr.Kind.String(),
			logger.FieldRaw, raw,
		)
		headword := a.Headword
		if i := strings.IndexByte(headword, '/'); i >= 0 {
			headword = headword[:i]
		}
		return e.delegate(ctx, headword, serr)
	}

	return Result{Text: Render(segs), Outcome: Success, Segments: segs}
}

func (e *Engine) delegate(ctx context.Context, text string, cause *Error) Result {
	if e.fallback == nil {
		return e.unreachable(text, cause, ErrNoFallback)
	}
	out, err := e.fallback.Convert(ctx, text, FallbackOptions)
	if err != nil {
		return e.unreachable(text, cause, errors.Wrapf(err, "fallback conversion of %q", text))
	}
	return Result{Text: out, Outcome: Fallback, AlignErr: cause}
}

func (e *Engine) unreachable(text string, cause *Error, err error) Result {
	e.logger.Errorw("fallback failed, keeping headword",
		logger.FieldText, text,
		logger.FieldError, err,
	)
	return Result{Text: text, Outcome: Unreachable, AlignErr: cause, FallbackErr: err}
}

// Align is a convenience wrapper that only returns the rendered text.
func Align(ctx context.Context, raw string, classifier Classifier, fallback Converter) string {
	return New(classifier, fallback, nil).Align(ctx, raw).Text
}

// scan walks the headword right to left, consuming the reading from its end.
//
// kanaEnd is the last unconsumed reading index, kanjiEnd the rightmost index of the
// kanji run being collected or -1. A headword kana closes an open run: the nearest
// equal kana before kanaEnd is taken as its counterpart and everything between
// belongs to the run. Without an open run the kana must match the reading tail
// exactly. Whatever is left when the scan reaches the start becomes one leading
// segment; two separate kanji runs with no kana between them cannot be told apart.
func scan(headword, reading string, c Classifier) ([]Segment, *Error) {
	hw := []rune(headword)
	rd := []rune(reading)
	kanaEnd := len(rd) - 1
	kanjiEnd := -1

	// built back to front, reversed once at the end
	segs := make([]Segment, 0, len(hw))

	for i := len(hw) - 1; i >= 0; i-- {
		ch := hw[i]
		switch {
		case c.IsHiragana(ch):
			if kanjiEnd != -1 {
				found := lastIndex(rd[:kanaEnd+1], ch)
				if found < 0 {
					return nil, &Error{Kind: ReadingMismatch, Index: i, Char: ch}
				}
				segs = append(segs,
					Kanji(string(hw[i+1:kanjiEnd+1]), string(rd[found+1:kanaEnd+1])),
					Kana(ch),
				)
				kanaEnd = found - 1
				kanjiEnd = -1
				continue
			}
			if kanaEnd < 0 || rd[kanaEnd] != ch {
				return nil, &Error{Kind: ReadingMismatch, Index: i, Char: ch}
			}
			segs = append(segs, Kana(ch))
			kanaEnd--
		case c.IsKanji(ch):
			if kanjiEnd == -1 {
				kanjiEnd = i
			}
		default:
			return nil, &Error{Kind: UnsupportedCharacter, Index: i, Char: ch}
		}
	}

	if kanjiEnd != -1 || kanaEnd >= 0 {
		segs = append(segs, Kanji(string(hw[:kanjiEnd+1]), string(rd[:kanaEnd+1])))
	}
	slices.Reverse(segs)
	return segs, nil
}

func lastIndex(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}
