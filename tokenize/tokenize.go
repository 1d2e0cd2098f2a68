// Package tokenize wraps the kagome morphological analyzer and uses it to give
// kanji text a kana reading when the reading cannot be aligned from the source data.
package tokenize

import (
	"context"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ikawaha/kagome-dict/dict"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome-dict/uni"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"go.uber.org/zap"

	"furiganafmt/kanji"
	"furiganafmt/logger"
	"furiganafmt/model"
)

// Token represents a token / morpheme produced by the tokenizer.
type Token = model.Token

// Dictionaries that can back a Converter.
const (
	DictIPA = "ipa"
	DictUni = "uni"
)

// ErrUnsupportedMode is returned for conversion modes the converter does not implement.
var ErrUnsupportedMode = errors.New("unsupported conversion mode")

// Converter turns Japanese text into kana readings using kagome.
// A Converter is safe for concurrent use.
type Converter struct {
	kg     *tokenizer.Tokenizer
	logger *zap.SugaredLogger
}

// New builds a converter on the named system dictionary.
func New(dictionary string, log *zap.SugaredLogger) (*Converter, error) {
	d, err := loadDict(dictionary)
	if err != nil {
		return nil, err
	}
	// omit BOS/EOS, they carry no surface
	t, err := tokenizer.New(d, tokenizer.OmitBosEos())
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize kagome tokenizer")
	}
	return &Converter{kg: t, logger: logger.OrNop(log)}, nil
}

func loadDict(name string) (*dict.Dict, error) {
	switch name {
	case DictIPA, "":
		return ipa.Dict(), nil
	case DictUni:
		return uni.Dict(), nil
	}
	return nil, errors.Newf("unknown tokenizer dictionary %q", name)
}

// Tokenize runs kagome in normal mode.
func (c *Converter) Tokenize(text string) []Token {
	if text == "" {
		return nil
	}
	return convertKagomeTokens(c.kg.Tokenize(text))
}

func convertKagomeTokens(ktoks []tokenizer.Token) []Token {
	out := make([]Token, 0, len(ktoks))
	for _, kt := range ktoks {
		lemma, _ := kt.BaseForm()
		if lemma == "" || lemma == "*" {
			lemma = kt.Surface
		}
		reading := tokenReading(kt)
		out = append(out, Token{
			Text:    kt.Surface,
			Lemma:   lemma,
			POS:     strings.Join(kt.POS(), ","),
			Start:   kt.Start,
			End:     kt.End,
			Reading: reading,
		})
	}
	return out
}

// tokenReading returns the kana reading of kt. UniDic has no reading column, so its
// pronunciation (発音形出現形) is used instead.
func tokenReading(kt tokenizer.Token) string {
	if r, ok := kt.Reading(); ok && r != "*" {
		return r
	}
	if p, ok := kt.Pronunciation(); ok && p != "*" {
		return p
	}
	return ""
}

// Convert renders text according to opts. In ModeOkurigana kanji keep their place and
// are followed by their reading in parentheses, e.g. 食べる -> 食(た)べる.
func (c *Converter) Convert(ctx context.Context, text string, opts model.ConvertOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	toks := c.Tokenize(text)
	switch opts.Mode {
	case model.ModeNormal, "":
		for _, t := range toks {
			if t.Reading == "" {
				b.WriteString(t.Text)
				continue
			}
			b.WriteString(toScript(t.Reading, opts.To))
		}
	case model.ModeOkurigana:
		for _, t := range toks {
			if !kanji.HasKanji(t.Text) || t.Reading == "" {
				b.WriteString(t.Text)
				continue
			}
			b.WriteString(okurigana(t.Text, toScript(t.Reading, opts.To)))
		}
	default:
		return "", errors.Wrapf(ErrUnsupportedMode, "mode %q", opts.Mode)
	}

	c.logger.Debugw("converted", logger.FieldText, text, logger.FieldMode, string(opts.Mode), logger.FieldCount, len(toks))
	return b.String(), nil
}

func toScript(reading string, to model.Script) string {
	if to == model.ScriptKatakana {
		return kanji.HiraganaToKatakana(reading)
	}
	return kanji.KatakanaToHiragana(reading)
}

// okurigana annotates a single token. The surface is cut into kanji and kana runs;
// kana runs must appear literally in the reading and the kanji runs take what lies
// between them. If the reading does not fit, the whole token is annotated.
func okurigana(surface, reading string) string {
	runs := splitRuns(surface)

	var pattern strings.Builder
	pattern.WriteByte('^')
	for _, r := range runs {
		if r.kanji {
			pattern.WriteString("(.+?)")
			continue
		}
		pattern.WriteString(regexp.QuoteMeta(kanji.KatakanaToHiragana(r.text)))
	}
	pattern.WriteByte('$')

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return surface + "(" + reading + ")"
	}
	m := re.FindStringSubmatch(kanji.KatakanaToHiragana(reading))
	if m == nil {
		return surface + "(" + reading + ")"
	}

	var b strings.Builder
	group := 1
	readingRunes := []rune(reading)
	offset := 0
	for _, r := range runs {
		if !r.kanji {
			b.WriteString(r.text)
			offset += len([]rune(r.text))
			continue
		}
		// slice the original reading so the target script is kept
		n := len([]rune(m[group]))
		b.WriteString(r.text)
		b.WriteByte('(')
		b.WriteString(string(readingRunes[offset : offset+n]))
		b.WriteByte(')')
		offset += n
		group++
	}
	return b.String()
}

type run struct {
	text  string
	kanji bool
}

func splitRuns(s string) []run {
	var runs []run
	for _, r := range s {
		k := kanji.IsKanji(r)
		if n := len(runs); n > 0 && runs[n-1].kanji == k {
			runs[n-1].text += string(r)
			continue
		}
		runs = append(runs, run{text: string(r), kanji: k})
	}
	return runs
}
