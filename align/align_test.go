package align

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"furiganafmt/kanji"
	"furiganafmt/model"
)

type fakeFallback struct {
	mu    sync.Mutex
	calls []string
	opts  []model.ConvertOptions
	out   string
	err   error
}

func (f *fakeFallback) Convert(_ context.Context, text string, opts model.ConvertOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

var _ Converter = (*fakeFallback)(nil)

func newTestEngine(fb Converter) (*Engine, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return New(kanji.Classifier{}, fb, zap.New(core).Sugar()), logs
}

func TestAlignSuccess(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"食べる(たべる)", "食(た)べる"},
		{"言い方(いいかた)", "言(い)い方(かた)"},
		{"方(かた)", "方(かた)"},
		{"日本語(にほんご)", "日本語(にほんご)"},
		{"お茶(おちゃ)", "お茶(ちゃ)"},
		{"引き出し(ひきだし)", "引(ひ)き出(だ)し"},
		{"話し合い(はなしあい)", "話(はな)し合(あ)い"},
		{"人々(ひとびと)", "人々(ひとびと)"},
		{"ありがとう(ありがとう)", "ありがとう"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			fb := &fakeFallback{out: "unused"}
			e, _ := newTestEngine(fb)

			res := e.Align(context.Background(), tt.raw)

			assert.Equal(t, tt.want, res.Text)
			assert.Equal(t, Success, res.Outcome)
			assert.Nil(t, res.AlignErr)
			assert.Empty(t, fb.calls)
		})
	}
}

func TestAlignSegments(t *testing.T) {
	e, _ := newTestEngine(&fakeFallback{})

	res := e.Align(context.Background(), "食べる(たべる)")
	assert.Equal(t, []Segment{Kanji("食", "た"), Kana('べ'), Kana('る')}, res.Segments)

	res = e.Align(context.Background(), "言い方(いいかた)")
	assert.Equal(t, []Segment{Kanji("言", "い"), Kana('い'), Kanji("方", "かた")}, res.Segments)
}

// Every headword and reading character must appear exactly once, in order.
func TestAlignConservesCharacters(t *testing.T) {
	inputs := []string{
		"食べる(たべる)",
		"言い方(いいかた)",
		"引き出し(ひきだし)",
		"話し合い(はなしあい)",
		"お茶(おちゃ)",
		"日本語(にほんご)",
		"取り扱い説明書(とりあつかいせつめいしょ)",
		"べる(たべる)",
		"食べる(べる)",
	}

	e, _ := newTestEngine(&fakeFallback{})
	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			a, ok := Parse(raw)
			require.True(t, ok)

			res := e.Align(context.Background(), raw)
			require.Equal(t, Success, res.Outcome)

			var hw, rd strings.Builder
			for _, s := range res.Segments {
				if s.Kind == KanaSegment {
					hw.WriteRune(s.Kana)
					rd.WriteRune(s.Kana)
					continue
				}
				hw.WriteString(s.Kanji)
				rd.WriteString(s.Reading)
			}
			assert.Equal(t, a.Headword, hw.String())
			assert.Equal(t, a.Reading, rd.String())
			assert.Equal(t, Render(res.Segments), res.Text)
		})
	}
}

// Whatever is left at the start becomes one segment, even when one side is empty.
func TestAlignLeftoverSegment(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		segs []Segment
	}{
		{"食べる(べる)", "食()べる", []Segment{Kanji("食", ""), Kana('べ'), Kana('る')}},
		{"べる(たべる)", "(た)べる", []Segment{Kanji("", "た"), Kana('べ'), Kana('る')}},
		{"お茶(おおちゃ)", "(お)お茶(ちゃ)", []Segment{Kanji("", "お"), Kana('お'), Kanji("茶", "ちゃ")}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			fb := &fakeFallback{out: "unused"}
			e, _ := newTestEngine(fb)

			res := e.Align(context.Background(), tt.raw)

			require.Equal(t, Success, res.Outcome)
			assert.Equal(t, tt.segs, res.Segments)
			assert.Equal(t, tt.want, res.Text)
			assert.Empty(t, fb.calls)
		})
	}
}

func TestAlignIdentity(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"食べる", "食べる"},
		{"食べる()", "食べる"},
		{"食べる(たべる", "食べる(たべる"},
		{"食べる)たべる(", "食べる)たべる("},
		{"", ""},
	}

	for _, tt := range tests {
		fb := &fakeFallback{}
		e, _ := newTestEngine(fb)
		res := e.Align(context.Background(), tt.raw)
		assert.Equal(t, tt.want, res.Text, tt.raw)
		assert.Equal(t, Success, res.Outcome)
		assert.Empty(t, fb.calls)
	}
}

func TestAlignDropsGloss(t *testing.T) {
	fb := &fakeFallback{out: "x"}
	e, _ := newTestEngine(fb)

	res := e.Align(context.Background(), "test(EN gloss)")

	assert.Equal(t, "test", res.Text)
	assert.Equal(t, Success, res.Outcome)
	assert.Empty(t, fb.calls)
}

func TestAlignNonHiraganaReading(t *testing.T) {
	fb := &fakeFallback{out: "写真(しゃしん)"}
	e, logs := newTestEngine(fb)

	res := e.Align(context.Background(), "写真(シャシン)")

	assert.Equal(t, "写真(しゃしん)", res.Text)
	assert.Equal(t, Fallback, res.Outcome)
	assert.Nil(t, res.AlignErr)
	assert.Equal(t, []string{"写真"}, fb.calls)
	assert.Equal(t, []model.ConvertOptions{{Mode: model.ModeOkurigana, To: model.ScriptHiragana}}, fb.opts)
	assert.Zero(t, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestAlignMismatchFallsBack(t *testing.T) {
	const raw = "食べる(たべろ)"
	fb := &fakeFallback{out: "食(た)べる"}
	e, logs := newTestEngine(fb)

	res := e.Align(context.Background(), raw)

	assert.Equal(t, "食(た)べる", res.Text)
	assert.Equal(t, Fallback, res.Outcome)
	assert.Equal(t, []string{"食べる"}, fb.calls)
	require.NotNil(t, res.AlignErr)
	assert.ErrorIs(t, res.AlignErr, ErrReadingMismatch)
	assert.Equal(t, raw, res.AlignErr.Raw)
	assert.Equal(t, 2, res.AlignErr.Index)
	assert.Equal(t, 'る', res.AlignErr.Char)

	warned := logs.FilterMessage("alignment failed, using fallback")
	require.Equal(t, 1, warned.Len())
	fields := warned.All()[0].ContextMap()
	assert.Equal(t, "reading_mismatch", fields["error_type"])
	assert.Equal(t, raw, fields["raw"])
}

func TestAlignMismatchInsideRun(t *testing.T) {
	fb := &fakeFallback{out: "fb"}
	e, _ := newTestEngine(fb)

	res := e.Align(context.Background(), "言い方(かかた)")

	assert.Equal(t, "fb", res.Text)
	assert.ErrorIs(t, res.AlignErr, ErrReadingMismatch)
	assert.Equal(t, []string{"言い方"}, fb.calls)
}

func TestAlignReadingExhausted(t *testing.T) {
	fb := &fakeFallback{out: "fb"}
	e, _ := newTestEngine(fb)

	res := e.Align(context.Background(), "たべる(る)")

	assert.Equal(t, Fallback, res.Outcome)
	assert.ErrorIs(t, res.AlignErr, ErrReadingMismatch)
}

func TestAlignUnsupportedCharacterTruncatesAlternates(t *testing.T) {
	const raw = "言い方/言方(いいかた)"
	fb := &fakeFallback{out: "言(い)い方(かた)"}
	e, logs := newTestEngine(fb)

	res := e.Align(context.Background(), raw)

	assert.Equal(t, "言(い)い方(かた)", res.Text)
	assert.Equal(t, []string{"言い方"}, fb.calls)
	assert.ErrorIs(t, res.AlignErr, ErrUnsupportedCharacter)
	assert.Equal(t, '/', res.AlignErr.Char)

	warned := logs.FilterMessage("alignment failed, using fallback")
	require.Equal(t, 1, warned.Len())
	assert.Equal(t, "unsupported_character", warned.All()[0].ContextMap()["error_type"])
}

func TestAlignUnsupportedKatakana(t *testing.T) {
	fb := &fakeFallback{out: "カメラ好(ず)き"}
	e, _ := newTestEngine(fb)

	res := e.Align(context.Background(), "カメラ好き(かめらずき)")

	assert.Equal(t, "カメラ好(ず)き", res.Text)
	assert.Equal(t, []string{"カメラ好き"}, fb.calls)
	assert.ErrorIs(t, res.AlignErr, ErrUnsupportedCharacter)
}

// The fallback's answer is returned as is, even if it looks like annotation input.
func TestAlignDoesNotRescanFallbackOutput(t *testing.T) {
	fb := &fakeFallback{out: "食べる(たべろ)"}
	e, _ := newTestEngine(fb)

	res := e.Align(context.Background(), "食べる(たべろ)")

	assert.Equal(t, "食べる(たべろ)", res.Text)
	assert.Len(t, fb.calls, 1)
}

func TestAlignFallbackError(t *testing.T) {
	fb := &fakeFallback{err: errors.New("tokenizer down")}
	e, logs := newTestEngine(fb)

	res := e.Align(context.Background(), "言い方/言方(いいかた)")

	assert.Equal(t, "言い方", res.Text)
	assert.Equal(t, Unreachable, res.Outcome)
	assert.ErrorIs(t, res.AlignErr, ErrUnsupportedCharacter)
	require.Error(t, res.FallbackErr)
	assert.Contains(t, res.FallbackErr.Error(), "tokenizer down")
	assert.Equal(t, 1, logs.FilterMessage("fallback failed, keeping headword").Len())
}

func TestAlignWithoutFallback(t *testing.T) {
	e := New(kanji.Classifier{}, nil, nil)

	res := e.Align(context.Background(), "写真(シャシン)")

	assert.Equal(t, "写真", res.Text)
	assert.Equal(t, Unreachable, res.Outcome)
	assert.ErrorIs(t, res.FallbackErr, ErrNoFallback)
}

func TestAlignFunc(t *testing.T) {
	got := Align(context.Background(), "言い方(いいかた)", kanji.Classifier{}, &fakeFallback{})
	assert.Equal(t, "言(い)い方(かた)", got)
}

func TestParse(t *testing.T) {
	a, ok := Parse("言い方(いいかた)  way of saying")
	assert.True(t, ok)
	assert.Equal(t, Annotation{Headword: "言い方", Reading: "いいかた"}, a)

	a, ok = Parse("a(b)(c)")
	assert.True(t, ok)
	assert.Equal(t, Annotation{Headword: "a", Reading: "b"}, a)

	a, ok = Parse("plain")
	assert.False(t, ok)
	assert.Equal(t, "plain", a.Headword)
}

func TestOutcomeAndKindStrings(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "fallback", Fallback.String())
	assert.Equal(t, "unreachable", Unreachable.String())
	assert.Equal(t, "reading_mismatch", ReadingMismatch.String())
	assert.Equal(t, "unsupported_character", UnsupportedCharacter.String())

	err := &Error{Kind: ReadingMismatch, Raw: "x(y)", Index: 0, Char: 'x'}
	assert.Contains(t, err.Error(), "reading_mismatch")
	assert.False(t, errors.Is(err, ErrUnsupportedCharacter))
}

func TestAlignConcurrent(t *testing.T) {
	e, _ := newTestEngine(&fakeFallback{out: "fb"})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "言(い)い方(かた)", e.Align(context.Background(), "言い方(いいかた)").Text)
		}()
	}
	wg.Wait()
}
