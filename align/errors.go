package align

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinels matched by *Error through errors.Is.
var (
	ErrReadingMismatch      = errors.New("reading mismatch")
	ErrUnsupportedCharacter = errors.New("unsupported character")
	ErrNoFallback           = errors.New("no fallback converter configured")
)

// Kind classifies why a scan could not align a headword.
type Kind int

const (
	// ReadingMismatch: a headword kana has no counterpart left in the reading.
	ReadingMismatch Kind = iota + 1
	// UnsupportedCharacter: the headword holds something that is neither kanji nor hiragana.
	UnsupportedCharacter
)

func (k Kind) String() string {
	switch k {
	case ReadingMismatch:
		return "reading_mismatch"
	case UnsupportedCharacter:
		return "unsupported_character"
	}
	return "unknown"
}

// Error is a scan failure. Raw is the unparsed input it happened on,
// Index the rune offset into the headword.
type Error struct {
	Kind  Kind
	Raw   string
	Index int
	Char  rune
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %q at headword index %d in %q", e.Kind, e.Char, e.Index, e.Raw)
}

// Is lets errors.Is match the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case ReadingMismatch:
		return target == ErrReadingMismatch
	case UnsupportedCharacter:
		return target == ErrUnsupportedCharacter
	}
	return false
}
