// Package kanji classifies the characters found in dictionary headwords and readings.
package kanji

import "strings"

// Unicode blocks used for classification.
const (
	hiraganaFirst = 0x3041
	hiraganaLast  = 0x309F
	katakanaFirst = 0x30A1
	katakanaLast  = 0x30F6

	// 々 repeats the preceding kanji and reads like one.
	iterationMark = 0x3005
)

// Classifier implements the character classification used by the aligner.
// The zero value is ready to use.
type Classifier struct{}

// IsHiragana reports whether r is a hiragana character.
func (Classifier) IsHiragana(r rune) bool { return IsHiragana(r) }

// IsKanji reports whether r is an ideograph.
func (Classifier) IsKanji(r rune) bool { return IsKanji(r) }

// IsHiragana reports whether r is in the hiragana block, including the iteration marks ゝ and ゞ.
func IsHiragana(r rune) bool {
	return r >= hiraganaFirst && r <= hiraganaLast
}

// IsKatakana reports whether r is a full-width katakana letter.
func IsKatakana(r rune) bool {
	return r >= katakanaFirst && r <= katakanaLast
}

// IsKanji covers CJK Unified Ideographs, Extension A, the compatibility block and 々.
func IsKanji(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF:
		return true
	case r >= 0x3400 && r <= 0x4DBF:
		return true
	case r >= 0xF900 && r <= 0xFAFF:
		return true
	}
	return r == iterationMark
}

// IsLatin reports whether r is an ASCII letter.
func IsLatin(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// HasKanji reports whether s contains at least one kanji.
func HasKanji(s string) bool {
	return strings.IndexFunc(s, IsKanji) >= 0
}

// KatakanaToHiragana converts katakana to hiragana, leaving everything else untouched.
func KatakanaToHiragana(s string) string {
	return strings.Map(func(r rune) rune {
		if IsKatakana(r) {
			return r - 0x60
		}
		return r
	}, s)
}

// HiraganaToKatakana is the inverse of KatakanaToHiragana for the letters both scripts share.
func HiraganaToKatakana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= hiraganaFirst && r <= 0x3096 {
			return r + 0x60
		}
		return r
	}, s)
}
