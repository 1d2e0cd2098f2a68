package model

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/cockroachdb/errors"
)

// Token represents a morpheme produced by the tokenizer.
type Token struct {
	Text    string `json:"text"`
	Lemma   string `json:"lemma,omitempty"`
	POS     string `json:"pos,omitempty"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Reading string `json:"reading,omitempty"`
}

// ConvertMode selects how a fallback conversion lays out readings.
type ConvertMode string

const (
	// ModeNormal replaces the whole text with its reading.
	ModeNormal ConvertMode = "normal"
	// ModeOkurigana keeps the text and puts each kanji run's reading in parentheses after it.
	ModeOkurigana ConvertMode = "okurigana"
)

// Script is the kana script readings are rendered in.
type Script string

const (
	ScriptHiragana Script = "hiragana"
	ScriptKatakana Script = "katakana"
)

// ConvertOptions are passed to a fallback conversion.
type ConvertOptions struct {
	Mode ConvertMode `json:"mode"`
	To   Script      `json:"to"`
}

// Record is one scraped dictionary entry. Only the fields this tool rewrites are typed;
// everything else round-trips through Extra in its original order.
type Record struct {
	Trans    []string
	Notation string
	Extra    map[string]json.RawMessage

	order       []string
	hasNotation bool
}

// SetNotation sets the notation and makes sure it is written even when empty.
func (r *Record) SetNotation(s string) {
	r.Notation = s
	r.hasNotation = true
}

// UnmarshalJSON keeps unknown fields in Extra and remembers the field order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return errors.Newf("record: expected object, got %v", tok)
	}

	r.Extra = make(map[string]json.RawMessage)
	r.order = r.order[:0]
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return errors.Newf("record: unexpected key token %v", kt)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "record field %q", key)
		}

		switch key {
		case "trans":
			if err := json.Unmarshal(raw, &r.Trans); err != nil {
				return errors.Wrap(err, "record trans")
			}
		case "notation":
			if err := json.Unmarshal(raw, &r.Notation); err != nil {
				return errors.Wrap(err, "record notation")
			}
			r.hasNotation = true
		default:
			r.Extra[key] = raw
		}
		if !slices.Contains(r.order, key) {
			r.order = append(r.order, key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON writes the fields in their input order. trans and notation are
// appended when the input did not have them; notation only once it was set.
func (r Record) MarshalJSON() ([]byte, error) {
	keys := slices.Clone(r.order)
	for _, k := range sortedKeys(r.Extra) {
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	if !slices.Contains(keys, "trans") {
		keys = append(keys, "trans")
	}
	if (r.hasNotation || r.Notation != "") && !slices.Contains(keys, "notation") {
		keys = append(keys, "notation")
	}

	var b bytes.Buffer
	b.WriteByte('{')
	for _, k := range keys {
		var (
			v   []byte
			err error
		)
		switch k {
		case "trans":
			v, err = json.Marshal(r.Trans)
		case "notation":
			v, err = json.Marshal(r.Notation)
		default:
			raw, ok := r.Extra[k]
			if !ok {
				continue
			}
			v = raw
		}
		if err != nil {
			return nil, err
		}
		if b.Len() > 1 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ReviewEntry describes a record whose notation came from the fallback after a failed alignment.
type ReviewEntry struct {
	File     string `json:"file"`
	Key      string `json:"key"`
	Raw      string `json:"raw"`
	Kind     string `json:"kind"`
	Notation string `json:"notation"`
}
