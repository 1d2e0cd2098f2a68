// Package dictionary reads scraped dictionary files, rewrites their records and
// writes them back out.
package dictionary

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"

	"furiganafmt/model"
)

// File is a dictionary file: either a JSON object keyed by record id or a JSON array.
// Keys keeps the input order so output diffs stay readable.
type File struct {
	Keys    []string
	Records map[string]*model.Record
	array   bool
}

// Load reads a dictionary file from disk.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	f, err := Decode(b)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return f, nil
}

// Decode parses file contents.
func Decode(data []byte) (*File, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	f := &File{Records: make(map[string]*model.Record)}
	switch tok {
	case json.Delim('{'):
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, errors.Newf("unexpected key token %v", kt)
			}
			var rec model.Record
			if err := dec.Decode(&rec); err != nil {
				return nil, errors.Wrapf(err, "record %q", key)
			}
			if _, dup := f.Records[key]; !dup {
				f.Keys = append(f.Keys, key)
			}
			f.Records[key] = &rec
		}
	case json.Delim('['):
		f.array = true
		for i := 0; dec.More(); i++ {
			var rec model.Record
			if err := dec.Decode(&rec); err != nil {
				return nil, errors.Wrapf(err, "record %d", i)
			}
			key := strconv.Itoa(i)
			f.Keys = append(f.Keys, key)
			f.Records[key] = &rec
		}
	default:
		return nil, errors.Newf("expected object or array, got %v", tok)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after dictionary")
	}
	return f, nil
}

// Encode renders the file as JSON indented with four spaces.
func (f *File) Encode() ([]byte, error) {
	var compact bytes.Buffer
	open, closing := byte('{'), byte('}')
	if f.array {
		open, closing = '[', ']'
	}
	compact.WriteByte(open)
	for i, key := range f.Keys {
		if i > 0 {
			compact.WriteByte(',')
		}
		if !f.array {
			kb, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			compact.Write(kb)
			compact.WriteByte(':')
		}
		rb, err := json.Marshal(f.Records[key])
		if err != nil {
			return nil, errors.Wrapf(err, "record %q", key)
		}
		compact.Write(rb)
	}
	compact.WriteByte(closing)

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Save writes the file to path.
func (f *File) Save(path string) error {
	b, err := f.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
