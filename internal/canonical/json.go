// Package canonical turns JSON documents into a deterministic textual form
// so that two documents can be compared byte for byte.
package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type Canonicalizer interface {
	Parse(raw []byte) (any, error)
	Canonical(doc any) ([]byte, error)
}

var ErrTrailingData = errors.New("unexpected data after top-level JSON value")

// JSON orders object keys lexically, emits no insignificant whitespace and
// leaves <, > and & unescaped. Numbers are parsed as float64, so 1.0 and 1
// serialize identically while 1 and "1" do not.
type JSON struct{}

var _ Canonicalizer = JSON{}

func (JSON) Parse(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var doc any
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty JSON body: %w", io.ErrUnexpectedEOF)
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return doc, nil
}

func (JSON) Canonical(doc any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Of parses raw and returns its canonical form.
func Of(c Canonicalizer, raw []byte) ([]byte, error) {
	doc, err := c.Parse(raw)
	if err != nil {
		return nil, err
	}
	return c.Canonical(doc)
}
