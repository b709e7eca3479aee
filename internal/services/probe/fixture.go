package probe

import (
	"errors"
	"fmt"
	"os"

	"github.com/NordCoder/uptime-probe/internal/canonical"
)

var ErrFixture = errors.New("expected-response fixture")

// Fixture is the known-good response body, parsed once per run.
type Fixture struct {
	doc       any
	canonical []byte
}

func NewFixture(raw []byte, c canonical.Canonicalizer) (Fixture, error) {
	doc, err := c.Parse(raw)
	if err != nil {
		return Fixture{}, fmt.Errorf("%w: parse: %w", ErrFixture, err)
	}
	out, err := c.Canonical(doc)
	if err != nil {
		return Fixture{}, fmt.Errorf("%w: serialize: %w", ErrFixture, err)
	}
	return Fixture{doc: doc, canonical: out}, nil
}

func LoadFixture(path string, c canonical.Canonicalizer) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("%w: read %s: %w", ErrFixture, path, err)
	}
	return NewFixture(raw, c)
}

// Canonical returns a copy of the fixture's canonical serialization.
func (f Fixture) Canonical() []byte {
	out := make([]byte, len(f.canonical))
	copy(out, f.canonical)
	return out
}

func (f Fixture) equal(actual []byte) bool {
	return string(f.canonical) == string(actual)
}
