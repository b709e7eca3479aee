package outcome

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// MismatchError is the fixed cause recorded when a 2xx body differs from the fixture.
const MismatchError = "Response does not match expected JSON"

const unknownError = "Unknown error"

// TimestampLayout is ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var ErrInvalidOutcome = errors.New("invalid outcome")

// Outcome is the single write-once result of a probe run.
type Outcome struct {
	Timestamp time.Time
	Endpoint  string
	LatencyMS int64
	Status    Status
	Matched   bool
	Error     string
	// StoredAs is the shape written to the per-run record and the latest
	// pointer. It is set where the outcome is classified and is not part of
	// the wire form.
	StoredAs ValueKind
}

func Succeeded(ts time.Time, endpoint string, latency time.Duration) Outcome {
	return Outcome{
		Timestamp: ts.UTC(),
		Endpoint:  endpoint,
		LatencyMS: latencyMS(latency),
		Status:    StatusSuccess,
		Matched:   true,
		StoredAs:  KindLatency,
	}
}

// Mismatched is a completed 2xx round trip whose body differs from the
// fixture. It counts as a failure but is stored as bare latency, like a
// success.
func Mismatched(ts time.Time, endpoint string, latency time.Duration) Outcome {
	o := Failed(ts, endpoint, latency, MismatchError)
	o.StoredAs = KindLatency
	return o
}

func Failed(ts time.Time, endpoint string, latency time.Duration, cause string) Outcome {
	if cause == "" {
		cause = unknownError
	}
	return Outcome{
		Timestamp: ts.UTC(),
		Endpoint:  endpoint,
		LatencyMS: latencyMS(latency),
		Status:    StatusFailure,
		Matched:   false,
		Error:     cause,
		StoredAs:  KindOutcome,
	}
}

func latencyMS(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}

func (o Outcome) Validate() error {
	switch o.Status {
	case StatusSuccess:
		if !o.Matched || o.Error != "" {
			return errors.Join(ErrInvalidOutcome, errors.New("success must be matched and carry no error"))
		}
	case StatusFailure:
		if o.Matched {
			return errors.Join(ErrInvalidOutcome, errors.New("failure cannot be matched"))
		}
	default:
		return errors.Join(ErrInvalidOutcome, errors.New("unknown status "+strconv.Quote(string(o.Status))))
	}
	if o.LatencyMS < 0 {
		return errors.Join(ErrInvalidOutcome, errors.New("negative latency"))
	}
	if o.Status == StatusSuccess && o.StoredAs == KindOutcome {
		return errors.Join(ErrInvalidOutcome, errors.New("success is stored as latency"))
	}
	return nil
}

type wireOutcome struct {
	Timestamp string `json:"timestamp"`
	Endpoint  string `json:"endpoint"`
	LatencyMS int64  `json:"latency_ms"`
	Status    Status `json:"status"`
	Matched   bool   `json:"matched"`
	Error     string `json:"error,omitempty"`
}

func (o Outcome) wire() wireOutcome {
	return wireOutcome{
		Timestamp: o.Timestamp.UTC().Format(TimestampLayout),
		Endpoint:  o.Endpoint,
		LatencyMS: o.LatencyMS,
		Status:    o.Status,
		Matched:   o.Matched,
		Error:     o.Error,
	}
}

// Encode serializes the outcome without HTML escaping and without a trailing newline.
func (o Outcome) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(o.wire()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return o.Encode()
}

func (o *Outcome) UnmarshalJSON(b []byte) error {
	var w wireOutcome
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
	if err != nil {
		return err
	}
	*o = Outcome{
		Timestamp: ts.UTC(),
		Endpoint:  w.Endpoint,
		LatencyMS: w.LatencyMS,
		Status:    w.Status,
		Matched:   w.Matched,
		Error:     w.Error,
	}
	return nil
}

type ValueKind int

const (
	// KindLatency is the bare latency in milliseconds as decimal text.
	KindLatency ValueKind = iota + 1
	// KindOutcome is the full serialized Outcome.
	KindOutcome
)

func (k ValueKind) String() string {
	switch k {
	case KindLatency:
		return "latency"
	case KindOutcome:
		return "outcome"
	default:
		return "unknown"
	}
}

// RunValue is what gets written to the per-run record and the latest pointer.
// Consumers must handle both kinds.
type RunValue struct {
	Kind    ValueKind
	Payload string
}

// ValueOf renders o in the shape it was classified with. Outcomes decoded
// from the wire form carry no shape and are rejected.
func ValueOf(o Outcome) (RunValue, error) {
	switch o.StoredAs {
	case KindLatency:
		return RunValue{Kind: KindLatency, Payload: strconv.FormatInt(o.LatencyMS, 10)}, nil
	case KindOutcome:
		b, err := o.Encode()
		if err != nil {
			return RunValue{}, err
		}
		return RunValue{Kind: KindOutcome, Payload: string(b)}, nil
	default:
		return RunValue{}, errors.Join(ErrInvalidOutcome, errors.New("stored shape not set"))
	}
}
