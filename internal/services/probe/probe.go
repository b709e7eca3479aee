package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/NordCoder/uptime-probe/internal/canonical"
	"github.com/NordCoder/uptime-probe/internal/domain/outcome"
	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"
)

var ErrEmptyEndpoint = errors.New("endpoint is empty")

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Target struct {
	Endpoint string
	// AuthHeader is sent verbatim as the Authorization header.
	AuthHeader string
}

type Probe struct {
	HTTP      Doer
	Canon     canonical.Canonicalizer
	Clock     outcome.Clock
	Log       *zap.Logger
	UserAgent string
}

func New(httpc Doer, canon canonical.Canonicalizer, clock outcome.Clock, log *zap.Logger, userAgent string) *Probe {
	if canon == nil {
		canon = canonical.JSON{}
	}
	if clock == nil {
		clock = outcome.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Probe{HTTP: httpc, Canon: canon, Clock: clock, Log: log, UserAgent: userAgent}
}

// Run performs one GET against t.Endpoint and classifies the result. Every
// failure of the round trip is folded into the returned Outcome; the error is
// reserved for unusable input.
func (p *Probe) Run(ctx context.Context, t Target, expected Fixture) (outcome.Outcome, error) {
	endpoint := strings.TrimSpace(t.Endpoint)
	if endpoint == "" {
		return outcome.Outcome{}, ErrEmptyEndpoint
	}

	ts := p.Clock.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return outcome.Failed(ts, endpoint, 0, err.Error()), nil
	}
	req.Header.Set("Authorization", t.AuthHeader)
	req.Header.Set("Content-Type", "application/json")
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	start := p.Clock.Now()
	fail := func(cause string) outcome.Outcome {
		return outcome.Failed(ts, endpoint, p.Clock.Now().Sub(start), cause)
	}

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return fail(transportMessage(err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return fail(httpStatusMessage(resp)), nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(err.Error()), nil
	}
	doc, err := p.Canon.Parse(body)
	if err != nil {
		return fail(err.Error()), nil
	}
	actual, err := p.Canon.Canonical(doc)
	if err != nil {
		return fail(err.Error()), nil
	}
	latency := p.Clock.Now().Sub(start)

	if expected.equal(actual) {
		return outcome.Succeeded(ts, endpoint, latency), nil
	}

	p.Log.Warn("response mismatch",
		zap.String("endpoint", endpoint),
		zap.ByteString("expected", expected.canonical),
		zap.ByteString("actual", actual),
		zap.String("diff", describeDiff(string(expected.canonical), string(actual))),
	)
	return outcome.Mismatched(ts, endpoint, latency), nil
}

// transportMessage drops the `Get "<url>":` prefix net/http adds.
func transportMessage(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err.Error()
	}
	return err.Error()
}

func httpStatusMessage(resp *http.Response) string {
	text := http.StatusText(resp.StatusCode)
	if text == "" {
		text = strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	}
	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode, text)
}

const diffContext = 24

func describeDiff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(expected, actual, false))

	var b strings.Builder
	for i, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		case diffmatchpatch.DiffEqual:
			b.WriteString(elide(d.Text, i == 0, i == len(diffs)-1))
		}
	}
	return b.String()
}

func elide(s string, first, last bool) string {
	if len(s) <= 2*diffContext {
		return s
	}
	switch {
	case first:
		return "..." + s[len(s)-diffContext:]
	case last:
		return s[:diffContext] + "..."
	default:
		return s[:diffContext] + "..." + s[len(s)-diffContext:]
	}
}
