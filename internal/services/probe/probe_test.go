package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NordCoder/uptime-probe/internal/canonical"
	"github.com/NordCoder/uptime-probe/internal/domain/outcome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func mustFixture(t *testing.T, raw string) Fixture {
	t.Helper()
	f, err := NewFixture([]byte(raw), canonical.JSON{})
	require.NoError(t, err)
	return f
}

func jsonServer(t *testing.T, code int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestProbe(log *zap.Logger) *Probe {
	return New(NewHTTPClient(HTTPConfig{DialTimeout: time.Second, VerifyTLS: true}), canonical.JSON{}, nil, log, "uptime-probe-test")
}

func TestProbe_ScenarioA_Match(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"ok":true}`)

	o, err := newTestProbe(nil).Run(context.Background(), Target{Endpoint: srv.URL}, mustFixture(t, `{"ok":true}`))

	require.NoError(t, err)
	assert.Equal(t, outcome.StatusSuccess, o.Status)
	assert.True(t, o.Matched)
	assert.Empty(t, o.Error)
	assert.Equal(t, srv.URL, o.Endpoint)
	assert.GreaterOrEqual(t, o.LatencyMS, int64(0))
	require.NoError(t, o.Validate())
}

func TestProbe_ScenarioB_Mismatch(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"ok":false}`)
	core, logs := observer.New(zap.WarnLevel)

	o, err := newTestProbe(zap.New(core)).Run(context.Background(), Target{Endpoint: srv.URL}, mustFixture(t, `{"ok":true}`))

	require.NoError(t, err)
	assert.Equal(t, outcome.StatusFailure, o.Status)
	assert.False(t, o.Matched)
	assert.Equal(t, "Response does not match expected JSON", o.Error)
	assert.Equal(t, outcome.KindLatency, o.StoredAs)

	entries := logs.FilterMessage("response mismatch").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, `{"ok":true}`, fields["expected"])
	assert.Equal(t, `{"ok":false}`, fields["actual"])
	assert.Contains(t, fields["diff"], "[-")
	assert.Contains(t, fields["diff"], "{+")
}

func TestProbe_ScenarioC_ServiceUnavailable(t *testing.T) {
	srv := jsonServer(t, http.StatusServiceUnavailable, `{"ok":true}`)

	o, err := newTestProbe(nil).Run(context.Background(), Target{Endpoint: srv.URL}, mustFixture(t, `{"ok":true}`))

	require.NoError(t, err)
	assert.Equal(t, outcome.StatusFailure, o.Status)
	assert.False(t, o.Matched)
	assert.Equal(t, "HTTP 503: Service Unavailable", o.Error)
	assert.Equal(t, outcome.KindOutcome, o.StoredAs)
}

func TestProbe_NonStandardStatusText(t *testing.T) {
	srv := jsonServer(t, 599, `{}`)

	o, err := newTestProbe(nil).Run(context.Background(), Target{Endpoint: srv.URL}, mustFixture(t, `{}`))

	require.NoError(t, err)
	assert.Equal(t, "HTTP 599: status code 599", o.Error)
}

func TestProbe_ScenarioD_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	o, err := newTestProbe(nil).Run(context.Background(), Target{Endpoint: "http://" + addr + "/health"}, mustFixture(t, `{"ok":true}`))

	require.NoError(t, err)
	assert.Equal(t, outcome.StatusFailure, o.Status)
	assert.False(t, o.Matched)
	assert.Contains(t, o.Error, "connection refused")
	assert.False(t, strings.HasPrefix(o.Error, "Get "))
	assert.Equal(t, outcome.KindOutcome, o.StoredAs)
}

func TestProbe_MalformedBody(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"ok":tru`)

	o, err := newTestProbe(nil).Run(context.Background(), Target{Endpoint: srv.URL}, mustFixture(t, `{"ok":true}`))

	require.NoError(t, err)
	assert.Equal(t, outcome.StatusFailure, o.Status)
	assert.NotEmpty(t, o.Error)
	assert.NotEqual(t, outcome.MismatchError, o.Error)
}

func TestProbe_LatencyIncludesDelayOnFailure(t *testing.T) {
	const delay = 60 * time.Millisecond
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(delay)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	o, err := newTestProbe(nil).Run(context.Background(), Target{Endpoint: srv.URL}, mustFixture(t, `{}`))

	require.NoError(t, err)
	assert.Equal(t, "HTTP 502: Bad Gateway", o.Error)
	assert.GreaterOrEqual(t, o.LatencyMS, delay.Milliseconds())
}

func TestProbe_LatencyIncludesDelayOnSuccess(t *testing.T) {
	const delay = 40 * time.Millisecond
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"items":[`))
		w.(http.Flusher).Flush()
		time.Sleep(delay)
		_, _ = w.Write([]byte(`1,2]}`))
	}))
	defer srv.Close()

	o, err := newTestProbe(nil).Run(context.Background(), Target{Endpoint: srv.URL}, mustFixture(t, `{"items":[1,2]}`))

	require.NoError(t, err)
	assert.True(t, o.Matched)
	assert.GreaterOrEqual(t, o.LatencyMS, delay.Milliseconds())
}

func TestProbe_SendsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestProbe(nil).Run(context.Background(), Target{Endpoint: srv.URL, AuthHeader: "Bearer abc.def"}, mustFixture(t, `{}`))

	require.NoError(t, err)
	assert.Equal(t, "Bearer abc.def", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "uptime-probe-test", got.Get("User-Agent"))
}

func TestProbe_KeyOrderDoesNotMatter(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"b":[1,{"y":2,"x":1}],"a":"z"}`)

	o, err := newTestProbe(nil).Run(context.Background(), Target{Endpoint: srv.URL}, mustFixture(t, `{"a":"z","b":[1,{"x":1,"y":2}]}`))

	require.NoError(t, err)
	assert.True(t, o.Matched)
}

func TestProbe_TimestampIsRunStart(t *testing.T) {
	clock := &stepClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), step: 5 * time.Millisecond}
	srv := jsonServer(t, http.StatusOK, `{}`)
	p := New(http.DefaultClient, nil, clock, nil, "")

	o, err := p.Run(context.Background(), Target{Endpoint: srv.URL}, mustFixture(t, `{}`))

	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), o.Timestamp)
	assert.EqualValues(t, 5, o.LatencyMS)
}

func TestProbe_EmptyEndpoint(t *testing.T) {
	_, err := newTestProbe(nil).Run(context.Background(), Target{Endpoint: "  "}, mustFixture(t, `{}`))
	assert.ErrorIs(t, err, ErrEmptyEndpoint)
}

func TestProbe_InvalidURLIsFailure(t *testing.T) {
	o, err := newTestProbe(nil).Run(context.Background(), Target{Endpoint: "http://[::1"}, mustFixture(t, `{}`))

	require.NoError(t, err)
	assert.Equal(t, outcome.StatusFailure, o.Status)
	assert.NotEmpty(t, o.Error)
}

func TestLoadFixture(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "expected.json")
	require.NoError(t, os.WriteFile(good, []byte("{\n  \"ok\": true\n}\n"), 0o600))
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{ok: true}"), 0o600))

	f, err := LoadFixture(good, canonical.JSON{})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(f.Canonical()))

	_, err = LoadFixture(bad, canonical.JSON{})
	assert.ErrorIs(t, err, ErrFixture)

	_, err = LoadFixture(filepath.Join(dir, "missing.json"), canonical.JSON{})
	assert.ErrorIs(t, err, ErrFixture)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type stepClock struct {
	t    time.Time
	step time.Duration
	n    int
}

// Now returns t for the run timestamp and the latency start, then advances by step.
func (c *stepClock) Now() time.Time {
	c.n++
	if c.n <= 2 {
		return c.t
	}
	return c.t.Add(c.step)
}
