package probe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/NordCoder/uptime-probe/internal/canonical"
	"github.com/NordCoder/uptime-probe/internal/domain/outcome"
	"github.com/NordCoder/uptime-probe/internal/obs"
	redisx "github.com/NordCoder/uptime-probe/internal/repository/redis"
	"github.com/NordCoder/uptime-probe/internal/services/recorder"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type captureSink struct {
	saved []outcome.Outcome
	err   error
}

func (c *captureSink) Save(_ context.Context, o outcome.Outcome) error {
	c.saved = append(c.saved, o)
	return c.err
}

func (c *captureSink) PublishOutcome(_ context.Context, o outcome.Outcome) error {
	c.saved = append(c.saved, o)
	return c.err
}

type runnerEnv struct {
	mr      *miniredis.Miniredis
	metrics *obs.ProbeMetrics
	archive *captureSink
	events  *captureSink
}

func newRunner(t *testing.T, endpoint, fixture string) (*Runner, *runnerEnv) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := redisx.NewClient(redisx.Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	log := zaptest.NewLogger(t)
	env := &runnerEnv{
		mr:      mr,
		metrics: obs.NewProbeMetrics(),
		archive: &captureSink{},
		events:  &captureSink{err: errors.New("broker down")},
	}
	p := New(NewHTTPClient(HTTPConfig{DialTimeout: time.Second}), canonical.JSON{}, nil, log, "")
	rec := recorder.New(redisx.NewStore(rdb), recorder.Config{}, log)
	r := NewRunner(log, p, rec, Target{Endpoint: endpoint, AuthHeader: "Bearer t"}, mustFixture(t, fixture),
		WithArchive(env.archive), WithEvents(env.events), WithMetrics(env.metrics))
	return r, env
}

func TestRunner_SuccessRecordsLatency(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"ok":true}`)
	r, env := newRunner(t, srv.URL, `{"ok":true}`)

	o, rep, err := r.Run(context.Background())

	require.NoError(t, err)
	require.NoError(t, rep.Err())
	assert.True(t, o.Matched)

	runKey := recorder.Keys{Prefix: "monitor"}.Run(o.Timestamp)
	v, err := env.mr.Get(runKey)
	require.NoError(t, err)
	assert.Equal(t, rep.Value.Payload, v)
	assert.Equal(t, 24*time.Hour, env.mr.TTL(runKey))

	latest, err := env.mr.Get("monitor:latest")
	require.NoError(t, err)
	assert.Equal(t, v, latest)
	assert.Zero(t, env.mr.TTL("monitor:latest"))

	total, err := env.mr.Get("monitor:total:success")
	require.NoError(t, err)
	assert.Equal(t, "1", total)

	assert.Len(t, env.archive.saved, 1)
	assert.Len(t, env.events.saved, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Up))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SinkErrors.WithLabelValues("events")))
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.SinkErrors.WithLabelValues("archive")))
}

func TestRunner_FailureRecordsFullOutcome(t *testing.T) {
	srv := jsonServer(t, http.StatusServiceUnavailable, `{}`)
	r, env := newRunner(t, srv.URL, `{"ok":true}`)

	o, rep, err := r.Run(context.Background())

	require.NoError(t, err)
	require.NoError(t, rep.Err())
	assert.Equal(t, outcome.KindOutcome, rep.Value.Kind)

	latest, err := env.mr.Get("monitor:latest")
	require.NoError(t, err)
	var stored map[string]any
	require.NoError(t, json.Unmarshal([]byte(latest), &stored))
	assert.Equal(t, "failure", stored["status"])
	assert.Equal(t, false, stored["matched"])
	assert.Equal(t, "HTTP 503: Service Unavailable", stored["error"])
	assert.Equal(t, srv.URL, stored["endpoint"])
	assert.Equal(t, o.Timestamp.Format(outcome.TimestampLayout), stored["timestamp"])

	total, err := env.mr.Get("monitor:total:failure")
	require.NoError(t, err)
	assert.Equal(t, "1", total)
	assert.False(t, env.mr.Exists("monitor:total:success"))
}

func TestRunner_MismatchRecordsLatencyAsFailure(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"ok":false}`)
	r, env := newRunner(t, srv.URL, `{"ok":true}`)

	o, rep, err := r.Run(context.Background())

	require.NoError(t, err)
	require.NoError(t, rep.Err())
	assert.Equal(t, outcome.StatusFailure, o.Status)
	assert.Equal(t, outcome.KindLatency, rep.Value.Kind)

	latest, err := env.mr.Get("monitor:latest")
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(o.LatencyMS, 10), latest)

	total, err := env.mr.Get("monitor:total:failure")
	require.NoError(t, err)
	assert.Equal(t, "1", total)
	assert.False(t, env.mr.Exists("monitor:total:success"))
}

func TestRunner_CountersAcrossRuns(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"ok":true}`)
	r, env := newRunner(t, srv.URL, `{"ok":true}`)

	const n = 5
	for i := 0; i < n; i++ {
		_, rep, err := r.Run(context.Background())
		require.NoError(t, err)
		require.NoError(t, rep.Err())
		assert.EqualValues(t, i+1, rep.Total)
	}

	total, err := env.mr.Get("monitor:total:success")
	require.NoError(t, err)
	assert.Equal(t, "5", total)
}

func TestRunner_StoreDownStillReturnsOutcome(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"ok":true}`)
	r, env := newRunner(t, srv.URL, `{"ok":true}`)
	env.mr.Close()

	o, rep, err := r.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, o.Matched)
	require.Error(t, rep.Err())
	assert.Len(t, rep.Failed(), 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.StoreErrors.WithLabelValues(string(recorder.OpCounter))))
}

func TestRunner_CancelledRunIsStillRecorded(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"ok":true}`)
	r, env := newRunner(t, srv.URL, `{"ok":true}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o, rep, err := r.Run(ctx)

	require.NoError(t, err)
	require.NoError(t, rep.Err())
	assert.Equal(t, outcome.StatusFailure, o.Status)
	assert.Contains(t, o.Error, "context canceled")

	latest, err := env.mr.Get("monitor:latest")
	require.NoError(t, err)
	assert.Contains(t, latest, "context canceled")

	total, err := env.mr.Get("monitor:total:failure")
	require.NoError(t, err)
	assert.Equal(t, "1", total)
	assert.Len(t, env.archive.saved, 1)
}

func TestRunner_EmptyEndpoint(t *testing.T) {
	r, env := newRunner(t, "", `{}`)

	_, _, err := r.Run(context.Background())

	require.ErrorIs(t, err, ErrEmptyEndpoint)
	assert.Empty(t, env.mr.Keys())
}
