package recorder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/NordCoder/uptime-probe/internal/domain/outcome"
	"go.uber.org/zap"
)

const (
	DefaultPrefix    = "monitor"
	DefaultRetention = 24 * time.Hour
	DefaultTimeout   = 5 * time.Second
)

type Op string

const (
	OpRunRecord Op = "run_record"
	OpLatest    Op = "latest"
	OpCounter   Op = "counter"
)

type Keys struct {
	Prefix string
}

func (k Keys) Run(ts time.Time) string {
	return k.Prefix + ":" + strconv.FormatInt(ts.UnixMilli(), 10)
}

func (k Keys) Latest() string { return k.Prefix + ":latest" }

func (k Keys) Total(s outcome.Status) string { return k.Prefix + ":total:" + string(s) }

type Config struct {
	Prefix    string
	Retention time.Duration
	// Timeout bounds the three writes together. They run after the probe
	// and outlive cancellation of the run context.
	Timeout time.Duration
}

type Result struct {
	Op  Op
	Key string
	Err error
}

type Report struct {
	Value   outcome.RunValue
	Results []Result
	// Total is the counter value after INCR, zero if the increment failed.
	Total int64
}

func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", res.Op, res.Key, res.Err))
		}
	}
	return errors.Join(errs...)
}

func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Recorder is the only writer of probe keys. It never classifies; it writes
// whatever Outcome it is given.
type Recorder struct {
	store   outcome.Store
	keys    Keys
	ttl     time.Duration
	timeout time.Duration
	log     *zap.Logger
}

func New(store outcome.Store, cfg Config, log *zap.Logger) *Recorder {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		store:   store,
		keys:    Keys{Prefix: cfg.Prefix},
		ttl:     cfg.Retention,
		timeout: cfg.Timeout,
		log:     log.With(zap.String("component", "recorder")),
	}
}

func (r *Recorder) Keys() Keys { return r.keys }

// Record performs the three writes in order. A failed write does not stop the
// ones after it; every result is returned in the Report. A cancelled ctx does
// not stop the writes: an interrupted run is still recorded as a failure.
func (r *Recorder) Record(ctx context.Context, o outcome.Outcome) Report {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	val, err := outcome.ValueOf(o)
	if err != nil {
		res := Result{Op: OpRunRecord, Key: r.keys.Run(o.Timestamp), Err: fmt.Errorf("encode outcome: %w", err)}
		r.log.Error("encode outcome", zap.Error(err))
		return Report{Results: []Result{res}}
	}

	rep := Report{Value: val, Results: make([]Result, 0, 3)}

	runKey := r.keys.Run(o.Timestamp)
	rep.Results = append(rep.Results, r.apply(OpRunRecord, runKey, func() error {
		return r.store.SetWithTTL(ctx, runKey, val.Payload, r.ttl)
	}))

	latestKey := r.keys.Latest()
	rep.Results = append(rep.Results, r.apply(OpLatest, latestKey, func() error {
		return r.store.Set(ctx, latestKey, val.Payload)
	}))

	totalKey := r.keys.Total(o.Status)
	rep.Results = append(rep.Results, r.apply(OpCounter, totalKey, func() error {
		n, err := r.store.Incr(ctx, totalKey)
		if err == nil {
			rep.Total = n
		}
		return err
	}))

	return rep
}

func (r *Recorder) apply(op Op, key string, fn func() error) Result {
	err := fn()
	if err != nil {
		r.log.Warn("store write failed", zap.String("op", string(op)), zap.String("key", key), zap.Error(err))
	} else {
		r.log.Debug("store write", zap.String("op", string(op)), zap.String("key", key))
	}
	return Result{Op: op, Key: key, Err: err}
}
