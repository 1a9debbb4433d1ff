package consensus

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	apperr "github.com/hed1ad/anomalyconsensus/internal/errors"
	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

// Harness executes every descriptor of a registry under its own fault
// boundary. Detectors run concurrently up to the worker limit.
type Harness struct {
	workers    int
	runTimeout time.Duration
	env        detectors.Environment
	cache      Cache
	log        zerolog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithWorkers bounds how many detectors run at once.
func WithWorkers(n int) Option {
	return func(h *Harness) {
		if n > 0 {
			h.workers = n
		}
	}
}

// WithRunTimeout bounds the whole run. Detectors still queued or running when
// it expires are recorded as timed out.
func WithRunTimeout(d time.Duration) Option {
	return func(h *Harness) {
		h.runTimeout = d
	}
}

// WithEnvironment sets which requirements can be satisfied.
func WithEnvironment(env detectors.Environment) Option {
	return func(h *Harness) {
		if env != nil {
			h.env = env
		}
	}
}

// WithCache installs an output cache.
func WithCache(c Cache) Option {
	return func(h *Harness) {
		h.cache = c
	}
}

// WithLogger sets the logger used for per-detector events.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Harness) {
		h.log = l
	}
}

// NewHarness creates a Harness. By default it uses one worker per CPU, has no
// run timeout, satisfies no requirements and logs nothing.
func NewHarness(opts ...Option) *Harness {
	h := &Harness{
		workers: runtime.GOMAXPROCS(0),
		env:     detectors.Capabilities{},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes reg against ds and returns one result per descriptor in
// registry order. It returns once every descriptor has reached a terminal
// status; a detector that ignores cancellation is abandoned, not awaited.
func (h *Harness) Run(ctx context.Context, ds *dataset.Dataset, reg *detectors.Registry, cfg detectors.Config) []DetectionResult {
	descs := reg.List()
	results := make([]DetectionResult, len(descs))

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if h.runTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, h.runTimeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	sem := semaphore.NewWeighted(int64(h.workers))
	var wg sync.WaitGroup
	for i, d := range descs {
		i, d := i, d
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := h.runOne(runCtx, sem, ds, d, cfg)
			h.logResult(r)
			results[i] = r
		}()
	}
	wg.Wait()

	return results
}

type outcome struct {
	out detectors.Output
	err error
}

func (h *Harness) runOne(runCtx context.Context, sem *semaphore.Weighted, ds *dataset.Dataset, d detectors.Descriptor, cfg detectors.Config) DetectionResult {
	base := DetectionResult{Name: d.Name, Category: d.Category, Anomalies: []int{}}

	if d.Requires != "" && !h.env.Has(d.Requires) {
		return failed(base, StatusSkipped, apperr.DependencyUnavailable(d.Name, string(d.Requires)))
	}

	if err := sem.Acquire(runCtx, 1); err != nil {
		return failed(base, StatusTimedOut, h.timeout(runCtx, d))
	}
	defer sem.Release(1)

	// Acquire succeeds on a done context when a slot is free.
	if runCtx.Err() != nil {
		return failed(base, StatusTimedOut, h.timeout(runCtx, d))
	}

	var key string
	if h.cache != nil {
		key = CacheKey(ds, d.Name, cfg)
		if out, ok := h.cache.Get(key); ok {
			base.Status = StatusSuccess
			base.Anomalies = out.Anomalies
			base.Confidence = out.Confidence
			return base
		}
	}

	start := time.Now()
	detCtx, cancel := runCtx, context.CancelFunc(func() {})
	if d.Timeout > 0 {
		detCtx, cancel = context.WithTimeout(runCtx, d.Timeout)
	}
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, err := d.Detector.Detect(detCtx, ds, cfg.Clone())
		done <- outcome{out: out, err: err}
	}()

	var o outcome
	select {
	case o = <-done:
	case <-detCtx.Done():
		select {
		case o = <-done:
		default:
			base.Duration = time.Since(start)
			return failed(base, StatusTimedOut, h.timeout(runCtx, d))
		}
	}
	base.Duration = time.Since(start)

	if o.err != nil {
		if detCtx.Err() != nil {
			return failed(base, StatusTimedOut, h.timeout(runCtx, d))
		}
		r := failed(base, StatusFailed, apperr.DetectorExecution(d.Name, o.err))
		r.Error = o.err.Error()
		return r
	}

	out, err := Normalize(d.Name, o.out, ds.Len())
	if err != nil {
		return failed(base, StatusFailed, err)
	}
	if h.cache != nil {
		h.cache.Put(key, out)
	}
	base.Status = StatusSuccess
	base.Anomalies = out.Anomalies
	base.Confidence = out.Confidence
	return base
}

// timeout attributes an expired context to caller cancellation, the run
// deadline or the detector's own limit.
func (h *Harness) timeout(runCtx context.Context, d detectors.Descriptor) error {
	switch err := runCtx.Err(); {
	case errors.Is(err, context.Canceled):
		return apperr.DetectorCancelled(d.Name, err)
	case err != nil || d.Timeout <= 0:
		return apperr.DetectorTimeout(d.Name, 0, nil)
	}
	return apperr.DetectorTimeout(d.Name, d.Timeout, nil)
}

func failed(r DetectionResult, status Status, err error) DetectionResult {
	r.Status = status
	r.Anomalies = []int{}
	r.Confidence = nil
	r.Code = apperr.GetCode(err)
	r.Error = err.Error()
	return r
}

func (h *Harness) logResult(r DetectionResult) {
	ev := h.log.Info()
	if !r.Succeeded() {
		ev = h.log.Warn().Str("code", r.Code).Str("error", r.Error)
	}
	ev.Str("detector", r.Name).
		Str("status", string(r.Status)).
		Int("anomalies", len(r.Anomalies)).
		Dur("duration", r.Duration).
		Msg("detector finished")
}
