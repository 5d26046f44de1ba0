package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-feed-cache/internal/marker"
	"github.com/Borislavv/go-feed-cache/internal/metrics"
	"github.com/benbjohnson/clock"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

type markerState uint8

const (
	markerUnknown  markerState = iota // no successful read yet and the poll window is closed
	markerFresh                       // read from the store by this call
	markerCached                      // last known value, poll window still closed
	markerDegraded                    // store read failed; the last known value is still used when there is one
)

func (s markerState) String() string {
	switch s {
	case markerFresh:
		return "fresh"
	case markerCached:
		return "cached"
	case markerDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

type markerRead struct {
	at    time.Time
	state markerState
	known bool
}

// usable reports whether at may be compared with an entry's cachedAt.
// Only a process that has never observed the marker falls back to TTL.
func (r markerRead) usable() bool {
	return r.known
}

type watcherCfg struct {
	pollInterval    time.Duration
	timeout         time.Duration
	breakerFailures uint32
	breakerTimeout  time.Duration
}

// watcher polls the version marker at most once per poll interval and remembers the newest value seen.
type watcher struct {
	store   marker.Store
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[time.Time]
	clock   clock.Clock
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.RWMutex
	last  time.Time
	known bool

	reads    atomic.Int64
	failures atomic.Int64
}

func newWatcher(cfg watcherCfg, store marker.Store, clk clock.Clock, logger *slog.Logger, m *metrics.Metrics) *watcher {
	w := &watcher{
		store:   store,
		limiter: rate.NewLimiter(rate.Every(cfg.pollInterval), 1),
		clock:   clk,
		timeout: cfg.timeout,
		logger:  logger,
		metrics: m,
	}
	w.breaker = gobreaker.NewCircuitBreaker[time.Time](gobreaker.Settings{
		Name:    "feed-version-marker",
		Timeout: cfg.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("version marker circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return w
}

func (w *watcher) read(ctx context.Context) markerRead {
	if !w.limiter.AllowN(w.clock.Now(), 1) {
		if at, ok := w.snapshot(); ok {
			return markerRead{at: at, state: markerCached, known: true}
		}
		return markerRead{state: markerUnknown}
	}

	ctx, span := tracer.Start(ctx, "feedcache.marker.read", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	w.reads.Add(1)
	at, err := w.breaker.Execute(func() (time.Time, error) {
		readCtx, cancel := context.WithTimeout(ctx, w.timeout)
		defer cancel()
		return w.store.LastUpdatedAt(readCtx)
	})
	if err != nil {
		w.failures.Add(1)
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)

		result := metrics.MarkerError
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = metrics.MarkerBreakerOpen
		}
		w.metrics.MarkerRead(result)
		last, known := w.snapshot()
		w.logger.Warn("version marker unavailable, using last known value", "result", result, "known", known, "err", err)
		return markerRead{at: last, state: markerDegraded, known: known}
	}

	w.metrics.MarkerRead(metrics.MarkerOK)
	return markerRead{at: w.observe(at), state: markerFresh, known: true}
}

// bump writes at to the store and, on success, records it locally so this process sees its own write immediately.
func (w *watcher) bump(ctx context.Context, at time.Time) error {
	ctx, span := tracer.Start(ctx, "feedcache.marker.bump", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	bumpCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.store.Bump(bumpCtx, at); err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		w.metrics.MarkerBump(metrics.MarkerError)
		return err
	}
	w.metrics.MarkerBump(metrics.MarkerOK)
	w.observe(at)
	return nil
}

// observe keeps the newest marker value and returns it.
func (w *watcher) observe(at time.Time) time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.known || at.After(w.last) {
		w.last = at
	}
	w.known = true
	return w.last
}

func (w *watcher) snapshot() (time.Time, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last, w.known
}
