// Package telemetry logs per-cache counters on an interval and adapts slog to zerolog.
package telemetry

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Borislavv/go-feed-cache/config"
	"github.com/Borislavv/go-feed-cache/internal/metrics"
	"github.com/benbjohnson/clock"
)

type Logger interface {
	Interval() time.Duration
	Serve(ctx context.Context) error
}

type Logs struct {
	cfg     *config.TelemetryCfg
	logger  *slog.Logger
	clock   clock.Clock
	metrics *metrics.Metrics
	sampler sampler
	names   []string
}

// New returns the periodic stats logger. sweeps may be nil when no sweeper runs.
func New(
	cfg *config.TelemetryCfg,
	clk clock.Clock,
	logger *slog.Logger,
	m *metrics.Metrics,
	sweeps func() (runs, removed int64),
	sources ...Source,
) *Logs {
	if clk == nil {
		clk = clock.New()
	}
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return &Logs{
		cfg:     cfg,
		logger:  logger.With("worker", "telemetry"),
		clock:   clk,
		metrics: m,
		sampler: sampler{sources: sources, sweeps: sweeps},
		names:   names,
	}
}

func (l *Logs) Interval() time.Duration {
	if !l.cfg.Enabled() {
		return 0
	}
	return l.cfg.Interval
}

// Serve logs every interval until ctx is done. A disabled logger just waits for ctx.
func (l *Logs) Serve(ctx context.Context) error {
	if !l.cfg.Enabled() || l.cfg.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := l.clock.Ticker(l.cfg.Interval)
	defer ticker.Stop()

	prev := l.sampler.snapshot()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			prev = l.tick(prev)
		}
	}
}

// tick logs the deltas since prev and returns the new cumulative snapshot.
func (l *Logs) tick(prev snapshot) snapshot {
	cur := l.sampler.snapshot()
	d := deltaSnapshot(prev, cur)
	common := []any{"interval", l.cfg.Interval.String()}

	for _, name := range l.names {
		c := d.caches[name]
		l.metrics.SetEntries(name, c.entries)
		l.logger.Info("cache",
			append(common,
				"name", name,
				"hits", int64(c.hits),
				"misses", int64(c.misses),
				"hit_ratio", hitRatio(c.hits, c.misses),
				"expirations", int64(c.expirations),
				"evictions", int64(c.evictions),
				"invalidations", int64(c.invalidations),
				"entries", c.entries,
				"active", c.active,
				"max_size", c.maxSize,
			)...,
		)
	}

	if l.sampler.sweeps != nil && d.sweepRuns > 0 {
		l.logger.Info("sweeper",
			append(common,
				"runs", int64(d.sweepRuns),
				"removed", int64(d.sweepRemoved),
			)...,
		)
	}
	return cur
}
