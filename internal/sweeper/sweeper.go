// Package sweeper periodically drops expired entries from every cache.
package sweeper

import (
	"context"
	"log/slog"

	"github.com/Borislavv/go-feed-cache/config"
	"github.com/Borislavv/go-feed-cache/internal/metrics"
	"github.com/benbjohnson/clock"
)

// Target is a cache that can drop its expired entries.
type Target interface {
	Name() string
	CleanupExpired() int
}

type Sweeper interface {
	// Serve sweeps on every tick until ctx is done.
	Serve(ctx context.Context) error
	// Sweep runs one pass over every target and returns the number of removed entries.
	Sweep() int
	SweeperMetrics() (runs, removed int64)
}

type Worker struct {
	cfg      *config.SweeperCfg
	targets  []Target
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
	counters *sweeperCounters
}

func New(cfg *config.SweeperCfg, clk clock.Clock, logger *slog.Logger, m *metrics.Metrics, targets ...Target) Sweeper {
	if !cfg.Enabled() {
		return &NoOpSweeper{}
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Worker{
		cfg:      cfg,
		targets:  targets,
		clock:    clk,
		logger:   logger.With("worker", "sweeper"),
		metrics:  m,
		counters: newSweeperCounters(),
	}
}

func (w *Worker) Serve(ctx context.Context) error {
	w.logger.Info("sweeper is running", "interval", w.cfg.Interval, "caches", len(w.targets))
	defer w.logger.Info("sweeper is stopped")

	ticker := w.clock.Ticker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Sweep()
		}
	}
}

func (w *Worker) Sweep() int {
	from := w.clock.Now()
	total := 0
	for _, t := range w.targets {
		n := t.CleanupExpired()
		if n > 0 {
			w.logger.Debug("removed expired entries", "cache", t.Name(), "entries", n)
		}
		total += n
	}
	w.counters.runs.Add(1)
	w.counters.removed.Add(int64(total))
	w.metrics.ObserveSweep(w.clock.Since(from).Seconds())
	return total
}

func (w *Worker) SweeperMetrics() (runs, removed int64) {
	return w.counters.snapshot()
}
