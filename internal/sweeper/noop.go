package sweeper

import "context"

// NoOpSweeper is used when sweeping is disabled; expired entries are then dropped lazily on read.
type NoOpSweeper struct{}

// Serve blocks until ctx is done.
func (NoOpSweeper) Serve(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (NoOpSweeper) Sweep() int { return 0 }

func (NoOpSweeper) SweeperMetrics() (runs, removed int64) {
	return 0, 0
}
