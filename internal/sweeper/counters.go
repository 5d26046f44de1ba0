package sweeper

import "sync/atomic"

type sweeperCounters struct {
	runs    atomic.Int64 // completed passes
	removed atomic.Int64 // expired entries dropped across all caches
}

func newSweeperCounters() *sweeperCounters {
	return &sweeperCounters{}
}

func (c *sweeperCounters) snapshot() (runs, removed int64) {
	return c.runs.Load(), c.removed.Load()
}
