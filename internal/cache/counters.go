package cache

import "sync/atomic"

type counters struct {
	hits          atomic.Int64
	misses        atomic.Int64
	expirations   atomic.Int64 // removed lazily on read or by a sweep
	evictions     atomic.Int64 // removed to respect max size
	invalidations atomic.Int64 // removed by an explicit or event-based invalidation
}

func newCounters() *counters {
	return &counters{
		hits:          atomic.Int64{},
		misses:        atomic.Int64{},
		expirations:   atomic.Int64{},
		evictions:     atomic.Int64{},
		invalidations: atomic.Int64{},
	}
}

func (c *counters) snapshot() (hits, misses, expirations, evictions, invalidations int64) {
	hits = c.hits.Load()
	misses = c.misses.Load()
	expirations = c.expirations.Load()
	evictions = c.evictions.Load()
	invalidations = c.invalidations.Load()
	return
}
