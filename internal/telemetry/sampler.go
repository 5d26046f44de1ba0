package telemetry

import "github.com/Borislavv/go-feed-cache/internal/cache"

// Source reports the current stats of one cache.
type Source struct {
	Name  string
	Stats func() cache.Stats
}

type sampler struct {
	sources []Source
	sweeps  func() (runs, removed int64)
}

// snapshot holds cumulative counters (monotonic) plus the entry gauges of every cache.
type snapshot struct {
	caches       map[string]cacheSample
	sweepRuns    uint64
	sweepRemoved uint64
}

type cacheSample struct {
	hits          uint64
	misses        uint64
	expirations   uint64
	evictions     uint64
	invalidations uint64

	// gauges, copied as is by deltaSnapshot
	entries int
	active  int
	maxSize int
}

func (s sampler) snapshot() snapshot {
	out := snapshot{caches: make(map[string]cacheSample, len(s.sources))}
	for _, src := range s.sources {
		st := src.Stats()
		out.caches[src.Name] = cacheSample{
			hits:          uint64(max(st.Hits, 0)),
			misses:        uint64(max(st.Misses, 0)),
			expirations:   uint64(max(st.Expirations, 0)),
			evictions:     uint64(max(st.Evictions, 0)),
			invalidations: uint64(max(st.Invalidations, 0)),
			entries:       st.TotalEntries,
			active:        st.ActiveEntries,
			maxSize:       st.MaxSize,
		}
	}
	if s.sweeps != nil {
		runs, removed := s.sweeps()
		out.sweepRuns = uint64(max(runs, 0))
		out.sweepRemoved = uint64(max(removed, 0))
	}
	return out
}

// deltaSnapshot converts cumulative snapshots to per-interval deltas.
// If counters reset (cur < prev), it treats cur as the delta.
func deltaSnapshot(prev, cur snapshot) snapshot {
	out := snapshot{
		caches:       make(map[string]cacheSample, len(cur.caches)),
		sweepRuns:    delta(prev.sweepRuns, cur.sweepRuns),
		sweepRemoved: delta(prev.sweepRemoved, cur.sweepRemoved),
	}
	for name, c := range cur.caches {
		p := prev.caches[name]
		out.caches[name] = cacheSample{
			hits:          delta(p.hits, c.hits),
			misses:        delta(p.misses, c.misses),
			expirations:   delta(p.expirations, c.expirations),
			evictions:     delta(p.evictions, c.evictions),
			invalidations: delta(p.invalidations, c.invalidations),
			entries:       c.entries,
			active:        c.active,
			maxSize:       c.maxSize,
		}
	}
	return out
}

func delta(prev, cur uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}

func hitRatio(hits, misses uint64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
