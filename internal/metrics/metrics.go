// Package metrics holds the Prometheus collectors shared by every cache.
//
// All vectors carry a "cache" label (feed, signed_url, profile). A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "feedcache"

// Marker read results.
const (
	MarkerOK          = "ok"
	MarkerError       = "error"
	MarkerBreakerOpen = "breaker_open"
)

type Metrics struct {
	Hits          *prometheus.CounterVec
	Misses        *prometheus.CounterVec
	Expirations   *prometheus.CounterVec
	Evictions     *prometheus.CounterVec
	Invalidations *prometheus.CounterVec
	Entries       *prometheus.GaugeVec

	MarkerReads *prometheus.CounterVec
	MarkerBumps *prometheus.CounterVec

	URLRegenerationFailures prometheus.Counter
	SweepDuration           prometheus.Histogram
}

// New registers collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Hits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "hits_total", Help: "Cache lookups served from memory.",
		}, []string{"cache"}),
		Misses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "misses_total", Help: "Cache lookups that found no valid entry.",
		}, []string{"cache"}),
		Expirations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "expirations_total", Help: "Entries removed because their TTL elapsed.",
		}, []string{"cache"}),
		Evictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "evictions_total", Help: "Entries evicted to respect max size.",
		}, []string{"cache"}),
		Invalidations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "invalidations_total", Help: "Entries removed by explicit or event-based invalidation.",
		}, []string{"cache"}),
		Entries: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "entries", Help: "Entries currently stored, expired ones included.",
		}, []string{"cache"}),
		MarkerReads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "marker_reads_total", Help: "Version marker reads by result.",
		}, []string{"result"}),
		MarkerBumps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "marker_bumps_total", Help: "Version marker writes by result.",
		}, []string{"result"}),
		URLRegenerationFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "url_regeneration_failures_total",
			Help: "Signed URLs that kept their cached value because re-signing failed.",
		}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "sweep_duration_seconds", Help: "Duration of expired-entry sweeps.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
	}
}

func (m *Metrics) Hit(cache string) {
	if m != nil {
		m.Hits.WithLabelValues(cache).Inc()
	}
}

func (m *Metrics) Miss(cache string) {
	if m != nil {
		m.Misses.WithLabelValues(cache).Inc()
	}
}

func (m *Metrics) Expired(cache string, n int) {
	if m != nil && n > 0 {
		m.Expirations.WithLabelValues(cache).Add(float64(n))
	}
}

func (m *Metrics) Evicted(cache string, n int) {
	if m != nil && n > 0 {
		m.Evictions.WithLabelValues(cache).Add(float64(n))
	}
}

func (m *Metrics) Invalidated(cache string, n int) {
	if m != nil && n > 0 {
		m.Invalidations.WithLabelValues(cache).Add(float64(n))
	}
}

func (m *Metrics) SetEntries(cache string, n int) {
	if m != nil {
		m.Entries.WithLabelValues(cache).Set(float64(n))
	}
}

func (m *Metrics) MarkerRead(result string) {
	if m != nil {
		m.MarkerReads.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) MarkerBump(result string) {
	if m != nil {
		m.MarkerBumps.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) URLRegenerationFailed() {
	if m != nil {
		m.URLRegenerationFailures.Inc()
	}
}

func (m *Metrics) ObserveSweep(seconds float64) {
	if m != nil {
		m.SweepDuration.Observe(seconds)
	}
}
