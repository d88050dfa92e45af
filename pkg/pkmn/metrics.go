package pkmn

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK       = "ok"
	outcomeCached   = "cached"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

type metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	cacheHits prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pkmn",
			Name:      "requests_total",
			Help:      "Resource lookups by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pkmn",
			Name:      "request_duration_seconds",
			Help:      "Upstream request latency by kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pkmn",
			Name:      "cache_hits_total",
			Help:      "Lookups served from the response cache.",
		}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration, m.cacheHits} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) cached(kind string) {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
	m.requests.WithLabelValues(kind, outcomeCached).Inc()
}

func (m *metrics) observe(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(d.Seconds())
}
