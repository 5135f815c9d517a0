package query

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache activity per resource (first key element).
// A nil *Metrics records nothing.
type Metrics struct {
	requests      *prometheus.CounterVec
	hits          *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	failures      *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	evictions     *prometheus.CounterVec
}

// NewMetrics registers the query cache collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		cv := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "microassur",
			Subsystem: "query",
			Name:      name,
			Help:      help,
		}, labels)
		reg.MustRegister(cv)
		return cv
	}

	return &Metrics{
		requests:      counter("requests_total", "Reads requested through the query cache.", "resource"),
		hits:          counter("cache_hits_total", "Reads served from fresh cached data.", "resource"),
		fetches:       counter("fetches_total", "Network fetches issued by the query cache.", "resource"),
		failures:      counter("fetch_failures_total", "Fetches that ended with an error.", "resource"),
		invalidations: counter("invalidations_total", "Entries matched by an invalidation.", "resource", "outcome"),
		evictions:     counter("evictions_total", "Entries evicted by the garbage collector.", "resource"),
	}
}

func (m *Metrics) request(k Key) {
	if m != nil {
		m.requests.WithLabelValues(k.Resource()).Inc()
	}
}

func (m *Metrics) hit(k Key) {
	if m != nil {
		m.hits.WithLabelValues(k.Resource()).Inc()
	}
}

func (m *Metrics) fetch(k Key) {
	if m != nil {
		m.fetches.WithLabelValues(k.Resource()).Inc()
	}
}

func (m *Metrics) failure(k Key) {
	if m != nil {
		m.failures.WithLabelValues(k.Resource()).Inc()
	}
}

func (m *Metrics) invalidated(k Key, refetched bool) {
	if m == nil {
		return
	}
	outcome := "dropped"
	if refetched {
		outcome = "refetched"
	}
	m.invalidations.WithLabelValues(k.Resource(), outcome).Inc()
}

func (m *Metrics) evicted(k Key) {
	if m != nil {
		m.evictions.WithLabelValues(k.Resource()).Inc()
	}
}
