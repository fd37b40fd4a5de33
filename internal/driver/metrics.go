package driver

import (
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"trans/internal/mono"
)

// Metrics counts lowering work in a private set so that several runs in
// one process do not share counters.
type Metrics struct {
	set *metrics.Set

	functions     *metrics.Counter
	instances     *metrics.Counter
	glue          *metrics.Counter
	failures      *metrics.Counter
	cacheHits     *metrics.Counter
	cacheMisses   *metrics.Counter
	lowerDuration *metrics.Histogram
}

// NewMetrics registers the lowering counters.
func NewMetrics() *Metrics {
	s := metrics.NewSet()
	return &Metrics{
		set:           s,
		functions:     s.NewCounter(`transc_functions_lowered_total{kind="root"}`),
		instances:     s.NewCounter(`transc_functions_lowered_total{kind="instance"}`),
		glue:          s.NewCounter(`transc_functions_lowered_total{kind="glue"}`),
		failures:      s.NewCounter(`transc_lower_failures_total`),
		cacheHits:     s.NewCounter(`transc_instance_cache_requests_total{result="hit"}`),
		cacheMisses:   s.NewCounter(`transc_instance_cache_requests_total{result="miss"}`),
		lowerDuration: s.NewHistogram(`transc_function_lower_duration_seconds`),
	}
}

// WritePrometheus writes every counter in Prometheus text format.
func (m *Metrics) WritePrometheus(w io.Writer) {
	if m == nil {
		return
	}
	m.set.WritePrometheus(w)
}

// Functions returns how many root bodies were lowered.
func (m *Metrics) Functions() uint64 {
	if m == nil {
		return 0
	}
	return m.functions.Get()
}

func (m *Metrics) lowered(kind mono.InstantiationKind, start time.Time) {
	if m == nil {
		return
	}
	switch kind {
	case mono.InstFn:
		m.instances.Inc()
	default:
		m.glue.Inc()
	}
	m.lowerDuration.UpdateDuration(start)
}

func (m *Metrics) root(start time.Time) {
	if m == nil {
		return
	}
	m.functions.Inc()
	m.lowerDuration.UpdateDuration(start)
}

func (m *Metrics) failed() {
	if m != nil {
		m.failures.Inc()
	}
}

func (m *Metrics) cache(st ...mono.Stats) {
	if m == nil {
		return
	}
	for _, s := range st {
		m.cacheHits.Add(int(s.Hits))
		m.cacheMisses.Add(int(s.Misses))
	}
}
