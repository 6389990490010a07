package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsMetric = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vramd",
		Subsystem: "manager",
		Name:      "loads_total",
		Help:      "Total resource loads committed",
	})

	loadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vramd",
		Subsystem: "manager",
		Name:      "load_failures_total",
		Help:      "Total loader failures",
	})

	evictionsMetric = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vramd",
		Subsystem: "manager",
		Name:      "evictions_total",
		Help:      "Total LRU evictions performed to free device memory",
	})

	residentBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vramd",
		Subsystem: "manager",
		Name:      "resident_bytes",
		Help:      "Measured bytes of currently resident resources",
	})

	residentCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vramd",
		Subsystem: "manager",
		Name:      "resident_resources",
		Help:      "Number of currently resident resources",
	})
)

func init() {
	prometheus.MustRegister(loadsMetric, loadFailures, evictionsMetric, residentBytes, residentCount)
}

// syncGauges refreshes the resident gauges from the cache accounting.
func (m *Manager) syncGauges() {
	m.mu.Lock()
	used := m.used
	count := len(m.entries)
	m.mu.Unlock()
	residentBytes.Set(float64(used))
	residentCount.Set(float64(count))
}
