// Package metrics exports draw statistics of a scene.ThreadManager to
// Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/scenegraph/scene"
)

// StatsSource provides draw statistics. *scene.ThreadManager implements it.
type StatsSource interface {
	Stats() scene.DrawStats
}

var _ StatsSource = (*scene.ThreadManager)(nil)

// Collector is a prometheus.Collector reading a StatsSource on every
// scrape.
type Collector struct {
	src StatsSource

	draws     *prometheus.Desc
	recorded  *prometheus.Desc
	skipped   *prometheus.Desc
	submitted *prometheus.Desc
	phase     *prometheus.Desc
	claims    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector for src. Metric names are prefixed with
// namespace when it is not empty.
func NewCollector(src StatsSource, namespace string) *Collector {
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, "scene", n)
	}
	return &Collector{
		src: src,
		draws: prometheus.NewDesc(name("draws_total"),
			"Completed draws.", nil, nil),
		recorded: prometheus.NewDesc(name("items_recorded_total"),
			"Item lists committed successfully.", nil, nil),
		skipped: prometheus.NewDesc(name("items_skipped_total"),
			"Item lists whose recording failed.", nil, nil),
		submitted: prometheus.NewDesc(name("command_buffers_submitted_total"),
			"Command buffers submitted into destination buffers.", nil, nil),
		phase: prometheus.NewDesc(name("last_phase_seconds"),
			"Duration of each phase of the last draw.", []string{"phase"}, nil),
		claims: prometheus.NewDesc(name("worker_claims_total"),
			"Item lists claimed per recording thread; worker 0 is the drawing goroutine.",
			[]string{"worker"}, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.draws
	ch <- c.recorded
	ch <- c.skipped
	ch <- c.submitted
	ch <- c.phase
	ch <- c.claims
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	counter(c.draws, st.Draws)
	counter(c.recorded, st.ItemsRecorded)
	counter(c.skipped, st.ItemsSkipped)
	counter(c.submitted, st.CommandBuffersSubmitted)

	for _, p := range []struct {
		label string
		secs  float64
	}{
		{"setup", st.LastSetup.Seconds()},
		{"record", st.LastRecord.Seconds()},
		{"submit", st.LastSubmit.Seconds()},
	} {
		ch <- prometheus.MustNewConstMetric(c.phase, prometheus.GaugeValue, p.secs, p.label)
	}

	for i, n := range st.WorkerClaims {
		counter(c.claims, n, strconv.Itoa(i))
	}
}
