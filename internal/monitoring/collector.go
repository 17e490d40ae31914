// Package monitoring exports build metrics and sends failure alerts.
package monitoring

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"

	"github.com/sells-group/camera-db/internal/model"
)

// Collector records run outcomes as Prometheus metrics on a private
// registry. Builds are short-lived, so the registry is written to a
// node-exporter textfile rather than served.
type Collector struct {
	reg *prometheus.Registry

	records       *prometheus.GaugeVec
	bytes         *prometheus.GaugeVec
	duplicates    *prometheus.GaugeVec
	written       *prometheus.GaugeVec
	lastSuccessTS *prometheus.GaugeVec
	attempts      *prometheus.CounterVec
	attemptDur    *prometheus.HistogramVec
	runs          *prometheus.CounterVec

	mu sync.Mutex
}

// NewCollector creates a collector with its metrics registered.
func NewCollector() *Collector {
	c := &Collector{reg: prometheus.NewRegistry()}

	c.records = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camdb",
		Name:      "category_records",
		Help:      "Records written to the category database in the last run",
	}, []string{"category"})
	c.bytes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camdb",
		Name:      "category_bytes",
		Help:      "Size of the category database written in the last run",
	}, []string{"category"})
	c.duplicates = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camdb",
		Name:      "category_duplicates",
		Help:      "Candidates dropped as duplicates in the last run",
	}, []string{"category"})
	c.written = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camdb",
		Name:      "category_written",
		Help:      "1 if the category database was written in the last run, else 0",
	}, []string{"category"})
	c.lastSuccessTS = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camdb",
		Name:      "category_last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last run that wrote the category database",
	}, []string{"category"})
	c.attempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camdb",
		Name:      "source_attempts_total",
		Help:      "Source attempts by outcome",
	}, []string{"source", "category", "outcome"})
	c.attemptDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "camdb",
		Name:      "source_attempt_duration_seconds",
		Help:      "Time spent in a source attempt",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"source"})
	c.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camdb",
		Name:      "runs_total",
		Help:      "Build runs by status",
	}, []string{"status"})

	c.reg.MustRegister(
		c.records, c.bytes, c.duplicates, c.written, c.lastSuccessTS,
		c.attempts, c.attemptDur, c.runs,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// ObserveRun records a finished run.
func (c *Collector) ObserveRun(run *model.RunResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := "failed"
	if run.OK() {
		status = "ok"
	}
	c.runs.WithLabelValues(status).Inc()

	for _, cr := range run.Categories {
		cat := string(cr.Category)
		for _, a := range cr.Attempts {
			c.attempts.WithLabelValues(a.Source, cat, string(a.Outcome)).Inc()
			if a.Outcome != model.OutcomeSkipped {
				c.attemptDur.WithLabelValues(a.Source).Observe(float64(a.DurationMs) / 1000)
			}
		}
		if cr.State != model.StateWritten {
			c.written.WithLabelValues(cat).Set(0)
			continue
		}
		c.written.WithLabelValues(cat).Set(1)
		c.records.WithLabelValues(cat).Set(float64(cr.Records))
		c.bytes.WithLabelValues(cat).Set(float64(cr.Bytes))
		c.duplicates.WithLabelValues(cat).Set(float64(cr.Duplicates))
		c.lastSuccessTS.WithLabelValues(cat).Set(float64(run.FinishedAt.Unix()))
	}
}

// WriteTextfile writes the registry in the text exposition format. The file
// is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	return eris.Wrapf(prometheus.WriteToTextfile(path, c.reg), "monitoring: write textfile %s", path)
}
