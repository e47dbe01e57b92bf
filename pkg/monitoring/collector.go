// Package monitoring exports training telemetry as Prometheus metrics.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/scigo-svm/sklearn/svm"
)

var _ svm.Observer = (*TrainingCollector)(nil)

// TrainingCollector records every estimator fit it observes. Register it
// with a prometheus.Registerer and pass it to svm.WithObserver.
type TrainingCollector struct {
	fits           *prometheus.CounterVec
	iterations     *prometheus.HistogramVec
	duration       *prometheus.HistogramVec
	supportVectors *prometheus.GaugeVec
	cacheRequests  *prometheus.CounterVec
}

// NewTrainingCollector creates the collector. namespace may be empty.
func NewTrainingCollector(namespace string) *TrainingCollector {
	return &TrainingCollector{
		fits: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Subsystem: "svm", Name: "fits_total", Help: "Completed fits by estimator and solver status."},
			[]string{"model", "status"},
		),
		iterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Subsystem: "svm", Name: "solver_iterations", Help: "SMO iterations per fit.",
				Buckets: prometheus.ExponentialBuckets(10, 4, 10)},
			[]string{"model"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Subsystem: "svm", Name: "fit_duration_seconds", Help: "Wall time of Fit.",
				Buckets: prometheus.DefBuckets},
			[]string{"model"},
		),
		supportVectors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: namespace, Subsystem: "svm", Name: "support_vectors", Help: "Support vectors of the latest fit."},
			[]string{"model"},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Subsystem: "svm", Name: "kernel_cache_requests_total", Help: "Kernel column cache lookups by result."},
			[]string{"model", "result"},
		),
	}
}

// ObserveFit implements svm.Observer.
func (c *TrainingCollector) ObserveFit(r svm.FitReport) {
	c.fits.WithLabelValues(r.Model, r.Status.String()).Inc()
	c.iterations.WithLabelValues(r.Model).Observe(float64(r.Iterations))
	c.duration.WithLabelValues(r.Model).Observe(r.Duration.Seconds())
	c.supportVectors.WithLabelValues(r.Model).Set(float64(r.NSupport))
	c.cacheRequests.WithLabelValues(r.Model, "hit").Add(float64(r.CacheHits))
	c.cacheRequests.WithLabelValues(r.Model, "miss").Add(float64(r.CacheMisses))
}

// Describe implements prometheus.Collector.
func (c *TrainingCollector) Describe(ch chan<- *prometheus.Desc) {
	c.fits.Describe(ch)
	c.iterations.Describe(ch)
	c.duration.Describe(ch)
	c.supportVectors.Describe(ch)
	c.cacheRequests.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *TrainingCollector) Collect(ch chan<- prometheus.Metric) {
	c.fits.Collect(ch)
	c.iterations.Collect(ch)
	c.duration.Collect(ch)
	c.supportVectors.Collect(ch)
	c.cacheRequests.Collect(ch)
}
