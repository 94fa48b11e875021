// Package metrics exposes Prometheus collectors for the event pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the registry and the pipeline's instruments.
type Collector struct {
	registry *prometheus.Registry

	eventsRecorded     *prometheus.CounterVec
	eventsRejected     prometheus.Counter
	evaluationDuration prometheus.Histogram
}

func New() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		eventsRecorded: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "game_events_recorded_total",
			Help: "Game events appended to the event log, by verdict",
		}, []string{"valid"}),
		eventsRejected: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "game_events_rejected_total",
			Help: "Event submissions rejected before recording",
		}),
		evaluationDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "game_event_validation_duration_seconds",
			Help:    "Time spent validating and recording one game event",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveRecorded counts one recorded event and its pipeline duration.
func (c *Collector) ObserveRecorded(valid bool, d time.Duration) {
	label := "false"
	if valid {
		label = "true"
	}
	c.eventsRecorded.WithLabelValues(label).Inc()
	c.evaluationDuration.Observe(d.Seconds())
}

// ObserveRejected counts one submission that never reached the log.
func (c *Collector) ObserveRejected() {
	c.eventsRejected.Inc()
}

// Handler serves the /metrics endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
