// Package metrics exposes Prometheus counters for projection batches and
// reference-join sub-queries, fed from the eventbus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skaldby/projoin/internal/eventbus"
	"github.com/skaldby/projoin/internal/events"
)

type Collector struct {
	registry    *prometheus.Registry
	projections *prometheus.CounterVec
	projectTime *prometheus.HistogramVec
	subQueries  *prometheus.CounterVec
	subQueryIDs prometheus.Histogram
}

// NewCollector registers the projection metrics and subscribes them to the
// eventbus.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		projections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "projoin_projections_total",
			Help: "Projection batches by document type and outcome.",
		}, []string{"doc_type", "status"}),
		projectTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "projoin_projection_duration_seconds",
			Help:    "Projection batch latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"doc_type"}),
		subQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "projoin_subqueries_total",
			Help: "Reference-join sub-queries by target type and outcome.",
		}, []string{"target_type", "status"}),
		subQueryIDs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "projoin_subquery_id_count",
			Help:    "Distinct foreign ids per sub-query.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	c.registry.MustRegister(c.projections, c.projectTime, c.subQueries, c.subQueryIDs)

	eventbus.Subscribe(func(_ context.Context, e events.ProjectFinish) {
		c.projections.WithLabelValues(e.DocType, statusLabel(e.Err)).Inc()
		c.projectTime.WithLabelValues(e.DocType).Observe(e.Duration.Seconds())
	})
	eventbus.Subscribe(func(_ context.Context, e events.SubQueryFinish) {
		c.subQueries.WithLabelValues(e.TargetType, statusLabel(e.Err)).Inc()
		c.subQueryIDs.Observe(float64(e.IDs))
	})
	return c
}

// Handler serves the collected metrics in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
