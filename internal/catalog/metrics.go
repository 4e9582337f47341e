package catalog

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RebuildSeconds prometheus.Histogram
	Vocabulary     prometheus.Gauge
	Products       prometheus.Gauge
	Queries        *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RebuildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_index_rebuild_seconds",
			Help:    "Time spent rebuilding the search index",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		Vocabulary: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_index_vocabulary_terms",
			Help: "Distinct terms in the inverted index",
		}),
		Products: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_products",
			Help: "Products currently in the catalog",
		}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_queries_total",
			Help: "Product queries by outcome",
		}, []string{"result"}),
	}

	reg.MustRegister(m.RebuildSeconds, m.Vocabulary, m.Products, m.Queries)
	return m
}

func (m *Metrics) observeRebuild(d time.Duration, ix *Index) {
	if m == nil {
		return
	}
	m.RebuildSeconds.Observe(d.Seconds())
	m.Vocabulary.Set(float64(ix.Vocabulary()))
	m.Products.Set(float64(ix.Len()))
}

func (m *Metrics) observeQuery(err error) {
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, ErrPageOutOfRange):
		result = "page_out_of_range"
	case errors.Is(err, ErrValidation):
		result = "invalid"
	case err != nil:
		result = "error"
	}
	m.Queries.WithLabelValues(result).Inc()
}
