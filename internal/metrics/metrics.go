// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GraphRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "altcos_graph_requests_total",
		Help: "Graph queries by result",
	}, []string{"result"})

	GraphDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "altcos_graph_build_duration_seconds",
		Help:    "Time spent walking the commit chain and building the graph",
		Buckets: prometheus.DefBuckets,
	})

	ChainLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "altcos_graph_chain_length",
		Help:    "Number of commits in the walked chain",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
	})

	HeadUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "altcos_stream_head_updates_total",
		Help: "Stream head changes observed by the store watcher",
	}, []string{"ref"})
)
