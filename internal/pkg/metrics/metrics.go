package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "robogate_trades_total",
		Help: "The total number of trade executions by terminal status",
	}, []string{"status", "source"})

	ValidationRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "robogate_validation_rejects_total",
		Help: "Total validation pipeline rejections",
	}, []string{"category"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "robogate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	VenueLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "robogate_venue_latency_seconds",
		Help:    "Venue call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	AssetCacheRefresh = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "robogate_asset_cache_refresh_total",
		Help: "Venue asset metadata refresh attempts",
	}, []string{"outcome"})
)
