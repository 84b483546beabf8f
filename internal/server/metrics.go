package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minichat",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route template, method and status code.",
		}, []string{"route", "method", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "minichat",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route template and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}
