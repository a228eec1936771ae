// Package metrics содержит метрики Prometheus сервиса управления тендерами.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "licitaciones_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "licitaciones_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	tenderSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "licitaciones_tender_saves_total",
		Help: "Tender save transactions by mode and result",
	}, []string{"mode", "result"})

	tenderSaveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "licitaciones_tender_save_duration_seconds",
		Help:    "Duration of tender save transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "licitaciones_cache_lookups_total",
		Help: "Read cache lookups by result",
	}, []string{"result"})
)

// ObserveHTTPRequest учитывает обработанный HTTP-запрос.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveTenderSave учитывает транзакцию сохранения тендера.
func ObserveTenderSave(mode, result string, duration time.Duration) {
	tenderSaves.WithLabelValues(mode, result).Inc()
	tenderSaveDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveCacheLookup учитывает попадание или промах кэша.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}
