package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	itemsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_items_extracted_total",
			Help: "Items extracted from feed objects.",
		},
		[]string{"provider", "feed_type"},
	)
	objectsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_objects_skipped_total",
			Help: "Feed objects skipped by the state tracker or soft-skipped.",
		},
		[]string{"reason"},
	)
	formatErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_format_errors_total",
			Help: "Feed objects rejected as unparseable.",
		},
	)
	messagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_messages_sent_total",
			Help: "Envelope chunks sent to the transport.",
		},
	)
	rowsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "price_rows_written_total",
			Help: "Price observation rows written by the consumer.",
		},
	)
	applyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consumer_apply_duration_seconds",
			Help:    "Histogram of document apply durations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(itemsExtracted)
	prometheus.MustRegister(objectsSkipped)
	prometheus.MustRegister(formatErrors)
	prometheus.MustRegister(messagesSent)
	prometheus.MustRegister(rowsWritten)
	prometheus.MustRegister(applyDuration)
}

// RecordRequest записывает метрики для HTTP-запроса.
func RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

func RecordItemsExtracted(provider, feedType string, count int) {
	itemsExtracted.WithLabelValues(provider, feedType).Add(float64(count))
}

func RecordObjectSkipped(reason string) {
	objectsSkipped.WithLabelValues(reason).Inc()
}

func RecordFormatError() {
	formatErrors.Inc()
}

func RecordMessagesSent(count int) {
	messagesSent.Add(float64(count))
}

func RecordRowsWritten(count int) {
	rowsWritten.Add(float64(count))
}

func RecordApplyDuration(d time.Duration) {
	applyDuration.Observe(d.Seconds())
}

// classifyStatus классифицирует HTTP-статус код в строку.
func classifyStatus(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "2xx"
	} else if statusCode >= 300 && statusCode < 400 {
		return "3xx"
	} else if statusCode >= 400 && statusCode < 500 {
		return "4xx"
	} else if statusCode >= 500 && statusCode < 600 {
		return "5xx"
	}
	return "unknown"
}

// MetricsHandler возвращает HTTP-обработчик для экспорта метрик Prometheus.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
