package api

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once

	// Pipeline metrics
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	DetectedEvents   *prometheus.HistogramVec

	// Transport metrics
	HTTPRequestsTotal *prometheus.CounterVec
	UploadBytes       prometheus.Histogram
	WSClientsActive   prometheus.Gauge
	WSChunksTotal     *prometheus.CounterVec
)

// InitMetrics initializes all metrics and registers them on a private
// registry, keeping the default Go collectors out of the scrape surface.
// Safe to call more than once.
func InitMetrics(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		AnalysesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acouscope_analyses_total",
				Help: "Total number of analysis requests by pipeline and outcome",
			},
			[]string{"pipeline", "status"},
		)

		AnalysisDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "acouscope_analysis_duration_seconds",
				Help:    "Wall time spent inside the analysis pipelines",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"pipeline"},
		)

		DetectedEvents = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "acouscope_detected_events",
				Help:    "Number of sound events detected per analysis",
				Buckets: prometheus.LinearBuckets(0, 5, 11), // 0 to 50
			},
			[]string{"pipeline"},
		)

		HTTPRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acouscope_http_requests_total",
				Help: "Total number of HTTP requests by path, method, and status code",
			},
			[]string{"path", "method", "status"},
		)

		UploadBytes = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "acouscope_upload_bytes",
				Help:    "Size of uploaded audio payloads",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB to ~256MiB
			},
		)

		WSClientsActive = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "acouscope_ws_clients",
				Help: "Number of connected live analysis WebSocket clients",
			},
		)

		WSChunksTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acouscope_ws_chunks_total",
				Help: "Total number of WebSocket audio chunks by outcome",
			},
			[]string{"status"},
		)

		registry.MustRegister(
			AnalysesTotal,
			AnalysisDuration,
			DetectedEvents,
			HTTPRequestsTotal,
			UploadBytes,
			WSClientsActive,
			WSChunksTotal,
		)

		logger.Info("Prometheus metrics initialized")
	})
}

// GetRegistry returns the metrics registry, or nil when InitMetrics has
// not run yet.
func GetRegistry() *prometheus.Registry {
	return registry
}

func observeAnalysis(pipeline string, seconds float64, events int, err error) {
	if registry == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	AnalysesTotal.WithLabelValues(pipeline, status).Inc()
	if err == nil {
		AnalysisDuration.WithLabelValues(pipeline).Observe(seconds)
		DetectedEvents.WithLabelValues(pipeline).Observe(float64(events))
	}
}
