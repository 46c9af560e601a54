// Package api exposes the analysis pipelines over HTTP: file uploads for
// the heuristic and semantic pipelines, a WebSocket stream for chunked
// live analysis, and the usual health, status, and metrics endpoints.
package api

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/soundveil/acouscope/analysis"
	"github.com/soundveil/acouscope/classify"
	"github.com/soundveil/acouscope/transcode"
)

// Config holds the HTTP server configuration
type Config struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	MaxUploadBytes int64         `json:"max_upload_bytes"`
	EnableMetrics  bool          `json:"enable_metrics"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxUploadBytes: 50 << 20,
		EnableMetrics:  true,
	}
}

// Server serves the analysis API. The classifier is optional; without one
// the /classify endpoint reports the capability as unavailable.
type Server struct {
	config     *Config
	logger     *logrus.Logger
	analyzer   *analysis.Analyzer
	decoder    *transcode.Decoder
	classifier classify.SegmentClassifier

	httpServer *http.Server
	mux        *http.ServeMux
	root       http.Handler
	startTime  time.Time
	wsClients  atomic.Int64
}

// NewServer wires the handlers and middleware. A nil config gets defaults.
func NewServer(logger *logrus.Logger, config *Config, analyzer *analysis.Analyzer, classifier classify.SegmentClassifier) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	server := &Server{
		config:     config,
		logger:     logger,
		analyzer:   analyzer,
		decoder:    transcode.NewDecoder(nil),
		classifier: classifier,
		startTime:  time.Now(),
	}

	mux := http.NewServeMux()
	server.mux = mux

	mux.HandleFunc("/analyze", server.handleAnalyze)
	mux.HandleFunc("/classify", server.handleClassify)
	mux.HandleFunc("/ws/live", server.handleLive)
	mux.HandleFunc("/health", server.handleHealth)
	mux.HandleFunc("/status", server.handleStatus)

	if config.EnableMetrics {
		InitMetrics(logger)
		promHandler := promhttp.HandlerFor(
			GetRegistry(),
			promhttp.HandlerOpts{
				EnableOpenMetrics: true,
				Registry:          GetRegistry(),
			},
		)
		mux.Handle("/metrics", promHandler)
		logger.Info("Prometheus metrics endpoint enabled at /metrics")
	}

	server.root = server.requestIDMiddleware(server.observeMiddleware(mux))

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.root,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server
}

// Handler returns the fully wrapped root handler. Used by tests to mount
// the server on httptest.
func (s *Server) Handler() http.Handler {
	return s.root
}

// Start starts the HTTP server in a goroutine
func (s *Server) Start() {
	s.logger.WithFields(logrus.Fields{
		"addr":       s.httpServer.Addr,
		"classifier": s.classifier != nil,
	}).Info("Starting HTTP server")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server failed")
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

// requestIDMiddleware tags every request with an ID, honoring one the
// client already sent.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		s.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"remote":     r.RemoteAddr,
		}).Debug("Request received")

		next.ServeHTTP(w, r)
	})
}

// observeMiddleware counts requests and outcomes per path.
func (s *Server) observeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		if registry != nil {
			HTTPRequestsTotal.WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(recorder.status)).Inc()
		}
	})
}

// statusRecorder captures the response status for metrics. Hijack is
// forwarded so the WebSocket upgrade still works through the wrapper.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
