package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soundveil/acouscope/analysis"
)

const serverVersion = "1.0.0"

// handleAnalyze runs the heuristic event pipeline on an uploaded file.
// Any pipeline failure is reported as the structured failure envelope, so
// clients always get one of the two documented shapes.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, filename, err := s.readUpload(w, r)
	if err != nil {
		s.writeFailure(w, http.StatusBadRequest, analysis.AnalysisTypeLive, analysis.FailureMessageLive, err)
		return
	}

	audio, err := s.decoder.Decode(data, filename)
	if err != nil {
		s.logger.WithError(err).WithField("filename", filename).Warn("Decode failed")
		s.writeFailure(w, http.StatusBadRequest, analysis.AnalysisTypeLive, analysis.FailureMessageLive, err)
		return
	}

	start := time.Now()
	report, err := s.analyzer.AnalyzeWaveform(filename, audio.PCM, audio.SampleRate)
	if err != nil {
		observeAnalysis("live", 0, 0, err)
		s.logger.WithError(err).WithField("filename", filename).Error("Live analysis failed")
		s.writeFailure(w, http.StatusInternalServerError, analysis.AnalysisTypeLive, analysis.FailureMessageLive, err)
		return
	}
	observeAnalysis("live", time.Since(start).Seconds(), report.DetectedSounds, nil)

	s.writeJSON(w, http.StatusOK, report)
}

// handleClassify runs the semantic segment pipeline. Without a configured
// classifier the capability is reported as unavailable.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.classifier == nil {
		err := fmt.Errorf("semantic classifier not configured")
		s.writeFailure(w, http.StatusServiceUnavailable, analysis.AnalysisTypeSegment, analysis.FailureMessageSegment, err)
		return
	}

	data, filename, err := s.readUpload(w, r)
	if err != nil {
		s.writeFailure(w, http.StatusBadRequest, analysis.AnalysisTypeSegment, analysis.FailureMessageSegment, err)
		return
	}

	audio, err := s.decoder.Decode(data, filename)
	if err != nil {
		s.logger.WithError(err).WithField("filename", filename).Warn("Decode failed")
		s.writeFailure(w, http.StatusBadRequest, analysis.AnalysisTypeSegment, analysis.FailureMessageSegment, err)
		return
	}

	start := time.Now()
	report, err := s.analyzer.AnalyzeSegments(r.Context(), filename, audio.PCM, audio.SampleRate, s.classifier)
	if err != nil {
		observeAnalysis("segment", 0, 0, err)
		s.logger.WithError(err).WithField("filename", filename).Error("Segment analysis failed")
		s.writeFailure(w, http.StatusInternalServerError, analysis.AnalysisTypeSegment, analysis.FailureMessageSegment, err)
		return
	}
	observeAnalysis("segment", time.Since(start).Seconds(), report.DetectedSounds, nil)

	s.writeJSON(w, http.StatusOK, report)
}

// healthStatus is the /health response body
type healthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
	System    systemInfo        `json:"system"`
}

type systemInfo struct {
	GoRoutines int   `json:"goroutines"`
	MemoryMB   int64 `json:"memory_mb"`
	CPUCount   int   `json:"cpu_count"`
	WSClients  int64 `json:"ws_clients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	health := healthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Version:   serverVersion,
		Checks: map[string]string{
			"analyzer": "ok",
			"decoder":  "ok",
		},
		System: systemInfo{
			GoRoutines: runtime.NumGoroutine(),
			MemoryMB:   int64(mem.Alloc / 1024 / 1024),
			CPUCount:   runtime.NumCPU(),
			WSClients:  s.wsClients.Load(),
		},
	}

	if s.classifier != nil {
		health.Checks["classifier"] = "ok"
	} else {
		health.Checks["classifier"] = "disabled"
	}

	s.writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := map[string]interface{}{
		"service":            "acouscope",
		"version":            serverVersion,
		"started":            s.startTime.UTC().Format(time.RFC3339),
		"uptime_seconds":     int64(time.Since(s.startTime).Seconds()),
		"classifier_enabled": s.classifier != nil,
		"ws_clients":         s.wsClients.Load(),
		"max_upload_bytes":   s.config.MaxUploadBytes,
	}

	s.writeJSON(w, http.StatusOK, status)
}

// readUpload extracts the audio payload from a request: the "audio" part
// of a multipart form, or the raw body with an optional ?filename= hint.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
			return nil, "", fmt.Errorf("parsing upload: %w", err)
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			return nil, "", fmt.Errorf("missing audio field: %w", err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", fmt.Errorf("reading upload: %w", err)
		}
		s.observeUpload(len(data))
		return data, header.Filename, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading body: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty request body")
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "upload"
	}
	s.observeUpload(len(data))
	return data, filename, nil
}

func (s *Server) observeUpload(size int) {
	if registry != nil {
		UploadBytes.Observe(float64(size))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeFailure emits the structured failure envelope. This is the single
// place upload pipeline errors become client-visible.
func (s *Server) writeFailure(w http.ResponseWriter, status int, analysisType, message string, err error) {
	s.logger.WithFields(logrus.Fields{
		"analysis_type": analysisType,
		"status":        status,
	}).WithError(err).Debug("Returning failure envelope")

	s.writeJSON(w, status, analysis.NewFailureReport(analysisType, message, err))
}
