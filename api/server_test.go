package api

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundveil/acouscope/analysis"
	"github.com/soundveil/acouscope/classify"
)

func newTestServer(t *testing.T, classifier classify.SegmentClassifier) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	analyzer, err := analysis.NewAnalyzer(nil)
	require.NoError(t, err)

	return NewServer(logger, nil, analyzer, classifier)
}

// buildToneWAV builds a 16-bit PCM mono WAV holding a sine tone.
func buildToneWAV(t *testing.T, freq float64, sampleRate, n int) []byte {
	t.Helper()

	var buf bytes.Buffer
	dataSize := n * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for i := 0; i < n; i++ {
		sample := 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		binary.Write(&buf, binary.LittleEndian, int16(sample*32767))
	}

	return buf.Bytes()
}

// multipartUpload wraps payload as the "audio" part of a multipart body.
func multipartUpload(t *testing.T, filename string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &body, writer.FormDataContentType()
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, nil)

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var health healthStatus
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "ok", health.Checks["analyzer"])
	assert.Equal(t, "disabled", health.Checks["classifier"])
	assert.NotEmpty(t, health.Timestamp)
	assert.Greater(t, health.System.CPUCount, 0)
}

func TestHealthReportsClassifier(t *testing.T) {
	server := newTestServer(t, &stubClassifier{})

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	var health healthStatus
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Checks["classifier"])
}

func TestStatusEndpoint(t *testing.T) {
	server := newTestServer(t, nil)

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))
	assert.Equal(t, "acouscope", status["service"])
	assert.Equal(t, false, status["classifier_enabled"])
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, nil)

	// Generate at least one counted request before scraping
	warmup := httptest.NewRecorder()
	server.Handler().ServeHTTP(warmup, httptest.NewRequest(http.MethodGet, "/health", nil))

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.Contains(t, body, "acouscope_ws_clients")
	assert.Contains(t, body, "acouscope_http_requests_total")
}

func TestRequestIDGenerated(t *testing.T) {
	server := newTestServer(t, nil)

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func TestRequestIDPropagated(t *testing.T) {
	server := newTestServer(t, nil)

	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	request.Header.Set("X-Request-ID", "req-123")

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, request)

	assert.Equal(t, "req-123", recorder.Header().Get("X-Request-ID"))
}

func TestShutdownWithoutStart(t *testing.T) {
	server := newTestServer(t, nil)
	assert.NoError(t, server.Shutdown(context.Background()))
}
