package api

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/gorilla/websocket"
)

// defaultLiveSampleRate applies until the client sends a control message
const defaultLiveSampleRate = 44100

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all connections
		return true
	},
}

// liveControl is the JSON control message a client may send as text
type liveControl struct {
	SampleRate int `json:"sampleRate"`
}

// handleLive streams chunk analysis over a WebSocket. Binary frames carry
// little-endian float32 PCM and get one JSON result each; text frames are
// control messages. Per-chunk failures are reported in-band so one bad
// chunk does not tear down the stream.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	s.wsClients.Add(1)
	if registry != nil {
		WSClientsActive.Inc()
	}
	defer func() {
		s.wsClients.Add(-1)
		if registry != nil {
			WSClientsActive.Dec()
		}
	}()

	logger := s.logger.WithField("remote", conn.RemoteAddr().String())
	logger.Info("Live analysis client connected")

	sampleRate := defaultLiveSampleRate
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Warn("Live analysis connection dropped")
			} else {
				logger.Debug("Live analysis client disconnected")
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			var control liveControl
			if err := json.Unmarshal(payload, &control); err != nil {
				s.writeLiveError(conn, fmt.Errorf("invalid control message: %w", err))
				continue
			}
			if control.SampleRate > 0 {
				sampleRate = control.SampleRate
				logger.WithField("sample_rate", sampleRate).Debug("Sample rate updated")
			}

		case websocket.BinaryMessage:
			samples, err := decodeFloat32LE(payload)
			if err != nil {
				s.countChunk("error")
				s.writeLiveError(conn, err)
				continue
			}

			result, err := s.analyzer.AnalyzeChunk(samples, sampleRate)
			if err != nil {
				s.countChunk("error")
				s.writeLiveError(conn, err)
				continue
			}

			s.countChunk("ok")
			if err := conn.WriteJSON(result); err != nil {
				logger.WithError(err).Warn("Failed to write chunk result")
				return
			}
		}
	}
}

func (s *Server) countChunk(status string) {
	if registry != nil {
		WSChunksTotal.WithLabelValues(status).Inc()
	}
}

func (s *Server) writeLiveError(conn *websocket.Conn, err error) {
	if writeErr := conn.WriteJSON(map[string]string{"error": err.Error()}); writeErr != nil {
		s.logger.WithError(writeErr).Warn("Failed to write error to live client")
	}
}

// decodeFloat32LE converts a binary PCM frame into samples.
func decodeFloat32LE(data []byte) ([]float64, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("binary frame must be little-endian float32 PCM, got %d bytes", len(data))
	}

	samples := make([]float64, len(data)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		samples[i] = float64(math.Float32frombits(bits))
	}
	return samples, nil
}
