// Command acouscope runs the semantic segment pipeline as a one-shot
// filter: a JSON request with base64 audio on stdin, the report as JSON on
// stdout. Logs go to stderr so stdout stays machine-readable.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/soundveil/acouscope/analysis"
	"github.com/soundveil/acouscope/classify"
	"github.com/soundveil/acouscope/logging"
	"github.com/soundveil/acouscope/transcode"
)

// request is the stdin payload
type request struct {
	AudioData string `json:"audioData"`
	Filename  string `json:"filename"`
}

var logger = logrus.New()

func main() {
	os.Exit(run())
}

func run() int {
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(os.Getenv("ACOUSCOPE_LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	_ = godotenv.Load()
	logging.SetGlobalLogger(logging.NewLogrusLogger(logger))

	stat, statErr := os.Stdin.Stat()
	if statErr == nil && stat.Mode()&os.ModeCharDevice != 0 {
		fmt.Fprintln(os.Stderr, `Usage: echo '{"audioData": "<base64>", "filename": "clip.wav"}' | acouscope`)
		return 2
	}

	input, err := io.ReadAll(os.Stdin)
	if err != nil || len(input) == 0 {
		logger.Error("Empty input on stdin")
		emitCompact(map[string]string{"error": "Empty input"})
		return 1
	}

	var req request
	if err := json.Unmarshal(input, &req); err != nil {
		logger.Error("Invalid JSON on stdin")
		emitCompact(map[string]string{"error": "Invalid JSON"})
		return 1
	}
	if req.AudioData == "" {
		emitCompact(map[string]string{"error": "No audioData provided"})
		return 1
	}
	if req.Filename == "" {
		req.Filename = "unknown"
	}

	// From here on every outcome is a report or a failure envelope on
	// stdout; the transport contract has been satisfied.
	report, failure := classifyAudio(req)
	if failure != nil {
		emitCompact(failure)
		return 0
	}
	emitIndented(report)
	return 0
}

// classifyAudio runs the full pipeline. It returns either the report or
// the failure envelope, never both.
func classifyAudio(req request) (*analysis.SegmentReport, *analysis.FailureReport) {
	logger.WithField("filename", req.Filename).Info("Starting semantic audio classification")

	audioBytes, err := base64.StdEncoding.DecodeString(req.AudioData)
	if err != nil {
		return nil, analysis.NewFailureReport(analysis.AnalysisTypeSegment, analysis.FailureMessageSegment,
			fmt.Errorf("failed to decode base64 audio: %w", err))
	}

	audio, err := transcode.NewDecoder(nil).Decode(audioBytes, req.Filename)
	if err != nil {
		return nil, analysis.NewFailureReport(analysis.AnalysisTypeSegment, analysis.FailureMessageSegment, err)
	}

	classifier, err := buildClassifier()
	if err != nil {
		return nil, analysis.NewFailureReport(analysis.AnalysisTypeSegment, analysis.FailureMessageSegment, err)
	}
	defer classifier.Close()

	analyzer, err := analysis.NewAnalyzer(nil)
	if err != nil {
		return nil, analysis.NewFailureReport(analysis.AnalysisTypeSegment, analysis.FailureMessageSegment, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := analyzer.AnalyzeSegments(ctx, req.Filename, audio.PCM, audio.SampleRate, classifier)
	if err != nil {
		return nil, analysis.NewFailureReport(analysis.AnalysisTypeSegment, analysis.FailureMessageSegment, err)
	}

	logger.WithFields(logrus.Fields{
		"filename": req.Filename,
		"segments": report.SegmentsAnalyzed,
		"events":   report.DetectedSounds,
	}).Info("Classification complete")

	return report, nil
}

// buildClassifier resolves the model and class map from the environment,
// falling back to a models/ directory beside the binary or the working
// directory.
func buildClassifier() (classify.SegmentClassifier, error) {
	config := classify.DefaultConfig()

	config.ModelPath = os.Getenv("ACOUSCOPE_MODEL_PATH")
	if config.ModelPath == "" {
		config.ModelPath = findModelFile("yamnet.onnx")
	}
	if config.ModelPath == "" {
		return nil, fmt.Errorf("classifier model not found: set ACOUSCOPE_MODEL_PATH or place yamnet.onnx under models/")
	}

	config.ClassMapPath = os.Getenv("ACOUSCOPE_CLASS_MAP")
	if config.ClassMapPath == "" {
		config.ClassMapPath = findModelFile("yamnet_class_map.csv")
	}

	return classify.NewONNXClassifier(config)
}

// findModelFile looks for name under models/ next to the executable, then
// under the working directory.
func findModelFile(name string) string {
	var candidates []string
	if executable, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(executable), "models", name))
	}
	candidates = append(candidates, filepath.Join("models", name))

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func emitCompact(body interface{}) {
	if err := json.NewEncoder(os.Stdout).Encode(body); err != nil {
		logger.WithError(err).Error("Failed to write result")
	}
}

func emitIndented(body interface{}) {
	payload, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		logger.WithError(err).Error("Failed to encode result")
		return
	}
	fmt.Println(string(payload))
}
