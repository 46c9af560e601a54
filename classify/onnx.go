package classify

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/soundveil/acouscope/logging"
)

// modelSampleRate is the rate the sound event model was trained at.
// Input audio at any other rate is resampled before scoring.
const modelSampleRate = 16000

// ONNXClassifier scores segments with an ONNX sound event model. The model
// takes a mono float32 waveform and emits one score row per class frame.
type ONNXClassifier struct {
	session *ort.DynamicAdvancedSession
	labels  []string
	config  Config
	logger  logging.Logger

	mu     sync.Mutex
	closed bool
}

// NewONNXClassifier loads the model and class map and prepares a scoring
// session. Construction fails fast on a missing model file, a missing class
// map, or an unavailable ONNX Runtime library.
func NewONNXClassifier(config Config) (*ONNXClassifier, error) {
	config.applyDefaults()

	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", config.ModelPath)
	}

	labels, err := LoadClassMap(config.ClassMapPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load class map: %w", err)
	}

	if err := initONNXRuntime(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfo(config.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model: %w", err)
	}
	if len(inputInfo) == 0 || len(outputInfo) == 0 {
		return nil, fmt.Errorf("model declares no inputs or outputs")
	}

	inputNames := make([]string, len(inputInfo))
	for i, info := range inputInfo {
		inputNames[i] = info.Name
	}
	outputNames := make([]string, len(outputInfo))
	for i, info := range outputInfo {
		outputNames[i] = info.Name
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		config.ModelPath,
		inputNames,
		outputNames,
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	logger := logging.WithFields(logging.Fields{
		"component": "onnx_classifier",
	})
	logger.Info("classifier initialized", logging.Fields{
		"model":   config.ModelPath,
		"classes": len(labels),
		"inputs":  inputNames,
		"outputs": outputNames,
	})

	return &ONNXClassifier{
		session: session,
		labels:  labels,
		config:  config,
		logger:  logger,
	}, nil
}

// Classify slices the waveform into stride-aligned segments and scores each
// one. The final partial segment is zero-padded to the model window.
func (c *ONNXClassifier) Classify(ctx context.Context, pcm []float64, sampleRate int) ([]Segment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("classifier is closed")
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("empty waveform")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	samples := resampleLinear(pcm, sampleRate, modelSampleRate)
	segmentSamples := int(c.config.SegmentStride * modelSampleRate)
	if segmentSamples <= 0 {
		return nil, fmt.Errorf("invalid segment stride: %f", c.config.SegmentStride)
	}

	window := make([]float32, segmentSamples)
	var segments []Segment

	for start, index := 0, 0; start < len(samples); start, index = start+segmentSamples, index+1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + segmentSamples
		if end > len(samples) {
			end = len(samples)
		}
		for i := range window {
			if start+i < end {
				window[i] = float32(samples[start+i])
			} else {
				window[i] = 0
			}
		}

		scores, err := c.scoreWindow(window)
		if err != nil {
			return nil, fmt.Errorf("failed to score segment %d: %w", index, err)
		}

		segments = append(segments, Segment{
			Index:     index,
			StartTime: float64(index) * c.config.SegmentStride,
			Duration:  c.config.SegmentStride,
			Labels:    topScores(scores, c.labels, c.config.MaxResults, c.config.ScoreThreshold),
		})
	}

	c.logger.Debug("classification complete", logging.Fields{
		"segments":    len(segments),
		"sample_rate": sampleRate,
	})
	return segments, nil
}

// scoreWindow runs one model window and returns per-class scores averaged
// over the model's score frames.
func (c *ONNXClassifier) scoreWindow(window []float32) ([]float64, error) {
	inputShape := ort.NewShape(1, int64(len(window)))
	inputTensor, err := ort.NewTensor(inputShape, window)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := c.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	scoreTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}

	return meanScores(scoreTensor.GetData(), len(c.labels)), nil
}

// Close releases the ONNX session. Safe to call more than once.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	return nil
}

// ONNX Runtime global initialization, shared across classifier instances
var (
	onnxInitialized bool
	onnxInitMu      sync.Mutex
)

func initONNXRuntime() error {
	onnxInitMu.Lock()
	defer onnxInitMu.Unlock()

	if onnxInitialized {
		return nil
	}

	libPath := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")
	if libPath == "" {
		searchPaths := []string{
			"./libonnxruntime.so",
			"./lib/libonnxruntime.so",
			"/usr/lib/libonnxruntime.so",
			"/usr/local/lib/libonnxruntime.so",
		}
		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				libPath = path
				break
			}
		}
	}

	if libPath == "" {
		return fmt.Errorf("ONNX Runtime library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH")
	}
	ort.SetSharedLibraryPath(libPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return err
	}

	onnxInitialized = true
	return nil
}

// meanScores collapses a [frames x classes] score matrix into per-class
// means. A single-frame output passes through unchanged.
func meanScores(data []float32, numClasses int) []float64 {
	scores := make([]float64, numClasses)
	if numClasses == 0 || len(data) < numClasses {
		return scores
	}

	frames := len(data) / numClasses
	for f := 0; f < frames; f++ {
		for class := 0; class < numClasses; class++ {
			scores[class] += float64(data[f*numClasses+class])
		}
	}
	for class := range scores {
		scores[class] /= float64(frames)
	}
	return scores
}

// topScores selects labels clearing the threshold, best first, capped at
// maxResults.
func topScores(scores []float64, labels []string, maxResults int, threshold float64) []LabelScore {
	var result []LabelScore
	for i, score := range scores {
		if i >= len(labels) {
			break
		}
		if score >= threshold {
			result = append(result, LabelScore{Label: labels[i], Score: score})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})

	if maxResults > 0 && len(result) > maxResults {
		result = result[:maxResults]
	}
	return result
}

// resampleLinear converts a waveform between sample rates with linear
// interpolation. Matching rates pass through untouched.
func resampleLinear(samples []float64, srcRate, dstRate int) []float64 {
	if srcRate == dstRate {
		return samples
	}

	ratio := float64(srcRate) / float64(dstRate)
	newLen := int(float64(len(samples)) / ratio)
	resampled := make([]float64, newLen)

	for i := 0; i < newLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		if srcIdx+1 < len(samples) {
			resampled[i] = samples[srcIdx]*(1-frac) + samples[srcIdx+1]*frac
		} else if srcIdx < len(samples) {
			resampled[i] = samples[srcIdx]
		}
	}

	return resampled
}
