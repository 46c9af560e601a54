package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/soundveil/acouscope/analysis"
	"github.com/soundveil/acouscope/api"
	"github.com/soundveil/acouscope/classify"
	"github.com/soundveil/acouscope/logging"
)

var logger = logrus.New()

func main() {
	// Environment wins over .env; a missing .env is fine
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded configuration from .env file")
	}

	configureLogger()

	// Route the library loggers through the same logrus instance
	logging.SetGlobalLogger(logging.NewLogrusLogger(logger))

	analyzer, err := analysis.NewAnalyzer(nil)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize analyzer")
	}

	classifier := buildClassifier()

	serverConfig := &api.Config{
		Host:           getEnv("ACOUSCOPE_HOST", "0.0.0.0"),
		Port:           getEnvInt("ACOUSCOPE_PORT", 8080),
		ReadTimeout:    getEnvDuration("ACOUSCOPE_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getEnvDuration("ACOUSCOPE_WRITE_TIMEOUT", 60*time.Second),
		MaxUploadBytes: int64(getEnvInt("ACOUSCOPE_MAX_UPLOAD_MB", 50)) << 20,
		EnableMetrics:  getEnvBool("ACOUSCOPE_ENABLE_METRICS", true),
	}

	server := api.NewServer(logger, serverConfig, analyzer, classifier)
	server.Start()

	// Graceful shutdown handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Received shutdown signal, cleaning up...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error shutting down HTTP server")
	}

	if classifier != nil {
		if err := classifier.Close(); err != nil {
			logger.WithError(err).Warn("Error closing classifier")
		}
	}

	logger.Info("Shutdown complete")
}

func configureLogger() {
	if strings.EqualFold(getEnv("ACOUSCOPE_LOG_FORMAT", "json"), "json") {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(getEnv("ACOUSCOPE_LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// buildClassifier initializes the ONNX classifier when a model is
// configured. Failures disable the /classify capability rather than
// aborting startup; the upload pipeline works without it.
func buildClassifier() classify.SegmentClassifier {
	modelPath := os.Getenv("ACOUSCOPE_MODEL_PATH")
	if modelPath == "" {
		logger.Info("No classifier model configured, semantic classification disabled")
		return nil
	}

	config := classify.DefaultConfig()
	config.ModelPath = modelPath
	config.ClassMapPath = os.Getenv("ACOUSCOPE_CLASS_MAP")
	config.ScoreThreshold = getEnvFloat("ACOUSCOPE_SCORE_THRESHOLD", config.ScoreThreshold)
	config.MaxResults = getEnvInt("ACOUSCOPE_MAX_RESULTS", config.MaxResults)

	classifier, err := classify.NewONNXClassifier(config)
	if err != nil {
		logger.WithError(err).WithField("model_path", modelPath).Warn("Failed to initialize classifier, semantic classification disabled")
		return nil
	}

	logger.WithField("model_path", modelPath).Info("Semantic classifier ready")
	return classifier
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(value) {
	case "true", "yes", "1", "on":
		return true
	case "false", "no", "0", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}
