package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"ocrrelay/internal/logger"
)

// Supported values for OCR_ENGINE.
const (
	EngineLocal      = "local"
	EngineVision     = "vision"
	EngineDocumentAI = "documentai"
)

// Supported values for FILE_STORE.
const (
	StoreDrive = "drive"
	StoreGCS   = "gcs"
)

type Config struct {
	// HTTP Server Configuration
	Port              string
	APIKey            string
	MaxDocumentBytes  int64
	MaxConcurrentJobs int
	ShutdownTimeout   time.Duration

	// OCR Pipeline Configuration
	Engine             string
	ScratchDir         string
	OCRLanguage        string
	OCROptimize        int
	OCRMyPDFPath       string
	PdfToTextPath      string
	RecognitionTimeout time.Duration
	ExtractionTimeout  time.Duration

	// Remote File Store Configuration
	FileStore     string
	FetchTimeout  time.Duration
	DriveAPIKey   string
	DriveEndpoint string
	GCSBucket     string

	// Google Cloud Configuration
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the configuration from the environment. It validates everything
// except the settings only the HTTP server needs; see ValidateServer.
func Load() (*Config, error) {
	config := &Config{
		Port:                  getEnv("PORT", "8000"),
		APIKey:                getEnv("API_KEY", ""),
		Engine:                strings.ToLower(getEnv("OCR_ENGINE", EngineLocal)),
		ScratchDir:            getEnv("SCRATCH_DIR", os.TempDir()),
		OCRLanguage:           getEnv("OCR_LANGUAGE", "pol"),
		OCRMyPDFPath:          getEnv("OCRMYPDF_PATH", "ocrmypdf"),
		PdfToTextPath:         getEnv("PDFTOTEXT_PATH", "pdftotext"),
		FileStore:             strings.ToLower(getEnv("FILE_STORE", StoreDrive)),
		DriveAPIKey:           getEnv("DRIVE_API_KEY", ""),
		DriveEndpoint:         getEnv("DRIVE_ENDPOINT", ""),
		GCSBucket:             getEnv("GCS_BUCKET", ""),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:             getEnv("LOG_OUTPUT", "stdout"),
	}

	var err error
	if config.OCROptimize, err = getEnvInt("OCR_OPTIMIZE", 1); err != nil {
		return nil, err
	}
	if config.MaxConcurrentJobs, err = getEnvInt("MAX_CONCURRENT_JOBS", runtime.NumCPU()); err != nil {
		return nil, err
	}
	if config.MaxDocumentBytes, err = getEnvInt64("MAX_DOCUMENT_BYTES", 50*1024*1024); err != nil {
		return nil, err
	}
	if config.FetchTimeout, err = getEnvDuration("FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if config.RecognitionTimeout, err = getEnvDuration("RECOGNITION_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if config.ExtractionTimeout, err = getEnvDuration("EXTRACTION_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if config.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.Engine {
	case EngineLocal:
		if c.OCROptimize < 0 || c.OCROptimize > 3 {
			return fmt.Errorf("OCR_OPTIMIZE must be between 0 and 3, got %d", c.OCROptimize)
		}
		if c.OCRLanguage == "" {
			return fmt.Errorf("OCR_LANGUAGE must not be empty")
		}
	case EngineVision:
	case EngineDocumentAI:
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the documentai engine")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for the documentai engine")
		}
	default:
		return fmt.Errorf("unknown OCR_ENGINE %q (want %s, %s or %s)", c.Engine, EngineLocal, EngineVision, EngineDocumentAI)
	}

	switch c.FileStore {
	case StoreDrive:
	case StoreGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when FILE_STORE=%s", StoreGCS)
		}
	default:
		return fmt.Errorf("unknown FILE_STORE %q (want %s or %s)", c.FileStore, StoreDrive, StoreGCS)
	}

	if c.MaxConcurrentJobs < 1 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be positive, got %d", c.MaxConcurrentJobs)
	}
	if c.MaxDocumentBytes < 1 {
		return fmt.Errorf("MAX_DOCUMENT_BYTES must be positive, got %d", c.MaxDocumentBytes)
	}
	return nil
}

// ValidateServer checks the settings required to run the HTTP relay.
func (c *Config) ValidateServer() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid TCP port, got %q", c.Port)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return "0.0.0.0:" + c.Port
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

// getEnvDuration accepts Go durations ("90s") and bare seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var d time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		d = time.Duration(secs) * time.Second
	} else if d, err = time.ParseDuration(value); err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
