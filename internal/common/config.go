package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Pipeline PipelineConfig
	Worker   WorkerConfig
	Journal  JournalConfig
	Server   ServerConfig
}

// PipelineConfig holds everything needed to drive the OCR pipeline binary
// and to package its artifacts.
type PipelineConfig struct {
	PythonBin  string // interpreter; if empty -> "python"
	ScriptPath string // pipeline entry point
	WorkDir    string // working directory for the subprocess; if empty -> dir of ScriptPath

	DefaultPrompt string
	OutputDir     string // base directory for per-job output subdirectories

	InlineThresholdBytes int64 // artifacts at or below this size are inlined as base64
	Timeout              time.Duration
	DownloadTimeout      time.Duration
}

// WorkerConfig holds the async job queue configuration
type WorkerConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// JournalConfig holds the job journal configuration
type JournalConfig struct {
	Driver string // "sqlite" or "pgx"; inferred from DSN when empty
	DSN    string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	pipelineTimeout := getEnvAsDuration("PIPELINE_TIMEOUT", 30*time.Minute)
	downloadTimeout := getEnvAsDuration("DOWNLOAD_TIMEOUT", 2*time.Minute)
	return &Config{
		Pipeline: PipelineConfig{
			PythonBin:            getEnv("PYTHON_BIN", "python"),
			ScriptPath:           getEnv("OCR_SCRIPT_PATH", "/app/custom_run_dpsk_ocr_pdf.py"),
			WorkDir:              getEnv("PIPELINE_WORK_DIR", ""),
			DefaultPrompt:        getEnv("DEFAULT_PROMPT", "<image>\n<|grounding|>Convert the document to markdown."),
			OutputDir:            getEnv("OUTPUT_DIR", "/tmp/ocrworker-output"),
			InlineThresholdBytes: getEnvAsInt64("INLINE_THRESHOLD_BYTES", 500_000),
			Timeout:              pipelineTimeout,
			DownloadTimeout:      downloadTimeout,
		},
		Worker: WorkerConfig{
			Workers:   getEnvAsInt("WORKERS", 2),
			QueueSize: getEnvAsInt("QUEUE_SIZE", 64),
			// Budget for a whole job: resolution plus one pipeline run.
			JobTimeout: getEnvAsDuration("JOB_TIMEOUT", pipelineTimeout+downloadTimeout+time.Minute),
		},
		Journal: JournalConfig{
			Driver: getEnv("JOURNAL_DRIVER", ""),
			DSN:    getEnv("JOURNAL_DSN", "ocrworker.db"),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Pipeline.ScriptPath == "" {
		return NewAppError("CONFIG_ERROR", "OCR_SCRIPT_PATH is required", ErrInvalidInput)
	}
	if c.Pipeline.OutputDir == "" {
		return NewAppError("CONFIG_ERROR", "OUTPUT_DIR is required", ErrInvalidInput)
	}
	if c.Pipeline.InlineThresholdBytes <= 0 {
		return NewAppError("CONFIG_ERROR", "INLINE_THRESHOLD_BYTES must be positive", ErrInvalidInput)
	}
	if c.Worker.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKERS must be positive", ErrInvalidInput)
	}
	if c.Journal.DSN == "" {
		return NewAppError("CONFIG_ERROR", "JOURNAL_DSN is required", ErrInvalidInput)
	}
	return nil
}
