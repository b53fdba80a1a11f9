package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	require.Equal(t, "python", cfg.Pipeline.PythonBin)
	require.Equal(t, int64(500_000), cfg.Pipeline.InlineThresholdBytes)
	require.Equal(t, 30*time.Minute, cfg.Pipeline.Timeout)
	require.Equal(t, 2*time.Minute, cfg.Pipeline.DownloadTimeout)
	require.Equal(t, 2, cfg.Worker.Workers)
	require.Equal(t, ":8080", cfg.Server.HTTPAddr)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PYTHON_BIN", "python3")
	t.Setenv("INLINE_THRESHOLD_BYTES", "1024")
	t.Setenv("PIPELINE_TIMEOUT", "90s")
	t.Setenv("WORKERS", "8")
	t.Setenv("JOURNAL_DSN", "postgres://ocr@localhost/jobs")

	cfg := LoadConfig()
	require.Equal(t, "python3", cfg.Pipeline.PythonBin)
	require.Equal(t, int64(1024), cfg.Pipeline.InlineThresholdBytes)
	require.Equal(t, 90*time.Second, cfg.Pipeline.Timeout)
	require.Equal(t, 8, cfg.Worker.Workers)
	require.Equal(t, "postgres://ocr@localhost/jobs", cfg.Journal.DSN)
}

func TestValidateRejectsBrokenConfig(t *testing.T) {
	cfg := LoadConfig()
	cfg.Pipeline.InlineThresholdBytes = 0
	require.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.Pipeline.ScriptPath = ""
	require.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.Worker.Workers = 0
	require.Error(t, cfg.Validate())
}
