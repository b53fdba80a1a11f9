package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ocrworker/internal/common"
)

func testPipelineConfig() common.PipelineConfig {
	return common.PipelineConfig{
		PythonBin:  "python",
		ScriptPath: "/opt/pipeline/run_ocr_pdf.py",
	}
}

func TestBuildCommand(t *testing.T) {
	t.Parallel()
	b := NewCommandBuilder(testPipelineConfig())
	outDir := filepath.Join(t.TempDir(), "out")

	spec, err := b.Build("/tmp/sample.pdf", outDir, "convert to markdown")
	require.NoError(t, err)
	require.Equal(t, []string{
		"python", "/opt/pipeline/run_ocr_pdf.py",
		"--input", "/tmp/sample.pdf",
		"--output", outDir,
		"--prompt", "convert to markdown",
	}, spec.Argv)
	require.Equal(t, "/opt/pipeline", spec.Dir)

	// output dir was created
	info, err := os.Stat(outDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestBuildCommandDeterministic(t *testing.T) {
	t.Parallel()
	b := NewCommandBuilder(testPipelineConfig())
	outDir := t.TempDir()

	first, err := b.Build("/tmp/a.pdf", outDir, "p")
	require.NoError(t, err)
	second, err := b.Build("/tmp/a.pdf", outDir, "p")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestBuildCommandOmitsEmptyPrompt(t *testing.T) {
	t.Parallel()
	b := NewCommandBuilder(testPipelineConfig())

	spec, err := b.Build("/tmp/a.pdf", t.TempDir(), "")
	require.NoError(t, err)
	require.NotContains(t, spec.Argv, "--prompt")
}

func TestBuildCommandWorkDirOverride(t *testing.T) {
	t.Parallel()
	cfg := testPipelineConfig()
	cfg.WorkDir = "/srv/pipeline"
	b := NewCommandBuilder(cfg)

	spec, err := b.Build("/tmp/a.pdf", t.TempDir(), "")
	require.NoError(t, err)
	require.Equal(t, "/srv/pipeline", spec.Dir)
}

func TestBuildCommandUnusableOutputDir(t *testing.T) {
	t.Parallel()
	b := NewCommandBuilder(testPipelineConfig())

	// a file where a directory is needed
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := b.Build("/tmp/a.pdf", filepath.Join(blocker, "out"), "")
	require.ErrorIs(t, err, common.ErrIO)
}
