package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"ocrworker/internal/common"
	"ocrworker/internal/job"
)

// CommandBuilder constructs the pipeline invocation. Same inputs always
// yield the same token sequence; the only side effect is ensuring the
// output directory exists.
type CommandBuilder struct {
	cfg common.PipelineConfig
}

func NewCommandBuilder(cfg common.PipelineConfig) *CommandBuilder {
	if cfg.PythonBin == "" {
		cfg.PythonBin = "python"
	}
	return &CommandBuilder{cfg: cfg}
}

// Build returns the invocation for one resolved input. The prompt is passed
// through verbatim; an empty prompt omits the flag entirely.
func (b *CommandBuilder) Build(inputPath, outputDir, prompt string) (job.InvocationSpec, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return job.InvocationSpec{}, common.NewAppError("IOError",
			fmt.Sprintf("creating output directory %s: %v", outputDir, err), common.ErrIO)
	}

	argv := []string{
		b.cfg.PythonBin,
		b.cfg.ScriptPath,
		"--input", inputPath,
		"--output", outputDir,
	}
	if prompt != "" {
		argv = append(argv, "--prompt", prompt)
	}

	dir := b.cfg.WorkDir
	if dir == "" {
		dir = filepath.Dir(b.cfg.ScriptPath)
	}
	return job.InvocationSpec{Argv: argv, Dir: dir}, nil
}
