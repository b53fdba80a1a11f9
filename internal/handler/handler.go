package handler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"ocrworker/internal/artifacts"
	"ocrworker/internal/common"
	"ocrworker/internal/input"
	"ocrworker/internal/job"
	"ocrworker/internal/pipeline"
)

// Handler orchestrates one job: resolve input, build the command, invoke
// the pipeline, collect artifacts. Every path out of Handle is a
// well-formed Result; nothing escapes as a raw fault.
type Handler struct {
	cfg       common.PipelineConfig
	resolver  *input.Resolver
	builder   *pipeline.CommandBuilder
	runner    pipeline.ProcessRunner
	collector *artifacts.Collector
	logger    *slog.Logger
}

// New builds a handler from the pipeline configuration. A nil runner gets
// the real exec-backed one; tests pass a stub.
func New(cfg common.PipelineConfig, runner pipeline.ProcessRunner, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = pipeline.NewExecRunner(logger)
	}
	return &Handler{
		cfg:       cfg,
		resolver:  input.NewResolver(nil, cfg.DownloadTimeout, logger),
		builder:   pipeline.NewCommandBuilder(cfg),
		runner:    runner,
		collector: artifacts.NewCollector(cfg.InlineThresholdBytes, logger),
		logger:    logger,
	}
}

// Handle runs one job to completion.
func (h *Handler) Handle(ctx context.Context, req job.Request) job.Result {
	var res job.Result

	resolved, err := h.resolver.Resolve(ctx, req)
	if err != nil {
		return h.fail(res, err)
	}
	defer h.cleanup(resolved)
	res.Pages = resolved.Pages

	outputDir := req.OutputDir
	if outputDir == "" {
		// Distinct jobs must not share an output directory; a fresh
		// per-job subdirectory guarantees that.
		outputDir = filepath.Join(h.cfg.OutputDir, uuid.NewString())
	}
	res.OutputDir = outputDir

	prompt := req.Prompt
	if prompt == "" {
		prompt = h.cfg.DefaultPrompt
	}

	spec, err := h.builder.Build(resolved.Path, outputDir, prompt)
	if err != nil {
		return h.fail(res, err)
	}
	res.Command = strings.Join(spec.Argv, " ")

	proc := h.runner.Invoke(ctx, spec, h.cfg.Timeout)
	rc := proc.ReturnCode
	res.ReturnCode = &rc
	res.Stdout = strings.TrimSpace(proc.Stdout)
	res.Stderr = strings.TrimSpace(proc.Stderr)
	res.TimedOut = proc.TimedOut

	if proc.TimedOut {
		return h.fail(res, common.NewAppError("ProcessTimeout",
			"pipeline exceeded its time budget and was terminated", common.ErrProcessTimeout))
	}
	if proc.ReturnCode != 0 {
		return h.fail(res, common.NewAppError("ProcessFailure",
			"pipeline exited non-zero, see stderr", common.ErrProcessFailure))
	}

	set, err := h.collector.Collect(resolved.Path, outputDir)
	if err != nil {
		return h.fail(res, err)
	}
	applyArtifacts(&res, set)

	res.Status = job.StatusSucceeded
	h.logger.Info("job succeeded",
		"source", resolved.Source,
		"pages", resolved.Pages,
		"output_dir", outputDir,
	)
	return res
}

func (h *Handler) fail(res job.Result, err error) job.Result {
	res.Status = job.StatusFailed
	res.Error = common.KindOf(err)
	res.Message = err.Error()
	h.logger.Error("job failed", "kind", res.Error, "error", err)
	return res
}

// cleanup removes resolver-owned temp files. Best effort: a failure here
// never affects the job result.
func (h *Handler) cleanup(resolved *input.Resolved) {
	if resolved == nil || !resolved.Temp {
		return
	}
	if err := os.Remove(resolved.Path); err != nil {
		h.logger.Warn("failed to remove temp input", "path", resolved.Path, "error", err)
	}
}

func applyArtifacts(res *job.Result, set artifacts.Set) {
	if a := set.Markdown; a != nil {
		res.Markdown, res.MarkdownPath = a.Inline, a.Path
	}
	if a := set.DetectionMarkdown; a != nil {
		res.DetectionMarkdown, res.DetectionMarkdownPath = a.Inline, a.Path
	}
	if a := set.LayoutPDF; a != nil {
		res.LayoutPDFBase64, res.LayoutPDFPath = a.Inline, a.Path
	}
	if a := set.ImagesArchive; a != nil {
		res.ImagesArchive, res.ImagesArchivePath = a.Inline, a.Path
	}
}
