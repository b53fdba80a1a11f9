package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"ocrworker/internal/common"
	"ocrworker/internal/handler"
	"ocrworker/internal/job"
)

// runjob executes a single OCR job outside the daemon and prints the
// JobResult as JSON. Exit code 1 means the job failed.
func main() {
	var (
		requestFile = flag.String("request", "", "path to a JSON job request file")
		pdfPath     = flag.String("pdf", "", "local PDF path (shorthand for pdf_path)")
		pdfURL      = flag.String("url", "", "PDF URL (shorthand for pdf_url)")
		prompt      = flag.String("prompt", "", "override the pipeline prompt")
		outputDir   = flag.String("output", "", "override the output directory")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	var req job.Request
	switch {
	case *requestFile != "":
		raw, err := os.ReadFile(*requestFile)
		if err != nil {
			logger.Error("reading request file", "path", *requestFile, "error", err)
			os.Exit(2)
		}
		if err := job.ValidateRequestJSON(raw); err != nil {
			logger.Error("invalid request file", "path", *requestFile, "error", err)
			os.Exit(2)
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			logger.Error("decoding request file", "path", *requestFile, "error", err)
			os.Exit(2)
		}
	default:
		req = job.Request{PDFPath: *pdfPath, PDFURL: *pdfURL}
	}
	if *prompt != "" {
		req.Prompt = *prompt
	}
	if *outputDir != "" {
		req.OutputDir = *outputDir
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		cfg.Pipeline.Timeout+cfg.Pipeline.DownloadTimeout+time.Minute)
	defer cancel()

	h := handler.New(cfg.Pipeline, nil, logger)

	start := time.Now()
	res := h.Handle(ctx, req)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error("encoding result", "error", err)
		os.Exit(1)
	}

	logger.Info("job finished",
		"status", res.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if res.Status == job.StatusFailed {
		os.Exit(1)
	}
}
