package input

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ledongthuc/pdf"

	"ocrworker/internal/common"
	"ocrworker/internal/job"
)

// Resolved is the local, on-disk form of the job's PDF source. When Temp is
// true the file was materialized by the resolver and the caller owns its
// cleanup.
type Resolved struct {
	Path   string
	Source string // "url" | "path" | "base64"
	Pages  int    // 0 when the page count could not be determined
	Temp   bool
}

// Resolver turns a job request into a local PDF file.
type Resolver struct {
	client          *http.Client
	downloadTimeout time.Duration
	logger          *slog.Logger
}

func NewResolver(client *http.Client, downloadTimeout time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{}
	}
	if downloadTimeout <= 0 {
		downloadTimeout = 2 * time.Minute
	}
	return &Resolver{client: client, downloadTimeout: downloadTimeout, logger: logger}
}

// Resolve enforces the exactly-one-of source invariant and materializes the
// PDF locally. No subprocess is ever launched for a request that fails here.
func (r *Resolver) Resolve(ctx context.Context, req job.Request) (*Resolved, error) {
	switch n := req.SourceCount(); {
	case n == 0:
		return nil, common.NewAppError("InvalidInput",
			"no PDF input provided, supply one of pdf_path, pdf_url, or pdf_base64", common.ErrInvalidInput)
	case n > 1:
		return nil, common.NewAppError("InvalidInput",
			fmt.Sprintf("%d PDF inputs provided, pdf_path, pdf_url and pdf_base64 are mutually exclusive", n),
			common.ErrInvalidInput)
	}

	var (
		res *Resolved
		err error
	)
	switch req.SourceKind() {
	case "path":
		res, err = r.resolvePath(req.PDFPath)
	case "url":
		res, err = r.resolveURL(ctx, req.PDFURL)
	default:
		res, err = r.resolveBase64(req.PDFBase64)
	}
	if err != nil {
		return nil, err
	}

	// Advisory only: the pipeline is the authority on PDF validity, but a
	// page count is cheap and useful in the result.
	res.Pages = r.countPages(res.Path)

	r.logger.Debug("input resolved",
		"source", res.Source,
		"path", res.Path,
		"pages", res.Pages,
		"temp", res.Temp,
	)
	return res, nil
}

func (r *Resolver) resolvePath(path string) (*Resolved, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, common.NewAppError("NotFound",
			fmt.Sprintf("provided pdf_path does not exist: %s", path), common.ErrNotFound)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewAppError("NotFound",
			fmt.Sprintf("provided pdf_path is not readable: %s", path), common.ErrNotFound)
	}
	_ = f.Close()
	return &Resolved{Path: path, Source: "path"}, nil
}

func (r *Resolver) resolveURL(ctx context.Context, url string) (*Resolved, error) {
	ctx, cancel := context.WithTimeout(ctx, r.downloadTimeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, common.NewAppError("DownloadError",
			fmt.Sprintf("building request for %s: %v", url, err), common.ErrDownload)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, common.NewAppError("DownloadError",
			fmt.Sprintf("fetching %s: %v", url, err), common.ErrDownload)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			r.logger.Warn("closing download body", "error", cerr)
		}
	}()

	if resp.StatusCode/100 != 2 {
		return nil, common.NewAppError("DownloadError",
			fmt.Sprintf("non-2xx status %d fetching %s", resp.StatusCode, url), common.ErrDownload)
	}

	tmp, err := os.CreateTemp("", "ocrworker-*.pdf")
	if err != nil {
		return nil, common.NewAppError("IOError", "creating temp file", common.ErrIO)
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, common.NewAppError("DownloadError",
			fmt.Sprintf("writing download to %s: %v", tmp.Name(), err), common.ErrDownload)
	}

	r.logger.Info("downloaded pdf",
		"url", url,
		"bytes", n,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &Resolved{Path: tmp.Name(), Source: "url", Temp: true}, nil
}

func (r *Resolver) resolveBase64(encoded string) (*Resolved, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, common.NewAppError("DecodeError",
			fmt.Sprintf("malformed pdf_base64 payload: %v", err), common.ErrDecode)
	}
	tmp, err := os.CreateTemp("", "ocrworker-*.pdf")
	if err != nil {
		return nil, common.NewAppError("IOError", "creating temp file", common.ErrIO)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, common.NewAppError("IOError",
			fmt.Sprintf("writing decoded payload to %s", tmp.Name()), common.ErrIO)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, common.NewAppError("IOError",
			fmt.Sprintf("closing %s", tmp.Name()), common.ErrIO)
	}
	return &Resolved{Path: tmp.Name(), Source: "base64", Temp: true}, nil
}

func (r *Resolver) countPages(path string) (pages int) {
	// The parser panics on some malformed bodies instead of returning an
	// error; a bad page count must never sink the job.
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("pdf parser panicked during page count", "path", path, "panic", p)
			pages = 0
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		r.logger.Warn("could not parse pdf for page count", "path", path, "error", err)
		return 0
	}
	defer func() {
		_ = f.Close()
	}()
	return reader.NumPage()
}
