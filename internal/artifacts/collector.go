package artifacts

import (
	"archive/zip"
	"encoding/base64"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ocrworker/internal/common"
)

// Artifact is either inlined as base64 or referenced by absolute path,
// never both.
type Artifact struct {
	Inline string
	Path   string
}

// Set holds the artifacts the pipeline produced for one job. A nil entry
// means the pipeline did not write that file.
type Set struct {
	Markdown          *Artifact
	DetectionMarkdown *Artifact
	LayoutPDF         *Artifact
	ImagesArchive     *Artifact
}

// Collector packages pipeline output files. It only reads the output
// directory, except for the images archive it assembles itself.
type Collector struct {
	threshold int64
	logger    *slog.Logger
}

func NewCollector(thresholdBytes int64, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if thresholdBytes <= 0 {
		thresholdBytes = 500_000
	}
	return &Collector{threshold: thresholdBytes, logger: logger}
}

// Collect gathers pipeline outputs: markdown, detection markdown, layout
// PDF, and a zip of the rendered images directory. File names derive from
// the input's base name, matching what the pipeline writes.
func (c *Collector) Collect(inputPath, outputDir string) (Set, error) {
	stem := Stem(inputPath)

	var set Set
	var err error
	if set.Markdown, err = c.collectFile(filepath.Join(outputDir, stem+".mmd")); err != nil {
		return Set{}, err
	}
	if set.DetectionMarkdown, err = c.collectFile(filepath.Join(outputDir, stem+"_det.mmd")); err != nil {
		return Set{}, err
	}
	if set.LayoutPDF, err = c.collectFile(filepath.Join(outputDir, stem+"_layouts.pdf")); err != nil {
		return Set{}, err
	}

	imagesDir := filepath.Join(outputDir, "images")
	if info, statErr := os.Stat(imagesDir); statErr == nil && info.IsDir() {
		archivePath := filepath.Join(outputDir, stem+"_images.zip")
		if err := buildZip(imagesDir, archivePath); err != nil {
			return Set{}, common.NewAppError("IOError",
				fmt.Sprintf("archiving %s: %v", imagesDir, err), common.ErrIO)
		}
		if set.ImagesArchive, err = c.collectFile(archivePath); err != nil {
			return Set{}, err
		}
	}

	c.logger.Debug("artifacts collected",
		"output_dir", outputDir,
		"markdown", set.Markdown != nil,
		"detection_markdown", set.DetectionMarkdown != nil,
		"layout_pdf", set.LayoutPDF != nil,
		"images_archive", set.ImagesArchive != nil,
	)
	return set, nil
}

// collectFile applies the inline-vs-path policy: at or below the threshold
// the bytes travel base64-inline, above it only the absolute path does.
// A missing file is not an error, just an absent artifact.
func (c *Collector) collectFile(path string) (*Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, common.NewAppError("IOError",
			fmt.Sprintf("resolving %s: %v", path, err), common.ErrIO)
	}

	if info.Size() > c.threshold {
		return &Artifact{Path: abs}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError("IOError",
			fmt.Sprintf("reading %s: %v", path, err), common.ErrIO)
	}
	return &Artifact{Inline: base64.StdEncoding.EncodeToString(raw)}, nil
}

// Stem is the input's base name without a trailing .pdf extension.
func Stem(inputPath string) string {
	name := filepath.Base(inputPath)
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return name[:len(name)-len(".pdf")]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func buildZip(srcDir, dstPath string) error {
	out, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(out)

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, f)
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		return err
	})

	if err := zw.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if err := out.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if walkErr != nil {
		_ = os.Remove(dstPath)
	}
	return walkErr
}
