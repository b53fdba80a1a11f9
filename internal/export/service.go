package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"ocrworker/internal/store"
)

// Service is a tiny façade over the job journal that produces XLSX bytes
// for exports.
type Service struct {
	journal *store.Journal
	logger  *slog.Logger
}

func NewService(journal *store.Journal, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{journal: journal, logger: logger}
}

// ExportJobsXLSX returns an XLSX workbook (as bytes) with the most recent
// journaled jobs, newest first.
func (s *Service) ExportJobsXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	recs, err := s.journal.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Jobs"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Job ID",
		"Status",
		"Source",
		"Return Code",
		"Timed Out",
		"Duration (ms)",
		"Created At",
		"Output Dir",
		"Command",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.ID)
		write(2, r.Status)
		write(3, r.Source)
		if r.ReturnCode != nil {
			write(4, *r.ReturnCode)
		} else {
			write(4, "")
		}
		write(5, r.TimedOut)
		write(6, r.DurationMS)
		if !r.CreatedAt.IsZero() {
			write(7, r.CreatedAt.UTC().Format(time.RFC3339))
		} else {
			write(7, "")
		}
		write(8, r.OutputDir)
		write(9, truncate(r.Command, 200))

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 38) // uuid
	_ = f.SetColWidth(sheet, "B", "C", 12)
	_ = f.SetColWidth(sheet, "F", "G", 22)
	_ = f.SetColWidth(sheet, "H", "H", 48)
	_ = f.SetColWidth(sheet, "I", "I", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
