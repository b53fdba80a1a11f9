package export_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ocrworker/internal/common"
	"ocrworker/internal/export"
	"ocrworker/internal/store"
)

func TestExportJobsXLSX(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	journal, err := store.Open(ctx, common.JournalConfig{
		DSN: filepath.Join(t.TempDir(), "jobs.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	rc := 0
	newest := store.Record{
		ID:         uuid.NewString(),
		Source:     "path",
		Status:     "succeeded",
		Command:    "python run_ocr_pdf.py --input a.pdf",
		ReturnCode: &rc,
		OutputDir:  "/tmp/out",
		CreatedAt:  time.Now().UTC(),
		DurationMS: 1200,
	}
	oldest := store.Record{
		ID:        uuid.NewString(),
		Source:    "url",
		Status:    "failed",
		TimedOut:  true,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, journal.Insert(ctx, newest))
	require.NoError(t, journal.Insert(ctx, oldest))

	svc := export.NewService(journal, nil)
	raw, err := svc.ExportJobsXLSX(ctx, 100)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	header, err := f.GetCellValue("Jobs", "A1")
	require.NoError(t, err)
	require.Equal(t, "Job ID", header)

	firstID, err := f.GetCellValue("Jobs", "A2")
	require.NoError(t, err)
	require.Equal(t, newest.ID, firstID)

	secondStatus, err := f.GetCellValue("Jobs", "B3")
	require.NoError(t, err)
	require.Equal(t, "failed", secondStatus)
}
