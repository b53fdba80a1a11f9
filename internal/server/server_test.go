package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"ocrworker/internal/async"
	"ocrworker/internal/common"
	"ocrworker/internal/export"
	"ocrworker/internal/server"
	"ocrworker/internal/store"
)

type fakeQueue struct {
	jobs []async.Job
}

func (f *fakeQueue) Enqueue(_ context.Context, j async.Job) error {
	f.jobs = append(f.jobs, j)
	return nil
}

func (f *fakeQueue) Shutdown(context.Context) {}

func newTestServer(t *testing.T) (*httptest.Server, *fakeQueue, *store.Journal) {
	t.Helper()

	journal, err := store.Open(context.Background(), common.JournalConfig{
		DSN: filepath.Join(t.TempDir(), "jobs.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	hub := server.NewHub(nil)
	hub.Start()
	t.Cleanup(hub.Stop)

	queue := &fakeQueue{}
	srv := server.New(queue, journal, export.NewService(journal, nil), hub, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, queue, journal
}

func TestSubmitJob(t *testing.T) {
	t.Parallel()
	ts, queue, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/jobs", "application/json",
		strings.NewReader(`{"pdf_path": "/tmp/sample.pdf", "prompt": "convert"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "queued", body["status"])
	require.NotEmpty(t, body["job_id"])

	require.Len(t, queue.jobs, 1)
	require.Equal(t, "/tmp/sample.pdf", queue.jobs[0].Request.PDFPath)
	require.Equal(t, "convert", queue.jobs[0].Request.Prompt)
}

func TestSubmitJobRejectsAmbiguousSource(t *testing.T) {
	t.Parallel()
	ts, queue, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/jobs", "application/json",
		strings.NewReader(`{"pdf_path": "/tmp/a.pdf", "pdf_url": "https://example.com/doc.pdf"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "InvalidInput", body["error"])
	require.Empty(t, queue.jobs)
}

func TestSubmitJobRejectsEmptyPayload(t *testing.T) {
	t.Parallel()
	ts, queue, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/jobs", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, queue.jobs)
}

func TestListAndGetJobs(t *testing.T) {
	t.Parallel()
	ts, _, journal := newTestServer(t)

	rec := store.Record{
		ID:        uuid.NewString(),
		Source:    "path",
		Status:    "succeeded",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, journal.Insert(context.Background(), rec))

	resp, err := http.Get(ts.URL + "/jobs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var recs []store.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&recs))
	require.Len(t, recs, 1)
	require.Equal(t, rec.ID, recs[0].ID)

	detail, err := http.Get(ts.URL + "/jobs/" + rec.ID)
	require.NoError(t, err)
	defer detail.Body.Close()
	require.Equal(t, http.StatusOK, detail.StatusCode)

	missing, err := http.Get(ts.URL + "/jobs/" + uuid.NewString())
	require.NoError(t, err)
	defer missing.Body.Close()
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestExportEndpoint(t *testing.T) {
	t.Parallel()
	ts, _, journal := newTestServer(t)

	require.NoError(t, journal.Insert(context.Background(), store.Record{
		ID:        uuid.NewString(),
		Source:    "base64",
		Status:    "succeeded",
		CreatedAt: time.Now().UTC(),
	}))

	resp, err := http.Get(ts.URL + "/jobs/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get("Content-Type"))
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
