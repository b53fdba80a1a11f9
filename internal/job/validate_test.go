package job_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ocrworker/internal/job"
)

func TestValidateRequestJSON(t *testing.T) {
	t.Parallel()

	valid := []string{
		`{"pdf_path": "/tmp/sample.pdf"}`,
		`{"pdf_url": "https://example.com/doc.pdf"}`,
		`{"pdf_url": "http://example.com/doc.pdf", "prompt": "convert"}`,
		`{"pdf_base64": "JVBERi0=", "output_dir": "/tmp/out"}`,
	}
	for _, payload := range valid {
		require.NoError(t, job.ValidateRequestJSON([]byte(payload)), payload)
	}

	invalid := []string{
		`{}`,
		`{"prompt": "convert"}`,
		`{"pdf_path": "/tmp/a.pdf", "pdf_url": "https://example.com/doc.pdf"}`,
		`{"pdf_path": "/tmp/a.pdf", "pdf_url": "https://e.com/a.pdf", "pdf_base64": "JVBERi0="}`,
		`{"pdf_path": ""}`,
		`{"pdf_url": "ftp://example.com/doc.pdf"}`,
		`{"pdf_path": "/tmp/a.pdf", "unknown_field": 1}`,
		`{"pdf_path": 42}`,
	}
	for _, payload := range invalid {
		require.Error(t, job.ValidateRequestJSON([]byte(payload)), payload)
	}
}

func TestRequestSourceKind(t *testing.T) {
	t.Parallel()

	require.Equal(t, "path", job.Request{PDFPath: "/tmp/a.pdf"}.SourceKind())
	require.Equal(t, "url", job.Request{PDFURL: "https://e.com/a.pdf"}.SourceKind())
	require.Equal(t, "base64", job.Request{PDFBase64: "JVBERi0="}.SourceKind())

	require.Equal(t, "", job.Request{}.SourceKind())
	require.Equal(t, "", job.Request{PDFPath: "/a", PDFURL: "https://e.com/a"}.SourceKind())

	require.Equal(t, 0, job.Request{}.SourceCount())
	require.Equal(t, 2, job.Request{PDFPath: "/a", PDFBase64: "x"}.SourceCount())
}
