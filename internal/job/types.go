package job

// Request is the inbound job payload. Exactly one of the three PDF source
// fields must be set.
type Request struct {
	PDFURL    string `json:"pdf_url,omitempty"`
	PDFPath   string `json:"pdf_path,omitempty"`
	PDFBase64 string `json:"pdf_base64,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`
}

// SourceCount returns how many of the PDF source fields are set.
func (r Request) SourceCount() int {
	n := 0
	if r.PDFURL != "" {
		n++
	}
	if r.PDFPath != "" {
		n++
	}
	if r.PDFBase64 != "" {
		n++
	}
	return n
}

// SourceKind names the single source field in use, or "" when the request
// is ambiguous.
func (r Request) SourceKind() string {
	if r.SourceCount() != 1 {
		return ""
	}
	switch {
	case r.PDFURL != "":
		return "url"
	case r.PDFPath != "":
		return "path"
	default:
		return "base64"
	}
}

// InvocationSpec is the exact command to run, immutable once built.
type InvocationSpec struct {
	Argv []string
	Dir  string
}

// ProcessResult captures one subprocess run. A timed-out run carries the
// sentinel return code -1, which no real process can exit with.
type ProcessResult struct {
	ReturnCode int
	Stdout     string
	Stderr     string
	TimedOut   bool
}

// Job statuses
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Result is the terminal object of a job. It is always well-formed: failures
// are encoded in Status/Error/Message, never raised to the caller.
//
// Artifact fields come in inline/path pairs; at most one of each pair is set,
// depending on whether the file fit under the inline threshold. An artifact
// the pipeline did not produce leaves both fields empty.
type Result struct {
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	Command    string `json:"command,omitempty"`
	ReturnCode *int   `json:"return_code,omitempty"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	TimedOut   bool   `json:"timed_out,omitempty"`
	Pages      int    `json:"pages,omitempty"`
	OutputDir  string `json:"output_dir,omitempty"`

	Markdown              string `json:"markdown,omitempty"`
	MarkdownPath          string `json:"markdown_path,omitempty"`
	DetectionMarkdown     string `json:"detection_markdown,omitempty"`
	DetectionMarkdownPath string `json:"detection_markdown_path,omitempty"`
	LayoutPDFBase64       string `json:"layout_pdf_base64,omitempty"`
	LayoutPDFPath         string `json:"layout_pdf_path,omitempty"`
	ImagesArchive         string `json:"images_archive,omitempty"`
	ImagesArchivePath     string `json:"images_archive_path,omitempty"`
}
