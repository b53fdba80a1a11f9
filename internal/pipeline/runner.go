package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"ocrworker/internal/job"
)

// TimeoutReturnCode is the sentinel return code reported when the pipeline
// is killed for exceeding its budget. Real processes cannot exit with it.
const TimeoutReturnCode = -1

// defaultMaxCapture caps each captured stream so a chatty pipeline cannot
// balloon the result. The subprocess keeps a drained pipe either way.
const defaultMaxCapture = 1 << 20

// ProcessRunner lets us stub the pipeline invocation in tests.
type ProcessRunner interface {
	Invoke(ctx context.Context, spec job.InvocationSpec, timeout time.Duration) job.ProcessResult
}

// ExecRunner runs the invocation as a child process.
type ExecRunner struct {
	logger     *slog.Logger
	maxCapture int
}

func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{logger: logger, maxCapture: defaultMaxCapture}
}

// Invoke blocks until the process exits, the timeout fires, or ctx is done.
// A non-zero exit code is data, not an error; the caller decides what it
// means. Nothing is ever retried here.
func (r *ExecRunner) Invoke(ctx context.Context, spec job.InvocationSpec, timeout time.Duration) job.ProcessResult {
	start := time.Now()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	// Forces Wait to return even if a grandchild inherited the pipes.
	cmd.WaitDelay = 5 * time.Second

	out := newCappedBuffer(r.maxCapture)
	errb := newCappedBuffer(r.maxCapture)
	cmd.Stdout = out
	cmd.Stderr = errb

	err := cmd.Run()
	dur := time.Since(start)
	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)

	rc := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			rc = exitErr.ExitCode()
		} else {
			rc = TimeoutReturnCode
		}
	}
	if timedOut {
		rc = TimeoutReturnCode
	}

	switch {
	case timedOut:
		r.logger.Error("pipeline timed out",
			"cmd_line", strings.Join(spec.Argv, " "),
			"timeout", timeout,
			"duration_ms", dur.Milliseconds(),
		)
	case err != nil:
		r.logger.Error("exec failed",
			"cmd", spec.Argv[0],
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10), // cap at 8KB
		)
	default:
		r.logger.Debug("exec ok",
			"cmd_line", strings.Join(spec.Argv, " "),
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
			"stderr_bytes", errb.Len(),
		)
	}

	return job.ProcessResult{
		ReturnCode: rc,
		Stdout:     out.String(),
		Stderr:     errb.String(),
		TimedOut:   timedOut,
	}
}

// cappedBuffer keeps at most max bytes and swallows the rest, so a full
// pipe can never block the child.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func newCappedBuffer(max int) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.max - b.buf.Len()
	if room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
			b.truncated = true
		} else {
			b.buf.Write(p)
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}

func (b *cappedBuffer) Len() int { return b.buf.Len() }

func (b *cappedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "...(truncated)"
	}
	return b.buf.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
