package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ocrworker/internal/job"
)

// Job is the smallest useful unit. Extend as needed later (trace, retry, etc).
type Job struct {
	ID          uuid.UUID
	Request     job.Request
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
