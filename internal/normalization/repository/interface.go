package repository

import (
	"context"
	"time"

	"phonenorm_backend/platform/phone"

	"github.com/google/uuid"
)

// Job statuses, mirrored by the normalization_jobs status check constraint.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is a batch of numbers normalized in the background.
type Job struct {
	ID           uuid.UUID
	Region       string
	Numbers      []string
	Status       string
	Results      []phone.Result
	Error        *string
	TableVersion int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// JobReader provides read operations for jobs.
type JobReader interface {
	GetJob(ctx context.Context, id uuid.UUID) (Job, error)
}

// JobWriter provides state transitions for jobs.
type JobWriter interface {
	CreateJob(ctx context.Context, region string, numbers []string) (Job, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	CompleteJob(ctx context.Context, id uuid.UUID, results []phone.Result, tableVersion uint64) error
	FailJob(ctx context.Context, id uuid.UUID, message string) error
}

// JobStore combines read and write access.
type JobStore interface {
	JobReader
	JobWriter
}
