package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"phonenorm_backend/platform/apperr"
	"phonenorm_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const msgJobNotFound = "normalization job not found"

// Repository provides database operations for normalization jobs.
type Repository struct {
	pool *pgxpool.Pool
}

var _ JobStore = (*Repository)(nil)

// New creates a new jobs repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateJob stores a pending job.
func (r *Repository) CreateJob(ctx context.Context, region string, numbers []string) (Job, error) {
	payload, err := json.Marshal(numbers)
	if err != nil {
		return Job{}, fmt.Errorf("failed to encode job numbers: %w", err)
	}

	job := Job{ID: uuid.New(), Region: region, Numbers: numbers, Status: StatusPending}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO normalization_jobs (id, region, numbers, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		job.ID, region, payload, StatusPending,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return Job{}, fmt.Errorf("failed to create normalization job: %w", err)
	}
	return job, nil
}

// GetJob returns one job with its results.
func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (Job, error) {
	var (
		job            Job
		numbers, rawRs []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, region, numbers, status, results, error, table_version, created_at, updated_at, completed_at
		FROM normalization_jobs WHERE id = $1`, id,
	).Scan(&job.ID, &job.Region, &numbers, &job.Status, &rawRs, &job.Error, &job.TableVersion,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, apperr.NotFound(msgJobNotFound)
	}
	if err != nil {
		return Job{}, fmt.Errorf("failed to get normalization job: %w", err)
	}

	if err := json.Unmarshal(numbers, &job.Numbers); err != nil {
		return Job{}, fmt.Errorf("failed to decode job numbers: %w", err)
	}
	if len(rawRs) > 0 {
		if err := json.Unmarshal(rawRs, &job.Results); err != nil {
			return Job{}, fmt.Errorf("failed to decode job results: %w", err)
		}
	}
	return job, nil
}

// MarkRunning moves a pending or failed job to running. Completed jobs are left alone.
func (r *Repository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE normalization_jobs SET status = $2, error = NULL, updated_at = now()
		WHERE id = $1 AND status <> $3`,
		id, StatusRunning, StatusCompleted,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(msgJobNotFound)
	}
	return nil
}

// CompleteJob stores the results and the table version they were computed with.
func (r *Repository) CompleteJob(ctx context.Context, id uuid.UUID, results []phone.Result, tableVersion uint64) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode job results: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE normalization_jobs
		SET status = $2, results = $3, table_version = $4, completed_at = now(), updated_at = now()
		WHERE id = $1`,
		id, StatusCompleted, payload, int64(tableVersion),
	)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(msgJobNotFound)
	}
	return nil
}

// FailJob records a terminal failure.
func (r *Repository) FailJob(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE normalization_jobs
		SET status = $2, error = $3, completed_at = now(), updated_at = now()
		WHERE id = $1`,
		id, StatusFailed, message,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}
