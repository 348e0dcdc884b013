// Package service implements the normalization use cases: single numbers,
// synchronous batches and background jobs.
package service

import (
	"context"
	"fmt"
	"strings"

	"phonenorm_backend/internal/events"
	"phonenorm_backend/internal/normalization/cache"
	"phonenorm_backend/internal/normalization/repository"
	"phonenorm_backend/internal/normalization/transport"
	"phonenorm_backend/platform/apperr"
	"phonenorm_backend/platform/logger"
	"phonenorm_backend/platform/phone"

	"github.com/google/uuid"
)

// Cache memoizes single-number results.
type Cache interface {
	Get(ctx context.Context, key cache.Key) (phone.Result, bool)
	Set(ctx context.Context, key cache.Key, res phone.Result)
}

// JobEnqueuer hands a stored job to the background worker.
type JobEnqueuer interface {
	EnqueueNormalizeBatch(ctx context.Context, jobID uuid.UUID) error
}

// Deps holds the optional collaborators of the service. Nil members disable
// the feature that needs them.
type Deps struct {
	Cache    Cache
	Jobs     repository.JobStore
	Enqueuer JobEnqueuer
	Bus      events.Bus
}

// Service provides business logic for normalization.
type Service struct {
	normalizer   *phone.Normalizer
	deps         Deps
	maxBatchSize int
	log          *logger.Logger
}

// New creates a normalization service.
func New(normalizer *phone.Normalizer, deps Deps, maxBatchSize int, log *logger.Logger) *Service {
	return &Service{
		normalizer:   normalizer,
		deps:         deps,
		maxBatchSize: maxBatchSize,
		log:          log,
	}
}

// Normalize normalizes one number, optionally with plausibility checks.
func (s *Service) Normalize(ctx context.Context, req transport.NormalizeRequest) transport.NormalizeResponse {
	table := s.normalizer.Table()
	key := cache.Key{Fingerprint: table.Fingerprint(), Region: req.Region, CallingCode: req.CallingCode, Raw: req.Number}

	var (
		res    phone.Result
		cached bool
	)
	if s.deps.Cache != nil {
		res, cached = s.deps.Cache.Get(ctx, key)
	}
	if !cached {
		if req.CallingCode != "" {
			res = s.normalizer.NormalizeWithCallingCode(req.Number, req.CallingCode)
		} else {
			res = s.normalizer.Normalize(req.Number, req.Region)
		}
		if s.deps.Cache != nil && res.OK() {
			s.deps.Cache.Set(ctx, key, res)
		}
	}

	resp := transport.NormalizeResponse{Result: res, Cached: cached}
	if req.Validate && res.OK() {
		resp.Validation = validate(table, res)
	}
	return resp
}

func validate(table *phone.Table, res phone.Result) *transport.ValidationInfo {
	info := &transport.ValidationInfo{Validity: phone.Check(res.Canonical)}
	if res.CallingCode != "" {
		national := strings.TrimPrefix(res.Canonical, "+"+res.CallingCode)
		info.Rules = table.MatchesNationalRules(res.CallingCode, national)
	}
	return info
}

// NormalizeBatch normalizes up to maxBatchSize numbers in input order.
func (s *Service) NormalizeBatch(_ context.Context, req transport.BatchRequest) (transport.BatchResponse, error) {
	if err := s.checkBatchSize(len(req.Numbers)); err != nil {
		return transport.BatchResponse{}, err
	}

	table := s.normalizer.Table()
	results := s.normalizer.NormalizeBatch(req.Numbers, req.Region)
	return transport.BatchResponse{
		Total:        len(results),
		Failed:       countFailed(results),
		TableVersion: table.Version(),
		Results:      results,
	}, nil
}

// CreateJob stores a batch and queues it for the worker.
func (s *Service) CreateJob(ctx context.Context, req transport.BatchRequest) (transport.JobResponse, error) {
	if s.deps.Jobs == nil || s.deps.Enqueuer == nil {
		return transport.JobResponse{}, apperr.Unavailable("background jobs require DATABASE_URL and REDIS_URL")
	}
	if err := s.checkBatchSize(len(req.Numbers)); err != nil {
		return transport.JobResponse{}, err
	}

	job, err := s.deps.Jobs.CreateJob(ctx, req.Region, req.Numbers)
	if err != nil {
		s.log.DatabaseError("create_normalization_job", err)
		return transport.JobResponse{}, apperr.Internal("failed to store normalization job").WithOp("normalization.CreateJob")
	}

	if err := s.deps.Enqueuer.EnqueueNormalizeBatch(ctx, job.ID); err != nil {
		msg := fmt.Sprintf("enqueue failed: %v", err)
		if failErr := s.deps.Jobs.FailJob(ctx, job.ID, msg); failErr != nil {
			s.log.DatabaseError("fail_normalization_job", failErr)
		}
		return transport.JobResponse{}, apperr.Wrap(apperr.KindUnavailable, "failed to queue normalization job", err)
	}

	s.log.WithContext(ctx).Info("normalization job queued", "jobId", job.ID, "numbers", len(req.Numbers))
	return toJobResponse(job), nil
}

// GetJob returns a job and, once completed, its results.
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (transport.JobResponse, error) {
	if s.deps.Jobs == nil {
		return transport.JobResponse{}, apperr.Unavailable("background jobs require DATABASE_URL")
	}
	job, err := s.deps.Jobs.GetJob(ctx, id)
	if err != nil {
		return transport.JobResponse{}, err
	}
	return toJobResponse(job), nil
}

// RunJob normalizes a stored job and records the outcome. Completed jobs are
// skipped, so redelivered tasks are harmless.
func (s *Service) RunJob(ctx context.Context, id uuid.UUID) error {
	if s.deps.Jobs == nil {
		return apperr.Unavailable("background jobs require DATABASE_URL")
	}

	job, err := s.deps.Jobs.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == repository.StatusCompleted {
		return nil
	}
	if err := s.deps.Jobs.MarkRunning(ctx, id); err != nil {
		return err
	}

	table := s.normalizer.Table()
	results := s.normalizer.NormalizeBatch(job.Numbers, job.Region)
	if err := s.deps.Jobs.CompleteJob(ctx, id, results, table.Version()); err != nil {
		return err
	}

	failed := countFailed(results)
	s.log.WithContext(ctx).Info("normalization job completed",
		"jobId", id,
		"numbers", len(results),
		"failed", failed,
		"tableVersion", table.Version(),
	)
	s.publishCompleted(ctx, id, repository.StatusCompleted, len(results), failed, "")
	return nil
}

// FailJob records a job the worker gave up on.
func (s *Service) FailJob(ctx context.Context, id uuid.UUID, cause error) error {
	if s.deps.Jobs == nil {
		return apperr.Unavailable("background jobs require DATABASE_URL")
	}
	if err := s.deps.Jobs.FailJob(ctx, id, cause.Error()); err != nil {
		return err
	}
	s.publishCompleted(ctx, id, repository.StatusFailed, 0, 0, cause.Error())
	return nil
}

func (s *Service) publishCompleted(ctx context.Context, id uuid.UUID, status string, total, failed int, message string) {
	if s.deps.Bus == nil {
		return
	}
	s.deps.Bus.Publish(ctx, events.NormalizationJobCompleted{
		BaseEvent: events.NewBaseEvent(),
		JobID:     id,
		Status:    status,
		Total:     total,
		Failed:    failed,
		Message:   message,
	})
}

func (s *Service) checkBatchSize(n int) error {
	if n == 0 {
		return apperr.Validation("numbers must not be empty")
	}
	if s.maxBatchSize > 0 && n > s.maxBatchSize {
		return apperr.Validation(fmt.Sprintf("at most %d numbers per request", s.maxBatchSize)).
			WithDetails(map[string]int{"max": s.maxBatchSize, "got": n})
	}
	return nil
}

func countFailed(results []phone.Result) int {
	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	return failed
}

func toJobResponse(job repository.Job) transport.JobResponse {
	resp := transport.JobResponse{
		ID:          job.ID,
		Status:      job.Status,
		Region:      job.Region,
		Total:       len(job.Numbers),
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.Error != nil {
		resp.Error = *job.Error
	}
	if job.Status == repository.StatusCompleted {
		version := job.TableVersion
		resp.TableVersion = &version
		resp.Results = job.Results
		resp.Failed = countFailed(job.Results)
	}
	return resp
}
