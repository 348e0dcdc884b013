package scheduler

import (
	"context"
	"fmt"

	"phonenorm_backend/platform/apperr"
	"phonenorm_backend/platform/config"
	"phonenorm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// JobRunner executes stored normalization jobs.
type JobRunner interface {
	RunJob(ctx context.Context, jobID uuid.UUID) error
	FailJob(ctx context.Context, jobID uuid.UUID, cause error) error
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner JobRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner JobRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		runner: runner,
		log:    log,
	}

	mux.HandleFunc(TaskNormalizeBatch, w.handleNormalizeBatch)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleNormalizeBatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNormalizeBatchPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return fmt.Errorf("%w: invalid job id %q", asynq.SkipRetry, payload.JobID)
	}

	ctx = context.WithValue(ctx, logger.JobIDKey, jobID.String())
	log := w.log.WithContext(ctx)

	err = w.runner.RunJob(ctx, jobID)
	if err == nil {
		return nil
	}
	if apperr.Is(err, apperr.KindNotFound) {
		log.Warn("normalization job no longer exists")
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if lastAttempt(ctx) {
		if failErr := w.runner.FailJob(ctx, jobID, err); failErr != nil {
			log.Error("failed to record normalization job failure", "error", failErr)
		}
	}
	log.Error("normalization job failed", "error", err)
	return err
}

// lastAttempt reports whether asynq will not retry the task after this run.
func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return false
	}
	return retried >= maxRetry
}
