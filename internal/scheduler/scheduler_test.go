package scheduler

import (
	"context"
	"errors"
	"testing"

	"phonenorm_backend/platform/apperr"
	"phonenorm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	url   string
	queue string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.url }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

type stubRunner struct {
	runErr  error
	ran     []uuid.UUID
	failed  []uuid.UUID
	lastCtx context.Context
}

func (r *stubRunner) RunJob(ctx context.Context, id uuid.UUID) error {
	r.ran = append(r.ran, id)
	r.lastCtx = ctx
	return r.runErr
}

func (r *stubRunner) FailJob(_ context.Context, id uuid.UUID, _ error) error {
	r.failed = append(r.failed, id)
	return nil
}

func TestNormalizeBatchTask(t *testing.T) {
	id := uuid.New()
	task, err := NewNormalizeBatchTask(NormalizeBatchPayload{JobID: id.String()})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if task.Type() != TaskNormalizeBatch {
		t.Fatalf("expected task type %q, got %q", TaskNormalizeBatch, task.Type())
	}

	payload, err := ParseNormalizeBatchPayload(task)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if payload.JobID != id.String() {
		t.Fatalf("expected job id %s, got %s", id, payload.JobID)
	}
}

func TestHandleNormalizeBatch(t *testing.T) {
	id := uuid.New()
	validTask, _ := NewNormalizeBatchTask(NormalizeBatchPayload{JobID: id.String()})

	tests := []struct {
		name      string
		task      *asynq.Task
		runErr    error
		wantErr   bool
		wantSkip  bool
		wantRuns  int
		wantFails int
	}{
		{name: "success", task: validTask, wantRuns: 1},
		{name: "malformed payload", task: asynq.NewTask(TaskNormalizeBatch, []byte("{")), wantErr: true, wantSkip: true},
		{name: "bad job id", task: asynq.NewTask(TaskNormalizeBatch, []byte(`{"jobId":"42"}`)), wantErr: true, wantSkip: true},
		{name: "job gone", task: validTask, runErr: apperr.NotFound("normalization job not found"), wantErr: true, wantSkip: true, wantRuns: 1},
		{name: "transient failure is retried", task: validTask, runErr: errors.New("connection reset"), wantErr: true, wantRuns: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{runErr: tt.runErr}
			w := &Worker{runner: runner, log: logger.Discard()}

			err := w.handleNormalizeBatch(context.Background(), tt.task)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if errors.Is(err, asynq.SkipRetry) != tt.wantSkip {
				t.Fatalf("expected skip retry %v, got %v", tt.wantSkip, err)
			}
			if len(runner.ran) != tt.wantRuns || len(runner.failed) != tt.wantFails {
				t.Fatalf("expected %d runs and %d fails, got %d and %d", tt.wantRuns, tt.wantFails, len(runner.ran), len(runner.failed))
			}
			if tt.wantRuns > 0 {
				if got, _ := runner.lastCtx.Value(logger.JobIDKey).(string); got != id.String() {
					t.Fatalf("expected job id %s in context, got %q", id, got)
				}
			}
		})
	}
}

func TestRedisClientOpt(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		insecure bool
		wantAddr string
		wantDB   int
		wantTLS  bool
		wantSkip bool
	}{
		{name: "plain", url: "redis://localhost:6379/2", wantAddr: "localhost:6379", wantDB: 2},
		{name: "tls", url: "rediss://cache.internal:6380", wantAddr: "cache.internal:6380", wantTLS: true},
		{name: "forced insecure", url: "redis://localhost:6379", insecure: true, wantAddr: "localhost:6379", wantTLS: true, wantSkip: true},
		{name: "tls insecure", url: "rediss://cache.internal:6380", insecure: true, wantAddr: "cache.internal:6380", wantTLS: true, wantSkip: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := redisClientOpt(tt.url, tt.insecure)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if opt.Addr != tt.wantAddr || opt.DB != tt.wantDB {
				t.Fatalf("expected %s db %d, got %s db %d", tt.wantAddr, tt.wantDB, opt.Addr, opt.DB)
			}
			if (opt.TLSConfig != nil) != tt.wantTLS {
				t.Fatalf("expected tls %v, got %+v", tt.wantTLS, opt.TLSConfig)
			}
			if tt.wantTLS && opt.TLSConfig.InsecureSkipVerify != tt.wantSkip {
				t.Fatalf("expected InsecureSkipVerify %v", tt.wantSkip)
			}
		})
	}

	if _, err := redisClientOpt("http://[::1", false); err == nil {
		t.Fatal("expected invalid URL to fail")
	}
}

func TestNewClientAndWorker_RequireRedis(t *testing.T) {
	cfg := testSchedulerConfig{}
	if _, err := NewClient(cfg); err == nil {
		t.Fatal("expected client error without redis url")
	}
	if _, err := NewWorker(cfg, &stubRunner{}, logger.Discard()); err == nil {
		t.Fatal("expected worker error without redis url")
	}
	if got := queueName(testSchedulerConfig{}); got != "default" {
		t.Fatalf("expected default queue, got %q", got)
	}
	if got := queueName(testSchedulerConfig{queue: "phone"}); got != "phone" {
		t.Fatalf("expected phone queue, got %q", got)
	}
}

func TestEnqueueNormalizeBatch_NilClient(t *testing.T) {
	var c *Client
	if err := c.EnqueueNormalizeBatch(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("expected nil close, got %v", err)
	}
}
