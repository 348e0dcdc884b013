package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"phonenorm_backend/internal/events"
	"phonenorm_backend/internal/normalization/cache"
	"phonenorm_backend/internal/normalization/repository"
	"phonenorm_backend/internal/normalization/transport"
	"phonenorm_backend/platform/apperr"
	"phonenorm_backend/platform/logger"
	"phonenorm_backend/platform/phone"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

type memJobs struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]repository.Job
	createErr error
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: map[uuid.UUID]repository.Job{}}
}

func (m *memJobs) CreateJob(_ context.Context, region string, numbers []string) (repository.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return repository.Job{}, m.createErr
	}
	job := repository.Job{ID: uuid.New(), Region: region, Numbers: numbers, Status: repository.StatusPending, CreatedAt: time.Now()}
	m.jobs[job.ID] = job
	return job, nil
}

func (m *memJobs) GetJob(_ context.Context, id uuid.UUID) (repository.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return repository.Job{}, apperr.NotFound("normalization job not found")
	}
	return job, nil
}

func (m *memJobs) update(id uuid.UUID, fn func(*repository.Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return apperr.NotFound("normalization job not found")
	}
	fn(&job)
	m.jobs[id] = job
	return nil
}

func (m *memJobs) MarkRunning(_ context.Context, id uuid.UUID) error {
	return m.update(id, func(j *repository.Job) { j.Status = repository.StatusRunning })
}

func (m *memJobs) CompleteJob(_ context.Context, id uuid.UUID, results []phone.Result, version uint64) error {
	return m.update(id, func(j *repository.Job) {
		now := time.Now()
		j.Status = repository.StatusCompleted
		j.Results = results
		j.TableVersion = int64(version)
		j.CompletedAt = &now
	})
}

func (m *memJobs) FailJob(_ context.Context, id uuid.UUID, message string) error {
	return m.update(id, func(j *repository.Job) {
		j.Status = repository.StatusFailed
		j.Error = &message
	})
}

type stubEnqueuer struct {
	err    error
	queued []uuid.UUID
}

func (e *stubEnqueuer) EnqueueNormalizeBatch(_ context.Context, id uuid.UUID) error {
	if e.err != nil {
		return e.err
	}
	e.queued = append(e.queued, id)
	return nil
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]phone.Result
	gets    int
}

func (c *mapCache) Get(_ context.Context, key cache.Key) (phone.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	res, ok := c.entries[key.String()]
	return res, ok
}

func (c *mapCache) Set(_ context.Context, key cache.Key, res phone.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = res
}

func newNormalizer(t *testing.T) *phone.Normalizer {
	t.Helper()
	return phone.NewNormalizer(context.Background(), phone.EmbeddedLoader{}, logger.Discard())
}

func TestNormalize_UsesCache(t *testing.T) {
	c := &mapCache{entries: map[string]phone.Result{}}
	svc := New(newNormalizer(t), Deps{Cache: c}, 10, logger.Discard())
	req := transport.NormalizeRequest{Number: "020 7946 0123", Region: "UK"}

	first := svc.Normalize(context.Background(), req)
	second := svc.Normalize(context.Background(), req)

	if first.Cached || !second.Cached {
		t.Fatalf("expected miss then hit, got %v then %v", first.Cached, second.Cached)
	}
	if diff := cmp.Diff(first.Result, second.Result); diff != "" {
		t.Fatalf("cached result differs (-first +second):\n%s", diff)
	}
	if second.Display != "+44 20 7946 0123" {
		t.Fatalf("expected UK display, got %q", second.Display)
	}
}

func TestNormalize_DoesNotCacheFailures(t *testing.T) {
	c := &mapCache{entries: map[string]phone.Result{}}
	svc := New(newNormalizer(t), Deps{Cache: c}, 10, logger.Discard())

	res := svc.Normalize(context.Background(), transport.NormalizeRequest{Number: "call reception", Region: "UK"})
	if res.Error != phone.ErrNoDigits {
		t.Fatalf("expected %q, got %q", phone.ErrNoDigits, res.Error)
	}
	if len(c.entries) != 0 {
		t.Fatalf("expected nothing cached, got %d entries", len(c.entries))
	}
}

func TestNormalize_CallingCodeWinsOverRegion(t *testing.T) {
	svc := New(newNormalizer(t), Deps{}, 10, logger.Discard())

	res := svc.Normalize(context.Background(), transport.NormalizeRequest{Number: "0316 123456", Region: "UK", CallingCode: "43"})
	if res.Canonical != "+43316123456" || res.Display != "+43 316 123456" {
		t.Fatalf("expected Austrian formatting, got %q / %q", res.Canonical, res.Display)
	}
}

func TestNormalize_Validate(t *testing.T) {
	svc := New(newNormalizer(t), Deps{}, 10, logger.Discard())

	res := svc.Normalize(context.Background(), transport.NormalizeRequest{Number: "07400 123456", Region: "UK", Validate: true})
	if res.Validation == nil {
		t.Fatal("expected validation info")
	}
	if !res.Validation.Valid || res.Validation.RegionCode != "GB" {
		t.Fatalf("expected valid GB number, got %+v", res.Validation.Validity)
	}
	if !res.Validation.Rules.EntrySeen || !res.Validation.Rules.LengthOK {
		t.Fatalf("expected national rules to match, got %+v", res.Validation.Rules)
	}

	res = svc.Normalize(context.Background(), transport.NormalizeRequest{Number: "", Validate: true})
	if res.Validation != nil {
		t.Fatal("expected no validation for a failed result")
	}
}

func TestNormalizeBatch(t *testing.T) {
	svc := New(newNormalizer(t), Deps{}, 3, logger.Discard())

	got, err := svc.NormalizeBatch(context.Background(), transport.BatchRequest{
		Numbers: transport.NumberList{"020 7946 0123", "", "020 7946 0124"},
		Region:  "UK",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Total != 3 || got.Failed != 1 {
		t.Fatalf("expected 3 total and 1 failed, got %d and %d", got.Total, got.Failed)
	}
	if got.Results[2].Canonical != "+442079460124" {
		t.Fatalf("expected input order to be kept, got %+v", got.Results)
	}

	_, err = svc.NormalizeBatch(context.Background(), transport.BatchRequest{Numbers: transport.NumberList{"1", "2", "3", "4"}})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for oversized batch, got %v", err)
	}
}

func TestJobs_Lifecycle(t *testing.T) {
	log := logger.Discard()
	jobs := newMemJobs()
	enq := &stubEnqueuer{}
	bus := events.NewInMemoryBus(log)

	var (
		mu        sync.Mutex
		completed []events.NormalizationJobCompleted
	)
	bus.Subscribe(events.NameNormalizationJobCompleted, events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		completed = append(completed, e.(events.NormalizationJobCompleted))
		return nil
	}))

	svc := New(newNormalizer(t), Deps{Jobs: jobs, Enqueuer: enq, Bus: bus}, 10, log)
	ctx := context.Background()

	created, err := svc.CreateJob(ctx, transport.BatchRequest{Numbers: transport.NumberList{"020 7946 0123", "nope"}, Region: "UK"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created.Status != repository.StatusPending || created.Total != 2 {
		t.Fatalf("unexpected created job %+v", created)
	}
	if len(enq.queued) != 1 || enq.queued[0] != created.ID {
		t.Fatalf("expected job %s to be queued, got %v", created.ID, enq.queued)
	}

	if err := svc.RunJob(ctx, created.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	bus.Wait()

	got, err := svc.GetJob(ctx, created.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Status != repository.StatusCompleted || got.Failed != 1 || len(got.Results) != 2 || got.TableVersion == nil {
		t.Fatalf("unexpected completed job %+v", got)
	}
	if len(completed) != 1 || completed[0].JobID != created.ID || completed[0].Failed != 1 {
		t.Fatalf("expected one completion event, got %+v", completed)
	}

	if err := svc.RunJob(ctx, created.ID); err != nil {
		t.Fatalf("expected rerun of completed job to be a no-op, got %v", err)
	}
	bus.Wait()
	if len(completed) != 1 {
		t.Fatalf("expected no second event, got %d", len(completed))
	}
}

func TestCreateJob_Errors(t *testing.T) {
	ctx := context.Background()
	req := transport.BatchRequest{Numbers: transport.NumberList{"020 7946 0123"}}

	t.Run("not configured", func(t *testing.T) {
		svc := New(newNormalizer(t), Deps{}, 10, logger.Discard())
		if _, err := svc.CreateJob(ctx, req); !apperr.Is(err, apperr.KindUnavailable) {
			t.Fatalf("expected unavailable error, got %v", err)
		}
		if _, err := svc.GetJob(ctx, uuid.New()); !apperr.Is(err, apperr.KindUnavailable) {
			t.Fatalf("expected unavailable error, got %v", err)
		}
	})

	t.Run("enqueue failure marks job failed", func(t *testing.T) {
		jobs := newMemJobs()
		svc := New(newNormalizer(t), Deps{Jobs: jobs, Enqueuer: &stubEnqueuer{err: errors.New("redis down")}}, 10, logger.Discard())

		if _, err := svc.CreateJob(ctx, req); !apperr.Is(err, apperr.KindUnavailable) {
			t.Fatalf("expected unavailable error, got %v", err)
		}
		for _, job := range jobs.jobs {
			if job.Status != repository.StatusFailed {
				t.Fatalf("expected stored job to be failed, got %q", job.Status)
			}
		}
	})

	t.Run("store failure", func(t *testing.T) {
		jobs := newMemJobs()
		jobs.createErr = errors.New("connection reset")
		enqueuer := &stubEnqueuer{}
		svc := New(newNormalizer(t), Deps{Jobs: jobs, Enqueuer: enqueuer}, 10, logger.Discard())

		if _, err := svc.CreateJob(ctx, req); !apperr.Is(err, apperr.KindInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
		if len(enqueuer.queued) != 0 {
			t.Fatalf("expected nothing queued, got %v", enqueuer.queued)
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		svc := New(newNormalizer(t), Deps{Jobs: newMemJobs(), Enqueuer: &stubEnqueuer{}}, 10, logger.Discard())
		if _, err := svc.GetJob(ctx, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestFailJob_PublishesEvent(t *testing.T) {
	log := logger.Discard()
	jobs := newMemJobs()
	bus := events.NewInMemoryBus(log)

	var got []events.NormalizationJobCompleted
	bus.Subscribe(events.NameNormalizationJobCompleted, events.HandlerFunc(func(_ context.Context, e events.Event) error {
		got = append(got, e.(events.NormalizationJobCompleted))
		return nil
	}))

	svc := New(newNormalizer(t), Deps{Jobs: jobs, Bus: bus}, 10, log)
	job, _ := jobs.CreateJob(context.Background(), "", []string{"1"})

	if err := svc.FailJob(context.Background(), job.ID, errors.New("worker gave up")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	bus.Wait()

	if len(got) != 1 || got[0].Status != repository.StatusFailed || got[0].Message != "worker gave up" {
		t.Fatalf("unexpected events %+v", got)
	}
}
