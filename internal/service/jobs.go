package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldnotes-ai/recall/internal/models"
)

const defaultQueueBuffer = 16

// JobQueue decouples job creation from pipeline execution: Enqueue
// persists a pending job and hands it to a worker over a channel, so the
// caller returns immediately while ingestion runs in the background.
type JobQueue struct {
	ingest  *IngestService
	store   JobStore // nil disables persistence
	queue   chan IngestRequest
	workers int

	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

// NewJobQueue creates a queue feeding the given number of workers.
func NewJobQueue(ingest *IngestService, store JobStore, workers int) *JobQueue {
	if workers <= 0 {
		workers = 2
	}
	return &JobQueue{
		ingest:  ingest,
		store:   store,
		queue:   make(chan IngestRequest, defaultQueueBuffer),
		workers: workers,
	}
}

// Start launches the worker pool.
func (q *JobQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	slog.Info("job queue started", "workers", q.workers)
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (q *JobQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	close(q.queue)
	q.wg.Wait()
	slog.Info("job queue stopped")
}

// Enqueue creates a pending job and schedules it. The returned job
// carries the generated ID the caller polls with.
func (q *JobQueue) Enqueue(ctx context.Context, userID, name string, modality models.Modality, content []byte, sourceDate *time.Time) (models.Job, error) {
	now := time.Now().UTC()
	job := models.Job{
		ID:         uuid.New().String()[:8], // Short ID for convenience
		UserID:     userID,
		Name:       name,
		Modality:   modality,
		Status:     models.JobStatusPending,
		SourceDate: sourceDate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if q.store != nil {
		if err := q.store.CreateJob(ctx, job); err != nil {
			return models.Job{}, fmt.Errorf("persist job: %w", err)
		}
	}

	q.mu.Lock()
	stopped := q.stopped
	q.mu.Unlock()
	if stopped {
		return models.Job{}, fmt.Errorf("job queue is stopped")
	}

	q.queue <- IngestRequest{Job: job, Content: content}
	slog.Info("job enqueued", "job_id", job.ID, "user_id", userID, "name", name, "modality", modality)
	return job, nil
}

func (q *JobQueue) worker(id int) {
	defer q.wg.Done()
	for req := range q.queue {
		// Workers outlive request contexts; jobs run against background.
		if _, err := q.ingest.Process(context.Background(), req); err != nil {
			slog.Warn("worker finished job with error", "worker", id, "job_id", req.Job.ID, "error", err)
		}
	}
}

// FailInterrupted marks jobs left pending or processing by a previous
// run as failed. Their raw content was never persisted, so they cannot
// be requeued; the caller must re-run the ingest. Runs at startup,
// before any worker of the current process takes a job.
func FailInterrupted(ctx context.Context, store JobStore) error {
	if store == nil {
		return nil
	}

	incomplete, err := store.IncompleteJobs(ctx)
	if err != nil {
		return fmt.Errorf("list incomplete jobs: %w", err)
	}

	for _, job := range incomplete {
		if err := store.FailJob(ctx, job.ID, "interrupted by restart; re-run ingest"); err != nil {
			slog.Warn("failed to mark interrupted job", "job_id", job.ID, "error", err)
			continue
		}
		slog.Info("marked interrupted job as failed", "job_id", job.ID, "name", job.Name)
	}
	return nil
}
