// Package service wires the ingestion and query pipelines together.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldnotes-ai/recall/internal/chunk"
	"github.com/fieldnotes-ai/recall/internal/index"
	"github.com/fieldnotes-ai/recall/internal/metrics"
	"github.com/fieldnotes-ai/recall/internal/models"
)

// Transcriber converts audio bytes into a timestamped transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (*models.Transcription, error)
}

// Extractor derives metadata from source text. Extraction degrades to a
// heuristic fallback internally and never fails.
type Extractor interface {
	ExtractAudio(ctx context.Context, transcript string, duration float64) models.Metadata
	ExtractGeneric(ctx context.Context, text, contentType string) models.Metadata
}

// Attributor labels transcript segments with speaker identities.
type Attributor interface {
	Attribute(ctx context.Context, segments []models.TranscriptSegment, knownSpeakers []string) []models.TranscriptSegment
}

// Indexer embeds chunks and writes them to the vector store.
type Indexer interface {
	Index(ctx context.Context, req index.Request) (int, error)
}

// JobStore persists ingestion job state.
type JobStore interface {
	CreateJob(ctx context.Context, job models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobs(ctx context.Context, userID string, limit int) ([]models.Job, error)
	IncompleteJobs(ctx context.Context) ([]models.Job, error)
	MarkProcessing(ctx context.Context, id string) error
	CompleteJob(ctx context.Context, id string, chunkCount int) error
	FailJob(ctx context.Context, id string, errMsg string) error
}

// IngestService runs the ingestion pipeline for one job at a time:
// transcription (audio), metadata extraction, speaker attribution,
// chunking, indexing.
type IngestService struct {
	transcriber Transcriber
	extractor   Extractor
	attributor  Attributor
	indexer     Indexer
	jobs        JobStore // nil disables persistence
	collector   *metrics.Collector
	chunkCfg    chunk.Config
	callTimeout time.Duration
}

// NewIngestService creates an ingest service. jobs may be nil when no job
// store is configured; status transitions are then skipped.
func NewIngestService(
	transcriber Transcriber,
	extractor Extractor,
	attributor Attributor,
	indexer Indexer,
	jobs JobStore,
	collector *metrics.Collector,
	callTimeout time.Duration,
) *IngestService {
	return &IngestService{
		transcriber: transcriber,
		extractor:   extractor,
		attributor:  attributor,
		indexer:     indexer,
		jobs:        jobs,
		collector:   collector,
		chunkCfg:    chunk.DefaultConfig(),
		callTimeout: callTimeout,
	}
}

// IngestRequest carries one job and its raw content through the queue.
type IngestRequest struct {
	Job     models.Job
	Content []byte
}

// Process runs the full pipeline for one job and returns the number of
// chunks indexed. Job status transitions are persisted best-effort;
// pipeline errors mark the job failed and propagate.
func (s *IngestService) Process(ctx context.Context, req IngestRequest) (int, error) {
	job := req.Job
	slog.Info("processing job", "job_id", job.ID, "user_id", job.UserID, "modality", job.Modality, "name", job.Name)

	s.persistStatus(ctx, job.ID, func(c context.Context) error {
		return s.jobs.MarkProcessing(c, job.ID)
	})

	var (
		count int
		err   error
	)
	switch job.Modality {
	case models.ModalityAudio:
		count, err = s.processAudio(ctx, job, req.Content)
	case models.ModalityDocument, models.ModalityText:
		count, err = s.processText(ctx, job, string(req.Content))
	default:
		err = fmt.Errorf("unknown modality %q", job.Modality)
	}

	if err != nil {
		s.persistStatus(ctx, job.ID, func(c context.Context) error {
			return s.jobs.FailJob(c, job.ID, err.Error())
		})
		slog.Error("job failed", "job_id", job.ID, "error", err)
		return 0, err
	}

	s.persistStatus(ctx, job.ID, func(c context.Context) error {
		return s.jobs.CompleteJob(c, job.ID, count)
	})
	slog.Info("job completed", "job_id", job.ID, "chunks", count)
	return count, nil
}

func (s *IngestService) processAudio(ctx context.Context, job models.Job, audio []byte) (int, error) {
	tctx, cancel := s.withTimeout(ctx)
	start := time.Now()
	transcription, err := s.transcriber.Transcribe(tctx, audio, job.Name)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("transcribe: %w", err)
	}
	s.record(metrics.OpTranscription, start)

	if transcription.Text == "" {
		return 0, fmt.Errorf("transcription produced no text")
	}

	ectx, cancel := s.withTimeout(ctx)
	meta := s.extractor.ExtractAudio(ectx, transcription.Text, transcription.Duration)
	cancel()

	segments := transcription.Segments
	if s.attributor != nil && len(segments) > 0 {
		segments = s.attributor.Attribute(ctx, segments, meta.Speakers)
	}

	chunks := chunk.SplitWithConfig(transcription.Text, segments, s.chunkCfg)
	return s.indexChunks(ctx, job, chunks, meta)
}

func (s *IngestService) processText(ctx context.Context, job models.Job, text string) (int, error) {
	if text == "" {
		return 0, fmt.Errorf("empty content")
	}

	ectx, cancel := s.withTimeout(ctx)
	meta := s.extractor.ExtractGeneric(ectx, text, string(job.Modality))
	cancel()
	chunks := chunk.SplitWithConfig(text, nil, s.chunkCfg)
	return s.indexChunks(ctx, job, chunks, meta)
}

func (s *IngestService) indexChunks(ctx context.Context, job models.Job, chunks []models.Chunk, meta models.Metadata) (int, error) {
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no chunks produced")
	}

	start := time.Now()
	count, err := s.indexer.Index(ctx, index.Request{
		Chunks:     chunks,
		JobID:      job.ID,
		UserID:     job.UserID,
		Modality:   job.Modality,
		Metadata:   meta,
		SourceName: job.Name,
		SourceDate: job.SourceDate,
	})
	if err != nil {
		return 0, fmt.Errorf("index: %w", err)
	}
	s.record(metrics.OpVectorUpsert, start)
	return count, nil
}

// persistStatus runs a job-store transition, logging instead of failing
// when the store is absent or errors. Pipeline progress never depends on
// job bookkeeping.
func (s *IngestService) persistStatus(ctx context.Context, jobID string, fn func(context.Context) error) {
	if s.jobs == nil {
		return
	}
	c, cancel := s.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	if err := fn(c); err != nil {
		slog.Warn("failed to persist job status", "job_id", jobID, "error", err)
		return
	}
	s.record(metrics.OpJobStore, start)
}

func (s *IngestService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.callTimeout)
}

func (s *IngestService) record(op string, start time.Time) {
	if s.collector != nil {
		s.collector.RecordTiming(op, time.Since(start))
	}
}
