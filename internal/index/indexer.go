// Package index writes chunks and their embeddings into the vector store.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/fieldnotes-ai/recall/internal/models"
	"github.com/fieldnotes-ai/recall/internal/vectorstore"
)

// embedBatchSize bounds the number of texts per embedding request and the
// number of points per upsert.
const embedBatchSize = 10

// pointIDHexLen is how many leading hex chars of the sha256 digest form
// the point ID. 15 hex chars fit a uint64.
const pointIDHexLen = 15

// Embedder is the embedding surface the indexer needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer persists chunks as vector points.
type Indexer struct {
	store        vectorstore.Store
	embedder     Embedder
	batchTimeout time.Duration
	now          func() time.Time
}

// New creates an indexer. Each embed-and-upsert batch is bounded by
// batchTimeout; zero leaves batches unbounded.
func New(store vectorstore.Store, embedder Embedder, batchTimeout time.Duration) *Indexer {
	return &Indexer{store: store, embedder: embedder, batchTimeout: batchTimeout, now: time.Now}
}

// Request carries everything needed to index one job's chunks.
type Request struct {
	Chunks     []models.Chunk
	JobID      string
	UserID     string
	Modality   models.Modality
	Metadata   models.Metadata
	SourceName string
	SourceDate *time.Time
}

// Index embeds and stores all chunks of a job, in batches. Point IDs are
// deterministic in (jobID, chunkIndex), so re-running a job overwrites
// its points instead of duplicating them. Returns the number of points
// written; a failed upsert propagates since a partially indexed job must
// surface as failed.
func (ix *Indexer) Index(ctx context.Context, req Request) (int, error) {
	if len(req.Chunks) == 0 {
		return 0, nil
	}

	if err := ix.store.EnsureCollection(ctx, req.UserID); err != nil {
		return 0, fmt.Errorf("ensure collection: %w", err)
	}

	slog.Info("indexing chunks",
		"job_id", req.JobID,
		"user_id", req.UserID,
		"chunks", len(req.Chunks),
		"batch_size", embedBatchSize,
	)

	stored := 0
	for start := 0; start < len(req.Chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(req.Chunks))

		if err := ix.indexBatch(ctx, req, start, req.Chunks[start:end]); err != nil {
			return stored, err
		}

		stored += end - start
		slog.Debug("indexed batch", "job_id", req.JobID, "stored", stored, "total", len(req.Chunks))
	}

	return stored, nil
}

// indexBatch embeds and upserts one batch under a single deadline. A
// hung external call fails the job instead of stalling it.
func (ix *Indexer) indexBatch(ctx context.Context, req Request, start int, batch []models.Chunk) error {
	if ix.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ix.batchTimeout)
		defer cancel()
	}

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch at %d: %w", start, err)
	}

	points := make([]vectorstore.Point, len(batch))
	createdAt := ix.now().UTC()
	for i, c := range batch {
		points[i] = vectorstore.Point{
			ID:      PointID(req.JobID, start+i),
			Vector:  vectors[i],
			Payload: buildPayload(req, c, start+i, createdAt),
		}
	}

	if err := ix.store.Upsert(ctx, req.UserID, points); err != nil {
		return fmt.Errorf("upsert batch at %d: %w", start, err)
	}
	return nil
}

// PointID derives a deterministic point ID from the job and chunk index.
func PointID(jobID string, chunkIndex int) uint64 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_chunk_%d", jobID, chunkIndex)))
	hexDigest := hex.EncodeToString(sum[:])
	id, _ := strconv.ParseUint(hexDigest[:pointIDHexLen], 16, 64)
	return id
}

func buildPayload(req Request, c models.Chunk, chunkIndex int, createdAt time.Time) models.Payload {
	speakers := c.Speakers
	if len(speakers) == 0 {
		speakers = req.Metadata.Speakers
	}

	return models.Payload{
		Text:       c.Text,
		JobID:      req.JobID,
		UserID:     req.UserID,
		Modality:   string(req.Modality),
		ChunkIndex: chunkIndex,
		TokenCount: c.TokenEstimate,
		Keywords:   req.Metadata.Keywords,
		Speakers:   speakers,
		Speaker:    c.Speaker,
		Summary:    req.Metadata.Summary,
		Topics:     req.Metadata.Topics,
		SourceName: req.SourceName,
		SourceDate: req.SourceDate,
		CreatedAt:  createdAt,
	}
}
