package index

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fieldnotes-ai/recall/internal/models"
	"github.com/fieldnotes-ai/recall/internal/vectorstore"
)

// fakeEmbedder returns a deterministic unit vector per text.
type fakeEmbedder struct {
	calls     int
	batchSize []int
	err       error
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batchSize = append(f.batchSize, len(texts))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, 4)
		v[len(text)%4] = 1
		out[i] = v
	}
	return out, nil
}

func makeChunks(n int) []models.Chunk {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{
			Text:          strings.Repeat("x", 1200+i),
			TokenEstimate: 300 + i,
		}
	}
	return chunks
}

func TestIndex_BatchesAndCount(t *testing.T) {
	store := vectorstore.NewMemory()
	embedder := &fakeEmbedder{}
	ix := New(store, embedder, 0)

	count, err := ix.Index(context.Background(), Request{
		Chunks:   makeChunks(23),
		JobID:    "job-1",
		UserID:   "user-1",
		Modality: models.ModalityText,
		Metadata: models.Metadata{Keywords: []string{"alpha", "beta"}},
	})
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if count != 23 {
		t.Errorf("Index() count = %d, want 23", count)
	}
	if embedder.calls != 3 {
		t.Errorf("embed calls = %d, want 3 (batches of 10)", embedder.calls)
	}
	want := []int{10, 10, 3}
	for i, size := range embedder.batchSize {
		if size != want[i] {
			t.Errorf("batch %d size = %d, want %d", i, size, want[i])
		}
	}
	if store.Count("user-1") != 23 {
		t.Errorf("stored points = %d, want 23", store.Count("user-1"))
	}
}

// Re-indexing the same job yields the same point IDs: upserts overwrite
// instead of duplicating.
func TestIndex_Idempotent(t *testing.T) {
	store := vectorstore.NewMemory()
	ix := New(store, &fakeEmbedder{}, 0)

	req := Request{
		Chunks:   makeChunks(12),
		JobID:    "job-7",
		UserID:   "user-2",
		Modality: models.ModalityDocument,
	}

	ctx := context.Background()
	if _, err := ix.Index(ctx, req); err != nil {
		t.Fatalf("first Index() error = %v", err)
	}
	if _, err := ix.Index(ctx, req); err != nil {
		t.Fatalf("second Index() error = %v", err)
	}

	if store.Count("user-2") != 12 {
		t.Errorf("stored points = %d after re-index, want 12", store.Count("user-2"))
	}
}

func TestIndex_EmbedErrorPropagates(t *testing.T) {
	store := vectorstore.NewMemory()
	ix := New(store, &fakeEmbedder{err: errors.New("embedding service down")}, 0)

	count, err := ix.Index(context.Background(), Request{
		Chunks: makeChunks(5),
		JobID:  "job-9",
		UserID: "user-3",
	})
	if err == nil {
		t.Fatal("expected error from failed embedding")
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

// stalledEmbedder never answers; it returns only when the call's
// context expires.
type stalledEmbedder struct{}

func (s *stalledEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestIndex_HungBatchHitsDeadline(t *testing.T) {
	ix := New(vectorstore.NewMemory(), &stalledEmbedder{}, 10*time.Millisecond)

	type result struct {
		count int
		err   error
	}
	done := make(chan result, 1)
	go func() {
		count, err := ix.Index(context.Background(), Request{
			Chunks: makeChunks(5),
			JobID:  "job-t",
			UserID: "user-t",
		})
		done <- result{count, err}
	}()

	select {
	case r := <-done:
		if r.err == nil {
			t.Fatal("expected error from timed-out embedding batch")
		}
		if r.count != 0 {
			t.Errorf("count = %d, want 0", r.count)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Index never returned with a stalled embedder")
	}
}

func TestIndex_Empty(t *testing.T) {
	ix := New(vectorstore.NewMemory(), &fakeEmbedder{}, 0)
	count, err := ix.Index(context.Background(), Request{JobID: "job-0", UserID: "u"})
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("job-1", 0)
	b := PointID("job-1", 0)
	c := PointID("job-1", 1)
	d := PointID("job-2", 0)

	if a != b {
		t.Error("same inputs produced different IDs")
	}
	if a == c || a == d {
		t.Error("different inputs produced colliding IDs")
	}
}

func TestIndex_PayloadSpeakers(t *testing.T) {
	store := vectorstore.NewMemory()
	ix := New(store, &fakeEmbedder{}, 0)

	chunks := []models.Chunk{
		{Text: "with chunk speakers", TokenEstimate: 5, Speakers: []string{"Alice"}, Speaker: "Alice"},
		{Text: "without chunk speakers", TokenEstimate: 6},
	}
	_, err := ix.Index(context.Background(), Request{
		Chunks:   chunks,
		JobID:    "job-s",
		UserID:   "user-s",
		Modality: models.ModalityAudio,
		Metadata: models.Metadata{Speakers: []string{"Alice", "Bob"}},
	})
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	results, err := store.Scroll(context.Background(), "user-s", nil, 10)
	if err != nil {
		t.Fatalf("Scroll() error = %v", err)
	}
	byIndex := map[int]string{}
	bySpeakers := map[int]int{}
	for _, r := range results {
		byIndex[r.Payload.ChunkIndex] = r.Payload.Speaker
		bySpeakers[r.Payload.ChunkIndex] = len(r.Payload.Speakers)
	}
	if byIndex[0] != "Alice" {
		t.Errorf("chunk 0 speaker = %q, want Alice", byIndex[0])
	}
	if bySpeakers[0] != 1 {
		t.Errorf("chunk 0 speakers = %d, want chunk-level set", bySpeakers[0])
	}
	if bySpeakers[1] != 2 {
		t.Errorf("chunk 1 speakers = %d, want document-level fallback", bySpeakers[1])
	}
}
