// Package vectorstore provides per-user vector collections backed by
// Qdrant.
package vectorstore

import (
	"context"

	"github.com/fieldnotes-ai/recall/internal/models"
)

// Point is a chunk's vector-store representation.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload models.Payload
}

// Filter narrows a query or scroll to matching points. A nil Filter means
// an unfiltered operation. All present conditions combine with AND.
type Filter struct {
	UserID      string
	KeywordsAny []string
	Temporal    *models.TemporalRange
}

// Store is the vector-store surface the pipeline depends on. The Qdrant
// client satisfies it; tests use an in-memory double.
type Store interface {
	// EnsureCollection idempotently creates the user's collection and its
	// advisory payload indexes.
	EnsureCollection(ctx context.Context, userID string) error

	// CollectionExists reports whether the user's collection exists.
	CollectionExists(ctx context.Context, userID string) (bool, error)

	// Upsert writes points with wait-for-completion semantics; points are
	// visible to subsequent reads when it returns.
	Upsert(ctx context.Context, userID string, points []Point) error

	// Query runs a vector-similarity search.
	Query(ctx context.Context, userID string, vector []float32, filter *Filter, limit int) ([]models.SearchResult, error)

	// Scroll filter-scans points without similarity ordering. Returned
	// results carry a zero score; callers compute their own.
	Scroll(ctx context.Context, userID string, filter *Filter, limit int) ([]models.SearchResult, error)
}
