package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/fieldnotes-ai/recall/internal/models"
)

// Memory is an in-memory Store used by tests and local development. It
// mirrors the Qdrant implementation's filter semantics.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[uint64]Point
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: map[string]map[uint64]Point{}}
}

// EnsureCollection creates the user's collection if missing.
func (m *Memory) EnsureCollection(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[userID]; !ok {
		m.collections[userID] = map[uint64]Point{}
	}
	return nil
}

// CollectionExists reports whether the user's collection exists.
func (m *Memory) CollectionExists(ctx context.Context, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[userID]
	return ok, nil
}

// Upsert writes points, overwriting on ID collision.
func (m *Memory) Upsert(ctx context.Context, userID string, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[userID]
	if !ok {
		return fmt.Errorf("collection %s does not exist", CollectionName(userID))
	}
	for _, p := range points {
		coll[p.ID] = p
	}
	return nil
}

// Query returns points by cosine similarity, filtered, best first.
func (m *Memory) Query(ctx context.Context, userID string, vector []float32, filter *Filter, limit int) ([]models.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collections[userID]
	if !ok {
		return nil, fmt.Errorf("collection %s does not exist", CollectionName(userID))
	}

	var results []models.SearchResult
	for _, p := range coll {
		if !matches(p.Payload, filter) {
			continue
		}
		results = append(results, models.SearchResult{
			ID:      p.ID,
			Score:   cosine(vector, p.Vector),
			Payload: p.Payload,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Scroll returns matching points without similarity ordering.
func (m *Memory) Scroll(ctx context.Context, userID string, filter *Filter, limit int) ([]models.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collections[userID]
	if !ok {
		return nil, fmt.Errorf("collection %s does not exist", CollectionName(userID))
	}

	var results []models.SearchResult
	for _, p := range coll {
		if !matches(p.Payload, filter) {
			continue
		}
		results = append(results, models.SearchResult{ID: p.ID, Payload: p.Payload})
	}

	// Stable order for deterministic tests.
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of points in a user's collection.
func (m *Memory) Count(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[userID])
}

func matches(p models.Payload, f *Filter) bool {
	if f == nil {
		return true
	}
	if f.UserID != "" && p.UserID != f.UserID {
		return false
	}
	if len(f.KeywordsAny) > 0 && !keywordIntersects(p.Keywords, f.KeywordsAny) {
		return false
	}
	if f.Temporal != nil && (f.Temporal.Start != nil || f.Temporal.End != nil) {
		if p.SourceDate == nil {
			return false
		}
		if f.Temporal.Start != nil && p.SourceDate.Before(*f.Temporal.Start) {
			return false
		}
		if f.Temporal.End != nil && p.SourceDate.After(*f.Temporal.End) {
			return false
		}
	}
	return true
}

func keywordIntersects(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
