package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/fieldnotes-ai/recall/internal/models"
	"github.com/fieldnotes-ai/recall/internal/vectorstore"
)

// fallbackScanLimit bounds the unfiltered scroll used when a filtered
// keyword scan fails.
const fallbackScanLimit = 1000

// Retriever runs hybrid keyword + vector search against the vector store.
type Retriever struct {
	store vectorstore.Store
}

// NewRetriever creates a hybrid retriever.
func NewRetriever(store vectorstore.Store) *Retriever {
	return &Retriever{store: store}
}

// Options configures one search call.
type Options struct {
	UserID         string
	Query          string
	QueryEmbedding []float32
	TopK           int
	Temporal       *models.TemporalRange
}

// Search runs both branches concurrently, fuses their scores and returns
// at most TopK results, best first. A branch that cannot execute (for
// example a missing collection) contributes an empty set; an error is
// returned only when both branches fail at the protocol level.
func (r *Retriever) Search(ctx context.Context, opts Options) ([]models.SearchResult, error) {
	keywords := ExtractKeywords(opts.Query)
	limit := opts.TopK * 2

	slog.Debug("hybrid search",
		"user_id", opts.UserID,
		"top_k", opts.TopK,
		"keywords", strings.Join(keywords, ","),
		"temporal", opts.Temporal != nil,
	)

	var (
		wg             sync.WaitGroup
		keywordResults []models.SearchResult
		vectorResults  []models.SearchResult
		keywordErr     error
		vectorErr      error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		keywordResults, keywordErr = r.keywordSearch(ctx, opts, keywords, limit)
	}()
	go func() {
		defer wg.Done()
		vectorResults, vectorErr = r.vectorSearch(ctx, opts, limit)
	}()
	wg.Wait()

	if keywordErr != nil && vectorErr != nil {
		return nil, fmt.Errorf("both search branches failed: keyword: %v; vector: %w", keywordErr, vectorErr)
	}
	if keywordErr != nil {
		slog.Warn("keyword branch failed, continuing with vector results", "error", keywordErr)
	}
	if vectorErr != nil {
		slog.Warn("vector branch failed, continuing with keyword results", "error", vectorErr)
	}

	fused := FuseScores(keywordResults, vectorResults)
	if len(fused) > opts.TopK {
		fused = fused[:opts.TopK]
	}

	if opts.Temporal != nil && len(fused) == 0 {
		// Points indexed before date fields existed silently fall outside
		// any range filter.
		slog.Warn("temporal query returned no results; older points may lack date fields",
			"user_id", opts.UserID, "phrase", opts.Temporal.RelativeText)
	}

	return fused, nil
}

// keywordSearch filter-scans for points sharing keywords with the query
// and scores them by match ratio. A failed filtered scan falls back to a
// bounded unfiltered scan with in-memory filtering.
func (r *Retriever) keywordSearch(ctx context.Context, opts Options, keywords []string, limit int) ([]models.SearchResult, error) {
	if len(keywords) == 0 {
		slog.Debug("no keywords extracted, skipping keyword branch")
		return nil, nil
	}

	exists, err := r.store.CollectionExists(ctx, opts.UserID)
	if err != nil || !exists {
		return nil, nil
	}

	filter := &vectorstore.Filter{
		UserID:      opts.UserID,
		KeywordsAny: keywords,
		Temporal:    opts.Temporal,
	}

	points, err := r.store.Scroll(ctx, opts.UserID, filter, limit)
	if err != nil {
		slog.Warn("filtered keyword scan failed, falling back to full scan", "error", err)
		return r.keywordFallback(ctx, opts, keywords, limit)
	}

	return scoreKeywordMatches(points, keywords, 0), nil
}

func (r *Retriever) keywordFallback(ctx context.Context, opts Options, keywords []string, limit int) ([]models.SearchResult, error) {
	points, err := r.store.Scroll(ctx, opts.UserID, nil, fallbackScanLimit)
	if err != nil {
		return nil, fmt.Errorf("keyword fallback scan: %w", err)
	}

	var owned []models.SearchResult
	for _, p := range points {
		if p.Payload.UserID == opts.UserID {
			owned = append(owned, p)
		}
	}

	results := scoreKeywordMatches(owned, keywords, limit)
	return results, nil
}

// scoreKeywordMatches scores each point as matched/total keywords,
// dropping zero scores, sorted descending. A positive limit caps the
// result length.
func scoreKeywordMatches(points []models.SearchResult, keywords []string, limit int) []models.SearchResult {
	var results []models.SearchResult
	for _, p := range points {
		matched := 0
		for _, kw := range keywords {
			for _, pk := range p.Payload.Keywords {
				if strings.Contains(strings.ToLower(pk), kw) {
					matched++
					break
				}
			}
		}
		if matched == 0 {
			continue
		}
		p.Score = float64(matched) / float64(len(keywords))
		results = append(results, p)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// vectorSearch runs the similarity branch. A failed filtered query falls
// back to an unfiltered query with in-memory ownership filtering.
func (r *Retriever) vectorSearch(ctx context.Context, opts Options, limit int) ([]models.SearchResult, error) {
	exists, err := r.store.CollectionExists(ctx, opts.UserID)
	if err != nil || !exists {
		return nil, nil
	}

	filter := &vectorstore.Filter{
		UserID:   opts.UserID,
		Temporal: opts.Temporal,
	}

	results, err := r.store.Query(ctx, opts.UserID, opts.QueryEmbedding, filter, limit)
	if err == nil {
		return results, nil
	}
	slog.Warn("filtered vector search failed, falling back to unfiltered", "error", err)

	unfiltered, err := r.store.Query(ctx, opts.UserID, opts.QueryEmbedding, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("vector fallback query: %w", err)
	}

	var owned []models.SearchResult
	for _, res := range unfiltered {
		if res.Payload.UserID == opts.UserID {
			owned = append(owned, res)
		}
	}
	return owned, nil
}
