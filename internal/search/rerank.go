package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/fieldnotes-ai/recall/internal/llm"
	"github.com/fieldnotes-ai/recall/internal/models"
)

const (
	// rerankBatchSize bounds concurrent scoring calls.
	rerankBatchSize = 5
	// passageCharLimit truncates passages sent for scoring.
	passageCharLimit = 800
)

const rerankSystemPrompt = "You are a relevance scoring assistant. Always respond with valid JSON containing a 'score' number between 0.0 and 1.0."

// Reranker re-scores retrieved passages with pairwise LLM relevance calls.
type Reranker struct {
	client llm.Completer
}

// NewReranker creates a reranker.
func NewReranker(client llm.Completer) *Reranker {
	return &Reranker{client: client}
}

// Rerank scores every (query, passage) pair and returns the topN passages
// by relevance. Input is returned unchanged when it already fits topN. A
// failed or malformed scoring call gives that passage a score of zero;
// reranking never fails the request.
func (r *Reranker) Rerank(ctx context.Context, query string, results []models.SearchResult, topN int) []models.SearchResult {
	if len(results) <= topN {
		return results
	}

	slog.Debug("reranking", "candidates", len(results), "top_n", topN)

	scored := make([]models.SearchResult, len(results))
	copy(scored, results)

	// Batches run sequentially; calls within a batch run concurrently to
	// bound outstanding requests against the scoring service.
	for start := 0; start < len(scored); start += rerankBatchSize {
		end := min(start+rerankBatchSize, len(scored))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				scored[i].Score = r.scorePassage(ctx, query, scored[i].Payload.Text)
			}(i)
		}
		wg.Wait()
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored[:topN]
}

// scorePassage asks the model for a relevance score in [0,1]. Failures
// score zero so a bad call sinks the passage instead of the request.
func (r *Reranker) scorePassage(ctx context.Context, query, passage string) float64 {
	if len(passage) > passageCharLimit {
		passage = passage[:passageCharLimit]
	}

	prompt := fmt.Sprintf(`You are a relevance scoring assistant. Score how relevant this text chunk is to the user's query.

User Query: "%s"

Text Chunk:
"%s"

Rate the relevance on a scale of 0.0 to 1.0, where:
- 1.0 = Perfectly relevant, directly answers the query
- 0.7-0.9 = Highly relevant, contains important information
- 0.4-0.6 = Somewhat relevant, tangentially related
- 0.1-0.3 = Minimally relevant, barely related
- 0.0 = Not relevant at all

Return ONLY a JSON object with a "score" field (number between 0.0 and 1.0).
Example: {"score": 0.85}`, query, passage)

	content, err := r.client.CompleteJSON(ctx, rerankSystemPrompt, prompt)
	if err != nil {
		slog.Warn("rerank scoring call failed", "error", err)
		return 0
	}

	var parsed struct {
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		slog.Warn("rerank scoring returned malformed JSON", "error", err)
		return 0
	}

	return clamp01(parsed.Score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
