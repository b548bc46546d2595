package search

import (
	"sort"

	"github.com/fieldnotes-ai/recall/internal/models"
)

// Branch weights for score fusion.
const (
	keywordWeight = 0.3
	vectorWeight  = 0.7
)

// normalizeScores min-max normalizes a branch's scores into [0,1] without
// mutating the input. A degenerate range (all scores equal) maps every
// score to 0.5.
func normalizeScores(results []models.SearchResult) []models.SearchResult {
	if len(results) == 0 {
		return results
	}

	minScore, maxScore := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	out := make([]models.SearchResult, len(results))
	copy(out, results)

	span := maxScore - minScore
	for i := range out {
		if span == 0 {
			out[i].Score = 0.5
		} else {
			out[i].Score = (out[i].Score - minScore) / span
		}
	}
	return out
}

// FuseScores combines the two branches: each branch is min-max normalized
// independently, then final = 0.3*keyword + 0.7*vector, summing for
// points present in both branches. Result is sorted by fused score
// descending.
func FuseScores(keywordResults, vectorResults []models.SearchResult) []models.SearchResult {
	normKeyword := normalizeScores(keywordResults)
	normVector := normalizeScores(vectorResults)

	fused := map[uint64]models.SearchResult{}
	var order []uint64

	for _, r := range normKeyword {
		r.Score *= keywordWeight
		fused[r.ID] = r
		order = append(order, r.ID)
	}
	for _, r := range normVector {
		if existing, ok := fused[r.ID]; ok {
			existing.Score += r.Score * vectorWeight
			fused[r.ID] = existing
			continue
		}
		r.Score *= vectorWeight
		fused[r.ID] = r
		order = append(order, r.ID)
	}

	out := make([]models.SearchResult, 0, len(order))
	for _, id := range order {
		out = append(out, fused[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
