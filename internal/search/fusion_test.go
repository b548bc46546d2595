package search

import (
	"math"
	"testing"

	"github.com/fieldnotes-ai/recall/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFuseScores(t *testing.T) {
	keyword := []models.SearchResult{
		{ID: 1, Score: 0.5},
		{ID: 2, Score: 1.0},
	}
	vector := []models.SearchResult{
		{ID: 1, Score: 0.8},
		{ID: 3, Score: 0.2},
	}

	fused := FuseScores(keyword, vector)

	// After min-max normalization: keyword id1->0, id2->1; vector id1->1,
	// id3->0. Fused: id1 = 0.3*0 + 0.7*1 = 0.7; id2 = 0.3*1 = 0.3; id3 = 0.
	want := map[uint64]float64{1: 0.7, 2: 0.3, 3: 0.0}

	if len(fused) != 3 {
		t.Fatalf("fused %d results, want 3", len(fused))
	}
	for _, r := range fused {
		if !almostEqual(r.Score, want[r.ID]) {
			t.Errorf("id %d score = %v, want %v", r.ID, r.Score, want[r.ID])
		}
	}

	// Sorted descending.
	for i := 1; i < len(fused); i++ {
		if fused[i].Score > fused[i-1].Score {
			t.Errorf("scores not descending at %d: %v > %v", i, fused[i].Score, fused[i-1].Score)
		}
	}
	if fused[0].ID != 1 {
		t.Errorf("top result = %d, want 1", fused[0].ID)
	}
}

func TestNormalizeScores(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{
			name: "spread range",
			in:   []float64{0.2, 0.6, 1.0},
			want: []float64{0, 0.5, 1},
		},
		{
			name: "degenerate range maps to 0.5",
			in:   []float64{0.4, 0.4, 0.4},
			want: []float64{0.5, 0.5, 0.5},
		},
		{
			name: "single result maps to 0.5",
			in:   []float64{0.9},
			want: []float64{0.5},
		},
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]models.SearchResult, len(tt.in))
			for i, s := range tt.in {
				in[i] = models.SearchResult{ID: uint64(i), Score: s}
			}

			out := normalizeScores(in)
			if len(out) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(out), len(tt.want))
			}
			for i, r := range out {
				if !almostEqual(r.Score, tt.want[i]) {
					t.Errorf("result[%d] score = %v, want %v", i, r.Score, tt.want[i])
				}
			}

			// Input must not be mutated.
			for i, r := range in {
				if !almostEqual(r.Score, tt.in[i]) {
					t.Errorf("input[%d] mutated to %v", i, r.Score)
				}
			}
		})
	}
}

func TestFuseScores_OneEmptyBranch(t *testing.T) {
	vector := []models.SearchResult{
		{ID: 10, Score: 0.9},
		{ID: 11, Score: 0.1},
	}

	fused := FuseScores(nil, vector)

	if len(fused) != 2 {
		t.Fatalf("fused %d results, want 2", len(fused))
	}
	if !almostEqual(fused[0].Score, 0.7) {
		t.Errorf("top score = %v, want 0.7 (vector weight only)", fused[0].Score)
	}
	if !almostEqual(fused[1].Score, 0.0) {
		t.Errorf("bottom score = %v, want 0", fused[1].Score)
	}
}
