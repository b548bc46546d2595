package metrics

import (
	"testing"
	"time"
)

func TestRecordTiming(t *testing.T) {
	c := NewCollector()

	c.RecordTiming(OpVectorSearch, 10*time.Millisecond)
	c.RecordTiming(OpVectorSearch, 30*time.Millisecond)

	snap := c.Snapshot()
	if snap.VectorSearch == nil {
		t.Fatal("vector search snapshot missing")
	}
	if snap.VectorSearch.Count != 2 {
		t.Errorf("count = %d, want 2", snap.VectorSearch.Count)
	}
	if snap.VectorSearch.MinTimeMs != 10 || snap.VectorSearch.MaxTimeMs != 30 {
		t.Errorf("min/max = %d/%d, want 10/30", snap.VectorSearch.MinTimeMs, snap.VectorSearch.MaxTimeMs)
	}
	if snap.VectorSearch.AvgTimeMs != 20 {
		t.Errorf("avg = %v, want 20", snap.VectorSearch.AvgTimeMs)
	}
}

func TestRecordLLMUsage(t *testing.T) {
	c := NewCollector()

	c.RecordLLMUsage(OpLLMComplete, 100*time.Millisecond, 500, 50)
	c.RecordLLMUsage(OpLLMComplete, 200*time.Millisecond, 1500, 150)

	snap := c.Snapshot()
	if snap.LLMComplete == nil {
		t.Fatal("llm snapshot missing")
	}
	if got := *snap.LLMComplete.TotalInputTokens; got != 2000 {
		t.Errorf("total input tokens = %d, want 2000", got)
	}
	if got := *snap.LLMComplete.MinInputTokens; got != 500 {
		t.Errorf("min input tokens = %d, want 500", got)
	}
	if got := *snap.LLMComplete.MaxOutputTokens; got != 150 {
		t.Errorf("max output tokens = %d, want 150", got)
	}
}

func TestSnapshotEmptyOps(t *testing.T) {
	snap := NewCollector().Snapshot()
	if snap.Embedding != nil || snap.Rerank != nil {
		t.Error("unrecorded operations should snapshot as nil")
	}
}
