package cli

import (
	"fmt"
	"os"

	"github.com/fieldnotes-ai/recall/internal/metrics"
)

// printPipelineStats dumps per-operation timings to stderr. Called after
// a command finishes when --verbose is set.
func printPipelineStats() {
	if !verbose || collector == nil {
		return
	}
	snap := collector.Snapshot()

	printOp("embedding", snap.Embedding)
	printOp("llm completion", snap.LLMComplete)
	printOp("transcription", snap.Transcription)
	printOp("vector upsert", snap.VectorUpsert)
	printOp("vector search", snap.VectorSearch)
	printOp("rerank", snap.Rerank)
	printOp("job store", snap.JobStore)
}

func printOp(name string, op *metrics.OperationSnapshot) {
	if op == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%-16s count=%d avg=%.1fms min=%dms max=%dms\n",
		name, op.Count, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	if op.TotalInputTokens != nil {
		fmt.Fprintf(os.Stderr, "%-16s tokens in=%d out=%d\n", "", *op.TotalInputTokens, *op.TotalOutputTokens)
	}
}
