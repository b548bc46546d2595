package llm

import (
	"context"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/fieldnotes-ai/recall/internal/metrics"
)

// cannedChatModel returns a fixed response with provider usage figures.
type cannedChatModel struct {
	content string
	usage   map[string]any
}

func (c *cannedChatModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:        c.content,
			GenerationInfo: c.usage,
		}},
	}, nil
}

func (c *cannedChatModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return c.content, nil
}

func TestGenerate_RecordsTokenUsage(t *testing.T) {
	collector := metrics.NewCollector()
	m := &Model{
		llm: &cannedChatModel{
			content: `{"score": 0.9}`,
			usage:   map[string]any{"PromptTokens": 120, "CompletionTokens": 8},
		},
		modelName: "test-model",
		collector: collector,
	}

	out, err := m.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON() error = %v", err)
	}
	if out != `{"score": 0.9}` {
		t.Errorf("CompleteJSON() = %q", out)
	}

	_, err = m.GenerateWithSystem(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("GenerateWithSystem() error = %v", err)
	}

	snap := collector.Snapshot().LLMComplete
	if snap == nil {
		t.Fatal("no llm completion stats recorded")
	}
	if snap.Count != 2 {
		t.Errorf("count = %d, want 2", snap.Count)
	}
	if snap.TotalInputTokens == nil || *snap.TotalInputTokens != 240 {
		t.Errorf("input tokens = %v, want 240", snap.TotalInputTokens)
	}
	if snap.TotalOutputTokens == nil || *snap.TotalOutputTokens != 16 {
		t.Errorf("output tokens = %v, want 16", snap.TotalOutputTokens)
	}
}

func TestGenerate_NilCollector(t *testing.T) {
	m := &Model{
		llm:       &cannedChatModel{content: "ok"},
		modelName: "test-model",
	}

	out, err := m.GenerateWithSystem(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("GenerateWithSystem() error = %v", err)
	}
	if out != "ok" {
		t.Errorf("GenerateWithSystem() = %q, want ok", out)
	}
}

func TestTokenCount(t *testing.T) {
	info := map[string]any{
		"int":     42,
		"int64":   int64(7),
		"float64": 3.0,
		"string":  "nope",
	}

	tests := []struct {
		key  string
		want int64
	}{
		{"int", 42},
		{"int64", 7},
		{"float64", 3},
		{"string", 0},
		{"missing", 0},
	}
	for _, tt := range tests {
		if got := tokenCount(info, tt.key); got != tt.want {
			t.Errorf("tokenCount(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}
