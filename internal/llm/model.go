package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldnotes-ai/recall/internal/config"
	"github.com/fieldnotes-ai/recall/internal/metrics"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Model wraps a langchaingo chat model for text generation.
type Model struct {
	llm       llms.Model
	modelName string
	collector *metrics.Collector // nil disables usage tracking
}

// NewModel creates a chat model based on configuration. Every completion
// records its latency and token usage on the collector when one is given.
func NewModel(cfg config.Config, collector *metrics.Collector) (*Model, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}

	model, err := openai.New(
		openai.WithToken(cfg.OpenAIAPIKey),
		openai.WithModel(cfg.ChatModel),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}

	return &Model{
		llm:       model,
		modelName: cfg.ChatModel,
		collector: collector,
	}, nil
}

// GenerateWithSystem generates text with a system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.generate(ctx, systemPrompt, userPrompt)
}

// CompleteJSON generates a completion constrained to a JSON object
// response. Used for metadata extraction, speaker labeling and relevance
// scoring, which all consume structured output.
func (m *Model) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.generate(ctx, systemPrompt, userPrompt, llms.WithJSONMode(), llms.WithTemperature(0.3))
}

func (m *Model) generate(ctx context.Context, systemPrompt, userPrompt string, opts ...llms.CallOption) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	choice := response.Choices[0]
	if m.collector != nil {
		m.collector.RecordLLMUsage(metrics.OpLLMComplete, time.Since(start),
			tokenCount(choice.GenerationInfo, "PromptTokens"),
			tokenCount(choice.GenerationInfo, "CompletionTokens"))
	}

	return choice.Content, nil
}

// tokenCount reads a usage figure from the provider's generation info.
func tokenCount(info map[string]any, key string) int64 {
	switch v := info[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Model returns the chat model name.
func (m *Model) Model() string {
	return m.modelName
}

// SynthesizeAnswer generates an answer from retrieved passages and a query.
func (m *Model) SynthesizeAnswer(ctx context.Context, query string, searchContext string) (string, error) {
	systemPrompt := `You are a helpful personal knowledge assistant. Answer the user's question based ONLY on the provided context.
If the context doesn't contain enough information to answer the question, say so.
Be concise and cite specific information from the context where relevant.`

	userPrompt := fmt.Sprintf(`Context:
%s

Question: %s

Answer:`, searchContext, query)

	return m.GenerateWithSystem(ctx, systemPrompt, userPrompt)
}
