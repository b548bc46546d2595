package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fieldnotes-ai/recall/internal/metrics"
	"github.com/fieldnotes-ai/recall/internal/models"
	"github.com/fieldnotes-ai/recall/internal/search"
	"github.com/fieldnotes-ai/recall/internal/temporal"
)

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever runs hybrid search.
type Retriever interface {
	Search(ctx context.Context, opts search.Options) ([]models.SearchResult, error)
}

// Reranker re-scores a candidate set.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []models.SearchResult, topN int) []models.SearchResult
}

// Answerer synthesizes a prose answer from retrieved passages.
type Answerer interface {
	SynthesizeAnswer(ctx context.Context, query, searchContext string) (string, error)
}

// QueryService runs the query pipeline: temporal parsing, query
// embedding, hybrid retrieval, optional reranking and answer synthesis.
type QueryService struct {
	embedder  QueryEmbedder
	retriever Retriever
	reranker  Reranker // nil disables reranking
	answerer  Answerer // nil disables answer synthesis
	parser    *temporal.Parser
	collector *metrics.Collector

	topK        int
	rerankTopN  int
	callTimeout time.Duration
}

// NewQueryService creates a query service. A callTimeout of zero leaves
// external calls unbounded.
func NewQueryService(
	embedder QueryEmbedder,
	retriever Retriever,
	reranker Reranker,
	answerer Answerer,
	parser *temporal.Parser,
	collector *metrics.Collector,
	topK, rerankTopN int,
	callTimeout time.Duration,
) *QueryService {
	return &QueryService{
		embedder:    embedder,
		retriever:   retriever,
		reranker:    reranker,
		answerer:    answerer,
		parser:      parser,
		collector:   collector,
		topK:        topK,
		rerankTopN:  rerankTopN,
		callTimeout: callTimeout,
	}
}

// QueryOptions configures one query.
type QueryOptions struct {
	UserID string
	Query  string
	TopK   int // 0 uses the configured default
	Rerank bool
	Answer bool
}

// QueryResult is the outcome of one query.
type QueryResult struct {
	Results      []models.SearchResult
	Answer       string
	CleanedQuery string
	Temporal     *models.TemporalRange
}

// Query runs the pipeline. Retrieval failures propagate; reranking and
// answer synthesis degrade gracefully.
func (s *QueryService) Query(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = s.topK
	}

	cleaned, timeRange := s.parser.Parse(opts.Query)
	if timeRange != nil {
		slog.Debug("temporal phrase detected",
			"phrase", timeRange.RelativeText, "start", timeRange.Start, "end", timeRange.End)
	}
	if strings.TrimSpace(cleaned) == "" {
		// A purely temporal query still searches; the vector branch needs
		// some text to embed.
		cleaned = opts.Query
	}

	start := time.Now()
	ectx, cancel := s.withTimeout(ctx)
	embedding, err := s.embedder.Embed(ectx, cleaned)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	s.record(metrics.OpEmbedding, start)

	start = time.Now()
	sctx, cancel := s.withTimeout(ctx)
	results, err := s.retriever.Search(sctx, search.Options{
		UserID:         opts.UserID,
		Query:          cleaned,
		QueryEmbedding: embedding,
		TopK:           topK,
		Temporal:       timeRange,
	})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	s.record(metrics.OpVectorSearch, start)

	if opts.Rerank && s.reranker != nil && len(results) > 0 {
		start = time.Now()
		rctx, cancel := s.withTimeout(ctx)
		results = s.reranker.Rerank(rctx, cleaned, results, s.rerankTopN)
		cancel()
		s.record(metrics.OpRerank, start)
	}

	out := &QueryResult{
		Results:      results,
		CleanedQuery: cleaned,
		Temporal:     timeRange,
	}

	if opts.Answer && s.answerer != nil && len(results) > 0 {
		actx, cancel := s.withTimeout(ctx)
		answer, err := s.answerer.SynthesizeAnswer(actx, opts.Query, buildContext(results))
		cancel()
		if err != nil {
			slog.Warn("answer synthesis failed, returning passages only", "error", err)
		} else {
			out.Answer = answer
		}
	}

	return out, nil
}

// buildContext formats retrieved passages for answer synthesis, labeling
// each with its source and speaker when known.
func buildContext(results []models.SearchResult) string {
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] ", i+1)
		if r.Payload.SourceName != "" {
			fmt.Fprintf(&sb, "(%s", r.Payload.SourceName)
			if r.Payload.Speaker != "" {
				fmt.Fprintf(&sb, ", %s", r.Payload.Speaker)
			}
			sb.WriteString(") ")
		}
		sb.WriteString(r.Payload.Text)
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}

func (s *QueryService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.callTimeout)
}

func (s *QueryService) record(op string, start time.Time) {
	if s.collector != nil {
		s.collector.RecordTiming(op, time.Since(start))
	}
}
