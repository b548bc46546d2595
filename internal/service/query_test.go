package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldnotes-ai/recall/internal/models"
	"github.com/fieldnotes-ai/recall/internal/search"
	"github.com/fieldnotes-ai/recall/internal/temporal"
)

type fakeEmbedder struct {
	lastText string
	err      error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.lastText = text
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type fakeRetriever struct {
	lastOpts search.Options
	results  []models.SearchResult
	err      error
}

func (f *fakeRetriever) Search(ctx context.Context, opts search.Options) ([]models.SearchResult, error) {
	f.lastOpts = opts
	return f.results, f.err
}

type fakeReranker struct {
	calls int
}

func (f *fakeReranker) Rerank(ctx context.Context, query string, results []models.SearchResult, topN int) []models.SearchResult {
	f.calls++
	if len(results) > topN {
		return results[:topN]
	}
	return results
}

type fakeAnswerer struct {
	lastContext string
	answer      string
	err         error
}

func (f *fakeAnswerer) SynthesizeAnswer(ctx context.Context, query, searchContext string) (string, error) {
	f.lastContext = searchContext
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func fixedParser() *temporal.Parser {
	return temporal.NewWithClock(func() time.Time {
		return time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)
	})
}

func passages(texts ...string) []models.SearchResult {
	out := make([]models.SearchResult, len(texts))
	for i, txt := range texts {
		out[i] = models.SearchResult{
			ID:      uint64(i + 1),
			Score:   1 - float64(i)*0.1,
			Payload: models.Payload{Text: txt, SourceName: "standup.mp3"},
		}
	}
	return out
}

func TestQuery_TemporalPhraseStripped(t *testing.T) {
	embedder := &fakeEmbedder{}
	retriever := &fakeRetriever{results: passages("budget discussion")}
	svc := NewQueryService(embedder, retriever, nil, nil, fixedParser(), nil, 10, 7, 0)

	result, err := svc.Query(context.Background(), QueryOptions{
		UserID: "u1",
		Query:  "What did we discuss about budget last month?",
	})
	require.NoError(t, err)

	assert.NotNil(t, result.Temporal)
	assert.Equal(t, "last month", result.Temporal.RelativeText)
	assert.NotContains(t, result.CleanedQuery, "last month")
	assert.Equal(t, result.CleanedQuery, embedder.lastText, "embedding uses the cleaned query")
	require.NotNil(t, retriever.lastOpts.Temporal)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), *retriever.lastOpts.Temporal.Start)
}

func TestQuery_NoTemporalPhrase(t *testing.T) {
	retriever := &fakeRetriever{results: passages("a")}
	svc := NewQueryService(&fakeEmbedder{}, retriever, nil, nil, fixedParser(), nil, 10, 7, 0)

	result, err := svc.Query(context.Background(), QueryOptions{UserID: "u1", Query: "budget review"})
	require.NoError(t, err)

	assert.Nil(t, result.Temporal)
	assert.Equal(t, "budget review", result.CleanedQuery)
	assert.Nil(t, retriever.lastOpts.Temporal)
}

func TestQuery_RerankOnlyWhenRequested(t *testing.T) {
	reranker := &fakeReranker{}
	retriever := &fakeRetriever{results: passages("a", "b", "c")}
	svc := NewQueryService(&fakeEmbedder{}, retriever, reranker, nil, fixedParser(), nil, 10, 2, 0)

	_, err := svc.Query(context.Background(), QueryOptions{UserID: "u1", Query: "planning"})
	require.NoError(t, err)
	assert.Equal(t, 0, reranker.calls)

	result, err := svc.Query(context.Background(), QueryOptions{UserID: "u1", Query: "planning", Rerank: true})
	require.NoError(t, err)
	assert.Equal(t, 1, reranker.calls)
	assert.Len(t, result.Results, 2)
}

func TestQuery_AnswerSynthesis(t *testing.T) {
	answerer := &fakeAnswerer{answer: "The budget was frozen."}
	retriever := &fakeRetriever{results: passages("The budget is frozen until further notice.")}
	svc := NewQueryService(&fakeEmbedder{}, retriever, nil, answerer, fixedParser(), nil, 10, 7, 0)

	result, err := svc.Query(context.Background(), QueryOptions{UserID: "u1", Query: "budget status", Answer: true})
	require.NoError(t, err)

	assert.Equal(t, "The budget was frozen.", result.Answer)
	assert.Contains(t, answerer.lastContext, "The budget is frozen")
	assert.Contains(t, answerer.lastContext, "standup.mp3")
}

func TestQuery_AnswerFailureDegrades(t *testing.T) {
	answerer := &fakeAnswerer{err: errors.New("model unavailable")}
	retriever := &fakeRetriever{results: passages("some passage")}
	svc := NewQueryService(&fakeEmbedder{}, retriever, nil, answerer, fixedParser(), nil, 10, 7, 0)

	result, err := svc.Query(context.Background(), QueryOptions{UserID: "u1", Query: "anything", Answer: true})
	require.NoError(t, err)
	assert.Empty(t, result.Answer)
	assert.Len(t, result.Results, 1)
}

func TestQuery_EmbedFailure(t *testing.T) {
	svc := NewQueryService(&fakeEmbedder{err: errors.New("down")}, &fakeRetriever{}, nil, nil, fixedParser(), nil, 10, 7, 0)

	_, err := svc.Query(context.Background(), QueryOptions{UserID: "u1", Query: "x"})
	require.Error(t, err)
}

func TestQuery_RetrieverFailure(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("both branches failed")}
	svc := NewQueryService(&fakeEmbedder{}, retriever, nil, nil, fixedParser(), nil, 10, 7, 0)

	_, err := svc.Query(context.Background(), QueryOptions{UserID: "u1", Query: "x"})
	require.Error(t, err)
}
