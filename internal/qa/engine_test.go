package qa

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daffaariff/nawatech-chatbot/internal/evaluation"
	"github.com/Daffaariff/nawatech-chatbot/internal/llm"
	"github.com/Daffaariff/nawatech-chatbot/internal/storage/models"
)

type stubRetriever struct {
	documents []string
	err       error
	calls     int
	lastQuery string
}

func (r *stubRetriever) Retrieve(ctx context.Context, query string) ([]string, error) {
	r.calls++
	r.lastQuery = query
	return r.documents, r.err
}

type stubGenerator struct {
	content     string
	err         error
	panicValue  interface{}
	calls       int
	lastContext string
}

func (g *stubGenerator) GenerateAnswer(ctx context.Context, query, contextText string) (*llm.CompletionResponse, error) {
	g.calls++
	g.lastContext = contextText
	if g.panicValue != nil {
		panic(g.panicValue)
	}
	if g.err != nil {
		return nil, g.err
	}
	return &llm.CompletionResponse{
		Content: g.content,
		Usage:   llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

type stubEvaluator struct {
	calls int
}

func (e *stubEvaluator) Evaluate(ctx context.Context, query, response, contextText string) evaluation.Evaluation {
	e.calls++
	return evaluation.Evaluation{
		Scores: map[string]float64{"overall": 4.2},
		Method: evaluation.MethodHeuristic,
	}
}

func newTestEngine(retriever *stubRetriever, generator *stubGenerator) (*Engine, *stubEvaluator) {
	evaluator := &stubEvaluator{}
	return NewEngine(retriever, generator, evaluator), evaluator
}

func TestGenerateResponse(t *testing.T) {
	retriever := &stubRetriever{documents: []string{"Q: What is Nawatech?\nA: A software company."}}
	generator := &stubGenerator{content: "Nawatech is a software company."}
	engine, evaluator := newTestEngine(retriever, generator)

	result := engine.GenerateResponse(context.Background(), "What is Nawatech?")

	require.NotNil(t, result)
	assert.Equal(t, "Nawatech is a software company.", result.Answer)
	assert.Empty(t, result.Error)
	assert.NotEmpty(t, result.ID)
	require.NotNil(t, result.Evaluation)
	assert.Equal(t, 4.2, result.Evaluation.Scores["overall"])
	require.NotNil(t, result.Usage)
	assert.Equal(t, 15, result.Usage.TotalTokens)
	assert.Equal(t, 1, retriever.calls)
	assert.Equal(t, 1, generator.calls)
	assert.Equal(t, 1, evaluator.calls)
	assert.Contains(t, generator.lastContext, "Document 1:")
}

func TestGenerateResponseEmptyQuery(t *testing.T) {
	retriever := &stubRetriever{}
	generator := &stubGenerator{content: "unused"}
	engine, evaluator := newTestEngine(retriever, generator)

	for _, query := range []string{"", "   ", "\n\t"} {
		result := engine.GenerateResponse(context.Background(), query)

		require.NotNil(t, result)
		assert.Equal(t, "Invalid query input.", result.Answer)
		assert.Empty(t, result.Error)
	}

	assert.Zero(t, retriever.calls, "validation must short-circuit before retrieval")
	assert.Zero(t, generator.calls)
	assert.Zero(t, evaluator.calls)
}

func TestGenerateResponseRetrieverError(t *testing.T) {
	retriever := &stubRetriever{err: errors.New("store unavailable")}
	generator := &stubGenerator{content: "unused"}
	engine, _ := newTestEngine(retriever, generator)

	result := engine.GenerateResponse(context.Background(), "anything")

	require.NotNil(t, result)
	assert.Equal(t, "store unavailable", result.Error)
	assert.Equal(t, "I apologize, but I encountered an error: store unavailable", result.Answer)
	require.NotNil(t, result.Evaluation)
	assert.Equal(t, evaluation.MethodError, result.Evaluation.Method)
	assert.Equal(t, 0.0, result.Evaluation.Scores["overall"])
	assert.Zero(t, generator.calls)
}

func TestGenerateResponseGeneratorError(t *testing.T) {
	retriever := &stubRetriever{documents: []string{"doc"}}
	generator := &stubGenerator{err: errors.New("model timeout")}
	engine, evaluator := newTestEngine(retriever, generator)

	result := engine.GenerateResponse(context.Background(), "anything")

	require.NotNil(t, result)
	assert.Equal(t, "model timeout", result.Error)
	assert.Contains(t, result.Answer, "I apologize, but I encountered an error:")
	assert.Zero(t, evaluator.calls)
}

func TestGenerateResponseEmptyRetrievalContinues(t *testing.T) {
	retriever := &stubRetriever{documents: nil}
	generator := &stubGenerator{content: "I don't have that information."}
	engine, _ := newTestEngine(retriever, generator)

	result := engine.GenerateResponse(context.Background(), "unrelated question")

	require.NotNil(t, result)
	assert.Equal(t, "I don't have that information.", result.Answer)
	assert.Empty(t, result.Error)
	assert.Equal(t, "", generator.lastContext, "no documents means an empty context")
}

func TestGenerateResponseEmptyAnswer(t *testing.T) {
	retriever := &stubRetriever{documents: []string{"doc"}}
	generator := &stubGenerator{content: ""}
	engine, _ := newTestEngine(retriever, generator)

	result := engine.GenerateResponse(context.Background(), "anything")

	require.NotNil(t, result)
	assert.Equal(t, "No answer generated", result.Answer)
	assert.Empty(t, result.Error)
}

func TestGenerateResponseRecoversFromPanic(t *testing.T) {
	retriever := &stubRetriever{documents: []string{"doc"}}
	generator := &stubGenerator{panicValue: "unexpected state"}
	engine, _ := newTestEngine(retriever, generator)

	result := engine.GenerateResponse(context.Background(), "anything")

	require.NotNil(t, result)
	assert.Equal(t, "unexpected state", result.Error)
	assert.Contains(t, result.Answer, "I apologize")
}

type memoryCache struct {
	entries map[string]*Result
	hits    int
	sets    int
}

func (c *memoryCache) GetQuery(ctx context.Context, queryHash string, out interface{}) (bool, error) {
	cached, ok := c.entries[queryHash]
	if !ok {
		return false, nil
	}
	c.hits++
	*out.(*Result) = *cached
	return true, nil
}

func (c *memoryCache) SetQuery(ctx context.Context, queryHash string, value interface{}, ttl time.Duration) error {
	c.entries[queryHash] = value.(*Result)
	c.sets++
	return nil
}

func TestGenerateResponseCaching(t *testing.T) {
	retriever := &stubRetriever{documents: []string{"doc"}}
	generator := &stubGenerator{content: "cached answer"}
	engine, _ := newTestEngine(retriever, generator)

	cache := &memoryCache{entries: map[string]*Result{}}
	engine.WithCache(cache, time.Minute)

	first := engine.GenerateResponse(context.Background(), "repeat question")
	second := engine.GenerateResponse(context.Background(), "repeat question")

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, 1, generator.calls, "cache hit must skip generation")
}

type memoryRecorder struct {
	records []*models.QueryRecord
}

func (r *memoryRecorder) InsertQueryRecord(record *models.QueryRecord) error {
	r.records = append(r.records, record)
	return nil
}

func TestGenerateResponseRecordsQuery(t *testing.T) {
	retriever := &stubRetriever{documents: []string{"doc"}}
	generator := &stubGenerator{content: "recorded answer"}
	engine, _ := newTestEngine(retriever, generator)

	recorder := &memoryRecorder{}
	engine.WithRecorder(recorder)

	result := engine.GenerateResponse(context.Background(), "record me")

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, result.ID, record.ID)
	assert.Equal(t, "record me", record.QueryText)
	assert.Equal(t, "recorded answer", record.Answer)
	assert.Equal(t, 4.2, record.OverallScore)
	assert.Equal(t, evaluation.MethodHeuristic, record.EvaluationMethod)
}

func TestFormatContext(t *testing.T) {
	assert.Equal(t, "", formatContext(nil))

	out := formatContext([]string{"first doc", "second doc"})
	assert.Equal(t, "Document 1:\nfirst doc\n\nDocument 2:\nsecond doc\n", out)
}
