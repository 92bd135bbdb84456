package qa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Daffaariff/nawatech-chatbot/internal/evaluation"
	"github.com/Daffaariff/nawatech-chatbot/internal/llm"
	"github.com/Daffaariff/nawatech-chatbot/internal/metrics"
	"github.com/Daffaariff/nawatech-chatbot/internal/storage/models"
	"github.com/Daffaariff/nawatech-chatbot/pkg/logger"
	"github.com/Daffaariff/nawatech-chatbot/pkg/utils"
)

const (
	invalidQueryAnswer = "Invalid query input."
	missingAnswer      = "No answer generated"
)

// Result is what every query produces, success or not. Failures are carried
// as data; the engine never returns a Go error to its caller.
type Result struct {
	ID         string                 `json:"id,omitempty"`
	Answer     string                 `json:"answer"`
	Evaluation *evaluation.Evaluation `json:"evaluation,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Usage      *llm.Usage             `json:"usage,omitempty"`
	LatencyMS  int                    `json:"latency_ms,omitempty"`
	Cached     bool                   `json:"cached,omitempty"`
}

type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]string, error)
}

type Generator interface {
	GenerateAnswer(ctx context.Context, query, contextText string) (*llm.CompletionResponse, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, query, response, contextText string) evaluation.Evaluation
}

// ResultCache is an optional answer cache keyed by query hash.
type ResultCache interface {
	GetQuery(ctx context.Context, queryHash string, out interface{}) (bool, error)
	SetQuery(ctx context.Context, queryHash string, value interface{}, ttl time.Duration) error
}

// Recorder persists answered queries for the history endpoint.
type Recorder interface {
	InsertQueryRecord(record *models.QueryRecord) error
}

// Engine runs the per-query pipeline: validate, retrieve, format context,
// generate, extract the answer, evaluate, assemble.
type Engine struct {
	retriever Retriever
	generator Generator
	evaluator Evaluator

	cache    ResultCache
	cacheTTL time.Duration
	recorder Recorder
}

func NewEngine(retriever Retriever, generator Generator, evaluator Evaluator) *Engine {
	return &Engine{
		retriever: retriever,
		generator: generator,
		evaluator: evaluator,
	}
}

// WithCache enables the optional answer cache.
func (e *Engine) WithCache(cache ResultCache, ttl time.Duration) *Engine {
	e.cache = cache
	e.cacheTTL = ttl
	return e
}

// WithRecorder enables query-record persistence.
func (e *Engine) WithRecorder(recorder Recorder) *Engine {
	e.recorder = recorder
	return e
}

// GenerateResponse answers one query. Invalid input short-circuits before any
// network call; any later failure is logged and converted into an error
// result. Each query is independent of the next.
func (e *Engine) GenerateResponse(ctx context.Context, query string) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in generate response", zap.Any("panic", r))
			result = e.errorResult(fmt.Sprintf("%v", r))
		}
	}()

	if strings.TrimSpace(query) == "" {
		logger.Error("Invalid query input", zap.String("query", query))
		metrics.QueryTotal.WithLabelValues("invalid").Inc()
		return &Result{Answer: invalidQueryAnswer}
	}

	startTime := time.Now()
	queryID := uuid.New().String()

	logger.Info("Processing query",
		zap.String("query_id", queryID),
		zap.String("query", query),
	)

	if cached := e.cachedResult(ctx, query); cached != nil {
		metrics.CacheHits.WithLabelValues("query").Inc()
		cached.Cached = true
		return cached
	}
	if e.cache != nil {
		metrics.CacheMisses.WithLabelValues("query").Inc()
	}

	documents, err := e.retriever.Retrieve(ctx, query)
	if err != nil {
		logger.Error("Critical error in generate response", zap.Error(err))
		metrics.QueryTotal.WithLabelValues("error").Inc()
		return e.errorResult(err.Error())
	}

	logger.Debug("Retrieved documents",
		zap.String("query_id", queryID),
		zap.Int("count", len(documents)),
	)
	metrics.RetrievalResults.Observe(float64(len(documents)))

	contextText := formatContext(documents)

	completion, err := e.generator.GenerateAnswer(ctx, query, contextText)
	if err != nil {
		logger.Error("Critical error in generate response", zap.Error(err))
		metrics.QueryTotal.WithLabelValues("error").Inc()
		return e.errorResult(err.Error())
	}

	answer := completion.Content
	if answer == "" {
		answer = missingAnswer
	}

	eval := e.evaluator.Evaluate(ctx, query, answer, contextText)
	metrics.EvaluationOverall.Observe(eval.Scores["overall"])

	latency := int(time.Since(startTime).Milliseconds())

	result = &Result{
		ID:         queryID,
		Answer:     answer,
		Evaluation: &eval,
		Usage:      &completion.Usage,
		LatencyMS:  latency,
	}

	e.record(result, query)
	e.cacheResult(ctx, query, result)

	metrics.QueryTotal.WithLabelValues("success").Inc()
	metrics.QueryDuration.Observe(time.Since(startTime).Seconds())

	logger.Info("Query processed successfully",
		zap.String("query_id", queryID),
		zap.Float64("overall_score", eval.Scores["overall"]),
		zap.Int("latency_ms", latency),
	)

	return result
}

func (e *Engine) errorResult(message string) *Result {
	eval := evaluation.NewErrorEvaluation(message)
	return &Result{
		Answer:     fmt.Sprintf("I apologize, but I encountered an error: %s", message),
		Error:      message,
		Evaluation: &eval,
	}
}

// formatContext concatenates retrieved documents, numbered, in retrieval order.
func formatContext(documents []string) string {
	if len(documents) == 0 {
		return ""
	}

	formatted := make([]string, 0, len(documents))
	for i, doc := range documents {
		formatted = append(formatted, fmt.Sprintf("Document %d:\n%s\n", i+1, doc))
	}

	return strings.Join(formatted, "\n")
}

func (e *Engine) cachedResult(ctx context.Context, query string) *Result {
	if e.cache == nil {
		return nil
	}

	var cached Result
	found, err := e.cache.GetQuery(ctx, utils.HashString(query), &cached)
	if err != nil {
		logger.Warn("Failed to read query cache", zap.Error(err))
		return nil
	}
	if !found {
		return nil
	}

	return &cached
}

func (e *Engine) cacheResult(ctx context.Context, query string, result *Result) {
	if e.cache == nil {
		return
	}

	if err := e.cache.SetQuery(ctx, utils.HashString(query), result, e.cacheTTL); err != nil {
		logger.Warn("Failed to cache query result", zap.Error(err))
	}
}

func (e *Engine) record(result *Result, query string) {
	if e.recorder == nil {
		return
	}

	record := &models.QueryRecord{
		ID:               result.ID,
		QueryText:        query,
		Answer:           result.Answer,
		EvaluationMethod: result.Evaluation.Method,
		OverallScore:     result.Evaluation.Scores["overall"],
		LatencyMS:        result.LatencyMS,
		CreatedAt:        time.Now(),
	}

	if err := e.recorder.InsertQueryRecord(record); err != nil {
		logger.Warn("Failed to persist query record", zap.Error(err))
	}
}
