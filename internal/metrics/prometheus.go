package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faq_chatbot_query_duration_seconds",
			Help:    "Query processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_chatbot_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"status"},
	)

	RetrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faq_chatbot_retrieval_results_count",
			Help:    "Number of documents retrieved per query",
			Buckets: []float64{0, 1, 2, 4, 6, 10},
		},
	)

	EvaluationOverall = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faq_chatbot_evaluation_overall_score",
			Help:    "Overall evaluation score per answer",
			Buckets: []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5},
		},
	)

	EmbeddingBatchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "faq_chatbot_embedding_batch_failures_total",
			Help: "Total embedding batches replaced by zero vectors",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_chatbot_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_chatbot_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	ChatSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "faq_chatbot_chat_sessions_active",
			Help: "Currently connected chat sessions",
		},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(RetrievalResults)
	prometheus.MustRegister(EvaluationOverall)
	prometheus.MustRegister(EmbeddingBatchFailures)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(ChatSessions)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
