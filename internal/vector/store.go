package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Daffaariff/nawatech-chatbot/internal/embedding"
	"github.com/Daffaariff/nawatech-chatbot/pkg/logger"
	"github.com/Daffaariff/nawatech-chatbot/pkg/utils"
)

// State tracks the one-shot lifecycle of the store.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

const mmrLambda = 0.5

// EmbeddingCache caches query embeddings between requests.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// Store is the in-memory vector index over the FAQ documents. It is built
// exactly once per process; after Initialize succeeds the contents never
// change, so searches read without locking.
type Store struct {
	provider  embedding.Provider
	state     atomic.Int32
	documents []string
	vectors   [][]float32
	dimension int

	cache    EmbeddingCache
	cacheTTL time.Duration
}

func NewStore(provider embedding.Provider) *Store {
	return &Store{provider: provider}
}

// WithEmbeddingCache enables caching of query embeddings.
func (s *Store) WithEmbeddingCache(cache EmbeddingCache, ttl time.Duration) *Store {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// Initialize embeds every document and loads the index. A probe embedding is
// issued first; if the embedding path is broken the store ends up failed and
// empty, which callers must treat as fatal for serving.
func (s *Store) Initialize(ctx context.Context, documents []string) error {
	if !s.state.CompareAndSwap(int32(StateUninitialized), int32(StateInitializing)) {
		return fmt.Errorf("vector store already initialized")
	}

	probe, err := s.provider.EmbedQuery(ctx, "Test embedding")
	if err != nil {
		s.state.Store(int32(StateFailed))
		logger.Error("Error testing embedding connection", zap.Error(err))
		return fmt.Errorf("embedding probe failed: %w", err)
	}

	s.dimension = len(probe)
	logger.Info("Successfully tested embedding connection",
		zap.Int("vector_dimensions", s.dimension),
	)

	logger.Info("Adding documents to vector store", zap.Int("count", len(documents)))

	vectors, err := s.provider.EmbedDocuments(ctx, documents)
	if err != nil {
		s.state.Store(int32(StateFailed))
		logger.Error("Error embedding documents", zap.Error(err))
		return fmt.Errorf("failed to embed documents: %w", err)
	}

	if len(vectors) != len(documents) {
		s.state.Store(int32(StateFailed))
		return fmt.Errorf("embedding count mismatch: got %d, expected %d", len(vectors), len(documents))
	}

	s.documents = documents
	s.vectors = vectors
	s.state.Store(int32(StateReady))

	logger.Info("Vector store initialized", zap.Int("documents", len(documents)))

	return nil
}

func (s *Store) State() State {
	return State(s.state.Load())
}

func (s *Store) Ready() bool {
	return s.State() == StateReady
}

func (s *Store) Len() int {
	if !s.Ready() {
		return 0
	}
	return len(s.documents)
}

func (s *Store) Dimension() int {
	return s.dimension
}

// SimilaritySearch returns up to k documents for the query, most relevant
// first. Selection is MMR-style: a fetchK candidate pool ranked by cosine
// similarity is reduced to k items balancing query relevance against
// redundancy with already-picked documents. An uninitialized store answers
// with an empty result rather than an error.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k, fetchK int) ([]string, error) {
	if !s.Ready() || k <= 0 {
		return nil, nil
	}
	if fetchK < k {
		fetchK = k
	}

	queryVec, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	type candidate struct {
		index int
		score float64
	}

	candidates := make([]candidate, len(s.vectors))
	for i := range s.vectors {
		candidates[i] = candidate{index: i, score: cosineSimilarity(queryVec, s.vectors[i])}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if fetchK < len(candidates) {
		candidates = candidates[:fetchK]
	}

	selected := make([]int, 0, k)
	remaining := make([]candidate, len(candidates))
	copy(remaining, candidates)

	for len(selected) < k && len(remaining) > 0 {
		bestPos := -1
		bestScore := math.Inf(-1)

		for pos, cand := range remaining {
			redundancy := 0.0
			for _, sel := range selected {
				if sim := cosineSimilarity(s.vectors[cand.index], s.vectors[sel]); sim > redundancy {
					redundancy = sim
				}
			}

			score := mmrLambda*cand.score - (1-mmrLambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}

		selected = append(selected, remaining[bestPos].index)
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	results := make([]string, 0, len(selected))
	for _, idx := range selected {
		results = append(results, s.documents[idx])
	}

	logger.Debug("Similarity search completed",
		zap.Int("k", k),
		zap.Int("fetch_k", fetchK),
		zap.Int("results", len(results)),
	)

	return results, nil
}

func (s *Store) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.cache == nil {
		return s.provider.EmbedQuery(ctx, query)
	}

	key := utils.HashString(query)
	if cached, ok, err := s.cache.GetEmbedding(ctx, key); err == nil && ok {
		return cached, nil
	}

	vec, err := s.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetEmbedding(ctx, key, vec, s.cacheTTL); err != nil {
		logger.Warn("Failed to cache query embedding", zap.Error(err))
	}

	return vec, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
