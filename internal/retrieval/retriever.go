package retrieval

import (
	"context"

	"github.com/Daffaariff/nawatech-chatbot/internal/vector"
)

// Retriever fixes the top-k count and fetch multiplier from configuration
// and delegates entirely to the vector store.
type Retriever struct {
	store           *vector.Store
	topK            int
	fetchMultiplier int
}

func NewRetriever(store *vector.Store, topK, fetchMultiplier int) *Retriever {
	if topK <= 0 {
		topK = 6
	}
	if fetchMultiplier <= 0 {
		fetchMultiplier = 10
	}

	return &Retriever{
		store:           store,
		topK:            topK,
		fetchMultiplier: fetchMultiplier,
	}
}

// Retrieve returns the most relevant documents for the query, at most topK.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]string, error) {
	return r.store.SimilaritySearch(ctx, query, r.topK, r.topK*r.fetchMultiplier)
}
