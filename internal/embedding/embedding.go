package embedding

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/Daffaariff/nawatech-chatbot/pkg/config"
	"github.com/Daffaariff/nawatech-chatbot/pkg/logger"
)

// Provider maps text to fixed-length embedding vectors. EmbedDocuments
// preserves input length and order even when part of the work fails;
// EmbedQuery returns an error instead, there is no batch to preserve.
type Provider interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// NewFromConfig selects the embedding provider. A configured base URL plus
// credential means the remote OpenAI-compatible endpoint; anything else falls
// back to the managed OpenAI provider. Remote misconfiguration is recoverable
// and downgrades to the managed provider.
func NewFromConfig(cfg config.EmbeddingConfig, openaiKey string) Provider {
	if cfg.BaseURL != "" && cfg.APIKey != "" {
		remote, err := NewRemoteClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.BatchSize)
		if err != nil {
			logger.Error("Error configuring local embeddings", zap.Error(err))
			logger.Info("Falling back to OpenAI embeddings")
			return NewOpenAIProvider(openaiKey, "")
		}

		logger.Info("Using custom local embedding model",
			zap.String("base_url", cfg.BaseURL),
			zap.String("model", cfg.Model),
		)
		return remote
	}

	logger.Info("Using standard OpenAI embeddings")
	return NewOpenAIProvider(openaiKey, "")
}

func validateBaseURL(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &url.Error{Op: "parse", URL: baseURL, Err: url.InvalidHostError(u.Host)}
	}
	return nil
}
