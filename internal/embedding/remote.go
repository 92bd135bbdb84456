package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Daffaariff/nawatech-chatbot/internal/metrics"
	"github.com/Daffaariff/nawatech-chatbot/pkg/logger"
)

// ErrEmbeddingRequest marks a failed call to the embeddings endpoint.
var ErrEmbeddingRequest = errors.New("embedding request failed")

const defaultDimension = 384

// RemoteClient talks to an OpenAI-compatible embeddings endpoint directly
// over HTTP, batching document requests to keep payloads small.
type RemoteClient struct {
	baseURL   string
	apiKey    string
	model     string
	batchSize int
	dimension int
	client    *http.Client
}

type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format"`
	Dimensions     int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func NewRemoteClient(baseURL, apiKey, model string, batchSize int) (*RemoteClient, error) {
	if err := validateBaseURL(baseURL); err != nil {
		return nil, fmt.Errorf("invalid embedding base URL: %w", err)
	}
	if batchSize <= 0 {
		batchSize = 3
	}

	return &RemoteClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		model:     model,
		batchSize: batchSize,
		client:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// EmbedQuery embeds a single text. Failures surface as ErrEmbeddingRequest;
// there is no zero-vector substitution for queries.
func (c *RemoteClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrEmbeddingRequest)
	}

	c.observeDimension(len(vectors[0]))
	return vectors[0], nil
}

// EmbedDocuments embeds texts in fixed-size batches. A failed batch is logged
// and replaced with zero vectors so output length and positions always match
// the input.
func (c *RemoteClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		logger.Info("Embedding batch of documents", zap.Int("size", len(batch)))

		vectors, err := c.request(ctx, batch)
		if err != nil || len(vectors) != len(batch) {
			if err == nil {
				err = fmt.Errorf("%w: got %d vectors for %d inputs", ErrEmbeddingRequest, len(vectors), len(batch))
			}
			logger.Error("Error embedding batch", zap.Error(err))
			metrics.EmbeddingBatchFailures.Inc()

			for range batch {
				all = append(all, make([]float32, c.fallbackDimension()))
			}
			continue
		}

		c.observeDimension(len(vectors[0]))
		all = append(all, vectors...)
	}

	return all, nil
}

func (c *RemoteClient) Dimension() int {
	return c.dimension
}

func (c *RemoteClient) request(ctx context.Context, texts []string) ([][]float32, error) {
	payload := embeddingRequest{
		Input:          texts,
		Model:          c.model,
		EncodingFormat: "float",
	}
	if c.dimension > 0 {
		payload.Dimensions = c.dimension
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: %d - %s", ErrEmbeddingRequest, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingRequest, err)
	}

	vectors := make([][]float32, len(parsed.Data))
	for i, item := range parsed.Data {
		vectors[i] = item.Embedding
	}

	return vectors, nil
}

func (c *RemoteClient) observeDimension(dim int) {
	if c.dimension == 0 && dim > 0 {
		c.dimension = dim
	}
}

func (c *RemoteClient) fallbackDimension() int {
	if c.dimension > 0 {
		return c.dimension
	}
	return defaultDimension
}
