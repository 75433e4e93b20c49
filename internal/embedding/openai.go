package embedding

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/claimforge/claimforge/internal/cache"
	"github.com/claimforge/claimforge/internal/logger"
	"github.com/claimforge/claimforge/internal/model"
)

// OpenAIEmbedder generates embeddings via OpenAI's embeddings API,
// reading through an optional cache so re-uploaded text never re-pays
// the network call.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	cache      cache.Cache
	log        *logger.Logger
}

// NewOpenAIEmbedder creates an embedder for the configured model
func NewOpenAIEmbedder(cfg model.EmbeddingConfig, c cache.Cache, log *logger.Logger) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	embModel := cfg.Model
	if embModel == "" {
		embModel = string(openai.SmallEmbedding3)
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 1536
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      embModel,
		dimensions: dims,
		cache:      c,
		log:        log.With("component", "embedder"),
	}, nil
}

// Dimensions returns the vector length this embedder produces
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Embed returns one vector per input text, in input order. Cached texts
// are served locally; only the misses go out in a single API call.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([]model.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([]model.Vector, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if v, ok := e.cached(text); ok {
			out[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: missing,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(missing) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(missing), len(resp.Data))
	}

	for j, data := range resp.Data {
		vec := model.Vector(data.Embedding)
		if len(vec) != e.dimensions {
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", e.dimensions, len(vec))
		}
		out[missingIdx[j]] = vec
		e.store(missing[j], vec)
	}

	return out, nil
}

func (e *OpenAIEmbedder) cached(text string) (model.Vector, bool) {
	if e.cache == nil {
		return nil, false
	}

	data, found := e.cache.Get(cache.EmbeddingKey(e.model, text))
	if !found {
		return nil, false
	}

	var vec model.Vector
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (e *OpenAIEmbedder) store(text string, vec model.Vector) {
	if e.cache == nil {
		return
	}

	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := e.cache.Set(cache.EmbeddingKey(e.model, text), data, 0); err != nil {
		e.log.Warn("embedding cache write failed", "error", err)
	}
}
