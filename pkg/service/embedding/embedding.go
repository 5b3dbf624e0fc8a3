// Package embedding turns memory content into the vectors the similarity
// index operates on.
package embedding

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/shifanka/recall/pkg/domain/interfaces"
)

// LLMEmbedder generates embeddings through a gollem LLM client.
type LLMEmbedder struct {
	client    gollem.LLMClient
	dimension int
}

var _ interfaces.Embedder = &LLMEmbedder{}

// NewLLMEmbedder wraps a gollem client as an Embedder with the given
// embedding dimension.
func NewLLMEmbedder(client gollem.LLMClient, dimension int) *LLMEmbedder {
	return &LLMEmbedder{
		client:    client,
		dimension: dimension,
	}
}

func (e *LLMEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.client.GenerateEmbedding(ctx, e.dimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding")
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.New("embedding generation returned empty result")
	}

	embedding64 := embeddings[0]
	embedding32 := make([]float32, len(embedding64))
	for i, v := range embedding64 {
		embedding32[i] = float32(v)
	}
	return embedding32, nil
}

func (e *LLMEmbedder) Dimension() int {
	return e.dimension
}
