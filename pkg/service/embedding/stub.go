package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/shifanka/recall/pkg/domain/interfaces"
)

// StubEmbedder produces deterministic pseudo-embeddings from a content
// hash. It needs no external service, so identical text always maps to
// the identical unit vector. Scores derived from it carry no semantic
// meaning; it exists for local runs and tests.
type StubEmbedder struct {
	dimension int
}

var _ interfaces.Embedder = &StubEmbedder{}

// NewStubEmbedder creates a stub embedder emitting vectors of the given
// dimension.
func NewStubEmbedder(dimension int) *StubEmbedder {
	return &StubEmbedder{dimension: dimension}
}

func (e *StubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, e.dimension)
	for i := range embedding {
		// LCG over the content hash
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return normalize(embedding), nil
}

func (e *StubEmbedder) Dimension() int {
	return e.dimension
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v / norm
	}
	return normalized
}
