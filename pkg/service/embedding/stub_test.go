package embedding_test

import (
	"context"
	"math"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/shifanka/recall/pkg/domain/model"
	"github.com/shifanka/recall/pkg/service/embedding"
)

func TestStubEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	e := embedding.NewStubEmbedder(model.EmbeddingDimension)

	v1 := gt.R1(e.Embed(ctx, "the user prefers tabs over spaces")).NoError(t)
	v2 := gt.R1(e.Embed(ctx, "the user prefers tabs over spaces")).NoError(t)
	gt.Equal(t, v1, v2)

	v3 := gt.R1(e.Embed(ctx, "completely different content")).NoError(t)
	gt.False(t, equalVectors(v1, v3))
}

func TestStubEmbedder_Dimension(t *testing.T) {
	ctx := context.Background()
	e := embedding.NewStubEmbedder(model.EmbeddingDimension)
	gt.Equal(t, e.Dimension(), model.EmbeddingDimension)

	v := gt.R1(e.Embed(ctx, "hello")).NoError(t)
	gt.Array(t, v).Length(model.EmbeddingDimension)
}

func TestStubEmbedder_UnitNorm(t *testing.T) {
	ctx := context.Background()
	e := embedding.NewStubEmbedder(64)

	v := gt.R1(e.Embed(ctx, "normalize me")).NoError(t)

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	gt.True(t, math.Abs(norm-1.0) < 1e-5)
}

func equalVectors(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
