package chromem_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/shifanka/recall/pkg/domain/model"
	"github.com/shifanka/recall/pkg/domain/types"
	"github.com/shifanka/recall/pkg/service/embedding"
	"github.com/shifanka/recall/pkg/vector/chromem"
)

const testDimension = 64

func newTestIndex(t *testing.T) *chromem.Index {
	t.Helper()
	return gt.R1(chromem.New("", testDimension)).NoError(t)
}

func newRecord(t *testing.T, e *embedding.StubEmbedder, userID, memType, content string) *model.VectorRecord {
	t.Helper()
	mem := &model.Memory{
		ID:      model.NewMemoryID(),
		UserID:  userID,
		Type:    types.MemoryType(memType),
		Content: content,
		Metadata: model.Metadata{
			Timestamp: time.Now(),
		},
	}
	vec := gt.R1(e.Embed(context.Background(), content)).NoError(t)
	return model.NewVectorRecord(mem, vec)
}

func TestIndex_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t)
	embedder := embedding.NewStubEmbedder(testDimension)

	rec := newRecord(t, embedder, "u1", "code", "parse the config file with toml")
	gt.NoError(t, index.Upsert(ctx, rec))
	gt.NoError(t, index.Upsert(ctx, newRecord(t, embedder, "u1", "general", "lunch is at noon")))

	vec := gt.R1(embedder.Embed(ctx, "parse the config file with toml")).NoError(t)
	matches := gt.R1(index.Query(ctx, vec, 10, model.VectorFilter{UserID: "u1"}, 0.7)).NoError(t)
	gt.Array(t, matches).Length(1)
	gt.Value(t, matches[0].ID).Equal(rec.ID)
	gt.True(t, matches[0].Score >= 0.99)
	gt.Value(t, matches[0].Meta.UserID).Equal("u1")
}

func TestIndex_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t)
	embedder := embedding.NewStubEmbedder(testDimension)

	rec := newRecord(t, embedder, "u1", "general", "initial content")
	gt.NoError(t, index.Upsert(ctx, rec))

	// Re-upsert under the same id with different content
	updated := newRecord(t, embedder, "u1", "general", "replaced content")
	updated.ID = rec.ID
	gt.NoError(t, index.Upsert(ctx, updated))

	vec := gt.R1(embedder.Embed(ctx, "replaced content")).NoError(t)
	matches := gt.R1(index.Query(ctx, vec, 10, model.VectorFilter{UserID: "u1"}, 0.9)).NoError(t)
	gt.Array(t, matches).Length(1)
	gt.Value(t, matches[0].Meta.Content).Equal("replaced content")

	stats := gt.R1(index.Stats(ctx, "u1")).NoError(t)
	gt.Equal(t, stats.Total, 1)
}

func TestIndex_FilterByUserAndType(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t)
	embedder := embedding.NewStubEmbedder(testDimension)

	gt.NoError(t, index.Upsert(ctx, newRecord(t, embedder, "u1", "code", "shared phrasing")))
	gt.NoError(t, index.Upsert(ctx, newRecord(t, embedder, "u2", "code", "shared phrasing")))
	gt.NoError(t, index.Upsert(ctx, newRecord(t, embedder, "u1", "general", "shared phrasing")))

	vec := gt.R1(embedder.Embed(ctx, "shared phrasing")).NoError(t)

	byUser := gt.R1(index.Query(ctx, vec, 10, model.VectorFilter{UserID: "u1"}, 0)).NoError(t)
	gt.Array(t, byUser).Length(2)
	for _, m := range byUser {
		gt.Value(t, m.Meta.UserID).Equal("u1")
	}

	byType := gt.R1(index.Query(ctx, vec, 10, model.VectorFilter{UserID: "u1", Type: types.MemoryTypeCode}, 0)).NoError(t)
	gt.Array(t, byType).Length(1)
	gt.Value(t, byType[0].Meta.Type).Equal("code")
}

func TestIndex_QueryEmptyCollection(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t)
	embedder := embedding.NewStubEmbedder(testDimension)

	vec := gt.R1(embedder.Embed(ctx, "anything")).NoError(t)
	matches := gt.R1(index.Query(ctx, vec, 10, model.VectorFilter{UserID: "u1"}, 0)).NoError(t)
	gt.Array(t, matches).Length(0)
}

func TestIndex_DeleteIsBestEffort(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t)
	embedder := embedding.NewStubEmbedder(testDimension)

	rec := newRecord(t, embedder, "u1", "general", "to be removed")
	gt.NoError(t, index.Upsert(ctx, rec))
	gt.NoError(t, index.Delete(ctx, rec.ID))

	// Deleting again, and deleting an id that never existed, must not fail
	gt.NoError(t, index.Delete(ctx, rec.ID))
	gt.NoError(t, index.Delete(ctx, model.NewMemoryID()))

	stats := gt.R1(index.Stats(ctx, "u1")).NoError(t)
	gt.Equal(t, stats.Total, 0)
}

func TestIndex_Stats(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t)
	embedder := embedding.NewStubEmbedder(testDimension)

	gt.NoError(t, index.Upsert(ctx, newRecord(t, embedder, "u1", "code", "a")))
	gt.NoError(t, index.Upsert(ctx, newRecord(t, embedder, "u1", "code", "b")))
	gt.NoError(t, index.Upsert(ctx, newRecord(t, embedder, "u1", "preference", "c")))
	gt.NoError(t, index.Upsert(ctx, newRecord(t, embedder, "u2", "general", "d")))

	stats := gt.R1(index.Stats(ctx, "u1")).NoError(t)
	gt.Equal(t, stats.Total, 3)
	gt.Equal(t, stats.ByType["code"], 2)
	gt.Equal(t, stats.ByType["preference"], 1)

	empty := gt.R1(index.Stats(ctx, "nobody")).NoError(t)
	gt.Equal(t, empty.Total, 0)
}
