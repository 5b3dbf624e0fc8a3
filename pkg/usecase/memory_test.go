package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/shifanka/recall/pkg/domain/interfaces"
	"github.com/shifanka/recall/pkg/domain/model"
	"github.com/shifanka/recall/pkg/domain/types"
	"github.com/shifanka/recall/pkg/repository/memory"
	"github.com/shifanka/recall/pkg/service/embedding"
	"github.com/shifanka/recall/pkg/usecase"
)

// stubIndex is an in-process similarity index backed by a map. Embeddings
// are unit vectors, so the dot product is the cosine similarity.
type stubIndex struct {
	mu         sync.Mutex
	entries    map[model.MemoryID]*model.VectorRecord
	queryCount int
	upsertErr  error
	deleteErr  error
}

var _ interfaces.VectorIndex = &stubIndex{}

func newStubIndex() *stubIndex {
	return &stubIndex{entries: map[model.MemoryID]*model.VectorRecord{}}
}

func (x *stubIndex) Upsert(_ context.Context, rec *model.VectorRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.upsertErr != nil {
		return x.upsertErr
	}
	x.entries[rec.ID] = rec
	return nil
}

func (x *stubIndex) Query(_ context.Context, vec []float32, topK int, filter model.VectorFilter, minScore float64) ([]*model.VectorMatch, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.queryCount++

	var matches []*model.VectorMatch
	for _, rec := range x.entries {
		if rec.Meta.UserID != filter.UserID {
			continue
		}
		if filter.Type != "" && rec.Meta.Type != filter.Type.String() {
			continue
		}

		var dot float64
		for i := range vec {
			dot += float64(vec[i]) * float64(rec.Embedding[i])
		}
		if dot < 0 {
			dot = 0
		}
		if dot > 1 {
			dot = 1
		}
		if dot < minScore {
			continue
		}
		matches = append(matches, &model.VectorMatch{ID: rec.ID, Score: dot, Meta: rec.Meta})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (x *stubIndex) Delete(_ context.Context, id model.MemoryID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.deleteErr != nil {
		return x.deleteErr
	}
	delete(x.entries, id)
	return nil
}

func (x *stubIndex) Stats(_ context.Context, userID string) (*model.VectorStats, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	stats := &model.VectorStats{ByType: map[string]int{}}
	for _, rec := range x.entries {
		if rec.Meta.UserID != userID {
			continue
		}
		stats.Total++
		stats.ByType[rec.Meta.Type]++
	}
	return stats, nil
}

func (x *stubIndex) Close() error { return nil }

func newTestUseCase(t *testing.T, index interfaces.VectorIndex) *usecase.UseCase {
	t.Helper()
	store := gt.R1(memory.New()).NoError(t)
	embedder := embedding.NewStubEmbedder(64)
	return usecase.New(store, index, embedder)
}

func TestStore_Roundtrip(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(t, newStubIndex())

	before := time.Now()
	id := gt.R1(uc.Store(ctx, &usecase.StoreInput{
		UserID:  "u1",
		Content: "the deploy script lives in scripts/deploy.sh",
		Type:    types.MemoryTypeCode,
		Tags:    []string{"deploy", "ops"},
	})).NoError(t)
	gt.Value(t, id.String()).NotEqual("")

	mem := gt.R1(uc.Get(ctx, id)).NoError(t)
	gt.Value(t, mem.Content).Equal("the deploy script lives in scripts/deploy.sh")
	gt.Value(t, mem.Type).Equal(types.MemoryTypeCode)
	gt.Value(t, mem.UserID).Equal("u1")
	gt.True(t, !mem.Metadata.Timestamp.Before(before))
}

func TestStore_Validation(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(t, newStubIndex())

	_, err := uc.Store(ctx, &usecase.StoreInput{Content: "no user"})
	gt.Value(t, err).NotNil()

	_, err = uc.Store(ctx, &usecase.StoreInput{UserID: "u1"})
	gt.Value(t, err).NotNil()

	_, err = uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "x", Type: "bogus"})
	gt.Value(t, err).NotNil()
}

func TestStore_DefaultsToGeneral(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(t, newStubIndex())

	id := gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "untyped"})).NoError(t)
	mem := gt.R1(uc.Get(ctx, id)).NoError(t)
	gt.Value(t, mem.Type).Equal(types.MemoryTypeGeneral)
}

func TestStore_ConsistencyGap(t *testing.T) {
	ctx := context.Background()
	index := newStubIndex()
	index.upsertErr = errors.New("index unavailable")
	uc := newTestUseCase(t, index)

	id, err := uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "orphaned"})
	gt.Error(t, err).Is(usecase.ErrConsistencyGap)
	gt.Value(t, id.String()).NotEqual("")

	// The durable write is not rolled back
	mem := gt.R1(uc.Get(ctx, id)).NoError(t)
	gt.Value(t, mem.Content).Equal("orphaned")
}

func TestDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(t, newStubIndex())

	id := gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "ephemeral"})).NoError(t)

	deleted := gt.R1(uc.Delete(ctx, id)).NoError(t)
	gt.True(t, deleted)

	again := gt.R1(uc.Delete(ctx, id)).NoError(t)
	gt.False(t, again)

	_, err := uc.Get(ctx, id)
	gt.Error(t, err).Is(interfaces.ErrMemoryNotFound)
}

func TestDelete_GapOnVectorFailure(t *testing.T) {
	ctx := context.Background()
	index := newStubIndex()
	uc := newTestUseCase(t, index)

	id := gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "sticky vector"})).NoError(t)

	index.deleteErr = errors.New("index unavailable")
	deleted, err := uc.Delete(ctx, id)
	gt.True(t, deleted)
	gt.Error(t, err).Is(usecase.ErrConsistencyGap)
}

func TestSearch_CacheDeterminism(t *testing.T) {
	ctx := context.Background()
	index := newStubIndex()
	uc := newTestUseCase(t, index)

	gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "prefers dark mode"})).NoError(t)
	gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "works in UTC+9"})).NoError(t)

	first := gt.R1(uc.Search(ctx, "u1", "prefers dark mode", nil)).NoError(t)
	queriesAfterFirst := index.queryCount

	second := gt.R1(uc.Search(ctx, "u1", "prefers dark mode", nil)).NoError(t)
	gt.Equal(t, index.queryCount, queriesAfterFirst)

	gt.Equal(t,
		string(gt.R1(json.Marshal(first)).NoError(t)),
		string(gt.R1(json.Marshal(second)).NoError(t)),
	)
}

func TestSearch_ScoreFilteringAndBackfill(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(t, newStubIndex())

	// The stub embedder maps identical text to the identical unit vector,
	// so an exact match scores 1.0 and unrelated text scores near zero.
	target := gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "favorite editor is helix"})).NoError(t)
	gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "timezone is JST"})).NoError(t)
	gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "repo uses conventional commits"})).NoError(t)

	results := gt.R1(uc.Search(ctx, "u1", "favorite editor is helix", nil)).NoError(t)
	gt.Array(t, results).Longer(0)

	seen := map[model.MemoryID]bool{}
	for _, r := range results {
		gt.False(t, seen[r.Memory.ID])
		seen[r.Memory.ID] = true

		if r.Memory.ID == target {
			gt.True(t, r.Similarity >= usecase.DefaultMinScore)
		} else {
			gt.Equal(t, r.Similarity, model.RecencyFallbackScore)
			gt.Equal(t, r.Score, model.RecencyFallbackScore)
		}
	}
	gt.True(t, seen[target])
}

func TestSearch_WithoutBackfill(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(t, newStubIndex())

	target := gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "likes table-driven tests"})).NoError(t)
	gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "something unrelated"})).NoError(t)

	includeRecent := false
	results := gt.R1(uc.Search(ctx, "u1", "likes table-driven tests", &usecase.SearchOptions{
		IncludeRecent: &includeRecent,
	})).NoError(t)

	gt.Array(t, results).Length(1)
	gt.Value(t, results[0].Memory.ID).Equal(target)
}

func TestSearch_SkipsDeletedCandidates(t *testing.T) {
	ctx := context.Background()
	index := newStubIndex()
	store := gt.R1(memory.New()).NoError(t)
	uc := usecase.New(store, index, embedding.NewStubEmbedder(64))

	id := gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "will vanish"})).NoError(t)

	// Simulate index lag: the attribute record disappears while the
	// vector entry survives
	gt.R1(store.Delete(ctx, id)).NoError(t)

	includeRecent := false
	results := gt.R1(uc.Search(ctx, "u1", "will vanish", &usecase.SearchOptions{
		IncludeRecent: &includeRecent,
	})).NoError(t)
	gt.Array(t, results).Length(0)
}

func TestContext_MergeAndDedup(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(t, newStubIndex())

	gt.R1(uc.Store(ctx, &usecase.StoreInput{
		UserID: "u1", Content: "session note one", SessionID: "s1", Type: types.MemoryTypeConversation,
	})).NoError(t)
	gt.R1(uc.Store(ctx, &usecase.StoreInput{
		UserID: "u1", Content: "session note two", SessionID: "s1", Type: types.MemoryTypeConversation,
	})).NoError(t)
	gt.R1(uc.Store(ctx, &usecase.StoreInput{
		UserID: "u1", Content: "standalone preference", Type: types.MemoryTypePreference,
	})).NoError(t)

	contextual := gt.R1(uc.Context(ctx, "u1", "standalone preference", "s1")).NoError(t)

	// The session memories also sit in the recent list; the merge must
	// not duplicate them
	seen := map[model.MemoryID]bool{}
	for _, mem := range contextual.Recent {
		gt.False(t, seen[mem.ID])
		seen[mem.ID] = true
	}
	gt.Array(t, contextual.Recent).Length(3)

	seenRelated := map[model.MemoryID]bool{}
	for _, r := range contextual.Related {
		gt.False(t, seenRelated[r.Memory.ID])
		seenRelated[r.Memory.ID] = true
	}

	gt.True(t, strings.HasPrefix(contextual.Summary, "Context: "))
	gt.S(t, contextual.Summary).Contains("memories available")
}

func TestContext_SummaryFormat(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(t, newStubIndex())

	gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "only one note", Type: types.MemoryTypeCode})).NoError(t)

	contextual := gt.R1(uc.Context(ctx, "u1", "zzz entirely unrelated query", "")).NoError(t)
	gt.Array(t, contextual.Recent).Length(1)
	gt.Array(t, contextual.Related).Length(0)
	gt.Value(t, contextual.Summary).Equal("Context: 1 memories available (code)")
}

func TestList_Scenario(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(t, newStubIndex())

	for _, memType := range []types.MemoryType{types.MemoryTypeGeneral, types.MemoryTypeCode, types.MemoryTypeGeneral} {
		gt.R1(uc.Store(ctx, &usecase.StoreInput{
			UserID:  "u1",
			Content: "note of type " + memType.String(),
			Type:    memType,
		})).NoError(t)
		time.Sleep(time.Millisecond)
	}

	all := gt.R1(uc.List(ctx, "u1", "", 0)).NoError(t)
	gt.Array(t, all).Length(3)
	for i := 1; i < len(all); i++ {
		gt.True(t, !all[i-1].Metadata.Timestamp.Before(all[i].Metadata.Timestamp))
	}

	generals := gt.R1(uc.List(ctx, "u1", types.MemoryTypeGeneral, 0)).NoError(t)
	gt.Array(t, generals).Length(2)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCase(t, newStubIndex())

	gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "a", Type: types.MemoryTypeCode})).NoError(t)
	gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "b", Type: types.MemoryTypeCode})).NoError(t)
	gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u1", Content: "c", Type: types.MemoryTypeGeneral})).NoError(t)
	gt.R1(uc.Store(ctx, &usecase.StoreInput{UserID: "u2", Content: "other user"})).NoError(t)

	stats := gt.R1(uc.Stats(ctx, "u1")).NoError(t)
	gt.Equal(t, stats.Total, 3)
	gt.Equal(t, stats.ByType["code"], 2)
	gt.Equal(t, stats.ByType["general"], 1)
	gt.Equal(t, stats.RecentActivity, 3)
}
