package chromem

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	chromem "github.com/philippgille/chromem-go"
	"github.com/shifanka/recall/pkg/domain/interfaces"
	"github.com/shifanka/recall/pkg/domain/model"
)

// statsMaxScan caps the per-user scan used by Stats. The index has no
// aggregation primitive, so counts beyond this ceiling are truncated.
const statsMaxScan = 1000

const collectionName = "memories"

// Index is an embedded similarity index backed by chromem-go. It is the
// credential-free counterpart of the Firestore index: same contract, pure
// Go, optionally persisted to disk.
type Index struct {
	db        *chromem.DB
	col       *chromem.Collection
	dimension int
}

var _ interfaces.VectorIndex = &Index{}

// New creates an embedded index. When path is non-empty the database is
// persisted there; otherwise everything stays in memory.
func New(path string, dimension int) (*Index, error) {
	var db *chromem.DB
	if path != "" {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open persistent vector db", goerr.V("path", path))
		}
	} else {
		db = chromem.NewDB()
	}

	// Embeddings are always provided by the caller, so no embedding
	// function is registered.
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create vector collection")
	}

	return &Index{db: db, col: col, dimension: dimension}, nil
}

func toDocument(rec *model.VectorRecord) chromem.Document {
	return chromem.Document{
		ID:        rec.ID.String(),
		Content:   rec.Meta.Content,
		Embedding: rec.Embedding,
		Metadata: map[string]string{
			"userId":    rec.Meta.UserID,
			"type":      rec.Meta.Type,
			"timestamp": strconv.FormatInt(rec.Meta.Timestamp.UnixMilli(), 10),
			"tags":      rec.Meta.Tags,
			"language":  rec.Meta.Language,
			"title":     rec.Meta.Title,
			"sessionId": rec.Meta.SessionID,
		},
	}
}

func toMeta(res chromem.Result) model.VectorMeta {
	ms, _ := strconv.ParseInt(res.Metadata["timestamp"], 10, 64)
	return model.VectorMeta{
		UserID:    res.Metadata["userId"],
		Type:      res.Metadata["type"],
		Timestamp: time.UnixMilli(ms).UTC(),
		Content:   res.Content,
		Tags:      res.Metadata["tags"],
		Language:  res.Metadata["language"],
		Title:     res.Metadata["title"],
		SessionID: res.Metadata["sessionId"],
	}
}

func (x *Index) Upsert(ctx context.Context, rec *model.VectorRecord) error {
	// chromem has no replace operation; drop any previous entry first
	if err := x.col.Delete(ctx, nil, nil, rec.ID.String()); err != nil {
		return goerr.Wrap(err, "failed to replace vector entry", goerr.V("memoryID", rec.ID))
	}

	if err := x.col.AddDocument(ctx, toDocument(rec)); err != nil {
		return goerr.Wrap(err, "failed to upsert vector entry", goerr.V("memoryID", rec.ID))
	}
	return nil
}

func whereClause(filter model.VectorFilter) map[string]string {
	where := map[string]string{"userId": filter.UserID}
	if filter.Type != "" {
		where["type"] = filter.Type.String()
	}
	return where
}

// clampScore maps chromem's cosine similarity into [0,1]
func clampScore(similarity float32) float64 {
	s := float64(similarity)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func (x *Index) Query(ctx context.Context, embedding []float32, topK int, filter model.VectorFilter, minScore float64) ([]*model.VectorMatch, error) {
	// chromem rejects nResults beyond the collection size
	n := topK
	if count := x.col.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return []*model.VectorMatch{}, nil
	}

	results, err := x.queryEmbedding(ctx, embedding, n, whereClause(filter))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query vector index",
			goerr.V("topK", topK),
			goerr.V("userID", filter.UserID),
		)
	}

	matches := make([]*model.VectorMatch, 0, len(results))
	for _, res := range results {
		score := clampScore(res.Similarity)
		if score < minScore {
			continue
		}
		matches = append(matches, &model.VectorMatch{
			ID:    model.MemoryID(res.ID),
			Score: score,
			Meta:  toMeta(res),
		})
	}

	return matches, nil
}

// queryEmbedding wraps Collection.QueryEmbedding with a shrinking retry:
// chromem rejects nResults larger than the number of documents surviving
// the where filter, and that count is not observable up front.
func (x *Index) queryEmbedding(ctx context.Context, embedding []float32, n int, where map[string]string) ([]chromem.Result, error) {
	for ; n >= 1; n-- {
		results, err := x.col.QueryEmbedding(ctx, embedding, n, where, nil)
		if err == nil {
			return results, nil
		}
		if isTooFewDocs(err) {
			continue
		}
		return nil, err
	}
	return nil, nil
}

func isTooFewDocs(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}

func (x *Index) Delete(ctx context.Context, id model.MemoryID) error {
	// Best-effort cleanup; a missing entry is not an error
	if err := x.col.Delete(ctx, nil, nil, id.String()); err != nil {
		return goerr.Wrap(err, "failed to delete vector entry", goerr.V("memoryID", id))
	}
	return nil
}

func (x *Index) Stats(ctx context.Context, userID string) (*model.VectorStats, error) {
	// No aggregation primitive: query with a neutral unit vector and a
	// generous topK, then count what comes back. Results are capped at
	// statsMaxScan entries per user.
	n := x.col.Count()
	if n > statsMaxScan {
		n = statsMaxScan
	}
	if n == 0 {
		return &model.VectorStats{ByType: map[string]int{}}, nil
	}

	neutral := make([]float32, x.dimension)
	neutral[0] = 1

	results, err := x.queryEmbedding(ctx, neutral, n, map[string]string{"userId": userID})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan vector index for stats", goerr.V("userID", userID))
	}

	stats := &model.VectorStats{ByType: map[string]int{}}
	for _, res := range results {
		stats.Total++
		stats.ByType[res.Metadata["type"]]++
	}
	return stats, nil
}

func (x *Index) Close() error {
	// chromem keeps its state in memory (and flushes persistent writes
	// synchronously); nothing to release here
	return nil
}
