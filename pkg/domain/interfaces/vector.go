package interfaces

import (
	"context"

	"github.com/shifanka/recall/pkg/domain/model"
)

// VectorIndex is the similarity side of the engine: nearest-neighbor
// retrieval over content embeddings with conjunctive equality filtering on
// the flattened metadata. Implementations must be safe for concurrent use.
type VectorIndex interface {
	// Upsert writes an entry, replacing any existing entry with the same id
	Upsert(ctx context.Context, rec *model.VectorRecord) error

	// Query returns at most topK entries matching the filter, ordered by
	// descending score. Implementations should drop matches below
	// minScore, but callers re-check; scores lie in [0,1].
	Query(ctx context.Context, embedding []float32, topK int, filter model.VectorFilter, minScore float64) ([]*model.VectorMatch, error)

	// Delete removes an entry. Deleting an absent id must not fail; this
	// is best-effort cleanup.
	Delete(ctx context.Context, id model.MemoryID) error

	// Stats returns the approximate per-user entry counts. The index has
	// no native aggregation, so implementations scan up to a documented
	// ceiling and results are capped accordingly.
	Stats(ctx context.Context, userID string) (*model.VectorStats, error)

	// Close releases backend resources
	Close() error
}
