package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/shifanka/recall/pkg/domain/model"
	"github.com/shifanka/recall/pkg/domain/types"
)

// ErrMemoryNotFound is returned by AttributeStore.Get when no record exists
// for the given id. It is an absence signal, not a backend failure; callers
// decide whether absence is an error.
var ErrMemoryNotFound = errors.New("memory not found")

// AttributeStore is the durable side of the engine: full Memory records
// plus the secondary views needed for scoped listing, and a short-lived
// query-result cache keyed by fingerprint. Implementations must be safe
// for concurrent use.
type AttributeStore interface {
	// Put persists a memory. It assigns ID and Metadata.Timestamp when
	// absent and updates all secondary views as one logical batch: the
	// write either fully succeeds or surfaces an error.
	Put(ctx context.Context, mem *model.Memory) (model.MemoryID, error)

	// Get retrieves a memory by id. Returns ErrMemoryNotFound (wrapped)
	// when no record exists.
	Get(ctx context.Context, id model.MemoryID) (*model.Memory, error)

	// ListByUser returns up to limit memories owned by userID, most
	// recent first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Memory, error)

	// ListRecent returns up to limit memories for userID via the recency
	// view, most recent first.
	ListRecent(ctx context.Context, userID string, limit int) ([]*model.Memory, error)

	// ListByType returns up to limit memories owned by userID with the
	// given type, most recent first.
	ListByType(ctx context.Context, userID string, memType types.MemoryType, limit int) ([]*model.Memory, error)

	// ListBySession returns all memories of a session in chronological
	// order for session replay.
	ListBySession(ctx context.Context, sessionID string) ([]*model.Memory, error)

	// Delete removes a memory and all its index memberships. It reports
	// whether a record existed; deleting an absent id is a no-op
	// returning false, never an error.
	Delete(ctx context.Context, id model.MemoryID) (bool, error)

	// CacheGet returns the cached value for a query fingerprint. The
	// value is opaque here; the caller decodes it. The second return
	// reports presence.
	CacheGet(ctx context.Context, fingerprint string) ([]byte, bool, error)

	// CachePut stores an opaque value under a query fingerprint with the
	// given TTL. Entries expire passively; nothing invalidates them on
	// write.
	CachePut(ctx context.Context, fingerprint string, value []byte, ttl time.Duration) error

	// Close releases backend resources
	Close() error
}
