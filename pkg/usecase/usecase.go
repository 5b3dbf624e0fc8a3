package usecase

import (
	"time"

	"github.com/shifanka/recall/pkg/domain/interfaces"
)

// Defaults for search and listing. MinScore and the cache TTL mirror the
// values the tool contract promises; they can be overridden at construction.
const (
	DefaultSearchLimit = 10
	DefaultMinScore    = 0.7
	DefaultListLimit   = 50
	DefaultCacheTTL    = 30 * time.Minute

	contextRecentFetch  = 5
	contextRelatedFetch = 10
	contextRecentLimit  = 8
	contextRelatedLimit = 12

	statsRecentScan     = 10
	statsActivityWindow = 24 * time.Hour
)

// UseCase orchestrates the attribute store, the similarity index and the
// embedder. It is the sole reader and writer of both backing stores;
// construct it once at process start and share it across calls.
type UseCase struct {
	store    interfaces.AttributeStore
	index    interfaces.VectorIndex
	embedder interfaces.Embedder

	searchLimit int
	minScore    float64
	listLimit   int
	cacheTTL    time.Duration
}

type Option func(*UseCase)

// WithSearchLimit overrides the default number of search results
func WithSearchLimit(limit int) Option {
	return func(uc *UseCase) {
		uc.searchLimit = limit
	}
}

// WithMinScore overrides the default similarity threshold
func WithMinScore(score float64) Option {
	return func(uc *UseCase) {
		uc.minScore = score
	}
}

// WithCacheTTL overrides the query cache lifetime
func WithCacheTTL(ttl time.Duration) Option {
	return func(uc *UseCase) {
		uc.cacheTTL = ttl
	}
}

func New(store interfaces.AttributeStore, index interfaces.VectorIndex, embedder interfaces.Embedder, opts ...Option) *UseCase {
	uc := &UseCase{
		store:       store,
		index:       index,
		embedder:    embedder,
		searchLimit: DefaultSearchLimit,
		minScore:    DefaultMinScore,
		listLimit:   DefaultListLimit,
		cacheTTL:    DefaultCacheTTL,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
