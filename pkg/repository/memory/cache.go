package memory

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/m-mizutani/goerr/v2"
)

// queryCache is the TTL-bounded query-result cache of the in-memory store,
// backed by ristretto. Values are opaque byte slices decoded by the caller.
type queryCache struct {
	cache *ristretto.Cache
}

func newQueryCache() (*queryCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     16 << 20, // 16 MiB of serialized result lists
		BufferItems: 64,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create query cache")
	}
	return &queryCache{cache: cache}, nil
}

func (c *queryCache) get(fingerprint string) ([]byte, bool, error) {
	v, ok := c.cache.Get(fingerprint)
	if !ok {
		return nil, false, nil
	}
	value, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

func (c *queryCache) put(fingerprint string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	c.cache.SetWithTTL(fingerprint, stored, int64(len(stored)), ttl)
	// Ristretto admits writes asynchronously; waiting keeps cache hits
	// deterministic for back-to-back identical queries.
	c.cache.Wait()
	return nil
}

func (c *queryCache) close() {
	c.cache.Close()
}
