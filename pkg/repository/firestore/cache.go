package firestore

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/shifanka/recall/pkg/utils/logging"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// cacheDoc holds one cached query result. Firestore has no native TTL
// eviction at this layer, so expiry is checked on read; stale documents
// are deleted best-effort when encountered.
type cacheDoc struct {
	Fingerprint string    `firestore:"Fingerprint"`
	Value       []byte    `firestore:"Value"`
	ExpiresAt   time.Time `firestore:"ExpiresAt"`
}

func (s *Store) CacheGet(ctx context.Context, fingerprint string) ([]byte, bool, error) {
	doc, err := s.queryCache().Doc(fingerprint).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, goerr.Wrap(err, "failed to get cache entry", goerr.V("fingerprint", fingerprint))
	}

	var d cacheDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, false, goerr.Wrap(err, "failed to unmarshal cache entry", goerr.V("fingerprint", fingerprint))
	}

	if time.Now().After(d.ExpiresAt) {
		// Expired entries count as absent; cleanup is best-effort
		if _, err := s.queryCache().Doc(fingerprint).Delete(ctx); err != nil {
			logging.From(ctx).Warn("failed to delete expired cache entry",
				"fingerprint", fingerprint, "error", err)
		}
		return nil, false, nil
	}

	return d.Value, true, nil
}

func (s *Store) CachePut(ctx context.Context, fingerprint string, value []byte, ttl time.Duration) error {
	doc := &cacheDoc{
		Fingerprint: fingerprint,
		Value:       value,
		ExpiresAt:   time.Now().Add(ttl),
	}

	if _, err := s.queryCache().Doc(fingerprint).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put cache entry", goerr.V("fingerprint", fingerprint))
	}
	return nil
}
