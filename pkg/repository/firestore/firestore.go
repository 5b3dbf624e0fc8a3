package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/shifanka/recall/pkg/domain/interfaces"
)

const (
	memoriesCollection   = "memories"
	queryCacheCollection = "query_cache"
)

// Store is the Firestore-backed AttributeStore. Memory records live in a
// single collection with indexed fields serving the by-user, by-type,
// by-session and recency views; the query cache is a sibling collection
// with per-document expiry.
type Store struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.AttributeStore = &Store{}

type Option func(*Store)

// WithCollectionPrefix namespaces all collections, mainly for tests
// sharing one project.
func WithCollectionPrefix(prefix string) Option {
	return func(s *Store) {
		s.collectionPrefix = prefix
	}
}

// New creates a Firestore-backed store. An empty databaseID selects the
// project's default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Store, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID),
		)
	}

	s := &Store{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) memories() *firestore.CollectionRef {
	return s.client.Collection(s.collectionPrefix + memoriesCollection)
}

func (s *Store) queryCache() *firestore.CollectionRef {
	return s.client.Collection(s.collectionPrefix + queryCacheCollection)
}

func (s *Store) Close() error {
	return s.client.Close()
}
