package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/shifanka/recall/pkg/domain/interfaces"
	"github.com/shifanka/recall/pkg/domain/model"
	"google.golang.org/api/iterator"
)

// statsMaxScan caps the per-user scan used by Stats. The index has no
// aggregation primitive, so counts beyond this ceiling are truncated.
const statsMaxScan = 1000

const vectorsCollection = "memory_vectors"

// distanceField receives the cosine distance of each FindNearest result
const distanceField = "Distance"

// Index is the Firestore-backed similarity index. Embeddings are stored
// as firestore.Vector32 so that FindNearest vector search works; the
// vector index itself is declared by the migrate command.
type Index struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.VectorIndex = &Index{}

type Option func(*Index)

// WithCollectionPrefix namespaces the vector collection, mainly for tests
func WithCollectionPrefix(prefix string) Option {
	return func(x *Index) {
		x.collectionPrefix = prefix
	}
}

// New creates a Firestore-backed index. An empty databaseID selects the
// project's default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Index, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client for vector index",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID),
		)
	}

	x := &Index{client: client}
	for _, opt := range opts {
		opt(x)
	}
	return x, nil
}

func (x *Index) vectors() *firestore.CollectionRef {
	return x.client.Collection(x.collectionPrefix + vectorsCollection)
}

// vectorDoc is the Firestore document representation of a vector entry.
// Distance is never written; it is populated by FindNearest reads.
type vectorDoc struct {
	ID        string             `firestore:"ID"`
	UserID    string             `firestore:"UserID"`
	Type      string             `firestore:"Type"`
	Timestamp time.Time          `firestore:"Timestamp"`
	Content   string             `firestore:"Content"`
	Tags      string             `firestore:"Tags,omitempty"`
	Language  string             `firestore:"Language,omitempty"`
	Title     string             `firestore:"Title,omitempty"`
	SessionID string             `firestore:"SessionID,omitempty"`
	Embedding firestore.Vector32 `firestore:"Embedding"`
	Distance  float64            `firestore:"Distance,omitempty"`
}

func toVectorDoc(rec *model.VectorRecord) *vectorDoc {
	return &vectorDoc{
		ID:        rec.ID.String(),
		UserID:    rec.Meta.UserID,
		Type:      rec.Meta.Type,
		Timestamp: rec.Meta.Timestamp,
		Content:   rec.Meta.Content,
		Tags:      rec.Meta.Tags,
		Language:  rec.Meta.Language,
		Title:     rec.Meta.Title,
		SessionID: rec.Meta.SessionID,
		Embedding: firestore.Vector32(rec.Embedding),
	}
}

func toMeta(d *vectorDoc) model.VectorMeta {
	return model.VectorMeta{
		UserID:    d.UserID,
		Type:      d.Type,
		Timestamp: d.Timestamp,
		Content:   d.Content,
		Tags:      d.Tags,
		Language:  d.Language,
		Title:     d.Title,
		SessionID: d.SessionID,
	}
}

func (x *Index) Upsert(ctx context.Context, rec *model.VectorRecord) error {
	docRef := x.vectors().Doc(rec.ID.String())
	if _, err := docRef.Set(ctx, toVectorDoc(rec)); err != nil {
		return goerr.Wrap(err, "failed to upsert vector entry",
			goerr.V("memoryID", rec.ID),
			goerr.V("userID", rec.Meta.UserID),
		)
	}
	return nil
}

// clampScore maps a cosine distance in [0,2] into a similarity score in [0,1]
func clampScore(distance float64) float64 {
	score := 1 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func (x *Index) Query(ctx context.Context, embedding []float32, topK int, filter model.VectorFilter, minScore float64) ([]*model.VectorMatch, error) {
	q := x.vectors().Query.Where("UserID", "==", filter.UserID)
	if filter.Type != "" {
		q = q.Where("Type", "==", filter.Type.String())
	}

	vq := q.FindNearest("Embedding", firestore.Vector32(embedding), topK, firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: distanceField})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	matches := make([]*model.VectorMatch, 0, topK)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results",
				goerr.V("userID", filter.UserID),
			)
		}

		var d vectorDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal vector entry")
		}

		score := clampScore(d.Distance)
		if score < minScore {
			continue
		}
		matches = append(matches, &model.VectorMatch{
			ID:    model.MemoryID(d.ID),
			Score: score,
			Meta:  toMeta(&d),
		})
	}

	return matches, nil
}

func (x *Index) Delete(ctx context.Context, id model.MemoryID) error {
	// Firestore deletes are no-ops for absent documents, which matches
	// the best-effort cleanup contract
	if _, err := x.vectors().Doc(id.String()).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete vector entry", goerr.V("memoryID", id))
	}
	return nil
}

func (x *Index) Stats(ctx context.Context, userID string) (*model.VectorStats, error) {
	// Firestore can filter without a probe vector, but the scan is still
	// capped at statsMaxScan documents per user
	iter := x.vectors().
		Where("UserID", "==", userID).
		Limit(statsMaxScan).
		Documents(ctx)
	defer iter.Stop()

	stats := &model.VectorStats{ByType: map[string]int{}}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan vector index for stats", goerr.V("userID", userID))
		}

		var d vectorDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal vector entry")
		}
		stats.Total++
		stats.ByType[d.Type]++
	}

	return stats, nil
}

func (x *Index) Close() error {
	return x.client.Close()
}
