package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/shifanka/recall/pkg/domain/interfaces"
	"github.com/shifanka/recall/pkg/domain/model"
	"github.com/shifanka/recall/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// memoryDoc is the Firestore document representation of model.Memory.
// UserID, Type, SessionID and CreatedAt are indexed and serve as the
// secondary views; see the migrate command for the composite indexes.
type memoryDoc struct {
	ID        string    `firestore:"ID"`
	UserID    string    `firestore:"UserID"`
	SessionID string    `firestore:"SessionID"`
	Type      string    `firestore:"Type"`
	Content   string    `firestore:"Content"`
	Tags      []string  `firestore:"Tags,omitempty"`
	Language  string    `firestore:"Language,omitempty"`
	Title     string    `firestore:"Title,omitempty"`
	Context   string    `firestore:"Context,omitempty"`
	Source    string    `firestore:"Source,omitempty"`
	CreatedAt time.Time `firestore:"CreatedAt"`
}

func toMemoryDoc(m *model.Memory) *memoryDoc {
	return &memoryDoc{
		ID:        string(m.ID),
		UserID:    m.UserID,
		SessionID: m.SessionID,
		Type:      m.Type.String(),
		Content:   m.Content,
		Tags:      m.Metadata.Tags,
		Language:  m.Metadata.Language,
		Title:     m.Metadata.Title,
		Context:   m.Metadata.Context,
		Source:    m.Metadata.Source,
		CreatedAt: m.Metadata.Timestamp,
	}
}

func fromMemoryDoc(d *memoryDoc) *model.Memory {
	return &model.Memory{
		ID:        model.MemoryID(d.ID),
		UserID:    d.UserID,
		SessionID: d.SessionID,
		Type:      types.MemoryType(d.Type),
		Content:   d.Content,
		Metadata: model.Metadata{
			Timestamp: d.CreatedAt,
			Tags:      d.Tags,
			Language:  d.Language,
			Title:     d.Title,
			Context:   d.Context,
			Source:    d.Source,
		},
	}
}

func (s *Store) Put(ctx context.Context, mem *model.Memory) (model.MemoryID, error) {
	stored := mem.Clone()
	if stored.ID == "" {
		stored.ID = model.NewMemoryID()
	}
	if stored.Metadata.Timestamp.IsZero() {
		stored.Metadata.Timestamp = time.Now().UTC()
	}

	docRef := s.memories().Doc(stored.ID.String())
	if _, err := docRef.Set(ctx, toMemoryDoc(stored)); err != nil {
		return "", goerr.Wrap(err, "failed to put memory",
			goerr.V("memoryID", stored.ID),
			goerr.V("userID", stored.UserID),
		)
	}

	return stored.ID, nil
}

func (s *Store) Get(ctx context.Context, id model.MemoryID) (*model.Memory, error) {
	doc, err := s.memories().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrMemoryNotFound, "no record in attribute store", goerr.V("memoryID", id))
		}
		return nil, goerr.Wrap(err, "failed to get memory", goerr.V("memoryID", id))
	}

	var d memoryDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal memory", goerr.V("memoryID", id))
	}

	return fromMemoryDoc(&d), nil
}

func (s *Store) listQuery(ctx context.Context, q firestore.Query) ([]*model.Memory, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	memories := make([]*model.Memory, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate memories")
		}

		var d memoryDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal memory")
		}
		memories = append(memories, fromMemoryDoc(&d))
	}

	return memories, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Memory, error) {
	q := s.memories().
		Where("UserID", "==", userID).
		OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return s.listQuery(ctx, q)
}

func (s *Store) ListRecent(ctx context.Context, userID string, limit int) ([]*model.Memory, error) {
	// The CreatedAt ordering over the by-user view is the recency index
	return s.ListByUser(ctx, userID, limit)
}

func (s *Store) ListByType(ctx context.Context, userID string, memType types.MemoryType, limit int) ([]*model.Memory, error) {
	q := s.memories().
		Where("UserID", "==", userID).
		Where("Type", "==", memType.String()).
		OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return s.listQuery(ctx, q)
}

func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]*model.Memory, error) {
	q := s.memories().
		Where("SessionID", "==", sessionID).
		OrderBy("CreatedAt", firestore.Asc)
	return s.listQuery(ctx, q)
}

func (s *Store) Delete(ctx context.Context, id model.MemoryID) (bool, error) {
	docRef := s.memories().Doc(id.String())

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to check memory before delete", goerr.V("memoryID", id))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return false, goerr.Wrap(err, "failed to delete memory", goerr.V("memoryID", id))
	}

	return true, nil
}
