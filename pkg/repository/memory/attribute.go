package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/shifanka/recall/pkg/domain/interfaces"
	"github.com/shifanka/recall/pkg/domain/model"
	"github.com/shifanka/recall/pkg/domain/types"
)

// Store is an in-memory AttributeStore used when no Firestore project is
// configured. It keeps the same secondary views as the durable backend:
// by-user, by-type and by-session sets plus a recency ordering derived
// from creation timestamps.
type Store struct {
	mu        sync.RWMutex
	records   map[model.MemoryID]*model.Memory
	byUser    map[string]map[model.MemoryID]struct{}
	byType    map[types.MemoryType]map[model.MemoryID]struct{}
	bySession map[string]map[model.MemoryID]struct{}
	cache     *queryCache
}

var _ interfaces.AttributeStore = &Store{}

// New creates an empty in-memory store
func New() (*Store, error) {
	cache, err := newQueryCache()
	if err != nil {
		return nil, err
	}

	return &Store{
		records:   make(map[model.MemoryID]*model.Memory),
		byUser:    make(map[string]map[model.MemoryID]struct{}),
		byType:    make(map[types.MemoryType]map[model.MemoryID]struct{}),
		bySession: make(map[string]map[model.MemoryID]struct{}),
		cache:     cache,
	}, nil
}

func addMember(index map[string]map[model.MemoryID]struct{}, key string, id model.MemoryID) {
	if _, ok := index[key]; !ok {
		index[key] = make(map[model.MemoryID]struct{})
	}
	index[key][id] = struct{}{}
}

func (s *Store) Put(ctx context.Context, mem *model.Memory) (model.MemoryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := mem.Clone()
	if stored.ID == "" {
		stored.ID = model.NewMemoryID()
	}
	if stored.Metadata.Timestamp.IsZero() {
		stored.Metadata.Timestamp = time.Now().UTC()
	}

	s.records[stored.ID] = stored
	addMember(s.byUser, stored.UserID, stored.ID)
	if _, ok := s.byType[stored.Type]; !ok {
		s.byType[stored.Type] = make(map[model.MemoryID]struct{})
	}
	s.byType[stored.Type][stored.ID] = struct{}{}
	if stored.SessionID != "" {
		addMember(s.bySession, stored.SessionID, stored.ID)
	}

	return stored.ID, nil
}

func (s *Store) Get(ctx context.Context, id model.MemoryID) (*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mem, ok := s.records[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrMemoryNotFound, "no record in attribute store", goerr.V("memoryID", id))
	}
	return mem.Clone(), nil
}

// collect resolves a set of ids into cloned records, dropping dangling ids
func (s *Store) collect(ids map[model.MemoryID]struct{}) []*model.Memory {
	result := make([]*model.Memory, 0, len(ids))
	for id := range ids {
		if mem, ok := s.records[id]; ok {
			result = append(result, mem.Clone())
		}
	}
	return result
}

func sortByTimestampDesc(memories []*model.Memory) {
	sort.Slice(memories, func(i, j int) bool {
		ti, tj := memories[i].Metadata.Timestamp, memories[j].Metadata.Timestamp
		if ti.Equal(tj) {
			return memories[i].ID < memories[j].ID
		}
		return ti.After(tj)
	})
}

func truncate(memories []*model.Memory, limit int) []*model.Memory {
	if limit > 0 && len(memories) > limit {
		return memories[:limit]
	}
	return memories
}

func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	memories := s.collect(s.byUser[userID])
	sortByTimestampDesc(memories)
	return truncate(memories, limit), nil
}

func (s *Store) ListRecent(ctx context.Context, userID string, limit int) ([]*model.Memory, error) {
	return s.ListByUser(ctx, userID, limit)
}

func (s *Store) ListByType(ctx context.Context, userID string, memType types.MemoryType, limit int) ([]*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Intersection of the by-user and by-type sets
	typed := s.byType[memType]
	memories := make([]*model.Memory, 0)
	for id := range s.byUser[userID] {
		if _, ok := typed[id]; !ok {
			continue
		}
		if mem, exists := s.records[id]; exists {
			memories = append(memories, mem.Clone())
		}
	}

	sortByTimestampDesc(memories)
	return truncate(memories, limit), nil
}

func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	memories := s.collect(s.bySession[sessionID])
	sort.Slice(memories, func(i, j int) bool {
		ti, tj := memories[i].Metadata.Timestamp, memories[j].Metadata.Timestamp
		if ti.Equal(tj) {
			return memories[i].ID < memories[j].ID
		}
		return ti.Before(tj)
	})
	return memories, nil
}

func (s *Store) Delete(ctx context.Context, id model.MemoryID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mem, ok := s.records[id]
	if !ok {
		return false, nil
	}

	delete(s.records, id)
	delete(s.byUser[mem.UserID], id)
	delete(s.byType[mem.Type], id)
	if mem.SessionID != "" {
		delete(s.bySession[mem.SessionID], id)
	}

	return true, nil
}

func (s *Store) CacheGet(ctx context.Context, fingerprint string) ([]byte, bool, error) {
	return s.cache.get(fingerprint)
}

func (s *Store) CachePut(ctx context.Context, fingerprint string, value []byte, ttl time.Duration) error {
	return s.cache.put(fingerprint, value, ttl)
}

func (s *Store) Close() error {
	s.cache.close()
	return nil
}
