package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/shifanka/recall/pkg/domain/interfaces"
	"github.com/shifanka/recall/pkg/domain/model"
	"github.com/shifanka/recall/pkg/domain/types"
	"github.com/shifanka/recall/pkg/utils/logging"
)

// StoreInput carries the attributes of a new memory. UserID and Content
// are required; Type defaults to general.
type StoreInput struct {
	UserID    string
	Content   string
	Type      types.MemoryType
	SessionID string
	Tags      []string
	Language  string
	Title     string
	Context   string
	Source    string
}

func (x *StoreInput) Validate() error {
	if x.UserID == "" {
		return goerr.New("userId is required")
	}
	if x.Content == "" {
		return goerr.New("content is required")
	}
	if x.Type != "" && !x.Type.IsValid() {
		return goerr.New("invalid memory type", goerr.V("type", x.Type))
	}
	return nil
}

// Store creates a memory: durable write first, then embedding and vector
// upsert. When the vector side fails the durable record stays as written
// and the returned error wraps ErrConsistencyGap; the memory is listable
// but invisible to similarity search until re-created.
func (uc *UseCase) Store(ctx context.Context, input *StoreInput) (model.MemoryID, error) {
	if err := input.Validate(); err != nil {
		return "", err
	}

	memType := input.Type
	if memType == "" {
		memType = types.MemoryTypeGeneral
	}

	mem := &model.Memory{
		ID:        model.NewMemoryID(),
		UserID:    input.UserID,
		SessionID: input.SessionID,
		Type:      memType,
		Content:   input.Content,
		Metadata: model.Metadata{
			Timestamp: time.Now(),
			Tags:      input.Tags,
			Language:  input.Language,
			Title:     input.Title,
			Context:   input.Context,
			Source:    input.Source,
		},
	}

	if _, err := uc.store.Put(ctx, mem); err != nil {
		return "", goerr.Wrap(err, "failed to store memory", goerr.V("userID", input.UserID))
	}

	embedding, err := uc.embedder.Embed(ctx, mem.Content)
	if err != nil {
		return mem.ID, goerr.Wrap(ErrConsistencyGap, "memory stored without vector entry",
			goerr.V("memoryID", mem.ID),
			goerr.V("cause", err),
		)
	}

	if err := uc.index.Upsert(ctx, model.NewVectorRecord(mem, embedding)); err != nil {
		return mem.ID, goerr.Wrap(ErrConsistencyGap, "memory stored without vector entry",
			goerr.V("memoryID", mem.ID),
			goerr.V("cause", err),
		)
	}

	return mem.ID, nil
}

// Get retrieves a single memory. It returns interfaces.ErrMemoryNotFound
// (wrapped) for absent ids; the tool layer uses this to verify ownership
// before a delete.
func (uc *UseCase) Get(ctx context.Context, id model.MemoryID) (*model.Memory, error) {
	return uc.store.Get(ctx, id)
}

// SearchOptions narrows a similarity search. Zero values select the
// defaults: Limit 10, MinScore 0.7, IncludeRecent true. MinScore and
// IncludeRecent are pointers so that explicit zero and false survive.
type SearchOptions struct {
	Type          types.MemoryType
	Limit         int
	MinScore      *float64
	IncludeRecent *bool
}

type resolvedSearchOptions struct {
	memType       types.MemoryType
	limit         int
	minScore      float64
	includeRecent bool
}

func (uc *UseCase) resolveSearchOptions(opts *SearchOptions) resolvedSearchOptions {
	resolved := resolvedSearchOptions{
		limit:         uc.searchLimit,
		minScore:      uc.minScore,
		includeRecent: true,
	}
	if opts == nil {
		return resolved
	}

	resolved.memType = opts.Type
	if opts.Limit > 0 {
		resolved.limit = opts.Limit
	}
	if opts.MinScore != nil {
		resolved.minScore = *opts.MinScore
	}
	if opts.IncludeRecent != nil {
		resolved.includeRecent = *opts.IncludeRecent
	}
	return resolved
}

// Search returns memories ranked by similarity to the query, with recency
// backfill when similarity alone cannot fill the limit. Results are cached
// by fingerprint; a cache hit returns the previous list verbatim without
// touching the index. Cache failures degrade to an uncached search.
func (uc *UseCase) Search(ctx context.Context, userID, query string, opts *SearchOptions) ([]model.SearchResult, error) {
	if userID == "" {
		return nil, goerr.New("userId is required")
	}
	if query == "" {
		return nil, goerr.New("query is required")
	}

	resolved := uc.resolveSearchOptions(opts)
	fingerprint := searchFingerprint(userID, query, resolved)

	if cached := uc.cachedResults(ctx, fingerprint); cached != nil {
		return cached, nil
	}

	embedding, err := uc.embedder.Embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed search query")
	}

	matches, err := uc.index.Query(ctx, embedding, resolved.limit, model.VectorFilter{
		UserID: userID,
		Type:   resolved.memType,
	}, resolved.minScore)
	if err != nil {
		return nil, goerr.Wrap(err, "similarity query failed", goerr.V("userID", userID))
	}

	// Re-fetch each candidate from the attribute store: the index carries
	// only a truncated projection, and entries may lag behind a delete.
	results := make([]model.SearchResult, 0, resolved.limit)
	for _, match := range matches {
		if match.Score < resolved.minScore {
			continue
		}
		mem, err := uc.store.Get(ctx, match.ID)
		if err != nil {
			if errors.Is(err, interfaces.ErrMemoryNotFound) {
				continue
			}
			return nil, goerr.Wrap(err, "failed to load matched memory", goerr.V("memoryID", match.ID))
		}
		results = append(results, model.SearchResult{
			Memory:     *mem,
			Score:      match.Score,
			Similarity: match.Score,
		})
	}

	if resolved.includeRecent && len(results) < resolved.limit {
		recent, err := uc.store.ListRecent(ctx, userID, resolved.limit)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load recent memories", goerr.V("userID", userID))
		}

		seen := make(map[model.MemoryID]bool, len(results))
		for _, r := range results {
			seen[r.Memory.ID] = true
		}
		for _, mem := range recent {
			if len(results) >= resolved.limit {
				break
			}
			if seen[mem.ID] {
				continue
			}
			seen[mem.ID] = true
			results = append(results, model.SearchResult{
				Memory:     *mem,
				Score:      model.RecencyFallbackScore,
				Similarity: model.RecencyFallbackScore,
			})
		}
	}

	if len(results) > resolved.limit {
		results = results[:resolved.limit]
	}

	uc.cacheResults(ctx, fingerprint, results)

	return results, nil
}

func (uc *UseCase) cachedResults(ctx context.Context, fingerprint string) []model.SearchResult {
	raw, ok, err := uc.store.CacheGet(ctx, fingerprint)
	if err != nil {
		logging.From(ctx).Warn("query cache read failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	var results []model.SearchResult
	if err := json.Unmarshal(raw, &results); err != nil {
		logging.From(ctx).Warn("discarding undecodable query cache entry", "error", err)
		return nil
	}
	return results
}

func (uc *UseCase) cacheResults(ctx context.Context, fingerprint string, results []model.SearchResult) {
	raw, err := json.Marshal(results)
	if err != nil {
		logging.From(ctx).Warn("failed to serialize search results for cache", "error", err)
		return
	}
	if err := uc.store.CachePut(ctx, fingerprint, raw, uc.cacheTTL); err != nil {
		logging.From(ctx).Warn("query cache write failed", "error", err)
	}
}

// Context assembles the contextual view for a query: the user's most
// recent memories (merged with the session's when a sessionID is given)
// plus semantically related ones, each list deduplicated by id.
func (uc *UseCase) Context(ctx context.Context, userID, currentQuery, sessionID string) (*model.ContextualMemory, error) {
	if userID == "" {
		return nil, goerr.New("userId is required")
	}

	recent, err := uc.store.ListRecent(ctx, userID, contextRecentFetch)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load recent memories", goerr.V("userID", userID))
	}

	includeRecent := false
	related, err := uc.Search(ctx, userID, currentQuery, &SearchOptions{
		Limit:         contextRelatedFetch,
		IncludeRecent: &includeRecent,
	})
	if err != nil {
		return nil, err
	}

	var session []*model.Memory
	if sessionID != "" {
		session, err = uc.store.ListBySession(ctx, sessionID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load session memories", goerr.V("sessionID", sessionID))
		}
	}

	// Recent entries win ties over session entries: first occurrence is kept
	merged := make([]model.Memory, 0, len(recent)+len(session))
	seen := map[model.MemoryID]bool{}
	for _, mem := range append(append([]*model.Memory{}, recent...), session...) {
		if seen[mem.ID] {
			continue
		}
		seen[mem.ID] = true
		merged = append(merged, *mem)
	}

	if len(merged) > contextRecentLimit {
		merged = merged[:contextRecentLimit]
	}
	if len(related) > contextRelatedLimit {
		related = related[:contextRelatedLimit]
	}

	return &model.ContextualMemory{
		Recent:  merged,
		Related: related,
		Summary: contextSummary(merged, related),
	}, nil
}

// contextSummary renders the one-line digest of the surfaced memories,
// listing the distinct types in order of first appearance.
func contextSummary(recent []model.Memory, related []model.SearchResult) string {
	total := len(recent) + len(related)

	var order []string
	seen := map[types.MemoryType]bool{}
	note := func(t types.MemoryType) {
		if !seen[t] {
			seen[t] = true
			order = append(order, t.String())
		}
	}
	for _, mem := range recent {
		note(mem.Type)
	}
	for _, r := range related {
		note(r.Memory.Type)
	}

	return fmt.Sprintf("Context: %d memories available (%s)", total, strings.Join(order, ", "))
}

// List returns a user's memories, most recent first, optionally filtered
// by type. A non-positive limit selects the default of 50.
func (uc *UseCase) List(ctx context.Context, userID string, memType types.MemoryType, limit int) ([]*model.Memory, error) {
	if userID == "" {
		return nil, goerr.New("userId is required")
	}
	if limit <= 0 {
		limit = uc.listLimit
	}

	if memType != "" {
		if !memType.IsValid() {
			return nil, goerr.New("invalid memory type", goerr.V("type", memType))
		}
		return uc.store.ListByType(ctx, userID, memType, limit)
	}
	return uc.store.ListByUser(ctx, userID, limit)
}

// Stats reports a user's memory footprint. Totals come from the
// similarity index and are approximate; RecentActivity counts memories
// created within the last 24 hours among the ten most recent.
func (uc *UseCase) Stats(ctx context.Context, userID string) (*model.Stats, error) {
	if userID == "" {
		return nil, goerr.New("userId is required")
	}

	vectorStats, err := uc.index.Stats(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to collect index stats", goerr.V("userID", userID))
	}

	recent, err := uc.store.ListRecent(ctx, userID, statsRecentScan)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load recent memories", goerr.V("userID", userID))
	}

	cutoff := time.Now().Add(-statsActivityWindow)
	activity := 0
	for _, mem := range recent {
		if mem.Metadata.Timestamp.After(cutoff) {
			activity++
		}
	}

	return &model.Stats{
		Total:          vectorStats.Total,
		ByType:         vectorStats.ByType,
		RecentActivity: activity,
	}, nil
}

// Delete removes a memory from both stores. The vector entry is touched
// only when the attribute store actually held a record; the boolean
// reports whether one existed. A failed vector delete after a successful
// attribute delete surfaces as ErrConsistencyGap.
func (uc *UseCase) Delete(ctx context.Context, id model.MemoryID) (bool, error) {
	deleted, err := uc.store.Delete(ctx, id)
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete memory", goerr.V("memoryID", id))
	}
	if !deleted {
		return false, nil
	}

	if err := uc.index.Delete(ctx, id); err != nil {
		return true, goerr.Wrap(ErrConsistencyGap, "memory deleted but vector entry remains",
			goerr.V("memoryID", id),
			goerr.V("cause", err),
		)
	}

	return true, nil
}
