package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shifanka/recall/pkg/domain/types"
)

// EmbeddingDimension is the default vector dimension for memory embeddings.
// It matches OpenAI's text-embedding-3-small output and can be overridden
// at construction for other models.
const EmbeddingDimension = 1536

// RecencyFallbackScore is assigned to search results that were included by
// recency backfill rather than semantic similarity. The exact value is part
// of the result contract and must not change.
const RecencyFallbackScore = 0.5

// MemoryID is a UUID-based identifier for Memory
type MemoryID string

// NewMemoryID generates a new UUID v4 MemoryID
func NewMemoryID() MemoryID {
	return MemoryID(uuid.New().String())
}

// String returns the string representation of the memory ID
func (id MemoryID) String() string {
	return string(id)
}

// Memory is the unit of storage: a piece of content an agent can later
// retrieve by recency or semantic similarity. A Memory is created once and
// never updated in place; editing means delete and recreate.
type Memory struct {
	ID        MemoryID         `json:"id"`
	UserID    string           `json:"userId"`
	SessionID string           `json:"sessionId,omitempty"`
	Type      types.MemoryType `json:"type"`
	Content   string           `json:"content"`
	Metadata  Metadata         `json:"metadata"`
}

// Metadata carries auxiliary attributes of a Memory. Timestamp is assigned
// at creation and never mutated afterwards.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Tags      []string  `json:"tags,omitempty"`
	Language  string    `json:"language,omitempty"`
	Title     string    `json:"title,omitempty"`
	Context   string    `json:"context,omitempty"`
	Source    string    `json:"source,omitempty"`
}

// Clone returns a deep copy of the memory
func (m *Memory) Clone() *Memory {
	copied := *m
	if m.Metadata.Tags != nil {
		copied.Metadata.Tags = make([]string, len(m.Metadata.Tags))
		copy(copied.Metadata.Tags, m.Metadata.Tags)
	}
	return &copied
}

// SearchResult pairs a Memory with its match quality. Score and Similarity
// lie in [0,1]; recency-backfilled entries carry RecencyFallbackScore in
// both fields.
type SearchResult struct {
	Memory     Memory  `json:"memory"`
	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// ContextualMemory is an ephemeral, request-scoped aggregate of recent and
// semantically related memories. It is never persisted.
type ContextualMemory struct {
	Recent  []Memory       `json:"recent"`
	Related []SearchResult `json:"related"`
	Summary string         `json:"summary"`
}

// Stats summarizes a user's memory footprint. Total and ByType come from
// the similarity index and are approximate (capped by the index scan
// ceiling); RecentActivity counts memories created within the last 24
// hours among the most recent ten.
type Stats struct {
	Total          int            `json:"total"`
	ByType         map[string]int `json:"byType"`
	RecentActivity int            `json:"recentActivity"`
}
