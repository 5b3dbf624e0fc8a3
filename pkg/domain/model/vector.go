package model

import (
	"strings"
	"time"

	"github.com/shifanka/recall/pkg/domain/types"
)

// ContentPreviewLimit bounds the content excerpt stored as vector metadata.
// The similarity index is not the source of truth for content; full records
// live in the attribute store.
const ContentPreviewLimit = 500

// VectorMeta is the flattened metadata projection stored alongside an
// embedding. The index only supports scalar values, so tags are joined and
// optional fields collapse to empty strings.
type VectorMeta struct {
	UserID    string
	Type      string
	Timestamp time.Time
	Content   string
	Tags      string
	Language  string
	Title     string
	SessionID string
}

// VectorRecord is an (id, embedding, metadata) tuple for upsert into the
// similarity index.
type VectorRecord struct {
	ID        MemoryID
	Embedding []float32
	Meta      VectorMeta
}

// NewVectorRecord projects a memory into its similarity index entry
func NewVectorRecord(m *Memory, embedding []float32) *VectorRecord {
	content := m.Content
	if runes := []rune(content); len(runes) > ContentPreviewLimit {
		content = string(runes[:ContentPreviewLimit])
	}

	return &VectorRecord{
		ID:        m.ID,
		Embedding: embedding,
		Meta: VectorMeta{
			UserID:    m.UserID,
			Type:      m.Type.String(),
			Timestamp: m.Metadata.Timestamp,
			Content:   content,
			Tags:      strings.Join(m.Metadata.Tags, ","),
			Language:  m.Metadata.Language,
			Title:     m.Metadata.Title,
			SessionID: m.SessionID,
		},
	}
}

// VectorFilter restricts a similarity query with conjunctive equality
// conditions. UserID is always required; Type is optional.
type VectorFilter struct {
	UserID string
	Type   types.MemoryType
}

// VectorMatch is one ranked entry of a similarity query. Score lies in
// [0,1], higher is more similar.
type VectorMatch struct {
	ID    MemoryID
	Score float64
	Meta  VectorMeta
}

// VectorStats is the approximate per-user aggregation obtained from the
// similarity index.
type VectorStats struct {
	Total  int
	ByType map[string]int
}
