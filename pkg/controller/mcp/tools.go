package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shifanka/recall/pkg/domain/interfaces"
	"github.com/shifanka/recall/pkg/domain/model"
	"github.com/shifanka/recall/pkg/domain/types"
	"github.com/shifanka/recall/pkg/usecase"
)

type toolset struct {
	uc *usecase.UseCase
}

func textResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// truncate shortens s to at most n runes for display
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func joinTags(tags []string) string {
	if len(tags) == 0 {
		return "None"
	}
	return strings.Join(tags, ", ")
}

type storeMemoryParams struct {
	Content   string   `json:"content" jsonschema:"The content to store in memory"`
	Type      string   `json:"type,omitempty" jsonschema:"Type of content being stored: code, conversation, preference or general"`
	UserID    string   `json:"userId" jsonschema:"User identifier for memory ownership"`
	SessionID string   `json:"sessionId,omitempty" jsonschema:"Optional session identifier for grouping related memories"`
	Language  string   `json:"language,omitempty" jsonschema:"Programming language (for code type)"`
	Tags      []string `json:"tags,omitempty" jsonschema:"Tags for categorization"`
	Title     string   `json:"title,omitempty" jsonschema:"Optional title or summary"`
	Context   string   `json:"context,omitempty" jsonschema:"Additional context or explanation"`
}

func (ts *toolset) storeMemory(ctx context.Context, _ *mcp.CallToolRequest, params *storeMemoryParams) (*mcp.CallToolResult, any, error) {
	memType := types.MemoryType(params.Type)
	if params.Type == "" {
		memType = types.MemoryTypeGeneral
	}

	id, err := ts.uc.Store(ctx, &usecase.StoreInput{
		UserID:    params.UserID,
		Content:   params.Content,
		Type:      memType,
		SessionID: params.SessionID,
		Tags:      params.Tags,
		Language:  params.Language,
		Title:     params.Title,
		Context:   params.Context,
	})
	if err != nil {
		return textResult("Error storing memory: %v", err), nil, nil
	}

	return textResult("Successfully stored memory with ID: %s\nType: %s\nContent length: %d characters",
		id, memType, len(params.Content)), nil, nil
}

type searchMemoryParams struct {
	Query    string   `json:"query" jsonschema:"Search query to find relevant memories"`
	UserID   string   `json:"userId" jsonschema:"User identifier to search within user's memories"`
	Type     string   `json:"type,omitempty" jsonschema:"Filter by memory type"`
	Limit    int      `json:"limit,omitempty" jsonschema:"Maximum number of results to return (default 10)"`
	MinScore *float64 `json:"minScore,omitempty" jsonschema:"Minimum similarity score between 0 and 1 (default 0.7)"`
}

func (ts *toolset) searchMemory(ctx context.Context, _ *mcp.CallToolRequest, params *searchMemoryParams) (*mcp.CallToolResult, any, error) {
	results, err := ts.uc.Search(ctx, params.UserID, params.Query, &usecase.SearchOptions{
		Type:     types.MemoryType(params.Type),
		Limit:    params.Limit,
		MinScore: params.MinScore,
	})
	if err != nil {
		return textResult("Error searching memories: %v", err), nil, nil
	}

	if len(results) == 0 {
		return textResult("No memories found for query: %q", params.Query), nil, nil
	}

	entries := make([]string, len(results))
	for i, r := range results {
		entries[i] = fmt.Sprintf(
			"**Memory ID**: %s\n**Type**: %s\n**Similarity**: %.1f%%\n**Content**: %s\n**Tags**: %s\n**Created**: %s\n",
			r.Memory.ID,
			r.Memory.Type,
			r.Similarity*100,
			truncate(r.Memory.Content, 200),
			joinTags(r.Memory.Metadata.Tags),
			r.Memory.Metadata.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	return textResult("Found %d relevant memories for %q:\n\n%s",
		len(results), params.Query, strings.Join(entries, "\n---\n")), nil, nil
}

type getContextParams struct {
	UserID       string `json:"userId" jsonschema:"User identifier"`
	CurrentQuery string `json:"currentQuery" jsonschema:"Current conversation query or context"`
	SessionID    string `json:"sessionId,omitempty" jsonschema:"Current session identifier"`
}

func (ts *toolset) getContext(ctx context.Context, _ *mcp.CallToolRequest, params *getContextParams) (*mcp.CallToolResult, any, error) {
	contextual, err := ts.uc.Context(ctx, params.UserID, params.CurrentQuery, params.SessionID)
	if err != nil {
		return textResult("Error getting context: %v", err), nil, nil
	}

	var sb strings.Builder
	sb.WriteString(contextual.Summary)
	sb.WriteString("\n\n")

	if len(contextual.Recent) == 0 {
		sb.WriteString("No recent memories found.")
	} else {
		fmt.Fprintf(&sb, "**Recent Memories** (%d):\n", len(contextual.Recent))
		for _, mem := range contextual.Recent {
			fmt.Fprintf(&sb, "- [%s] %s\n", mem.Type, truncate(mem.Content, 100))
		}
	}

	if len(contextual.Related) == 0 {
		sb.WriteString("\n\nNo related memories found.")
	} else {
		fmt.Fprintf(&sb, "\n**Related Memories** (%d):\n", len(contextual.Related))
		for _, r := range contextual.Related {
			fmt.Fprintf(&sb, "- [%s] %.1f%% - %s\n", r.Memory.Type, r.Similarity*100, truncate(r.Memory.Content, 100))
		}
	}

	return textResult("%s", sb.String()), nil, nil
}

type listMemoriesParams struct {
	UserID    string `json:"userId" jsonschema:"User identifier"`
	Type      string `json:"type,omitempty" jsonschema:"Filter by memory type"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of memories to return (default 20)"`
	ShowStats *bool  `json:"showStats,omitempty" jsonschema:"Include memory statistics (default true)"`
}

const defaultListToolLimit = 20

func (ts *toolset) listMemories(ctx context.Context, _ *mcp.CallToolRequest, params *listMemoriesParams) (*mcp.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListToolLimit
	}

	memories, err := ts.uc.List(ctx, params.UserID, types.MemoryType(params.Type), limit)
	if err != nil {
		return textResult("Error listing memories: %v", err), nil, nil
	}

	var sb strings.Builder

	if params.ShowStats == nil || *params.ShowStats {
		stats, err := ts.uc.Stats(ctx, params.UserID)
		if err != nil {
			return textResult("Error listing memories: %v", err), nil, nil
		}

		sb.WriteString("**Memory Statistics**\n")
		fmt.Fprintf(&sb, "Total memories: %d\n", stats.Total)
		fmt.Fprintf(&sb, "Recent activity (24h): %d\n", stats.RecentActivity)
		fmt.Fprintf(&sb, "By type: %s\n\n", formatByType(stats.ByType))
	}

	if len(memories) == 0 {
		if params.Type != "" {
			fmt.Fprintf(&sb, "No memories found of type: %s", params.Type)
		} else {
			sb.WriteString("No memories found for this user.")
		}
		return textResult("%s", sb.String()), nil, nil
	}

	if params.Type != "" {
		fmt.Fprintf(&sb, "**Memories** (%s):\n\n", params.Type)
	} else {
		sb.WriteString("**Memories**:\n\n")
	}

	entries := make([]string, len(memories))
	for i, mem := range memories {
		entries[i] = fmt.Sprintf("**%s** [%s]\n%s\nTags: %s | Created: %s\n",
			mem.ID,
			mem.Type,
			truncate(mem.Content, 150),
			joinTags(mem.Metadata.Tags),
			mem.Metadata.Timestamp.Format("2006-01-02"),
		)
	}
	sb.WriteString(strings.Join(entries, "\n---\n"))

	return textResult("%s", sb.String()), nil, nil
}

// formatByType renders type counts in the enum's declaration order so the
// output is stable across calls
func formatByType(byType map[string]int) string {
	var parts []string
	for _, t := range types.AllMemoryTypes() {
		if count, ok := byType[t.String()]; ok {
			parts = append(parts, fmt.Sprintf("%s: %d", t, count))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

type deleteMemoryParams struct {
	MemoryID string `json:"memoryId" jsonschema:"ID of the memory to delete"`
	UserID   string `json:"userId" jsonschema:"User identifier for verification"`
}

func (ts *toolset) deleteMemory(ctx context.Context, _ *mcp.CallToolRequest, params *deleteMemoryParams) (*mcp.CallToolResult, any, error) {
	// Ownership check happens here, before the engine is asked to delete
	mem, err := ts.uc.Get(ctx, model.MemoryID(params.MemoryID))
	if err != nil {
		if errors.Is(err, interfaces.ErrMemoryNotFound) {
			return textResult("Memory not found: %s", params.MemoryID), nil, nil
		}
		return textResult("Error deleting memory: %v", err), nil, nil
	}

	if mem.UserID != params.UserID {
		return textResult("Access denied: Memory %s does not belong to user %s",
			params.MemoryID, params.UserID), nil, nil
	}

	deleted, err := ts.uc.Delete(ctx, model.MemoryID(params.MemoryID))
	if err != nil {
		return textResult("Error deleting memory: %v", err), nil, nil
	}
	if !deleted {
		return textResult("Failed to delete memory: %s", params.MemoryID), nil, nil
	}

	return textResult("Successfully deleted memory: %s", params.MemoryID), nil, nil
}
