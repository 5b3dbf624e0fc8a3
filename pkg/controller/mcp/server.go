// Package mcp exposes the memory engine as MCP tools. Tool handlers
// render failures as descriptive text so that a misbehaving call degrades
// to an explanatory message instead of a protocol error.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shifanka/recall/pkg/usecase"
)

const serverName = "recall"

// New builds an MCP server with the memory tools registered. The caller
// picks the transport: Run with a StdioTransport, or wrap it into a
// streamable HTTP handler.
func New(uc *usecase.UseCase, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version,
	}, nil)

	ts := &toolset{uc: uc}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "store_memory",
		Description: "Store content in persistent memory with semantic search capabilities. Supports code snippets, conversations, preferences, and general knowledge.",
	}, ts.storeMemory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_memory",
		Description: "Search through stored memories using semantic similarity. Returns relevant memories based on content meaning, not just keywords.",
	}, ts.searchMemory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_context",
		Description: "Retrieve contextual memory including recent interactions and related content for the current conversation.",
	}, ts.getContext)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_memories",
		Description: "List stored memories with optional filtering by type. Shows memory overview and statistics.",
	}, ts.listMemories)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_memory",
		Description: "Delete a specific memory by ID. This removes the memory from both the attribute store and the vector index.",
	}, ts.deleteMemory)

	return server
}
