// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes marketplace tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gebo/internal/market"
	"github.com/starford/gebo/internal/store"
)

// Server wraps the MCP server with marketplace tools.
type Server struct {
	mcp    *server.MCPServer
	db     *store.DB
	market *market.Service
}

// New creates a new MCP server with all marketplace tools registered.
func New(db *store.DB, mkt *market.Service) *Server {
	s := &Server{db: db, market: mkt}

	s.mcp = server.NewMCPServer(
		"Gebo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles, descriptions, and summaries."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("get_summary",
		mcp.WithDescription("Read the generated summary and quiz pairs for a note."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("ID of the note")),
	), s.getSummary)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes in the marketplace catalog."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("user_shelf",
		mcp.WithDescription("List the notes a user uploaded and bought."),
		mcp.WithString("email", mcp.Required(), mcp.Description("Email of the user")),
	), s.userShelf)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getSummary(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := s.db.GetSummary(noteID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", noteID)), nil
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.market.Catalog()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) userShelf(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	email, err := req.RequireString("email")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	shelf, err := s.market.Shelf(email)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(shelf, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
