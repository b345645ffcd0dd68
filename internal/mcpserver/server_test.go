package mcpserver

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/gebo/internal/market"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/store"
)

func testServer(t *testing.T) (*Server, *store.DB) {
	t.Helper()

	dbFile, err := os.CreateTemp("", "gebo-mcp-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	srv := New(db, market.New(db))
	return srv, db
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper; call the handler
	// functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "get_summary":
		result, err = srv.getSummary(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "user_shelf":
		result, err = srv.userShelf(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func seedNote(t *testing.T, db *store.DB) {
	t.Helper()
	err := db.InsertNote(models.Note{
		ID:            "n1",
		Filename:      "calc.pdf",
		Title:         "Calculus",
		Description:   "Derivatives and integrals",
		UploaderEmail: "u@x.com",
		UploaderName:  "Uploader",
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	err = db.SaveSummary(models.Summary{
		NoteID:  "n1",
		Summary: "Covers derivatives.",
		QnA:     []models.QAPair{{Question: "Q?", Answer: "A."}},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSearchNotesTool(t *testing.T) {
	srv, db := testServer(t)
	seedNote(t, db)

	result := callTool(t, srv, "search_notes", map[string]interface{}{"query": "Calculus"})
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(result))
	}
	if !strings.Contains(resultText(result), "n1") {
		t.Errorf("result = %s", resultText(result))
	}
}

func TestGetSummaryTool(t *testing.T) {
	srv, db := testServer(t)
	seedNote(t, db)

	result := callTool(t, srv, "get_summary", map[string]interface{}{"note_id": "n1"})
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(result))
	}
	text := resultText(result)
	if !strings.Contains(text, "Covers derivatives.") || !strings.Contains(text, "Q?") {
		t.Errorf("result = %s", text)
	}

	result = callTool(t, srv, "get_summary", map[string]interface{}{"note_id": "ghost"})
	if !result.IsError {
		t.Error("missing note should be a tool error")
	}
}

func TestListNotesTool(t *testing.T) {
	srv, db := testServer(t)
	seedNote(t, db)

	result := callTool(t, srv, "list_notes", nil)
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(result))
	}
	if !strings.Contains(resultText(result), "Calculus") {
		t.Errorf("result = %s", resultText(result))
	}
}

func TestUserShelfTool(t *testing.T) {
	srv, db := testServer(t)
	seedNote(t, db)
	if err := db.AddOwnedNote("u@x.com", "n1"); err != nil {
		t.Fatal(err)
	}

	result := callTool(t, srv, "user_shelf", map[string]interface{}{"email": "u@x.com"})
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(result))
	}
	if !strings.Contains(resultText(result), "uploadedNotes") {
		t.Errorf("result = %s", resultText(result))
	}

	result = callTool(t, srv, "user_shelf", map[string]interface{}{})
	if !result.IsError {
		t.Error("missing email should be a tool error")
	}
}
