package mcpserver

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"dictate/internal/dictionary"
	"dictate/internal/snippet"
)

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text, res.IsError
	case *mcp.TextContent:
		return c.Text, res.IsError
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return "", false
}

func newTestServer() *Server {
	return New(dictionary.New(nil), snippet.New(nil), "test", nil)
}

func TestWordTools(t *testing.T) {
	s := newTestServer()
	if _, isErr := call(t, s.addWord, map[string]any{"spoken": "kuber netes", "corrected": "Kubernetes"}); isErr {
		t.Fatalf("add_word reported an error")
	}
	text, _ := call(t, s.listWords, nil)
	if text != "kuber netes → Kubernetes (manual)" {
		t.Fatalf("unexpected list %q", text)
	}
	if _, isErr := call(t, s.removeWord, map[string]any{"spoken": "Kuber Netes"}); isErr {
		t.Fatalf("remove_word reported an error")
	}
	if text, isErr := call(t, s.removeWord, map[string]any{"spoken": "kuber netes"}); !isErr || text != `no correction for "kuber netes"` {
		t.Fatalf("expected not-found error, got %q", text)
	}
	if text, _ := call(t, s.listWords, nil); text != "no words" {
		t.Fatalf("unexpected list %q", text)
	}
}

func TestMissingArgumentIsToolError(t *testing.T) {
	s := newTestServer()
	if _, isErr := call(t, s.addWord, map[string]any{"spoken": "x"}); !isErr {
		t.Fatalf("expected tool error for missing corrected")
	}
	if s.words.Len() != 0 {
		t.Fatalf("nothing should be stored")
	}
}

func TestSnippetToolsAndPreview(t *testing.T) {
	s := newTestServer()
	call(t, s.addWord, map[string]any{"spoken": "get hub", "corrected": "GitHub"})
	call(t, s.addSnippet, map[string]any{"trigger": "my repo", "expansion": "github.com/jo/dictate"})

	text, _ := call(t, s.preview, map[string]any{"text": "push to get hub at my repo"})
	if text != "push to GitHub at github.com/jo/dictate" {
		t.Fatalf("unexpected preview %q", text)
	}
	if text, _ := call(t, s.listSnippets, nil); text != `my repo → "github.com/jo/dictate"` {
		t.Fatalf("unexpected list %q", text)
	}
	if _, isErr := call(t, s.removeSnippet, map[string]any{"trigger": "nope"}); !isErr {
		t.Fatalf("expected not-found error")
	}
}

func TestMCPServerBuilds(t *testing.T) {
	if newTestServer().MCPServer() == nil {
		t.Fatalf("expected server")
	}
}
