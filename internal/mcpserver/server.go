// Package mcpserver exposes vocabulary and snippet management as MCP tools
// over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"dictate/internal/dictionary"
	"dictate/internal/logging"
	"dictate/internal/snippet"
)

// Server holds the stores the tools act on.
type Server struct {
	words    *dictionary.Store
	snippets *snippet.Store
	version  string
	log      *zap.SugaredLogger
}

func New(words *dictionary.Store, snippets *snippet.Store, version string, log *zap.SugaredLogger) *Server {
	return &Server{words: words, snippets: snippets, version: version, log: logging.OrNop(log)}
}

// MCPServer builds the MCP server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("dictate", s.version, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("add_word",
		mcp.WithDescription("Teach the dictionary a correction. The spoken form is matched case-insensitively on word boundaries."),
		mcp.WithString("spoken", mcp.Required(), mcp.Description("What the recognizer writes, e.g. 'kuber netes'")),
		mcp.WithString("corrected", mcp.Required(), mcp.Description("What should be typed instead, e.g. 'Kubernetes'")),
	), s.addWord)
	srv.AddTool(mcp.NewTool("remove_word",
		mcp.WithDescription("Remove a dictionary correction."),
		mcp.WithString("spoken", mcp.Required(), mcp.Description("Spoken form to remove")),
	), s.removeWord)
	srv.AddTool(mcp.NewTool("list_words",
		mcp.WithDescription("List dictionary corrections."),
	), s.listWords)
	srv.AddTool(mcp.NewTool("add_snippet",
		mcp.WithDescription("Add a snippet: saying the trigger types the expansion."),
		mcp.WithString("trigger", mcp.Required(), mcp.Description("Spoken trigger phrase")),
		mcp.WithString("expansion", mcp.Required(), mcp.Description("Text to type")),
	), s.addSnippet)
	srv.AddTool(mcp.NewTool("remove_snippet",
		mcp.WithDescription("Remove a snippet."),
		mcp.WithString("trigger", mcp.Required(), mcp.Description("Trigger phrase to remove")),
	), s.removeSnippet)
	srv.AddTool(mcp.NewTool("list_snippets",
		mcp.WithDescription("List snippets."),
	), s.listSnippets)
	srv.AddTool(mcp.NewTool("preview",
		mcp.WithDescription("Show what dictionary correction and snippet expansion make of a transcript."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Transcript text")),
	), s.preview)

	return srv
}

// ServeStdio serves the tools on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	s.log.Infow("serving MCP on stdio", "words", s.words.Len(), "snippets", s.snippets.Len())
	return server.ServeStdio(s.MCPServer())
}

func (s *Server) addWord(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spoken, err := req.RequireString("spoken")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	corrected, err := req.RequireString("corrected")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.words.Add(spoken, corrected); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.log.Infow("word added", "spoken", spoken, "corrected", corrected)
	return mcp.NewToolResultText(fmt.Sprintf("%q → %q", spoken, corrected)), nil
}

func (s *Server) removeWord(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spoken, err := req.RequireString("spoken")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.words.Remove(spoken); err != nil {
		if errors.Is(err, dictionary.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no correction for %q", spoken)), nil
		}
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed %q", spoken)), nil
}

func (s *Server) listWords(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries := s.words.Entries()
	if len(entries) == 0 {
		return mcp.NewToolResultText("no words"), nil
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s → %s (%s)\n", e.Spoken, e.Corrected, e.Provenance)
	}
	return mcp.NewToolResultText(strings.TrimSuffix(b.String(), "\n")), nil
}

func (s *Server) addSnippet(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	trigger, err := req.RequireString("trigger")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	expansion, err := req.RequireString("expansion")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.snippets.Add(trigger, expansion); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.log.Infow("snippet added", "trigger", trigger)
	return mcp.NewToolResultText(fmt.Sprintf("snippet %q saved", trigger)), nil
}

func (s *Server) removeSnippet(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	trigger, err := req.RequireString("trigger")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.snippets.Remove(trigger); err != nil {
		if errors.Is(err, snippet.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no snippet %q", trigger)), nil
		}
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed %q", trigger)), nil
}

func (s *Server) listSnippets(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries := s.snippets.Entries()
	if len(entries) == 0 {
		return mcp.NewToolResultText("no snippets"), nil
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s → %q\n", e.Trigger, e.Expansion)
	}
	return mcp.NewToolResultText(strings.TrimSuffix(b.String(), "\n")), nil
}

func (s *Server) preview(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.snippets.Expand(s.words.Correct(text))), nil
}
