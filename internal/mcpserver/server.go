// Package mcpserver exposes the stored library to agents over MCP stdio.
// All tools are read-only.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jwulff/subplay/internal/cue"
	"github.com/jwulff/subplay/internal/db"
	"github.com/jwulff/subplay/internal/share"
	"github.com/jwulff/subplay/internal/transcript"
)

// Server answers tool calls from the store.
type Server struct {
	store        *db.Store
	shareBaseURL string
}

// New returns a Server reading from store.
func New(store *db.Store, shareBaseURL string) *Server {
	return &Server{store: store, shareBaseURL: shareBaseURL}
}

// MCP builds the MCP server with every tool registered.
func (s *Server) MCP(version string) *server.MCPServer {
	srv := server.NewMCPServer("subplay", version, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("list_media",
		mcp.WithDescription("List stored media files with their keys."),
	), s.listMedia)

	srv.AddTool(mcp.NewTool("get_transcript",
		mcp.WithDescription("Get the subtitle entries saved for a media key."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Media key from list_media")),
	), s.getTranscript)

	srv.AddTool(mcp.NewTool("active_entry",
		mcp.WithDescription("Find the subtitle entries active at a playback position."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Media key from list_media")),
		mcp.WithNumber("seconds", mcp.Required(), mcp.Description("Playback position in seconds")),
	), s.activeEntry)

	srv.AddTool(mcp.NewTool("share_link",
		mcp.WithDescription("Build shareable links for a media key's transcript."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Media key from list_media")),
	), s.shareLink)

	return srv
}

// Serve runs the server on stdin/stdout until the client disconnects.
func (s *Server) Serve(version string) error {
	slog.Info("mcp: serving on stdio")
	return server.ServeStdio(s.MCP(version))
}

func (s *Server) listMedia(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.store.ListMedia(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if items == nil {
		items = []db.MediaSummary{}
	}
	return jsonResult(items)
}

func (s *Server) getTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, res := s.transcript(ctx, key)
	if res != nil {
		return res, nil
	}
	return jsonResult(entries)
}

type activeResult struct {
	Seconds float64            `json:"seconds"`
	Active  []transcript.Entry `json:"active"`
	// Index is the entry navigation treats as current, or -1 before the
	// first entry starts.
	Index int `json:"index"`
}

func (s *Server) activeEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	seconds, err := req.RequireFloat("seconds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, res := s.transcript(ctx, key)
	if res != nil {
		return res, nil
	}

	engine := cue.NewEngine(entries)
	out := activeResult{Seconds: seconds, Active: engine.ActiveEntries(seconds), Index: -1}
	if out.Active == nil {
		out.Active = []transcript.Entry{}
	}
	if i, ok := engine.ActiveIndex(seconds); ok {
		out.Index = i
	}
	return jsonResult(out)
}

type links struct {
	FragmentURL string `json:"fragment_url"`
	SessionURL  string `json:"session_url"`
}

func (s *Server) shareLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, res := s.transcript(ctx, key)
	if res != nil {
		return res, nil
	}

	var out links
	if out.FragmentURL, err = share.FragmentURL(s.shareBaseURL, transcript.Format(entries)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if out.SessionURL, err = share.SessionURL(s.shareBaseURL, key); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

// transcript loads the entries for key, or an error result to return as is.
func (s *Server) transcript(ctx context.Context, key string) ([]transcript.Entry, *mcp.CallToolResult) {
	rec, err := s.store.LoadTranscript(ctx, key)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	if rec == nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("no transcript saved for %q", key))
	}
	return rec.Entries, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
