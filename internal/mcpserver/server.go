// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the notebook to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tissue/internal/apperr"
	"github.com/starford/tissue/internal/noteservice"
)

const noteFormatURI = "tissue://note-format"

// Server wraps the MCP server with notebook tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"tissue",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("query_notes",
		mcp.WithDescription("List notes selected by tags. Notes carrying any include tag are candidates "+
			"(every note when include is empty); notes carrying any exclude tag are removed."),
		mcp.WithString("include", mcp.Description("Space or comma separated tags to include")),
		mcp.WithString("exclude", mcp.Description("Space or comma separated tags to exclude")),
	), s.queryNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note in its text encoding."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note identifier")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List known tags."),
		mcp.WithString("query", mcp.Description("Only tags containing this substring")),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note from its text encoding. Read the format first via "+
			"get_note_format or the "+noteFormatURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note text following the tissue note format")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace a note. The identifier is kept whatever the title line says."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Identifier of the note to replace")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New note text")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles, bodies and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("get_note_format",
		mcp.WithDescription("Returns the note text format. "+
			"Call this before creating or updating notes."),
	), s.getNoteFormat)

	s.mcp.AddResource(
		mcp.NewResource(noteFormatURI, "Note Format",
			mcp.WithResourceDescription("Text encoding that every note follows."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

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

// optionalString returns the argument or "" when it is absent.
func optionalString(req mcp.CallToolRequest, key string) string {
	v, err := req.RequireString(key)
	if err != nil {
		return ""
	}
	return v
}

func splitTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '#'
	})
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	case errors.Is(err, apperr.ErrEmptyNote):
		return mcp.NewToolResultError("note has no title and no text")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

type listedNote struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func (s *Server) queryNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes := s.svc.Query(ctx, splitTags(optionalString(req, "include")), splitTags(optionalString(req, "exclude")))
	out := make([]listedNote, len(notes))
	for i, n := range notes {
		out[i] = listedNote{ID: n.ID, Title: n.Title, Tags: n.Tags.Sorted()}
	}
	return jsonResult(out)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Get(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(d.Content), nil
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags := s.svc.Tags(ctx, optionalString(req, "query"))
	return mcp.NewToolResultText(strings.Join(tags, "\n")), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Create(ctx, []byte(content))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", d.ID)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Update(ctx, id, []byte(content), "")
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", d.ID)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getNoteFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      noteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
