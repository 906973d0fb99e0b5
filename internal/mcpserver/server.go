// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Luhmann index tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/luhmann/internal/models"
	"github.com/starford/luhmann/internal/navigator"
	"github.com/starford/luhmann/internal/noteservice"
	"github.com/starford/luhmann/internal/view"
)

// IDFormatURI is the resource describing the note naming contract.
const IDFormatURI = "luhmann://id-format"

// Server wraps the MCP server with Luhmann tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all Luhmann tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Luhmann",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	commands := make([]string, len(navigator.Commands))
	for i, c := range navigator.Commands {
		commands[i] = string(c)
	}

	s.mcp.AddTool(mcp.NewTool("luhmann_view",
		mcp.WithDescription("Show a Luhmann index view: its lines, cursor and highlighted line."),
		mcp.WithString("view", mcp.Description("View name (default \"main\")")),
	), s.luhmannView)

	s.mcp.AddTool(mcp.NewTool("luhmann_navigate",
		mcp.WithDescription("Run a navigation command against a view and return the new view. "+
			"Read the luhmann://id-format resource for what each command does."),
		mcp.WithString("command", mcp.Required(), mcp.Enum(commands...), mcp.Description("Navigation command")),
		mcp.WithString("view", mcp.Description("View name (default \"main\")")),
		mcp.WithNumber("n", mcp.Description("Depth for the depth command (1-9)")),
	), s.luhmannNavigate)

	s.mcp.AddTool(mcp.NewTool("luhmann_cursor",
		mcp.WithDescription("Move the cursor of a view to a line (0-based)."),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("Line number")),
		mcp.WithString("view", mcp.Description("View name (default \"main\")")),
	), s.luhmannCursor)

	s.mcp.AddTool(mcp.NewTool("luhmann_open",
		mcp.WithDescription("Open a note by Luhmann ID, primary ID or fuzzy title and make it the active note of the view."),
		mcp.WithString("query", mcp.Required(), mcp.Description("e.g. \"1,2\", \"202012091130\" or \"slip boxes\"")),
		mcp.WithString("view", mcp.Description("View name (default \"main\")")),
	), s.luhmannOpen)

	s.mcp.AddTool(mcp.NewTool("luhmann_create_note",
		mcp.WithDescription("Create a note as the next child of a parent Luhmann ID. "+
			"The server allocates both the primary ID and the Luhmann ID."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("parent", mcp.Description("Parent Luhmann ID, empty for a new top-level note")),
		mcp.WithString("body", mcp.Description("Markdown body")),
	), s.luhmannCreateNote)

	s.mcp.AddTool(mcp.NewTool("luhmann_tree",
		mcp.WithDescription("Render the whole Luhmann hierarchy as an indented tree."),
	), s.luhmannTree)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through notes content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("branch", mcp.Description("Only search this Luhmann ID and its descendants, e.g. \"1,2\"")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its parent and children."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
	), s.readNote)

	s.mcp.AddResource(
		mcp.NewResource(IDFormatURI, "Luhmann ID Naming Contract",
			mcp.WithResourceDescription("How notes are named and how the Luhmann index is navigated."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readIDFormatResource,
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

// viewName returns the optional "view" argument.
func viewName(req mcp.CallToolRequest) string {
	if v, err := req.RequireString("view"); err == nil && v != "" {
		return v
	}
	return noteservice.DefaultView
}

// viewText renders b the way the CLI prints it, without styling.
func viewText(b *view.Buffer) string {
	var sb strings.Builder
	_ = view.Print(&sb, b, view.PlainStyles())
	return sb.String()
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) luhmannView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := s.svc.View(ctx, viewName(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(viewText(b)), nil
}

func (s *Server) luhmannNavigate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cmd, err := navigator.ParseCommand(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.svc.Navigate(ctx, viewName(req), cmd, req.GetInt("n", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(viewText(b)), nil
}

func (s *Server) luhmannCursor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, err := req.RequireInt("line")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.svc.SetCursor(ctx, viewName(req), line)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(viewText(b)), nil
}

func (s *Server) luhmannOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, b, err := s.svc.Open(ctx, viewName(req), query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(struct {
		Note *models.Note           `json:"note"`
		View noteservice.ViewDetail `json:"view"`
	}{Note: note, View: noteservice.NewViewDetail(b)}), nil
}

func (s *Server) luhmannCreateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in := noteservice.CreateNoteInput{Title: title}
	if p, err := req.RequireString("parent"); err == nil {
		in.Parent = p
	}
	if body, err := req.RequireString("body"); err == nil {
		in.Body = body
	}
	note, err := s.svc.CreateNote(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.Path)), nil
}

func (s *Server) luhmannTree(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.svc.Tree(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	branch := ""
	if b, err := req.RequireString("branch"); err == nil {
		branch = b
	}
	results, err := s.svc.Search(ctx, query, branch, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return jsonResult(note), nil
}

func (s *Server) readIDFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      IDFormatURI,
			MIMEType: "text/markdown",
			Text:     IDFormatContract(s.svc.Grammar()),
		},
	}, nil
}
