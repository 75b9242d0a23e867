// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Tablero tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tablero/internal/dashboard"
	"github.com/starford/tablero/internal/models"
)

const documentFormatURI = "tablero://document-format"

// Server wraps the MCP server with Tablero tools.
type Server struct {
	mcp *server.MCPServer
	svc *dashboard.Service
}

// New creates a new MCP server with all Tablero tools registered.
func New(svc *dashboard.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Tablero",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	scope := mcp.WithString("scope",
		mcp.Description(`"view" (default) for the folder being viewed, "root" for the root list`),
		mcp.Enum(string(dashboard.ScopeView), string(dashboard.ScopeRoot)),
	)

	s.mcp.AddTool(mcp.NewTool("get_view",
		mcp.WithDescription("Show the folder currently being viewed: its path, breadcrumbs and tiles."),
	), s.getView)

	s.mcp.AddTool(mcp.NewTool("enter_folder",
		mcp.WithDescription("Open the folder at index of the current view."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Container index of a folder in the current view")),
	), s.enterFolder)

	s.mcp.AddTool(mcp.NewTool("go_back",
		mcp.WithDescription("Go up one folder level. Does nothing at the root."),
	), s.goBack)

	s.mcp.AddTool(mcp.NewTool("add_link",
		mcp.WithDescription("Add a link at the head of the current view."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Absolute URL")),
	), s.addLink)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Add a note at the head of the root list. Content is HTML and is sanitized. "+
			"Read the tablero://document-format resource for limits."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Note body as HTML")),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("add_folder",
		mcp.WithDescription("Add an empty folder at the end of the current view."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Folder name")),
	), s.addFolder)

	s.mcp.AddTool(mcp.NewTool("move_tile",
		mcp.WithDescription("Move the tile at from to position to. With into=true, move the link or note "+
			"at from into the folder at to instead."),
		mcp.WithNumber("from", mcp.Required(), mcp.Description("Container index of the tile to move")),
		mcp.WithNumber("to", mcp.Required(), mcp.Description("Target container index")),
		mcp.WithBoolean("into", mcp.Description("Move into the folder at to")),
		scope,
	), s.moveTile)

	s.mcp.AddTool(mcp.NewTool("delete_tile",
		mcp.WithDescription("Move a tile to the trash."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Container index of the tile")),
		scope,
	), s.deleteTile)

	s.mcp.AddTool(mcp.NewTool("list_trash",
		mcp.WithDescription("List trashed tiles, most recent first."),
	), s.listTrash)

	s.mcp.AddTool(mcp.NewTool("restore_tile",
		mcp.WithDescription("Restore a trashed tile to the head of the root list."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Trash index from list_trash")),
	), s.restoreTile)

	s.mcp.AddTool(mcp.NewTool("set_tile_icon",
		mcp.WithDescription("Set the custom icon of a link from an http(s) URL or a base64 data URI. "+
			"The content must be an image of at most 1 MB."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Container index of the link")),
		mcp.WithString("source", mcp.Required(), mcp.Description("Image URL or data URI")),
		scope,
	), s.setTileIcon)

	s.mcp.AddTool(mcp.NewTool("save_now",
		mcp.WithDescription("Write the document to the on-disk mirror right away and report the sync status."),
	), s.saveNow)

	// Resource: document format.
	s.mcp.AddResource(
		mcp.NewResource(documentFormatURI, "Document Format",
			mcp.WithResourceDescription("Tile types, document keys and how tool indices address tiles."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormat,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func scopeArg(req mcp.CallToolRequest) dashboard.Scope {
	return dashboard.Scope(req.GetString("scope", string(dashboard.ScopeView)))
}

func (s *Server) getView(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.View())
}

func (s *Server) enterFolder(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.Enter(index)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

func (s *Server) goBack(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Back())
}

func (s *Server) add(ctx context.Context, nt dashboard.NewTile) (*mcp.CallToolResult, error) {
	tile, err := s.svc.AddTile(ctx, nt)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tile)
}

func (s *Server) addLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.add(ctx, dashboard.NewTile{Type: models.KindLink, Name: name, URL: url})
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.add(ctx, dashboard.NewTile{Type: models.KindNote, Name: name, Content: req.GetString("content", "")})
}

func (s *Server) addFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.add(ctx, dashboard.NewTile{Type: models.KindFolder, Name: name})
}

func (s *Server) moveTile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireInt("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireInt("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if req.GetBool("into", false) {
		moved, err := s.svc.MoveIntoFolder(ctx, scopeArg(req), from, to)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !moved {
			return mcp.NewToolResultError("only links and notes can be moved into a folder"), nil
		}
		return jsonResult(s.svc.View())
	}
	if err := s.svc.MoveTile(ctx, scopeArg(req), from, to); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.View())
}

func (s *Server) deleteTile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.svc.DeleteTile(ctx, scopeArg(req), index)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved to trash: %s", item.Tile.Name)), nil
}

func (s *Server) listTrash(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	trash := s.svc.Trash()
	if len(trash) == 0 {
		return mcp.NewToolResultText("trash is empty"), nil
	}
	return jsonResult(trash)
}

func (s *Server) restoreTile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tile, err := s.svc.Restore(ctx, index)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("restored: %s", tile.Name)), nil
}

func (s *Server) saveNow(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.svc.SaveNow(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.SyncStatus())
}

func (s *Server) readDocumentFormat(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      documentFormatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormat,
		},
	}, nil
}
