package mcpserver

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/tablero/internal/dashboard"
	"github.com/starford/tablero/internal/fileworker"
	"github.com/starford/tablero/internal/persist"
	"github.com/starford/tablero/internal/testutil"
)

func testServer(t *testing.T) (*Server, *dashboard.Service) {
	t.Helper()

	coord := persist.NewCoordinator(
		testutil.TestKV(t, "local"),
		testutil.TestKV(t, "synced"),
		fileworker.New(testutil.Logger()),
		testutil.Logger(),
	)
	loaded, err := coord.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	svc := dashboard.NewService(coord, testutil.Logger())
	svc.Apply(loaded.Doc)
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called
	// directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_view":
		result, err = srv.getView(ctx, req)
	case "enter_folder":
		result, err = srv.enterFolder(ctx, req)
	case "go_back":
		result, err = srv.goBack(ctx, req)
	case "add_link":
		result, err = srv.addLink(ctx, req)
	case "add_note":
		result, err = srv.addNote(ctx, req)
	case "add_folder":
		result, err = srv.addFolder(ctx, req)
	case "move_tile":
		result, err = srv.moveTile(ctx, req)
	case "delete_tile":
		result, err = srv.deleteTile(ctx, req)
	case "list_trash":
		result, err = srv.listTrash(ctx, req)
	case "restore_tile":
		result, err = srv.restoreTile(ctx, req)
	case "set_tile_icon":
		result, err = srv.setTileIcon(ctx, req)
	case "save_now":
		result, err = srv.saveNow(ctx, req)
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

func TestFolderWorkflow(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "add_folder", map[string]interface{}{"name": "Work"})
	if r.IsError {
		t.Fatalf("add_folder: %s", resultText(r))
	}
	r = callTool(t, srv, "move_tile", map[string]interface{}{"from": 0, "to": 4, "into": true})
	if r.IsError {
		t.Fatalf("move_tile: %s", resultText(r))
	}

	r = callTool(t, srv, "enter_folder", map[string]interface{}{"index": 3})
	if r.IsError {
		t.Fatalf("enter_folder: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"YouTube"`) {
		t.Errorf("view = %s", resultText(r))
	}

	r = callTool(t, srv, "add_link", map[string]interface{}{"name": "Docs", "url": "https://docs.example.com/"})
	if r.IsError {
		t.Fatalf("add_link: %s", resultText(r))
	}
	if v := svc.View(); len(v.Tiles) != 2 || v.Tiles[0].Name != "Docs" {
		t.Errorf("Work = %+v", v.Tiles)
	}

	r = callTool(t, srv, "go_back", nil)
	if !strings.Contains(resultText(r), `"isRoot": true`) {
		t.Errorf("go_back = %s", resultText(r))
	}
}

func TestEnterLinkFails(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "enter_folder", map[string]interface{}{"index": 0})
	if !r.IsError {
		t.Error("expected error entering a link")
	}
	r = callTool(t, srv, "enter_folder", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without index")
	}
}

func TestMoveFolderIntoFolderRefused(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "add_folder", map[string]interface{}{"name": "A"})
	callTool(t, srv, "add_folder", map[string]interface{}{"name": "B"})
	r := callTool(t, srv, "move_tile", map[string]interface{}{"from": 4, "to": 5, "into": true})
	if !r.IsError {
		t.Error("expected folders not to nest")
	}
}

func TestNoteAndTrash(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "add_note", map[string]interface{}{
		"name":    "Ideas",
		"content": "<p>ship</p><script>x()</script>",
	})
	if r.IsError {
		t.Fatalf("add_note: %s", resultText(r))
	}
	notes := svc.Notes()
	if len(notes) != 1 || notes[0].Tile.Content != "<p>ship</p>" {
		t.Fatalf("notes = %+v", notes)
	}

	r = callTool(t, srv, "delete_tile", map[string]interface{}{"index": 0, "scope": "root"})
	if resultText(r) != "moved to trash: Ideas" {
		t.Errorf("delete = %q", resultText(r))
	}
	r = callTool(t, srv, "list_trash", nil)
	if !strings.Contains(resultText(r), "Ideas") {
		t.Errorf("trash = %s", resultText(r))
	}
	r = callTool(t, srv, "restore_tile", map[string]interface{}{"index": 0})
	if resultText(r) != "restored: Ideas" {
		t.Errorf("restore = %q", resultText(r))
	}
	r = callTool(t, srv, "list_trash", nil)
	if resultText(r) != "trash is empty" {
		t.Errorf("trash = %q", resultText(r))
	}
}

func TestSetTileIconFromDataURI(t *testing.T) {
	srv, svc := testServer(t)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	r := callTool(t, srv, "set_tile_icon", map[string]interface{}{"index": 0, "source": uri})
	if r.IsError {
		t.Fatalf("set_tile_icon: %s", resultText(r))
	}
	icon := svc.View().Tiles[0].CustomIcon
	if icon == nil || !strings.HasPrefix(*icon, "data:image/png;base64,") {
		t.Errorf("icon = %v", icon)
	}

	text := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not an image"))
	if r := callTool(t, srv, "set_tile_icon", map[string]interface{}{"index": 0, "source": text}); !r.IsError {
		t.Error("expected sniffing to reject text")
	}
	if r := callTool(t, srv, "set_tile_icon", map[string]interface{}{"index": 0, "source": "http://127.0.0.1/x.png"}); !r.IsError {
		t.Error("expected loopback to be blocked")
	}
}

func TestSaveNowWithoutDirectory(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "save_now", nil)
	if !r.IsError || !strings.Contains(resultText(r), "no directory") {
		t.Errorf("save_now = %q", resultText(r))
	}
}

func TestDocumentFormatResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readDocumentFormat(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != documentFormatURI || !strings.Contains(tc.Text, "restore_tile") {
		t.Errorf("resource = %+v", contents)
	}
}

func TestDecodeDataURI(t *testing.T) {
	if _, err := decodeDataURI("data:image/png,abc"); err == nil {
		t.Error("expected non-base64 URI to fail")
	}
	if _, err := decodeDataURI("data:image/png;base64"); err == nil {
		t.Error("expected missing comma to fail")
	}
	data, err := decodeDataURI("data:image/gif;base64,R0lGODlh")
	if err != nil || string(data[:3]) != "GIF" {
		t.Errorf("decode = %q, %v", data, err)
	}
}
