package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/tablero/internal/dashboard"
	"github.com/starford/tablero/internal/fileworker"
	"github.com/starford/tablero/internal/models"
	"github.com/starford/tablero/internal/persist"
	"github.com/starford/tablero/internal/storage"
	"github.com/starford/tablero/internal/testutil"
)

// testEnv wires a dashboard over SQLite tiers and an in-memory directory.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) (*dashboard.Service, http.Handler) {
	t.Helper()
	svc, router, _ := testEnvWithDir(t, authToken, nil)
	return svc, router
}

func testEnvWithDir(t *testing.T, authToken string, dir *testutil.MemDir) (*dashboard.Service, http.Handler, *persist.Coordinator) {
	t.Helper()

	w := fileworker.New(testutil.Logger(), fileworker.WithBackoff([]time.Duration{time.Millisecond}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	opts := []persist.Option{persist.WithDebounce(20 * time.Millisecond)}
	if dir != nil {
		opts = append(opts, persist.WithDirectory(dir, dir.Name()))
	}
	coord := persist.NewCoordinator(testutil.TestKV(t, "local"), testutil.TestKV(t, "synced"), w, testutil.Logger(), opts...)

	loaded, err := coord.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	svc := dashboard.NewService(coord, testutil.Logger())
	svc.Apply(loaded.Doc)

	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router, coord
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) dashboard.View {
	t.Helper()
	var v dashboard.View
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode view: %v, body = %s", err, w.Body.String())
	}
	return v
}

func tileNames(tiles []models.RawTile) string {
	names := make([]string, 0, len(tiles))
	for _, t := range tiles {
		names = append(names, t.Name)
	}
	return strings.Join(names, ",")
}

func TestStarterView(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/view", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	v := decodeView(t, w)
	if got := tileNames(v.Tiles); got != "YouTube,Google,Wikipedia,GitHub" {
		t.Errorf("tiles = %s", got)
	}
	if !v.IsRoot {
		t.Error("expected root view")
	}
}

func TestFolderDragScenario(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/tiles", map[string]string{"type": "folder", "name": "Work"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add folder = %d, body = %s", w.Code, w.Body.String())
	}

	if w := do(t, router, http.MethodPost, "/drag/grid/start", map[string]int{"index": 0}); w.Code != http.StatusOK {
		t.Fatalf("drag start = %d", w.Code)
	}
	w = do(t, router, http.MethodPost, "/drag/grid/hover", map[string]int{"index": 4})
	if !strings.Contains(w.Body.String(), `"drag-over-folder"`) {
		t.Errorf("hover = %s", w.Body.String())
	}
	w = do(t, router, http.MethodPost, "/drag/grid/drop", map[string]int{"index": 4})
	if !strings.Contains(w.Body.String(), `"into-folder"`) {
		t.Errorf("drop = %s", w.Body.String())
	}
	if w := do(t, router, http.MethodPost, "/drag/grid/end", nil); w.Code != http.StatusNoContent {
		t.Errorf("drag end = %d", w.Code)
	}

	v := decodeView(t, do(t, router, http.MethodGet, "/view", nil))
	if got := tileNames(v.Tiles); got != "Google,Wikipedia,GitHub,Work" {
		t.Fatalf("root = %s", got)
	}

	v = decodeView(t, do(t, router, http.MethodPost, "/view/enter", map[string]int{"index": 3}))
	if got := tileNames(v.Tiles); got != "YouTube" {
		t.Errorf("inside Work = %s", got)
	}
	v = decodeView(t, do(t, router, http.MethodPost, "/view/back", nil))
	if len(v.Tiles) != 4 || !v.IsRoot {
		t.Errorf("back = %+v", v)
	}
}

func TestAddTileValidation(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/tiles", map[string]string{"type": "link", "name": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing url = %d", w.Code)
	}
	var body errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if _, ok := body.Details["url"]; !ok {
		t.Errorf("details = %v", body.Details)
	}

	w = do(t, router, http.MethodPost, "/tiles", map[string]string{"type": "link", "name": "x", "url": "nope"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("relative url = %d, body = %s", w.Code, w.Body.String())
	}
	body = errResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if _, ok := body.Details["URL"]; !ok {
		t.Errorf("details = %v", body.Details)
	}

	w = do(t, router, http.MethodPost, "/tiles", map[string]string{"type": "widget", "name": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown type = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/tiles", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d", rec.Code)
	}
}

func TestEnterErrors(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodPost, "/view/enter", map[string]int{"index": 0}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("enter link = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/view/enter", map[string]int{"index": 40}); w.Code != http.StatusNotFound {
		t.Errorf("enter out of range = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/view/enter", map[string]int{"index": -1}); w.Code != http.StatusBadRequest {
		t.Errorf("enter negative = %d", w.Code)
	}
	if w := do(t, router, http.MethodPut, "/tiles/abc", map[string]string{"name": "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad index = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/drag/sidebar/start", map[string]int{"index": 0}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown surface = %d", w.Code)
	}
}

func TestUpdateAndFavorite(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/tiles/2", map[string]string{"name": "Wiki"})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	if w := do(t, router, http.MethodPut, "/tiles/2", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty edit = %d", w.Code)
	}

	w = do(t, router, http.MethodPost, "/tiles/0/favorite", nil)
	if !strings.Contains(w.Body.String(), `"favorite":true`) {
		t.Errorf("favorite = %s", w.Body.String())
	}
	w = do(t, router, http.MethodGet, "/favorites", nil)
	var favs struct {
		Favorites []models.RawTile `json:"favorites"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &favs)
	if got := tileNames(favs.Favorites); got != "YouTube,Google" {
		t.Errorf("favorites = %s", got)
	}
}

func TestTrashRoutes(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodDelete, "/tiles/1", nil); w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	w := do(t, router, http.MethodGet, "/trash", nil)
	var trash struct {
		Trash []dashboard.TrashItem `json:"trash"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &trash)
	if len(trash.Trash) != 1 || trash.Trash[0].Tile.Name != "Google" {
		t.Fatalf("trash = %s", w.Body.String())
	}

	if w := do(t, router, http.MethodPost, "/trash/0/restore", nil); w.Code != http.StatusOK {
		t.Fatalf("restore = %d", w.Code)
	}
	v := decodeView(t, do(t, router, http.MethodGet, "/view", nil))
	if v.Tiles[0].Name != "Google" {
		t.Errorf("restored tile not at head: %s", tileNames(v.Tiles))
	}
	if w := do(t, router, http.MethodPost, "/trash/0/restore", nil); w.Code != http.StatusNotFound {
		t.Errorf("restore empty = %d", w.Code)
	}

	do(t, router, http.MethodDelete, "/tiles/0", nil)
	do(t, router, http.MethodDelete, "/tiles/0", nil)
	if w := do(t, router, http.MethodDelete, "/trash/1", nil); w.Code != http.StatusNoContent {
		t.Errorf("purge = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/trash", nil); w.Code != http.StatusNoContent {
		t.Errorf("empty trash = %d", w.Code)
	}
}

func uploadIcon(t *testing.T, router http.Handler, path string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "icon.bin")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(data)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIconUpload(t *testing.T) {
	_, router := testEnv(t, "")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

	w := uploadIcon(t, router, "/tiles/0/icon", png)
	if w.Code != http.StatusOK {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var tile models.RawTile
	_ = json.Unmarshal(w.Body.Bytes(), &tile)
	if tile.CustomIcon == nil || !strings.HasPrefix(*tile.CustomIcon, "data:image/png;base64,") {
		t.Errorf("customIcon = %v", tile.CustomIcon)
	}

	if w := uploadIcon(t, router, "/tiles/0/icon", []byte("hello, not an image")); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("text upload = %d", w.Code)
	}

	w = do(t, router, http.MethodDelete, "/tiles/0/icon", nil)
	if !strings.Contains(w.Body.String(), `"customIcon":null`) {
		t.Errorf("icon not cleared: %s", w.Body.String())
	}
}

func TestSettingsRoutes(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPatch, "/settings", map[string]any{
		"userName": "Ana",
		"extra":    map[string]any{"theme": "dark"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d, body = %s", w.Code, w.Body.String())
	}
	var s dashboard.Settings
	_ = json.Unmarshal(do(t, router, http.MethodGet, "/settings", nil).Body.Bytes(), &s)
	if s.UserName != "Ana" || string(s.Extra["theme"]) != `"dark"` {
		t.Errorf("settings = %+v", s)
	}

	w = do(t, router, http.MethodPatch, "/settings", map[string]any{"extra": map[string]any{"trash": []int{}}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("reserved key = %d", w.Code)
	}
	w = do(t, router, http.MethodPatch, "/settings", map[string]any{"engine": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty engine = %d", w.Code)
	}
}

func TestSaveNowWithoutDirectory(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/sync/save", nil); w.Code != http.StatusConflict {
		t.Errorf("save now = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestSaveNowRequestsPermission(t *testing.T) {
	dir := testutil.NewMemDir("sync", storage.PermissionPrompt)
	_, router, _ := testEnvWithDir(t, "", dir)

	w := do(t, router, http.MethodPost, "/sync/save", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save now = %d, body = %s", w.Code, w.Body.String())
	}
	if dir.Requests() != 1 {
		t.Errorf("requests = %d", dir.Requests())
	}
	if _, ok := dir.File(storage.DataFile); !ok {
		t.Error("data file not written")
	}

	dir.SetPermission(storage.PermissionDenied)
	dir.SetGrantable(false)
	if w := do(t, router, http.MethodPost, "/sync/save", nil); w.Code != http.StatusConflict {
		t.Errorf("denied save now = %d", w.Code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("empty search = %d", w.Code)
	}
	w := do(t, router, http.MethodGet, "/search?q=wiki", nil)
	if !strings.Contains(w.Body.String(), "Wikipedia") {
		t.Errorf("search = %s", w.Body.String())
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "secret")

	if w := do(t, router, http.MethodGet, "/view", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/view", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/view", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d", w.Code)
	}
}
