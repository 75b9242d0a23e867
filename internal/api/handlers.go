package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tablero/internal/dashboard"
	"github.com/starford/tablero/internal/reorder"
	"github.com/starford/tablero/internal/tiletree"
)

// Handler holds API route handlers.
type Handler struct {
	svc *dashboard.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *dashboard.Service) *Handler {
	return &Handler{svc: svc}
}

// scope reads ?scope=view|root. The current view is the default.
func scope(r *http.Request) dashboard.Scope {
	return dashboard.Scope(r.URL.Query().Get("scope"))
}

// GetDocument handles GET /api/document.
//
//	@Summary		Get the full persisted document
//	@Tags			document
//	@Produce		json
//	@Success		200	{object}	object
//	@Security		BearerAuth
//	@Router			/document [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Document())
}

// GetView handles GET /api/view.
//
//	@Summary		Get the folder currently being viewed
//	@Tags			view
//	@Produce		json
//	@Success		200	{object}	dashboard.View
//	@Security		BearerAuth
//	@Router			/view [get]
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.View())
}

// Enter handles POST /api/view/enter.
//
//	@Summary		Open a folder of the current view
//	@Tags			view
//	@Accept			json
//	@Produce		json
//	@Param			body	body		IndexRequest	true	"Folder index"
//	@Success		200		{object}	dashboard.View
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/view/enter [post]
func (h *Handler) Enter(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.svc.Enter(*req.Index)
	if err != nil {
		writeError(w, "enter folder", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Back handles POST /api/view/back.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Back())
}

// Home handles POST /api/view/home.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Home())
}

// AddTile handles POST /api/tiles.
//
//	@Summary		Add a link, folder or note
//	@Description	Links go to the head of the current view, folders to its end, notes to the head of the root list.
//	@Tags			tiles
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddTileRequest	true	"Tile to add"
//	@Success		201		{object}	models.RawTile
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tiles [post]
func (h *Handler) AddTile(w http.ResponseWriter, r *http.Request) {
	var req AddTileRequest
	if !decode(w, r, &req) {
		return
	}
	tile, err := h.svc.AddTile(r.Context(), req.tile())
	if err != nil {
		writeError(w, "add tile", err)
		return
	}
	writeJSON(w, http.StatusCreated, tile)
}

// UpdateTile handles PUT /api/tiles/{index}.
//
//	@Summary		Edit a tile
//	@Tags			tiles
//	@Accept			json
//	@Produce		json
//	@Param			index	path		int				true	"Tile index"
//	@Param			scope	query		string			false	"view or root"	Enums(view, root)
//	@Param			body	body		EditTileRequest	true	"Fields to change"
//	@Success		200		{object}	models.RawTile
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tiles/{index} [put]
func (h *Handler) UpdateTile(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r, "index")
	if !ok {
		return
	}
	var req EditTileRequest
	if !decode(w, r, &req) {
		return
	}
	tile, err := h.svc.UpdateTile(r.Context(), scope(r), index, req.edit())
	if err != nil {
		writeError(w, "update tile", err)
		return
	}
	writeJSON(w, http.StatusOK, tile)
}

// DeleteTile handles DELETE /api/tiles/{index}. The tile goes to the trash.
//
//	@Summary		Move a tile to the trash
//	@Tags			tiles
//	@Param			index	path		int		true	"Tile index"
//	@Param			scope	query		string	false	"view or root"	Enums(view, root)
//	@Success		200		{object}	dashboard.TrashItem
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tiles/{index} [delete]
func (h *Handler) DeleteTile(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r, "index")
	if !ok {
		return
	}
	item, err := h.svc.DeleteTile(r.Context(), scope(r), index)
	if err != nil {
		writeError(w, "delete tile", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ToggleFavorite handles POST /api/tiles/{index}/favorite.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r, "index")
	if !ok {
		return
	}
	fav, err := h.svc.ToggleFavorite(r.Context(), scope(r), index)
	if err != nil {
		writeError(w, "toggle favorite", err)
		return
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{Favorite: fav})
}

// UploadIcon handles POST /api/tiles/{index}/icon (multipart/form-data,
// field "file").
//
//	@Summary		Set a custom icon on a link
//	@Tags			tiles
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			index	path		int		true	"Tile index"
//	@Param			file	formData	file	true	"Image file"
//	@Success		200		{object}	models.RawTile
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tiles/{index}/icon [post]
func (h *Handler) UploadIcon(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r, "index")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, tiletree.MaxIconBytes+64<<10)
	if err := r.ParseMultipartForm(tiletree.MaxIconBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, tiletree.MaxIconBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	tile, err := h.svc.SetIcon(r.Context(), scope(r), index, data)
	if err != nil {
		writeError(w, "set icon", err)
		return
	}
	writeJSON(w, http.StatusOK, tile)
}

// ClearIcon handles DELETE /api/tiles/{index}/icon.
func (h *Handler) ClearIcon(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r, "index")
	if !ok {
		return
	}
	tile, err := h.svc.ClearIcon(r.Context(), scope(r), index)
	if err != nil {
		writeError(w, "clear icon", err)
		return
	}
	writeJSON(w, http.StatusOK, tile)
}

// MoveTile handles POST /api/tiles/move.
//
//	@Summary		Reorder a tile or move it into a folder
//	@Tags			tiles
//	@Accept			json
//	@Produce		json
//	@Param			scope	query		string			false	"view or root"	Enums(view, root)
//	@Param			body	body		MoveTileRequest	true	"Move"
//	@Success		200		{object}	MoveResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tiles/move [post]
func (h *Handler) MoveTile(w http.ResponseWriter, r *http.Request) {
	var req MoveTileRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Into {
		moved, err := h.svc.MoveIntoFolder(r.Context(), scope(r), *req.From, *req.To)
		if err != nil {
			writeError(w, "move into folder", err)
			return
		}
		writeJSON(w, http.StatusOK, MoveResponse{Moved: moved})
		return
	}
	if err := h.svc.MoveTile(r.Context(), scope(r), *req.From, *req.To); err != nil {
		writeError(w, "move tile", err)
		return
	}
	writeJSON(w, http.StatusOK, MoveResponse{Moved: true})
}

func surface(r *http.Request) reorder.Surface {
	return reorder.Surface(chi.URLParam(r, "surface"))
}

// DragStart handles POST /api/drag/{surface}/start.
//
//	@Summary		Begin a drag gesture
//	@Description	Indices are rendered positions on the surface. The grid does not render notes.
//	@Tags			drag
//	@Accept			json
//	@Produce		json
//	@Param			surface	path		string			true	"grid or editor"	Enums(grid, editor)
//	@Param			body	body		IndexRequest	true	"Rendered source index"
//	@Success		200		{object}	DragStartResponse
//	@Security		BearerAuth
//	@Router			/drag/{surface}/start [post]
func (h *Handler) DragStart(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if !decode(w, r, &req) {
		return
	}
	ok, err := h.svc.DragStart(surface(r), *req.Index)
	if err != nil {
		writeError(w, "drag start", err)
		return
	}
	writeJSON(w, http.StatusOK, DragStartResponse{Dragging: ok})
}

// DragHover handles POST /api/drag/{surface}/hover.
func (h *Handler) DragHover(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if !decode(w, r, &req) {
		return
	}
	fb, err := h.svc.DragHover(surface(r), *req.Index)
	if err != nil {
		writeError(w, "drag hover", err)
		return
	}
	writeJSON(w, http.StatusOK, HoverResponse{Feedback: fb})
}

// DragDrop handles POST /api/drag/{surface}/drop.
//
//	@Summary		Drop the dragged tile on a target
//	@Tags			drag
//	@Accept			json
//	@Produce		json
//	@Param			surface	path		string			true	"grid or editor"	Enums(grid, editor)
//	@Param			body	body		IndexRequest	true	"Rendered target index"
//	@Success		200		{object}	reorder.Outcome
//	@Security		BearerAuth
//	@Router			/drag/{surface}/drop [post]
func (h *Handler) DragDrop(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.svc.DragDrop(r.Context(), surface(r), *req.Index)
	if err != nil {
		writeError(w, "drag drop", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// DragEnd handles POST /api/drag/{surface}/end.
func (h *Handler) DragEnd(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DragEnd(surface(r)); err != nil {
		writeError(w, "drag end", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTrash handles GET /api/trash.
func (h *Handler) ListTrash(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"trash": h.svc.Trash()})
}

// RestoreTrash handles POST /api/trash/{index}/restore. The tile goes back
// to the head of the root list.
func (h *Handler) RestoreTrash(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r, "index")
	if !ok {
		return
	}
	tile, err := h.svc.Restore(r.Context(), index)
	if err != nil {
		writeError(w, "restore", err)
		return
	}
	writeJSON(w, http.StatusOK, tile)
}

// PurgeTrash handles DELETE /api/trash/{index}.
func (h *Handler) PurgeTrash(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r, "index")
	if !ok {
		return
	}
	if err := h.svc.Purge(r.Context(), index); err != nil {
		writeError(w, "purge", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EmptyTrash handles DELETE /api/trash.
func (h *Handler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.EmptyTrash(r.Context()); err != nil {
		writeError(w, "empty trash", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Favorites handles GET /api/favorites.
func (h *Handler) Favorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"favorites": h.svc.Favorites()})
}

// Notes handles GET /api/notes.
func (h *Handler) Notes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"notes": h.svc.Notes()})
}

// Search handles GET /api/search.
//
//	@Summary		Find tiles by name or URL
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Search query"
//	@Success		200	{object}	object
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": h.svc.Search(q)})
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// PatchSettings handles PATCH /api/settings.
//
//	@Summary		Change settings
//	@Description	Extra carries cosmetic keys untouched; a null value removes a key.
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SettingsRequest	true	"Settings patch"
//	@Success		200		{object}	dashboard.Settings
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [patch]
func (h *Handler) PatchSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !decode(w, r, &req) {
		return
	}
	settings, err := h.svc.UpdateSettings(r.Context(), req.SettingsPatch)
	if err != nil {
		writeError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// SyncStatus handles GET /api/sync/status.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.SyncStatus())
}

// SelectDirectory handles POST /api/sync/directory.
//
//	@Summary		Choose the on-disk mirror directory
//	@Tags			sync
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DirectoryRequest	true	"Directory"
//	@Success		200		{object}	SyncStatus
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync/directory [post]
func (h *Handler) SelectDirectory(w http.ResponseWriter, r *http.Request) {
	var req DirectoryRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SelectDirectory(r.Context(), req.Path); err != nil {
		writeError(w, "select directory", err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.SyncStatus())
}

// ForgetDirectory handles DELETE /api/sync/directory.
func (h *Handler) ForgetDirectory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ForgetDirectory(r.Context()); err != nil {
		writeError(w, "forget directory", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveNow handles POST /api/sync/save.
//
//	@Summary		Write the document to disk now
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	SyncStatus
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync/save [post]
func (h *Handler) SaveNow(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SaveNow(r.Context()); err != nil {
		writeError(w, "save now", err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.SyncStatus())
}

// ImportBookmarks handles POST /api/sync/bookmarks.
func (h *Handler) ImportBookmarks(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ImportBookmarks(r.Context())
	if err != nil {
		writeError(w, "import bookmarks", err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Added: n})
}
