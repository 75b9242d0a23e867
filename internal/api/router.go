package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tablero/internal/dashboard"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *dashboard.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/document", h.GetDocument)

	r.Route("/view", func(r chi.Router) {
		r.Get("/", h.GetView)
		r.Post("/enter", h.Enter)
		r.Post("/back", h.Back)
		r.Post("/home", h.Home)
	})

	r.Route("/tiles", func(r chi.Router) {
		r.Post("/", h.AddTile)
		r.Post("/move", h.MoveTile)
		r.Put("/{index}", h.UpdateTile)
		r.Delete("/{index}", h.DeleteTile)
		r.Post("/{index}/favorite", h.ToggleFavorite)
		r.Post("/{index}/icon", h.UploadIcon)
		r.Delete("/{index}/icon", h.ClearIcon)
	})

	r.Route("/drag/{surface}", func(r chi.Router) {
		r.Post("/start", h.DragStart)
		r.Post("/hover", h.DragHover)
		r.Post("/drop", h.DragDrop)
		r.Post("/end", h.DragEnd)
	})

	r.Route("/trash", func(r chi.Router) {
		r.Get("/", h.ListTrash)
		r.Delete("/", h.EmptyTrash)
		r.Post("/{index}/restore", h.RestoreTrash)
		r.Delete("/{index}", h.PurgeTrash)
	})

	r.Get("/favorites", h.Favorites)
	r.Get("/notes", h.Notes)
	r.Get("/search", h.Search)

	r.Get("/settings", h.GetSettings)
	r.Patch("/settings", h.PatchSettings)

	r.Route("/sync", func(r chi.Router) {
		r.Get("/status", h.SyncStatus)
		r.Post("/directory", h.SelectDirectory)
		r.Delete("/directory", h.ForgetDirectory)
		r.Post("/save", h.SaveNow)
		r.Post("/bookmarks", h.ImportBookmarks)
	})

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
