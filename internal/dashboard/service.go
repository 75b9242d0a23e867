// Package dashboard serialises every operation on the tile forest, the view
// path and the drag sessions, and persists after each mutation.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/starford/tablero/internal/apperr"
	"github.com/starford/tablero/internal/bookmarks"
	"github.com/starford/tablero/internal/models"
	"github.com/starford/tablero/internal/navigator"
	"github.com/starford/tablero/internal/persist"
	"github.com/starford/tablero/internal/reorder"
	"github.com/starford/tablero/internal/sse"
	"github.com/starford/tablero/internal/tiletree"
)

// Persister is the part of the persistence coordinator the service uses.
type Persister interface {
	Save(ctx context.Context, doc *models.Document) error
	SaveNow(ctx context.Context, doc *models.Document) error
	Refresh(ctx context.Context) (*models.Document, bool, error)
	Status() persist.Status
	SelectDirectory(ctx context.Context, path string, doc *models.Document) error
	ForgetDirectory(ctx context.Context) error
}

// Publisher receives change notifications for renderers.
type Publisher interface {
	Publish(event sse.Event)
	PublishChange(reason string)
}

// Service owns the store, the navigator and both drag sessions. A single
// mutex makes every operation run to completion before the next.
type Service struct {
	mu       sync.Mutex
	store    *tiletree.Store
	nav      *navigator.Navigator
	grid     *reorder.Session
	editor   *reorder.Session
	settings models.Document // everything but tiles and trash

	persist   Persister
	events    Publisher
	bookmarks bookmarks.Source
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where change events go.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithBookmarkSource sets the source used by ImportBookmarks.
func WithBookmarkSource(src bookmarks.Source) Option {
	return func(s *Service) { s.bookmarks = src }
}

// WithStore replaces the tile store, e.g. to inject a clock.
func WithStore(store *tiletree.Store) Option {
	return func(s *Service) { s.store = store }
}

// NewService creates a service with an empty forest. Call Apply with the
// loaded document before serving.
func NewService(p Persister, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    tiletree.New(),
		nav:      navigator.New(),
		grid:     reorder.NewSession(reorder.SurfaceGrid),
		editor:   reorder.NewSession(reorder.SurfaceEditor),
		settings: models.Document{Extra: map[string]json.RawMessage{}},
		persist:  p,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply replaces the whole state with doc. Drag state is dropped and a
// stale view path falls back to the root.
func (s *Service) Apply(doc *models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(doc)
	s.publishChange("load")
}

func (s *Service) applyLocked(doc *models.Document) {
	doc = doc.Clone()
	s.store.Replace(doc.Tiles, doc.Trash)
	if err := s.store.WellFormed(); err != nil {
		s.logger.Warn("dashboard: loaded document is malformed", slog.String("error", err.Error()))
	}
	doc.Tiles, doc.Trash = nil, nil
	if doc.Extra == nil {
		doc.Extra = map[string]json.RawMessage{}
	}
	s.settings = *doc
	s.grid.End()
	s.editor.End()
	s.nav.CurrentView(s.store.Root())
}

// Reload applies a document read back from a slower tier and tells
// renderers it came from sync.
func (s *Service) Reload(doc *models.Document) {
	s.mu.Lock()
	s.applyLocked(doc)
	s.mu.Unlock()

	s.logger.Info("dashboard: reloaded from sync", slog.Int("tiles", len(doc.Tiles)))
	s.publish(sse.EventSyncReloaded, map[string]int{"tiles": len(doc.Tiles)})
	s.publishChange("reload")
}

// Refresh runs the background re-read and applies a changed document.
func (s *Service) Refresh(ctx context.Context) error {
	doc, changed, err := s.persist.Refresh(ctx)
	if err != nil {
		return err
	}
	if changed {
		s.Reload(doc)
	}
	return nil
}

// HandleFileResult turns a file write outcome into a renderer event.
func (s *Service) HandleFileResult(res persist.FileResult) {
	if res.Err != nil {
		s.publish(sse.EventSyncError, map[string]any{
			"error":        res.Err.Error(),
			"needsRegrant": s.persist.Status().NeedsRegrant,
			"manual":       res.Manual,
		})
		return
	}
	s.publish(sse.EventSyncSaved, map[string]any{"at": res.At.UTC().Format(time.RFC3339), "manual": res.Manual})
}

// Document returns a deep copy of the full document.
func (s *Service) Document() *models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentLocked()
}

func (s *Service) documentLocked() *models.Document {
	doc := s.settings.Clone()
	doc.Tiles, doc.Trash = s.store.Snapshot()
	return doc
}

// save persists the current state. The in-memory change stands even when
// the fast tier write fails.
func (s *Service) save(ctx context.Context, reason string) error {
	doc := s.documentLocked()
	s.publishChange(reason)
	if err := s.persist.Save(ctx, doc); err != nil {
		s.logger.Error("dashboard: save failed", slog.String("reason", reason), slog.String("error", err.Error()))
		return fmt.Errorf("dashboard: %s: %w", reason, err)
	}
	return nil
}

func (s *Service) publish(eventType string, data any) {
	if s.events != nil {
		s.events.Publish(sse.Event{Type: eventType, Data: data})
	}
}

func (s *Service) publishChange(reason string) {
	if s.events != nil {
		s.events.PublishChange(reason)
	}
}

// Settings is the non-tile part of the document.
type Settings struct {
	Engine      string                     `json:"engine"`
	UserName    string                     `json:"userName"`
	WeatherCity string                     `json:"weatherCity"`
	AutoSync    bool                       `json:"autoSync"`
	Extra       map[string]json.RawMessage `json:"extra"`
}

// SettingsPatch changes settings. Nil fields stay; an Extra value of JSON
// null removes the key.
type SettingsPatch struct {
	Engine      *string                    `json:"engine"`
	UserName    *string                    `json:"userName"`
	WeatherCity *string                    `json:"weatherCity"`
	AutoSync    *bool                      `json:"autoSync"`
	Extra       map[string]json.RawMessage `json:"extra"`
}

// Settings returns the current settings.
func (s *Service) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settingsLocked()
}

func (s *Service) settingsLocked() Settings {
	return Settings{
		Engine:      s.settings.Engine,
		UserName:    s.settings.UserName,
		WeatherCity: s.settings.WeatherCity,
		AutoSync:    s.settings.AutoSync,
		Extra:       maps.Clone(s.settings.Extra),
	}
}

// UpdateSettings applies p and persists.
func (s *Service) UpdateSettings(ctx context.Context, p SettingsPatch) (Settings, error) {
	for k, v := range p.Extra {
		switch k {
		case models.KeyTiles, models.KeyTrash, models.KeyEngine, models.KeyUserName,
			models.KeyWeatherCity, models.KeyAutoSync:
			return Settings{}, fmt.Errorf("dashboard: settings: %w: %q is not a cosmetic key", apperr.ErrInvalid, k)
		}
		if len(v) > 0 && !json.Valid(v) {
			return Settings{}, fmt.Errorf("dashboard: settings: %w: %q is not valid JSON", apperr.ErrInvalid, k)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Engine != nil {
		s.settings.Engine = *p.Engine
	}
	if p.UserName != nil {
		s.settings.UserName = *p.UserName
	}
	if p.WeatherCity != nil {
		s.settings.WeatherCity = *p.WeatherCity
	}
	if p.AutoSync != nil {
		s.settings.AutoSync = *p.AutoSync
	}
	for k, v := range p.Extra {
		if len(v) == 0 || string(v) == "null" {
			delete(s.settings.Extra, k)
			continue
		}
		s.settings.Extra[k] = v
	}
	if err := s.save(ctx, "settings"); err != nil {
		return Settings{}, err
	}
	return s.settingsLocked(), nil
}

// ImportBookmarks puts the bookmarks whose URL the dashboard does not hold
// yet, in the forest or the trash, at the head of the root list.
func (s *Service) ImportBookmarks(ctx context.Context) (int, error) {
	if s.bookmarks == nil {
		return 0, fmt.Errorf("dashboard: import bookmarks: %w: no bookmark source", apperr.ErrNotFound)
	}
	bms, err := s.bookmarks.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("dashboard: import bookmarks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(bms))
	fresh := make([]bookmarks.Bookmark, 0, len(bms))
	for _, bm := range bms {
		u := strings.TrimSpace(bm.URL)
		if seen[u] || s.store.HasURL(u) {
			continue
		}
		seen[u] = true
		fresh = append(fresh, bm)
	}
	tiles := bookmarks.Tiles(fresh)

	added := 0
	for i := len(tiles) - 1; i >= 0; i-- {
		if err := s.store.InsertAtFront(s.store.Root(), tiles[i]); err != nil {
			s.logger.Warn("dashboard: skipped bookmark",
				slog.String("url", fresh[i].URL),
				slog.String("error", err.Error()))
			continue
		}
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, s.save(ctx, "import")
}
