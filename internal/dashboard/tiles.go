package dashboard

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/starford/tablero/internal/apperr"
	"github.com/starford/tablero/internal/models"
	"github.com/starford/tablero/internal/reorder"
	"github.com/starford/tablero/internal/tiletree"
)

// Scope picks the list a tile index refers to.
type Scope string

const (
	// ScopeView is the folder currently being viewed.
	ScopeView Scope = "view"
	// ScopeRoot is the root list, where notes live.
	ScopeRoot Scope = "root"
)

// View is what the grid renders.
type View struct {
	Path        []int            `json:"path"`
	Breadcrumbs []string         `json:"breadcrumbs"`
	IsRoot      bool             `json:"isRoot"`
	Tiles       []models.RawTile `json:"tiles"`
	// Grid maps rendered grid positions to indices in Tiles. Notes are
	// not rendered on the grid.
	Grid []int `json:"grid"`
}

// NewTile describes a tile to add.
type NewTile struct {
	Type       models.Kind `json:"type"`
	Name       string      `json:"name"`
	URL        string      `json:"url,omitempty"`
	Content    string      `json:"content,omitempty"`
	CustomIcon *string     `json:"customIcon,omitempty"`
}

// TrashItem is one trash entry with its position.
type TrashItem struct {
	Index     int            `json:"index"`
	Tile      models.RawTile `json:"tile"`
	DeletedAt time.Time      `json:"deletedAt"`
}

// NoteItem is a root-level note with its root index.
type NoteItem struct {
	Index int            `json:"index"`
	Tile  models.RawTile `json:"tile"`
}

// SearchHit is a search match with its index path from the root.
type SearchHit struct {
	Path []int          `json:"path"`
	Tile models.RawTile `json:"tile"`
}

func encodeTile(t models.Tile) models.RawTile {
	return models.Encode([]models.Tile{t})[0]
}

// View returns the current folder view. A path made stale by a reload
// falls back to the root.
func (s *Service) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Service) viewLocked() View {
	root := s.store.Root()
	view := s.nav.CurrentView(root)
	return View{
		Path:        s.nav.Path(),
		Breadcrumbs: s.nav.Breadcrumbs(root),
		IsRoot:      s.nav.IsRoot(),
		Tiles:       models.Encode(view.Tiles()),
		Grid:        s.grid.Rendered(view),
	}
}

// Enter opens the folder at index of the current view.
func (s *Service) Enter(index int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := s.nav.CurrentView(s.store.Root())
	t, ok := view.At(index)
	if !ok {
		return View{}, fmt.Errorf("dashboard: enter %d of %d: %w", index, view.Len(), apperr.ErrOutOfRange)
	}
	if !s.nav.Enter(view, index) {
		return View{}, fmt.Errorf("dashboard: enter: %w: %s is not a folder", apperr.ErrInvalid, t.Kind())
	}
	s.grid.End()
	return s.viewLocked(), nil
}

// Back goes up one level. At the root it is a no-op.
func (s *Service) Back() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nav.Back() {
		s.grid.End()
	}
	return s.viewLocked()
}

// Home returns to the root view.
func (s *Service) Home() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav.Reset()
	s.grid.End()
	return s.viewLocked()
}

func (s *Service) container(scope Scope) (tiletree.Container, error) {
	switch scope {
	case ScopeView, "":
		return s.nav.CurrentView(s.store.Root()), nil
	case ScopeRoot:
		return s.store.Root(), nil
	}
	return tiletree.Container{}, fmt.Errorf("dashboard: %w: unknown scope %q", apperr.ErrInvalid, scope)
}

// mutate runs fn under the lock, keeps the viewed folder in view when
// indices shift, and persists on success.
func (s *Service) mutate(ctx context.Context, reason string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.viewChain()
	if err := fn(); err != nil {
		return err
	}
	s.follow(chain)
	return s.save(ctx, reason)
}

// viewChain returns the folders along the current path.
func (s *Service) viewChain() []*models.Folder {
	path := s.nav.Path()
	chain := make([]*models.Folder, 0, len(path))
	for depth := range path {
		t, ok := s.store.Resolve(path[:depth+1])
		if !ok {
			return nil
		}
		f, ok := t.(*models.Folder)
		if !ok {
			return nil
		}
		chain = append(chain, f)
	}
	return chain
}

// follow re-derives the path for chain after a mutation. If a folder on
// it has left the tree the view returns to the root.
func (s *Service) follow(chain []*models.Folder) {
	s.nav.Reset()
	view := s.store.Root()
	for _, f := range chain {
		idx := slices.IndexFunc(view.Tiles(), func(t models.Tile) bool { return t == models.Tile(f) })
		if idx < 0 || !s.nav.Enter(view, idx) {
			s.nav.Reset()
			return
		}
		view = tiletree.FolderContainer(f)
	}
}

// AddTile creates a tile. Links go to the head of the current view,
// folders to its end and notes to the head of the root list.
func (s *Service) AddTile(ctx context.Context, nt NewTile) (models.RawTile, error) {
	var t models.Tile
	switch nt.Type {
	case models.KindLink, "":
		t = &models.Link{Name: nt.Name, URL: nt.URL, CustomIcon: nt.CustomIcon}
	case models.KindFolder:
		t = &models.Folder{Name: nt.Name, Children: []models.Tile{}}
	case models.KindNote:
		t = &models.Note{Name: nt.Name, Content: nt.Content}
	default:
		return models.RawTile{}, fmt.Errorf("dashboard: add: %w: unknown tile type %q", apperr.ErrInvalid, nt.Type)
	}

	err := s.mutate(ctx, "add", func() error {
		switch t.(type) {
		case *models.Link:
			return s.store.InsertAtFront(s.nav.CurrentView(s.store.Root()), t)
		case *models.Folder:
			return s.store.Append(s.nav.CurrentView(s.store.Root()), t)
		case *models.Note:
			return s.store.InsertAtFront(s.store.Root(), t)
		}
		return nil
	})
	if err != nil {
		return models.RawTile{}, err
	}
	return encodeTile(t), nil
}

// UpdateTile edits the tile at index of scope.
func (s *Service) UpdateTile(ctx context.Context, scope Scope, index int, e tiletree.Edit) (models.RawTile, error) {
	var out models.RawTile
	err := s.mutate(ctx, "edit", func() error {
		c, err := s.container(scope)
		if err != nil {
			return err
		}
		if err := s.store.Update(c, index, e); err != nil {
			return err
		}
		t, _ := c.At(index)
		out = encodeTile(t)
		return nil
	})
	return out, err
}

// DeleteTile moves the tile at index of scope to the trash.
func (s *Service) DeleteTile(ctx context.Context, scope Scope, index int) (TrashItem, error) {
	var out TrashItem
	err := s.mutate(ctx, "delete", func() error {
		c, err := s.container(scope)
		if err != nil {
			return err
		}
		s.endDrags()
		entry, err := s.store.SoftDelete(c, index)
		if err != nil {
			return err
		}
		out = TrashItem{Index: 0, Tile: encodeTile(entry.Tile), DeletedAt: entry.DeletedAt}
		return nil
	})
	return out, err
}

// ToggleFavorite flips the favorite flag of a link.
func (s *Service) ToggleFavorite(ctx context.Context, scope Scope, index int) (bool, error) {
	var fav bool
	err := s.mutate(ctx, "favorite", func() error {
		t, err := s.tileAt(scope, index)
		if err != nil {
			return err
		}
		fav, err = s.store.ToggleFavorite(t)
		return err
	})
	return fav, err
}

// SetIcon stores raw image bytes as the custom icon of a link.
func (s *Service) SetIcon(ctx context.Context, scope Scope, index int, data []byte) (models.RawTile, error) {
	dataURL, err := tiletree.IconDataURL(data)
	if err != nil {
		return models.RawTile{}, err
	}
	var out models.RawTile
	err = s.mutate(ctx, "icon", func() error {
		t, err := s.tileAt(scope, index)
		if err != nil {
			return err
		}
		if err := s.store.SetCustomIcon(t, dataURL); err != nil {
			return err
		}
		out = encodeTile(t)
		return nil
	})
	return out, err
}

// ClearIcon reverts a link to its favicon.
func (s *Service) ClearIcon(ctx context.Context, scope Scope, index int) (models.RawTile, error) {
	var out models.RawTile
	err := s.mutate(ctx, "icon", func() error {
		t, err := s.tileAt(scope, index)
		if err != nil {
			return err
		}
		if err := s.store.ClearCustomIcon(t); err != nil {
			return err
		}
		out = encodeTile(t)
		return nil
	})
	return out, err
}

// MoveTile reorders within one list by container index.
func (s *Service) MoveTile(ctx context.Context, scope Scope, from, to int) error {
	return s.mutate(ctx, "move", func() error {
		c, err := s.container(scope)
		if err != nil {
			return err
		}
		s.endDrags()
		return s.store.MoveWithinContainer(c, from, to)
	})
}

// MoveIntoFolder moves the link or note at from into the folder at
// folderIndex of the same list. It reports whether anything moved.
func (s *Service) MoveIntoFolder(ctx context.Context, scope Scope, from, folderIndex int) (bool, error) {
	var moved bool
	err := s.mutate(ctx, "move", func() error {
		c, err := s.container(scope)
		if err != nil {
			return err
		}
		t, ok := c.At(folderIndex)
		if !ok {
			return fmt.Errorf("dashboard: move into %d of %d: %w", folderIndex, c.Len(), apperr.ErrOutOfRange)
		}
		f, ok := t.(*models.Folder)
		if !ok {
			return fmt.Errorf("dashboard: move into: %w: %s is not a folder", apperr.ErrInvalid, t.Kind())
		}
		if _, ok := c.At(from); !ok {
			return fmt.Errorf("dashboard: move %d of %d: %w", from, c.Len(), apperr.ErrOutOfRange)
		}
		s.endDrags()
		moved = s.store.MoveIntoFolder(c, from, f)
		return nil
	})
	return moved, err
}

func (s *Service) tileAt(scope Scope, index int) (models.Tile, error) {
	c, err := s.container(scope)
	if err != nil {
		return nil, err
	}
	t, ok := c.At(index)
	if !ok {
		return nil, fmt.Errorf("dashboard: tile %d of %d: %w", index, c.Len(), apperr.ErrOutOfRange)
	}
	return t, nil
}

func (s *Service) endDrags() {
	s.grid.End()
	s.editor.End()
}

func (s *Service) session(surface reorder.Surface) (*reorder.Session, tiletree.Container, error) {
	switch surface {
	case reorder.SurfaceGrid:
		return s.grid, s.nav.CurrentView(s.store.Root()), nil
	case reorder.SurfaceEditor:
		return s.editor, s.store.Root(), nil
	}
	return nil, tiletree.Container{}, fmt.Errorf("dashboard: %w: unknown surface %q", apperr.ErrInvalid, surface)
}

// DragStart begins a gesture on a rendered index of surface.
func (s *Service) DragStart(surface reorder.Surface, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, c, err := s.session(surface)
	if err != nil {
		return false, err
	}
	return sess.Begin(c, index), nil
}

// DragHover returns the highlight for a hovered rendered index.
func (s *Service) DragHover(surface reorder.Surface, target int) (reorder.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, c, err := s.session(surface)
	if err != nil {
		return reorder.FeedbackNone, err
	}
	return sess.Hover(c, target), nil
}

// DragDrop applies the gesture and persists when the tree changed.
func (s *Service) DragDrop(ctx context.Context, surface reorder.Surface, target int) (reorder.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, c, err := s.session(surface)
	if err != nil {
		return reorder.Outcome{Action: reorder.ActionNone}, err
	}
	chain := s.viewChain()
	out := sess.Drop(s.store, c, target)
	if !out.Moved {
		return out, nil
	}
	s.follow(chain)
	return out, s.save(ctx, "drop")
}

// DragEnd clears the gesture of surface.
func (s *Service) DragEnd(surface reorder.Surface) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, _, err := s.session(surface)
	if err != nil {
		return err
	}
	sess.End()
	return nil
}

// Trash lists the trash, most recent first.
func (s *Service) Trash() []TrashItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	trash := s.store.Trash()
	raw := models.EncodeTrash(trash)
	out := make([]TrashItem, 0, len(trash))
	for i, e := range trash {
		r := raw[i]
		r.DeletedAt = nil
		out = append(out, TrashItem{Index: i, Tile: r, DeletedAt: e.DeletedAt})
	}
	return out
}

// Restore puts a trash entry back at the head of the root list.
func (s *Service) Restore(ctx context.Context, index int) (models.RawTile, error) {
	var out models.RawTile
	err := s.mutate(ctx, "restore", func() error {
		s.endDrags()
		t, err := s.store.Restore(index)
		if err != nil {
			return err
		}
		out = encodeTile(t)
		return nil
	})
	return out, err
}

// Purge removes one trash entry for good.
func (s *Service) Purge(ctx context.Context, index int) error {
	return s.mutate(ctx, "purge", func() error {
		return s.store.Purge(index)
	})
}

// EmptyTrash removes every trash entry for good.
func (s *Service) EmptyTrash(ctx context.Context) error {
	return s.mutate(ctx, "purge", func() error {
		s.store.EmptyTrash()
		return nil
	})
}

// Favorites lists favorite links across all folders.
func (s *Service) Favorites() []models.RawTile {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs := s.store.Favorites()
	out := make([]models.RawTile, 0, len(favs))
	for _, l := range favs {
		out = append(out, encodeTile(l))
	}
	return out
}

// Notes lists the notes of the root list.
func (s *Service) Notes() []NoteItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := s.store.Notes()
	out := make([]NoteItem, 0, len(refs))
	for _, r := range refs {
		out = append(out, NoteItem{Index: r.Index, Tile: encodeTile(r.Note)})
	}
	return out
}

// Search finds tiles by name or URL anywhere in the forest.
func (s *Service) Search(query string) []SearchHit {
	s.mu.Lock()
	defer s.mu.Unlock()
	hits := s.store.Search(query)
	out := make([]SearchHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, SearchHit{Path: h.Path, Tile: encodeTile(h.Tile)})
	}
	return out
}
