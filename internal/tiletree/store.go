// Package tiletree holds the canonical tile forest and trash list and the
// mutation primitives that keep them well-formed.
package tiletree

import (
	"fmt"
	"slices"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/starford/tablero/internal/apperr"
	"github.com/starford/tablero/internal/models"
)

// Container addresses one ordered tile sequence: the root list or the
// children of a single folder.
type Container struct {
	tiles *[]models.Tile
}

// FolderContainer returns the container for f's children.
func FolderContainer(f *models.Folder) Container {
	if f.Children == nil {
		f.Children = []models.Tile{}
	}
	return Container{tiles: &f.Children}
}

// Tiles returns the live sequence. Callers must not mutate it directly.
func (c Container) Tiles() []models.Tile {
	if c.tiles == nil {
		return nil
	}
	return *c.tiles
}

// Len returns the number of tiles in the container.
func (c Container) Len() int { return len(c.Tiles()) }

// At returns the tile at index i.
func (c Container) At(i int) (models.Tile, bool) {
	tiles := c.Tiles()
	if i < 0 || i >= len(tiles) {
		return nil, false
	}
	return tiles[i], true
}

// Same reports whether c and other address the same sequence.
func (c Container) Same(other Container) bool { return c.tiles == other.tiles }

// Store owns the tile forest and the trash list. It is not safe for
// concurrent use; the dashboard service serialises access.
type Store struct {
	tiles     []models.Tile
	trash     []models.TrashEntry
	now       func() time.Time
	sanitizer *bluemonday.Policy
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp deletions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		tiles:     []models.Tile{},
		trash:     []models.TrashEntry{},
		now:       time.Now,
		sanitizer: bluemonday.UGCPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the root container.
func (s *Store) Root() Container { return Container{tiles: &s.tiles} }

// Tiles returns the live root sequence.
func (s *Store) Tiles() []models.Tile { return s.tiles }

// Trash returns the live trash list, most recent first.
func (s *Store) Trash() []models.TrashEntry { return s.trash }

// Replace swaps in loaded state. The store takes ownership of both slices.
func (s *Store) Replace(tiles []models.Tile, trash []models.TrashEntry) {
	if tiles == nil {
		tiles = []models.Tile{}
	}
	if trash == nil {
		trash = []models.TrashEntry{}
	}
	models.EnsureChildren(tiles)
	for _, e := range trash {
		models.EnsureChildren([]models.Tile{e.Tile})
	}
	s.tiles = tiles
	s.trash = trash
}

// Snapshot returns deep copies of the forest and the trash.
func (s *Store) Snapshot() ([]models.Tile, []models.TrashEntry) {
	return models.CloneTiles(s.tiles), models.CloneTrash(s.trash)
}

// InsertAtFront validates t and inserts it at index 0 of c.
func (s *Store) InsertAtFront(c Container, t models.Tile) error {
	if err := s.prepareNew(c, t); err != nil {
		return err
	}
	*c.tiles = slices.Insert(*c.tiles, 0, t)
	return nil
}

// Append validates t and adds it at the end of c.
func (s *Store) Append(c Container, t models.Tile) error {
	if err := s.prepareNew(c, t); err != nil {
		return err
	}
	*c.tiles = append(*c.tiles, t)
	return nil
}

func (s *Store) prepareNew(c Container, t models.Tile) error {
	if c.tiles == nil {
		return fmt.Errorf("tiletree: insert: %w: nil container", apperr.ErrInvalid)
	}
	if t == nil {
		return fmt.Errorf("tiletree: insert: %w: nil tile", apperr.ErrInvalid)
	}
	if s.contains(t) {
		return fmt.Errorf("tiletree: insert: %w: tile already in tree", apperr.ErrInvalid)
	}
	return s.prepare(t)
}

// MoveWithinContainer removes the tile at from and reinserts it at to.
func (s *Store) MoveWithinContainer(c Container, from, to int) error {
	n := c.Len()
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("tiletree: move %d->%d of %d: %w", from, to, n, apperr.ErrOutOfRange)
	}
	if from == to {
		return nil
	}
	item := (*c.tiles)[from]
	*c.tiles = slices.Delete(*c.tiles, from, from+1)
	*c.tiles = slices.Insert(*c.tiles, to, item)
	return nil
}

// MoveIntoFolder moves the tile at from into folder, at the head of its
// children. Only links and notes can be moved and a tile never nests into
// itself; in those cases nothing changes and false is returned.
func (s *Store) MoveIntoFolder(c Container, from int, folder *models.Folder) bool {
	item, ok := c.At(from)
	if !ok || folder == nil {
		return false
	}
	switch item.(type) {
	case *models.Link, *models.Note:
	case *models.Folder:
		return false
	}
	if item == models.Tile(folder) {
		return false
	}
	*c.tiles = slices.Delete(*c.tiles, from, from+1)
	dst := FolderContainer(folder)
	*dst.tiles = slices.Insert(*dst.tiles, 0, item)
	return true
}

// SoftDelete moves the tile at index i of c to the head of the trash.
func (s *Store) SoftDelete(c Container, i int) (models.TrashEntry, error) {
	item, ok := c.At(i)
	if !ok {
		return models.TrashEntry{}, fmt.Errorf("tiletree: delete %d of %d: %w", i, c.Len(), apperr.ErrOutOfRange)
	}
	*c.tiles = slices.Delete(*c.tiles, i, i+1)
	entry := models.TrashEntry{Tile: item, DeletedAt: s.now()}
	s.trash = slices.Insert(s.trash, 0, entry)
	return entry, nil
}

// Restore takes a trash entry back to the head of the root list. The
// folder it was deleted from is not remembered.
func (s *Store) Restore(trashIndex int) (models.Tile, error) {
	if trashIndex < 0 || trashIndex >= len(s.trash) {
		return nil, fmt.Errorf("tiletree: restore %d of %d: %w", trashIndex, len(s.trash), apperr.ErrOutOfRange)
	}
	entry := s.trash[trashIndex]
	s.trash = slices.Delete(s.trash, trashIndex, trashIndex+1)
	s.tiles = slices.Insert(s.tiles, 0, entry.Tile)
	return entry.Tile, nil
}

// Purge permanently removes one trash entry.
func (s *Store) Purge(trashIndex int) error {
	if trashIndex < 0 || trashIndex >= len(s.trash) {
		return fmt.Errorf("tiletree: purge %d of %d: %w", trashIndex, len(s.trash), apperr.ErrOutOfRange)
	}
	s.trash = slices.Delete(s.trash, trashIndex, trashIndex+1)
	return nil
}

// EmptyTrash permanently removes every trash entry.
func (s *Store) EmptyTrash() {
	s.trash = []models.TrashEntry{}
}

// ToggleFavorite flips the favorite flag of a link and returns the new value.
func (s *Store) ToggleFavorite(t models.Tile) (bool, error) {
	switch v := t.(type) {
	case *models.Link:
		v.Favorite = !v.Favorite
		return v.Favorite, nil
	case *models.Folder, *models.Note:
		return false, fmt.Errorf("tiletree: favorite: %w: only links can be favorites", apperr.ErrInvalid)
	}
	return false, fmt.Errorf("tiletree: favorite: %w: nil tile", apperr.ErrInvalid)
}

// Edit describes a change to an existing tile. Nil fields are left alone.
// Fields that do not apply to the tile's kind are ignored.
type Edit struct {
	Name       *string
	URL        *string
	Content    *string
	CustomIcon *string
	ClearIcon  bool
}

// Update applies e to the tile at index i of c. The edit is validated on a
// copy first, so a rejected edit leaves the tree untouched.
func (s *Store) Update(c Container, i int, e Edit) error {
	item, ok := c.At(i)
	if !ok {
		return fmt.Errorf("tiletree: update %d of %d: %w", i, c.Len(), apperr.ErrOutOfRange)
	}

	switch v := item.(type) {
	case *models.Link:
		next := *v
		applyName(&next.Name, e.Name)
		if e.URL != nil {
			next.URL = *e.URL
		}
		switch {
		case e.ClearIcon:
			next.CustomIcon = nil
		case e.CustomIcon != nil:
			icon := *e.CustomIcon
			next.CustomIcon = &icon
		}
		if err := s.prepare(&next); err != nil {
			return err
		}
		*v = next
	case *models.Folder:
		next := models.Folder{Name: v.Name, Children: v.Children}
		applyName(&next.Name, e.Name)
		if err := s.prepare(&next); err != nil {
			return err
		}
		v.Name = next.Name
	case *models.Note:
		next := *v
		applyName(&next.Name, e.Name)
		if e.Content != nil {
			next.Content = *e.Content
		}
		if err := s.prepare(&next); err != nil {
			return err
		}
		*v = next
	}
	return nil
}

func applyName(dst *string, name *string) {
	if name != nil {
		*dst = *name
	}
}

// contains reports whether t (by identity) is anywhere in the forest or trash.
func (s *Store) contains(t models.Tile) bool {
	found := false
	walk(s.tiles, nil, func(_ []int, cur models.Tile) bool {
		if cur == t {
			found = true
			return false
		}
		return true
	})
	if found {
		return true
	}
	for _, e := range s.trash {
		if e.Tile == t {
			return true
		}
	}
	return false
}

// WellFormed checks the structural invariants: every folder has a children
// sequence and every tile is held by exactly one container.
func (s *Store) WellFormed() error {
	seen := make(map[models.Tile]struct{})
	var err error
	check := func(path []int, t models.Tile) bool {
		if t == nil {
			err = fmt.Errorf("tiletree: nil tile at %v", path)
			return false
		}
		if _, dup := seen[t]; dup {
			err = fmt.Errorf("tiletree: tile %q at %v is held twice", t.Title(), path)
			return false
		}
		seen[t] = struct{}{}
		if f, ok := t.(*models.Folder); ok && f.Children == nil {
			err = fmt.Errorf("tiletree: folder %q at %v has no children sequence", f.Name, path)
			return false
		}
		return true
	}
	walk(s.tiles, nil, check)
	if err != nil {
		return err
	}
	for i, e := range s.trash {
		walk([]models.Tile{e.Tile}, []int{-1 - i}, check)
		if err != nil {
			return err
		}
	}
	return nil
}

// walk visits tiles depth-first. fn returns false to stop.
func walk(tiles []models.Tile, prefix []int, fn func(path []int, t models.Tile) bool) bool {
	for i, t := range tiles {
		path := append(slices.Clone(prefix), i)
		if !fn(path, t) {
			return false
		}
		if f, ok := t.(*models.Folder); ok {
			if !walk(f.Children, path, fn) {
				return false
			}
		}
	}
	return true
}
