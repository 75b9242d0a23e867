// Package navigator tracks which folder of the tile forest is being viewed.
package navigator

import (
	"slices"

	"github.com/starford/tablero/internal/models"
	"github.com/starford/tablero/internal/tiletree"
)

// Navigator holds the view path: folder indices from the root. An empty
// path is the root view.
type Navigator struct {
	path []int
}

// New returns a navigator positioned at the root.
func New() *Navigator {
	return &Navigator{path: []int{}}
}

// Path returns a copy of the current view path.
func (n *Navigator) Path() []int {
	return slices.Clone(n.path)
}

// IsRoot reports whether the root list is being viewed.
func (n *Navigator) IsRoot() bool {
	return len(n.path) == 0
}

// Reset returns to the root view.
func (n *Navigator) Reset() {
	n.path = n.path[:0]
}

// Enter descends into the folder at index of view. It does nothing and
// returns false when that tile is not a folder.
func (n *Navigator) Enter(view tiletree.Container, index int) bool {
	t, ok := view.At(index)
	if !ok {
		return false
	}
	switch t.(type) {
	case *models.Folder:
		n.path = append(n.path, index)
		return true
	case *models.Link, *models.Note:
	}
	return false
}

// Back pops one level. At the root it does nothing and returns false.
func (n *Navigator) Back() bool {
	if n.IsRoot() {
		return false
	}
	n.path = n.path[:len(n.path)-1]
	return true
}

// CurrentView follows the path from root. If any step no longer lands on a
// folder (the tree changed underneath) the path resets and the root is
// returned.
func (n *Navigator) CurrentView(root tiletree.Container) tiletree.Container {
	view := root
	for _, i := range n.path {
		t, ok := view.At(i)
		if !ok {
			n.Reset()
			return root
		}
		f, ok := t.(*models.Folder)
		if !ok {
			n.Reset()
			return root
		}
		view = tiletree.FolderContainer(f)
	}
	return view
}

// Breadcrumbs returns the folder names along the current path. A stale
// path is reset first, as in CurrentView.
func (n *Navigator) Breadcrumbs(root tiletree.Container) []string {
	n.CurrentView(root)
	out := make([]string, 0, len(n.path))
	view := root
	for _, i := range n.path {
		t, _ := view.At(i)
		f := t.(*models.Folder)
		out = append(out, f.Name)
		view = tiletree.FolderContainer(f)
	}
	return out
}
