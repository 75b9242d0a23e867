// Package reorder interprets drag-and-drop gestures over a rendered view of
// the tile forest and turns them into tree mutations.
package reorder

import (
	"github.com/starford/tablero/internal/models"
	"github.com/starford/tablero/internal/tiletree"
)

// Surface names a rendered list that supports dragging.
type Surface string

const (
	// SurfaceGrid is the folder-tree grid. Notes are not rendered there and
	// links can be dropped into folders.
	SurfaceGrid Surface = "grid"
	// SurfaceEditor is the flat root editor list. It only reorders.
	SurfaceEditor Surface = "editor"
)

// Valid reports whether s is a known surface.
func (s Surface) Valid() bool {
	return s == SurfaceGrid || s == SurfaceEditor
}

// Feedback is the highlight class the renderer shows on a hovered target.
type Feedback string

const (
	FeedbackNone     Feedback = ""
	FeedbackDragOver Feedback = "drag-over"
	FeedbackFolder   Feedback = "drag-over-folder"
)

// Action is what a drop did.
type Action string

const (
	ActionNone       Action = "none"
	ActionReorder    Action = "reorder"
	ActionIntoFolder Action = "into-folder"
)

// Outcome describes a drop. From and To are container indices; Moved is
// false when the store refused the move.
type Outcome struct {
	Action Action `json:"action"`
	From   int    `json:"from"`
	To     int    `json:"to"`
	Moved  bool   `json:"moved"`
}

// Session is the drag state of one surface. The zero value is not usable;
// use NewSession.
type Session struct {
	surface   Surface
	dragging  bool
	source    int
	container tiletree.Container
}

// NewSession returns an idle session for surface.
func NewSession(surface Surface) *Session {
	return &Session{surface: surface}
}

// Surface returns the surface this session belongs to.
func (s *Session) Surface() Surface { return s.surface }

// Dragging reports whether a gesture is in progress and which rendered
// index it started from.
func (s *Session) Dragging() (int, bool) {
	return s.source, s.dragging
}

// Rendered returns the container indices visible on this surface, in
// render order. Rendered index i maps to container index Rendered(c)[i].
func (s *Session) Rendered(c tiletree.Container) []int {
	tiles := c.Tiles()
	out := make([]int, 0, len(tiles))
	for i, t := range tiles {
		switch t.(type) {
		case *models.Note:
			if s.surface == SurfaceGrid {
				continue
			}
		case *models.Link, *models.Folder:
		}
		out = append(out, i)
	}
	return out
}

// Begin starts a gesture on rendered index. An index outside the rendered
// view leaves the session idle.
func (s *Session) Begin(c tiletree.Container, index int) bool {
	s.End()
	if _, ok := s.lookup(c, index); !ok {
		return false
	}
	s.dragging = true
	s.source = index
	s.container = c
	return true
}

// Hover returns the highlight for target. Hovering the source, an invalid
// target or a different container gives no highlight.
func (s *Session) Hover(c tiletree.Container, target int) Feedback {
	if !s.dragging || !c.Same(s.container) || target == s.source {
		return FeedbackNone
	}
	t, ok := s.lookup(c, target)
	if !ok {
		return FeedbackNone
	}
	if s.surface == SurfaceGrid {
		if _, isFolder := t.(*models.Folder); isFolder {
			return FeedbackFolder
		}
	}
	return FeedbackDragOver
}

// Drop applies the gesture to the store. Dropping onto the source or onto
// an invalid target changes nothing. The session stays active until End.
func (s *Session) Drop(store *tiletree.Store, c tiletree.Container, target int) Outcome {
	none := Outcome{Action: ActionNone}
	if !s.dragging || !c.Same(s.container) || target == s.source {
		return none
	}
	rendered := s.Rendered(c)
	if s.source < 0 || s.source >= len(rendered) || target < 0 || target >= len(rendered) {
		return none
	}
	from, to := rendered[s.source], rendered[target]

	if s.surface == SurfaceGrid {
		dst, _ := c.At(to)
		if f, ok := dst.(*models.Folder); ok {
			moved := store.MoveIntoFolder(c, from, f)
			return Outcome{Action: ActionIntoFolder, From: from, To: to, Moved: moved}
		}
	}
	if err := store.MoveWithinContainer(c, from, to); err != nil {
		return none
	}
	return Outcome{Action: ActionReorder, From: from, To: to, Moved: true}
}

// End clears the drag state whether or not a drop happened.
func (s *Session) End() {
	s.dragging = false
	s.source = -1
	s.container = tiletree.Container{}
}

func (s *Session) lookup(c tiletree.Container, index int) (models.Tile, bool) {
	rendered := s.Rendered(c)
	if index < 0 || index >= len(rendered) {
		return nil, false
	}
	return c.At(rendered[index])
}
