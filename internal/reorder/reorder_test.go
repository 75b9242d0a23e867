package reorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/tablero/internal/models"
	"github.com/starford/tablero/internal/tiletree"
)

func titles(tiles []models.Tile) []string {
	out := make([]string, len(tiles))
	for i, t := range tiles {
		out[i] = t.Title()
	}
	return out
}

func newStore(tiles ...models.Tile) *tiletree.Store {
	s := tiletree.New()
	s.Replace(tiles, nil)
	return s
}

func TestGrid_ReorderSkipsNotes(t *testing.T) {
	s := newStore(
		&models.Link{Name: "A", URL: "https://a.example/"},
		&models.Note{Name: "N"},
		&models.Link{Name: "B", URL: "https://b.example/"},
		&models.Link{Name: "C", URL: "https://c.example/"},
	)
	g := NewSession(SurfaceGrid)
	assert.Equal(t, []int{0, 2, 3}, g.Rendered(s.Root()))

	require.True(t, g.Begin(s.Root(), 0))
	assert.Equal(t, FeedbackDragOver, g.Hover(s.Root(), 2))
	out := g.Drop(s, s.Root(), 2)
	g.End()

	assert.Equal(t, Outcome{Action: ActionReorder, From: 0, To: 3, Moved: true}, out)
	assert.Equal(t, []string{"N", "B", "C", "A"}, titles(s.Tiles()))
}

func TestGrid_DropOnFolder(t *testing.T) {
	work := &models.Folder{Name: "Work", Children: []models.Tile{}}
	s := newStore(&models.Link{Name: "A", URL: "https://a.example/"}, work)
	g := NewSession(SurfaceGrid)

	require.True(t, g.Begin(s.Root(), 0))
	assert.Equal(t, FeedbackFolder, g.Hover(s.Root(), 1))
	out := g.Drop(s, s.Root(), 1)
	g.End()

	assert.Equal(t, ActionIntoFolder, out.Action)
	assert.True(t, out.Moved)
	assert.Equal(t, []string{"Work"}, titles(s.Tiles()))
	assert.Equal(t, []string{"A"}, titles(work.Children))
}

func TestGrid_FolderOntoFolderDoesNotNest(t *testing.T) {
	f := &models.Folder{Name: "F", Children: []models.Tile{}}
	g2 := &models.Folder{Name: "G", Children: []models.Tile{}}
	s := newStore(f, g2)
	g := NewSession(SurfaceGrid)

	require.True(t, g.Begin(s.Root(), 0))
	out := g.Drop(s, s.Root(), 1)
	g.End()

	assert.Equal(t, ActionIntoFolder, out.Action)
	assert.False(t, out.Moved)
	assert.Equal(t, []string{"F", "G"}, titles(s.Tiles()))
}

func TestDropOntoSelfIsNoOp(t *testing.T) {
	s := newStore(&models.Link{Name: "A", URL: "https://a.example/"}, &models.Link{Name: "B", URL: "https://b.example/"})
	g := NewSession(SurfaceGrid)
	require.True(t, g.Begin(s.Root(), 1))
	assert.Equal(t, FeedbackNone, g.Hover(s.Root(), 1))
	assert.Equal(t, ActionNone, g.Drop(s, s.Root(), 1).Action)
	assert.Equal(t, ActionNone, g.Drop(s, s.Root(), 9).Action)
	g.End()
	assert.Equal(t, []string{"A", "B"}, titles(s.Tiles()))
}

func TestEditor_ReorderOnlyAndShowsNotes(t *testing.T) {
	work := &models.Folder{Name: "Work", Children: []models.Tile{}}
	s := newStore(&models.Note{Name: "N"}, work, &models.Link{Name: "A", URL: "https://a.example/"})
	e := NewSession(SurfaceEditor)
	assert.Equal(t, []int{0, 1, 2}, e.Rendered(s.Root()))

	require.True(t, e.Begin(s.Root(), 2))
	assert.Equal(t, FeedbackDragOver, e.Hover(s.Root(), 1), "editor never highlights folders as targets")
	out := e.Drop(s, s.Root(), 1)
	e.End()

	assert.Equal(t, ActionReorder, out.Action)
	assert.Equal(t, []string{"N", "A", "Work"}, titles(s.Tiles()))
	assert.Empty(t, work.Children)
}

func TestEndAlwaysClearsState(t *testing.T) {
	s := newStore(&models.Link{Name: "A", URL: "https://a.example/"}, &models.Link{Name: "B", URL: "https://b.example/"})
	g := NewSession(SurfaceGrid)
	require.True(t, g.Begin(s.Root(), 0))
	g.End()

	_, dragging := g.Dragging()
	assert.False(t, dragging)
	assert.Equal(t, FeedbackNone, g.Hover(s.Root(), 1))
	assert.Equal(t, ActionNone, g.Drop(s, s.Root(), 1).Action, "a drop after end must not use stale state")
}

func TestSessionsAreIndependent(t *testing.T) {
	s := newStore(&models.Link{Name: "A", URL: "https://a.example/"}, &models.Link{Name: "B", URL: "https://b.example/"})
	g := NewSession(SurfaceGrid)
	e := NewSession(SurfaceEditor)

	require.True(t, g.Begin(s.Root(), 0))
	_, editorDragging := e.Dragging()
	assert.False(t, editorDragging)
	e.End()

	_, gridDragging := g.Dragging()
	assert.True(t, gridDragging)
}

func TestDropInOtherContainerIsIgnored(t *testing.T) {
	work := &models.Folder{Name: "Work", Children: []models.Tile{
		&models.Link{Name: "X", URL: "https://x.example/"},
		&models.Link{Name: "Y", URL: "https://y.example/"},
	}}
	s := newStore(&models.Link{Name: "A", URL: "https://a.example/"}, work)
	g := NewSession(SurfaceGrid)

	require.True(t, g.Begin(s.Root(), 0))
	out := g.Drop(s, tiletree.FolderContainer(work), 1)
	assert.Equal(t, ActionNone, out.Action)
	assert.Equal(t, []string{"X", "Y"}, titles(work.Children))
}

func TestBeginOutOfRange(t *testing.T) {
	s := newStore(&models.Note{Name: "N"})
	g := NewSession(SurfaceGrid)
	assert.False(t, g.Begin(s.Root(), 0), "notes are not rendered in the grid")
}
