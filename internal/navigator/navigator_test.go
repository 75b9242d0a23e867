package navigator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/tablero/internal/models"
	"github.com/starford/tablero/internal/tiletree"
)

func forest() *tiletree.Store {
	s := tiletree.New()
	s.Replace([]models.Tile{
		&models.Link{Name: "A", URL: "https://a.example/"},
		&models.Folder{Name: "Work", Children: []models.Tile{
			&models.Folder{Name: "Deep", Children: []models.Tile{
				&models.Link{Name: "X", URL: "https://x.example/"},
			}},
		}},
		&models.Folder{Name: "Play", Children: []models.Tile{}},
	}, nil)
	return s
}

func TestEnterAndBack(t *testing.T) {
	s := forest()
	n := New()
	assert.True(t, n.IsRoot())

	require.True(t, n.Enter(n.CurrentView(s.Root()), 1))
	require.True(t, n.Enter(n.CurrentView(s.Root()), 0))
	assert.Equal(t, []int{1, 0}, n.Path())
	assert.Equal(t, []string{"Work", "Deep"}, n.Breadcrumbs(s.Root()))

	view := n.CurrentView(s.Root())
	require.Equal(t, 1, view.Len())
	tile, _ := view.At(0)
	assert.Equal(t, "X", tile.Title())

	require.True(t, n.Back())
	require.True(t, n.Back())
	assert.False(t, n.Back(), "back at root is a no-op")
	assert.True(t, n.IsRoot())
}

func TestEnter_NonFolderIsIgnored(t *testing.T) {
	s := forest()
	n := New()
	assert.False(t, n.Enter(n.CurrentView(s.Root()), 0))
	assert.False(t, n.Enter(n.CurrentView(s.Root()), 7))
	assert.True(t, n.IsRoot())
}

func TestCurrentView_StalePathResets(t *testing.T) {
	s := forest()
	n := New()
	require.True(t, n.Enter(n.CurrentView(s.Root()), 2))

	// Replace index 2 with a link behind the navigator's back.
	s.Replace([]models.Tile{
		&models.Link{Name: "A", URL: "https://a.example/"},
		&models.Link{Name: "B", URL: "https://b.example/"},
		&models.Link{Name: "C", URL: "https://c.example/"},
	}, nil)

	view := n.CurrentView(s.Root())
	assert.True(t, view.Same(s.Root()))
	assert.True(t, n.IsRoot())
}

func TestCurrentView_OutOfRangeResets(t *testing.T) {
	s := forest()
	n := New()
	require.True(t, n.Enter(n.CurrentView(s.Root()), 2))
	_, err := s.SoftDelete(s.Root(), 2)
	require.NoError(t, err)

	assert.True(t, n.CurrentView(s.Root()).Same(s.Root()))
	assert.Empty(t, n.Path())
}
