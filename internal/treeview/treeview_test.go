package treeview

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/starford/tablero/internal/models"
)

func sampleDoc() *models.Document {
	return &models.Document{
		Tiles: []models.Tile{
			&models.Link{Name: "YouTube", URL: "https://www.youtube.com/", Favorite: true},
			&models.Folder{Name: "Work", Children: []models.Tile{
				&models.Link{Name: "Docs", URL: "https://docs.example.com/"},
			}},
			&models.Note{Name: "Ideas", Content: "<p>ship</p>"},
		},
		Trash: []models.TrashEntry{
			{Tile: &models.Link{Name: "Old", URL: "https://old.example.com/"}, DeletedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)},
		},
	}
}

func TestRenderNestsFolders(t *testing.T) {
	out := Render(sampleDoc(), "Tablero", Options{})

	for _, want := range []string{"Tablero", "YouTube", "★", "Work", "Docs", "Ideas"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "https://")
	assert.NotContains(t, out, "Trash")

	lines := strings.Split(out, "\n")
	var work, docs int
	for i, l := range lines {
		if strings.Contains(l, "Work") {
			work = i
		}
		if strings.Contains(l, "Docs") {
			docs = i
		}
	}
	assert.Greater(t, docs, work, "folder children follow the folder")
}

func TestRenderOptions(t *testing.T) {
	out := Render(sampleDoc(), "Tablero", Options{URLs: true, Trash: true})

	assert.Contains(t, out, "https://docs.example.com/")
	assert.Contains(t, out, "Trash (1)")
	assert.Contains(t, out, "Old")
	assert.Contains(t, out, "2026-01-02 03:04")
}

func TestRenderEmpty(t *testing.T) {
	out := Render(&models.Document{}, "Empty", Options{Trash: true})
	assert.Contains(t, out, "Empty")
	assert.NotContains(t, out, "Trash")
}
