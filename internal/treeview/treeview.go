// Package treeview renders the tile forest as a styled terminal tree.
package treeview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/starford/tablero/internal/models"
)

var (
	rootStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	folderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	linkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	urlStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noteStyle     = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("178"))
	favoriteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	enumStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginRight(1)
)

// Options controls what Render includes.
type Options struct {
	// URLs appends each link's URL.
	URLs bool
	// Trash adds a section listing trashed tiles.
	Trash bool
}

// Render draws the document's tiles, folders expanded, under a root labelled
// title.
func Render(doc *models.Document, title string, opts Options) string {
	t := tree.Root(rootStyle.Render(title)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(enumStyle)
	for _, tile := range doc.Tiles {
		t.Child(node(tile, opts))
	}

	if opts.Trash && len(doc.Trash) > 0 {
		trash := tree.Root(folderStyle.Render(fmt.Sprintf("Trash (%d)", len(doc.Trash)))).
			Enumerator(tree.RoundedEnumerator).
			EnumeratorStyle(enumStyle)
		for _, e := range doc.Trash {
			trash.Child(label(e.Tile, opts) + urlStyle.Render("  deleted "+e.DeletedAt.Format("2006-01-02 15:04")))
		}
		t.Child(trash)
	}
	return t.String()
}

func node(tile models.Tile, opts Options) any {
	f, ok := tile.(*models.Folder)
	if !ok {
		return label(tile, opts)
	}
	sub := tree.Root(label(f, opts)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(enumStyle)
	for _, child := range f.Children {
		sub.Child(node(child, opts))
	}
	return sub
}

func label(tile models.Tile, opts Options) string {
	switch t := tile.(type) {
	case *models.Folder:
		return folderStyle.Render("▸ " + t.Name)
	case *models.Note:
		return noteStyle.Render("✎ " + t.Name)
	case *models.Link:
		var b strings.Builder
		if t.Favorite {
			b.WriteString(favoriteStyle.Render("★ "))
		}
		b.WriteString(linkStyle.Render(t.Name))
		if opts.URLs {
			b.WriteString(urlStyle.Render("  " + t.URL))
		}
		return b.String()
	}
	return tile.Title()
}
