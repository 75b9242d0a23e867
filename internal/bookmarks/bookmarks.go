// Package bookmarks reads the browser bookmark tree used to seed a new
// dashboard.
package bookmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"

	"github.com/starford/tablero/internal/models"
)

// Bookmark is one URL entry of the tree.
type Bookmark struct {
	Title string
	URL   string
}

// Source yields every bookmark, flattened.
type Source interface {
	GetAll(ctx context.Context) ([]Bookmark, error)
}

// node mirrors the Chromium "Bookmarks" file entries.
type node struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Children []node `json:"children"`
}

type chromeFile struct {
	Roots map[string]node `json:"roots"`
}

// rootOrder is the order the browser shows its top-level folders in.
var rootOrder = []string{"bookmark_bar", "other", "synced"}

// ChromeFile reads a Chromium profile "Bookmarks" JSON file.
type ChromeFile struct {
	Path string
}

// GetAll parses the file and flattens it depth-first. A missing file or an
// empty Path yields no bookmarks.
func (c ChromeFile) GetAll(ctx context.Context) ([]Bookmark, error) {
	if c.Path == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bookmarks: read: %w", err)
	}
	return Parse(data)
}

// Parse flattens a Chromium bookmarks document.
func Parse(data []byte) ([]Bookmark, error) {
	var f chromeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("bookmarks: decode: %w", err)
	}
	var out []Bookmark
	seen := make(map[string]bool, len(f.Roots))
	for _, key := range rootOrder {
		if root, ok := f.Roots[key]; ok {
			out = flatten(out, []node{root})
			seen[key] = true
		}
	}
	for key, root := range f.Roots {
		if !seen[key] {
			out = flatten(out, []node{root})
		}
	}
	return out, nil
}

func flatten(out []Bookmark, nodes []node) []Bookmark {
	for _, n := range nodes {
		if n.URL != "" {
			out = append(out, Bookmark{Title: n.Name, URL: n.URL})
		}
		if len(n.Children) > 0 {
			out = flatten(out, n.Children)
		}
	}
	return out
}

// Tiles converts bookmarks to link tiles. Untitled bookmarks are named
// after their host.
func Tiles(bms []Bookmark) []models.Tile {
	out := make([]models.Tile, 0, len(bms))
	for _, b := range bms {
		name := b.Title
		if name == "" {
			if u, err := url.Parse(b.URL); err == nil && u.Hostname() != "" {
				name = u.Hostname()
			} else {
				name = b.URL
			}
		}
		out = append(out, &models.Link{Name: name, URL: b.URL})
	}
	return out
}
