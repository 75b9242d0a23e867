// Package models defines the domain types for Tablero.
package models

import "time"

// Kind discriminates the three tile variants.
type Kind string

// Tile kinds as they appear in the persisted document.
const (
	KindLink   Kind = "link"
	KindFolder Kind = "folder"
	KindNote   Kind = "note"
)

// Tile is a node in the dashboard forest. It is implemented only by
// *Link, *Folder and *Note; consumers switch over those three types.
type Tile interface {
	Kind() Kind
	Title() string
	isTile()
}

// Link is a launcher entry pointing at a URL.
type Link struct {
	Name       string
	URL        string
	Favorite   bool
	CustomIcon *string // data URL, nil when the favicon is used
}

// Folder groups tiles. Children is never nil once normalized.
type Folder struct {
	Name     string
	Children []Tile
}

// Note is a titled snippet of sanitized HTML.
type Note struct {
	Name    string
	Content string
}

func (*Link) Kind() Kind   { return KindLink }
func (*Folder) Kind() Kind { return KindFolder }
func (*Note) Kind() Kind   { return KindNote }

func (l *Link) Title() string   { return l.Name }
func (f *Folder) Title() string { return f.Name }
func (n *Note) Title() string   { return n.Name }

func (*Link) isTile()   {}
func (*Folder) isTile() {}
func (*Note) isTile()   {}

// TrashEntry is a soft-deleted tile.
type TrashEntry struct {
	Tile      Tile
	DeletedAt time.Time
}

// CloneTile returns a deep copy of t.
func CloneTile(t Tile) Tile {
	switch v := t.(type) {
	case *Link:
		c := *v
		if v.CustomIcon != nil {
			icon := *v.CustomIcon
			c.CustomIcon = &icon
		}
		return &c
	case *Folder:
		return &Folder{Name: v.Name, Children: CloneTiles(v.Children)}
	case *Note:
		c := *v
		return &c
	}
	return nil
}

// CloneTiles deep-copies a sequence. The result is never nil.
func CloneTiles(tiles []Tile) []Tile {
	out := make([]Tile, 0, len(tiles))
	for _, t := range tiles {
		out = append(out, CloneTile(t))
	}
	return out
}

// CloneTrash deep-copies a trash list. The result is never nil.
func CloneTrash(trash []TrashEntry) []TrashEntry {
	out := make([]TrashEntry, 0, len(trash))
	for _, e := range trash {
		out = append(out, TrashEntry{Tile: CloneTile(e.Tile), DeletedAt: e.DeletedAt})
	}
	return out
}

// StarterTiles is the default set used on first run when no bookmarks exist.
func StarterTiles() []Tile {
	return []Tile{
		&Link{Name: "YouTube", URL: "https://www.youtube.com/"},
		&Link{Name: "Google", URL: "https://www.google.com/", Favorite: true},
		&Link{Name: "Wikipedia", URL: "https://es.wikipedia.org/"},
		&Link{Name: "GitHub", URL: "https://github.com/"},
	}
}
