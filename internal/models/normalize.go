package models

import (
	"encoding/json"
	"time"
)

// RawTile is the loose wire shape of a tile. Older documents and imports may
// omit type or children; Normalize fills those in.
type RawTile struct {
	Type       string     `json:"type"`
	Name       string     `json:"name"`
	URL        string     `json:"url,omitempty"`
	Favorite   bool       `json:"favorite,omitempty"`
	CustomIcon *string    `json:"customIcon,omitempty"`
	Content    string     `json:"content,omitempty"`
	Children   *[]RawTile `json:"children,omitempty"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
}

// MarshalJSON always writes favorite and customIcon for links, null when
// no icon is set. Folders and notes omit them.
func (r RawTile) MarshalJSON() ([]byte, error) {
	type plain RawTile
	if r.Type != string(KindLink) {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		Favorite   bool    `json:"favorite"`
		CustomIcon *string `json:"customIcon"`
	}{plain(r), r.Favorite, r.CustomIcon})
}

// Normalize converts raw tiles into the typed forest. A missing or unknown
// type becomes a link and folders always get a children sequence.
// Normalize(Encode(Normalize(x))) equals Normalize(x).
func Normalize(raw []RawTile) []Tile {
	out := make([]Tile, 0, len(raw))
	for _, r := range raw {
		out = append(out, normalizeOne(r))
	}
	return out
}

func normalizeOne(r RawTile) Tile {
	switch Kind(r.Type) {
	case KindFolder:
		var children []RawTile
		if r.Children != nil {
			children = *r.Children
		}
		return &Folder{Name: r.Name, Children: Normalize(children)}
	case KindNote:
		return &Note{Name: r.Name, Content: r.Content}
	default:
		return &Link{Name: r.Name, URL: r.URL, Favorite: r.Favorite, CustomIcon: r.CustomIcon}
	}
}

// EnsureChildren walks tiles in place and replaces nil folder children with
// an empty sequence.
func EnsureChildren(tiles []Tile) {
	for _, t := range tiles {
		if f, ok := t.(*Folder); ok {
			if f.Children == nil {
				f.Children = []Tile{}
			}
			EnsureChildren(f.Children)
		}
	}
}

// Encode converts the typed forest back to its wire shape.
func Encode(tiles []Tile) []RawTile {
	out := make([]RawTile, 0, len(tiles))
	for _, t := range tiles {
		out = append(out, encodeOne(t))
	}
	return out
}

func encodeOne(t Tile) RawTile {
	switch v := t.(type) {
	case *Link:
		return RawTile{Type: string(KindLink), Name: v.Name, URL: v.URL, Favorite: v.Favorite, CustomIcon: v.CustomIcon}
	case *Folder:
		children := Encode(v.Children)
		return RawTile{Type: string(KindFolder), Name: v.Name, Children: &children}
	case *Note:
		return RawTile{Type: string(KindNote), Name: v.Name, Content: v.Content}
	}
	return RawTile{}
}

// NormalizeTrash converts raw trash entries. Entries without a deletion
// stamp keep the zero time.
func NormalizeTrash(raw []RawTile) []TrashEntry {
	out := make([]TrashEntry, 0, len(raw))
	for _, r := range raw {
		e := TrashEntry{Tile: normalizeOne(r)}
		if r.DeletedAt != nil {
			e.DeletedAt = *r.DeletedAt
		}
		out = append(out, e)
	}
	return out
}

// EncodeTrash converts trash entries to their wire shape.
func EncodeTrash(trash []TrashEntry) []RawTile {
	out := make([]RawTile, 0, len(trash))
	for _, e := range trash {
		r := encodeOne(e.Tile)
		if !e.DeletedAt.IsZero() {
			ts := e.DeletedAt.UTC()
			r.DeletedAt = &ts
		}
		out = append(out, r)
	}
	return out
}
