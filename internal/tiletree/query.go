package tiletree

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/tablero/internal/models"
)

// Hit is a search match and its index path from the root.
type Hit struct {
	Path []int
	Tile models.Tile
}

// Search returns every tile whose name or URL contains query, ignoring
// case and accents, in depth-first document order. An empty query matches
// nothing.
func (s *Store) Search(query string) []Hit {
	q := fold(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var hits []Hit
	walk(s.tiles, nil, func(path []int, t models.Tile) bool {
		if matches(t, q) {
			hits = append(hits, Hit{Path: path, Tile: t})
		}
		return true
	})
	return hits
}

func matches(t models.Tile, q string) bool {
	if strings.Contains(fold(t.Title()), q) {
		return true
	}
	switch v := t.(type) {
	case *models.Link:
		return strings.Contains(fold(v.URL), q)
	case *models.Folder, *models.Note:
	}
	return false
}

// fold strips combining marks and case-folds s, so "Música" matches "musica".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Favorites returns the favorite links of the whole forest in document order.
func (s *Store) Favorites() []*models.Link {
	var out []*models.Link
	walk(s.tiles, nil, func(_ []int, t models.Tile) bool {
		if l, ok := t.(*models.Link); ok && l.Favorite {
			out = append(out, l)
		}
		return true
	})
	return out
}

// HasURL reports whether a link with url exists in the forest or the trash.
func (s *Store) HasURL(url string) bool {
	url = strings.TrimSpace(url)
	found := false
	visit := func(_ []int, t models.Tile) bool {
		if l, ok := t.(*models.Link); ok && l.URL == url {
			found = true
		}
		return !found
	}
	walk(s.tiles, nil, visit)
	for _, e := range s.trash {
		if found {
			break
		}
		walk([]models.Tile{e.Tile}, nil, visit)
	}
	return found
}

// NoteRef is a root-level note and its index in the root list.
type NoteRef struct {
	Index int
	Note  *models.Note
}

// Notes returns the notes held directly by the root list.
func (s *Store) Notes() []NoteRef {
	var out []NoteRef
	for i, t := range s.tiles {
		if n, ok := t.(*models.Note); ok {
			out = append(out, NoteRef{Index: i, Note: n})
		}
	}
	return out
}

// Resolve follows an index path from the root and returns the tile there.
func (s *Store) Resolve(path []int) (models.Tile, bool) {
	tiles := s.tiles
	var cur models.Tile
	for depth, i := range path {
		if i < 0 || i >= len(tiles) {
			return nil, false
		}
		cur = tiles[i]
		if depth == len(path)-1 {
			break
		}
		f, ok := cur.(*models.Folder)
		if !ok {
			return nil, false
		}
		tiles = f.Children
	}
	return cur, cur != nil
}
