package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRaw(t *testing.T, s string) []RawTile {
	t.Helper()
	var raw []RawTile
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestNormalize_BackfillsTypeAndChildren(t *testing.T) {
	raw := decodeRaw(t, `[
		{"name":"A","url":"https://a.example/"},
		{"name":"B"},
		{"type":"folder","name":"F"},
		{"type":"note","name":"N","content":"<p>x</p>"}
	]`)

	tiles := Normalize(raw)
	require.Len(t, tiles, 4)

	a, ok := tiles[0].(*Link)
	require.True(t, ok)
	assert.Equal(t, "https://a.example/", a.URL)

	_, ok = tiles[1].(*Link)
	assert.True(t, ok, "untyped tile without url defaults to link")

	f, ok := tiles[2].(*Folder)
	require.True(t, ok)
	assert.NotNil(t, f.Children)
	assert.Empty(t, f.Children)

	n, ok := tiles[3].(*Note)
	require.True(t, ok)
	assert.Equal(t, "<p>x</p>", n.Content)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		`[]`,
		`[{"name":"A","url":"https://a.example/","favorite":true}]`,
		`[{"type":"folder","name":"F","children":[{"name":"inner","url":"https://i.example/"},{"type":"folder","name":"G"}]}]`,
		`[{"type":"note","name":"N"},{"type":"mystery","name":"M","url":"x:y"}]`,
	}
	for _, in := range inputs {
		once := Normalize(decodeRaw(t, in))
		twice := Normalize(Encode(once))
		assert.Equal(t, once, twice, "input %s", in)
	}
}

func TestEnsureChildren(t *testing.T) {
	inner := &Folder{Name: "inner"}
	tiles := []Tile{&Folder{Name: "outer", Children: []Tile{inner}}}
	EnsureChildren(tiles)
	assert.NotNil(t, inner.Children)
}

func TestDocument_RoundTripKeepsCosmeticKeys(t *testing.T) {
	in := `{
		"tiles":[{"type":"link","name":"Go","url":"https://go.dev/"}],
		"trash":[{"type":"note","name":"old","content":"","deletedAt":"2025-03-01T10:00:00Z"}],
		"engine":"duckduckgo",
		"userName":"Ana",
		"autoSync":true,
		"panelBlur":6,
		"gradient":"sunset"
	}`
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(in), &doc))

	assert.Equal(t, "duckduckgo", doc.Engine)
	assert.Equal(t, "Ana", doc.UserName)
	assert.True(t, doc.AutoSync)
	require.Len(t, doc.Trash, 1)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), doc.Trash[0].DeletedAt)
	assert.JSONEq(t, `6`, string(doc.Extra["panelBlur"]))

	out, err := json.Marshal(&doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"tiles":[{"type":"link","name":"Go","url":"https://go.dev/","favorite":false,"customIcon":null}],
		"trash":[{"type":"note","name":"old","deletedAt":"2025-03-01T10:00:00Z"}],
		"engine":"duckduckgo",
		"userName":"Ana",
		"autoSync":true,
		"panelBlur":6,
		"gradient":"sunset"
	}`, string(out))
}

func TestDocument_FolderChildrenAlwaysEncoded(t *testing.T) {
	doc := &Document{Tiles: []Tile{&Folder{Name: "Work"}}}
	out, err := json.Marshal(doc)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.JSONEq(t, `[{"type":"folder","name":"Work","children":[]}]`, string(fields[KeyTiles]))
}

func TestEncode_LinkAlwaysCarriesFavoriteAndIcon(t *testing.T) {
	icon := "data:image/png;base64,AAAA"
	out, err := json.Marshal(Encode([]Tile{
		&Link{Name: "Go", URL: "https://go.dev/"},
		&Link{Name: "GH", URL: "https://github.com/", Favorite: true, CustomIcon: &icon},
		&Note{Name: "N", Content: "<p>x</p>"},
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type":"link","name":"Go","url":"https://go.dev/","favorite":false,"customIcon":null},
		{"type":"link","name":"GH","url":"https://github.com/","favorite":true,"customIcon":"data:image/png;base64,AAAA"},
		{"type":"note","name":"N","content":"<p>x</p>"}
	]`, string(out))
}

func TestDocument_NullTilesMeansNoData(t *testing.T) {
	doc, err := FromFields(map[string]json.RawMessage{KeyTiles: json.RawMessage("null")})
	require.NoError(t, err)
	assert.False(t, doc.HasTiles())
	assert.NotNil(t, doc.Tiles)
}

func TestDocument_CloneIsDeep(t *testing.T) {
	icon := "data:image/png;base64,AAAA"
	link := &Link{Name: "A", URL: "https://a.example/", CustomIcon: &icon}
	doc := &Document{Tiles: []Tile{&Folder{Name: "F", Children: []Tile{link}}}}

	c := doc.Clone()
	link.Name = "changed"
	*link.CustomIcon = "changed"

	cl := c.Tiles[0].(*Folder).Children[0].(*Link)
	assert.Equal(t, "A", cl.Name)
	assert.Equal(t, "data:image/png;base64,AAAA", *cl.CustomIcon)
}

func TestDocument_ForDiskDropsWeather(t *testing.T) {
	doc := &Document{Extra: map[string]json.RawMessage{
		KeyWeather: json.RawMessage(`{"temp":20}`),
		"theme":    json.RawMessage(`"paisaje"`),
	}}
	disk := doc.ForDisk()
	assert.NotContains(t, disk.Extra, KeyWeather)
	assert.Contains(t, disk.Extra, "theme")
	assert.Contains(t, doc.Extra, KeyWeather, "original must be untouched")
}

func TestStarterTiles(t *testing.T) {
	tiles := StarterTiles()
	require.Len(t, tiles, 4)
	names := make([]string, len(tiles))
	for i, tl := range tiles {
		names[i] = tl.Title()
	}
	assert.Equal(t, []string{"YouTube", "Google", "Wikipedia", "GitHub"}, names)
	assert.True(t, tiles[1].(*Link).Favorite)
}
