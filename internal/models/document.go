package models

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Document keys with a meaning to the core. Every other key is cosmetic and
// travels in Document.Extra untouched.
const (
	KeyTiles       = "tiles"
	KeyTrash       = "trash"
	KeyEngine      = "engine"
	KeyUserName    = "userName"
	KeyWeatherCity = "weatherCity"
	KeyAutoSync    = "autoSync"

	// KeyWeather holds cached forecast data; it is never written to disk.
	KeyWeather = "weather"
)

// Document is the persisted dashboard state.
type Document struct {
	Tiles       []Tile
	Trash       []TrashEntry
	Engine      string
	UserName    string
	WeatherCity string
	AutoSync    bool
	Extra       map[string]json.RawMessage
}

// Fields flattens the document into top-level keys, the shape the storage
// tiers and the on-disk file use.
func (d *Document) Fields() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(d.Extra)+6)
	maps.Copy(out, d.Extra)

	put := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("models: encode %s: %w", key, err)
		}
		out[key] = b
		return nil
	}
	if err := put(KeyTiles, Encode(d.Tiles)); err != nil {
		return nil, err
	}
	if err := put(KeyTrash, EncodeTrash(d.Trash)); err != nil {
		return nil, err
	}
	if err := put(KeyAutoSync, d.AutoSync); err != nil {
		return nil, err
	}
	for key, v := range map[string]string{
		KeyEngine:      d.Engine,
		KeyUserName:    d.UserName,
		KeyWeatherCity: d.WeatherCity,
	} {
		if v == "" {
			continue
		}
		if err := put(key, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FromFields rebuilds a document from top-level keys. Missing keys leave the
// zero value; null values are treated as missing.
func FromFields(fields map[string]json.RawMessage) (*Document, error) {
	d := &Document{Tiles: []Tile{}, Trash: []TrashEntry{}, Extra: map[string]json.RawMessage{}}
	for key, raw := range fields {
		if isNull(raw) {
			continue
		}
		var err error
		switch key {
		case KeyTiles:
			var tiles []RawTile
			if err = json.Unmarshal(raw, &tiles); err == nil {
				d.Tiles = Normalize(tiles)
			}
		case KeyTrash:
			var trash []RawTile
			if err = json.Unmarshal(raw, &trash); err == nil {
				d.Trash = NormalizeTrash(trash)
			}
		case KeyEngine:
			err = json.Unmarshal(raw, &d.Engine)
		case KeyUserName:
			err = json.Unmarshal(raw, &d.UserName)
		case KeyWeatherCity:
			err = json.Unmarshal(raw, &d.WeatherCity)
		case KeyAutoSync:
			err = json.Unmarshal(raw, &d.AutoSync)
		default:
			d.Extra[key] = raw
		}
		if err != nil {
			return nil, fmt.Errorf("models: decode %s: %w", key, err)
		}
	}
	return d, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// MarshalJSON encodes the document as a flat object.
func (d *Document) MarshalJSON() ([]byte, error) {
	fields, err := d.Fields()
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// UnmarshalJSON decodes a flat object.
func (d *Document) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("models: decode document: %w", err)
	}
	doc, err := FromFields(fields)
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

// HasTiles reports whether the document carries any tile. A document without
// tiles is treated as "no data" by the load sequence.
func (d *Document) HasTiles() bool {
	return d != nil && len(d.Tiles) > 0
}

// Clone returns a deep copy that shares no memory with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Tiles = CloneTiles(d.Tiles)
	c.Trash = CloneTrash(d.Trash)
	c.Extra = make(map[string]json.RawMessage, len(d.Extra))
	for k, v := range d.Extra {
		c.Extra[k] = append(json.RawMessage(nil), v...)
	}
	return &c
}

// ForDisk returns the document minus transient keys that must not be
// written to the on-disk mirror.
func (d *Document) ForDisk() *Document {
	c := d.Clone()
	delete(c.Extra, KeyWeather)
	return c
}
