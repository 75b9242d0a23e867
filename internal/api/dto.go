package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tablero/internal/dashboard"
	"github.com/starford/tablero/internal/models"
	"github.com/starford/tablero/internal/persist"
	"github.com/starford/tablero/internal/reorder"
	"github.com/starford/tablero/internal/tiletree"
)

// IndexRequest carries a single list index.
type IndexRequest struct {
	Index *int `json:"index" example:"0" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *IndexRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Index, validation.NotNil, validation.Min(0)),
	)
}

// AddTileRequest is the request body for creating a tile.
type AddTileRequest struct {
	Type       models.Kind `json:"type" example:"link" validate:"required"`
	Name       string      `json:"name" example:"GitHub" validate:"required"`
	URL        string      `json:"url,omitempty" example:"https://github.com/"`
	Content    string      `json:"content,omitempty" example:"<p>remember</p>"`
	CustomIcon *string     `json:"customIcon,omitempty"`
}

// Validate implements validation.Validatable. Field contents are checked by
// the tile store; this only rejects malformed requests.
func (r *AddTileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required,
			validation.In(models.KindLink, models.KindFolder, models.KindNote)),
		validation.Field(&r.URL, validation.When(r.Type == models.KindLink, validation.Required)),
	)
}

func (r *AddTileRequest) tile() dashboard.NewTile {
	return dashboard.NewTile{
		Type:       r.Type,
		Name:       r.Name,
		URL:        r.URL,
		Content:    r.Content,
		CustomIcon: r.CustomIcon,
	}
}

// EditTileRequest changes fields of a tile. Absent fields stay.
type EditTileRequest struct {
	Name      *string `json:"name,omitempty"`
	URL       *string `json:"url,omitempty"`
	Content   *string `json:"content,omitempty"`
	ClearIcon bool    `json:"clearIcon,omitempty"`
}

// Validate implements validation.Validatable.
func (r *EditTileRequest) Validate() error {
	if r.Name == nil && r.URL == nil && r.Content == nil && !r.ClearIcon {
		return validation.Errors{"body": validation.NewError("validation_empty_edit", "at least one field must be set")}
	}
	return nil
}

func (r *EditTileRequest) edit() tiletree.Edit {
	return tiletree.Edit{Name: r.Name, URL: r.URL, Content: r.Content, ClearIcon: r.ClearIcon}
}

// MoveTileRequest reorders within a list or, with Into, moves the tile at
// From into the folder at To.
type MoveTileRequest struct {
	From *int `json:"from" example:"0" validate:"required"`
	To   *int `json:"to" example:"3" validate:"required"`
	Into bool `json:"into,omitempty"`
}

// Validate implements validation.Validatable.
func (r *MoveTileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.From, validation.NotNil, validation.Min(0)),
		validation.Field(&r.To, validation.NotNil, validation.Min(0)),
	)
}

// DirectoryRequest selects the on-disk mirror directory.
type DirectoryRequest struct {
	Path string `json:"path" example:"/home/me/Dropbox/tablero" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *DirectoryRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
	)
}

// SettingsRequest patches settings.
type SettingsRequest struct {
	dashboard.SettingsPatch
}

// Validate implements validation.Validatable.
func (r *SettingsRequest) Validate() error {
	return validation.ValidateStruct(&r.SettingsPatch,
		validation.Field(&r.SettingsPatch.Engine, validation.NilOrNotEmpty),
	)
}

// FavoriteResponse reports the new favorite flag.
type FavoriteResponse struct {
	Favorite bool `json:"favorite"`
}

// HoverResponse is the highlight class for a hovered target.
type HoverResponse struct {
	Feedback reorder.Feedback `json:"feedback"`
}

// DragStartResponse reports whether a gesture began.
type DragStartResponse struct {
	Dragging bool `json:"dragging"`
}

// MoveResponse reports whether a move into a folder happened.
type MoveResponse struct {
	Moved bool `json:"moved"`
}

// ImportResponse reports how many bookmarks were added.
type ImportResponse struct {
	Added int `json:"added"`
}

// SyncStatus is the sync state payload.
type SyncStatus = persist.Status
