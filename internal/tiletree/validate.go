package tiletree

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/microcosm-cc/bluemonday"

	"github.com/starford/tablero/internal/apperr"
	"github.com/starford/tablero/internal/models"
)

// MaxNoteLength is the largest note body accepted, in characters.
const MaxNoteLength = 10000

// names are stored as escaped plain text.
var namePolicy = bluemonday.StrictPolicy()

// prepare cleans t in place and validates it. On error t may hold the
// cleaned values but the tree itself has not been touched.
func (s *Store) prepare(t models.Tile) error {
	var err error
	switch v := t.(type) {
	case *models.Link:
		v.Name = cleanName(v.Name)
		v.URL = strings.TrimSpace(v.URL)
		err = validation.ValidateStruct(v,
			validation.Field(&v.Name, validation.Required),
			validation.Field(&v.URL, validation.Required, validation.By(absoluteURL)),
			validation.Field(&v.CustomIcon, validation.By(imageDataURL)),
		)
	case *models.Folder:
		v.Name = cleanName(v.Name)
		err = validation.ValidateStruct(v,
			validation.Field(&v.Name, validation.Required),
		)
	case *models.Note:
		v.Name = cleanName(v.Name)
		if err = validation.Validate(v.Content, validation.RuneLength(0, MaxNoteLength)); err != nil {
			err = validation.Errors{"content": err}
			break
		}
		v.Content = s.sanitizer.Sanitize(v.Content)
		err = validation.ValidateStruct(v,
			validation.Field(&v.Name, validation.Required),
		)
	}
	if err != nil {
		return fmt.Errorf("tiletree: %s: %w: %w", t.Kind(), apperr.ErrInvalid, err)
	}
	return nil
}

func cleanName(name string) string {
	return namePolicy.Sanitize(strings.TrimSpace(name))
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return errors.New("must be an absolute URL")
	}
	switch u.Scheme {
	case "http", "https", "ftp":
		if u.Host == "" {
			return errors.New("must include a host")
		}
	}
	return nil
}

func imageDataURL(value any) error {
	icon, _ := value.(*string)
	if icon == nil {
		return nil
	}
	if !strings.HasPrefix(*icon, "data:image/") {
		return errors.New("must be an image data URL")
	}
	return nil
}
