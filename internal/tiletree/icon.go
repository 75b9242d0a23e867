package tiletree

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/starford/tablero/internal/apperr"
	"github.com/starford/tablero/internal/models"
)

// MaxIconBytes bounds custom icon uploads.
const MaxIconBytes = 1 << 20

// IconDataURL encodes raw image bytes as a data URL suitable for
// Link.CustomIcon. Anything that does not sniff as an image is rejected.
func IconDataURL(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("tiletree: icon: %w: empty upload", apperr.ErrInvalid)
	}
	if len(data) > MaxIconBytes {
		return "", fmt.Errorf("tiletree: icon: %w: %d bytes exceeds %d", apperr.ErrInvalid, len(data), MaxIconBytes)
	}
	mt := mimetype.Detect(data)
	mime := mt.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("tiletree: icon: %w: %s is not an image", apperr.ErrInvalid, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// SetCustomIcon replaces the icon of a link.
func (s *Store) SetCustomIcon(t models.Tile, dataURL string) error {
	link, ok := t.(*models.Link)
	if !ok {
		return fmt.Errorf("tiletree: icon: %w: only links carry icons", apperr.ErrInvalid)
	}
	if err := imageDataURL(&dataURL); err != nil {
		return fmt.Errorf("tiletree: icon: %w: %w", apperr.ErrInvalid, err)
	}
	link.CustomIcon = &dataURL
	return nil
}

// ClearCustomIcon reverts a link to its favicon.
func (s *Store) ClearCustomIcon(t models.Tile) error {
	link, ok := t.(*models.Link)
	if !ok {
		return fmt.Errorf("tiletree: icon: %w: only links carry icons", apperr.ErrInvalid)
	}
	link.CustomIcon = nil
	return nil
}
