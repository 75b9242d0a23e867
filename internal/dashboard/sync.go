package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/tablero/internal/apperr"
	"github.com/starford/tablero/internal/persist"
)

// SyncStatus reports the on-disk mirror state.
func (s *Service) SyncStatus() persist.Status {
	return s.persist.Status()
}

// SelectDirectory points the on-disk mirror at path. A document already in
// that directory is read back and replaces the in-memory state.
func (s *Service) SelectDirectory(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("dashboard: select directory: %w: empty path", apperr.ErrInvalid)
	}
	if err := s.persist.SelectDirectory(ctx, path, s.Document()); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// ForgetDirectory stops mirroring to disk.
func (s *Service) ForgetDirectory(ctx context.Context) error {
	return s.persist.ForgetDirectory(ctx)
}

// SaveNow writes the document to disk right away.
func (s *Service) SaveNow(ctx context.Context) error {
	return s.persist.SaveNow(ctx, s.Document())
}
