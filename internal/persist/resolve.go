// Package persist reconciles the storage tiers (fast cache, on-disk mirror,
// synced tier) holding the dashboard document.
package persist

import (
	"context"
	"fmt"

	"github.com/starford/tablero/internal/models"
)

// Source names.
const (
	SourceFast      = "fast"
	SourceDisk      = "disk"
	SourceSynced    = "synced"
	SourceBookmarks = "bookmarks"
	SourceStarter   = "starter"
)

// Source is one tier consulted during load. Read returns (nil, nil) when
// the tier holds nothing or is unavailable.
type Source struct {
	Name string
	Read func(ctx context.Context) (*models.Document, error)
}

// Resolved is the outcome of Resolve.
type Resolved struct {
	// Doc is the first document that has tiles.
	Doc    *models.Document
	Source string
	// Base is the first document read, with or without tiles. Its settings
	// survive a first run.
	Base *models.Document
	// Errs collects read failures of skipped sources.
	Errs []error
}

// Resolve walks sources in priority order and returns the first document
// carrying tiles. It reports false when none does.
func Resolve(ctx context.Context, sources ...Source) (Resolved, bool) {
	var res Resolved
	for _, src := range sources {
		if ctx.Err() != nil {
			res.Errs = append(res.Errs, ctx.Err())
			break
		}
		doc, err := src.Read(ctx)
		if err != nil {
			res.Errs = append(res.Errs, fmt.Errorf("persist: read %s: %w", src.Name, err))
			continue
		}
		if doc == nil {
			continue
		}
		if res.Base == nil {
			res.Base = doc
		}
		if doc.HasTiles() {
			res.Doc = doc
			res.Source = src.Name
			return res, true
		}
	}
	return res, false
}
