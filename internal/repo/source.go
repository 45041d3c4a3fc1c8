package repo

import (
	"context"

	"github.com/cbout22/memview/internal/config"
)

// DataSource is the read surface the front end needs from a repository.
type DataSource interface {
	// LoadCollectionReport returns a collection's records in listing order
	// together with the folders that were skipped.
	LoadCollectionReport(ctx context.Context, col config.Collection) (Report, error)

	// ResolveAssetURL builds the URL of a repository-relative file.
	ResolveAssetURL(relativePath string) (string, bool)

	// RepositorySizeKB is best effort and returns 0 on failure.
	RepositorySizeKB(ctx context.Context) int64

	// BackgroundMusicURL reads the configured background track, if any.
	BackgroundMusicURL(ctx context.Context) (string, bool, error)
}

var _ DataSource = (*Client)(nil)
