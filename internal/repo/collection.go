package repo

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cbout22/memview/internal/apperror"
	"github.com/cbout22/memview/internal/config"
)

// SkipReason says why a folder produced no record.
type SkipReason string

const (
	SkipMissing SkipReason = "missing"   // no data.json in the folder
	SkipDecode  SkipReason = "malformed" // data.json is not a JSON object
	SkipFetch   SkipReason = "fetch"     // the document could not be downloaded
)

// Skipped describes a folder that was left out of a collection.
type Skipped struct {
	Folder string     `json:"folder" yaml:"folder"`
	Path   string     `json:"path" yaml:"path"`
	Reason SkipReason `json:"reason" yaml:"reason"`
	Err    error      `json:"-" yaml:"-"`
}

// Report is the outcome of loading one collection.
type Report struct {
	Collection config.Collection `json:"collection" yaml:"collection"`
	Records    []Record          `json:"records" yaml:"records"`
	Skipped    []Skipped         `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// LoadCollection returns the collection's records in folder-listing order.
// Folders without a readable data.json are skipped and logged.
func (c *Client) LoadCollection(ctx context.Context, col config.Collection) ([]Record, error) {
	report, err := c.LoadCollectionReport(ctx, col)
	if err != nil {
		return nil, err
	}
	return report.Records, nil
}

type fetchOutcome struct {
	rec *Record
	err error
}

// LoadCollectionReport is LoadCollection plus the list of skipped folders.
// Record fetches run concurrently but results are placed by listing index,
// so the order never depends on which fetch finishes first.
func (c *Client) LoadCollectionReport(ctx context.Context, col config.Collection) (Report, error) {
	entries, err := c.ListCollectionFolders(ctx, col)
	if err != nil {
		return Report{}, err
	}

	dirs := make([]FolderEntry, 0, len(entries))
	for _, e := range entries {
		if e.Kind == KindDir {
			dirs = append(dirs, e)
		}
	}

	outcomes := make([]fetchOutcome, len(dirs))
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, e := range dirs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := c.FetchRecord(ctx, e.Path)
			outcomes[i] = fetchOutcome{rec: rec, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	report := Report{Collection: col, Records: make([]Record, 0, len(dirs))}
	for i, o := range outcomes {
		e := dirs[i]
		switch {
		case o.err != nil:
			reason := SkipFetch
			if errors.Is(o.err, apperror.ErrDecode) {
				reason = SkipDecode
			}
			c.logger.Warn("skipping record",
				slog.String("collection", string(col)),
				slog.String("folder", e.Name),
				slog.String("reason", string(reason)),
				slog.String("error", o.err.Error()),
			)
			report.Skipped = append(report.Skipped, Skipped{Folder: e.Name, Path: e.Path, Reason: reason, Err: o.err})
		case o.rec == nil:
			c.logger.Debug("folder has no record document",
				slog.String("collection", string(col)),
				slog.String("folder", e.Name),
			)
			report.Skipped = append(report.Skipped, Skipped{Folder: e.Name, Path: e.Path, Reason: SkipMissing})
		default:
			rec := *o.rec
			rec.Collection = col
			rec.Folder = e.Name
			report.Records = append(report.Records, rec)
		}
	}
	return report, nil
}
