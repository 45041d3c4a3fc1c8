package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cbout22/memview/internal/config"
	"github.com/cbout22/memview/internal/repo"
)

// newAllCmd creates the `all` command.
// Usage: memview all [-o text|json|yaml] [--listing-order]
func newAllCmd(flags *globalFlags) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Load every collection plus the repository size",
		Long: `Loads memories, rosters and developers in parallel. A collection that
fails to load is reported in place; the others are still shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(opts.output); err != nil {
				return err
			}
			e, err := loadEnv(cmd, flags)
			if err != nil {
				return err
			}
			src, err := e.source(cmd.Context())
			if err != nil {
				return err
			}
			return runAllWith(cmd.Context(), cmd.OutOrStdout(), src, opts)
		},
	}
	opts.bind(cmd)

	return cmd
}

func runAllWith(ctx context.Context, out io.Writer, src repo.DataSource, opts *listOptions) error {
	cols := config.ValidCollections()
	views := make([]collectionView, len(cols))
	var sizeKB int64

	var g errgroup.Group
	for i, col := range cols {
		g.Go(func() error {
			report, err := src.LoadCollectionReport(ctx, col)
			if err != nil {
				views[i] = collectionView{Collection: col, Records: []recordView{}, Error: explain(err).Error()}
				return nil
			}
			views[i] = buildView(src, report, !opts.listingOrder)
			return nil
		})
	}
	g.Go(func() error {
		sizeKB = src.RepositorySizeKB(ctx)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	var failed int
	for _, v := range views {
		if v.Error != "" {
			failed++
		}
	}

	if err := render(out, opts.output, views); err != nil {
		return err
	}
	if opts.output == FormatText {
		fmt.Fprintf(out, "\n📦 Repository size: %s\n", formatSize(sizeKB))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d collection(s) failed to load", failed, len(views))
	}
	return nil
}
