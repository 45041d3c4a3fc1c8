package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbout22/memview/internal/config"
	"github.com/cbout22/memview/internal/repo"
)

type listOptions struct {
	output       string
	listingOrder bool
}

func (o *listOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", FormatText, "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&o.listingOrder, "listing-order", false, "Keep the repository's folder order instead of sorting")
}

// newListCmd creates the `list` command.
// Usage: memview list <collection> [-o text|json|yaml] [--listing-order]
func newListCmd(flags *globalFlags) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "List the records of one collection",
		Long: `Lists every record of a collection: memories, rosters (alias students)
or developers. Folders whose data.json is missing or malformed are skipped
and reported at the end.`,
		Example: `  memview list memories
  memview list rosters -o yaml`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeCollections,
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := config.ParseCollection(args[0])
			if err != nil {
				return err
			}
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
			return runListWith(cmd.Context(), cmd.OutOrStdout(), src, col, opts)
		},
	}
	opts.bind(cmd)

	return cmd
}

func runListWith(ctx context.Context, out io.Writer, src repo.DataSource, col config.Collection, opts *listOptions) error {
	report, err := src.LoadCollectionReport(ctx, col)
	if err != nil {
		return fmt.Errorf("loading %s: %w", col, explain(err))
	}
	return render(out, opts.output, []collectionView{buildView(src, report, !opts.listingOrder)})
}

// completeCollections completes the collection argument of `list`.
func completeCollections(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var completions []string
	for _, c := range config.ValidCollections() {
		if strings.HasPrefix(string(c), toComplete) {
			completions = append(completions, fmt.Sprintf("%s\t%s", c, collectionDescriptions[c]))
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

var collectionDescriptions = map[config.Collection]string{
	config.Memories:   "Photos and stories",
	config.Rosters:    "Students and teachers",
	config.Developers: "People who built the site",
}
