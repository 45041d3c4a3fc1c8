package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	logFormat  string
}

// NewRootCmd creates the top-level `memview` command.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "memview",
		Short: "memview — browse school memories, rosters and developer profiles kept in a GitHub repository",
		Long: `memview reads the memories, rosters and developers collections of a
GitHub repository where every record is a folder holding a data.json file
and an optional image. Log in once with an owner:repository:token secret;
validated credentials are cached for 24 hours.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to memview.toml (default $MEMVIEW_CONFIG or ./memview.toml)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "text", "Log format: text or json")

	root.AddCommand(newLoginCmd(flags))
	root.AddCommand(newLogoutCmd(flags))
	root.AddCommand(newStatusCmd(flags))
	root.AddCommand(newListCmd(flags))
	root.AddCommand(newAllCmd(flags))
	root.AddCommand(newSizeCmd(flags))
	root.AddCommand(newMusicCmd(flags))

	return root
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(1)
	}
}
