package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cbout22/memview/internal/repo"
)

// newSizeCmd creates the `size` command.
func newSizeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Show the approximate size of the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, flags)
			if err != nil {
				return err
			}
			src, err := e.source(cmd.Context())
			if err != nil {
				return err
			}
			return runSizeWith(cmd.Context(), cmd.OutOrStdout(), src)
		},
	}
}

func runSizeWith(ctx context.Context, out io.Writer, src repo.DataSource) error {
	fmt.Fprintf(out, "📦 Repository size: %s\n", formatSize(src.RepositorySizeKB(ctx)))
	return nil
}

// formatSize prints 0 as unknown; the size lookup is best effort.
func formatSize(kb int64) string {
	if kb <= 0 {
		return "unknown"
	}
	if kb >= 1024 {
		return fmt.Sprintf("%.1f MB", float64(kb)/1024)
	}
	return fmt.Sprintf("%d KB", kb)
}

// newMusicCmd creates the `music` command.
func newMusicCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "music",
		Short: "Print the URL of the background music track",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, flags)
			if err != nil {
				return err
			}
			src, err := e.source(cmd.Context())
			if err != nil {
				return err
			}
			return runMusicWith(cmd.Context(), cmd.OutOrStdout(), src)
		},
	}
}

func runMusicWith(ctx context.Context, out io.Writer, src repo.DataSource) error {
	u, ok, err := src.BackgroundMusicURL(ctx)
	if err != nil {
		return fmt.Errorf("reading %s: %w", repo.MusicFile, explain(err))
	}
	if !ok {
		fmt.Fprintf(out, "🔇 No background music configured (%s is missing or empty).\n", repo.MusicFile)
		return nil
	}
	fmt.Fprintf(out, "🎵 %s\n", u)
	return nil
}
