package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbout22/memview/internal/credential"
)

// newStatusCmd creates the `status` command.
// Usage: memview status [--strict]
func newStatusCmd(flags *globalFlags) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which repository the cached credentials point at",
		Long: `Reports whether cached credentials exist and how long they remain valid.
The token itself is never printed.

With --strict, the command exits with a non-zero code unless the cached
credentials are valid. Useful in scripts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, flags)
			if err != nil {
				return err
			}
			return runStatusWith(cmd.OutOrStdout(), e.resolver, time.Now(), strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with error code unless logged in")

	return cmd
}

func runStatusWith(out io.Writer, r *credential.Resolver, now time.Time, strict bool) error {
	state, c := r.Status()

	switch state {
	case credential.CacheValid:
		left := r.ExpiresAt(c).Sub(now).Round(time.Minute)
		fmt.Fprintf(out, "✅ Logged in to %s — expires in %s\n", c, left)
		return nil
	case credential.CacheExpired:
		fmt.Fprintf(out, "⌛ Credentials for %s expired at %s. Run 'memview login' again.\n",
			c, r.ExpiresAt(c).Local().Format(time.DateTime))
	case credential.CacheCorrupt:
		fmt.Fprintln(out, "⚠️  Cached credentials are unreadable. Run 'memview login' again.")
	default:
		fmt.Fprintln(out, "🔒 Not logged in. Run 'memview login'.")
	}

	if strict {
		return fmt.Errorf("credentials %s", state)
	}
	return nil
}
