package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbout22/memview/internal/auth"
	"github.com/cbout22/memview/internal/credential"
)

// newLoginCmd creates the `login` command.
// Usage: memview login [owner:repository:token]
func newLoginCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login [owner:repository:token]",
		Short: "Validate a repository secret and cache it for 24 hours",
		Long: `Validates the secret against GitHub and caches it for 24 hours.

The secret is taken from the argument, then $MEMVIEW_SECRET, then one line
of standard input. Passing it as an argument leaves it in shell history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, flags)
			if err != nil {
				return err
			}
			secret, err := readSecret(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runLoginWith(cmd.Context(), cmd.OutOrStdout(), e.resolver, secret)
		},
	}
}

// readSecret picks the secret from args, the environment or one line of in.
func readSecret(args []string, in io.Reader) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if s, err := auth.SecretFromEnv(); err == nil {
		return s, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	if strings.TrimSpace(line) == "" {
		return "", errors.New("no secret given: pass owner:repository:token as an argument or set MEMVIEW_SECRET")
	}
	return line, nil
}

func runLoginWith(ctx context.Context, out io.Writer, r *credential.Resolver, secret string) error {
	c, err := r.Parse(secret)
	if err != nil {
		return explain(err)
	}

	fmt.Fprintf(out, "🔐 Validating access to %s...\n", c)
	stored, err := r.Authenticate(ctx, secret)
	if err != nil {
		return explain(err)
	}

	fmt.Fprintf(out, "✅ Logged in to %s (valid until %s)\n", stored, r.ExpiresAt(stored).Local().Format(time.DateTime))
	return nil
}

// newLogoutCmd creates the `logout` command.
func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached repository secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, flags)
			if err != nil {
				return err
			}
			return runLogoutWith(cmd.OutOrStdout(), e.resolver)
		},
	}
}

func runLogoutWith(out io.Writer, r *credential.Resolver) error {
	if err := r.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(out, "👋 Cached credentials removed.")
	return nil
}
