package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbout22/memview/internal/apperror"
	"github.com/cbout22/memview/internal/auth"
	"github.com/cbout22/memview/internal/config"
	"github.com/cbout22/memview/internal/credential"
	"github.com/cbout22/memview/internal/repo"
)

// env bundles what every command needs: settings, a logger and the
// credential resolver.
type env struct {
	settings *config.Settings
	logger   *slog.Logger
	resolver *credential.Resolver
}

func newLogger(w io.Writer, verbose bool, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
}

// loadEnv reads settings and wires the credential resolver.
func loadEnv(cmd *cobra.Command, flags *globalFlags) (*env, error) {
	logger, err := newLogger(cmd.ErrOrStderr(), flags.verbose, flags.logFormat)
	if err != nil {
		return nil, err
	}

	path := flags.configPath
	if path == "" {
		path = config.SettingsPath()
	}
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	cachePath, err := settings.CachePath()
	if err != nil {
		return nil, err
	}

	clientOpts := append(repo.FromSettings(settings), repo.WithLogger(logger))
	resolver := credential.NewResolver(&credential.FileSlot{Path: cachePath},
		credential.WithLogger(logger),
		credential.WithProber(func(c config.Coordinates) credential.Prober {
			return repo.New(c, clientOpts...)
		}),
	)

	logger.Debug("settings loaded", slog.String("path", path), slog.String("cache", cachePath))
	return &env{settings: settings, logger: logger, resolver: resolver}, nil
}

// coordinates returns cached coordinates, or logs in with MEMVIEW_SECRET
// when the cache is empty or expired.
func (e *env) coordinates(ctx context.Context) (config.Coordinates, error) {
	if c, ok := e.resolver.LoadCached(); ok {
		return c, nil
	}
	secret, err := auth.SecretFromEnv()
	if err != nil {
		return config.Coordinates{}, errors.New("not logged in: run 'memview login' first")
	}
	e.logger.Info("authenticating from environment", slog.String("var", config.SecretEnvVar))
	c, err := e.resolver.Authenticate(ctx, secret)
	if err != nil {
		return config.Coordinates{}, explain(err)
	}
	return c, nil
}

// source opens a data client for the logged-in repository.
func (e *env) source(ctx context.Context) (*repo.Client, error) {
	c, err := e.coordinates(ctx)
	if err != nil {
		return nil, err
	}
	opts := append(repo.FromSettings(e.settings), repo.WithLogger(e.logger))
	client, err := repo.Open(ctx, c, opts...)
	if err != nil {
		return nil, explain(err)
	}
	e.logger.Debug("repository opened", slog.Any("coords", c), slog.String("branch", client.Branch()))
	return client, nil
}

// explain adds the next step a user should take to typed failures.
func explain(err error) error {
	switch apperror.Kind(err) {
	case apperror.ErrMalformedSecret:
		return fmt.Errorf("%w (expected owner:repository:token)", err)
	case apperror.ErrUnauthorized:
		return fmt.Errorf("%w — the token cannot read this repository, run 'memview login' again", err)
	case apperror.ErrNotFound:
		return fmt.Errorf("%w — check the owner and repository name, then run 'memview login' again", err)
	}
	if apperror.Retryable(err) {
		return fmt.Errorf("%w — GitHub could not be reached, try again later", err)
	}
	return err
}
