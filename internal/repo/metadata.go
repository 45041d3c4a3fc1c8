package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cbout22/memview/internal/apperror"
	"github.com/cbout22/memview/internal/config"
)

// RepoInfo is the subset of the repository metadata the viewer uses.
type RepoInfo struct {
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	Size          int64  `json:"size"`
}

// Repository fetches the repository metadata. It doubles as the access
// check: 401/403 mean the token cannot read the repository and 404 means
// it does not exist (or is invisible to the token).
func (c *Client) Repository(ctx context.Context) (RepoInfo, error) {
	op := "get repository " + c.coords.RepoFullName()
	body, err := c.get(ctx, op, c.repoURL())
	if err != nil {
		return RepoInfo{}, err
	}

	var info RepoInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return RepoInfo{}, apperror.Unavailable(op, fmt.Errorf("decoding repository info: %w", err))
	}
	return info, nil
}

// RepositorySizeKB returns the reported repository size divided by 1024.
// Size display is best effort, so every failure yields 0.
func (c *Client) RepositorySizeKB(ctx context.Context) int64 {
	info, err := c.Repository(ctx)
	if err != nil {
		c.logger.Debug("repository size unavailable", slog.String("error", err.Error()))
		return 0
	}
	if info.Size <= 0 {
		return 0
	}
	return info.Size / 1024
}

// ResolveBranch returns the branch reads should use. "latest" is replaced
// by the repository's default branch.
func (c *Client) ResolveBranch(ctx context.Context) (string, error) {
	if c.branch != config.LatestBranch {
		return c.branch, nil
	}
	info, err := c.Repository(ctx)
	if err != nil {
		return "", err
	}
	if info.DefaultBranch == "" {
		return "", fmt.Errorf("could not determine default branch for %s", c.coords.RepoFullName())
	}
	return info.DefaultBranch, nil
}
