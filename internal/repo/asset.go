package repo

import (
	"fmt"
	"strings"
)

// RawFileURL builds the content-host URL for a file at the given branch.
func RawFileURL(contentBase, owner, repository, branch, relativePath string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", strings.TrimRight(contentBase, "/"), owner, repository, branch, relativePath)
}

// ResolveAssetURL turns a repository-relative path into a fetchable URL.
// It reports false for an empty path. No request is made, so the asset
// may still turn out to be missing; callers show a placeholder then.
func (c *Client) ResolveAssetURL(relativePath string) (string, bool) {
	relativePath = strings.TrimPrefix(strings.TrimSpace(relativePath), "/")
	if relativePath == "" {
		return "", false
	}
	return RawFileURL(c.contentBase, c.coords.Owner, c.coords.Repository, c.branch, relativePath), true
}
