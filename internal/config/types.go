package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/cbout22/memview/internal/apperror"
)

// Collection is one of the top-level record categories stored in the
// remote repository.
type Collection string

const (
	Memories   Collection = "memories"
	Rosters    Collection = "rosters"
	Developers Collection = "developers"
)

// ValidCollections returns all supported collections in display order.
func ValidCollections() []Collection {
	return []Collection{Memories, Rosters, Developers}
}

// IsValid checks whether the collection is one of the known names.
func (c Collection) IsValid() bool {
	switch c {
	case Memories, Rosters, Developers:
		return true
	}
	return false
}

// ParseCollection accepts a collection name, plus "students" as an alias
// for rosters.
func ParseCollection(raw string) (Collection, error) {
	c := Collection(strings.ToLower(strings.TrimSpace(raw)))
	if c == "students" {
		return Rosters, nil
	}
	if !c.IsValid() {
		return "", fmt.Errorf("unknown collection %q (want one of memories, rosters, developers)", raw)
	}
	return c, nil
}

// Coordinates identify and authorize access to the remote repository.
// The token must never reach a log line or terminal; String and LogValue
// both redact it.
type Coordinates struct {
	Owner       string
	Repository  string
	Token       string
	ValidatedAt int64 // epoch milliseconds, 0 until stored
}

// ParseSecret splits a secret of the form "owner:repository:token".
// Exactly three non-empty segments are required.
func ParseSecret(secret string) (Coordinates, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return Coordinates{}, apperror.MalformedSecret("secret is empty")
	}
	parts := strings.Split(secret, ":")
	if len(parts) != 3 {
		return Coordinates{}, apperror.MalformedSecret(
			fmt.Sprintf("want owner:repository:token, got %d segment(s)", len(parts)))
	}
	for i, name := range []string{"owner", "repository", "token"} {
		if parts[i] == "" {
			return Coordinates{}, apperror.MalformedSecret(name + " segment is empty")
		}
	}
	return Coordinates{
		Owner:      parts[0],
		Repository: parts[1],
		Token:      parts[2],
	}, nil
}

// RepoFullName returns "owner/repository".
func (c Coordinates) RepoFullName() string {
	return fmt.Sprintf("%s/%s", c.Owner, c.Repository)
}

func (c Coordinates) String() string {
	return c.RepoFullName()
}

// GoString keeps the token out of %#v.
func (c Coordinates) GoString() string {
	return fmt.Sprintf("config.Coordinates{Owner:%q, Repository:%q, Token:\"[redacted]\", ValidatedAt:%d}",
		c.Owner, c.Repository, c.ValidatedAt)
}

// LogValue implements slog.LogValuer.
func (c Coordinates) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("owner", c.Owner),
		slog.String("repository", c.Repository),
		slog.String("token", "[redacted]"),
	)
}
