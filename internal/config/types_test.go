package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbout22/memview/internal/apperror"
)

func TestCollectionIsValid(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input Collection
		want  bool
	}{
		{Memories, true},
		{Rosters, true},
		{Developers, true},
		{"students", false},
		{"", false},
		{"MEMORIES", false},
	}
	for _, tc := range cases {
		if got := tc.input.IsValid(); got != tc.want {
			t.Errorf("Collection(%q).IsValid() = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestParseCollection(t *testing.T) {
	t.Parallel()
	cases := map[string]Collection{
		"memories":    Memories,
		" Rosters ":   Rosters,
		"students":    Rosters,
		"DEVELOPERS":  Developers,
	}
	for raw, want := range cases {
		got, err := ParseCollection(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseCollection("photos")
	assert.Error(t, err)
}

func TestValidCollections_Order(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []Collection{Memories, Rosters, Developers}, ValidCollections())
}

func TestParseSecret_Valid(t *testing.T) {
	t.Parallel()
	c, err := ParseSecret("alice:repo:tok")
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Owner: "alice", Repository: "repo", Token: "tok"}, c)
}

func TestParseSecret_TrimsOuterWhitespace(t *testing.T) {
	t.Parallel()
	c, err := ParseSecret("  alice:school:ghp_abc\n")
	require.NoError(t, err)
	assert.Equal(t, "ghp_abc", c.Token)
}

func TestParseSecret_ErrorCases(t *testing.T) {
	t.Parallel()
	cases := []string{
		"",
		"   ",
		"alice",
		"alice:repo",
		"alice:repo:tok:extra",
		":repo:tok",
		"alice::tok",
		"alice:repo:",
		"::",
		"alice:repo:tok:",
	}
	for _, raw := range cases {
		_, err := ParseSecret(raw)
		assert.ErrorIs(t, err, apperror.ErrMalformedSecret, "ParseSecret(%q)", raw)
	}
}

func TestCoordinates_RedactsToken(t *testing.T) {
	t.Parallel()
	c := Coordinates{Owner: "alice", Repository: "school", Token: "ghp_secret"}

	assert.Equal(t, "alice/school", c.String())
	assert.NotContains(t, fmt.Sprintf("%v %s", c, c), "ghp_secret")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("authenticated", slog.Any("coords", c))
	out := buf.String()
	assert.False(t, strings.Contains(out, "ghp_secret"), "token leaked into log: %s", out)
	assert.Contains(t, out, "coords.owner=alice")
	assert.Contains(t, out, "coords.token=[redacted]")
}

func TestCoordinates_RedactsTokenForEveryVerb(t *testing.T) {
	t.Parallel()
	c := Coordinates{Owner: "alice", Repository: "school", Token: "ghp_secret", ValidatedAt: 42}
	wrapped := struct{ Coords Coordinates }{c}

	for _, verb := range []string{"%v", "%+v", "%#v", "%s", "%q"} {
		for _, arg := range []any{c, &c, wrapped} {
			got := fmt.Sprintf(verb, arg)
			assert.NotContains(t, got, "ghp_secret", "%s of %T", verb, arg)
		}
	}
	assert.Contains(t, fmt.Sprintf("%#v", c), `Owner:"alice"`)
	assert.Contains(t, fmt.Sprintf("%#v", c), `Token:"[redacted]"`)
}
