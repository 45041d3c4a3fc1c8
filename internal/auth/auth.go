package auth

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/cbout22/memview/internal/config"
)

// secretEnvVars lists the environment variables checked for a secret,
// in priority order.
var secretEnvVars = []string{
	config.SecretEnvVar,
}

// SecretFromEnv returns the "owner:repository:token" secret from the
// environment.
func SecretFromEnv() (string, error) {
	for _, env := range secretEnvVars {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("no secret found: pass one as an argument or set %s", secretEnvVars[0])
}

// NewTransport wraps base so that each request carries the token and the
// GitHub v3 media type. An empty token sends requests unauthenticated.
func NewTransport(token string, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &tokenTransport{token: token, base: base}
}

// tokenTransport is a custom http.RoundTripper that adds the Authorization header.
type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid mutating the original
	r := req.Clone(req.Context())
	if t.token != "" {
		r.Header.Set("Authorization", "Bearer "+t.token)
	}
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", "application/vnd.github.v3+json")
	}
	return t.base.RoundTrip(r)
}
