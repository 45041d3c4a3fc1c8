// Package credential turns a user secret into validated repository
// coordinates and keeps them for a limited time.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cbout22/memview/internal/apperror"
	"github.com/cbout22/memview/internal/config"
	"github.com/cbout22/memview/internal/repo"
)

// Validity is how long validated coordinates stay usable from the cache.
const Validity = 24 * time.Hour

// Prober performs the single read used to validate coordinates.
type Prober interface {
	Repository(ctx context.Context) (repo.RepoInfo, error)
}

// ProberFactory builds a Prober for a set of coordinates.
type ProberFactory func(config.Coordinates) Prober

// cacheRecord is the on-disk shape of the slot.
type cacheRecord struct {
	Username  string `json:"username"`
	Repo      string `json:"repo"`
	Token     string `json:"token"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// CacheState describes what the slot currently holds.
type CacheState int

const (
	CacheMissing CacheState = iota // nothing stored
	CacheValid                     // stored and younger than Validity
	CacheExpired                   // stored but too old
	CacheCorrupt                   // stored but unreadable
)

func (s CacheState) String() string {
	switch s {
	case CacheMissing:
		return "missing"
	case CacheValid:
		return "valid"
	case CacheExpired:
		return "expired"
	case CacheCorrupt:
		return "corrupt"
	}
	return fmt.Sprintf("CacheState(%d)", int(s))
}

// Resolver parses, validates and caches coordinates. At most one
// authentication flow runs at a time, so the slot needs no locking.
type Resolver struct {
	slot   Slot
	probe  ProberFactory
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithProber(f ProberFactory) Option {
	return func(r *Resolver) { r.probe = f }
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver backed by the given slot. Without
// WithProber, validation talks to the public GitHub API.
func NewResolver(slot Slot, opts ...Option) *Resolver {
	r := &Resolver{
		slot:   slot,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.probe == nil {
		logger := r.logger
		r.probe = func(c config.Coordinates) Prober {
			return repo.New(c, repo.WithLogger(logger))
		}
	}
	return r
}

// Parse splits an "owner:repository:token" secret.
func (r *Resolver) Parse(secret string) (config.Coordinates, error) {
	return config.ParseSecret(secret)
}

// Validate confirms the repository exists and the token can read it.
// Failures are ErrUnauthorized, ErrNotFound or ErrServiceUnavailable.
func (r *Resolver) Validate(ctx context.Context, c config.Coordinates) (config.Coordinates, error) {
	_, err := r.probe(c).Repository(ctx)
	switch {
	case err == nil:
		r.logger.Debug("coordinates validated", slog.Any("coords", c))
		return c, nil
	case errors.Is(err, apperror.ErrUnauthorized), errors.Is(err, apperror.ErrNotFound), errors.Is(err, apperror.ErrServiceUnavailable):
		return config.Coordinates{}, err
	default:
		return config.Coordinates{}, apperror.Unavailable("validate "+c.RepoFullName(), err)
	}
}

// Authenticate runs the full login flow: parse, validate, store.
func (r *Resolver) Authenticate(ctx context.Context, secret string) (config.Coordinates, error) {
	c, err := r.Parse(secret)
	if err != nil {
		return config.Coordinates{}, err
	}
	if c, err = r.Validate(ctx, c); err != nil {
		return config.Coordinates{}, err
	}
	return r.Store(c)
}

// Store persists the coordinates stamped with the current time,
// overwriting any previous entry, and returns the stamped value.
func (r *Resolver) Store(c config.Coordinates) (config.Coordinates, error) {
	c.ValidatedAt = r.now().UnixMilli()
	data, err := json.Marshal(cacheRecord{
		Username:  c.Owner,
		Repo:      c.Repository,
		Token:     c.Token,
		Timestamp: c.ValidatedAt,
	})
	if err != nil {
		return config.Coordinates{}, fmt.Errorf("encoding credentials: %w", err)
	}
	if err := r.slot.Write(data); err != nil {
		return config.Coordinates{}, fmt.Errorf("storing credentials: %w", err)
	}
	return c, nil
}

// LoadCached returns the stored coordinates if they are younger than
// Validity. Expired or unreadable entries are discarded.
func (r *Resolver) LoadCached() (config.Coordinates, bool) {
	state, c := r.Status()
	switch state {
	case CacheValid:
		return c, true
	case CacheExpired, CacheCorrupt:
		r.logger.Info("discarding cached credentials", slog.String("state", state.String()))
		if err := r.slot.Remove(); err != nil {
			r.logger.Warn("could not discard cached credentials", slog.String("error", err.Error()))
		}
	}
	return config.Coordinates{}, false
}

// Status inspects the slot without changing it.
func (r *Resolver) Status() (CacheState, config.Coordinates) {
	data, err := r.slot.Read()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("reading cached credentials", slog.String("error", err.Error()))
			return CacheCorrupt, config.Coordinates{}
		}
		return CacheMissing, config.Coordinates{}
	}

	var rec cacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return CacheCorrupt, config.Coordinates{}
	}
	if rec.Username == "" || rec.Repo == "" || rec.Token == "" || rec.Timestamp <= 0 {
		return CacheCorrupt, config.Coordinates{}
	}

	c := config.Coordinates{
		Owner:       rec.Username,
		Repository:  rec.Repo,
		Token:       rec.Token,
		ValidatedAt: rec.Timestamp,
	}
	if r.now().UnixMilli()-rec.Timestamp >= Validity.Milliseconds() {
		return CacheExpired, c
	}
	return CacheValid, c
}

// ExpiresAt reports when cached coordinates stop being usable.
func (r *Resolver) ExpiresAt(c config.Coordinates) time.Time {
	return time.UnixMilli(c.ValidatedAt).UTC().Add(Validity)
}

// Clear removes any stored coordinates.
func (r *Resolver) Clear() error {
	return r.slot.Remove()
}
