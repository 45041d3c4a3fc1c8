package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultSettingsFile = "memview.toml"
	DefaultAPIBase      = "https://api.github.com"
	DefaultContentBase  = "https://raw.githubusercontent.com"
	DefaultBranch       = "main"

	// LatestBranch asks the client to use the repository's default branch.
	LatestBranch = "latest"

	SecretEnvVar   = "MEMVIEW_SECRET"
	SettingsEnvVar = "MEMVIEW_CONFIG"
)

// Settings is the parsed memview.toml file.
type Settings struct {
	APIBase           string   `toml:"api_base"`
	ContentBase       string   `toml:"content_base"`
	Branch            string   `toml:"branch"`
	CacheFile         string   `toml:"cache_file,omitempty"`
	Concurrency       int      `toml:"concurrency"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Timeout           Duration `toml:"timeout"`
	Retries           int      `toml:"retries"`
	Folders           Folders  `toml:"folders"`
}

// Folders maps each collection to its folder in the remote repository.
type Folders struct {
	Memories   string `toml:"memories,omitempty"`
	Rosters    string `toml:"rosters,omitempty"`
	Developers string `toml:"developers,omitempty"`
}

// Duration lets TOML files spell timeouts as "15s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// Default returns the settings used when no memview.toml exists.
func Default() *Settings {
	return &Settings{
		APIBase:           DefaultAPIBase,
		ContentBase:       DefaultContentBase,
		Branch:            DefaultBranch,
		Concurrency:       4,
		RequestsPerSecond: 10,
		Timeout:           Duration{15 * time.Second},
		Retries:           3,
		Folders: Folders{
			Memories:   string(Memories),
			Rosters:    string(Rosters),
			Developers: string(Developers),
		},
	}
}

// Load reads and parses a memview.toml file from the given path.
// If the file does not exist it returns the defaults (no error).
// Keys absent from the file keep their default values.
func Load(path string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return s, nil
}

// Validate checks the settings for values the client cannot work with.
func (s *Settings) Validate() error {
	if s.APIBase == "" || s.ContentBase == "" {
		return fmt.Errorf("api_base and content_base must not be empty")
	}
	if strings.TrimSpace(s.Branch) == "" {
		return fmt.Errorf("branch must not be empty")
	}
	if s.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", s.Concurrency)
	}
	if s.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", s.Retries)
	}
	if s.Timeout.Duration < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	for _, c := range ValidCollections() {
		if strings.Trim(s.FolderFor(c), "/ ") == "" {
			return fmt.Errorf("folder for %s must not be empty", c)
		}
	}
	return nil
}

// FolderFor returns the remote folder path that backs a collection.
func (s *Settings) FolderFor(c Collection) string {
	switch c {
	case Memories:
		return s.Folders.Memories
	case Rosters:
		return s.Folders.Rosters
	case Developers:
		return s.Folders.Developers
	}
	return ""
}

// FolderMap returns FolderFor for every collection.
func (s *Settings) FolderMap() map[Collection]string {
	m := make(map[Collection]string, 3)
	for _, c := range ValidCollections() {
		m[c] = strings.Trim(s.FolderFor(c), "/")
	}
	return m
}

// CachePath returns the credential cache location, defaulting to the
// user's cache directory.
func (s *Settings) CachePath() (string, error) {
	if s.CacheFile != "" {
		return s.CacheFile, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating user cache dir: %w", err)
	}
	return filepath.Join(dir, "memview", "credentials.json"), nil
}

// SettingsPath returns the settings file location, honouring MEMVIEW_CONFIG.
func SettingsPath() string {
	if p := os.Getenv(SettingsEnvVar); p != "" {
		return p
	}
	return DefaultSettingsFile
}
