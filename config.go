package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// SessionRecord is a saved connection. Credentials are deliberately not
// stored; the password (if any) is prompted for or taken from the
// environment at connect time.
type SessionRecord struct {
	Scheme   string `yaml:"scheme"`
	Host     string `yaml:"host,omitempty"`
	Port     uint16 `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Database string `yaml:"database,omitempty"`
	Path     string `yaml:"path,omitempty"` // database file, for file-backed engines
}

// URL renders the record as a connection URL accepted by Connect.
func (r SessionRecord) URL() string {
	if r.Path != "" {
		return r.Scheme + "://" + r.Path
	}
	u := &url.URL{Scheme: r.Scheme, Host: r.Host}
	if r.Port != 0 {
		u.Host = r.Host + ":" + strconv.Itoa(int(r.Port))
	}
	if r.User != "" {
		u.User = url.User(r.User)
	}
	if r.Database != "" {
		u.Path = "/" + r.Database
	}
	return u.String()
}

// Redacted is the display form for session listings. Records carry no
// secrets, so it is the plain URL.
func (r SessionRecord) Redacted() string {
	return r.URL()
}

// Config is the on-disk client configuration. The filesystem is abstracted
// so tests can run against an in-memory one.
type Config struct {
	fs   afero.Fs
	path string

	NamedQueries map[string]string        `yaml:"named_queries,omitempty"`
	Sessions     map[string]SessionRecord `yaml:"saved_sessions,omitempty"`
}

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "dbcrust", "config.yaml"), nil
}

// LoadConfig reads the config file at path. A missing file is not an error;
// it yields an empty config that Save will create.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	config := &Config{fs: fs, path: path}

	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return config, nil
}

// Save writes the config back to its file, creating parent directories as
// needed.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := afero.WriteFile(c.fs, c.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", c.path, err)
	}
	return nil
}

// NamedQueryNames returns the saved query names in sorted order.
func (c *Config) NamedQueryNames() []string {
	names := lo.Keys(c.NamedQueries)
	slices.Sort(names)
	return names
}

// SessionNames returns the saved session names in sorted order.
func (c *Config) SessionNames() []string {
	names := lo.Keys(c.Sessions)
	slices.Sort(names)
	return names
}
