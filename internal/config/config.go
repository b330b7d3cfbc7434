package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/bobuk/clistcal/internal/contest"
	"github.com/bobuk/clistcal/internal/logging"
)

// FileName is looked up in the working directory, then in $HOME/.config/clistcal/.
const FileName = ".clistcal.toml"

// Environment variables holding the clist API credentials.
const (
	EnvClistUsername = "CLIST_USERNAME"
	EnvClistAPIKey   = "CLIST_API_KEY"
)

// ErrMissingCredentials is returned when the clist credentials are not in the environment.
var ErrMissingCredentials = errors.New("clist credentials missing: set " + EnvClistUsername + " and " + EnvClistAPIKey)

type ClistConfig struct {
	Endpoint string   `toml:"endpoint"`
	Limit    int      `toml:"limit"`
	Timeout  Duration `toml:"timeout"`
	Username string   `toml:"-"`
	APIKey   string   `toml:"-"`
}

type CalDAVConfig struct {
	ServerURL    string `toml:"server_url"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	CalendarPath string `toml:"calendar_path"`
}

type FilterConfig struct {
	Resource string `toml:"resource"`
	Field    string `toml:"field"`
	Pattern  string `toml:"pattern"`
}

type Config struct {
	ClientID        string         `toml:"client_id"`
	ClientSecret    string         `toml:"client_secret"`
	CredentialsFile string         `toml:"credentials_file"`
	VerbosityLevel  *int           `toml:"verbosity_level"`
	Timezone        string         `toml:"timezone"`
	CalendarID      string         `toml:"calendar_id"`
	Provider        string         `toml:"provider"`
	Account         string         `toml:"account"`
	Database        string         `toml:"database"`
	Clist           ClistConfig    `toml:"clist"`
	CalDAV          CalDAVConfig   `toml:"caldav"`
	Filters         []FilterConfig `toml:"filter"`

	// Dir is where the config file was found; relative database paths resolve against it.
	Dir string `toml:"-"`
}

// Duration decodes TOML strings like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	verbosity := logging.DefaultVerbosity
	return &Config{
		VerbosityLevel: &verbosity,
		Timezone:       "Africa/Abidjan",
		CalendarID:     "primary",
		Provider:       "google",
		Account:        "default",
		Database:       ".clistcal.db",
		Clist: ClistConfig{
			Endpoint: "https://clist.by/api/v4/contest/",
			Limit:    1000,
			Timeout:  Duration{30 * time.Second},
		},
	}
}

// Load reads FileName from the working directory, then from the user config
// directory. A missing file yields defaults. Clist credentials are read from the
// environment after loading an optional .env file.
func Load() (*Config, error) {
	paths := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "clistcal", FileName))
	}
	return LoadFrom(paths...)
}

// LoadFrom reads the first existing file among paths.
func LoadFrom(paths ...string) (*Config, error) {
	config := Default()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		config.Dir = filepath.Dir(path)
		break
	}

	// Existing environment wins over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	config.Clist.Username = os.Getenv(EnvClistUsername)
	config.Clist.APIKey = os.Getenv(EnvClistAPIKey)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.Clist.Limit <= 0 {
		return fmt.Errorf("clist limit must be positive, got %d", c.Clist.Limit)
	}
	if c.Clist.Endpoint == "" {
		return errors.New("clist endpoint is empty")
	}
	if _, err := contest.NewFilter(c.Rules()); err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}
	switch c.Provider {
	case "google":
	case "caldav":
		if c.CalDAV.ServerURL == "" || c.CalDAV.CalendarPath == "" {
			return errors.New("caldav provider requires server_url and calendar_path")
		}
	default:
		return fmt.Errorf("unsupported provider %q (must be 'google' or 'caldav')", c.Provider)
	}
	return nil
}

// RequireClistCredentials fails when the clist username or key is unset.
func (c *Config) RequireClistCredentials() error {
	if c.Clist.Username == "" || c.Clist.APIKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Verbosity returns the configured verbosity level.
func (c *Config) Verbosity() int {
	if c.VerbosityLevel == nil {
		return logging.DefaultVerbosity
	}
	return *c.VerbosityLevel
}

// Location returns the timezone created events are pinned to.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Rules converts [[filter]] tables to contest rules. Nil means the defaults.
func (c *Config) Rules() []contest.Rule {
	if len(c.Filters) == 0 {
		return nil
	}
	rules := make([]contest.Rule, 0, len(c.Filters))
	for _, f := range c.Filters {
		rules = append(rules, contest.Rule{Resource: f.Resource, Field: f.Field, Pattern: f.Pattern})
	}
	return rules
}

// DatabasePath resolves the token database next to the config file.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Database) || c.Dir == "" {
		return c.Database
	}
	return filepath.Join(c.Dir, c.Database)
}
