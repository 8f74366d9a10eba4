// Package config resolves process settings for the crudform binaries.
// Environment variables provide the defaults; command-line flags override
// them.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-crudform/pkg/storage"
	"github.com/goliatone/go-crudform/pkg/storage/sqlstore"
)

// Environment variable names.
const (
	EnvDefinitions  = "CRUDFORM_DEFINITIONS"
	EnvDraftDriver  = "CRUDFORM_DRAFT_DRIVER"
	EnvDraftDSN     = "CRUDFORM_DRAFT_DSN"
	EnvAddr         = "CRUDFORM_ADDR"
	EnvTheme        = "CRUDFORM_THEME"
	EnvThemeVariant = "CRUDFORM_THEME_VARIANT"
	EnvAPIBaseURL   = "CRUDFORM_API_BASE_URL"
	EnvAPIToken     = "CRUDFORM_API_TOKEN"
)

// DraftDriver selects the draft storage backend.
type DraftDriver string

const (
	DraftMemory   DraftDriver = "memory"
	DraftSQLite   DraftDriver = "sqlite"
	DraftPostgres DraftDriver = "postgres"
)

const (
	defaultDefinitions = "forms"
	defaultAddr        = ":8080"
	defaultSQLiteDSN   = "crudform-drafts.db"
	defaultPostgresDSN = "postgres://localhost:5432/postgres?sslmode=disable"
)

// Config holds every process setting.
type Config struct {
	Definitions  string
	DraftDriver  DraftDriver
	DraftDSN     string
	Addr         string
	Theme        string
	ThemeVariant string
	APIBaseURL   string
	APIToken     string
}

// FromEnv reads the configuration from the environment.
func FromEnv() Config {
	return Load(os.Getenv)
}

// Load reads the configuration through getenv, applying defaults for unset
// values.
func Load(getenv func(string) string) Config {
	cfg := Config{
		Definitions:  getenv(EnvDefinitions),
		DraftDriver:  ParseDraftDriver(getenv(EnvDraftDriver)),
		DraftDSN:     getenv(EnvDraftDSN),
		Addr:         getenv(EnvAddr),
		Theme:        getenv(EnvTheme),
		ThemeVariant: getenv(EnvThemeVariant),
		APIBaseURL:   strings.TrimRight(getenv(EnvAPIBaseURL), "/"),
		APIToken:     getenv(EnvAPIToken),
	}
	if cfg.Definitions == "" {
		cfg.Definitions = defaultDefinitions
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	return cfg
}

// ParseDraftDriver maps driver aliases onto a DraftDriver. Unknown values
// are returned as-is so Validate can report them.
func ParseDraftDriver(raw string) DraftDriver {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "memory", "mem":
		return DraftMemory
	case "sqlite", "sqlite3":
		return DraftSQLite
	case "postgres", "postgresql", "pg":
		return DraftPostgres
	default:
		return DraftDriver(strings.TrimSpace(raw))
	}
}

// RegisterFlags binds persistent flags on cmd whose defaults are the
// current values, so flags win over the environment.
func (c *Config) RegisterFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&c.Definitions, "definitions", c.Definitions, "Directory holding form definition files (env "+EnvDefinitions+")")
	flags.StringVar((*string)(&c.DraftDriver), "draft-driver", string(c.DraftDriver), "Draft storage: memory, sqlite or postgres (env "+EnvDraftDriver+")")
	flags.StringVar(&c.DraftDSN, "draft-dsn", c.DraftDSN, "Draft storage connection string (env "+EnvDraftDSN+")")
	flags.StringVar(&c.Theme, "theme", c.Theme, "Theme name (env "+EnvTheme+")")
	flags.StringVar(&c.ThemeVariant, "theme-variant", c.ThemeVariant, "Theme variant (env "+EnvThemeVariant+")")
	flags.StringVar(&c.APIBaseURL, "api", c.APIBaseURL, "REST API base URL; empty keeps items in memory (env "+EnvAPIBaseURL+")")
	flags.StringVar(&c.APIToken, "api-token", c.APIToken, "Bearer token for the REST API (env "+EnvAPIToken+")")
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	c.DraftDriver = ParseDraftDriver(string(c.DraftDriver))
	switch c.DraftDriver {
	case DraftMemory, DraftSQLite, DraftPostgres:
	default:
		return fmt.Errorf("config: unknown draft driver %q", c.DraftDriver)
	}
	if strings.TrimSpace(c.Definitions) == "" {
		return fmt.Errorf("config: definitions directory is required")
	}
	if c.APIToken != "" && c.APIBaseURL == "" {
		return fmt.Errorf("config: api token given without an api base url")
	}
	return nil
}

// DSN returns the configured DSN or the driver default.
func (c Config) DSN() string {
	if c.DraftDSN != "" {
		return c.DraftDSN
	}
	switch ParseDraftDriver(string(c.DraftDriver)) {
	case DraftSQLite:
		return defaultSQLiteDSN
	case DraftPostgres:
		return defaultPostgresDSN
	default:
		return ""
	}
}

// OpenDraftStorage opens the draft store. The returned close function is
// never nil.
func (c Config) OpenDraftStorage(ctx context.Context) (storage.Storage, func() error, error) {
	noop := func() error { return nil }
	driver := ParseDraftDriver(string(c.DraftDriver))
	if driver == DraftMemory {
		return storage.NewMemory(), noop, nil
	}

	store, err := sqlstore.Open(ctx, string(driver), c.DSN())
	if err != nil {
		return nil, noop, fmt.Errorf("config: open draft storage: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, noop, fmt.Errorf("config: open draft storage: %w", err)
	}
	return store, store.Close, nil
}
