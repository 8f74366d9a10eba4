package config_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-crudform/internal/config"
	"github.com/goliatone/go-crudform/pkg/storage"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load(envOf(nil))

	want := config.Config{
		Definitions: "forms",
		DraftDriver: config.DraftMemory,
		Addr:        ":8080",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	cfg := config.Load(envOf(map[string]string{
		config.EnvDefinitions:  "defs",
		config.EnvDraftDriver:  "PostgreSQL",
		config.EnvDraftDSN:     "postgres://db/forms",
		config.EnvAddr:         "127.0.0.1:9000",
		config.EnvTheme:        "acme",
		config.EnvThemeVariant: "dark",
		config.EnvAPIBaseURL:   "https://api.example.com/",
		config.EnvAPIToken:     "secret",
	}))

	want := config.Config{
		Definitions:  "defs",
		DraftDriver:  config.DraftPostgres,
		DraftDSN:     "postgres://db/forms",
		Addr:         "127.0.0.1:9000",
		Theme:        "acme",
		ThemeVariant: "dark",
		APIBaseURL:   "https://api.example.com",
		APIToken:     "secret",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	cfg := config.Load(envOf(map[string]string{
		config.EnvDefinitions: "defs",
		config.EnvTheme:       "acme",
	}))
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cfg.RegisterFlags(cmd)
	cmd.SetArgs([]string{"--definitions", "other", "--draft-driver", "sqlite"})
	require.NoError(t, cmd.Execute())

	require.Equal(t, "other", cfg.Definitions)
	require.Equal(t, config.DraftSQLite, cfg.DraftDriver)
	require.Equal(t, "acme", cfg.Theme)
	require.Equal(t, "crudform-drafts.db", cfg.DSN())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"unknown driver", config.Config{Definitions: "forms", DraftDriver: "redis"}, `config: unknown draft driver "redis"`},
		{"no definitions", config.Config{DraftDriver: config.DraftMemory}, "config: definitions directory is required"},
		{"token without api", config.Config{Definitions: "forms", APIToken: "x"}, "config: api token given without an api base url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.EqualError(t, tt.cfg.Validate(), tt.want)
		})
	}
}

func TestOpenDraftStorage(t *testing.T) {
	ctx := context.Background()

	store, closeFn, err := config.Config{DraftDriver: config.DraftMemory}.OpenDraftStorage(ctx)
	require.NoError(t, err)
	require.IsType(t, &storage.Memory{}, store)
	require.NoError(t, closeFn())

	sqlite, closeSQLite, err := config.Config{DraftDriver: config.DraftSQLite, DraftDSN: ":memory:"}.OpenDraftStorage(ctx)
	require.NoError(t, err)
	defer closeSQLite()
	require.NoError(t, sqlite.SetItem(ctx, "k", "v"))
	value, ok, err := sqlite.GetItem(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", value)
}
