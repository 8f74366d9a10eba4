package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-crudform/internal/config"
	"github.com/goliatone/go-crudform/pkg/renderers/tui"
)

// rootOptions holds settings shared by every subcommand beyond Config.
type rootOptions struct {
	cfg     config.Config
	preset  string
	verbose bool
	// driver replaces the survey prompts; nil uses the terminal.
	driver tui.PromptDriver
}

func newRootCommand(cfg config.Config) *cobra.Command {
	return newRoot(&rootOptions{cfg: cfg})
}

func newRoot(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crudform",
		Short: "Render, fill and serve CRUD forms",
		Long: `crudform loads form definitions (YAML or JSON, optionally backed by CUE or
OpenAPI schemas) and drives them as create/update/delete/search forms.

Examples:
  # List loaded forms
  crudform forms --definitions ./forms

  # Render the update modal of an item
  crudform render users --surface modal --op update --id 42

  # Fill a form from the terminal against a REST API
  crudform fill users --api https://api.example.com

  # Serve forms over HTTP and websockets
  crudform serve --addr :8080`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return opts.cfg.Validate()
		},
	}

	opts.cfg.RegisterFlags(cmd)
	cmd.PersistentFlags().StringVar(&opts.preset, "preset", "", "JSON preset overriding labels and UI copy per form")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log provider activity to stderr")

	cmd.AddCommand(
		newFormsCommand(opts),
		newRenderCommand(opts),
		newFillCommand(opts),
		newDraftsCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}
