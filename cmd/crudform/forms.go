package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/spf13/cobra"
)

func newFormsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forms",
		Short: "List the loaded form definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ids := a.orch.Forms()
			if len(ids) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no forms found in %s\n", opts.cfg.Definitions)
				return nil
			}

			table := tablewriter.NewTable(cmd.OutOrStdout(), tablewriter.WithRenderer(renderer.NewMarkdown()))
			table.Header("ID", "Title", "Resource", "Fields", "Drafts")
			for _, id := range ids {
				cfg, err := a.orch.Config(cmd.Context(), id)
				if err != nil {
					return err
				}
				def, _ := a.orch.Definition(id)
				drafts := "off"
				if cfg.Persistence.Enabled {
					drafts = cfg.PersistenceKey()
				}
				if err := table.Append(id, cfg.Title, def.Resource, strconv.Itoa(len(cfg.Fields))+" ("+strings.Join(cfg.FieldNames(), ", ")+")", drafts); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
}
