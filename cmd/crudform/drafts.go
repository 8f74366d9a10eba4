package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-crudform/pkg/draft"
)

func newDraftsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Inspect and clean up autosaved drafts",
	}
	cmd.AddCommand(newDraftsListCommand(opts), newDraftsClearCommand(opts), newDraftsPruneCommand(opts))
	return cmd
}

func newDraftsListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := draft.NewManager(a.drafts, draft.WithLogger(a.logger)).List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no drafts")
				return nil
			}

			table := tablewriter.NewTable(cmd.OutOrStdout(), tablewriter.WithRenderer(renderer.NewMarkdown()))
			table.Header("Form", "Saved", "Fields", "Status")
			for _, entry := range entries {
				status, saved := "ok", entry.SavedAt.Format(time.RFC3339)
				if entry.Corrupt {
					status, saved = "corrupt", "-"
				}
				if err := table.Append(entry.FormKey, saved, strconv.Itoa(entry.Fields), status); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
}

func newDraftsClearCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := draft.NewManager(a.drafts, draft.WithLogger(a.logger)).ClearAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d draft(s)\n", n)
			return nil
		},
	}
}

func newDraftsPruneCommand(opts *rootOptions) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove drafts older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return errors.New("crudform: --older-than must be positive")
			}
			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := draft.NewManager(a.drafts, draft.WithLogger(a.logger)).PruneOlderThan(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d draft(s) older than %s\n", n, olderThan)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Minimum draft age to prune")
	return cmd
}
