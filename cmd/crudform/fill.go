package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/orchestrator"
)

func newFillCommand(opts *rootOptions) *cobra.Command {
	var op, id string
	cmd := &cobra.Command{
		Use:   "fill <form>",
		Short: "Fill and submit a form from the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			operation := model.Operation(op)
			if !operation.Valid() {
				return fmt.Errorf("crudform: unknown operation %q", op)
			}

			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			provider, err := a.orch.Provider(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := orchestrator.Open(cmd.Context(), provider, operation, id, nil); err != nil {
				return err
			}

			status, err := a.terminal.Fill(cmd.Context(), provider)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", args[0], operation, status)
			if status == form.SubmitInvalid {
				return fmt.Errorf("crudform: %s: form is still invalid", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&op, "op", string(model.OperationCreate), "Operation: create, update, delete, view or search")
	cmd.Flags().StringVar(&id, "id", "", "Item id for update, delete and view")
	return cmd
}
