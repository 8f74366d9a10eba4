package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/orchestrator"
	"github.com/goliatone/go-crudform/pkg/render"
)

type renderFlags struct {
	surface  string
	op       string
	id       string
	renderer string
	action   string
	output   string
}

func newRenderCommand(opts *rootOptions) *cobra.Command {
	flags := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render <form>",
		Short: "Render a form surface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			surface, err := render.ParseSurface(flags.surface)
			if err != nil {
				return err
			}
			op := model.Operation(flags.op)
			if op == "" {
				op = model.OperationCreate
				if surface == render.SurfaceSearch {
					op = model.OperationSearch
				}
			}
			if !op.Valid() {
				return fmt.Errorf("crudform: unknown operation %q", flags.op)
			}

			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			provider, err := a.orch.NewProvider(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer provider.Dispose()

			if err := orchestrator.Open(cmd.Context(), provider, op, flags.id, nil); err != nil {
				return err
			}

			renderOpts := render.RenderOptions{Surface: surface, Action: flags.action}
			if flags.id != "" {
				renderOpts.HiddenFields = map[string]string{"id": flags.id}
			}
			out, _, err := a.orch.RenderProvider(cmd.Context(), provider, flags.renderer, renderOpts)
			if err != nil {
				return err
			}

			if flags.output == "" || flags.output == "-" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			return os.WriteFile(flags.output, out, 0o644)
		},
	}
	cmd.Flags().StringVar(&flags.surface, "surface", string(render.SurfaceForm), "Surface to render: form, modal or search")
	cmd.Flags().StringVar(&flags.op, "op", "", "Operation: create, update, delete, view or search")
	cmd.Flags().StringVar(&flags.id, "id", "", "Item id for update, delete and view")
	cmd.Flags().StringVar(&flags.renderer, "renderer", "", "Renderer name (defaults to vanilla)")
	cmd.Flags().StringVar(&flags.action, "action", "", "Form action URL")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}
