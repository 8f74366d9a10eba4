// Package tui renders a form as a sequence of terminal prompts. Fields are
// asked in declaration order and visibility is re-evaluated after every
// answer, so conditional fields appear as soon as their trigger is set.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/render"
	"github.com/goliatone/go-crudform/pkg/visibility"
	"github.com/goliatone/go-crudform/pkg/visibility/expr"
)

// Renderer implements render.Renderer for terminal-driven sessions.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
	resolver          *visibility.Resolver
	maxAttempts       int
	logger            *log.Logger
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		resolver:     expr.NewResolver(),
		maxAttempts:  3,
		logger:       log.Default(),
	}

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}

	if r.driver == nil {
		r.driver = NewSurveyDriver(terminal.Stdio{})
	}
	switch r.outputFormat {
	case OutputFormatJSON, OutputFormatFormURLEncoded, OutputFormatPrettyText:
	default:
		return nil, fmt.Errorf("tui: unknown output format %q", r.outputFormat)
	}

	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Render prompts for every visible field of the snapshot and returns the
// collected values serialized in the configured format. A closed modal
// surface renders nothing. View surfaces print the values without prompting
// and delete surfaces ask for confirmation.
func (r *Renderer) Render(ctx context.Context, snapshot form.Snapshot, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}
	if opts.Surface == render.SurfaceModal && !snapshot.State.IsOpen {
		return nil, nil
	}

	op := snapshot.State.Operation
	if opts.Surface == render.SurfaceSearch {
		op = model.OperationSearch
	}
	if err := r.info(ctx, r.theme.PromptPrefix+render.Title(snapshot.Config, op)); err != nil {
		return nil, err
	}

	values := snapshot.Values.Clone()
	switch op {
	case model.OperationView:
		if err := r.info(ctx, prettyPrint(values)); err != nil {
			return nil, err
		}
	case model.OperationDelete:
		if err := r.confirmDelete(ctx, snapshot.Config, op); err != nil {
			return nil, err
		}
	default:
		var err error
		values, err = r.collect(ctx, snapshot.Config, values, nil)
		if err != nil {
			return nil, err
		}
	}

	if r.submitTransformer != nil {
		var err error
		values, err = r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}

	return r.serialize(values)
}

func (r *Renderer) confirmDelete(ctx context.Context, cfg model.FormConfig, op model.Operation) error {
	ok, err := r.driver.Confirm(ctx, ConfirmConfig{
		Message: render.Title(cfg, op) + "?",
		Help:    "This will permanently delete the selected item.",
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrAborted
	}
	return nil
}

func (r *Renderer) info(ctx context.Context, msg string) error {
	if msg == "" {
		return nil
	}
	return r.driver.Info(ctx, msg)
}

func (r *Renderer) problem(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, r.theme.ErrorPrefix+msg)
}
