// Package crudform re-exports the common entry points so callers can load
// form definitions and render them without importing every sub-package.
package crudform

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/formdef"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/orchestrator"
	"github.com/goliatone/go-crudform/pkg/render"
	"github.com/goliatone/go-crudform/pkg/renderers/vanilla"
)

// Values is the form value document.
type Values = model.Values

// FormConfig is the static description of a form.
type FormConfig = model.FormConfig

// Provider owns the state of one form across create, update, delete and
// search.
type Provider = form.Provider

// RenderOptions carries per-request surface, action and hidden fields.
type RenderOptions = render.RenderOptions

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// LoadOrchestrator loads every definition file in fsys and returns an
// orchestrator serving them. Options are applied after the definitions.
func LoadOrchestrator(ctx context.Context, fsys fs.FS, options ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	store, err := formdef.LoadFS(ctx, fsys)
	if err != nil {
		return nil, err
	}
	opts := append([]orchestrator.Option{orchestrator.WithDefinitions(store)}, options...)
	return orchestrator.New(opts...), nil
}

// GenerateHTML renders the create form for formID with the default renderer.
// It is the simplest entry point for callers that just want HTML output.
func GenerateHTML(ctx context.Context, fsys fs.FS, formID string, options ...orchestrator.Option) ([]byte, error) {
	orch, err := LoadOrchestrator(ctx, fsys, options...)
	if err != nil {
		return nil, err
	}
	defer orch.Dispose()
	out, _, err := orch.Render(ctx, orchestrator.Request{FormID: formID})
	return out, err
}

// EmbeddedTemplates exposes the built-in vanilla renderer templates so callers
// can reuse or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}

// AssetsFS exposes the default stylesheet for serving over HTTP.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(crudform.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return vanilla.AssetsFS()
}
