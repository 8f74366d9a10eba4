package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/goliatone/go-crudform/internal/config"
	"github.com/goliatone/go-crudform/pkg/binding/rest"
	"github.com/goliatone/go-crudform/pkg/formdef"
	"github.com/goliatone/go-crudform/pkg/invalidate"
	"github.com/goliatone/go-crudform/pkg/orchestrator"
	"github.com/goliatone/go-crudform/pkg/render"
	"github.com/goliatone/go-crudform/pkg/renderers/tui"
	"github.com/goliatone/go-crudform/pkg/renderers/vanilla"
	"github.com/goliatone/go-crudform/pkg/storage"
)

const assetPrefix = "/assets"

// app bundles everything a subcommand needs.
type app struct {
	orch     *orchestrator.Orchestrator
	drafts   storage.Storage
	repo     *orchestrator.Repository
	terminal *tui.Renderer
	logger   *log.Logger
	closers  []func() error
}

func newApp(ctx context.Context, opts *rootOptions, stderr io.Writer) (*app, error) {
	cfg := opts.cfg
	logger := log.New(io.Discard, "crudform: ", log.LstdFlags)
	if opts.verbose {
		logger.SetOutput(stderr)
	}

	store, err := formdef.LoadDir(ctx, cfg.Definitions)
	if err != nil {
		return nil, err
	}

	drafts, closeDrafts, err := cfg.OpenDraftStorage(ctx)
	if err != nil {
		return nil, err
	}
	a := &app{drafts: drafts, logger: logger, closers: []func() error{closeDrafts}}

	bindings, repo, err := bindingsFor(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.repo = repo

	a.terminal, err = tui.New(tui.WithLogger(logger), tui.WithPromptDriver(opts.driver))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("crudform: tui renderer: %w", err)
	}
	registry, err := newRegistry(cfg, a.terminal)
	if err != nil {
		a.Close()
		return nil, err
	}

	bus := invalidate.NewBus(invalidate.WithLogger(logger))
	bus.Subscribe(invalidate.Wildcard, func(_ context.Context, tag string) error {
		logger.Printf("%s changed", tag)
		return nil
	})

	options := []orchestrator.Option{
		orchestrator.WithDefinitions(store),
		orchestrator.WithRegistry(registry),
		orchestrator.WithStorage(drafts),
		orchestrator.WithInvalidator(bus),
		orchestrator.WithBindings(bindings),
		orchestrator.WithLogger(logger),
	}
	if opts.preset != "" {
		preset, err := orchestrator.NewJSONPresetTransformerFromFS(os.DirFS(filepath.Dir(opts.preset)), filepath.Base(opts.preset))
		if err != nil {
			a.Close()
			return nil, err
		}
		options = append(options, orchestrator.WithTransformer(preset))
	}
	a.orch = orchestrator.New(options...)
	a.closers = append(a.closers, func() error {
		a.orch.Dispose()
		return nil
	})
	return a, nil
}

// bindingsFor binds forms to the REST API when one is configured and to an
// in-process repository otherwise.
func bindingsFor(cfg config.Config) (orchestrator.BindingFactory, *orchestrator.Repository, error) {
	if cfg.APIBaseURL == "" {
		repo := orchestrator.NewRepository()
		return orchestrator.MemoryBindings(repo), repo, nil
	}
	var clientOpts []rest.Option
	if cfg.APIToken != "" {
		clientOpts = append(clientOpts, rest.WithTokenProvider(rest.StaticToken(cfg.APIToken)))
	}
	client, err := rest.New(cfg.APIBaseURL, clientOpts...)
	if err != nil {
		return nil, nil, err
	}
	return orchestrator.RESTBindings(client), nil, nil
}

func newRegistry(cfg config.Config, terminal *tui.Renderer) (*render.Registry, error) {
	selector, err := render.NewManifestSelector(vanilla.DefaultThemeName, "", vanilla.DefaultManifest(assetPrefix))
	if err != nil {
		return nil, err
	}
	html, err := vanilla.New(vanilla.WithThemeSelector(selector, cfg.Theme, cfg.ThemeVariant))
	if err != nil {
		return nil, fmt.Errorf("crudform: vanilla renderer: %w", err)
	}
	registry := render.NewRegistry()
	if err := registry.Register(html); err != nil {
		return nil, err
	}
	if err := registry.Register(terminal); err != nil {
		return nil, err
	}
	return registry, nil
}

// Close releases the orchestrator and draft storage.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
