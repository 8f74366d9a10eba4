package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/formdef"
	"github.com/goliatone/go-crudform/pkg/invalidate"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/render"
	"github.com/goliatone/go-crudform/pkg/renderers/vanilla"
	"github.com/goliatone/go-crudform/pkg/storage"
)

const defaultRendererName = vanilla.Name

// ErrUnknownForm is returned when a form id has no definition.
var ErrUnknownForm = errors.New("orchestrator: unknown form")

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithDefinitions supplies the loaded form definitions.
func WithDefinitions(store *formdef.Store) Option {
	return func(o *Orchestrator) {
		o.definitions = store
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit renderer name.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithStorage sets the draft store shared by every provider.
func WithStorage(store storage.Storage) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithInvalidator receives the form id after successful writes.
func WithInvalidator(inv invalidate.Invalidator) Option {
	return func(o *Orchestrator) {
		o.invalidator = inv
	}
}

// WithBindings selects how definitions get their CRUD operations.
func WithBindings(factory BindingFactory) Option {
	return func(o *Orchestrator) {
		o.bindings = factory
	}
}

// WithTransformer registers a Transformer that can mutate form configs
// before decorators run.
func WithTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		o.transformer = t
	}
}

// WithDecorators registers decorators applied to every form config.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(o *Orchestrator) {
		o.decorators = append(o.decorators, decorators...)
	}
}

// WithProviderOptions forwards extra options to every provider.
func WithProviderOptions(opts ...form.Option) Option {
	return func(o *Orchestrator) {
		o.providerOpts = append(o.providerOpts, opts...)
	}
}

// WithLogger sets the logger handed to providers.
func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator turns form definitions into providers and renders them. It
// applies defaults (vanilla renderer, no bindings) while remaining open to
// dependency injection.
type Orchestrator struct {
	definitions     *formdef.Store
	registry        *render.Registry
	defaultRenderer string
	store           storage.Storage
	invalidator     invalidate.Invalidator
	bindings        BindingFactory
	transformer     Transformer
	decorators      []model.Decorator
	providerOpts    []form.Option
	logger          *log.Logger
	initialiseErr   error

	mu        sync.Mutex
	providers map[string]*form.Provider
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		logger:          log.Default(),
		providers:       make(map[string]*form.Provider),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes one render call.
type Request struct {
	// FormID selects the definition.
	FormID string
	// Renderer names the renderer to use. Empty falls back to the default.
	Renderer string
	// RenderOptions carries per-request surface, action and hidden fields.
	RenderOptions render.RenderOptions
}

// Forms lists the loaded form ids.
func (o *Orchestrator) Forms() []string {
	return o.definitions.IDs()
}

// Definition returns the loaded definition for id.
func (o *Orchestrator) Definition(id string) (formdef.Definition, error) {
	def, ok := o.definitions.Form(id)
	if !ok {
		return formdef.Definition{}, fmt.Errorf("%w %q", ErrUnknownForm, id)
	}
	return def, nil
}

// Config returns the transformed and decorated config for id, without
// operations bound.
func (o *Orchestrator) Config(ctx context.Context, id string) (model.FormConfig, error) {
	def, err := o.Definition(id)
	if err != nil {
		return model.FormConfig{}, err
	}
	return o.prepare(ctx, def)
}

// Provider returns the shared provider for id, building it on first use.
func (o *Orchestrator) Provider(ctx context.Context, id string) (*form.Provider, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if provider, ok := o.providers[id]; ok {
		return provider, nil
	}
	provider, err := o.NewProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	o.providers[id] = provider
	return provider, nil
}

// NewProvider builds a provider for id that is not shared. Callers own it
// and must Dispose it.
func (o *Orchestrator) NewProvider(ctx context.Context, id string, opts ...form.Option) (*form.Provider, error) {
	if err := o.initialiseErr; err != nil {
		return nil, err
	}
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	def, err := o.Definition(id)
	if err != nil {
		return nil, err
	}
	cfg, err := o.prepare(ctx, def)
	if err != nil {
		return nil, err
	}

	var provider *form.Provider
	state := func() form.State {
		if provider == nil {
			return form.State{}
		}
		return provider.State()
	}
	if o.bindings != nil {
		cfg.Operations = o.bindings.Operations(def, state)
	}

	options := []form.Option{
		form.WithLogger(o.logger),
		form.WithInvalidator(o.invalidator),
	}
	if o.store != nil {
		options = append(options, form.WithStorage(o.store))
	}
	options = append(options, o.providerOpts...)
	options = append(options, opts...)

	provider, err = form.New(cfg, options...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: form %q: %w", id, err)
	}
	return provider, nil
}

// Render builds (or reuses) the provider for the request and renders its
// current snapshot. It returns the output and its content type.
func (o *Orchestrator) Render(ctx context.Context, req Request) ([]byte, string, error) {
	if req.FormID == "" {
		return nil, "", errors.New("orchestrator: form id is required")
	}
	provider, err := o.Provider(ctx, req.FormID)
	if err != nil {
		return nil, "", err
	}
	return o.RenderProvider(ctx, provider, req.Renderer, req.RenderOptions)
}

// RenderProvider renders the snapshot of an existing provider.
func (o *Orchestrator) RenderProvider(ctx context.Context, provider *form.Provider, rendererName string, options render.RenderOptions) ([]byte, string, error) {
	if err := o.initialiseErr; err != nil {
		return nil, "", err
	}
	if provider == nil {
		return nil, "", errors.New("orchestrator: provider is required")
	}
	name, err := o.rendererFor(rendererName)
	if err != nil {
		return nil, "", err
	}
	output, contentType, err := o.registry.Render(ctx, name, provider.Snapshot(), options)
	if err != nil {
		return nil, "", fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, contentType, nil
}

// Registry exposes the renderer registry.
func (o *Orchestrator) Registry() *render.Registry {
	return o.registry
}

// Dispose releases every shared provider.
func (o *Orchestrator) Dispose() {
	o.mu.Lock()
	providers := o.providers
	o.providers = make(map[string]*form.Provider)
	o.mu.Unlock()
	for _, provider := range providers {
		provider.Dispose()
	}
}

func (o *Orchestrator) prepare(ctx context.Context, def formdef.Definition) (model.FormConfig, error) {
	cfg := def.Config
	cfg.Fields = append([]model.FieldConfig(nil), def.Config.Fields...)
	cfg.DefaultValues = def.Config.DefaultValues.Clone()

	if err := o.applyTransformer(ctx, &cfg); err != nil {
		return model.FormConfig{}, err
	}
	if err := o.applyDecorators(&cfg); err != nil {
		return model.FormConfig{}, err
	}
	return cfg, nil
}

func (o *Orchestrator) rendererFor(name string) (string, error) {
	if o.registry == nil {
		return "", errors.New("orchestrator: renderer registry is nil")
	}

	target := name
	if target == "" {
		target = o.defaultRenderer
	}
	if target != "" {
		if _, err := o.registry.Get(target); err == nil {
			return target, nil
		} else if name != "" {
			return "", fmt.Errorf("orchestrator: renderer %q: %w", name, err)
		}
	}

	names := o.registry.List()
	if len(names) == 0 {
		return "", errors.New("orchestrator: no renderers registered")
	}
	return names[0], nil
}

func (o *Orchestrator) applyDecorators(cfg *model.FormConfig) error {
	for _, decorator := range o.decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(cfg); err != nil {
			return fmt.Errorf("orchestrator: decorate form %q: %w", cfg.ID, err)
		}
	}
	return nil
}

func (o *Orchestrator) applyTransformer(ctx context.Context, cfg *model.FormConfig) error {
	if o.transformer == nil {
		return nil
	}
	if err := o.transformer.Transform(ctx, cfg); err != nil {
		return fmt.Errorf("orchestrator: transform form %q: %w", cfg.ID, err)
	}
	return nil
}

func (o *Orchestrator) applyDefaults() {
	if o.definitions == nil {
		o.definitions = &formdef.Store{}
	}
	if o.invalidator == nil {
		o.invalidator = invalidate.Noop
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := vanilla.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
			return
		}
		o.registry.MustRegister(renderer)
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
}
