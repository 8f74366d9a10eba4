// Package vanilla renders provider snapshots as framework-free HTML: the
// inline CrudForm, the CrudModal with backdrop and footer, and the
// CrudSearchForm.
package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/render"
	rendertemplate "github.com/goliatone/go-crudform/pkg/render/template"
	"github.com/goliatone/go-crudform/pkg/render/template/pongo"
	"github.com/goliatone/go-crudform/pkg/renderers/vanilla/components"
)

// Name is the registry name of the renderer.
const Name = "vanilla"

// ThemeStylesheetKey is the theme asset key linked as a stylesheet.
const ThemeStylesheetKey = "vanilla.stylesheet"

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	registry         *components.Registry
	selector         theme.ThemeSelector
	themeName        string
	themeVariant     string
	inlineStyles     bool
	viewOptions      []render.ViewOption
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithComponents replaces the component registry.
func WithComponents(registry *components.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.registry = registry
		}
	}
}

// WithThemeSelector resolves a theme for every render that does not carry
// RenderOptions.Theme.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) Option {
	return func(cfg *config) {
		cfg.selector = selector
		cfg.themeName = name
		cfg.themeVariant = variant
	}
}

// WithInlineStylesheet embeds the default stylesheet in the output.
func WithInlineStylesheet(enabled bool) Option {
	return func(cfg *config) {
		cfg.inlineStyles = enabled
	}
}

// WithViewOptions forwards options to render.BuildView.
func WithViewOptions(opts ...render.ViewOption) Option {
	return func(cfg *config) {
		cfg.viewOptions = append(cfg.viewOptions, opts...)
	}
}

type Renderer struct {
	templates    rendertemplate.TemplateRenderer
	registry     *components.Registry
	selector     theme.ThemeSelector
	themeName    string
	themeVariant string
	inlineStyles bool
	viewOptions  []render.ViewOption
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.registry == nil {
		cfg.registry = components.NewDefaultRegistry()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := pongo.New(
			pongo.WithFS(cfg.templateFS),
			pongo.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{
		templates:    renderer,
		registry:     cfg.registry,
		selector:     cfg.selector,
		themeName:    cfg.themeName,
		themeVariant: cfg.themeVariant,
		inlineStyles: cfg.inlineStyles,
		viewOptions:  cfg.viewOptions,
	}, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render draws the surface selected by options. A closed provider renders an
// empty modal.
func (r *Renderer) Render(_ context.Context, snapshot form.Snapshot, options render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}
	if options.Surface == render.SurfaceModal && !snapshot.State.IsOpen {
		return nil, nil
	}

	themeCfg := options.Theme
	if themeCfg == nil && r.selector != nil {
		resolved, err := render.ResolveTheme(r.selector, r.themeName, r.themeVariant, nil)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: %w", err)
		}
		themeCfg = resolved
	}

	view := render.BuildView(snapshot, options, r.viewOptions...)
	fields := &fieldRenderer{
		registry: r.registry,
		data:     components.ComponentData{Template: r.templates},
		used:     map[string]struct{}{},
	}
	if themeCfg != nil {
		fields.data.ThemePartials = themeCfg.Partials
	}
	body := fields.renderBody(view)

	payload := map[string]any{
		"form":        formContext(view),
		"body":        body,
		"hidden":      hiddenInputs(view.Hidden),
		"theme":       themeContext(themeCfg),
		"stylesheets": r.stylesheets(themeCfg, fields.used),
	}
	if r.inlineStyles {
		payload["inline_css"] = defaultStylesheet()
	}

	result, err := r.templates.RenderTemplate(templateFor(view.Surface), payload)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return []byte(result), nil
}

func templateFor(surface render.Surface) string {
	switch surface {
	case render.SurfaceModal:
		return "templates/modal.tmpl"
	case render.SurfaceSearch:
		return "templates/search.tmpl"
	default:
		return "templates/form.tmpl"
	}
}

func formContext(view render.View) map[string]any {
	danger := ""
	if view.Operation == model.OperationDelete {
		danger = "cf-button--danger"
	}
	return map[string]any{
		"id":             view.FormID,
		"dom_id":         render.ControlID(view.FormID, ""),
		"title":          view.Title,
		"operation":      string(view.Operation),
		"method":         view.Method,
		"action":         view.Action,
		"submit_text":    view.SubmitText,
		"submit_classes": []string{"cf-button", "cf-button--primary", danger},
		"cancel_text":    view.CancelText,
		"show_close":     view.ShowClose,
		"show_cancel":    view.ShowCancel,
		"size":           string(view.ModalSize),
		"submitting":     view.IsSubmitting,
		"read_only":      view.ReadOnly,
		"confirm_delete": view.ConfirmDelete,
		"auto_search":    view.AutoSearch,
		"debounce":       strconv.Itoa(view.AutoSearchDelay),
		"has_draft":      view.HasDraft,
		"last_error":     view.LastError,
	}
}

func themeContext(cfg *theme.RendererConfig) map[string]any {
	if cfg == nil {
		return map[string]any{}
	}
	return map[string]any{
		"name":    cfg.Theme,
		"variant": cfg.Variant,
		"style":   render.CSSVarsStyle(cfg.CSSVars),
	}
}

func (r *Renderer) stylesheets(cfg *theme.RendererConfig, used map[string]struct{}) []any {
	var out []any
	if cfg != nil && cfg.AssetURL != nil {
		if href := cfg.AssetURL(ThemeStylesheetKey); href != "" {
			out = append(out, href)
		}
	}
	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, href := range r.registry.Stylesheets(names) {
		out = append(out, href)
	}
	return out
}
