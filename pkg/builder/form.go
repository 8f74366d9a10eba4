package builder

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-crudform/pkg/binding"
	"github.com/goliatone/go-crudform/pkg/model"
)

var (
	ErrMissingSchema   = errors.New("builder: schema is required")
	ErrMissingDefaults = errors.New("builder: default values are required")
	ErrNoFields        = errors.New("builder: at least one field is required")
)

// FormConfigBuilder accumulates a form config.
type FormConfigBuilder struct {
	cfg        model.FormConfig
	decorators []model.Decorator
}

// NewForm starts a form with id and a single column layout.
func NewForm(id string) *FormConfigBuilder {
	return &FormConfigBuilder{cfg: model.FormConfig{
		ID:     id,
		Layout: model.Layout{Columns: 1},
	}}
}

func (b *FormConfigBuilder) Title(title string) *FormConfigBuilder {
	b.cfg.Title = title
	return b
}

func (b *FormConfigBuilder) Schema(schema model.Schema) *FormConfigBuilder {
	b.cfg.Schema = schema
	return b
}

// DefaultValues sets the reset target. Nil leaves defaults unset.
func (b *FormConfigBuilder) DefaultValues(values model.Values) *FormConfigBuilder {
	if values == nil {
		b.cfg.DefaultValues = nil
		return b
	}
	b.cfg.DefaultValues = values.Clone()
	return b
}

// Field appends fields from builders.
func (b *FormConfigBuilder) Field(fields ...*FieldBuilder) *FormConfigBuilder {
	for _, field := range fields {
		if field != nil {
			b.cfg.Fields = append(b.cfg.Fields, field.Build())
		}
	}
	return b
}

// Fields appends ready-made field configs.
func (b *FormConfigBuilder) Fields(fields ...model.FieldConfig) *FormConfigBuilder {
	for _, field := range fields {
		b.cfg.Fields = append(b.cfg.Fields, cloneField(field))
	}
	return b
}

func (b *FormConfigBuilder) Create(m binding.Mutation[model.Values, any]) *FormConfigBuilder {
	b.cfg.Operations.Create = m
	return b
}

func (b *FormConfigBuilder) Update(m binding.Mutation[model.Values, any]) *FormConfigBuilder {
	b.cfg.Operations.Update = m
	return b
}

func (b *FormConfigBuilder) Delete(m binding.Mutation[any, any]) *FormConfigBuilder {
	b.cfg.Operations.Delete = m
	return b
}

func (b *FormConfigBuilder) Search(q binding.Query[[]model.Values]) *FormConfigBuilder {
	b.cfg.Operations.Search = q
	return b
}

func (b *FormConfigBuilder) GetByID(q binding.Query[model.Values]) *FormConfigBuilder {
	b.cfg.Operations.GetByID = q
	return b
}

// Operations replaces every binding at once.
func (b *FormConfigBuilder) Operations(ops model.Operations) *FormConfigBuilder {
	b.cfg.Operations = ops
	return b
}

func (b *FormConfigBuilder) Layout(layout model.Layout) *FormConfigBuilder {
	b.cfg.Layout = layout
	return b
}

func (b *FormConfigBuilder) Columns(columns int) *FormConfigBuilder {
	b.cfg.Layout.Columns = columns
	return b
}

// ValidationMode sets when fields validate before and after the first submit.
func (b *FormConfigBuilder) ValidationMode(mode, reValidate model.ValidationMode) *FormConfigBuilder {
	b.cfg.Validation = model.ValidationConfig{Mode: mode, ReValidateMode: reValidate}
	return b
}

func (b *FormConfigBuilder) UI(ui model.UIConfig) *FormConfigBuilder {
	b.cfg.UI = ui
	return b
}

func (b *FormConfigBuilder) SubmitText(text string) *FormConfigBuilder {
	b.cfg.UI.SubmitText = text
	return b
}

func (b *FormConfigBuilder) CancelText(text string) *FormConfigBuilder {
	b.cfg.UI.CancelText = text
	return b
}

func (b *FormConfigBuilder) ModalSize(size model.ModalSize) *FormConfigBuilder {
	b.cfg.UI.ModalSize = size
	return b
}

// Persist enables draft autosave. An empty key falls back to the form id and
// a non-positive debounce to the draft package default.
func (b *FormConfigBuilder) Persist(key string, debounceMs int, exclude ...string) *FormConfigBuilder {
	b.cfg.Persistence = model.PersistenceConfig{
		Enabled:       true,
		Key:           key,
		DebounceMs:    debounceMs,
		ExcludeFields: append([]string(nil), exclude...),
	}
	return b
}

func (b *FormConfigBuilder) AllowEmptyFields() *FormConfigBuilder {
	b.cfg.AllowEmptyFields = true
	return b
}

// Decorate registers decorators run at Build time, after the required
// inputs are checked and before the structural invariants are.
func (b *FormConfigBuilder) Decorate(decorators ...model.Decorator) *FormConfigBuilder {
	b.decorators = append(b.decorators, decorators...)
	return b
}

// Build validates the accumulated config and returns an independent copy.
// Missing required inputs are reported together.
func (b *FormConfigBuilder) Build() (model.FormConfig, error) {
	var missing []error
	if b.cfg.Schema == nil {
		missing = append(missing, ErrMissingSchema)
	}
	if b.cfg.DefaultValues == nil {
		missing = append(missing, ErrMissingDefaults)
	}
	if len(b.cfg.Fields) == 0 && !b.cfg.AllowEmptyFields && len(b.decorators) == 0 {
		missing = append(missing, ErrNoFields)
	}
	if len(missing) > 0 {
		return model.FormConfig{}, errors.Join(missing...)
	}

	cfg := b.snapshot()
	for _, decorator := range b.decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(&cfg); err != nil {
			return model.FormConfig{}, fmt.Errorf("builder: decorate %s: %w", cfg.ID, err)
		}
	}
	if len(cfg.Fields) == 0 && !cfg.AllowEmptyFields {
		return model.FormConfig{}, ErrNoFields
	}
	if err := cfg.Check(); err != nil {
		return model.FormConfig{}, fmt.Errorf("builder: %w", err)
	}
	return cfg, nil
}

// MustBuild panics when Build fails.
func (b *FormConfigBuilder) MustBuild() model.FormConfig {
	cfg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (b *FormConfigBuilder) snapshot() model.FormConfig {
	cfg := b.cfg
	cfg.DefaultValues = b.cfg.DefaultValues.Clone()
	cfg.Fields = make([]model.FieldConfig, 0, len(b.cfg.Fields))
	for _, field := range b.cfg.Fields {
		cfg.Fields = append(cfg.Fields, cloneField(field))
	}
	cfg.Persistence.ExcludeFields = append([]string(nil), b.cfg.Persistence.ExcludeFields...)
	return cfg
}

// CreateForm builds a config in one call.
func CreateForm(id string, schema model.Schema, defaults model.Values, fields ...*FieldBuilder) (model.FormConfig, error) {
	return NewForm(id).Schema(schema).DefaultValues(defaults).Field(fields...).Build()
}
