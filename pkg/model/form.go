package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-crudform/pkg/binding"
)

// Operation is the CRUD intent a form is currently serving.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
	OperationSearch Operation = "search"
	OperationView   Operation = "view"
)

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	switch op {
	case OperationCreate, OperationUpdate, OperationDelete, OperationSearch, OperationView:
		return true
	default:
		return false
	}
}

// ValidationResult is produced by a Schema. Errors are keyed by dotted field
// path; the empty key carries form level messages.
type ValidationResult struct {
	Valid  bool
	Errors map[string][]string
}

// Schema validates a complete value document.
type Schema interface {
	Validate(ctx context.Context, values Values) ValidationResult
}

// SchemaFunc adapts a function into a Schema.
type SchemaFunc func(ctx context.Context, values Values) ValidationResult

// Validate calls the underlying function.
func (fn SchemaFunc) Validate(ctx context.Context, values Values) ValidationResult {
	return fn(ctx, values)
}

// Operations are the externally supplied bindings the provider dispatches to.
// Any of them may be nil.
type Operations struct {
	Create  binding.Mutation[Values, any]
	Update  binding.Mutation[Values, any]
	Delete  binding.Mutation[any, any]
	Search  binding.Query[[]Values]
	GetByID binding.Query[Values]
}

// Layout controls the field grid.
type Layout struct {
	Columns    int    `json:"columns" yaml:"columns"`
	Gap        string `json:"gap,omitempty" yaml:"gap,omitempty"`
	Responsive bool   `json:"responsive,omitempty" yaml:"responsive,omitempty"`
}

// ValidationMode decides when fields are (re)validated.
type ValidationMode string

const (
	ValidateOnSubmit  ValidationMode = "onSubmit"
	ValidateOnChange  ValidationMode = "onChange"
	ValidateOnBlur    ValidationMode = "onBlur"
	ValidateOnTouched ValidationMode = "onTouched"
	ValidateAll       ValidationMode = "all"
)

// ValidationConfig pairs the initial mode with the mode used after the first
// submit attempt.
type ValidationConfig struct {
	Mode           ValidationMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	ReValidateMode ValidationMode `json:"reValidateMode,omitempty" yaml:"reValidateMode,omitempty"`
}

// ModalSize is a presentation hint for the modal width.
type ModalSize string

const (
	ModalSizeSmall  ModalSize = "sm"
	ModalSizeMedium ModalSize = "md"
	ModalSizeLarge  ModalSize = "lg"
	ModalSizeXL     ModalSize = "xl"
	ModalSizeFull   ModalSize = "full"
)

// UIConfig holds button copy and modal chrome toggles. Nil booleans default
// to true.
type UIConfig struct {
	SubmitText string    `json:"submitText,omitempty" yaml:"submitText,omitempty"`
	CancelText string    `json:"cancelText,omitempty" yaml:"cancelText,omitempty"`
	ModalSize  ModalSize `json:"modalSize,omitempty" yaml:"modalSize,omitempty"`
	ShowClose  *bool     `json:"showClose,omitempty" yaml:"showClose,omitempty"`
	ShowCancel *bool     `json:"showCancel,omitempty" yaml:"showCancel,omitempty"`
}

// CloseVisible reports whether the header close button should render.
func (ui UIConfig) CloseVisible() bool {
	return ui.ShowClose == nil || *ui.ShowClose
}

// CancelVisible reports whether the footer cancel button should render.
func (ui UIConfig) CancelVisible() bool {
	return ui.ShowCancel == nil || *ui.ShowCancel
}

// PersistenceConfig enables debounced draft autosave.
type PersistenceConfig struct {
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	Key           string   `json:"key,omitempty" yaml:"key,omitempty"`
	DebounceMs    int      `json:"debounceMs,omitempty" yaml:"debounceMs,omitempty"`
	ExcludeFields []string `json:"excludeFields,omitempty" yaml:"excludeFields,omitempty"`
}

// FormConfig is the static description of a form or modal.
type FormConfig struct {
	ID               string            `json:"id" yaml:"id"`
	Title            string            `json:"title,omitempty" yaml:"title,omitempty"`
	Schema           Schema            `json:"-" yaml:"-"`
	DefaultValues    Values            `json:"defaultValues" yaml:"defaultValues"`
	Fields           []FieldConfig     `json:"fields" yaml:"fields"`
	Operations       Operations        `json:"-" yaml:"-"`
	Layout           Layout            `json:"layout" yaml:"layout"`
	Validation       ValidationConfig  `json:"validation" yaml:"validation"`
	UI               UIConfig          `json:"ui" yaml:"ui"`
	Persistence      PersistenceConfig `json:"persistence" yaml:"persistence"`
	AllowEmptyFields bool              `json:"allowEmptyFields,omitempty" yaml:"allowEmptyFields,omitempty"`
}

// ErrInvalidConfig wraps every failure reported by FormConfig.Check.
var ErrInvalidConfig = errors.New("model: invalid form config")

// Check enforces the structural invariants a provider relies on.
func (c FormConfig) Check() error {
	var errs []error
	if strings.TrimSpace(c.ID) == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if c.Schema == nil {
		errs = append(errs, errors.New("schema is required"))
	}
	if c.DefaultValues == nil {
		errs = append(errs, errors.New("default values are required"))
	}
	if len(c.Fields) == 0 && !c.AllowEmptyFields {
		errs = append(errs, errors.New("at least one field is required"))
	}
	if c.Layout.Columns < 0 {
		errs = append(errs, fmt.Errorf("layout columns must be >= 1, got %d", c.Layout.Columns))
	}
	seen := make(map[string]struct{}, len(c.Fields))
	for i, field := range c.Fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("field %d: name is required", i))
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Errorf("field %q declared twice", name))
		}
		seen[name] = struct{}{}
		if field.Condition != nil && field.Condition.Operator != "" && !field.Condition.Operator.Valid() {
			errs = append(errs, fmt.Errorf("field %q: unknown condition operator %q", name, field.Condition.Operator))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Columns returns the effective grid column count.
func (c FormConfig) Columns() int {
	if c.Layout.Columns < 1 {
		return 1
	}
	return c.Layout.Columns
}

// PersistenceKey returns the configured draft key or the form id.
func (c FormConfig) PersistenceKey() string {
	if key := strings.TrimSpace(c.Persistence.Key); key != "" {
		return key
	}
	return c.ID
}

// Field looks up a field by name.
func (c FormConfig) Field(name string) (FieldConfig, bool) {
	for _, field := range c.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldConfig{}, false
}

// FieldNames returns field names in declaration order.
func (c FormConfig) FieldNames() []string {
	names := make([]string, 0, len(c.Fields))
	for _, field := range c.Fields {
		names = append(names, field.Name)
	}
	return names
}
