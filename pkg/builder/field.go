// Package builder assembles model.FieldConfig and model.FormConfig values
// through chained setters. Builders perform no I/O and produce independent
// copies on every Build call.
package builder

import (
	"github.com/goliatone/go-crudform/pkg/model"
)

// FieldBuilder accumulates one field config.
type FieldBuilder struct {
	field model.FieldConfig
}

// Field starts a field of the given type.
func Field(name string, fieldType model.FieldType) *FieldBuilder {
	return &FieldBuilder{field: model.FieldConfig{Name: name, Type: fieldType}}
}

// Text, Email and the other shorthands start a field of that type.
func Text(name string) *FieldBuilder     { return Field(name, model.FieldTypeText) }
func Email(name string) *FieldBuilder    { return Field(name, model.FieldTypeEmail) }
func Password(name string) *FieldBuilder { return Field(name, model.FieldTypePassword) }
func Number(name string) *FieldBuilder   { return Field(name, model.FieldTypeNumber) }
func Textarea(name string) *FieldBuilder { return Field(name, model.FieldTypeTextarea) }
func Select(name string) *FieldBuilder   { return Field(name, model.FieldTypeSelect) }
func Checkbox(name string) *FieldBuilder { return Field(name, model.FieldTypeCheckbox) }
func Radio(name string) *FieldBuilder    { return Field(name, model.FieldTypeRadio) }
func Date(name string) *FieldBuilder     { return Field(name, model.FieldTypeDate) }
func Hidden(name string) *FieldBuilder   { return Field(name, model.FieldTypeHidden) }

func (b *FieldBuilder) Label(label string) *FieldBuilder {
	b.field.Label = label
	return b
}

func (b *FieldBuilder) Placeholder(placeholder string) *FieldBuilder {
	b.field.Placeholder = placeholder
	return b
}

func (b *FieldBuilder) Description(description string) *FieldBuilder {
	b.field.Description = description
	return b
}

func (b *FieldBuilder) Required() *FieldBuilder {
	b.field.Required = true
	return b
}

func (b *FieldBuilder) Disabled() *FieldBuilder {
	b.field.Disabled = true
	return b
}

func (b *FieldBuilder) Hidden() *FieldBuilder {
	b.field.Hidden = true
	return b
}

// Condition shows the field only when the value at field compares to value.
func (b *FieldBuilder) Condition(field string, value any, operator model.Operator) *FieldBuilder {
	b.field.Condition = &model.Condition{Field: field, Value: value, Operator: operator}
	return b
}

// ShowWhen sets a predicate over the whole value map.
func (b *FieldBuilder) ShowWhen(fn func(model.Values) bool) *FieldBuilder {
	b.field.ShowWhen = fn
	return b
}

// VisibleIf sets a textual visibility rule.
func (b *FieldBuilder) VisibleIf(rule string) *FieldBuilder {
	b.field.VisibleIf = rule
	return b
}

// Options replaces the choice list.
func (b *FieldBuilder) Options(options ...model.Option) *FieldBuilder {
	b.field.Options = append([]model.Option(nil), options...)
	return b
}

// Option appends a single choice.
func (b *FieldBuilder) Option(value any, label string) *FieldBuilder {
	b.field.Options = append(b.field.Options, model.Option{Value: value, Label: label})
	return b
}

func (b *FieldBuilder) Min(min float64) *FieldBuilder {
	b.number().Min = &min
	return b
}

func (b *FieldBuilder) Max(max float64) *FieldBuilder {
	b.number().Max = &max
	return b
}

func (b *FieldBuilder) Step(step float64) *FieldBuilder {
	b.number().Step = &step
	return b
}

func (b *FieldBuilder) Accept(accept string) *FieldBuilder {
	b.file().Accept = accept
	return b
}

func (b *FieldBuilder) Multiple() *FieldBuilder {
	b.file().Multiple = true
	return b
}

// MaxSize limits uploads, in bytes.
func (b *FieldBuilder) MaxSize(bytes int64) *FieldBuilder {
	b.file().MaxSize = bytes
	return b
}

// Span sets how many grid columns the field occupies.
func (b *FieldBuilder) Span(columns int) *FieldBuilder {
	b.field.Span = columns
	return b
}

// Build returns a copy of the accumulated config.
func (b *FieldBuilder) Build() model.FieldConfig {
	return cloneField(b.field)
}

func (b *FieldBuilder) number() *model.NumberConstraints {
	if b.field.Number == nil {
		b.field.Number = &model.NumberConstraints{}
	}
	return b.field.Number
}

func (b *FieldBuilder) file() *model.FileConstraints {
	if b.field.File == nil {
		b.field.File = &model.FileConstraints{}
	}
	return b.field.File
}

func cloneField(field model.FieldConfig) model.FieldConfig {
	out := field
	if field.Condition != nil {
		cond := *field.Condition
		out.Condition = &cond
	}
	if field.Options != nil {
		out.Options = append([]model.Option(nil), field.Options...)
	}
	if field.Number != nil {
		number := model.NumberConstraints{
			Min:  clonePointer(field.Number.Min),
			Max:  clonePointer(field.Number.Max),
			Step: clonePointer(field.Number.Step),
		}
		out.Number = &number
	}
	if field.File != nil {
		file := *field.File
		out.File = &file
	}
	return out
}

func clonePointer(in *float64) *float64 {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}
