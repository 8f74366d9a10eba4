package cueschema

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/goliatone/go-crudform/pkg/model"
)

// Fields derives field configs from the schema's top level struct. Optional
// CUE fields are not required; fields starting with "_" are skipped. A
// @form(type=..., label=..., placeholder=..., hidden) attribute overrides the
// inferred presentation.
func (s *Schema) Fields() ([]model.FieldConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	iter, err := s.value.Fields(cue.Optional(true))
	if err != nil {
		return nil, fmt.Errorf("cueschema: fields: %w", err)
	}
	var fields []model.FieldConfig
	for iter.Next() {
		label := strings.TrimSuffix(iter.Selector().String(), "?")
		if strings.HasPrefix(label, "_") {
			continue
		}
		field := classify(label, iter.Value())
		field.Required = !iter.IsOptional() && !hasDefault(iter.Value())
		applyAttribute(&field, iter.Value())
		fields = append(fields, field)
	}
	return fields, nil
}

// Defaults returns the default value of every field that declares one
// (`*"draft" | "published"`).
func (s *Schema) Defaults() model.Values {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := model.Values{}
	iter, err := s.value.Fields(cue.Optional(true))
	if err != nil {
		return out
	}
	for iter.Next() {
		label := strings.TrimSuffix(iter.Selector().String(), "?")
		value, ok := iter.Value().Default()
		if !ok || !value.IsConcrete() {
			continue
		}
		var decoded any
		if err := value.Decode(&decoded); err == nil {
			out[label] = decoded
		}
	}
	return out
}

func classify(name string, val cue.Value) model.FieldConfig {
	field := model.FieldConfig{Name: name, Label: model.Humanize(name)}

	if options := enumValues(val); len(options) > 0 {
		field.Type = model.FieldTypeSelect
		for _, option := range options {
			field.Options = append(field.Options, model.Option{Value: option, Label: model.Humanize(option)})
		}
		return field
	}

	switch val.IncompleteKind() {
	case cue.BoolKind:
		field.Type = model.FieldTypeCheckbox
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		field.Type = model.FieldTypeNumber
		field.Number = numberBounds(val)
	case cue.ListKind:
		field.Type = model.FieldTypeTextarea
	default:
		lower := strings.ToLower(name)
		switch {
		case strings.Contains(lower, "email"):
			field.Type = model.FieldTypeEmail
		case strings.Contains(lower, "password"):
			field.Type = model.FieldTypePassword
		case strings.Contains(lower, "phone"):
			field.Type = model.FieldTypeTel
		default:
			field.Type = model.FieldTypeText
		}
	}
	return field
}

func applyAttribute(field *model.FieldConfig, val cue.Value) {
	attr := val.Attribute("form")
	if attr.Err() != nil {
		return
	}
	if raw, ok, _ := attr.Lookup(0, "type"); ok {
		field.Type = model.ParseFieldType(raw)
	}
	if raw, ok, _ := attr.Lookup(0, "label"); ok {
		field.Label = raw
	}
	if raw, ok, _ := attr.Lookup(0, "placeholder"); ok {
		field.Placeholder = raw
	}
	if raw, ok, _ := attr.Lookup(0, "visibleIf"); ok {
		field.VisibleIf = raw
	}
	if hidden, err := attr.Flag(0, "hidden"); err == nil && hidden {
		field.Hidden = true
	}
}

func hasDefault(val cue.Value) bool {
	_, ok := val.Default()
	return ok
}

func enumValues(val cue.Value) []string {
	op, args := val.Expr()
	if op == cue.AndOp {
		for _, arg := range args {
			if argOp, argArgs := arg.Expr(); argOp == cue.OrOp {
				op, args = argOp, argArgs
				break
			}
		}
	}
	if op != cue.OrOp || len(args) < 2 {
		return nil
	}
	values := make([]string, 0, len(args))
	for _, arg := range args {
		if s, err := arg.String(); err == nil {
			values = append(values, s)
			continue
		}
		if d, ok := arg.Default(); ok {
			if s, err := d.String(); err == nil {
				values = append(values, s)
				continue
			}
		}
		return nil
	}
	return values
}

func numberBounds(val cue.Value) *model.NumberConstraints {
	var bounds model.NumberConstraints
	collectBounds(val, &bounds)
	if bounds.Min == nil && bounds.Max == nil {
		return nil
	}
	return &bounds
}

func collectBounds(val cue.Value, bounds *model.NumberConstraints) {
	op, args := val.Expr()
	switch op {
	case cue.AndOp:
		for _, arg := range args {
			collectBounds(arg, bounds)
		}
	case cue.GreaterThanEqualOp, cue.GreaterThanOp:
		if len(args) > 0 {
			if f, err := args[len(args)-1].Float64(); err == nil {
				bounds.Min = &f
			}
		}
	case cue.LessThanEqualOp, cue.LessThanOp:
		if len(args) > 0 {
			if f, err := args[len(args)-1].Float64(); err == nil {
				bounds.Max = &f
			}
		}
	}
}
