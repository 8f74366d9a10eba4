package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/render"
)

// collect prompts for the visible fields of cfg in order, writing answers
// into values. When only is non-nil, fields outside it keep their current
// value. Answers are checked against the schema and re-asked while the
// answered field carries errors.
func (r *Renderer) collect(ctx context.Context, cfg model.FormConfig, values model.Values, only map[string]struct{}) (model.Values, error) {
	if values == nil {
		values = model.Values{}
	}
	for _, field := range cfg.Fields {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if only != nil {
			if _, ok := only[field.Name]; !ok {
				continue
			}
		}
		visible, err := r.resolver.Visible(field, values)
		if err != nil {
			if perr := r.problem(ctx, err.Error()); perr != nil {
				return nil, perr
			}
			continue
		}
		if !visible || field.Disabled || field.Type == model.FieldTypeHidden {
			continue
		}
		if !field.Type.Valid() {
			if err := r.problem(ctx, fmt.Sprintf("Unsupported field type %q (field %q)", field.Type, field.Name)); err != nil {
				return nil, err
			}
			continue
		}
		if err := r.promptField(ctx, cfg.Schema, field, values); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func (r *Renderer) promptField(ctx context.Context, schema model.Schema, field model.FieldConfig, values model.Values) error {
	for {
		answer, skip, err := r.ask(ctx, field, values)
		if err != nil {
			return err
		}
		if skip {
			values.Delete(field.Name)
		} else if err := values.Set(field.Name, answer); err != nil {
			return fmt.Errorf("tui: set %s: %w", field.Name, err)
		}

		messages := fieldErrors(ctx, schema, values, field.Name)
		if len(messages) == 0 {
			return nil
		}
		if err := r.problem(ctx, fmt.Sprintf("Invalid %s: %s", field.DisplayLabel(), strings.Join(messages, ", "))); err != nil {
			return err
		}
	}
}

func fieldErrors(ctx context.Context, schema model.Schema, values model.Values, name string) []string {
	if schema == nil {
		return nil
	}
	result := schema.Validate(ctx, values)
	if result.Valid {
		return nil
	}
	return result.Errors[name]
}

// ask runs the prompt matching the field type. skip reports an empty answer
// that should clear the value.
func (r *Renderer) ask(ctx context.Context, field model.FieldConfig, values model.Values) (any, bool, error) {
	current, _ := values.Get(field.Name)
	label := field.DisplayLabel()
	help := helpFor(field)

	switch field.Type {
	case model.FieldTypePassword:
		answer, err := r.driver.Password(ctx, InputConfig{Message: label, Help: help})
		return answer, false, err

	case model.FieldTypeTextarea:
		answer, err := r.driver.TextArea(ctx, TextAreaConfig{
			Message: label,
			Default: render.FormatValue(current),
			Help:    help,
		})
		return answer, false, err

	case model.FieldTypeNumber:
		return r.askNumber(ctx, field, label, help, current)

	case model.FieldTypeSelect, model.FieldTypeRadio:
		if len(field.Options) == 0 {
			break
		}
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      optionLabels(field.Options),
			DefaultIndex: selectedIndex(field.Options, current),
			Help:         help,
		})
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(field.Options) {
			return nil, true, nil
		}
		return field.Options[idx].Value, false, nil

	case model.FieldTypeCheckbox:
		if len(field.Options) == 0 {
			answer, err := r.driver.Confirm(ctx, ConfirmConfig{
				Message: label,
				Default: render.Checked(current),
				Help:    help,
			})
			return answer, false, err
		}
		indices, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  label,
			Options:  optionLabels(field.Options),
			Defaults: selectedIndices(field.Options, current),
			Help:     help,
		})
		if err != nil {
			return nil, false, err
		}
		picked := make([]any, 0, len(indices))
		for _, idx := range indices {
			if idx >= 0 && idx < len(field.Options) {
				picked = append(picked, field.Options[idx].Value)
			}
		}
		return picked, false, nil
	}

	answer, err := r.driver.Input(ctx, InputConfig{
		Message:     label,
		Default:     render.FormatValue(current),
		Help:        help,
		Placeholder: field.Placeholder,
	})
	if err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(answer) == "" && !field.Required {
		return nil, true, nil
	}
	return answer, false, nil
}

func (r *Renderer) askNumber(ctx context.Context, field model.FieldConfig, label, help string, current any) (any, bool, error) {
	for {
		input, err := r.driver.Input(ctx, InputConfig{
			Message: label,
			Default: render.FormatValue(current),
			Help:    help,
		})
		if err != nil {
			return nil, false, err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			return nil, true, nil
		}
		parsed, err := strconv.ParseFloat(input, 64)
		if err != nil {
			if perr := r.problem(ctx, fmt.Sprintf("Invalid %s: %q is not a number", label, input)); perr != nil {
				return nil, false, perr
			}
			continue
		}
		return parsed, false, nil
	}
}

func helpFor(field model.FieldConfig) string {
	help := strings.TrimSpace(field.Description)
	if n := field.Number; n != nil && field.Type == model.FieldTypeNumber {
		var bounds []string
		if n.Min != nil {
			bounds = append(bounds, "min "+render.FormatValue(*n.Min))
		}
		if n.Max != nil {
			bounds = append(bounds, "max "+render.FormatValue(*n.Max))
		}
		if len(bounds) > 0 {
			if help != "" {
				help += " "
			}
			help += "(" + strings.Join(bounds, ", ") + ")"
		}
	}
	return help
}

func optionLabels(options []model.Option) []string {
	out := make([]string, 0, len(options))
	for _, option := range options {
		label := strings.TrimSpace(option.Label)
		if label == "" {
			label = render.FormatValue(option.Value)
		}
		out = append(out, label)
	}
	return out
}

func selectedIndex(options []model.Option, current any) int {
	for i, option := range options {
		if render.Selected(current, option.Value) {
			return i
		}
	}
	return -1
}

func selectedIndices(options []model.Option, current any) []int {
	var out []int
	for i, option := range options {
		if render.Selected(current, option.Value) {
			out = append(out, i)
		}
	}
	return out
}
