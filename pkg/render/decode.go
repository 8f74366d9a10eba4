package render

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-crudform/pkg/model"
)

// DecodeSubmission turns a url-encoded body posted by a rendered form into
// values typed by the field configs. Inputs that match no field (hidden
// CSRF or _method inputs) are ignored, as are disabled and file fields.
// A boolean checkbox missing from the body decodes to false and a checkbox
// group to an empty list, since browsers omit unchecked boxes.
func DecodeSubmission(cfg model.FormConfig, form url.Values) (model.Values, error) {
	out := model.Values{}
	for _, field := range cfg.Fields {
		if field.Disabled || field.Type == model.FieldTypeFile {
			continue
		}
		raw, present := form[field.Name]
		value, set, err := decodeField(field, raw, present)
		if err != nil {
			return nil, err
		}
		if !set {
			continue
		}
		if err := out.Set(field.Name, value); err != nil {
			return nil, fmt.Errorf("render: field %q: %w", field.Name, err)
		}
	}
	return out, nil
}

func decodeField(field model.FieldConfig, raw []string, present bool) (any, bool, error) {
	switch field.Type {
	case model.FieldTypeCheckbox:
		if len(field.Options) == 0 {
			return present && truthy(first(raw)), true, nil
		}
		list := make([]any, 0, len(raw))
		for _, item := range raw {
			list = append(list, optionValue(field.Options, item))
		}
		return list, true, nil
	}

	if !present {
		return nil, false, nil
	}
	switch field.Type {
	case model.FieldTypeNumber:
		text := strings.TrimSpace(first(raw))
		if text == "" {
			return nil, true, nil
		}
		number, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, false, fmt.Errorf("render: field %q: %q is not a number", field.Name, text)
		}
		return number, true, nil
	case model.FieldTypeSelect, model.FieldTypeRadio:
		if len(raw) > 1 {
			list := make([]any, 0, len(raw))
			for _, item := range raw {
				list = append(list, optionValue(field.Options, item))
			}
			return list, true, nil
		}
		return optionValue(field.Options, first(raw)), true, nil
	default:
		return first(raw), true, nil
	}
}

// optionValue maps a posted string back onto the typed option value it was
// rendered from.
func optionValue(options []model.Option, raw string) any {
	for _, option := range options {
		if fmt.Sprint(option.Value) == raw {
			return option.Value
		}
	}
	return raw
}

func first(raw []string) string {
	if len(raw) == 0 {
		return ""
	}
	return raw[0]
}

func truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "on", "1", "yes":
		return true
	default:
		return false
	}
}
