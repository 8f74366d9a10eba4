package openapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-crudform/pkg/model"
)

// FormExtension is the vendor extension carrying presentation overrides:
// {"type": "textarea", "label": "...", "placeholder": "...", "visibleIf": "...",
// "hidden": true, "order": 1}.
const FormExtension = "x-form"

// FieldsFromSchema derives field configs from an object schema's properties.
// Read-only properties are skipped. Properties are ordered by x-form.order
// and then by name.
func FieldsFromSchema(schema *openapi3.Schema) []model.FieldConfig {
	if schema == nil {
		return nil
	}
	required := make(map[string]struct{}, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = struct{}{}
	}

	type entry struct {
		order int
		field model.FieldConfig
	}
	var entries []entry
	for name, ref := range schema.Properties {
		if ref == nil || ref.Value == nil || ref.Value.ReadOnly {
			continue
		}
		prop := ref.Value
		field := classify(name, prop)
		_, field.Required = required[name]
		order := applyExtension(&field, prop)
		entries = append(entries, entry{order: order, field: field})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].order != entries[j].order {
			return entries[i].order < entries[j].order
		}
		return entries[i].field.Name < entries[j].field.Name
	})

	fields := make([]model.FieldConfig, 0, len(entries))
	for _, e := range entries {
		fields = append(fields, e.field)
	}
	return fields
}

// Defaults collects property defaults of an object schema.
func Defaults(schema *openapi3.Schema) model.Values {
	out := model.Values{}
	if schema == nil {
		return out
	}
	for name, ref := range schema.Properties {
		if ref == nil || ref.Value == nil || ref.Value.Default == nil {
			continue
		}
		out[name] = ref.Value.Default
	}
	return out
}

func classify(name string, prop *openapi3.Schema) model.FieldConfig {
	field := model.FieldConfig{
		Name:        name,
		Label:       prop.Title,
		Description: prop.Description,
	}
	if field.Label == "" {
		field.Label = model.Humanize(name)
	}

	if len(prop.Enum) > 0 {
		field.Type = model.FieldTypeSelect
		for _, value := range prop.Enum {
			label := fmt.Sprint(value)
			field.Options = append(field.Options, model.Option{Value: value, Label: model.Humanize(label)})
		}
		return field
	}

	switch typeOf(prop) {
	case openapi3.TypeBoolean:
		field.Type = model.FieldTypeCheckbox
	case openapi3.TypeInteger, openapi3.TypeNumber:
		field.Type = model.FieldTypeNumber
		if prop.Min != nil || prop.Max != nil || prop.MultipleOf != nil {
			field.Number = &model.NumberConstraints{Min: prop.Min, Max: prop.Max, Step: prop.MultipleOf}
		}
	case openapi3.TypeArray:
		field.Type = model.FieldTypeSelect
		if prop.Items != nil && prop.Items.Value != nil && len(prop.Items.Value.Enum) > 0 {
			field.Type = model.FieldTypeCheckbox
			for _, value := range prop.Items.Value.Enum {
				field.Options = append(field.Options, model.Option{Value: value, Label: model.Humanize(fmt.Sprint(value))})
			}
		}
	default:
		field.Type = stringType(name, prop)
	}
	return field
}

func stringType(name string, prop *openapi3.Schema) model.FieldType {
	switch strings.ToLower(prop.Format) {
	case "email":
		return model.FieldTypeEmail
	case "password":
		return model.FieldTypePassword
	case "date":
		return model.FieldTypeDate
	case "date-time":
		return model.FieldTypeDatetime
	case "binary", "byte":
		return model.FieldTypeFile
	case "phone", "tel":
		return model.FieldTypeTel
	}
	if prop.MaxLength != nil && *prop.MaxLength > 255 {
		return model.FieldTypeTextarea
	}
	if strings.Contains(strings.ToLower(name), "password") {
		return model.FieldTypePassword
	}
	return model.FieldTypeText
}

func typeOf(prop *openapi3.Schema) string {
	if prop.Type == nil || len(*prop.Type) == 0 {
		return ""
	}
	for _, t := range *prop.Type {
		if t != openapi3.TypeNull {
			return t
		}
	}
	return ""
}

func applyExtension(field *model.FieldConfig, prop *openapi3.Schema) int {
	raw, ok := prop.Extensions[FormExtension].(map[string]any)
	if !ok {
		return 0
	}
	if v, ok := raw["type"].(string); ok && v != "" {
		field.Type = model.ParseFieldType(v)
	}
	if v, ok := raw["label"].(string); ok && v != "" {
		field.Label = v
	}
	if v, ok := raw["placeholder"].(string); ok {
		field.Placeholder = v
	}
	if v, ok := raw["visibleIf"].(string); ok {
		field.VisibleIf = v
	}
	if v, ok := raw["hidden"].(bool); ok {
		field.Hidden = v
	}
	if v, ok := raw["span"].(float64); ok {
		field.Span = int(v)
	}
	if v, ok := raw["order"].(float64); ok {
		return int(v)
	}
	return 0
}
