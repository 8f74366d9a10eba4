package components

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/render"
)

// NewDefaultRegistry constructs a registry with a component for every
// supported field type.
func NewDefaultRegistry() *Registry {
	registry := New()
	registry.MustRegister(NameInput, Descriptor{Renderer: themed(NameInput, inputRenderer)})
	registry.MustRegister(NameTextarea, Descriptor{Renderer: themed(NameTextarea, textareaRenderer)})
	registry.MustRegister(NameSelect, Descriptor{Renderer: themed(NameSelect, selectRenderer)})
	registry.MustRegister(NameRadio, Descriptor{Renderer: themed(NameRadio, radioRenderer), HandlesLabel: true})
	registry.MustRegister(NameCheckbox, Descriptor{Renderer: themed(NameCheckbox, checkboxRenderer), HandlesLabel: true})
	registry.MustRegister(NameFile, Descriptor{Renderer: themed(NameFile, fileRenderer)})
	registry.MustRegister(NameHidden, Descriptor{Renderer: hiddenRenderer, HandlesLabel: true})
	return registry
}

// themed renders through the theme partial for name when one is configured
// and falls back to the built-in markup otherwise.
func themed(name string, fallback Renderer) Renderer {
	return func(buf *bytes.Buffer, field render.FieldView, data ComponentData) error {
		partial := strings.TrimSpace(data.ThemePartials[PartialKey(name)])
		if partial == "" || data.Template == nil {
			return fallback(buf, field, data)
		}
		rendered, err := data.Template.RenderTemplate(partial, TemplatePayload(field))
		if err != nil {
			return fmt.Errorf("components: render partial %q: %w", partial, err)
		}
		buf.WriteString(rendered)
		return nil
	}
}

// TemplatePayload is the data handed to theme partials.
func TemplatePayload(field render.FieldView) map[string]any {
	options := make([]map[string]any, 0, len(field.OptionViews))
	for _, option := range field.OptionViews {
		options = append(options, map[string]any{
			"id":       option.ID,
			"value":    option.Value,
			"label":    option.Label,
			"selected": option.Selected,
			"disabled": option.Disabled,
		})
	}
	return map[string]any{
		"field": map[string]any{
			"id":          field.ID,
			"name":        field.Field.Name,
			"type":        string(field.Field.Type),
			"label":       field.Label,
			"placeholder": field.Field.Placeholder,
			"required":    field.Field.Required,
			"disabled":    field.Disabled,
			"invalid":     field.Invalid,
			"value":       field.Text,
			"errors":      field.Errors,
			"options":     options,
		},
	}
}

func inputRenderer(buf *bytes.Buffer, field render.FieldView, _ ComponentData) error {
	inputType := string(field.Field.Type)
	switch field.Field.Type {
	case model.FieldTypeDatetime:
		inputType = "datetime-local"
	case model.FieldTypeText, model.FieldTypeEmail, model.FieldTypePassword, model.FieldTypeNumber,
		model.FieldTypeTel, model.FieldTypeDate:
	default:
		inputType = "text"
	}

	buf.WriteString(`<input type="`)
	buf.WriteString(inputType)
	buf.WriteString(`"`)
	writeCommonAttrs(buf, field)
	if field.Field.Type != model.FieldTypePassword {
		writeAttr(buf, "value", field.Text)
	}
	if field.Field.Type == model.FieldTypeEmail {
		writeAttr(buf, "autocomplete", "email")
	}
	if n := field.Field.Number; n != nil && field.Field.Type == model.FieldTypeNumber {
		writeFloatAttr(buf, "min", n.Min)
		writeFloatAttr(buf, "max", n.Max)
		writeFloatAttr(buf, "step", n.Step)
	}
	writeAttr(buf, "placeholder", field.Field.Placeholder)
	buf.WriteString(`>`)
	return nil
}

func textareaRenderer(buf *bytes.Buffer, field render.FieldView, _ ComponentData) error {
	buf.WriteString(`<textarea rows="4"`)
	writeCommonAttrs(buf, field)
	writeAttr(buf, "placeholder", field.Field.Placeholder)
	buf.WriteString(`>`)
	buf.WriteString(html.EscapeString(field.Text))
	buf.WriteString(`</textarea>`)
	return nil
}

func selectRenderer(buf *bytes.Buffer, field render.FieldView, _ ComponentData) error {
	buf.WriteString(`<select`)
	writeCommonAttrs(buf, field)
	if _, multi := field.Value.([]any); multi {
		buf.WriteString(` multiple`)
	}
	buf.WriteString(`>`)

	placeholder := strings.TrimSpace(field.Field.Placeholder)
	if placeholder == "" {
		placeholder = "Select..."
	}
	buf.WriteString(`<option value="">`)
	buf.WriteString(html.EscapeString(placeholder))
	buf.WriteString(`</option>`)
	for _, option := range field.OptionViews {
		buf.WriteString(`<option`)
		writeAttr(buf, "value", option.Value)
		writeFlag(buf, "selected", option.Selected)
		writeFlag(buf, "disabled", option.Disabled && !field.Disabled)
		buf.WriteString(`>`)
		buf.WriteString(html.EscapeString(option.Label))
		buf.WriteString(`</option>`)
	}
	buf.WriteString(`</select>`)
	return nil
}

func radioRenderer(buf *bytes.Buffer, field render.FieldView, _ ComponentData) error {
	return choiceGroup(buf, field, "radio")
}

// checkboxRenderer draws a group when the field has options and a single
// boolean checkbox otherwise.
func checkboxRenderer(buf *bytes.Buffer, field render.FieldView, _ ComponentData) error {
	if field.HasOptions {
		return choiceGroup(buf, field, "checkbox")
	}
	buf.WriteString(`<label class="cf-check" for="`)
	buf.WriteString(html.EscapeString(field.ID))
	buf.WriteString(`"><input type="checkbox" value="true"`)
	writeCommonAttrs(buf, field)
	writeFlag(buf, "checked", render.Checked(field.Value))
	buf.WriteString(`> <span>`)
	buf.WriteString(html.EscapeString(field.Label))
	if field.Field.Required {
		buf.WriteString(`<span class="cf-required" aria-hidden="true">*</span>`)
	}
	buf.WriteString(`</span></label>`)
	return nil
}

func choiceGroup(buf *bytes.Buffer, field render.FieldView, kind string) error {
	buf.WriteString(`<fieldset class="cf-choices"`)
	writeAttr(buf, "id", field.ID)
	if kind == "radio" {
		writeAttr(buf, "role", "radiogroup")
	}
	writeDescribedBy(buf, field)
	buf.WriteString(`><legend class="cf-label">`)
	buf.WriteString(html.EscapeString(field.Label))
	if field.Field.Required {
		buf.WriteString(`<span class="cf-required" aria-hidden="true">*</span>`)
	}
	buf.WriteString(`</legend>`)
	for _, option := range field.OptionViews {
		buf.WriteString(`<label class="cf-choice" for="`)
		buf.WriteString(html.EscapeString(option.ID))
		buf.WriteString(`"><input type="`)
		buf.WriteString(kind)
		buf.WriteString(`"`)
		writeAttr(buf, "id", option.ID)
		writeAttr(buf, "name", field.Field.Name)
		writeAttr(buf, "value", option.Value)
		writeFlag(buf, "checked", option.Selected)
		writeFlag(buf, "disabled", option.Disabled)
		writeFlag(buf, "required", field.Field.Required && kind == "radio")
		buf.WriteString(`> <span>`)
		buf.WriteString(html.EscapeString(option.Label))
		buf.WriteString(`</span></label>`)
	}
	buf.WriteString(`</fieldset>`)
	return nil
}

func fileRenderer(buf *bytes.Buffer, field render.FieldView, _ ComponentData) error {
	buf.WriteString(`<input type="file"`)
	writeCommonAttrs(buf, field)
	if f := field.Field.File; f != nil {
		writeAttr(buf, "accept", f.Accept)
		writeFlag(buf, "multiple", f.Multiple)
		if f.MaxSize > 0 {
			writeAttr(buf, "data-max-size", strconv.FormatInt(f.MaxSize, 10))
		}
	}
	buf.WriteString(`>`)
	return nil
}

func hiddenRenderer(buf *bytes.Buffer, field render.FieldView, _ ComponentData) error {
	buf.WriteString(`<input type="hidden"`)
	writeAttr(buf, "id", field.ID)
	writeAttr(buf, "name", field.Field.Name)
	writeAttr(buf, "value", field.Text)
	buf.WriteString(`>`)
	return nil
}

func writeCommonAttrs(buf *bytes.Buffer, field render.FieldView) {
	writeAttr(buf, "id", field.ID)
	writeAttr(buf, "name", field.Field.Name)
	writeFlag(buf, "required", field.Field.Required)
	writeFlag(buf, "disabled", field.Disabled)
	if field.Invalid {
		writeAttr(buf, "aria-invalid", "true")
	}
	writeDescribedBy(buf, field)
}

func writeDescribedBy(buf *bytes.Buffer, field render.FieldView) {
	var ids []string
	if strings.TrimSpace(field.Field.Description) != "" {
		ids = append(ids, field.ID+"-description")
	}
	if field.Invalid {
		ids = append(ids, field.ID+"-error")
	}
	if len(ids) > 0 {
		writeAttr(buf, "aria-describedby", strings.Join(ids, " "))
	}
}

func writeAttr(buf *bytes.Buffer, name, value string) {
	if value == "" && name != "value" {
		return
	}
	buf.WriteByte(' ')
	buf.WriteString(name)
	buf.WriteString(`="`)
	buf.WriteString(html.EscapeString(value))
	buf.WriteString(`"`)
}

func writeFlag(buf *bytes.Buffer, name string, on bool) {
	if on {
		buf.WriteByte(' ')
		buf.WriteString(name)
	}
}

func writeFloatAttr(buf *bytes.Buffer, name string, value *float64) {
	if value != nil {
		writeAttr(buf, name, strconv.FormatFloat(*value, 'f', -1, 64))
	}
}
