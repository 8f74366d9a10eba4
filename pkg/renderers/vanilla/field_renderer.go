package vanilla

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/render"
	"github.com/goliatone/go-crudform/pkg/renderers/vanilla/components"
)

// ComponentFor maps a field type to the component drawing it. Unknown types
// report false.
func ComponentFor(t model.FieldType) (string, bool) {
	switch t {
	case model.FieldTypeText, model.FieldTypeEmail, model.FieldTypePassword, model.FieldTypeNumber,
		model.FieldTypeTel, model.FieldTypeDate, model.FieldTypeDatetime:
		return components.NameInput, true
	case model.FieldTypeTextarea:
		return components.NameTextarea, true
	case model.FieldTypeSelect:
		return components.NameSelect, true
	case model.FieldTypeRadio:
		return components.NameRadio, true
	case model.FieldTypeCheckbox:
		return components.NameCheckbox, true
	case model.FieldTypeFile:
		return components.NameFile, true
	case model.FieldTypeHidden:
		return components.NameHidden, true
	default:
		return "", false
	}
}

type fieldRenderer struct {
	registry *components.Registry
	data     components.ComponentData
	used     map[string]struct{}
}

// RenderField draws one field with label, description and errors using the
// default components. Unsupported types and component failures yield an
// inline marker instead of an error.
func RenderField(field render.FieldView) string {
	r := fieldRenderer{registry: components.NewDefaultRegistry(), used: map[string]struct{}{}}
	return r.render(field)
}

func (r *fieldRenderer) render(field render.FieldView) string {
	name, ok := ComponentFor(field.Field.Type)
	if !ok {
		return unsupportedMarkup(field, fmt.Sprintf("Unsupported field type %q", field.Field.Type))
	}
	descriptor, ok := r.registry.Descriptor(name)
	if !ok {
		return unsupportedMarkup(field, fmt.Sprintf("No component registered for %q", name))
	}

	var control bytes.Buffer
	if err := descriptor.Renderer(&control, field, r.data); err != nil {
		return unsupportedMarkup(field, err.Error())
	}
	r.used[name] = struct{}{}

	if field.Field.Type == model.FieldTypeHidden {
		return control.String()
	}
	return buildFieldMarkup(field, name, descriptor.HandlesLabel, control.String())
}

func buildFieldMarkup(field render.FieldView, componentName string, handlesLabel bool, control string) string {
	var b strings.Builder
	b.Grow(len(control) + 256)

	b.WriteString(`<div class="`)
	b.WriteString(string(ClassField))
	b.WriteString(` cf-field--`)
	b.WriteString(html.EscapeString(string(field.Field.Type)))
	if field.Invalid {
		b.WriteString(` cf-field--invalid`)
	}
	b.WriteString(`"`)
	if field.Span > 1 {
		b.WriteString(` style="grid-column: span `)
		b.WriteString(strconv.Itoa(field.Span))
		b.WriteString(`"`)
	}
	b.WriteString(` data-field="`)
	b.WriteString(html.EscapeString(field.Field.Name))
	b.WriteString(`" data-component="`)
	b.WriteString(componentName)
	b.WriteString(`">`)

	if !handlesLabel {
		b.WriteString(`<label class="cf-label" for="`)
		b.WriteString(html.EscapeString(field.ID))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(field.Label))
		if field.Field.Required {
			b.WriteString(`<span class="cf-required" aria-hidden="true">*</span>`)
		}
		b.WriteString(`</label>`)
	}

	b.WriteString(control)

	if description := DescriptionHTML(field.Field.Description); description != "" {
		b.WriteString(`<div class="cf-description" id="`)
		b.WriteString(html.EscapeString(field.ID))
		b.WriteString(`-description">`)
		b.WriteString(description)
		b.WriteString(`</div>`)
	}
	if field.Invalid {
		b.WriteString(`<p class="cf-error" id="`)
		b.WriteString(html.EscapeString(field.ID))
		b.WriteString(`-error" role="alert">`)
		b.WriteString(html.EscapeString(strings.Join(field.Errors, ". ")))
		b.WriteString(`</p>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func unsupportedMarkup(field render.FieldView, reason string) string {
	var b strings.Builder
	b.WriteString(`<div class="`)
	b.WriteString(string(ClassField))
	b.WriteByte(' ')
	b.WriteString(string(ClassUnsupported))
	b.WriteString(`" role="alert" data-field="`)
	b.WriteString(html.EscapeString(field.Field.Name))
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(reason + ` (field "` + field.Field.Name + `")`))
	b.WriteString(`</div>`)
	return b.String()
}

// renderBody draws form errors, hidden inputs and the field grid.
func (r *fieldRenderer) renderBody(view render.View) string {
	var b strings.Builder
	b.WriteString(hiddenInputs(view.Hidden))
	if len(view.FormErrors) > 0 {
		b.WriteString(`<div class="`)
		b.WriteString(string(ClassErrors))
		b.WriteString(`" role="alert"><ul>`)
		for _, msg := range view.FormErrors {
			b.WriteString(`<li>`)
			b.WriteString(html.EscapeString(msg))
			b.WriteString(`</li>`)
		}
		b.WriteString(`</ul></div>`)
	}

	b.WriteString(`<div class="`)
	b.WriteString(string(ClassGrid))
	if view.Responsive {
		b.WriteString(` cf-grid--responsive`)
	}
	b.WriteString(`" style="--cf-columns: `)
	b.WriteString(strconv.Itoa(view.Columns))
	if view.Gap != "" {
		b.WriteString(`; --cf-gap: `)
		b.WriteString(html.EscapeString(view.Gap))
	}
	b.WriteString(`">`)
	for _, field := range view.Fields {
		b.WriteString(r.render(field))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func hiddenInputs(fields []render.HiddenField) string {
	var b strings.Builder
	for _, field := range fields {
		b.WriteString(`<input type="hidden" name="`)
		b.WriteString(html.EscapeString(field.Name))
		b.WriteString(`" value="`)
		b.WriteString(html.EscapeString(field.Value))
		b.WriteString(`">`)
	}
	return b.String()
}
