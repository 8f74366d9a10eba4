package model

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// FieldType enumerates the input widgets a field can render as.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypePassword FieldType = "password"
	FieldTypeNumber   FieldType = "number"
	FieldTypeTel      FieldType = "tel"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeDate     FieldType = "date"
	FieldTypeDatetime FieldType = "datetime"
	FieldTypeFile     FieldType = "file"
	FieldTypeHidden   FieldType = "hidden"
)

var fieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeEmail,
	FieldTypePassword,
	FieldTypeNumber,
	FieldTypeTel,
	FieldTypeTextarea,
	FieldTypeSelect,
	FieldTypeCheckbox,
	FieldTypeRadio,
	FieldTypeDate,
	FieldTypeDatetime,
	FieldTypeFile,
	FieldTypeHidden,
}

// FieldTypes returns every supported field type in declaration order.
func FieldTypes() []FieldType {
	out := make([]FieldType, len(fieldTypes))
	copy(out, fieldTypes)
	return out
}

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	for _, known := range fieldTypes {
		if t == known {
			return true
		}
	}
	return false
}

// HasOptions reports whether the type renders a list of choices.
func (t FieldType) HasOptions() bool {
	switch t {
	case FieldTypeSelect, FieldTypeRadio, FieldTypeCheckbox:
		return true
	default:
		return false
	}
}

// ParseFieldType normalises raw (case, surrounding whitespace and a few
// common aliases) into a FieldType. Unknown values are returned verbatim so
// renderers can flag them instead of silently falling back to text.
func ParseFieldType(raw string) FieldType {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case "":
		return FieldTypeText
	case "string":
		return FieldTypeText
	case "integer", "float", "decimal":
		return FieldTypeNumber
	case "boolean", "bool":
		return FieldTypeCheckbox
	case "date-time", "datetime-local":
		return FieldTypeDatetime
	case "phone":
		return FieldTypeTel
	}
	return FieldType(normalized)
}

// Operator names the comparison used by a declarative Condition.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorIncludes    Operator = "includes"
	OperatorNotIncludes Operator = "not_includes"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
)

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case OperatorEquals, OperatorNotEquals, OperatorIncludes, OperatorNotIncludes,
		OperatorGreaterThan, OperatorLessThan:
		return true
	default:
		return false
	}
}

// Condition shows a field only when the value at Field compares to Value
// using Operator. An empty operator behaves like equals.
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Value    any      `json:"value" yaml:"value"`
	Operator Operator `json:"operator,omitempty" yaml:"operator,omitempty"`
}

// Option is one choice of a select, radio or checkbox group.
type Option struct {
	Value    any    `json:"value" yaml:"value"`
	Label    string `json:"label" yaml:"label"`
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// NumberConstraints bound numeric inputs. Nil pointers mean unbounded.
type NumberConstraints struct {
	Min  *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max  *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Step *float64 `json:"step,omitempty" yaml:"step,omitempty"`
}

// FileConstraints describe accepted uploads. MaxSize is in bytes.
type FileConstraints struct {
	Accept   string `json:"accept,omitempty" yaml:"accept,omitempty"`
	Multiple bool   `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	MaxSize  int64  `json:"maxSize,omitempty" yaml:"maxSize,omitempty"`
}

// FieldConfig describes one input of a form.
type FieldConfig struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Disabled    bool      `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Hidden      bool      `json:"hidden,omitempty" yaml:"hidden,omitempty"`

	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	// ShowWhen is evaluated against the full value map. It cannot be
	// serialised; definition files use VisibleIf instead.
	ShowWhen func(Values) bool `json:"-" yaml:"-"`
	// VisibleIf is a textual rule such as `kind == "x" && enabled`.
	VisibleIf string `json:"visibleIf,omitempty" yaml:"visibleIf,omitempty"`

	Options []Option           `json:"options,omitempty" yaml:"options,omitempty"`
	Number  *NumberConstraints `json:"number,omitempty" yaml:"number,omitempty"`
	File    *FileConstraints   `json:"file,omitempty" yaml:"file,omitempty"`

	// Span is the number of grid columns the field occupies (0 means 1).
	Span int `json:"span,omitempty" yaml:"span,omitempty"`
}

// DisplayLabel returns Label or a humanised form of Name.
func (f FieldConfig) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return Humanize(f.Name)
}

// Humanize turns a dotted/snake/camel identifier into a title cased label.
func Humanize(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" {
		return ""
	}

	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case i > 0 && r >= 'A' && r <= 'Z' && runes[i-1] >= 'a' && runes[i-1] <= 'z':
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()

	for i, word := range words {
		lower := strings.ToLower(word)
		if i == 0 {
			first, size := utf8.DecodeRuneInString(lower)
			words[i] = string(unicode.ToUpper(first)) + lower[size:]
			continue
		}
		words[i] = lower
	}
	return strings.Join(words, " ")
}
