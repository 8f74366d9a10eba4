package validation

import (
	"context"
	"fmt"
	"net/mail"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/visibility"
	"github.com/goliatone/go-crudform/pkg/visibility/expr"
)

// Rule checks a single value. It returns an empty string when the value
// passes. present is false when the path does not exist in the document.
type Rule func(value any, present bool) string

// Required rejects missing, nil, blank strings and empty collections.
func Required() Rule {
	return func(value any, present bool) string {
		if !present || IsEmpty(value) {
			return "is required"
		}
		return ""
	}
}

// Accepted requires a boolean true (terms checkboxes).
func Accepted() Rule {
	return func(value any, _ bool) string {
		if b, ok := value.(bool); ok && b {
			return ""
		}
		if s, ok := value.(string); ok {
			if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil && parsed {
				return ""
			}
		}
		return "must be accepted"
	}
}

// Email requires a single RFC 5322 address. Empty values pass.
func Email() Rule {
	return func(value any, _ bool) string {
		s, ok := value.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return ""
		}
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != strings.TrimSpace(s) || !strings.Contains(addr.Address, "@") {
			return "must be a valid email address"
		}
		return ""
	}
}

// MinLength requires at least n characters (or items). Empty values pass.
func MinLength(n int) Rule {
	return func(value any, _ bool) string {
		length, ok := lengthOf(value)
		if !ok || length == 0 {
			return ""
		}
		if length < n {
			return fmt.Sprintf("must be at least %d characters", n)
		}
		return ""
	}
}

// MaxLength allows at most n characters (or items).
func MaxLength(n int) Rule {
	return func(value any, _ bool) string {
		length, ok := lengthOf(value)
		if !ok {
			return ""
		}
		if length > n {
			return fmt.Sprintf("must be at most %d characters", n)
		}
		return ""
	}
}

// Pattern requires string values to match expr. Empty values pass. Invalid
// expressions always fail so misconfiguration is visible.
func Pattern(pattern string) Rule {
	re, err := regexp.Compile(pattern)
	return func(value any, _ bool) string {
		s, ok := value.(string)
		if !ok || s == "" {
			return ""
		}
		if err != nil {
			return fmt.Sprintf("has an invalid pattern: %v", err)
		}
		if !re.MatchString(s) {
			return "has an invalid format"
		}
		return ""
	}
}

// Min requires numeric values >= min. Non-numeric values fail.
func Min(min float64) Rule {
	return func(value any, _ bool) string {
		if IsEmpty(value) {
			return ""
		}
		n, ok := ToNumber(value)
		if !ok {
			return "must be a number"
		}
		if n < min {
			return "must be greater than or equal to " + formatNumber(min)
		}
		return ""
	}
}

// Max requires numeric values <= max. Non-numeric values fail.
func Max(max float64) Rule {
	return func(value any, _ bool) string {
		if IsEmpty(value) {
			return ""
		}
		n, ok := ToNumber(value)
		if !ok {
			return "must be a number"
		}
		if n > max {
			return "must be less than or equal to " + formatNumber(max)
		}
		return ""
	}
}

// Numeric requires a number or numeric string. Empty values pass.
func Numeric() Rule {
	return func(value any, _ bool) string {
		if IsEmpty(value) {
			return ""
		}
		if _, ok := ToNumber(value); !ok {
			return "must be a number"
		}
		return ""
	}
}

// OneOf restricts values (or every item of a list) to allowed. Empty values
// pass.
func OneOf(allowed ...any) Rule {
	return func(value any, _ bool) string {
		if IsEmpty(value) {
			return ""
		}
		items := []any{value}
		if list, ok := value.([]any); ok {
			items = list
		}
		for _, item := range items {
			if !containsLoose(allowed, item) {
				return fmt.Sprintf("must be one of %s", describeOptions(allowed))
			}
		}
		return ""
	}
}

// Check wraps an arbitrary predicate into a rule.
func Check(message string, fn func(value any) bool) Rule {
	return func(value any, _ bool) string {
		if fn(value) {
			return ""
		}
		return message
	}
}

type fieldRules struct {
	field model.FieldConfig
	rules []Rule
}

// RuleSet is a Schema assembled from per-field rules. When built from field
// configs, rules of fields that are not visible for the current values are
// skipped.
type RuleSet struct {
	fields   []fieldRules
	resolver *visibility.Resolver
	cross    []func(model.Values) map[string][]string
}

// Rules starts an empty rule set.
func Rules() *RuleSet {
	return &RuleSet{resolver: expr.NewResolver()}
}

// Field appends rules for a dotted path.
func (s *RuleSet) Field(name string, rules ...Rule) *RuleSet {
	return s.field(model.FieldConfig{Name: name}, rules...)
}

func (s *RuleSet) field(field model.FieldConfig, rules ...Rule) *RuleSet {
	for i := range s.fields {
		if s.fields[i].field.Name == field.Name {
			s.fields[i].rules = append(s.fields[i].rules, rules...)
			return s
		}
	}
	s.fields = append(s.fields, fieldRules{field: field, rules: rules})
	return s
}

// Refine adds a cross-field check returning errors keyed by field.
func (s *RuleSet) Refine(fn func(model.Values) map[string][]string) *RuleSet {
	if fn != nil {
		s.cross = append(s.cross, fn)
	}
	return s
}

// WithResolver swaps the visibility resolver used to skip hidden fields.
func (s *RuleSet) WithResolver(resolver *visibility.Resolver) *RuleSet {
	if resolver != nil {
		s.resolver = resolver
	}
	return s
}

// Validate implements Schema.
func (s *RuleSet) Validate(_ context.Context, values model.Values) Result {
	errs := map[string][]string{}
	for _, entry := range s.fields {
		visible, err := s.resolver.Visible(entry.field, values)
		if err != nil {
			errs[entry.field.Name] = append(errs[entry.field.Name], err.Error())
			continue
		}
		if !visible {
			continue
		}
		value, present := values.Get(entry.field.Name)
		for _, rule := range entry.rules {
			if msg := rule(value, present); msg != "" {
				errs[entry.field.Name] = appendUnique(errs[entry.field.Name], msg)
			}
		}
	}
	for _, check := range s.cross {
		for field, messages := range check(values) {
			errs[field] = appendUnique(errs[field], messages...)
		}
	}
	return Invalid(errs)
}

// FromFields derives a RuleSet from field configs: required flags, email
// format, number bounds, option membership and file-less text limits.
// Hidden fields and fields failing their visibility checks are skipped.
func FromFields(fields []model.FieldConfig) *RuleSet {
	set := Rules()
	for _, field := range fields {
		var rules []Rule
		if field.Required {
			if field.Type == model.FieldTypeCheckbox && len(field.Options) == 0 {
				rules = append(rules, Accepted())
			} else {
				rules = append(rules, Required())
			}
		}
		switch field.Type {
		case model.FieldTypeEmail:
			rules = append(rules, Email())
		case model.FieldTypeNumber:
			rules = append(rules, Numeric())
			if field.Number != nil && field.Number.Min != nil {
				rules = append(rules, Min(*field.Number.Min))
			}
			if field.Number != nil && field.Number.Max != nil {
				rules = append(rules, Max(*field.Number.Max))
			}
		case model.FieldTypeSelect, model.FieldTypeRadio, model.FieldTypeCheckbox:
			if len(field.Options) > 0 {
				allowed := make([]any, 0, len(field.Options))
				for _, option := range field.Options {
					if !option.Disabled {
						allowed = append(allowed, option.Value)
					}
				}
				rules = append(rules, OneOf(allowed...))
			}
		}
		set.field(field, rules...)
	}
	return set
}

// IsEmpty reports whether value counts as "not provided".
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// ToNumber converts numeric kinds and numeric strings to float64.
func ToNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func lengthOf(value any) (int, bool) {
	switch v := value.(type) {
	case string:
		return utf8.RuneCountInString(v), true
	case []any:
		return len(v), true
	case []string:
		return len(v), true
	default:
		return 0, false
	}
}

// containsLoose matches option values against submitted values, allowing a
// numeric option to match its string form since HTML posts strings.
func containsLoose(allowed []any, value any) bool {
	for _, candidate := range allowed {
		if visibility.StrictEqual(candidate, value) {
			return true
		}
		if fmt.Sprint(candidate) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}

func describeOptions(allowed []any) string {
	parts := make([]string, 0, len(allowed))
	for _, option := range allowed {
		parts = append(parts, fmt.Sprint(option))
	}
	return strings.Join(parts, ", ")
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
