package visibility

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-crudform/pkg/model"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithRuleEvaluator sets the evaluator used for VisibleIf rules. Without one,
// fields carrying a rule are reported as an error rather than guessed.
func WithRuleEvaluator(evaluator Evaluator) Option {
	return func(r *Resolver) {
		r.rules = evaluator
	}
}

// WithExtras seeds the Extras passed to the rule evaluator.
func WithExtras(extras map[string]any) Option {
	return func(r *Resolver) {
		r.extras = extras
	}
}

// Resolver evaluates field visibility. A field is shown when it is not
// Hidden and every configured check (ShowWhen, Condition, VisibleIf) passes.
// Hidden fields are rejected before any check runs.
type Resolver struct {
	rules  Evaluator
	extras map[string]any
}

// NewResolver builds a resolver.
func NewResolver(options ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Visible reports whether field should render for values.
func (r *Resolver) Visible(field model.FieldConfig, values model.Values) (bool, error) {
	if field.Hidden {
		return false, nil
	}
	if field.ShowWhen != nil && !field.ShowWhen(values) {
		return false, nil
	}
	if field.Condition != nil && !MatchCondition(*field.Condition, values) {
		return false, nil
	}
	rule := strings.TrimSpace(field.VisibleIf)
	if rule == "" {
		return true, nil
	}
	if r == nil || r.rules == nil {
		return false, fmt.Errorf("visibility: field %q has a rule but no evaluator is configured", field.Name)
	}
	ok, err := r.rules.Eval(field.Name, rule, Context{Values: values, Extras: r.extras})
	if err != nil {
		return false, fmt.Errorf("visibility: field %q: %w", field.Name, err)
	}
	return ok, nil
}

// Filter returns the visible fields in declaration order.
func (r *Resolver) Filter(fields []model.FieldConfig, values model.Values) ([]model.FieldConfig, error) {
	out := make([]model.FieldConfig, 0, len(fields))
	for _, field := range fields {
		ok, err := r.Visible(field, values)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, field)
		}
	}
	return out, nil
}
