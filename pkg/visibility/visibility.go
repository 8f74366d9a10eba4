// Package visibility decides whether a field is shown for the current form
// values. Declarative conditions and ShowWhen predicates are evaluated here;
// textual VisibleIf rules are delegated to an Evaluator (see the expr
// subpackage).
package visibility

import "github.com/goliatone/go-crudform/pkg/model"

// Evaluator determines whether a field should be visible based on a rule
// string and the current values.
type Evaluator interface {
	Eval(fieldPath, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values are the current form
// values while Extras lets callers inject arbitrary context such as user
// roles or feature flags.
type Context struct {
	Values model.Values
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldPath, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	return fn(fieldPath, rule, ctx)
}
