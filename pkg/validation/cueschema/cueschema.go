// Package cueschema validates form values against a CUE definition and
// derives field configs from the same definition.
package cueschema

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/bytedance/sonic"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/validation"
)

// Option customises a Schema.
type Option func(*Schema)

// WithDefinition selects the value to validate against, e.g. "#User". The
// root value is used when unset.
func WithDefinition(path string) Option {
	return func(s *Schema) {
		s.definition = strings.TrimSpace(path)
	}
}

// WithRequiredMessage overrides the message used for missing concrete values.
func WithRequiredMessage(message string) Option {
	return func(s *Schema) {
		if strings.TrimSpace(message) != "" {
			s.requiredMessage = message
		}
	}
}

// Schema is a validation.Schema backed by a compiled CUE value. A cue.Context
// is not safe for concurrent use, so evaluation is serialised.
type Schema struct {
	mu              sync.Mutex
	ctx             *cue.Context
	value           cue.Value
	definition      string
	requiredMessage string
}

var _ validation.Schema = (*Schema)(nil)

// Compile parses source and resolves the configured definition.
func Compile(source string, opts ...Option) (*Schema, error) {
	s := &Schema{
		ctx:             cuecontext.New(),
		requiredMessage: "is required",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	root := s.ctx.CompileString(source, cue.Filename("schema.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("cueschema: compile: %w", err)
	}
	s.value = root
	if s.definition != "" {
		s.value = root.LookupPath(cue.ParsePath(s.definition))
		if err := s.value.Err(); err != nil {
			return nil, fmt.Errorf("cueschema: lookup %s: %w", s.definition, err)
		}
	}
	return s, nil
}

// MustCompile panics when Compile fails.
func MustCompile(source string, opts ...Option) *Schema {
	s, err := Compile(source, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate unifies values with the schema and reports every conflict keyed by
// the dotted field path.
func (s *Schema) Validate(_ context.Context, values model.Values) validation.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if values == nil {
		values = model.Values{}
	}
	raw, err := sonic.Marshal(values)
	if err != nil {
		return validation.Invalid(map[string][]string{
			validation.FormKey: {fmt.Sprintf("values cannot be encoded: %v", err)},
		})
	}
	// JSON is valid CUE, and compiling it keeps whole numbers as ints.
	data := s.ctx.CompileBytes(raw, cue.Filename("values.json"))
	if err := data.Err(); err != nil {
		return validation.Invalid(map[string][]string{
			validation.FormKey: {fmt.Sprintf("values cannot be compiled: %v", err)},
		})
	}

	unified := s.value.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		errs := s.collect(err)
		// CUE drops incomplete errors once a conflict is found.
		s.missing(s.value, "", values, errs)
		return validation.Invalid(errs)
	}
	return validation.Valid()
}

// missing records every required field of v absent from values that has no
// default to fall back on.
func (s *Schema) missing(v cue.Value, prefix string, values model.Values, out map[string][]string) {
	iter, err := v.Fields()
	if err != nil {
		return
	}
	for iter.Next() {
		path := prefix + iter.Selector().String()
		field := iter.Value()
		present, ok := values.Get(path)
		if !ok {
			if !hasDefault(field) && !contains(out[path], s.requiredMessage) {
				out[path] = append(out[path], s.requiredMessage)
			}
			continue
		}
		if field.IncompleteKind() != cue.StructKind {
			continue
		}
		switch present.(type) {
		case map[string]any, model.Values:
			s.missing(field, path+".", values, out)
		}
	}
}

func (s *Schema) collect(err error) map[string][]string {
	out := map[string][]string{}
	for _, e := range cueerrors.Errors(err) {
		segments := e.Path()
		for len(segments) > 0 && strings.HasPrefix(segments[0], "#") {
			segments = segments[1:]
		}
		path := strings.Join(segments, ".")
		format, args := e.Msg()
		message := fmt.Sprintf(format, args...)
		if strings.HasPrefix(message, "incomplete value") {
			message = s.requiredMessage
		}
		if !contains(out[path], message) {
			out[path] = append(out[path], message)
		}
	}
	return out
}

func contains(list []string, needle string) bool {
	for _, item := range list {
		if item == needle {
			return true
		}
	}
	return false
}
