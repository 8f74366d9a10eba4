// Package validation provides Schema implementations for form values: a
// rule-based schema derived from field configs and helpers to compose
// schemas. Sub-packages plug in CUE (cueschema) and OpenAPI (pkg/openapi)
// backed schemas.
package validation

import (
	"context"
	"sort"
	"strings"

	"github.com/goliatone/go-crudform/pkg/model"
)

// Schema validates a value document. Aliased from model so implementations
// can live outside this package.
type Schema = model.Schema

// Result is the outcome of a validation run.
type Result = model.ValidationResult

// Func adapts a function into a Schema.
type Func = model.SchemaFunc

// FormKey keys form level messages in Result.Errors.
const FormKey = ""

// Valid returns a passing result.
func Valid() Result {
	return Result{Valid: true}
}

// Invalid builds a failing result from field errors.
func Invalid(errors map[string][]string) Result {
	if len(errors) == 0 {
		return Valid()
	}
	return Result{Valid: false, Errors: errors}
}

// Merge combines results, concatenating messages per field.
func Merge(results ...Result) Result {
	merged := map[string][]string{}
	for _, result := range results {
		for field, messages := range result.Errors {
			merged[field] = appendUnique(merged[field], messages...)
		}
	}
	if len(merged) == 0 {
		return Valid()
	}
	return Result{Valid: false, Errors: merged}
}

// All runs every schema and merges their results.
func All(schemas ...Schema) Schema {
	return Func(func(ctx context.Context, values model.Values) Result {
		results := make([]Result, 0, len(schemas))
		for _, schema := range schemas {
			if schema == nil {
				continue
			}
			results = append(results, schema.Validate(ctx, values))
		}
		return Merge(results...)
	})
}

// Only narrows a result to the given field names and their nested paths.
// Form level messages are kept only when FormKey is listed.
func Only(result Result, names ...string) Result {
	if len(names) == 0 {
		return result
	}
	keep := make(map[string]struct{}, len(names))
	for _, name := range names {
		keep[name] = struct{}{}
	}
	filtered := map[string][]string{}
	for field, messages := range result.Errors {
		if _, ok := keep[field]; ok {
			filtered[field] = messages
			continue
		}
		for name := range keep {
			if name != FormKey && strings.HasPrefix(field, name+".") {
				filtered[field] = messages
				break
			}
		}
	}
	return Invalid(filtered)
}

// Fields returns the sorted names of fields carrying errors.
func Fields(result Result) []string {
	names := make([]string, 0, len(result.Errors))
	for name := range result.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func appendUnique(dst []string, messages ...string) []string {
	for _, message := range messages {
		duplicate := false
		for _, existing := range dst {
			if existing == message {
				duplicate = true
				break
			}
		}
		if !duplicate {
			dst = append(dst, message)
		}
	}
	return dst
}
