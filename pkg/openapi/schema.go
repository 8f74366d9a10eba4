package openapi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/validation"
)

// Schema validates form values against an OpenAPI schema object.
type Schema struct {
	schema          *openapi3.Schema
	requiredMessage string
}

var _ validation.Schema = (*Schema)(nil)

// NewSchema wraps s. It panics on nil so misconfiguration fails at startup.
func NewSchema(s *openapi3.Schema) *Schema {
	if s == nil {
		panic("openapi: schema is nil")
	}
	return &Schema{schema: s, requiredMessage: "is required"}
}

// Validate implements validation.Schema. Every violation is reported.
func (s *Schema) Validate(_ context.Context, values model.Values) validation.Result {
	doc, err := normalise(values)
	if err != nil {
		return validation.Invalid(map[string][]string{
			validation.FormKey: {fmt.Sprintf("values cannot be encoded: %v", err)},
		})
	}
	err = s.schema.VisitJSON(doc, openapi3.MultiErrors())
	if err == nil {
		return validation.Valid()
	}
	out := map[string][]string{}
	s.collect(err, out)
	return validation.Invalid(out)
}

func (s *Schema) collect(err error, out map[string][]string) {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, inner := range multi {
			s.collect(inner, out)
		}
		return
	}
	var schemaErr *openapi3.SchemaError
	if !errors.As(err, &schemaErr) {
		out[validation.FormKey] = appendMessage(out[validation.FormKey], err.Error())
		return
	}
	path := validation.FieldPathFromPointer("/" + strings.Join(schemaErr.JSONPointer(), "/"))
	message := schemaErr.Reason
	if schemaErr.SchemaField == "required" {
		message = s.requiredMessage
	}
	out[path] = appendMessage(out[path], message)
}

// normalise converts values to the plain JSON shapes kin-openapi expects
// (float64 numbers, []any lists).
func normalise(values model.Values) (map[string]any, error) {
	if values == nil {
		return map[string]any{}, nil
	}
	raw, err := sonic.Marshal(values)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func appendMessage(list []string, message string) []string {
	for _, existing := range list {
		if existing == message {
			return list
		}
	}
	return append(list, message)
}
