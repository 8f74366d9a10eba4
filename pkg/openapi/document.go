package openapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ErrNotFound is returned when an operation or component does not exist.
var ErrNotFound = errors.New("openapi: not found")

// Document wraps a parsed OpenAPI document and its origin.
type Document struct {
	source Source
	spec   *openapi3.T
}

// Location returns the origin identifier, if any.
func (d *Document) Location() string {
	if d == nil || d.source == nil {
		return ""
	}
	return d.source.Location()
}

// Spec exposes the underlying kin-openapi document.
func (d *Document) Spec() *openapi3.T {
	return d.spec
}

// Operation is the form relevant subset of an OpenAPI operation.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Description string
	RequestBody *openapi3.Schema
}

// Operations lists operations sorted by id. Operations without an
// operationId get "method:path".
func (d *Document) Operations() []Operation {
	if d == nil || d.spec == nil || d.spec.Paths == nil {
		return nil
	}
	var out []Operation
	for path, item := range d.spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			out = append(out, Operation{
				ID:          id,
				Method:      strings.ToUpper(method),
				Path:        path,
				Summary:     op.Summary,
				Description: op.Description,
				RequestBody: requestSchema(op.RequestBody),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Operation looks up an operation by id.
func (d *Document) Operation(id string) (Operation, error) {
	for _, op := range d.Operations() {
		if op.ID == id {
			return op, nil
		}
	}
	return Operation{}, fmt.Errorf("%w: operation %q", ErrNotFound, id)
}

// RequestSchema returns the JSON request body schema of an operation.
func (d *Document) RequestSchema(operationID string) (*openapi3.Schema, error) {
	op, err := d.Operation(operationID)
	if err != nil {
		return nil, err
	}
	if op.RequestBody == nil {
		return nil, fmt.Errorf("%w: operation %q has no JSON request body", ErrNotFound, operationID)
	}
	return op.RequestBody, nil
}

// ComponentSchema returns components.schemas[name].
func (d *Document) ComponentSchema(name string) (*openapi3.Schema, error) {
	if d == nil || d.spec == nil || d.spec.Components == nil {
		return nil, fmt.Errorf("%w: schema %q", ErrNotFound, name)
	}
	ref, ok := d.spec.Components.Schemas[name]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("%w: schema %q", ErrNotFound, name)
	}
	return ref.Value, nil
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	media := body.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil {
		return nil
	}
	return media.Schema.Value
}
