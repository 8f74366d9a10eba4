package openapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/openapi"
	"github.com/goliatone/go-crudform/pkg/validation"
)

const usersAPI = `
openapi: 3.0.3
info:
  title: Users
  version: 1.0.0
paths:
  /users:
    post:
      operationId: createUser
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/User'
      responses:
        '201':
          description: created
    get:
      responses:
        '200':
          description: list
components:
  schemas:
    User:
      type: object
      required: [name, email]
      properties:
        id:
          type: string
          readOnly: true
        name:
          type: string
          minLength: 2
          x-form:
            order: 1
            placeholder: Full name
        email:
          type: string
          format: email
          x-form:
            order: 2
        age:
          type: integer
          minimum: 18
        role:
          type: string
          enum: [admin, user]
          default: user
        bio:
          type: string
          maxLength: 2000
        active:
          type: boolean
`

func loadUsers(t *testing.T) *openapi.Document {
	t.Helper()
	doc, err := openapi.Parse(context.Background(), []byte(usersAPI), openapi.SourceFromFile("users.yaml"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestOperationsAreSortedAndNamed(t *testing.T) {
	doc := loadUsers(t)
	var ids []string
	for _, op := range doc.Operations() {
		ids = append(ids, op.ID)
	}
	if diff := cmp.Diff([]string{"createUser", "get:/users"}, ids); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}
	if _, err := doc.RequestSchema("get:/users"); !errors.Is(err, openapi.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFieldsFromSchema(t *testing.T) {
	doc := loadUsers(t)
	schema, err := doc.RequestSchema("createUser")
	if err != nil {
		t.Fatalf("request schema: %v", err)
	}

	fields := openapi.FieldsFromSchema(schema)
	var names []string
	byName := map[string]model.FieldConfig{}
	for _, field := range fields {
		names = append(names, field.Name)
		byName[field.Name] = field
	}
	if diff := cmp.Diff([]string{"active", "age", "bio", "role", "name", "email"}, names); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
	if f := byName["email"]; f.Type != model.FieldTypeEmail || !f.Required {
		t.Fatalf("unexpected email field %+v", f)
	}
	if f := byName["name"]; f.Placeholder != "Full name" || !f.Required {
		t.Fatalf("unexpected name field %+v", f)
	}
	if f := byName["age"]; f.Type != model.FieldTypeNumber || f.Number == nil || *f.Number.Min != 18 {
		t.Fatalf("unexpected age field %+v", f)
	}
	if f := byName["role"]; f.Type != model.FieldTypeSelect || len(f.Options) != 2 {
		t.Fatalf("unexpected role field %+v", f)
	}
	if byName["bio"].Type != model.FieldTypeTextarea {
		t.Fatalf("expected textarea bio, got %+v", byName["bio"])
	}
	if byName["active"].Type != model.FieldTypeCheckbox {
		t.Fatalf("expected checkbox active, got %+v", byName["active"])
	}
	if diff := cmp.Diff(model.Values{"role": "user"}, openapi.Defaults(schema)); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaValidate(t *testing.T) {
	doc := loadUsers(t)
	raw, err := doc.ComponentSchema("User")
	if err != nil {
		t.Fatalf("component: %v", err)
	}
	schema := openapi.NewSchema(raw)

	result := schema.Validate(context.Background(), model.Values{"name": "A", "age": 12, "role": "root"})
	if result.Valid {
		t.Fatalf("expected invalid result")
	}
	if diff := cmp.Diff([]string{"age", "email", "name", "role"}, validation.Fields(result)); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"is required"}, result.Errors["email"]); diff != "" {
		t.Fatalf("email mismatch (-want +got):\n%s", diff)
	}

	ok := schema.Validate(context.Background(), model.Values{"name": "Ana", "email": "ana@example.com", "age": 30})
	if !ok.Valid {
		t.Fatalf("expected valid, got %v", ok.Errors)
	}
}

func TestLoadFromFSAndHTTP(t *testing.T) {
	files := fstest.MapFS{"specs/users.yaml": {Data: []byte(usersAPI)}}
	doc, err := openapi.Load(context.Background(), openapi.SourceFromFS("specs/users.yaml"), openapi.WithFileSystem(files))
	if err != nil {
		t.Fatalf("load fs: %v", err)
	}
	if doc.Location() != "specs/users.yaml" {
		t.Fatalf("unexpected location %q", doc.Location())
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(usersAPI))
	}))
	defer server.Close()

	src, err := openapi.SourceFor(server.URL + "/openapi.yaml")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if _, err := openapi.Load(context.Background(), src); err == nil {
		t.Fatalf("expected http to be disabled by default")
	}
	if _, err := openapi.Load(context.Background(), src, openapi.WithHTTPClient(server.Client())); err != nil {
		t.Fatalf("load http: %v", err)
	}
}
