package formdef_test

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crudform/pkg/formdef"
	"github.com/goliatone/go-crudform/pkg/model"
)

const usersYAML = `
forms:
  users:
    title: Users
    resource: /users
    defaultValues:
      name: ""
      kind: personal
    layout:
      columns: 2
    ui:
      submitText: Save user
      modalSize: lg
    persistence:
      enabled: true
      debounceMs: 500
      excludeFields: [password]
    fields:
      - name: name
        type: text
        required: true
      - name: email
        type: Email
        required: true
      - name: kind
        type: select
        options:
          - {value: personal, label: Personal}
          - {value: business, label: Business}
      - name: company
        type: string
        visibleIf: kind == "business"
      - name: password
        type: password
`

const profileJSON = `{
  "forms": {
    "profile": {
      "schema": {
        "definition": "#Profile",
        "cue": "#Profile: {\n  name: string & != \"\"\n  role: *\"user\" | \"admin\"\n}"
      }
    }
  }
}`

const accountsAPI = `
openapi: 3.0.3
info:
  title: Accounts
  version: 1.0.0
paths: {}
components:
  schemas:
    Account:
      type: object
      required: [owner]
      properties:
        owner:
          type: string
          x-form:
            order: 1
        plan:
          type: string
          enum: [free, pro]
          default: free
`

const accountsYAML = `
forms:
  accounts:
    schema:
      openapi: accounts.yaml
      component: Account
`

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"forms/users.yaml":       {Data: []byte(usersYAML)},
		"forms/profile.json":     {Data: []byte(profileJSON)},
		"api/accounts.yaml":      {Data: []byte(accountsAPI)},
		"api/accounts.forms.yml": {Data: []byte(accountsYAML)},
		"README.md":              {Data: []byte("ignored")},
	}

	store, err := formdef.LoadFS(context.Background(), fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"accounts", "profile", "users"}, store.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	users, ok := store.Form("users")
	if !ok {
		t.Fatalf("expected users form")
	}
	if users.Resource != "/users" || users.Source != "forms/users.yaml" {
		t.Fatalf("unexpected definition metadata: %+v", users)
	}
	cfg := users.Config
	if cfg.Columns() != 2 || cfg.UI.SubmitText != "Save user" || cfg.UI.ModalSize != model.ModalSizeLarge {
		t.Fatalf("unexpected layout/ui: %+v %+v", cfg.Layout, cfg.UI)
	}
	if !cfg.Persistence.Enabled || cfg.Persistence.DebounceMs != 500 {
		t.Fatalf("unexpected persistence: %+v", cfg.Persistence)
	}
	types := map[string]model.FieldType{}
	for _, field := range cfg.Fields {
		types[field.Name] = field.Type
	}
	wantTypes := map[string]model.FieldType{
		"name":     model.FieldTypeText,
		"email":    model.FieldTypeEmail,
		"kind":     model.FieldTypeSelect,
		"company":  model.FieldTypeText,
		"password": model.FieldTypePassword,
	}
	if diff := cmp.Diff(wantTypes, types); diff != "" {
		t.Fatalf("field types mismatch (-want +got):\n%s", diff)
	}

	result := cfg.Schema.Validate(context.Background(), model.Values{"name": "", "email": "nope", "kind": "personal"})
	if result.Valid || len(result.Errors["name"]) == 0 || len(result.Errors["email"]) == 0 {
		t.Fatalf("expected derived rules to reject values, got %+v", result)
	}

	profile, _ := store.Form("profile")
	if len(profile.Config.Fields) == 0 {
		t.Fatalf("expected fields derived from cue schema")
	}
	if profile.Config.DefaultValues["role"] != "user" {
		t.Fatalf("expected cue default, got %v", profile.Config.DefaultValues)
	}
	if profile.Config.Schema.Validate(context.Background(), model.Values{"name": "Ana", "role": "admin"}).Valid != true {
		t.Fatalf("expected cue schema to accept a valid profile")
	}

	accounts, _ := store.Form("accounts")
	if diff := cmp.Diff([]string{"plan", "owner"}, accounts.Config.FieldNames()); diff != "" {
		t.Fatalf("openapi field order mismatch (-want +got):\n%s", diff)
	}
	if owner, _ := accounts.Config.Field("owner"); !owner.Required {
		t.Fatalf("expected owner to be required")
	}
	if accounts.Config.DefaultValues["plan"] != "free" {
		t.Fatalf("expected openapi default, got %v", accounts.Config.DefaultValues)
	}
}

func TestLoadFSErrors(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
		want  string
	}{
		{
			name: "duplicate id",
			files: fstest.MapFS{
				"a.yaml": {Data: []byte("forms:\n  users:\n    fields: [{name: a, type: text}]\n")},
				"b.yaml": {Data: []byte("forms:\n  users:\n    fields: [{name: b, type: text}]\n")},
			},
			want: `duplicate form "users"`,
		},
		{
			name:  "empty file",
			files: fstest.MapFS{"a.yaml": {Data: []byte("  ")}},
			want:  "is empty",
		},
		{
			name:  "bad rule",
			files: fstest.MapFS{"a.yaml": {Data: []byte("forms:\n  users:\n    fields: [{name: a, type: text, visibleIf: 'a =='}]\n")}},
			want:  "visibleIf",
		},
		{
			name:  "no fields",
			files: fstest.MapFS{"a.yaml": {Data: []byte("forms:\n  users:\n    title: Users\n")}},
			want:  "at least one field is required",
		},
		{
			name:  "conflicting schemas",
			files: fstest.MapFS{"a.yaml": {Data: []byte("forms:\n  users:\n    schema: {cue: 'a: string', openapi: x.yaml}\n")}},
			want:  "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := formdef.LoadFS(context.Background(), tt.files)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	defs, err := formdef.Parse(context.Background(), []byte(usersYAML), "inline.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(defs) != 1 || defs[0].ID != "users" {
		t.Fatalf("unexpected definitions: %+v", defs)
	}
	if _, err := formdef.Parse(context.Background(), []byte(accountsYAML), "inline.yaml"); err == nil {
		t.Fatalf("expected openapi reference to fail without a filesystem")
	}
}

func TestNilFilesystem(t *testing.T) {
	store, err := formdef.LoadFS(context.Background(), nil)
	if err != nil || !store.Empty() {
		t.Fatalf("expected empty store, got %v, %v", store, err)
	}
}
