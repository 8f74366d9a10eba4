package model_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-crudform/pkg/model"
)

var okSchema = model.SchemaFunc(func(context.Context, model.Values) model.ValidationResult {
	return model.ValidationResult{Valid: true}
})

func TestFormConfigCheck(t *testing.T) {
	valid := model.FormConfig{
		ID:            "users",
		Schema:        okSchema,
		DefaultValues: model.Values{"name": ""},
		Fields:        []model.FieldConfig{{Name: "name", Type: model.FieldTypeText}},
	}
	if err := valid.Check(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	empty := valid
	empty.Fields = nil
	err := empty.Check()
	if !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	empty.AllowEmptyFields = true
	if err := empty.Check(); err != nil {
		t.Fatalf("allowEmptyFields should pass, got %v", err)
	}

	dup := valid
	dup.Fields = append(dup.Fields, model.FieldConfig{Name: "name", Type: model.FieldTypeEmail})
	if err := dup.Check(); err == nil || !strings.Contains(err.Error(), "declared twice") {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	badOp := valid
	badOp.Fields = []model.FieldConfig{{Name: "x", Condition: &model.Condition{Field: "y", Operator: "between"}}}
	if err := badOp.Check(); err == nil || !strings.Contains(err.Error(), "between") {
		t.Fatalf("expected operator error, got %v", err)
	}
}

func TestFormConfigDefaults(t *testing.T) {
	cfg := model.FormConfig{ID: "users"}
	if cfg.Columns() != 1 {
		t.Fatalf("expected 1 column, got %d", cfg.Columns())
	}
	if cfg.PersistenceKey() != "users" {
		t.Fatalf("expected id as key, got %q", cfg.PersistenceKey())
	}
	cfg.Persistence.Key = "users-v2"
	if cfg.PersistenceKey() != "users-v2" {
		t.Fatalf("expected explicit key, got %q", cfg.PersistenceKey())
	}
	if !cfg.UI.CloseVisible() || !cfg.UI.CancelVisible() {
		t.Fatalf("close and cancel default to visible")
	}
}

func TestParseFieldType(t *testing.T) {
	cases := map[string]model.FieldType{
		"":          model.FieldTypeText,
		" Email ":   model.FieldTypeEmail,
		"integer":   model.FieldTypeNumber,
		"boolean":   model.FieldTypeCheckbox,
		"date-time": model.FieldTypeDatetime,
		"color":     model.FieldType("color"),
	}
	for in, want := range cases {
		if got := model.ParseFieldType(in); got != want {
			t.Errorf("ParseFieldType(%q) = %q, want %q", in, got, want)
		}
	}
	if model.FieldType("color").Valid() {
		t.Fatalf("color should not be valid")
	}
}
