package builder_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-crudform/pkg/binding"
	"github.com/goliatone/go-crudform/pkg/builder"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/validation"
)

var acceptAll = validation.Func(func(context.Context, model.Values) validation.Result {
	return validation.Valid()
})

func TestFieldBuilderProducesConfig(t *testing.T) {
	got := builder.Number("age").
		Label("Age").
		Placeholder("18+").
		Required().
		Min(18).
		Max(120).
		Step(1).
		Condition("kind", "adult", model.OperatorEquals).
		Span(2).
		Build()

	min, max, step := 18.0, 120.0, 1.0
	want := model.FieldConfig{
		Name:        "age",
		Type:        model.FieldTypeNumber,
		Label:       "Age",
		Placeholder: "18+",
		Required:    true,
		Number:      &model.NumberConstraints{Min: &min, Max: &max, Step: &step},
		Condition:   &model.Condition{Field: "kind", Value: "adult", Operator: model.OperatorEquals},
		Span:        2,
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(model.FieldConfig{}, "ShowWhen")); diff != "" {
		t.Fatalf("field mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldBuilderBuildReturnsIndependentCopies(t *testing.T) {
	b := builder.Select("role").Option("admin", "Admin").Min(1)
	first := b.Build()
	first.Options[0].Label = "changed"
	*first.Number.Min = 99

	second := b.Build()
	if second.Options[0].Label != "Admin" || *second.Number.Min != 1 {
		t.Fatalf("build leaked shared state: %+v", second)
	}
}

func TestFormBuilderCollectsMissingInputs(t *testing.T) {
	_, err := builder.NewForm("users").Build()
	for _, want := range []error{builder.ErrMissingSchema, builder.ErrMissingDefaults, builder.ErrNoFields} {
		if !errors.Is(err, want) {
			t.Errorf("expected %v in %v", want, err)
		}
	}

	_, err = builder.NewForm("users").Schema(acceptAll).DefaultValues(model.Values{}).Build()
	if !errors.Is(err, builder.ErrNoFields) {
		t.Fatalf("expected ErrNoFields, got %v", err)
	}

	cfg, err := builder.NewForm("ping").Schema(acceptAll).DefaultValues(model.Values{}).AllowEmptyFields().Build()
	if err != nil || !cfg.AllowEmptyFields {
		t.Fatalf("expected empty form to build, got %v", err)
	}
}

func TestFormBuilderRejectsStructuralErrors(t *testing.T) {
	_, err := builder.NewForm("users").
		Schema(acceptAll).
		DefaultValues(model.Values{}).
		Field(builder.Text("name"), builder.Text("name")).
		Build()
	if !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestFormBuilderAssemblesConfig(t *testing.T) {
	create := binding.NewMutation(func(_ context.Context, v model.Values) (any, error) { return v, nil })
	defaults := model.Values{"name": "", "role": "user"}

	cfg := builder.NewForm("users").
		Title("User").
		Schema(acceptAll).
		DefaultValues(defaults).
		Field(builder.Text("name").Required()).
		Fields(model.FieldConfig{Name: "role", Type: model.FieldTypeSelect}).
		Create(create).
		Columns(2).
		ValidationMode(model.ValidateOnBlur, model.ValidateOnChange).
		SubmitText("Save").
		ModalSize(model.ModalSizeLarge).
		Persist("", 500, "password").
		MustBuild()

	defaults["name"] = "mutated"
	if cfg.DefaultValues["name"] != "" {
		t.Fatalf("defaults should be copied, got %v", cfg.DefaultValues)
	}
	if diff := cmp.Diff([]string{"name", "role"}, cfg.FieldNames()); diff != "" {
		t.Fatalf("field names mismatch (-want +got):\n%s", diff)
	}
	if cfg.Operations.Create == nil || cfg.Operations.Update != nil {
		t.Fatalf("unexpected operations %+v", cfg.Operations)
	}
	if cfg.Columns() != 2 || cfg.UI.SubmitText != "Save" || cfg.UI.ModalSize != model.ModalSizeLarge {
		t.Fatalf("unexpected presentation %+v %+v", cfg.Layout, cfg.UI)
	}
	if cfg.Validation.Mode != model.ValidateOnBlur || cfg.Validation.ReValidateMode != model.ValidateOnChange {
		t.Fatalf("unexpected validation %+v", cfg.Validation)
	}
	if !cfg.Persistence.Enabled || cfg.PersistenceKey() != "users" {
		t.Fatalf("unexpected persistence %+v", cfg.Persistence)
	}
}

func TestDecoratorsRunBeforeInvariants(t *testing.T) {
	addEmail := model.DecoratorFunc(func(cfg *model.FormConfig) error {
		cfg.Fields = append(cfg.Fields, builder.Email("email").Build())
		return nil
	})
	cfg, err := builder.NewForm("signup").Schema(acceptAll).DefaultValues(model.Values{}).Decorate(addEmail).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if diff := cmp.Diff([]string{"email"}, cfg.FieldNames()); diff != "" {
		t.Fatalf("field names mismatch (-want +got):\n%s", diff)
	}

	boom := errors.New("boom")
	_, err = builder.NewForm("signup").Schema(acceptAll).DefaultValues(model.Values{}).
		Decorate(model.DecoratorFunc(func(*model.FormConfig) error { return boom })).Build()
	if !errors.Is(err, boom) {
		t.Fatalf("expected decorator error, got %v", err)
	}
}

func TestCreateForm(t *testing.T) {
	cfg, err := builder.CreateForm("users", acceptAll, model.Values{"name": ""}, builder.Text("name"))
	if err != nil {
		t.Fatalf("create form: %v", err)
	}
	if cfg.ID != "users" || len(cfg.Fields) != 1 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
