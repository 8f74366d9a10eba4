package form_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/validation"
)

func signupSchema() validation.Schema {
	return validation.Rules().
		Field("name", validation.Required()).
		Field("email", validation.Required(), validation.Email())
}

func TestInstanceSetValueAndDirtyTracking(t *testing.T) {
	inst := form.NewInstance(signupSchema(), model.Values{"name": "", "address": map[string]any{"city": ""}})

	if err := inst.SetValue("address.city", "Lisbon"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if got, _ := inst.GetValue("address.city"); got != "Lisbon" {
		t.Fatalf("unexpected value %v", got)
	}

	state := inst.FormState()
	if !state.IsDirty {
		t.Fatalf("expected dirty instance")
	}
	if diff := cmp.Diff([]string{"address.city"}, state.DirtyFields); diff != "" {
		t.Fatalf("dirty fields mismatch (-want +got):\n%s", diff)
	}

	inst.Reset(nil)
	if inst.FormState().IsDirty {
		t.Fatalf("expected clean instance after reset")
	}
	if diff := cmp.Diff(model.Values{"name": "", "address": map[string]any{"city": ""}}, inst.GetValues()); diff != "" {
		t.Fatalf("reset values mismatch (-want +got):\n%s", diff)
	}
}

func TestInstanceOnSubmitModeDefersValidation(t *testing.T) {
	inst := form.NewInstance(signupSchema(), model.Values{"name": "", "email": ""})

	_ = inst.SetValue("email", "nope")
	inst.Blur("email")
	if len(inst.Errors()) != 0 {
		t.Fatalf("expected no errors before submit, got %v", inst.Errors())
	}

	inst.HandleSubmitAttempt()
	if inst.Trigger(context.Background()) {
		t.Fatalf("expected validation failure")
	}
	if diff := cmp.Diff(map[string][]string{
		"name":  {"is required"},
		"email": {"must be a valid email address"},
	}, inst.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	// after a submit attempt the default revalidate mode is onChange
	_ = inst.SetValue("email", "a@b.com")
	if _, ok := inst.Errors()["email"]; ok {
		t.Fatalf("expected email error to clear on change")
	}
	if _, ok := inst.Errors()["name"]; !ok {
		t.Fatalf("expected name error to remain")
	}
}

func TestInstanceValidationModes(t *testing.T) {
	cases := []struct {
		mode        model.ValidationMode
		afterChange bool
		afterBlur   bool
	}{
		{model.ValidateOnChange, true, true},
		{model.ValidateOnBlur, false, true},
		{model.ValidateOnTouched, false, true},
		{model.ValidateAll, true, true},
		{model.ValidateOnSubmit, false, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			inst := form.NewInstance(signupSchema(), model.Values{"email": ""},
				form.WithValidationConfig(model.ValidationConfig{Mode: tc.mode}))

			_ = inst.SetValue("email", "bad")
			_, hasErr := inst.Errors()["email"]
			if hasErr != tc.afterChange {
				t.Fatalf("after change: got error=%v, want %v", hasErr, tc.afterChange)
			}
			inst.Blur("email")
			_, hasErr = inst.Errors()["email"]
			if hasErr != tc.afterBlur {
				t.Fatalf("after blur: got error=%v, want %v", hasErr, tc.afterBlur)
			}
		})
	}
}

func TestInstanceOnTouchedValidatesChangesAfterBlur(t *testing.T) {
	inst := form.NewInstance(signupSchema(), model.Values{"email": ""},
		form.WithValidationConfig(model.ValidationConfig{Mode: model.ValidateOnTouched}))

	inst.Blur("email")
	_ = inst.SetValue("email", "still-bad")
	if _, ok := inst.Errors()["email"]; !ok {
		t.Fatalf("expected error after change on touched field")
	}
	_ = inst.SetValue("email", "ok@example.com")
	if _, ok := inst.Errors()["email"]; ok {
		t.Fatalf("expected error to clear")
	}
}

func TestInstanceWatchAndUnsubscribe(t *testing.T) {
	inst := form.NewInstance(signupSchema(), model.Values{"name": ""})
	var changes []form.Change
	stop := inst.Watch(func(c form.Change) { changes = append(changes, c) })

	_ = inst.SetValue("name", "Ana")
	inst.Reset(model.Values{"name": "Bea"})
	stop()
	_ = inst.SetValue("name", "Cid")

	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].Kind != form.ChangeValue || changes[0].Name != "name" || changes[0].Values["name"] != "Ana" {
		t.Fatalf("unexpected first change %+v", changes[0])
	}
	if changes[1].Kind != form.ChangeReset || changes[1].Values["name"] != "Bea" {
		t.Fatalf("unexpected second change %+v", changes[1])
	}
}

func TestInstanceApplyErrorsMapsServerPaths(t *testing.T) {
	inst := form.NewInstance(signupSchema(), model.Values{}, form.WithFields([]model.FieldConfig{
		{Name: "name", Type: model.FieldTypeText},
		{Name: "email", Type: model.FieldTypeEmail},
	}))

	inst.ApplyErrors(map[string][]string{
		"/body/email": {"is taken"},
		"unknown":     {"try again later"},
	})

	want := map[string][]string{
		"email": {"is taken"},
		"":      {"try again later"},
	}
	if diff := cmp.Diff(want, inst.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	inst.SetError("name", "custom")
	inst.ClearErrors("email")
	if diff := cmp.Diff(map[string][]string{"name": {"custom"}, "": {"try again later"}}, inst.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	inst.ClearErrors()
	if !inst.FormState().IsValid {
		t.Fatalf("expected valid after clearing errors")
	}
}

func TestInstanceTouchOption(t *testing.T) {
	inst := form.NewInstance(signupSchema(), model.Values{})
	_ = inst.SetValue("name", "", form.ShouldTouch(), form.ShouldValidate())

	state := inst.FormState()
	if diff := cmp.Diff([]string{"name"}, state.Touched); diff != "" {
		t.Fatalf("touched mismatch (-want +got):\n%s", diff)
	}
	if _, ok := state.Errors["name"]; !ok {
		t.Fatalf("expected forced validation to record an error")
	}
}
