package tui

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/render"
	"github.com/goliatone/go-crudform/pkg/validation"
)

// Fill drives provider from the terminal: it opens a create session when the
// provider is closed, prompts the visible fields, writes each answer into
// the form instance and submits. Rejected submits re-ask only the failing
// fields, up to the configured attempt limit. Mutation failures are
// returned wrapped with the provider's last error.
func (r *Renderer) Fill(ctx context.Context, provider *form.Provider) (form.SubmitStatus, error) {
	if provider == nil {
		return form.SubmitFailed, errors.New("tui: provider is required")
	}
	if !provider.State().IsOpen {
		provider.OpenCreate(nil)
	}
	snap := provider.Snapshot()
	if !snap.State.IsOpen {
		return form.SubmitFailed, ErrNotOpen
	}
	cfg := snap.Config
	op := snap.State.Operation

	if err := r.info(ctx, r.theme.PromptPrefix+render.Title(cfg, op)); err != nil {
		return form.SubmitFailed, err
	}

	var only map[string]struct{}
	switch op {
	case model.OperationView:
		if err := r.info(ctx, prettyPrint(snap.Values)); err != nil {
			return form.SubmitFailed, err
		}
		provider.Close()
		return form.SubmitCompleted, nil
	case model.OperationDelete:
		if err := r.confirmDelete(ctx, cfg, op); err != nil {
			return form.SubmitFailed, err
		}
		return r.submit(ctx, provider)
	}

	for attempt := 1; ; attempt++ {
		before := provider.Snapshot().Values
		values, err := r.collect(ctx, cfg, before.Clone(), only)
		if err != nil {
			return form.SubmitFailed, err
		}
		if err := applyAnswers(provider.Instance(), cfg, before, values); err != nil {
			return form.SubmitFailed, err
		}

		status, err := r.submit(ctx, provider)
		if status != form.SubmitInvalid {
			return status, err
		}

		errs := provider.Instance().Errors()
		if err := r.reportErrors(ctx, errs); err != nil {
			return form.SubmitFailed, err
		}
		if attempt >= r.maxAttempts {
			return status, nil
		}
		only = map[string]struct{}{}
		for _, name := range render.SortedErrorFields(errs) {
			only[name] = struct{}{}
		}
		if len(only) == 0 {
			// Only form level errors: nothing to re-ask.
			return status, nil
		}
	}
}

func (r *Renderer) submit(ctx context.Context, provider *form.Provider) (form.SubmitStatus, error) {
	status := provider.Submit(ctx)
	switch status {
	case form.SubmitCompleted:
		return status, r.info(ctx, r.theme.InfoPrefix+"Saved.")
	case form.SubmitFailed:
		lastErr := provider.State().LastError
		r.logger.Printf("tui: %s: submit failed: %v", provider.Config().ID, lastErr)
		if err := r.problem(ctx, fmt.Sprint(lastErr)); err != nil {
			return status, err
		}
		return status, fmt.Errorf("tui: submit: %w", lastErr)
	default:
		return status, nil
	}
}

func (r *Renderer) reportErrors(ctx context.Context, errs map[string][]string) error {
	if messages := errs[validation.FormKey]; len(messages) > 0 {
		if err := r.problem(ctx, strings.Join(messages, ", ")); err != nil {
			return err
		}
	}
	for _, name := range render.SortedErrorFields(errs) {
		if err := r.problem(ctx, fmt.Sprintf("%s: %s", name, strings.Join(errs[name], ", "))); err != nil {
			return err
		}
	}
	return nil
}

// applyAnswers writes the answered fields into the instance so watchers
// (draft autosave, auto-search) observe them like UI edits.
func applyAnswers(instance *form.Instance, cfg model.FormConfig, before, after model.Values) error {
	for _, field := range cfg.Fields {
		next, ok := after.Get(field.Name)
		prev, had := before.Get(field.Name)
		if !ok {
			if had {
				if err := instance.SetValue(field.Name, nil, form.ShouldTouch()); err != nil {
					return fmt.Errorf("tui: set %s: %w", field.Name, err)
				}
			}
			continue
		}
		if had && reflect.DeepEqual(prev, next) {
			continue
		}
		if err := instance.SetValue(field.Name, next, form.ShouldTouch()); err != nil {
			return fmt.Errorf("tui: set %s: %w", field.Name, err)
		}
	}
	return nil
}
