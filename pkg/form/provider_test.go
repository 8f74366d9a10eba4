package form_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crudform/pkg/binding"
	"github.com/goliatone/go-crudform/pkg/builder"
	"github.com/goliatone/go-crudform/pkg/draft"
	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/storage"
	"github.com/goliatone/go-crudform/pkg/testsupport"
	"github.com/goliatone/go-crudform/pkg/validation"
)

var epoch = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

type recorder struct {
	mu    sync.Mutex
	calls []model.Values
	ids   []any
	err   error
}

func (r *recorder) mutation() *binding.FuncMutation[model.Values, any] {
	return binding.NewMutation(func(_ context.Context, v model.Values) (any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, v)
		return v, r.err
	})
}

func (r *recorder) deleter() *binding.FuncMutation[any, any] {
	return binding.NewMutation(func(_ context.Context, id any) (any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.ids = append(r.ids, id)
		return nil, r.err
	})
}

func (r *recorder) Calls() []model.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Values(nil), r.calls...)
}

func (r *recorder) IDs() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.ids...)
}

func userFields() []*builder.FieldBuilder {
	return []*builder.FieldBuilder{
		builder.Text("name").Required(),
		builder.Email("email").Required(),
	}
}

func userConfig(t *testing.T, rec *recorder, configure ...func(*builder.FormConfigBuilder)) model.FormConfig {
	t.Helper()
	fields := userFields()
	configs := make([]model.FieldConfig, 0, len(fields))
	for _, f := range fields {
		configs = append(configs, f.Build())
	}
	b := builder.NewForm("users").
		Schema(validation.FromFields(configs)).
		DefaultValues(model.Values{"name": "", "email": ""}).
		Field(fields...).
		Create(rec.mutation()).
		Update(rec.mutation()).
		Delete(rec.deleter())
	for _, fn := range configure {
		fn(b)
	}
	cfg, err := b.Build()
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	return cfg
}

func quietLogger() (*log.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return log.New(&buf, "", 0), &buf
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := form.New(model.FormConfig{ID: "broken"})
	if !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestProviderInitialState(t *testing.T) {
	p := form.MustNew(userConfig(t, &recorder{}))
	state := p.State()
	if state.Operation != model.OperationCreate || state.IsOpen || state.IsSubmitting {
		t.Fatalf("unexpected initial state %+v", state)
	}
	if p.Persister() != nil {
		t.Fatalf("expected no persister without persistence")
	}
}

func TestProviderCreateScenario(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	invalidations := &testsupport.InvalidationRecorder{}
	p := form.MustNew(userConfig(t, rec), form.WithInvalidator(invalidations))

	p.OpenCreate(nil)
	if err := p.Instance().SetValue("name", "Ana"); err != nil {
		t.Fatalf("set name: %v", err)
	}

	if status := p.Submit(ctx); status != form.SubmitInvalid {
		t.Fatalf("expected invalid submit, got %s", status)
	}
	if len(rec.Calls()) != 0 {
		t.Fatalf("create must not be called on invalid submit")
	}
	if !p.State().IsOpen {
		t.Fatalf("modal must stay open on invalid submit")
	}
	if diff := cmp.Diff(map[string][]string{"email": {"is required"}}, p.Snapshot().Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	_ = p.Instance().SetValue("email", "a@b.com")
	if status := p.Submit(ctx); status != form.SubmitCompleted {
		t.Fatalf("expected completed submit, got %s", status)
	}

	if diff := cmp.Diff([]model.Values{{"name": "Ana", "email": "a@b.com"}}, rec.Calls()); diff != "" {
		t.Fatalf("create payload mismatch (-want +got):\n%s", diff)
	}
	state := p.State()
	if state.IsOpen || state.IsSubmitting {
		t.Fatalf("expected closed idle modal, got %+v", state)
	}
	if diff := cmp.Diff([]string{"users"}, invalidations.Tags()); diff != "" {
		t.Fatalf("invalidations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(model.Values{"name": "", "email": ""}, p.Instance().GetValues()); diff != "" {
		t.Fatalf("values should reset after close (-want +got):\n%s", diff)
	}
}

func TestProviderOpenCreateThenCloseRestoresDefaults(t *testing.T) {
	p := form.MustNew(userConfig(t, &recorder{}))

	p.OpenCreate(model.Values{"name": "Preset"})
	if got, _ := p.Instance().GetValue("name"); got != "Preset" {
		t.Fatalf("expected initial values to merge, got %v", got)
	}
	_ = p.Instance().SetValue("email", "x@y.z")
	p.Close()

	if p.State().IsOpen {
		t.Fatalf("expected closed modal")
	}
	if diff := cmp.Diff(model.Values{"name": "", "email": ""}, p.Instance().GetValues()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

type user struct {
	ID   int
	Name string
}

func TestProviderUpdateSendsSelectedID(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	p := form.MustNew(userConfig(t, rec))

	item := user{ID: 7, Name: "Bea"}
	p.OpenUpdate(item, model.Values{"name": "Bea", "email": "bea@example.com"})

	state := p.State()
	if state.Operation != model.OperationUpdate || !state.IsOpen {
		t.Fatalf("unexpected state %+v", state)
	}
	if diff := cmp.Diff(item, state.SelectedItem); diff != "" {
		t.Fatalf("selected item mismatch (-want +got):\n%s", diff)
	}

	_ = p.Instance().SetValue("name", "Beatriz")
	if status := p.Submit(ctx); status != form.SubmitCompleted {
		t.Fatalf("expected completed, got %s", status)
	}
	want := []model.Values{{"id": 7, "name": "Beatriz", "email": "bea@example.com"}}
	if diff := cmp.Diff(want, rec.Calls()); diff != "" {
		t.Fatalf("update payload mismatch (-want +got):\n%s", diff)
	}
}

func TestProviderDeleteSkipsValidation(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	invalidations := &testsupport.InvalidationRecorder{}
	p := form.MustNew(userConfig(t, rec), form.WithInvalidator(invalidations))

	p.OpenDelete(map[string]any{"id": "u-1"})
	if status := p.Submit(ctx); status != form.SubmitCompleted {
		t.Fatalf("expected completed, got %s", status)
	}
	if diff := cmp.Diff([]any{"u-1"}, rec.IDs()); diff != "" {
		t.Fatalf("delete ids mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"users"}, invalidations.Tags()); diff != "" {
		t.Fatalf("invalidations mismatch (-want +got):\n%s", diff)
	}
}

type fieldError struct {
	fields map[string][]string
}

func (e fieldError) Error() string                    { return "unprocessable entity" }
func (e fieldError) FieldErrors() map[string][]string { return e.fields }

func TestProviderSubmitFailureKeepsModalOpen(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{err: fmt.Errorf("create user: %w", fieldError{fields: map[string][]string{
		"/email": {"is already registered"},
	}})}
	logger, logs := quietLogger()
	invalidations := &testsupport.InvalidationRecorder{}
	p := form.MustNew(userConfig(t, rec), form.WithLogger(logger), form.WithInvalidator(invalidations))

	p.OpenCreate(model.Values{"name": "Ana", "email": "ana@example.com"})
	if status := p.Submit(ctx); status != form.SubmitFailed {
		t.Fatalf("expected failed, got %s", status)
	}

	state := p.State()
	if !state.IsOpen || state.IsSubmitting {
		t.Fatalf("expected open idle modal, got %+v", state)
	}
	var fe fieldError
	if !errors.As(state.LastError, &fe) {
		t.Fatalf("expected last error to wrap fieldError, got %v", state.LastError)
	}
	if diff := cmp.Diff(map[string][]string{"email": {"is already registered"}}, p.Snapshot().Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if len(invalidations.Tags()) != 0 {
		t.Fatalf("no invalidation expected on failure")
	}
	if !strings.Contains(logs.String(), "form: users: submit create failed") {
		t.Fatalf("expected failure to be logged, got %q", logs.String())
	}

	p.OpenCreate(nil)
	if p.State().LastError != nil {
		t.Fatalf("expected last error to clear on open")
	}
}

func TestProviderRejectsConcurrentSubmit(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	create := binding.NewMutation(func(context.Context, model.Values) (any, error) {
		close(started)
		<-release
		return nil, nil
	})
	cfg := userConfig(t, &recorder{}, func(b *builder.FormConfigBuilder) { b.Create(create) })
	p := form.MustNew(cfg)
	p.OpenCreate(model.Values{"name": "Ana", "email": "a@b.com"})

	done := make(chan form.SubmitStatus, 1)
	go func() { done <- p.Submit(ctx) }()
	<-started

	if !p.State().IsSubmitting {
		t.Fatalf("expected submitting state while mutation runs")
	}
	if status := p.Submit(ctx); status != form.SubmitBusy {
		t.Fatalf("expected busy, got %s", status)
	}
	close(release)
	if status := <-done; status != form.SubmitCompleted {
		t.Fatalf("expected completed, got %s", status)
	}
	if create.Calls() != 1 {
		t.Fatalf("expected one create call, got %d", create.Calls())
	}
}

func TestProviderSearchKeepsFormOpen(t *testing.T) {
	ctx := context.Background()
	cfg := userConfig(t, &recorder{}, func(b *builder.FormConfigBuilder) {
		b.Schema(validation.Rules())
	})
	p := form.MustNew(cfg)

	p.OpenSearch(model.Values{"name": "an"})
	_ = p.Instance().SetValue("email", "example.com")
	if status := p.Submit(ctx); status != form.SubmitCompleted {
		t.Fatalf("expected completed, got %s", status)
	}
	state := p.State()
	if !state.IsOpen || state.Operation != model.OperationSearch {
		t.Fatalf("search should stay open, got %+v", state)
	}
	if diff := cmp.Diff(model.Values{"name": "an", "email": "example.com"}, state.SearchFilters); diff != "" {
		t.Fatalf("filters mismatch (-want +got):\n%s", diff)
	}
}

func TestProviderAutoSearchDebouncesFilters(t *testing.T) {
	clock := testsupport.NewFakeClock(epoch)
	cfg := userConfig(t, &recorder{}, func(b *builder.FormConfigBuilder) {
		b.Schema(validation.Rules())
	})
	p := form.MustNew(cfg, form.WithClock(clock))
	t.Cleanup(p.Dispose)
	stop := p.EnableAutoSearch(300 * time.Millisecond)
	defer stop()

	// changes outside the open search form are ignored
	_ = p.Instance().SetValue("name", "ignored")
	clock.Advance(time.Second)
	if p.State().SearchFilters != nil {
		t.Fatalf("expected no filters while search is closed")
	}

	p.OpenSearch(model.Values{"name": ""})
	_ = p.Instance().SetValue("name", "a")
	clock.Advance(200 * time.Millisecond)
	_ = p.Instance().SetValue("name", "an")
	clock.Advance(200 * time.Millisecond)
	if diff := cmp.Diff(model.Values{"name": ""}, p.State().SearchFilters); diff != "" {
		t.Fatalf("filters applied too early (-want +got):\n%s", diff)
	}
	clock.Advance(200 * time.Millisecond)
	if diff := cmp.Diff(model.Values{"name": "an"}, p.State().SearchFilters); diff != "" {
		t.Fatalf("filters mismatch (-want +got):\n%s", diff)
	}
}

func TestProviderResetAndSetSearchFilters(t *testing.T) {
	p := form.MustNew(userConfig(t, &recorder{}))

	p.OpenUpdate(map[string]any{"id": 9}, model.Values{"name": "Ana", "email": "a@b.com"})
	p.Reset(false)
	state := p.State()
	if state.SelectedItem != nil || state.CurrentData != nil || state.SearchFilters != nil {
		t.Fatalf("expected selection to be cleared, got %+v", state)
	}
	if diff := cmp.Diff(model.Values{"name": "", "email": ""}, p.Instance().GetValues()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	p.SetSearchFilters(model.Values{"name": "an"})
	if diff := cmp.Diff(model.Values{"name": "an"}, p.State().SearchFilters); diff != "" {
		t.Fatalf("filters mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(model.Values{"name": "an"}, p.Instance().GetValues()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestProviderViewSubmitInvalidatesAndCloses(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	invalidations := &testsupport.InvalidationRecorder{}
	p := form.MustNew(userConfig(t, rec), form.WithInvalidator(invalidations))

	p.OpenView(user{ID: 1})
	if status := p.Submit(ctx); status != form.SubmitCompleted {
		t.Fatalf("expected completed submit, got %s", status)
	}
	if p.State().IsOpen {
		t.Fatalf("view submit must close the modal")
	}
	if len(rec.Calls()) != 0 {
		t.Fatalf("view must not dispatch a mutation")
	}
	if diff := cmp.Diff([]string{"users"}, invalidations.Tags()); diff != "" {
		t.Fatalf("invalidations mismatch (-want +got):\n%s", diff)
	}
}

func TestProviderSubscribeReceivesTransitions(t *testing.T) {
	p := form.MustNew(userConfig(t, &recorder{}))
	var ops []model.Operation
	var open []bool
	unsubscribe := p.Subscribe(func(s form.Snapshot) {
		ops = append(ops, s.State.Operation)
		open = append(open, s.State.IsOpen)
	})

	p.OpenView(user{ID: 1})
	p.Close()
	unsubscribe()
	p.OpenCreate(nil)

	if diff := cmp.Diff([]model.Operation{model.OperationView, model.OperationView}, ops); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{true, false}, open); diff != "" {
		t.Fatalf("open flags mismatch (-want +got):\n%s", diff)
	}
}

func TestProviderOpenUpdateFetch(t *testing.T) {
	ctx := context.Background()
	getByID := binding.NewQuery(func(context.Context) (model.Values, error) {
		return model.Values{"name": "Cid", "email": "cid@example.com"}, nil
	})
	cfg := userConfig(t, &recorder{}, func(b *builder.FormConfigBuilder) { b.GetByID(getByID) })
	p := form.MustNew(cfg)

	if err := p.OpenUpdateFetch(ctx, user{ID: 3}); err != nil {
		t.Fatalf("open update fetch: %v", err)
	}
	if diff := cmp.Diff(model.Values{"name": "Cid", "email": "cid@example.com"}, p.Instance().GetValues()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	unbound := form.MustNew(userConfig(t, &recorder{}))
	if err := unbound.OpenUpdateFetch(ctx, user{ID: 3}); err == nil {
		t.Fatalf("expected error without get by id binding")
	}
}

func persistentConfig(t *testing.T) model.FormConfig {
	return userConfig(t, &recorder{}, func(b *builder.FormConfigBuilder) {
		b.DefaultValues(model.Values{"name": "", "email": "", "password": ""}).
			Field(builder.Password("password")).
			Persist("", 500, "password")
	})
}

func TestProviderDraftRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	clock := testsupport.NewFakeClock(epoch)
	logger, _ := quietLogger()

	first := form.MustNew(persistentConfig(t), form.WithStorage(store), form.WithClock(clock), form.WithLogger(logger))
	first.OpenCreate(nil)
	_ = first.Instance().SetValue("name", "Ana")
	_ = first.Instance().SetValue("password", "secret")
	clock.Advance(400 * time.Millisecond)
	if first.Snapshot().HasDraft {
		t.Fatalf("draft saved before debounce elapsed")
	}
	clock.Advance(200 * time.Millisecond)
	if !first.Snapshot().HasDraft {
		t.Fatalf("expected draft after debounce")
	}
	first.Dispose()

	var restored []draft.Record
	second := form.MustNew(persistentConfig(t),
		form.WithStorage(store),
		form.WithClock(clock),
		form.WithLogger(logger),
		form.WithOnDraftLoad(func(r draft.Record) { restored = append(restored, r) }),
	)
	t.Cleanup(second.Dispose)

	if len(restored) != 1 || restored[0].FormKey != "users" {
		t.Fatalf("expected one restored draft for users, got %+v", restored)
	}
	want := model.Values{"name": "Ana", "email": "", "password": ""}
	if diff := cmp.Diff(want, second.Instance().GetValues()); diff != "" {
		t.Fatalf("restored values mismatch (-want +got):\n%s", diff)
	}

	second.OpenCreate(second.Instance().GetValues())
	_ = second.Instance().SetValue("email", "ana@example.com")
	if status := second.Submit(ctx); status != form.SubmitCompleted {
		t.Fatalf("expected completed, got %s", status)
	}
	if _, ok, _ := store.GetItem(ctx, draft.StorageKey("users")); ok {
		t.Fatalf("expected draft removed after successful submit")
	}
	clock.Advance(time.Second)
	if _, ok, _ := store.GetItem(ctx, draft.StorageKey("users")); ok {
		t.Fatalf("close must not re-save the draft")
	}
}

func TestProviderDiscardsStaleDrafts(t *testing.T) {
	cases := map[string]string{
		"expired":   fmt.Sprintf(`{"data":{"name":"Old"},"timestamp":%d,"formKey":"users"}`, epoch.Add(-25*time.Hour).UnixMilli()),
		"foreign":   fmt.Sprintf(`{"data":{"name":"Other"},"timestamp":%d,"formKey":"accounts"}`, epoch.UnixMilli()),
		"corrupted": `{"data":`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := storage.NewMemory()
			key := draft.StorageKey("users")
			if err := store.SetItem(ctx, key, raw); err != nil {
				t.Fatalf("seed: %v", err)
			}
			logger, logs := quietLogger()
			p := form.MustNew(persistentConfig(t),
				form.WithStorage(store),
				form.WithClock(testsupport.NewFakeClock(epoch)),
				form.WithLogger(logger),
			)
			t.Cleanup(p.Dispose)

			if got, _ := p.Instance().GetValue("name"); got != "" {
				t.Fatalf("stale draft applied: name=%v", got)
			}
			if _, ok, _ := store.GetItem(ctx, key); ok {
				t.Fatalf("expected stale draft removed")
			}
			if !strings.Contains(logs.String(), "draft: discarding") {
				t.Fatalf("expected discard warning, got %q", logs.String())
			}
		})
	}
}

func TestItemID(t *testing.T) {
	cases := []struct {
		name string
		item any
		want any
		ok   bool
	}{
		{"struct", user{ID: 4}, 4, true},
		{"pointer", &user{ID: 5}, 5, true},
		{"map", map[string]any{"id": "m"}, "m", true},
		{"values", model.Values{"id": 9}, 9, true},
		{"missing", map[string]any{"name": "x"}, nil, false},
		{"nil", nil, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := form.ItemID(tc.item)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("id mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
