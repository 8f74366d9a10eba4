package orchestrator_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/formdef"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/orchestrator"
	"github.com/goliatone/go-crudform/pkg/render"
	"github.com/goliatone/go-crudform/pkg/testsupport"
)

const definitions = `
forms:
  users:
    title: User
    resource: /people
    defaultValues:
      name: ""
      kind: personal
    fields:
      - name: name
        type: text
        required: true
      - name: kind
        type: select
        options:
          - {value: personal, label: Personal}
          - {value: business, label: Business}
`

func loadDefinitions(t *testing.T) *formdef.Store {
	t.Helper()
	defs, err := formdef.Parse(context.Background(), []byte(definitions), "users.yaml")
	if err != nil {
		t.Fatalf("parse definitions: %v", err)
	}
	store, err := formdef.NewStore(defs...)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return store
}

func newOrchestrator(t *testing.T, opts ...orchestrator.Option) (*orchestrator.Orchestrator, *orchestrator.Repository) {
	t.Helper()
	repo := orchestrator.NewRepository()
	base := []orchestrator.Option{
		orchestrator.WithDefinitions(loadDefinitions(t)),
		orchestrator.WithBindings(orchestrator.MemoryBindings(repo)),
	}
	o := orchestrator.New(append(base, opts...)...)
	t.Cleanup(o.Dispose)
	return o, repo
}

func mustProvider(t *testing.T, o *orchestrator.Orchestrator) *form.Provider {
	t.Helper()
	provider, err := o.Provider(context.Background(), "users")
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	return provider
}

func TestProviderIsSharedPerForm(t *testing.T) {
	o, _ := newOrchestrator(t)
	first := mustProvider(t, o)
	second := mustProvider(t, o)
	if first != second {
		t.Fatalf("expected the shared provider to be reused")
	}

	own, err := o.NewProvider(context.Background(), "users")
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	defer own.Dispose()
	if own == first {
		t.Fatalf("expected NewProvider to build a fresh provider")
	}
}

func TestUnknownForm(t *testing.T) {
	o, _ := newOrchestrator(t)
	if _, err := o.Provider(context.Background(), "nope"); !errors.Is(err, orchestrator.ErrUnknownForm) {
		t.Fatalf("expected ErrUnknownForm, got %v", err)
	}
	if _, _, err := o.Render(context.Background(), orchestrator.Request{}); err == nil {
		t.Fatalf("expected missing form id to fail")
	}
}

func TestMemoryBindingsCRUD(t *testing.T) {
	ctx := testsupport.Context()
	o, repo := newOrchestrator(t)
	provider := mustProvider(t, o)

	provider.OpenCreate(nil)
	if err := provider.Instance().SetValue("name", "Ana"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if status := provider.Submit(ctx); status != form.SubmitCompleted {
		t.Fatalf("create: unexpected status %s", status)
	}

	items, err := repo.List(ctx, "people", nil)
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one stored item, got %v (%v)", items, err)
	}
	created := items[0]
	if _, err := uuid.Parse(created["id"].(string)); err != nil {
		t.Fatalf("expected uuid id, got %v", created["id"])
	}

	provider.OpenUpdate(created, created)
	if err := provider.Instance().SetValue("kind", "business"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if status := provider.Submit(ctx); status != form.SubmitCompleted {
		t.Fatalf("update: unexpected status %s", status)
	}
	updated, err := repo.Get(ctx, "people", created["id"])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := model.Values{"id": created["id"], "name": "Ana", "kind": "business"}
	if diff := cmp.Diff(want, updated); diff != "" {
		t.Fatalf("updated item mismatch (-want +got):\n%s", diff)
	}

	provider.OpenSearch(model.Values{"name": "an"})
	if status := provider.Submit(ctx); status != form.SubmitCompleted {
		t.Fatalf("search: unexpected status %s", status)
	}
	search := provider.Config().Operations.Search
	if err := search.Refetch(ctx); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if got := len(search.Data()); got != 1 {
		t.Fatalf("expected search to match one item, got %d", got)
	}

	provider.OpenDelete(updated)
	if status := provider.Submit(ctx); status != form.SubmitCompleted {
		t.Fatalf("delete: unexpected status %s", status)
	}
	if _, err := repo.Get(ctx, "people", created["id"]); !errors.Is(err, orchestrator.ErrItemNotFound) {
		t.Fatalf("expected item to be gone, got %v", err)
	}
}

func TestOpenUpdateFetchUsesRepository(t *testing.T) {
	ctx := testsupport.Context()
	o, repo := newOrchestrator(t)
	stored, err := repo.Create(ctx, "people", model.Values{"name": "Bo", "kind": "personal"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	provider := mustProvider(t, o)

	if err := provider.OpenUpdateFetch(ctx, model.Values{"id": stored["id"]}); err != nil {
		t.Fatalf("open update: %v", err)
	}
	if got, _ := provider.Instance().GetValue("name"); got != "Bo" {
		t.Fatalf("expected fetched name, got %v", got)
	}
}

func TestRenderUsesDefaultRenderer(t *testing.T) {
	o, _ := newOrchestrator(t)

	out, contentType, err := o.Render(context.Background(), orchestrator.Request{
		FormID:        "users",
		RenderOptions: render.RenderOptions{Action: "/forms/users"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if contentType != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", contentType)
	}
	if !strings.Contains(string(out), `id="cf-users"`) || !strings.Contains(string(out), `action="/forms/users"`) {
		t.Fatalf("unexpected output:\n%s", out)
	}

	if _, _, err := o.Render(context.Background(), orchestrator.Request{FormID: "users", Renderer: "pdf"}); err == nil {
		t.Fatalf("expected unknown renderer to fail")
	}
}

func TestTransformerAndDecorators(t *testing.T) {
	preset, err := orchestrator.NewJSONPresetTransformer([]byte(`{
		"users": {
			"title": "Customer",
			"ui": {"submitText": "Save customer"},
			"fields": {"name": {"label": "Full name", "span": 2}}
		}
	}`))
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	var seen []string
	o, _ := newOrchestrator(t,
		orchestrator.WithTransformer(preset),
		orchestrator.WithDecorators(model.DecoratorFunc(func(cfg *model.FormConfig) error {
			seen = append(seen, cfg.Title)
			return nil
		})),
	)

	cfg, err := o.Config(context.Background(), "users")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	name, _ := cfg.Field("name")
	if name.Label != "Full name" || name.Span != 2 || cfg.UI.SubmitText != "Save customer" {
		t.Fatalf("preset not applied: %+v %+v", name, cfg.UI)
	}
	if diff := cmp.Diff([]string{"Customer"}, seen); diff != "" {
		t.Fatalf("decorator calls mismatch (-want +got):\n%s", diff)
	}

	def, _ := o.Definition("users")
	if original, _ := def.Config.Field("name"); original.Label == "Full name" {
		t.Fatalf("expected the stored definition to stay untouched")
	}
}

func TestDecoratorErrorsAreWrapped(t *testing.T) {
	o, _ := newOrchestrator(t, orchestrator.WithDecorators(model.DecoratorFunc(func(*model.FormConfig) error {
		return errors.New("boom")
	})))
	_, err := o.Provider(context.Background(), "users")
	if err == nil || !strings.Contains(err.Error(), `orchestrator: decorate form "users": boom`) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestJSONPresetTransformerErrors(t *testing.T) {
	if _, err := orchestrator.NewJSONPresetTransformer([]byte(" ")); err == nil {
		t.Fatalf("expected empty document to fail")
	}
	if _, err := orchestrator.NewJSONPresetTransformer([]byte(`{"users": {"fields": {"a": {"visibleIf": "a =="}}}}`)); err == nil {
		t.Fatalf("expected invalid rule to fail")
	}

	preset, err := orchestrator.NewJSONPresetTransformer([]byte(`{"users": {"fields": {"missing": {"label": "X"}}}}`))
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	cfg := model.FormConfig{ID: "users", Fields: []model.FieldConfig{{Name: "name"}}}
	if err := preset.Transform(context.Background(), &cfg); err == nil || !strings.Contains(err.Error(), `field "missing" not found`) {
		t.Fatalf("unexpected error %v", err)
	}
	other := model.FormConfig{ID: "orders"}
	if err := preset.Transform(context.Background(), &other); err != nil {
		t.Fatalf("expected forms without patches to pass, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := testsupport.Context()
	o, repo := newOrchestrator(t)
	stored, err := repo.Create(ctx, "people", model.Values{"name": "Cy", "kind": "business"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := stored["id"].(string)
	provider := mustProvider(t, o)

	if err := orchestrator.Open(ctx, provider, model.OperationUpdate, "", nil); !errors.Is(err, orchestrator.ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
	if err := orchestrator.Open(ctx, provider, model.Operation("archive"), id, nil); err == nil {
		t.Fatalf("expected unknown operation to fail")
	}

	if err := orchestrator.Open(ctx, provider, model.OperationView, id, nil); err != nil {
		t.Fatalf("open view: %v", err)
	}
	state := provider.State()
	if state.Operation != model.OperationView || !state.IsOpen {
		t.Fatalf("unexpected state %+v", state)
	}
	if got, _ := provider.Instance().GetValue("name"); got != "Cy" {
		t.Fatalf("expected view to load the item, got %v", got)
	}

	if err := orchestrator.Open(ctx, provider, model.OperationSearch, "", model.Values{"kind": "business"}); err != nil {
		t.Fatalf("open search: %v", err)
	}
	if diff := cmp.Diff(model.Values{"kind": "business"}, provider.State().SearchFilters); diff != "" {
		t.Fatalf("filters mismatch (-want +got):\n%s", diff)
	}
}
