package orchestrator

import (
	"context"
	"strings"

	"github.com/goliatone/go-crudform/pkg/binding"
	"github.com/goliatone/go-crudform/pkg/binding/rest"
	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/formdef"
	"github.com/goliatone/go-crudform/pkg/model"
)

// BindingFactory produces the operations for a definition. state reports
// the provider's current state once it exists, so search and get-by-id
// bindings can read filters and the selected item at fetch time.
type BindingFactory interface {
	Operations(def formdef.Definition, state func() form.State) model.Operations
}

// BindingFunc adapts a function into a BindingFactory.
type BindingFunc func(def formdef.Definition, state func() form.State) model.Operations

// Operations calls the underlying function.
func (fn BindingFunc) Operations(def formdef.Definition, state func() form.State) model.Operations {
	if fn == nil {
		return model.Operations{}
	}
	return fn(def, state)
}

// RESTBindings maps every definition onto a REST collection rooted at its
// resource path (or "/<id>" when none is declared).
func RESTBindings(client *rest.Client) BindingFactory {
	return BindingFunc(func(def formdef.Definition, state func() form.State) model.Operations {
		resource := rest.NewResource(client, "/"+ResourceName(def))
		return resource.Operations(searchFilters(state), selectedID(state))
	})
}

// MemoryBindings stores every definition's items in repo.
func MemoryBindings(repo *Repository) BindingFactory {
	return BindingFunc(func(def formdef.Definition, state func() form.State) model.Operations {
		name := ResourceName(def)
		filters := searchFilters(state)
		selected := selectedID(state)
		return model.Operations{
			Create: binding.NewMutation(func(ctx context.Context, values model.Values) (any, error) {
				return repo.Create(ctx, name, values)
			}),
			Update: binding.NewMutation(func(ctx context.Context, values model.Values) (any, error) {
				return repo.Update(ctx, name, values)
			}),
			Delete: binding.NewMutation(func(ctx context.Context, id any) (any, error) {
				return nil, repo.Delete(ctx, name, id)
			}),
			Search: binding.NewQuery(func(ctx context.Context) ([]model.Values, error) {
				return repo.List(ctx, name, filters())
			}),
			GetByID: binding.NewQuery(func(ctx context.Context) (model.Values, error) {
				return repo.Get(ctx, name, selected())
			}),
		}
	})
}

// ResourceName returns the collection name for def without surrounding
// slashes.
func ResourceName(def formdef.Definition) string {
	if name := strings.Trim(strings.TrimSpace(def.Resource), "/"); name != "" {
		return name
	}
	return def.ID
}

func searchFilters(state func() form.State) func() model.Values {
	return func() model.Values {
		return state().SearchFilters
	}
}

func selectedID(state func() form.State) func() any {
	return func() any {
		id, _ := form.ItemID(state().SelectedItem)
		return id
	}
}
