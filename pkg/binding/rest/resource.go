package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/goliatone/go-crudform/pkg/binding"
	"github.com/goliatone/go-crudform/pkg/model"
)

// ErrMissingID is returned when an update or delete has no identifier.
var ErrMissingID = errors.New("rest: missing id")

// Resource maps CRUD operations onto a collection path:
// POST /path, PUT /path/{id}, DELETE /path/{id}, GET /path, GET /path/{id}.
type Resource struct {
	client *Client
	path   string
}

// NewResource returns a Resource rooted at path.
func NewResource(client *Client, path string) *Resource {
	return &Resource{client: client, path: path}
}

func (r *Resource) itemPath(id any) string {
	return r.path + "/" + url.PathEscape(fmt.Sprint(id))
}

// Create returns the create mutation.
func (r *Resource) Create() *binding.FuncMutation[model.Values, any] {
	return binding.NewMutation(func(ctx context.Context, values model.Values) (any, error) {
		var out any
		err := r.client.Do(ctx, http.MethodPost, r.path, nil, values, &out)
		return out, err
	})
}

// Update returns the update mutation. values must carry "id".
func (r *Resource) Update() *binding.FuncMutation[model.Values, any] {
	return binding.NewMutation(func(ctx context.Context, values model.Values) (any, error) {
		id, ok := values["id"]
		if !ok || id == nil || id == "" {
			return nil, ErrMissingID
		}
		var out any
		err := r.client.Do(ctx, http.MethodPut, r.itemPath(id), nil, values, &out)
		return out, err
	})
}

// Delete returns the delete mutation.
func (r *Resource) Delete() *binding.FuncMutation[any, any] {
	return binding.NewMutation(func(ctx context.Context, id any) (any, error) {
		if id == nil || id == "" {
			return nil, ErrMissingID
		}
		return nil, r.client.Do(ctx, http.MethodDelete, r.itemPath(id), nil, nil, nil)
	})
}

// Search returns a list query filtered by the values filters() yields at
// fetch time.
func (r *Resource) Search(filters func() model.Values) *binding.FuncQuery[[]model.Values] {
	return binding.NewQuery(func(ctx context.Context) ([]model.Values, error) {
		var out []model.Values
		var current model.Values
		if filters != nil {
			current = filters()
		}
		err := r.client.Do(ctx, http.MethodGet, r.path, encodeFilters(current), nil, &out)
		return out, err
	})
}

// GetByID returns a query loading the item id() yields at fetch time.
func (r *Resource) GetByID(id func() any) *binding.FuncQuery[model.Values] {
	return binding.NewQuery(func(ctx context.Context) (model.Values, error) {
		current := id()
		if current == nil || current == "" {
			return nil, ErrMissingID
		}
		var out model.Values
		err := r.client.Do(ctx, http.MethodGet, r.itemPath(current), nil, nil, &out)
		return out, err
	})
}

// Operations wires every binding of the resource.
func (r *Resource) Operations(filters func() model.Values, id func() any) model.Operations {
	return model.Operations{
		Create:  r.Create(),
		Update:  r.Update(),
		Delete:  r.Delete(),
		Search:  r.Search(filters),
		GetByID: r.GetByID(id),
	}
}

func encodeFilters(filters model.Values) url.Values {
	if len(filters) == 0 {
		return nil
	}
	query := url.Values{}
	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch v := filters[key].(type) {
		case nil:
		case string:
			if v != "" {
				query.Set(key, v)
			}
		case []any:
			for _, item := range v {
				query.Add(key, fmt.Sprint(item))
			}
		case []string:
			for _, item := range v {
				query.Add(key, item)
			}
		default:
			query.Set(key, fmt.Sprint(v))
		}
	}
	return query
}
