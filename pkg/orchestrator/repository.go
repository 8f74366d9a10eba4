package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-crudform/pkg/model"
)

// ErrItemNotFound is returned for ids the repository does not hold.
var ErrItemNotFound = errors.New("orchestrator: item not found")

// Repository is an in-memory item store keyed by resource name. Items get a
// UUID "id" on create. It backs forms when no API is configured.
type Repository struct {
	mu    sync.RWMutex
	items map[string]map[string]model.Values
	order map[string][]string
	newID func() string
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{
		items: make(map[string]map[string]model.Values),
		order: make(map[string][]string),
		newID: uuid.NewString,
	}
}

// Create stores a copy of values under a fresh id and returns it.
func (r *Repository) Create(ctx context.Context, resource string, values model.Values) (model.Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item := values.Clone()
	id := r.newID()
	item["id"] = id

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items[resource] == nil {
		r.items[resource] = make(map[string]model.Values)
	}
	r.items[resource][id] = item
	r.order[resource] = append(r.order[resource], id)
	return item.Clone(), nil
}

// Update replaces the item named by values["id"].
func (r *Repository) Update(ctx context.Context, resource string, values model.Values) (model.Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := idString(values["id"])

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[resource][id]; !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrItemNotFound, resource, id)
	}
	item := values.Clone()
	item["id"] = id
	r.items[resource][id] = item
	return item.Clone(), nil
}

// Delete removes the item with id.
func (r *Repository) Delete(ctx context.Context, resource string, id any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := idString(id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[resource][key]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrItemNotFound, resource, key)
	}
	delete(r.items[resource], key)
	order := r.order[resource]
	for i, existing := range order {
		if existing == key {
			r.order[resource] = append(order[:i:i], order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a copy of the item with id.
func (r *Repository) Get(ctx context.Context, resource string, id any) (model.Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := idString(id)

	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[resource][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrItemNotFound, resource, key)
	}
	return item.Clone(), nil
}

// List returns items in insertion order that match every non-empty filter.
// String filters match case-insensitive substrings; anything else compares
// by its printed form.
func (r *Repository) List(ctx context.Context, resource string, filters model.Values) ([]model.Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Values, 0, len(r.order[resource]))
	for _, id := range r.order[resource] {
		item := r.items[resource][id]
		if matches(item, filters) {
			out = append(out, item.Clone())
		}
	}
	return out, nil
}

// Resources lists resource names holding at least one item.
func (r *Repository) Resources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for name, items := range r.items {
		if len(items) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func matches(item, filters model.Values) bool {
	for key, want := range filters {
		wanted := strings.TrimSpace(fmt.Sprint(want))
		if want == nil || wanted == "" {
			continue
		}
		got, ok := item.Get(key)
		if !ok {
			return false
		}
		if _, isString := want.(string); isString {
			if !strings.Contains(strings.ToLower(fmt.Sprint(got)), strings.ToLower(wanted)) {
				return false
			}
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func idString(id any) string {
	if id == nil {
		return ""
	}
	return fmt.Sprint(id)
}
