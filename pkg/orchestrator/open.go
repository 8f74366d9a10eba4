package orchestrator

import (
	"context"
	"errors"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/model"
)

// ErrMissingID is returned when an operation that targets an item has no id.
var ErrMissingID = errors.New("orchestrator: id is required")

// Open moves provider into op. Update and view load the item with id
// through the get-by-id binding; delete only selects it. Search replaces
// the values with filters.
func Open(ctx context.Context, provider *form.Provider, op model.Operation, id string, filters model.Values) error {
	switch op {
	case model.OperationCreate:
		provider.OpenCreate(nil)
	case model.OperationSearch:
		provider.OpenSearch(filters)
	case model.OperationUpdate, model.OperationView, model.OperationDelete:
		if id == "" {
			return ErrMissingID
		}
		item := model.Values{"id": id}
		if op == model.OperationDelete {
			provider.OpenDelete(item)
			return nil
		}
		if err := provider.OpenUpdateFetch(ctx, item); err != nil {
			return err
		}
		if op == model.OperationView {
			provider.OpenView(item)
		}
	default:
		return errors.New("orchestrator: unknown operation " + string(op))
	}
	return nil
}
