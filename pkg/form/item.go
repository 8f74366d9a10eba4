package form

import (
	"reflect"

	"github.com/goliatone/go-crudform/pkg/model"
)

// Identifiable items expose their identifier directly.
type Identifiable interface {
	GetID() any
}

// ItemID extracts the identifier of a selected item: GetID(), then an "id"
// map key, then an exported ID struct field.
func ItemID(item any) (any, bool) {
	switch v := item.(type) {
	case nil:
		return nil, false
	case Identifiable:
		id := v.GetID()
		return id, !isZeroID(id)
	case model.Values:
		id, ok := v["id"]
		return id, ok && !isZeroID(id)
	case map[string]any:
		id, ok := v["id"]
		return id, ok && !isZeroID(id)
	}

	rv := reflect.ValueOf(item)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		field := rv.FieldByName("ID")
		if !field.IsValid() || !field.CanInterface() {
			return nil, false
		}
		id := field.Interface()
		return id, !isZeroID(id)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		value := rv.MapIndex(reflect.ValueOf("id").Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil, false
		}
		id := value.Interface()
		return id, !isZeroID(id)
	}
	return nil, false
}

func isZeroID(id any) bool {
	if id == nil {
		return true
	}
	rv := reflect.ValueOf(id)
	return rv.IsZero()
}
