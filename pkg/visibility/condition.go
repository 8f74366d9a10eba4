package visibility

import (
	"reflect"
	"strings"

	"github.com/goliatone/go-crudform/pkg/model"
)

// MatchCondition evaluates a declarative condition against values. Equality
// is strict: numbers compare by value across numeric kinds, everything else
// must share the dynamic type. A missing value only equals a nil Value.
func MatchCondition(cond model.Condition, values model.Values) bool {
	actual, _ := values.Get(cond.Field)

	switch cond.Operator {
	case model.OperatorEquals, "":
		return StrictEqual(actual, cond.Value)
	case model.OperatorNotEquals:
		return !StrictEqual(actual, cond.Value)
	case model.OperatorIncludes:
		return includes(actual, cond.Value)
	case model.OperatorNotIncludes:
		return !includes(actual, cond.Value)
	case model.OperatorGreaterThan:
		a, okA := number(actual)
		b, okB := number(cond.Value)
		return okA && okB && a > b
	case model.OperatorLessThan:
		a, okA := number(actual)
		b, okB := number(cond.Value)
		return okA && okB && a < b
	default:
		return false
	}
}

// StrictEqual compares two values without cross-type coercion (other than
// between numeric kinds).
func StrictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func includes(container, needle any) bool {
	switch typed := container.(type) {
	case nil:
		return false
	case string:
		s, ok := needle.(string)
		return ok && strings.Contains(typed, s)
	case []any:
		for _, item := range typed {
			if StrictEqual(item, needle) {
				return true
			}
		}
		return false
	case []string:
		s, ok := needle.(string)
		if !ok {
			return false
		}
		for _, item := range typed {
			if item == s {
				return true
			}
		}
		return false
	}

	rv := reflect.ValueOf(container)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			if StrictEqual(rv.Index(i).Interface(), needle) {
				return true
			}
		}
	}
	return false
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
