package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Values is the form value document keyed by field name. Nested objects are
// map[string]any and lists are []any, matching what encoding/json produces.
type Values map[string]any

// Clone returns a deep copy of v. A nil receiver yields an empty map.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = deepCopy(value)
	}
	return out
}

// Merge returns a copy of v overlaid with each of the provided maps in order.
// Nested maps are merged recursively, everything else is replaced.
func (v Values) Merge(others ...Values) Values {
	out := v.Clone()
	for _, other := range others {
		for key, value := range other {
			out[key] = mergeValue(out[key], value)
		}
	}
	return out
}

// Get resolves a dotted path such as "address.city" or "tags.0". A literal
// key containing dots takes precedence over traversal.
func (v Values) Get(path string) (any, bool) {
	path = strings.TrimSpace(path)
	if v == nil || path == "" {
		return nil, false
	}
	if value, ok := v[path]; ok {
		return value, true
	}
	return getPath(map[string]any(v), path)
}

// Set writes value at a dotted path, creating intermediate maps and slices.
func (v Values) Set(path string, value any) error {
	if v == nil {
		return fmt.Errorf("model: values map is nil")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("model: path is required")
	}
	return setPath(map[string]any(v), path, value)
}

// Delete removes the value at a dotted path. Missing paths are ignored.
func (v Values) Delete(path string) {
	path = strings.TrimSpace(path)
	if v == nil || path == "" {
		return
	}
	if _, ok := v[path]; ok {
		delete(v, path)
		return
	}
	segments := strings.Split(path, ".")
	parent, ok := getPath(map[string]any(v), strings.Join(segments[:len(segments)-1], "."))
	if !ok {
		return
	}
	if node, ok := parent.(map[string]any); ok {
		delete(node, segments[len(segments)-1])
	}
}

// Without returns a copy of v with the given paths removed.
func (v Values) Without(paths ...string) Values {
	out := v.Clone()
	for _, path := range paths {
		out.Delete(path)
	}
	return out
}

// Keys returns the top-level keys sorted alphabetically.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for key := range v {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func mergeValue(dst, src any) any {
	srcMap, ok := asMap(src)
	if !ok {
		return deepCopy(src)
	}
	dstMap, ok := asMap(dst)
	if !ok {
		return deepCopy(srcMap)
	}
	out := make(map[string]any, len(dstMap)+len(srcMap))
	for key, value := range dstMap {
		out[key] = deepCopy(value)
	}
	for key, value := range srcMap {
		out[key] = mergeValue(out[key], value)
	}
	return out
}

func asMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case Values:
		return map[string]any(typed), true
	default:
		return nil, false
	}
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case Values:
		return map[string]any(typed.Clone())
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}

func getPath(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	current := any(root)
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case Values:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

func setPath(root map[string]any, path string, value any) error {
	head, rest, nested := strings.Cut(path, ".")
	if head == "" {
		return fmt.Errorf("model: empty segment in path %q", path)
	}
	if !nested {
		root[head] = value
		return nil
	}
	if isIndex(rest) {
		list, _ := root[head].([]any)
		updated, err := setIndex(list, rest, value)
		if err != nil {
			return err
		}
		root[head] = updated
		return nil
	}
	child, ok := asMap(root[head])
	if !ok {
		child = make(map[string]any)
		root[head] = child
	}
	return setPath(child, rest, value)
}

func setIndex(list []any, path string, value any) ([]any, error) {
	head, rest, nested := strings.Cut(path, ".")
	idx, err := strconv.Atoi(head)
	if err != nil || idx < 0 {
		return list, fmt.Errorf("model: invalid index %q", head)
	}
	if idx > len(list) {
		return list, fmt.Errorf("model: index %d out of range (len %d)", idx, len(list))
	}
	if idx == len(list) {
		list = append(list, nil)
	}
	if !nested {
		list[idx] = value
		return list, nil
	}
	if isIndex(rest) {
		inner, _ := list[idx].([]any)
		updated, err := setIndex(inner, rest, value)
		if err != nil {
			return list, err
		}
		list[idx] = updated
		return list, nil
	}
	child, ok := asMap(list[idx])
	if !ok {
		child = make(map[string]any)
		list[idx] = child
	}
	return list, setPath(child, rest, value)
}

// isIndex reports whether the first segment of path is a list index.
func isIndex(path string) bool {
	head, _, _ := strings.Cut(path, ".")
	idx, err := strconv.Atoi(head)
	return err == nil && idx >= 0
}
