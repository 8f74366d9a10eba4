package validation

import "strings"

// FieldPathFromPointer converts a JSON pointer ("/address/city") or CUE style
// path ("address.city") into the dotted path used as an error key. An empty
// or root pointer maps to FormKey.
func FieldPathFromPointer(pointer string) string {
	clean := strings.TrimSpace(pointer)
	clean = strings.TrimPrefix(clean, "#")
	if clean == "" || clean == "/" {
		return FormKey
	}
	if !strings.HasPrefix(clean, "/") {
		return strings.Trim(clean, ".")
	}
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		out = append(out, part)
	}
	if len(out) == 0 {
		return FormKey
	}
	return strings.Join(out, ".")
}
