package tui

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/render"
)

func (r *Renderer) serialize(values model.Values) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	default:
		out, err := sonic.ConfigStd.Marshal(map[string]any(values))
		if err != nil {
			return nil, fmt.Errorf("tui: encode values: %w", err)
		}
		return out, nil
	}
}

func flattenForm(values model.Values) string {
	flattened := url.Values{}
	flatten("", map[string]any(values), flattened)
	return flattened.Encode()
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			flatten(next, val, out)
		}
	case []any:
		for _, val := range v {
			out.Add(prefix+"[]", render.FormatValue(val))
		}
	default:
		out.Set(prefix, render.FormatValue(v))
	}
}

func prettyPrint(values model.Values) string {
	var lines []string
	writePretty(&lines, "", map[string]any(values))
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func writePretty(lines *[]string, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			writePretty(lines, next, val)
		}
	case []any:
		for idx, val := range v {
			writePretty(lines, fmt.Sprintf("%s[%d]", prefix, idx), val)
		}
	default:
		if prefix != "" {
			*lines = append(*lines, prefix+"="+render.FormatValue(v))
		}
	}
}
