package vanilla

import (
	theme "github.com/goliatone/go-theme"
)

// DefaultThemeName names the built-in theme manifest.
const DefaultThemeName = "crudform"

// DefaultManifest describes the built-in look: its tokens map onto the CSS
// variables the embedded stylesheet reads, and its stylesheet is served from
// prefix (for example "/assets"). A "dark" variant is included.
func DefaultManifest(prefix string) *theme.Manifest {
	return &theme.Manifest{
		Name:    DefaultThemeName,
		Version: "1.0.0",
		Tokens: map[string]string{
			"brand":  "#2563eb",
			"danger": "#b91c1c",
			"muted":  "#6b7280",
			"border": "#d1d5db",
		},
		Assets: theme.Assets{
			Prefix: prefix,
			Files:  map[string]string{ThemeStylesheetKey: StylesheetName},
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					"brand":  "#60a5fa",
					"danger": "#f87171",
					"muted":  "#9ca3af",
					"border": "#374151",
				},
			},
		},
	}
}
