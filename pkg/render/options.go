package render

import (
	theme "github.com/goliatone/go-theme"
)

// RenderOptions describe per-request data that renderers can use to customise
// their output without mutating the provider.
type RenderOptions struct {
	Surface Surface
	// Action is the form submission URL. Empty omits the attribute.
	Action string
	// Method overrides the HTTP method derived from the operation. Verbs a
	// browser cannot submit are translated into POST plus a hidden _method.
	Method string
	// HiddenFields are emitted as hidden inputs (CSRF tokens, versions).
	HiddenFields map[string]string
	// Theme carries tokens and partial overrides resolved from go-theme.
	Theme *theme.RendererConfig
	// AutoSearchDelay is advertised on search forms as data-debounce, in
	// milliseconds. Zero disables auto search markup.
	AutoSearchDelay int
}
