// Package model defines the declarative form description shared by builders,
// the form provider and renderers. A FormConfig lists ordered FieldConfig
// entries, the validation Schema used to check a Values map, presentation
// hints (Layout, UIConfig), autosave options (PersistenceConfig) and the
// Operations bindings the provider dispatches to on submit.
//
// Values are plain map[string]any documents addressed with dotted paths
// ("address.city", "tags.0"), so they round-trip through JSON drafts, HTTP
// payloads and template contexts without conversion.
package model
