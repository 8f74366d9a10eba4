// Package orchestrator wires loaded form definitions to their operation
// bindings, draft storage and renderers so callers can go from a form id to
// a live provider and rendered output through a single entry point.
package orchestrator
