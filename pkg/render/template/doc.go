// Package template defines the template engine seam renderers draw chrome
// through. The pongo sub-package provides the default engine.
package template
