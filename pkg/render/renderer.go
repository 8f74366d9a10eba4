package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-crudform/pkg/form"
)

// Surface selects which component a renderer produces for a snapshot.
type Surface string

const (
	// SurfaceForm is the inline form with a submit button.
	SurfaceForm Surface = "form"
	// SurfaceModal wraps the form in modal chrome and renders nothing while
	// the provider is closed.
	SurfaceModal Surface = "modal"
	// SurfaceSearch is the filter form with search/clear actions.
	SurfaceSearch Surface = "search"
)

// ParseSurface normalises raw, defaulting to SurfaceForm.
func ParseSurface(raw string) (Surface, error) {
	switch Surface(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SurfaceForm:
		return SurfaceForm, nil
	case SurfaceModal:
		return SurfaceModal, nil
	case SurfaceSearch:
		return SurfaceSearch, nil
	default:
		return "", fmt.Errorf("render: unknown surface %q", raw)
	}
}

// Renderer converts a provider snapshot into a byte representation (HTML,
// terminal text, etc.).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, snapshot form.Snapshot, options RenderOptions) ([]byte, error)
}
