package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/visibility/expr"
)

// Transformer mutates a FormConfig before decorators run. Implementations
// can relabel fields, hide them or override UI copy.
type Transformer interface {
	Transform(ctx context.Context, cfg *model.FormConfig) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, cfg *model.FormConfig) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, cfg *model.FormConfig) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, cfg)
}

// JSONPresetTransformer applies declarative overrides loaded from a JSON
// document keyed by form id:
//
//	{
//	  "users": {
//	    "title": "Customer",
//	    "ui": {"submitText": "Save customer"},
//	    "fields": {
//	      "name": {"label": "Full name", "span": 2},
//	      "notes": {"hidden": true}
//	    }
//	  }
//	}
//
// Forms without an entry pass through untouched.
type JSONPresetTransformer struct {
	document map[string]jsonFormPatch
}

type jsonFormPatch struct {
	Title  string                    `json:"title"`
	UI     jsonUIPatch               `json:"ui"`
	Fields map[string]jsonFieldPatch `json:"fields"`
}

type jsonUIPatch struct {
	SubmitText string          `json:"submitText"`
	CancelText string          `json:"cancelText"`
	ModalSize  model.ModalSize `json:"modalSize"`
}

type jsonFieldPatch struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Placeholder string `json:"placeholder"`
	VisibleIf   string `json:"visibleIf"`
	Hidden      *bool  `json:"hidden"`
	Disabled    *bool  `json:"disabled"`
	Span        int    `json:"span"`
}

// NewJSONPresetTransformer constructs a transformer from raw JSON bytes.
func NewJSONPresetTransformer(data []byte) (*JSONPresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("json preset transformer: document is empty")
	}
	var document map[string]jsonFormPatch
	if err := sonic.ConfigStd.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("json preset transformer: parse document: %w", err)
	}
	for id, patch := range document {
		for name, field := range patch.Fields {
			if err := expr.Parse(field.VisibleIf); err != nil {
				return nil, fmt.Errorf("json preset transformer: %s.%s visibleIf: %w", id, name, err)
			}
		}
	}
	return &JSONPresetTransformer{document: document}, nil
}

// NewJSONPresetTransformerFromFS loads a JSON transformer document from the
// provided filesystem path.
func NewJSONPresetTransformerFromFS(fsys fs.FS, path string) (*JSONPresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("json preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("json preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("json preset transformer: read %s: %w", path, err)
	}
	return NewJSONPresetTransformer(data)
}

// Transform applies the patches registered for cfg.ID.
func (t *JSONPresetTransformer) Transform(ctx context.Context, cfg *model.FormConfig) error {
	if cfg == nil {
		return errors.New("json preset transformer: form config is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	patch, ok := t.document[cfg.ID]
	if !ok {
		return nil
	}

	if patch.Title != "" {
		cfg.Title = patch.Title
	}
	if patch.UI.SubmitText != "" {
		cfg.UI.SubmitText = patch.UI.SubmitText
	}
	if patch.UI.CancelText != "" {
		cfg.UI.CancelText = patch.UI.CancelText
	}
	if patch.UI.ModalSize != "" {
		cfg.UI.ModalSize = patch.UI.ModalSize
	}

	names := make([]string, 0, len(patch.Fields))
	for name := range patch.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		field := findField(cfg.Fields, name)
		if field == nil {
			return fmt.Errorf("json preset transformer: field %q not found", name)
		}
		applyFieldPatch(field, patch.Fields[name])
	}
	return nil
}

func applyFieldPatch(field *model.FieldConfig, patch jsonFieldPatch) {
	if patch.Label != "" {
		field.Label = patch.Label
	}
	if patch.Description != "" {
		field.Description = patch.Description
	}
	if patch.Placeholder != "" {
		field.Placeholder = patch.Placeholder
	}
	if patch.VisibleIf != "" {
		field.VisibleIf = patch.VisibleIf
	}
	if patch.Hidden != nil {
		field.Hidden = *patch.Hidden
	}
	if patch.Disabled != nil {
		field.Disabled = *patch.Disabled
	}
	if patch.Span > 0 {
		field.Span = patch.Span
	}
}

func findField(fields []model.FieldConfig, name string) *model.FieldConfig {
	name = strings.TrimSpace(name)
	for idx := range fields {
		if fields[idx].Name == name {
			return &fields[idx]
		}
	}
	return nil
}
