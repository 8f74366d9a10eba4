package formdef

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/openapi"
	"github.com/goliatone/go-crudform/pkg/validation"
	"github.com/goliatone/go-crudform/pkg/validation/cueschema"
	"github.com/goliatone/go-crudform/pkg/visibility/expr"
)

// LoadDir loads every definition file below dir.
func LoadDir(ctx context.Context, dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("formdef: directory is required")
	}
	return LoadFS(ctx, os.DirFS(dir))
}

// LoadFS walks the provided filesystem and parses JSON/YAML definition
// files. OpenAPI documents referenced by a schema block are resolved against
// the same filesystem. When fsys is nil the returned store is empty.
func LoadFS(ctx context.Context, fsys fs.FS) (*Store, error) {
	store := &Store{forms: make(map[string]Definition)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(name) {
			return nil
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("formdef: read %s: %w", name, err)
		}
		doc, err := parseDocument(data, name)
		if err != nil {
			return err
		}
		// OpenAPI documents share the extensions; files without forms are
		// skipped rather than rejected.
		if len(doc.Forms) == 0 {
			return nil
		}

		for rawID, raw := range doc.Forms {
			id := strings.TrimSpace(rawID)
			if id == "" {
				return fmt.Errorf("formdef: file %s defines an empty form id", name)
			}
			if _, exists := store.forms[id]; exists {
				return fmt.Errorf("formdef: duplicate form %q (file %s)", id, name)
			}
			def, err := normaliseForm(ctx, fsys, raw, id, name)
			if err != nil {
				return err
			}
			store.forms[id] = def
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Parse decodes a single definition document held in memory. Schema blocks
// referencing OpenAPI files are rejected since there is nothing to resolve
// them against.
func Parse(ctx context.Context, data []byte, source string) ([]Definition, error) {
	doc, err := parseDocument(data, source)
	if err != nil {
		return nil, err
	}
	store := &Store{forms: make(map[string]Definition, len(doc.Forms))}
	for rawID, raw := range doc.Forms {
		def, err := normaliseForm(ctx, nil, raw, strings.TrimSpace(rawID), source)
		if err != nil {
			return nil, err
		}
		store.forms[def.ID] = def
	}
	out := make([]Definition, 0, len(store.forms))
	for _, id := range store.IDs() {
		out = append(out, store.forms[id])
	}
	return out, nil
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("formdef: file %s is empty", source)
	}

	if strings.EqualFold(path.Ext(source), ".json") {
		if err := sonic.ConfigStd.Unmarshal(data, &doc); err != nil {
			return documentFile{}, fmt.Errorf("formdef: parse %s: %w", source, err)
		}
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("formdef: parse %s: %w", source, err)
	}
	return doc, nil
}

func normaliseForm(ctx context.Context, fsys fs.FS, raw formFile, id, source string) (Definition, error) {
	if id == "" {
		return Definition{}, fmt.Errorf("formdef: file %s defines an empty form id", source)
	}
	cfg := model.FormConfig{
		ID:               id,
		Title:            strings.TrimSpace(raw.Title),
		DefaultValues:    raw.DefaultValues,
		Layout:           raw.Layout,
		Validation:       raw.Validation,
		UI:               raw.UI,
		Persistence:      raw.Persistence,
		AllowEmptyFields: raw.AllowEmptyFields,
	}
	if cfg.Layout.Columns == 0 {
		cfg.Layout.Columns = 1
	}

	schema, derived, defaults, err := resolveSchema(ctx, fsys, raw.Schema, source)
	if err != nil {
		return Definition{}, fmt.Errorf("formdef: form %q (file %s): %w", id, source, err)
	}

	cfg.Fields = make([]model.FieldConfig, 0, len(raw.Fields))
	for _, field := range raw.Fields {
		field.Name = strings.TrimSpace(field.Name)
		field.Type = model.ParseFieldType(string(field.Type))
		if err := expr.Parse(field.VisibleIf); err != nil {
			return Definition{}, fmt.Errorf("formdef: form %q field %q: visibleIf: %w", id, field.Name, err)
		}
		cfg.Fields = append(cfg.Fields, field)
	}
	if len(cfg.Fields) == 0 {
		cfg.Fields = derived
	}

	if cfg.DefaultValues == nil {
		cfg.DefaultValues = model.Values{}
	}
	cfg.DefaultValues = defaults.Merge(cfg.DefaultValues)

	if schema == nil {
		schema = validation.FromFields(cfg.Fields)
	}
	cfg.Schema = schema

	if err := cfg.Check(); err != nil {
		return Definition{}, fmt.Errorf("formdef: form %q (file %s): %w", id, source, err)
	}
	return Definition{
		ID:       id,
		Source:   source,
		Config:   cfg,
		Resource: strings.TrimSpace(raw.Resource),
	}, nil
}

// resolveSchema compiles the schema block, returning the schema with the
// fields and defaults it implies.
func resolveSchema(ctx context.Context, fsys fs.FS, raw *schemaFile, source string) (model.Schema, []model.FieldConfig, model.Values, error) {
	if raw == nil {
		return nil, nil, model.Values{}, nil
	}
	cueSource := strings.TrimSpace(raw.CUE)
	docName := strings.TrimSpace(raw.OpenAPI)
	switch {
	case cueSource != "" && docName != "":
		return nil, nil, nil, errors.New("schema: cue and openapi are mutually exclusive")

	case cueSource != "":
		schema, err := cueschema.Compile(cueSource, cueschema.WithDefinition(raw.Definition))
		if err != nil {
			return nil, nil, nil, err
		}
		fields, err := schema.Fields()
		if err != nil {
			return nil, nil, nil, err
		}
		return schema, fields, schema.Defaults(), nil

	case docName != "":
		if fsys == nil {
			return nil, nil, nil, fmt.Errorf("schema: cannot resolve openapi document %q outside a filesystem", docName)
		}
		component := strings.TrimSpace(raw.Component)
		if component == "" {
			return nil, nil, nil, errors.New("schema: openapi component is required")
		}
		location := docName
		if !path.IsAbs(location) {
			location = path.Join(path.Dir(source), docName)
		}
		doc, err := openapi.Load(ctx, openapi.SourceFromFS(location), openapi.WithFileSystem(fsys))
		if err != nil {
			return nil, nil, nil, err
		}
		component3, err := doc.ComponentSchema(component)
		if err != nil {
			return nil, nil, nil, err
		}
		return openapi.NewSchema(component3), openapi.FieldsFromSchema(component3), openapi.Defaults(component3), nil
	}
	return nil, nil, model.Values{}, nil
}

func isDefinitionFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
