// Package formdef loads form definitions from JSON or YAML files. A file
// declares one or more forms keyed by id; each form lists its fields,
// defaults, layout, UI strings and persistence settings, and optionally a
// schema written in CUE or referenced from an OpenAPI document. Forms
// without a schema validate with rules derived from their fields.
package formdef

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-crudform/pkg/model"
)

// Definition is a loaded form ready to hand to form.New once operations are
// bound.
type Definition struct {
	ID       string
	Source   string
	Config   model.FormConfig
	Resource string
}

// Store holds definitions keyed by form id.
type Store struct {
	forms map[string]Definition
}

// NewStore builds a store from definitions assembled in code. Duplicate ids
// are rejected.
func NewStore(defs ...Definition) (*Store, error) {
	store := &Store{forms: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		if _, exists := store.forms[def.ID]; exists {
			return nil, fmt.Errorf("formdef: duplicate form %q", def.ID)
		}
		store.forms[def.ID] = def
	}
	return store, nil
}

// Form returns the definition registered under id.
func (s *Store) Form(id string) (Definition, bool) {
	if s == nil {
		return Definition{}, false
	}
	def, ok := s.forms[id]
	return def, ok
}

// IDs lists the form ids alphabetically.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.forms))
	for id := range s.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Empty reports whether the store holds any forms.
func (s *Store) Empty() bool {
	return s == nil || len(s.forms) == 0
}

type documentFile struct {
	Forms map[string]formFile `json:"forms" yaml:"forms"`
}

type formFile struct {
	Title            string                  `json:"title" yaml:"title"`
	Resource         string                  `json:"resource" yaml:"resource"`
	DefaultValues    model.Values            `json:"defaultValues" yaml:"defaultValues"`
	Fields           []model.FieldConfig     `json:"fields" yaml:"fields"`
	Layout           model.Layout            `json:"layout" yaml:"layout"`
	Validation       model.ValidationConfig  `json:"validation" yaml:"validation"`
	UI               model.UIConfig          `json:"ui" yaml:"ui"`
	Persistence      model.PersistenceConfig `json:"persistence" yaml:"persistence"`
	AllowEmptyFields bool                    `json:"allowEmptyFields" yaml:"allowEmptyFields"`
	Schema           *schemaFile             `json:"schema" yaml:"schema"`
}

// schemaFile selects where validation comes from. At most one of CUE and
// OpenAPI may be set.
type schemaFile struct {
	CUE        string `json:"cue" yaml:"cue"`
	Definition string `json:"definition" yaml:"definition"`
	OpenAPI    string `json:"openapi" yaml:"openapi"`
	Component  string `json:"component" yaml:"component"`
}
