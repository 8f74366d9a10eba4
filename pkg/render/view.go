package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/validation"
	"github.com/goliatone/go-crudform/pkg/visibility"
	"github.com/goliatone/go-crudform/pkg/visibility/expr"
)

// FieldView is a visible field with the state needed to draw it.
type FieldView struct {
	Field model.FieldConfig
	// ID is the DOM id of the control, unique within the form.
	ID          string
	Label       string
	Value       any
	Text        string
	Errors      []string
	Span        int
	Disabled    bool
	Invalid     bool
	Touched     bool
	Dirty       bool
	HasOptions  bool
	OptionViews []OptionView
}

// OptionView is one choice of a select, radio or checkbox group.
type OptionView struct {
	ID       string
	Value    string
	Label    string
	Selected bool
	Disabled bool
}

// View is the surface-independent projection of a snapshot that every
// renderer draws from.
type View struct {
	FormID       string
	Title        string
	Surface      Surface
	Operation    model.Operation
	IsOpen       bool
	IsSubmitting bool
	HasDraft     bool
	Columns      int
	Gap          string
	Responsive   bool
	Fields       []FieldView
	FormErrors   []string
	SubmitText   string
	CancelText   string
	ShowClose    bool
	ShowCancel   bool
	ModalSize    model.ModalSize
	Action       string
	Method       string
	Hidden       []HiddenField
	LastError    string
	// ReadOnly is set for view and delete surfaces where inputs are shown
	// without being editable.
	ReadOnly        bool
	ConfirmDelete   bool
	AutoSearch      bool
	AutoSearchDelay int
}

// ViewOption tunes BuildView.
type ViewOption func(*viewConfig)

type viewConfig struct {
	resolver *visibility.Resolver
}

// WithResolver swaps the visibility resolver, for example to supply extras
// to textual rules.
func WithResolver(resolver *visibility.Resolver) ViewOption {
	return func(cfg *viewConfig) {
		if resolver != nil {
			cfg.resolver = resolver
		}
	}
}

// BuildView resolves visibility, values, errors and copy for a snapshot.
// Fields whose visibility rule fails to evaluate are reported as a field
// error instead of failing the render.
func BuildView(snap form.Snapshot, opts RenderOptions, options ...ViewOption) View {
	cfg := viewConfig{resolver: expr.NewResolver()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	conf := snap.Config
	state := snap.State
	surface := opts.Surface
	if surface == "" {
		surface = SurfaceForm
	}
	op := state.Operation
	if surface == SurfaceSearch {
		op = model.OperationSearch
	}

	method := opts.Method
	if method == "" {
		method = MethodFor(op)
	}
	formMethod, override := FormMethod(method)
	hidden := opts.HiddenFields
	if override != "" {
		hidden = MergeHiddenFields(hidden, Hidden(MethodOverrideField, override))
	}

	view := View{
		FormID:       conf.ID,
		Title:        Title(conf, op),
		Surface:      surface,
		Operation:    op,
		IsOpen:       state.IsOpen,
		IsSubmitting: state.IsSubmitting,
		HasDraft:     snap.HasDraft,
		Columns:      conf.Columns(),
		Gap:          conf.Layout.Gap,
		Responsive:   conf.Layout.Responsive,
		SubmitText:   SubmitText(conf.UI, op),
		CancelText:   CancelText(conf.UI, surface),
		ShowClose:    conf.UI.CloseVisible(),
		ShowCancel:   conf.UI.CancelVisible(),
		ModalSize:    conf.UI.ModalSize,
		Action:       opts.Action,
		Method:       formMethod,
		Hidden:       SortedHiddenFields(hidden),
		ReadOnly:     op == model.OperationView || op == model.OperationDelete,
		// Delete confirmations only render the chrome, never the inputs.
		ConfirmDelete: op == model.OperationDelete && surface == SurfaceModal,
	}
	if view.ModalSize == "" {
		view.ModalSize = model.ModalSizeMedium
	}
	if surface == SurfaceSearch && opts.AutoSearchDelay > 0 {
		view.AutoSearch = true
		view.AutoSearchDelay = opts.AutoSearchDelay
	}
	if state.LastError != nil {
		view.LastError = state.LastError.Error()
	}

	errs := snap.FormState.Errors
	view.FormErrors = append(view.FormErrors, errs[validation.FormKey]...)
	touched := toSet(snap.FormState.Touched)
	dirty := toSet(snap.FormState.DirtyFields)

	for _, field := range conf.Fields {
		visible, err := cfg.resolver.Visible(field, snap.Values)
		if err != nil {
			view.FormErrors = append(view.FormErrors, err.Error())
			continue
		}
		if !visible {
			continue
		}
		value, _ := snap.Values.Get(field.Name)
		fv := FieldView{
			Field:      field,
			ID:         ControlID(conf.ID, field.Name),
			Label:      field.DisplayLabel(),
			Value:      value,
			Text:       FormatValue(value),
			Errors:     append([]string(nil), errs[field.Name]...),
			Span:       clampSpan(field.Span, view.Columns),
			Disabled:   field.Disabled || state.IsSubmitting || view.ReadOnly,
			Touched:    hasKey(touched, field.Name),
			Dirty:      hasKey(dirty, field.Name),
			HasOptions: field.Type.HasOptions() && len(field.Options) > 0,
		}
		fv.Invalid = len(fv.Errors) > 0
		for i, option := range field.Options {
			text := FormatValue(option.Value)
			fv.OptionViews = append(fv.OptionViews, OptionView{
				ID:       fv.ID + "-" + strconv.Itoa(i),
				Value:    text,
				Label:    optionLabel(option, text),
				Selected: Selected(value, option.Value),
				Disabled: option.Disabled || fv.Disabled,
			})
		}
		view.Fields = append(view.Fields, fv)
	}
	return view
}

// Title returns the configured title, suffixed by the operation verb for
// non-create surfaces: "Users" becomes "Edit Users" for updates.
func Title(cfg model.FormConfig, op model.Operation) string {
	base := strings.TrimSpace(cfg.Title)
	if base == "" {
		base = model.Humanize(cfg.ID)
	}
	switch op {
	case model.OperationCreate:
		return "New " + base
	case model.OperationUpdate:
		return "Edit " + base
	case model.OperationDelete:
		return "Delete " + base
	case model.OperationSearch:
		return "Search " + base
	default:
		return base
	}
}

// SubmitText picks the configured label or a verb for op.
func SubmitText(ui model.UIConfig, op model.Operation) string {
	if text := strings.TrimSpace(ui.SubmitText); text != "" && op != model.OperationDelete && op != model.OperationSearch {
		return text
	}
	switch op {
	case model.OperationUpdate:
		return "Save"
	case model.OperationDelete:
		return "Delete"
	case model.OperationSearch:
		return "Search"
	case model.OperationView:
		return "Close"
	default:
		return "Create"
	}
}

// CancelText picks the configured label or the surface default.
func CancelText(ui model.UIConfig, surface Surface) string {
	if surface == SurfaceSearch {
		return "Clear"
	}
	if text := strings.TrimSpace(ui.CancelText); text != "" {
		return text
	}
	return "Cancel"
}

// ControlID derives a DOM id from the form id and a dotted field path.
func ControlID(formID, name string) string {
	replacer := strings.NewReplacer(".", "-", " ", "-", "[", "-", "]", "")
	id := "cf-" + replacer.Replace(strings.TrimSpace(formID))
	if name = strings.TrimSpace(name); name != "" {
		id += "-" + replacer.Replace(name)
	}
	return id
}

// FormatValue renders a value the way an input's value attribute expects.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(v, ",")
	default:
		return fmt.Sprint(v)
	}
}

// Selected reports whether option is the current value, or one of them for
// multi-value fields.
func Selected(current, option any) bool {
	want := FormatValue(option)
	switch v := current.(type) {
	case []any:
		for _, item := range v {
			if FormatValue(item) == want {
				return true
			}
		}
		return false
	case []string:
		for _, item := range v {
			if item == want {
				return true
			}
		}
		return false
	case nil:
		return false
	default:
		return FormatValue(v) == want
	}
}

// Checked reports whether a single checkbox value is on.
func Checked(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.EqualFold(trimmed, "on") {
			return true
		}
		parsed, err := strconv.ParseBool(trimmed)
		return err == nil && parsed
	default:
		return false
	}
}

func optionLabel(option model.Option, fallback string) string {
	if label := strings.TrimSpace(option.Label); label != "" {
		return label
	}
	return fallback
}

func clampSpan(span, columns int) int {
	if span < 1 {
		return 1
	}
	if span > columns {
		return columns
	}
	return span
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		out[item] = struct{}{}
	}
	return out
}

func hasKey(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// SortedErrorFields lists the field names carrying errors, form errors
// excluded.
func SortedErrorFields(errs map[string][]string) []string {
	names := make([]string, 0, len(errs))
	for name := range errs {
		if name != validation.FormKey {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
