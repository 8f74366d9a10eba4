package form

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/validation"
)

// ChangeKind tells watchers what produced a change.
type ChangeKind int

const (
	// ChangeValue is a single field update through SetValue.
	ChangeValue ChangeKind = iota
	// ChangeReset replaces every value through Reset.
	ChangeReset
)

// Change is delivered to watchers after values change.
type Change struct {
	Kind   ChangeKind
	Name   string
	Values model.Values
}

// WatchFunc observes value changes. It runs outside the instance lock and
// may call back into the instance.
type WatchFunc func(Change)

// FormState mirrors the bookkeeping a renderer needs.
type FormState struct {
	Errors      map[string][]string
	Touched     []string
	DirtyFields []string
	IsDirty     bool
	IsValid     bool
	IsSubmitted bool
	SubmitCount int
}

// SetOption tunes a single SetValue call.
type SetOption func(*setOptions)

type setOptions struct {
	validate bool
	touch    bool
}

// ShouldValidate forces validation of the field regardless of mode.
func ShouldValidate() SetOption {
	return func(o *setOptions) { o.validate = true }
}

// ShouldTouch marks the field touched as if it had been blurred.
func ShouldTouch() SetOption {
	return func(o *setOptions) { o.touch = true }
}

// InstanceOption configures an Instance.
type InstanceOption func(*Instance)

// WithValidationConfig sets the validation modes.
func WithValidationConfig(cfg model.ValidationConfig) InstanceOption {
	return func(i *Instance) {
		if cfg.Mode != "" {
			i.mode = cfg.Mode
		}
		if cfg.ReValidateMode != "" {
			i.reMode = cfg.ReValidateMode
		}
	}
}

// WithFields declares the fields so server error payloads can be mapped.
func WithFields(fields []model.FieldConfig) InstanceOption {
	return func(i *Instance) {
		i.fields = append([]model.FieldConfig(nil), fields...)
	}
}

// Instance is a validated value document: values, per-field errors, touched
// and dirty tracking, and watchers. It is safe for concurrent use.
type Instance struct {
	schema model.Schema
	fields []model.FieldConfig
	mode   model.ValidationMode
	reMode model.ValidationMode

	mu          sync.Mutex
	defaults    model.Values
	baseline    model.Values
	values      model.Values
	errors      map[string][]string
	touched     map[string]struct{}
	submitCount int
	watchers    map[int]WatchFunc
	nextWatch   int
}

// NewInstance builds an instance holding a copy of defaults.
func NewInstance(schema model.Schema, defaults model.Values, opts ...InstanceOption) *Instance {
	i := &Instance{
		schema:   schema,
		mode:     model.ValidateOnSubmit,
		reMode:   model.ValidateOnChange,
		defaults: defaults.Clone(),
		errors:   map[string][]string{},
		touched:  map[string]struct{}{},
		watchers: map[int]WatchFunc{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	i.baseline = i.defaults.Clone()
	i.values = i.defaults.Clone()
	return i
}

// GetValues returns a copy of every value.
func (i *Instance) GetValues() model.Values {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.values.Clone()
}

// GetValue reads a dotted path.
func (i *Instance) GetValue(name string) (any, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	value, ok := i.values.Get(name)
	if !ok {
		return nil, false
	}
	return model.Values{"v": value}.Clone()["v"], true
}

// SetValue writes a dotted path, revalidates it when the active mode asks
// for it, and notifies watchers.
func (i *Instance) SetValue(name string, value any, opts ...SetOption) error {
	var o setOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	i.mu.Lock()
	if err := i.values.Set(name, value); err != nil {
		i.mu.Unlock()
		return err
	}
	if o.touch {
		i.touched[name] = struct{}{}
	}
	validate := o.validate || i.validatesOnChangeLocked(name)
	i.mu.Unlock()

	if validate {
		i.Trigger(context.Background(), name)
	}
	i.notify(Change{Kind: ChangeValue, Name: name})
	return nil
}

// Blur marks name touched and validates it when the mode asks for it.
func (i *Instance) Blur(name string) {
	i.mu.Lock()
	i.touched[name] = struct{}{}
	mode := i.activeModeLocked()
	i.mu.Unlock()

	switch mode {
	case model.ValidateOnBlur, model.ValidateOnTouched, model.ValidateAll:
		i.Trigger(context.Background(), name)
	}
}

// Trigger validates the named fields, or the whole document when no names
// are given, and reports whether they pass.
func (i *Instance) Trigger(ctx context.Context, names ...string) bool {
	values := i.GetValues()
	result := validation.Valid()
	if i.schema != nil {
		result = i.schema.Validate(ctx, values)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if len(names) == 0 {
		i.errors = cloneErrors(result.Errors)
		return result.Valid
	}
	scoped := validation.Only(result, names...)
	for _, name := range names {
		for key := range i.errors {
			if key == name || strings.HasPrefix(key, name+".") {
				delete(i.errors, key)
			}
		}
	}
	for key, messages := range scoped.Errors {
		i.errors[key] = append([]string(nil), messages...)
	}
	return scoped.Valid
}

// HandleSubmitAttempt counts a submit and switches to the revalidate mode.
func (i *Instance) HandleSubmitAttempt() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.submitCount++
}

// Reset replaces the values and the dirty baseline. Nil resets to the
// defaults the instance was created with. Errors, touched state and the
// submit count are cleared.
func (i *Instance) Reset(values model.Values) {
	i.mu.Lock()
	if values == nil {
		values = i.defaults
	}
	i.baseline = values.Clone()
	i.values = values.Clone()
	i.errors = map[string][]string{}
	i.touched = map[string]struct{}{}
	i.submitCount = 0
	i.mu.Unlock()

	i.notify(Change{Kind: ChangeReset})
}

// Defaults returns a copy of the initial defaults.
func (i *Instance) Defaults() model.Values {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.defaults.Clone()
}

// Errors returns a copy of the error map.
func (i *Instance) Errors() map[string][]string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return cloneErrors(i.errors)
}

// SetError replaces the messages of name.
func (i *Instance) SetError(name string, messages ...string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(messages) == 0 {
		delete(i.errors, name)
		return
	}
	i.errors[name] = append([]string(nil), messages...)
}

// ClearErrors clears the named fields, or every error when none are given.
func (i *Instance) ClearErrors(names ...string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(names) == 0 {
		i.errors = map[string][]string{}
		return
	}
	for _, name := range names {
		delete(i.errors, name)
	}
}

// ApplyErrors maps a server error payload onto the declared fields. Paths
// that match no field are stored as form level errors.
func (i *Instance) ApplyErrors(payload map[string][]string) {
	mapping := validation.MapErrorPayload(i.fields, payload)
	i.mu.Lock()
	defer i.mu.Unlock()
	for field, messages := range mapping.Fields {
		i.errors[field] = validation.MergeFormErrors(i.errors[field], messages...)
	}
	if len(mapping.Form) > 0 {
		i.errors[validation.FormKey] = validation.MergeFormErrors(i.errors[validation.FormKey], mapping.Form...)
	}
}

// Watch registers fn and returns a function removing it.
func (i *Instance) Watch(fn WatchFunc) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	i.mu.Lock()
	i.nextWatch++
	id := i.nextWatch
	i.watchers[id] = fn
	i.mu.Unlock()
	return func() {
		i.mu.Lock()
		delete(i.watchers, id)
		i.mu.Unlock()
	}
}

// FormState reports errors, touched and dirty fields.
func (i *Instance) FormState() FormState {
	i.mu.Lock()
	defer i.mu.Unlock()

	touched := make([]string, 0, len(i.touched))
	for name := range i.touched {
		touched = append(touched, name)
	}
	sort.Strings(touched)

	dirty := dirtyFields(i.baseline, i.values)
	return FormState{
		Errors:      cloneErrors(i.errors),
		Touched:     touched,
		DirtyFields: dirty,
		IsDirty:     len(dirty) > 0,
		IsValid:     len(i.errors) == 0,
		IsSubmitted: i.submitCount > 0,
		SubmitCount: i.submitCount,
	}
}

func (i *Instance) activeModeLocked() model.ValidationMode {
	if i.submitCount > 0 {
		return i.reMode
	}
	return i.mode
}

func (i *Instance) validatesOnChangeLocked(name string) bool {
	switch i.activeModeLocked() {
	case model.ValidateOnChange, model.ValidateAll:
		return true
	case model.ValidateOnTouched:
		_, touched := i.touched[name]
		return touched
	default:
		return false
	}
}

func (i *Instance) notify(change Change) {
	i.mu.Lock()
	ids := make([]int, 0, len(i.watchers))
	for id := range i.watchers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	watchers := make([]WatchFunc, 0, len(ids))
	for _, id := range ids {
		watchers = append(watchers, i.watchers[id])
	}
	change.Values = i.values.Clone()
	i.mu.Unlock()

	for _, fn := range watchers {
		fn(change)
	}
}

// dirtyFields lists dotted leaf paths where current differs from baseline,
// using a JSON merge patch between the two documents.
func dirtyFields(baseline, current model.Values) []string {
	before, errBefore := sonic.ConfigStd.Marshal(baseline)
	after, errAfter := sonic.ConfigStd.Marshal(current)
	if errBefore != nil || errAfter != nil {
		return shallowDiff(baseline, current)
	}
	patch, err := jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		return shallowDiff(baseline, current)
	}
	var doc map[string]any
	if err := sonic.ConfigStd.Unmarshal(patch, &doc); err != nil {
		return shallowDiff(baseline, current)
	}
	var out []string
	collectPatchPaths(doc, "", &out)
	sort.Strings(out)
	return out
}

func collectPatchPaths(node map[string]any, prefix string, out *[]string) {
	for key, value := range node {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok && len(nested) > 0 {
			collectPatchPaths(nested, path, out)
			continue
		}
		*out = append(*out, path)
	}
}

func shallowDiff(baseline, current model.Values) []string {
	var out []string
	seen := map[string]struct{}{}
	for key, value := range current {
		seen[key] = struct{}{}
		if !reflect.DeepEqual(baseline[key], value) {
			out = append(out, key)
		}
	}
	for key := range baseline {
		if _, ok := seen[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

func cloneErrors(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for key, messages := range in {
		out[key] = append([]string(nil), messages...)
	}
	return out
}
