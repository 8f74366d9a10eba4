package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-crudform/pkg/draft"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/storage"
	"github.com/goliatone/go-crudform/pkg/timer"
)

// State is the CRUD state of a provider.
type State struct {
	Operation     model.Operation
	IsOpen        bool
	IsSubmitting  bool
	SelectedItem  any
	SearchFilters model.Values
	CurrentData   model.Values
	// LastError holds the most recent mutation failure, cleared on open and
	// on successful submit.
	LastError error
}

func (s State) clone() State {
	out := s
	if s.SearchFilters != nil {
		out.SearchFilters = s.SearchFilters.Clone()
	}
	if s.CurrentData != nil {
		out.CurrentData = s.CurrentData.Clone()
	}
	return out
}

// SubmitStatus is the outcome of Submit.
type SubmitStatus int

const (
	// SubmitCompleted means the operation ran (or had nothing to run).
	SubmitCompleted SubmitStatus = iota
	// SubmitInvalid means validation failed and nothing was dispatched.
	SubmitInvalid
	// SubmitFailed means the bound mutation returned an error.
	SubmitFailed
	// SubmitBusy means another submit is in flight.
	SubmitBusy
)

func (s SubmitStatus) String() string {
	switch s {
	case SubmitCompleted:
		return "completed"
	case SubmitInvalid:
		return "invalid"
	case SubmitFailed:
		return "failed"
	case SubmitBusy:
		return "busy"
	default:
		return fmt.Sprintf("SubmitStatus(%d)", int(s))
	}
}

// Snapshot is an immutable view of a provider for renderers.
type Snapshot struct {
	Config    model.FormConfig
	State     State
	Values    model.Values
	FormState FormState
	HasDraft  bool
}

// Errors returns the field errors of the snapshot.
func (s Snapshot) Errors() map[string][]string {
	return s.FormState.Errors
}

// Provider owns the CRUD state machine of one form and its validated
// instance. It is safe for concurrent use.
type Provider struct {
	cfg       model.FormConfig
	instance  *Instance
	opts      providerOptions
	persister *draft.Persister

	mu        sync.Mutex
	state     State
	inflight  bool
	listeners map[int]func(Snapshot)
	nextID    int
	search    *timer.Debouncer
	stopWatch []func()
	disposed  bool
}

// New validates cfg and builds a provider in the initial state
// {Operation: create, IsOpen: false}. When persistence is enabled a stored
// draft is restored immediately.
func New(cfg model.FormConfig, opts ...Option) (*Provider, error) {
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("form: %w", err)
	}
	resolved := defaultProviderOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&resolved)
		}
	}

	p := &Provider{
		cfg:  cfg,
		opts: resolved,
		instance: NewInstance(cfg.Schema, cfg.DefaultValues,
			WithValidationConfig(cfg.Validation),
			WithFields(cfg.Fields),
		),
		state:     State{Operation: model.OperationCreate},
		listeners: map[int]func(Snapshot){},
	}

	if cfg.Persistence.Enabled {
		store := resolved.store
		if store == nil {
			store = storage.NewMemory()
		}
		draftOpts := append([]draft.Option{
			draft.WithClock(resolved.clock),
			draft.WithLogger(resolved.logger),
		}, resolved.draftOpts...)
		p.persister = draft.NewPersister(store, cfg.Persistence, cfg.ID, draftOpts...)
		p.restoreDraft()
		p.stopWatch = append(p.stopWatch, p.instance.Watch(func(change Change) {
			if change.Kind == ChangeValue {
				p.persister.Schedule(change.Values)
			}
		}))
	}
	return p, nil
}

// MustNew panics when New fails.
func MustNew(cfg model.FormConfig, opts ...Option) *Provider {
	p, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Provider) restoreDraft() {
	record, ok := p.persister.Load(context.Background())
	if !ok {
		return
	}
	if p.opts.onDraftLoad != nil {
		p.opts.onDraftLoad(record)
	}
	p.instance.Reset(p.cfg.DefaultValues.Merge(record.Data))
}

// Config returns the form config.
func (p *Provider) Config() model.FormConfig {
	return p.cfg
}

// Instance returns the validated form instance.
func (p *Provider) Instance() *Instance {
	return p.instance
}

// Persister returns the draft persister, nil when persistence is disabled.
func (p *Provider) Persister() *draft.Persister {
	return p.persister
}

// State returns a copy of the CRUD state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.clone()
}

// Snapshot captures config, state, values and form state together.
func (p *Provider) Snapshot() Snapshot {
	snap := Snapshot{
		Config:    p.cfg,
		State:     p.State(),
		Values:    p.instance.GetValues(),
		FormState: p.instance.FormState(),
	}
	if p.persister != nil {
		snap.HasDraft = p.persister.HasDraft(context.Background())
	}
	return snap
}

// Subscribe registers fn for state transitions and returns a function
// removing it. fn runs outside the provider lock.
func (p *Provider) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *Provider) emit() {
	p.mu.Lock()
	if len(p.listeners) == 0 {
		p.mu.Unlock()
		return
	}
	listeners := make([]func(Snapshot), 0, len(p.listeners))
	for id := 1; id <= p.nextID; id++ {
		if fn, ok := p.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	p.mu.Unlock()

	snap := p.Snapshot()
	for _, fn := range listeners {
		fn(snap)
	}
}

func (p *Provider) transition(fn func(s *State)) {
	p.mu.Lock()
	fn(&p.state)
	p.mu.Unlock()
	p.emit()
}

// OpenCreate opens the create modal with defaults merged with initial.
func (p *Provider) OpenCreate(initial model.Values) {
	p.instance.Reset(p.cfg.DefaultValues.Merge(initial))
	p.transition(func(s *State) {
		s.Operation = model.OperationCreate
		s.IsOpen = true
		s.SelectedItem = nil
		s.LastError = nil
	})
}

// OpenUpdate opens the update modal for item with defaults merged with data.
func (p *Provider) OpenUpdate(item any, data model.Values) {
	p.instance.Reset(p.cfg.DefaultValues.Merge(data))
	p.transition(func(s *State) {
		s.Operation = model.OperationUpdate
		s.IsOpen = true
		s.SelectedItem = item
		s.CurrentData = data.Clone()
		s.LastError = nil
	})
}

// OpenUpdateFetch selects item, refetches the GetByID binding and opens the
// update modal with the loaded data.
func (p *Provider) OpenUpdateFetch(ctx context.Context, item any) error {
	query := p.cfg.Operations.GetByID
	if query == nil {
		return fmt.Errorf("form: %s: get by id is not bound", p.cfg.ID)
	}
	p.mu.Lock()
	p.state.SelectedItem = item
	p.mu.Unlock()
	if err := query.Refetch(ctx); err != nil {
		return fmt.Errorf("form: %s: load item: %w", p.cfg.ID, err)
	}
	p.OpenUpdate(item, query.Data())
	return nil
}

// OpenDelete opens the delete confirmation for item. Values are untouched.
func (p *Provider) OpenDelete(item any) {
	p.transition(func(s *State) {
		s.Operation = model.OperationDelete
		s.IsOpen = true
		s.SelectedItem = item
		s.LastError = nil
	})
}

// OpenSearch opens the search form. Non-nil filters replace the values.
func (p *Provider) OpenSearch(filters model.Values) {
	if filters != nil {
		p.instance.Reset(filters)
	}
	p.transition(func(s *State) {
		s.Operation = model.OperationSearch
		s.IsOpen = true
		s.SearchFilters = filters.Clone()
		if filters == nil {
			s.SearchFilters = nil
		}
		s.LastError = nil
	})
}

// OpenView opens a read-only view of item.
func (p *Provider) OpenView(item any) {
	p.transition(func(s *State) {
		s.Operation = model.OperationView
		s.IsOpen = true
		s.SelectedItem = item
		s.LastError = nil
	})
}

// Close hides the modal and resets values to the defaults.
func (p *Provider) Close() {
	p.instance.Reset(p.cfg.DefaultValues)
	p.transition(func(s *State) {
		s.IsOpen = false
		s.IsSubmitting = false
	})
}

// Reset reverts values to the defaults and clears the selection, current data
// and search filters. clearDraft also removes the stored draft.
func (p *Provider) Reset(clearDraft bool) {
	p.instance.Reset(p.cfg.DefaultValues)
	if clearDraft {
		p.ClearDraft(context.Background())
	}
	p.transition(func(s *State) {
		s.SelectedItem = nil
		s.CurrentData = nil
		s.SearchFilters = nil
	})
}

// SetSearchFilters stores filters and resets values to them.
func (p *Provider) SetSearchFilters(filters model.Values) {
	p.instance.Reset(filters)
	p.transition(func(s *State) {
		s.SearchFilters = filters.Clone()
	})
}

// ClearDraft removes the stored draft, if persistence is enabled.
func (p *Provider) ClearDraft(ctx context.Context) {
	if p.persister != nil {
		p.persister.Clear(ctx)
	}
}

// Submit validates and dispatches the current operation. Mutation errors
// are logged and kept in State.LastError instead of being returned; the
// modal stays open so the input can be corrected.
func (p *Provider) Submit(ctx context.Context) SubmitStatus {
	p.mu.Lock()
	if p.inflight {
		p.mu.Unlock()
		return SubmitBusy
	}
	p.inflight = true
	op := p.state.Operation
	selected := p.state.SelectedItem
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inflight = false
		p.mu.Unlock()
	}()

	if op != model.OperationDelete && op != model.OperationView {
		p.instance.HandleSubmitAttempt()
		if !p.instance.Trigger(ctx) {
			p.emit()
			return SubmitInvalid
		}
	}

	p.transition(func(s *State) { s.IsSubmitting = true })
	defer p.transition(func(s *State) { s.IsSubmitting = false })

	values := p.instance.GetValues()
	var err error
	switch op {
	case model.OperationCreate:
		if m := p.cfg.Operations.Create; m != nil {
			_, err = m.MutateAsync(ctx, values)
		}
	case model.OperationUpdate:
		if m := p.cfg.Operations.Update; m != nil {
			if id, ok := ItemID(selected); ok {
				payload := values.Clone()
				payload["id"] = id
				_, err = m.MutateAsync(ctx, payload)
			} else {
				p.opts.logger.Printf("form: %s: update skipped: no selected item id", p.cfg.ID)
			}
		}
	case model.OperationDelete:
		if m := p.cfg.Operations.Delete; m != nil {
			if id, ok := ItemID(selected); ok {
				_, err = m.MutateAsync(ctx, id)
			} else {
				p.opts.logger.Printf("form: %s: delete skipped: no selected item id", p.cfg.ID)
			}
		}
	case model.OperationSearch:
		p.mu.Lock()
		p.state.SearchFilters = values.Clone()
		p.mu.Unlock()
	}

	if err != nil {
		p.opts.logger.Printf("form: %s: submit %s failed: %v", p.cfg.ID, op, err)
		var fieldErr interface{ FieldErrors() map[string][]string }
		if errors.As(err, &fieldErr) && len(fieldErr.FieldErrors()) > 0 {
			p.instance.ApplyErrors(fieldErr.FieldErrors())
		}
		p.mu.Lock()
		p.state.LastError = err
		p.mu.Unlock()
		return SubmitFailed
	}

	p.mu.Lock()
	p.state.LastError = nil
	p.mu.Unlock()

	if op != model.OperationSearch {
		p.opts.invalidator.Invalidate(ctx, p.cfg.ID)
		p.ClearDraft(ctx)
		p.Close()
	}
	return SubmitCompleted
}

// EnableAutoSearch pushes value changes into SetSearchFilters once no
// change arrives for delay, while the search form is open. The returned
// function disables it.
func (p *Provider) EnableAutoSearch(delay time.Duration) (stop func()) {
	debouncer := timer.NewDebouncer(p.opts.clock, delay)
	unwatch := p.instance.Watch(func(change Change) {
		if change.Kind != ChangeValue {
			return
		}
		state := p.State()
		if !state.IsOpen || state.Operation != model.OperationSearch {
			return
		}
		values := change.Values
		debouncer.Trigger(func() {
			p.SetSearchFilters(values)
		})
	})

	p.mu.Lock()
	if p.search != nil {
		p.search.Stop()
	}
	p.search = debouncer
	p.stopWatch = append(p.stopWatch, unwatch)
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			unwatch()
			debouncer.Stop()
		})
	}
}

// Dispose cancels pending draft saves and auto-search timers and detaches
// watchers. The provider must not be used afterwards.
func (p *Provider) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	stops := p.stopWatch
	p.stopWatch = nil
	search := p.search
	p.search = nil
	p.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	if search != nil {
		search.Stop()
	}
	if p.persister != nil {
		p.persister.Stop()
	}
}
