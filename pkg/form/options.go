package form

import (
	"log"

	"github.com/goliatone/go-crudform/pkg/draft"
	"github.com/goliatone/go-crudform/pkg/invalidate"
	"github.com/goliatone/go-crudform/pkg/storage"
	"github.com/goliatone/go-crudform/pkg/timer"
)

// Option configures a Provider.
type Option func(*providerOptions)

type providerOptions struct {
	invalidator invalidate.Invalidator
	store       storage.Storage
	clock       timer.Clock
	logger      *log.Logger
	onDraftLoad func(draft.Record)
	draftOpts   []draft.Option
}

func defaultProviderOptions() providerOptions {
	return providerOptions{
		invalidator: invalidate.Noop,
		clock:       timer.RealClock{},
		logger:      log.Default(),
	}
}

// WithInvalidator receives the config id after successful writes.
func WithInvalidator(inv invalidate.Invalidator) Option {
	return func(o *providerOptions) {
		if inv != nil {
			o.invalidator = inv
		}
	}
}

// WithStorage sets the draft store. Without it persistence uses an
// in-memory store scoped to the provider.
func WithStorage(store storage.Storage) Option {
	return func(o *providerOptions) {
		o.store = store
	}
}

// WithClock drives draft and auto-search debouncing.
func WithClock(clock timer.Clock) Option {
	return func(o *providerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger for swallowed failures.
func WithLogger(logger *log.Logger) Option {
	return func(o *providerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOnDraftLoad is called when a stored draft is restored at construction.
func WithOnDraftLoad(fn func(draft.Record)) Option {
	return func(o *providerOptions) {
		o.onDraftLoad = fn
	}
}

// WithDraftOptions forwards options to the draft persister.
func WithDraftOptions(opts ...draft.Option) Option {
	return func(o *providerOptions) {
		o.draftOpts = append(o.draftOpts, opts...)
	}
}
