package draft

import (
	"log"
	"time"

	"github.com/goliatone/go-crudform/pkg/timer"
)

// Option configures a Persister or Manager.
type Option func(*options)

type options struct {
	clock  timer.Clock
	logger *log.Logger
	maxAge time.Duration
}

func defaultOptions() options {
	return options{
		clock:  timer.RealClock{},
		logger: log.Default(),
		maxAge: DefaultMaxAge,
	}
}

func applyOptions(opts []Option) options {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithClock injects the clock used for timestamps and debouncing.
func WithClock(clock timer.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger routes persistence warnings to logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxAge overrides how long a draft stays loadable.
func WithMaxAge(age time.Duration) Option {
	return func(o *options) {
		if age > 0 {
			o.maxAge = age
		}
	}
}
