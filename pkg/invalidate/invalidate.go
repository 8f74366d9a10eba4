// Package invalidate fans out "data tagged X changed" signals to whatever
// caches or queries depend on that tag.
package invalidate

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/goliatone/go-crudform/pkg/binding"
)

// Wildcard subscribes a handler to every tag.
const Wildcard = "*"

// Invalidator receives invalidation signals.
type Invalidator interface {
	Invalidate(ctx context.Context, tag string)
}

// Func adapts a function into an Invalidator.
type Func func(ctx context.Context, tag string)

// Invalidate calls fn.
func (fn Func) Invalidate(ctx context.Context, tag string) {
	fn(ctx, tag)
}

// Noop drops every signal.
var Noop Invalidator = Func(func(context.Context, string) {})

// Handler reacts to an invalidated tag.
type Handler func(ctx context.Context, tag string) error

type subscription struct {
	id      int
	handler Handler
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for handler failures.
func WithLogger(logger *log.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Bus is an in-process Invalidator. Handlers run synchronously in
// subscription order. Handler errors are logged and do not stop dispatch.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID int
	logger *log.Logger
}

var _ Invalidator = (*Bus)(nil)

// NewBus constructs an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[string][]subscription),
		logger: log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Subscribe registers handler for tag and returns a function removing it.
func (b *Bus) Subscribe(tag string, handler Handler) (unsubscribe func()) {
	if handler == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[tag] = append(b.subs[tag], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[tag]
			for i, sub := range list {
				if sub.id == id {
					b.subs[tag] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(b.subs[tag]) == 0 {
				delete(b.subs, tag)
			}
		})
	}
}

// Invalidate dispatches tag to its subscribers and then to wildcard ones.
func (b *Bus) Invalidate(ctx context.Context, tag string) {
	b.mu.RLock()
	handlers := make([]subscription, 0, len(b.subs[tag])+len(b.subs[Wildcard]))
	handlers = append(handlers, b.subs[tag]...)
	if tag != Wildcard {
		handlers = append(handlers, b.subs[Wildcard]...)
	}
	b.mu.RUnlock()

	for _, sub := range handlers {
		if err := sub.handler(ctx, tag); err != nil {
			b.logger.Printf("invalidate: handler error for %s: %v", tag, err)
		}
	}
}

// Tags lists tags that currently have subscribers.
func (b *Bus) Tags() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tags := make([]string, 0, len(b.subs))
	for tag := range b.subs {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// RefetchOn refetches query whenever tag is invalidated.
func RefetchOn[T any](bus *Bus, tag string, query binding.Query[T]) (unsubscribe func()) {
	return bus.Subscribe(tag, func(ctx context.Context, _ string) error {
		return query.Refetch(ctx)
	})
}

// Multi forwards each signal to every invalidator.
func Multi(invalidators ...Invalidator) Invalidator {
	return Func(func(ctx context.Context, tag string) {
		for _, inv := range invalidators {
			if inv != nil {
				inv.Invalidate(ctx, tag)
			}
		}
	})
}
