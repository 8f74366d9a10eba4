package draft

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/storage"
	"github.com/goliatone/go-crudform/pkg/timer"
)

// Persister saves and restores the draft of a single form.
type Persister struct {
	store      storage.Storage
	formKey    string
	storageKey string
	exclude    []string
	opts       options
	debouncer  *timer.Debouncer

	// mu orders writes against Clear; cleared counts Clear calls so a
	// debounced save scheduled before one is dropped.
	mu      sync.Mutex
	cleared uint64
}

// NewPersister builds a persister for cfg. fallbackKey (usually the form id)
// is used when cfg.Key is empty.
func NewPersister(store storage.Storage, cfg model.PersistenceConfig, fallbackKey string, opts ...Option) *Persister {
	resolved := applyOptions(opts)

	formKey := strings.TrimSpace(cfg.Key)
	if formKey == "" {
		formKey = strings.TrimSpace(fallbackKey)
	}
	delay := DefaultDebounce
	if cfg.DebounceMs > 0 {
		delay = time.Duration(cfg.DebounceMs) * time.Millisecond
	}

	return &Persister{
		store:      store,
		formKey:    formKey,
		storageKey: StorageKey(formKey),
		exclude:    append([]string(nil), cfg.ExcludeFields...),
		opts:       resolved,
		debouncer:  timer.NewDebouncer(resolved.clock, delay),
	}
}

// FormKey returns the key stored inside each record.
func (p *Persister) FormKey() string {
	return p.formKey
}

// StorageKey returns the storage key the draft lives under.
func (p *Persister) StorageKey() string {
	return p.storageKey
}

// Schedule snapshots values and saves them once no newer snapshot arrives
// within the debounce delay.
func (p *Persister) Schedule(values model.Values) {
	snapshot := values.Clone()
	p.mu.Lock()
	gen := p.cleared
	p.mu.Unlock()
	p.debouncer.Trigger(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if gen != p.cleared {
			return
		}
		_ = p.saveLocked(context.Background(), snapshot)
	})
}

// Pending reports whether a debounced save is waiting.
func (p *Persister) Pending() bool {
	return p.debouncer.Pending()
}

// Save writes values immediately, minus excluded fields. Failures are
// logged and returned.
func (p *Persister) Save(ctx context.Context, values model.Values) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveLocked(ctx, values)
}

func (p *Persister) saveLocked(ctx context.Context, values model.Values) error {
	if p.store == nil {
		return nil
	}
	record := Record{
		Data:      values.Without(p.exclude...),
		Timestamp: p.opts.clock.Now().UnixMilli(),
		FormKey:   p.formKey,
	}
	raw, err := encodeRecord(record)
	if err != nil {
		p.warn("save skipped: %v", err)
		return err
	}
	if err := p.store.SetItem(ctx, p.storageKey, raw); err != nil {
		p.warn("save failed: %v", err)
		return err
	}
	return nil
}

// Load returns the stored draft when it exists, decodes, is no older than
// the max age and belongs to this form key. Any other stored entry is
// removed. Excluded fields are stripped from the returned data.
func (p *Persister) Load(ctx context.Context) (Record, bool) {
	if p.store == nil {
		return Record{}, false
	}
	raw, ok, err := p.store.GetItem(ctx, p.storageKey)
	if err != nil {
		p.warn("load failed: %v", err)
		return Record{}, false
	}
	if !ok {
		return Record{}, false
	}

	record, err := decodeRecord(raw)
	switch {
	case err != nil:
		p.warn("discarding unreadable draft %s: %v", p.storageKey, err)
	case record.FormKey != p.formKey:
		p.warn("discarding draft %s: stored for %q", p.storageKey, record.FormKey)
	case record.Expired(p.opts.clock.Now(), p.opts.maxAge):
		p.warn("discarding draft %s: saved %s", p.storageKey, record.SavedAt().UTC().Format(time.RFC3339))
	default:
		if record.Data == nil {
			record.Data = model.Values{}
		}
		record.Data = record.Data.Without(p.exclude...)
		return record, true
	}

	p.remove(ctx)
	return Record{}, false
}

// Clear cancels any pending save and removes the stored draft. A debounced
// save already writing finishes first and is then removed.
func (p *Persister) Clear(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared++
	p.debouncer.Cancel()
	p.remove(ctx)
}

// HasDraft reports whether an entry exists under the storage key. It never
// fails; storage errors read as false.
func (p *Persister) HasDraft(ctx context.Context) bool {
	if p.store == nil {
		return false
	}
	_, ok, err := p.store.GetItem(ctx, p.storageKey)
	if err != nil {
		p.warn("existence check failed: %v", err)
		return false
	}
	return ok
}

// Stop cancels pending saves permanently.
func (p *Persister) Stop() {
	p.debouncer.Stop()
}

func (p *Persister) remove(ctx context.Context) {
	if p.store == nil {
		return
	}
	if err := p.store.RemoveItem(ctx, p.storageKey); err != nil {
		p.warn("remove failed: %v", err)
	}
}

func (p *Persister) warn(format string, args ...any) {
	p.opts.logger.Printf("draft: "+format, args...)
}
