package draft

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-crudform/pkg/storage"
)

// Entry summarises one stored draft.
type Entry struct {
	StorageKey string
	FormKey    string
	SavedAt    time.Time
	Fields     int
	// Corrupt marks entries that could not be decoded.
	Corrupt bool
}

// Manager performs housekeeping across every draft in a storage keyspace.
type Manager struct {
	store storage.Storage
	opts  options
}

// NewManager builds a manager over store.
func NewManager(store storage.Storage, opts ...Option) *Manager {
	return &Manager{store: store, opts: applyOptions(opts)}
}

// List returns every draft entry ordered by storage key.
func (m *Manager) List(ctx context.Context) ([]Entry, error) {
	keys, err := storage.Keys(ctx, m.store, KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("draft: list keys: %w", err)
	}
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := m.store.GetItem(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("draft: read %s: %w", key, err)
		}
		if !ok {
			continue
		}
		entry := Entry{StorageKey: key, FormKey: strings.TrimPrefix(key, KeyPrefix)}
		record, err := decodeRecord(raw)
		if err != nil {
			entry.Corrupt = true
		} else {
			entry.FormKey = record.FormKey
			entry.SavedAt = record.SavedAt()
			entry.Fields = len(record.Data)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].StorageKey < entries[j].StorageKey })
	return entries, nil
}

// ClearAll removes every draft and returns how many were removed.
func (m *Manager) ClearAll(ctx context.Context) (int, error) {
	keys, err := storage.Keys(ctx, m.store, KeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("draft: list keys: %w", err)
	}
	removed := 0
	for _, key := range keys {
		if err := m.store.RemoveItem(ctx, key); err != nil {
			return removed, fmt.Errorf("draft: remove %s: %w", key, err)
		}
		removed++
	}
	return removed, nil
}

// PruneOlderThan removes drafts saved more than age ago along with entries
// that no longer decode. A non-positive age uses the configured max age.
func (m *Manager) PruneOlderThan(ctx context.Context, age time.Duration) (int, error) {
	if age <= 0 {
		age = m.opts.maxAge
	}
	entries, err := m.List(ctx)
	if err != nil {
		return 0, err
	}
	now := m.opts.clock.Now()
	removed := 0
	for _, entry := range entries {
		if !entry.Corrupt && now.Sub(entry.SavedAt) <= age {
			continue
		}
		if err := m.store.RemoveItem(ctx, entry.StorageKey); err != nil {
			return removed, fmt.Errorf("draft: remove %s: %w", entry.StorageKey, err)
		}
		removed++
	}
	if removed > 0 {
		m.opts.logger.Printf("draft: pruned %d entries older than %s", removed, age)
	}
	return removed, nil
}
