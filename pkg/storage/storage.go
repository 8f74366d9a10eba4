// Package storage defines the string key/value store drafts are persisted
// to. The contract mirrors browser local storage (getItem, setItem,
// removeItem, key, length) with context and error returns added.
package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Storage is a string key/value store with positional key enumeration.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	// Key returns the key at index in a stable order, or false when the
	// index is out of range.
	Key(ctx context.Context, index int) (string, bool, error)
	Length(ctx context.Context) (int, error)
}

// Keys lists every key that starts with prefix, in storage order.
func Keys(ctx context.Context, store Storage, prefix string) ([]string, error) {
	length, err := store.Length(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, length)
	for i := 0; i < length; i++ {
		key, ok, err := store.Key(ctx, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Memory is an in-process Storage. Keys enumerate in lexical order.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
}

var _ Storage = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.items[key]
	return value, ok, nil
}

func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *Memory) Key(_ context.Context, index int) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 0 || index >= len(m.items) {
		return "", false, nil
	}
	return m.sortedKeysLocked()[index], true, nil
}

func (m *Memory) Length(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

func (m *Memory) sortedKeysLocked() []string {
	keys := make([]string, 0, len(m.items))
	for key := range m.items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
