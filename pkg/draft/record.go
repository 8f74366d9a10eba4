// Package draft autosaves in-progress form values to a storage.Storage and
// restores them later. Drafts are best effort: storage and encoding failures
// are logged and never surface to the form.
package draft

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/goliatone/go-crudform/pkg/model"
)

const (
	// KeyPrefix namespaces draft entries inside shared storage.
	KeyPrefix = "form-draft-"
	// DefaultMaxAge is how long a draft remains loadable.
	DefaultMaxAge = 24 * time.Hour
	// DefaultDebounce applies when PersistenceConfig.DebounceMs is zero.
	DefaultDebounce = time.Second
)

// Record is the stored draft document.
type Record struct {
	Data      model.Values `json:"data"`
	Timestamp int64        `json:"timestamp"`
	FormKey   string       `json:"formKey"`
}

// SavedAt converts the millisecond timestamp into a time.Time.
func (r Record) SavedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Expired reports whether the record is older than maxAge at now.
func (r Record) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(r.SavedAt()) > maxAge
}

// StorageKey derives the storage key for a form key.
func StorageKey(formKey string) string {
	return KeyPrefix + strings.TrimSpace(formKey)
}

func encodeRecord(record Record) (string, error) {
	payload, err := sonic.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("draft: encode: %w", err)
	}
	return string(payload), nil
}

func decodeRecord(raw string) (Record, error) {
	var record Record
	if err := sonic.UnmarshalString(raw, &record); err != nil {
		return Record{}, fmt.Errorf("draft: decode: %w", err)
	}
	return record, nil
}
