// Package testsupport holds helpers shared by package tests: a manually
// driven clock, an invalidation recorder and output capture utilities.
package testsupport

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
)

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// InvalidationRecorder records invalidated tags in call order.
type InvalidationRecorder struct {
	mu   sync.Mutex
	tags []string
}

// Invalidate records tag.
func (r *InvalidationRecorder) Invalidate(_ context.Context, tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags = append(r.tags, tag)
}

// Tags returns a copy of the recorded tags.
func (r *InvalidationRecorder) Tags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tags...)
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	return out, buf.String()
}
