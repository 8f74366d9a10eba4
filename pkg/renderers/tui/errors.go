package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C) or declined a
	// confirmation.
	ErrAborted = errors.New("tui: aborted")
	// ErrNotOpen is returned by Fill for providers that cannot be opened.
	ErrNotOpen = errors.New("tui: provider is not open")
)
