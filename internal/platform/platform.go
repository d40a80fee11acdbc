package platform

import "context"

// WindowSystem exposes the windowing-system capabilities the fade engine
// needs. Implementations must be safe for concurrent use: the engine
// calls in from both event and timer threads.
type WindowSystem interface {
	// RootAncestor returns the top-level ancestor of w, or w itself when
	// it is already top-level.
	RootAncestor(w Window) Window

	// IsAlive reports whether w still identifies a live window.
	IsAlive(w Window) bool

	// SetTranslucent sets or clears the window's translucency style bit.
	// The bit must be set for SetOpacity to have any visual effect, and
	// should be cleared at rest because some applications misbehave when
	// it stays set.
	SetTranslucent(w Window, on bool)

	// SetOpacity applies an alpha level to the window (255 = opaque).
	SetOpacity(w Window, alpha byte)
}

// ProcessResolver is implemented by window systems that can name the
// executable owning a window. Used for the include/exclude app list.
type ProcessResolver interface {
	// OwnerExecutable returns the lowercase base name of the executable
	// owning w (e.g. "explorer.exe").
	OwnerExecutable(w Window) (string, error)
}

// EventSource delivers window lifecycle events to a handler.
type EventSource interface {
	// Run blocks, invoking handle for each event until ctx is cancelled
	// or the source fails.
	Run(ctx context.Context, handle func(Event)) error

	// Close releases the source. Safe to call while Run is blocked.
	Close() error
}
