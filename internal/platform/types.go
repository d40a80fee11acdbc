package platform

import "fmt"

// Window is an opaque identity for a top-level or child window in the
// host windowing system (an HWND on Windows).
type Window uintptr

// None is the zero Window identity.
const None Window = 0

func (w Window) String() string {
	return fmt.Sprintf("0x%x", uintptr(w))
}

// EventKind classifies the lifecycle events delivered to the fade engine.
type EventKind int

const (
	// InteractionStarted fires when the user begins moving or resizing a
	// window.
	InteractionStarted EventKind = iota
	// InteractionEnded fires when the move/size loop completes normally.
	InteractionEnded
	// CaptureChanged fires when mouse capture leaves the window mid-drag.
	// Some hosts drop InteractionEnded, so this also restores opacity.
	CaptureChanged
	// OperationCancelled fires when the host cancels the modal move/size
	// operation.
	OperationCancelled
	// CaptionDragRelease fires on a button release over the window
	// caption, another fallback for a missed InteractionEnded.
	CaptionDragRelease
	// WindowDestroyed fires when the window is being torn down.
	WindowDestroyed
)

func (k EventKind) String() string {
	switch k {
	case InteractionStarted:
		return "interaction-started"
	case InteractionEnded:
		return "interaction-ended"
	case CaptureChanged:
		return "capture-changed"
	case OperationCancelled:
		return "operation-cancelled"
	case CaptionDragRelease:
		return "caption-drag-release"
	case WindowDestroyed:
		return "window-destroyed"
	default:
		return fmt.Sprintf("event-kind(%d)", int(k))
	}
}

// RestoresOpacity reports whether this event should fade the window back
// to fully opaque. Several redundant kinds map here because the host does
// not always deliver InteractionEnded reliably.
func (k EventKind) RestoresOpacity() bool {
	switch k {
	case InteractionEnded, CaptureChanged, OperationCancelled, CaptionDragRelease:
		return true
	}
	return false
}

// Event is one lifecycle notification for a window.
type Event struct {
	Window Window
	Kind   EventKind
}
