//go:build windows

package windows

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"syscall"

	"github.com/lxn/win"
	syswin "golang.org/x/sys/windows"

	"github.com/vicomannen/winfade/internal/platform"
)

// WinEvent constants for the out-of-context hook.
const (
	eventSystemMoveSizeStart = 0x000A // EVENT_SYSTEM_MOVESIZESTART
	eventSystemMoveSizeEnd   = 0x000B // EVENT_SYSTEM_MOVESIZEEND
	eventObjectDestroy       = 0x8001 // EVENT_OBJECT_DESTROY

	winEventOutOfContext   = 0x0000 // WINEVENT_OUTOFCONTEXT
	winEventSkipOwnProcess = 0x0002 // WINEVENT_SKIPOWNPROCESS

	objidWindow = 0 // OBJID_WINDOW
)

// EventSource delivers move/size and destroy notifications via
// SetWinEventHook. Out-of-context hooks require a message pump on the
// installing thread, so Run locks its goroutine to an OS thread and
// pumps until the context is cancelled.
//
// The hook mechanism only surfaces InteractionStarted, InteractionEnded,
// and WindowDestroyed; the redundant abort kinds in the event port exist
// for in-process hosts that can observe them.
type EventSource struct {
	mu       sync.Mutex
	handle   func(platform.Event)
	threadID uint32
	hooks    []uintptr
	running  bool
}

// active is the source the shared win-event callback dispatches to.
// SetWinEventHook takes a bare function pointer, so this cannot be a
// closure; one source per process is all the daemon needs.
var (
	activeMu sync.Mutex
	active   *EventSource
)

// NewEventSource returns an unstarted source.
func NewEventSource() *EventSource {
	return &EventSource{}
}

var winEventProc = syscall.NewCallback(func(hook, event, hwnd, idObject, idChild, idEventThread, eventTime uintptr) uintptr {
	if hwnd == 0 || int32(idObject) != objidWindow || int32(idChild) != 0 {
		return 0
	}

	var kind platform.EventKind
	switch uint32(event) {
	case eventSystemMoveSizeStart:
		kind = platform.InteractionStarted
	case eventSystemMoveSizeEnd:
		kind = platform.InteractionEnded
	case eventObjectDestroy:
		kind = platform.WindowDestroyed
	default:
		return 0
	}

	activeMu.Lock()
	src := active
	activeMu.Unlock()
	if src == nil {
		return 0
	}
	src.dispatch(platform.Event{Window: platform.Window(hwnd), Kind: kind})
	return 0
})

func (s *EventSource) dispatch(ev platform.Event) {
	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()
	if handle != nil {
		handle(ev)
	}
}

// Run installs the hooks and pumps messages until ctx is cancelled.
func (s *EventSource) Run(ctx context.Context, handle func(platform.Event)) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("event source already running")
	}
	s.running = true
	s.handle = handle
	s.threadID = syswin.GetCurrentThreadId()
	s.mu.Unlock()

	activeMu.Lock()
	active = s
	activeMu.Unlock()

	ranges := [][2]uint32{
		{eventSystemMoveSizeStart, eventSystemMoveSizeEnd},
		{eventObjectDestroy, eventObjectDestroy},
	}
	for _, r := range ranges {
		hook, _, _ := procSetWinEventHook.Call(
			uintptr(r[0]), uintptr(r[1]),
			0, winEventProc, 0, 0,
			winEventOutOfContext|winEventSkipOwnProcess)
		if hook == 0 {
			s.unhook()
			return fmt.Errorf("SetWinEventHook failed for range 0x%04x-0x%04x", r[0], r[1])
		}
		s.mu.Lock()
		s.hooks = append(s.hooks, hook)
		s.mu.Unlock()
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.postQuit()
		case <-stop:
		}
	}()

	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret <= 0 {
			break
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}

	s.unhook()
	return ctx.Err()
}

func (s *EventSource) postQuit() {
	s.mu.Lock()
	tid := s.threadID
	s.mu.Unlock()
	if tid != 0 {
		procPostThreadMessage.Call(uintptr(tid), win.WM_QUIT, 0, 0)
	}
}

func (s *EventSource) unhook() {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.handle = nil
	s.running = false
	s.mu.Unlock()

	for _, h := range hooks {
		procUnhookWinEvent.Call(h)
	}

	activeMu.Lock()
	if active == s {
		active = nil
	}
	activeMu.Unlock()
}

// Close stops the message pump.
func (s *EventSource) Close() error {
	s.postQuit()
	return nil
}
