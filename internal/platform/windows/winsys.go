//go:build windows

package windows

import (
	"fmt"
	"path/filepath"
	"strings"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	syswin "golang.org/x/sys/windows"

	"github.com/vicomannen/winfade/internal/platform"
)

var (
	user32                       = syscall.NewLazyDLL("user32.dll")
	procGetAncestor              = user32.NewProc("GetAncestor")
	procIsWindow                 = user32.NewProc("IsWindow")
	procSetLayeredWindowAttribs  = user32.NewProc("SetLayeredWindowAttributes")
	procSetWinEventHook          = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent           = user32.NewProc("UnhookWinEvent")
	procPostThreadMessage        = user32.NewProc("PostThreadMessageW")
	procGetWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
)

const (
	gaRoot   = 2 // GA_ROOT
	lwaAlpha = 2 // LWA_ALPHA
)

// WindowSystem is the Win32 implementation of platform.WindowSystem.
// All methods are plain user32 calls and safe from any thread.
type WindowSystem struct{}

// NewWindowSystem returns the Win32 window system.
func NewWindowSystem() *WindowSystem {
	return &WindowSystem{}
}

func (*WindowSystem) RootAncestor(w platform.Window) platform.Window {
	root, _, _ := procGetAncestor.Call(uintptr(w), gaRoot)
	if root == 0 {
		return w
	}
	return platform.Window(root)
}

func (*WindowSystem) IsAlive(w platform.Window) bool {
	ret, _, _ := procIsWindow.Call(uintptr(w))
	return ret != 0
}

func (*WindowSystem) SetTranslucent(w platform.Window, on bool) {
	hwnd := win.HWND(w)
	ex := win.GetWindowLong(hwnd, win.GWL_EXSTYLE)
	if on {
		if ex&win.WS_EX_LAYERED == 0 {
			win.SetWindowLong(hwnd, win.GWL_EXSTYLE, ex|win.WS_EX_LAYERED)
		}
	} else {
		if ex&win.WS_EX_LAYERED != 0 {
			win.SetWindowLong(hwnd, win.GWL_EXSTYLE, ex&^win.WS_EX_LAYERED)
		}
	}
}

func (*WindowSystem) SetOpacity(w platform.Window, alpha byte) {
	procSetLayeredWindowAttribs.Call(uintptr(w), 0, uintptr(alpha), lwaAlpha)
}

// OwnerExecutable implements platform.ProcessResolver.
func (*WindowSystem) OwnerExecutable(w platform.Window) (string, error) {
	var pid uint32
	procGetWindowThreadProcessID.Call(uintptr(w), uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return "", fmt.Errorf("no process for window %s", w)
	}

	h, err := syswin.OpenProcess(syswin.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("open process %d: %w", pid, err)
	}
	defer syswin.CloseHandle(h)

	buf := make([]uint16, syswin.MAX_PATH)
	size := uint32(len(buf))
	if err := syswin.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("query image name for pid %d: %w", pid, err)
	}
	path := syswin.UTF16ToString(buf[:size])
	return strings.ToLower(filepath.Base(path)), nil
}
