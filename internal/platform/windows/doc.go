// Package windows implements the platform capabilities on Win32.
//
// Opacity uses layered windows: WS_EX_LAYERED is the translucency bit
// and SetLayeredWindowAttributes applies the alpha level. Move/size and
// destroy notifications come from an out-of-context SetWinEventHook with
// a message pump. On other platforms this package contributes nothing
// and platform.NewProvider reports ErrUnsupported.
package windows
