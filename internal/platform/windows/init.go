//go:build windows

package windows

import "github.com/vicomannen/winfade/internal/platform"

func init() {
	platform.NewProviderFunc = func() (*platform.Provider, error) {
		return &platform.Provider{
			System: NewWindowSystem(),
			Events: NewEventSource(),
		}, nil
	}
}
