//go:build windows

package goble

import "github.com/gable-project/goble/internal/winrt"

func init() {
	newScannerBackend = func() (ScannerBackend, error) {
		return winrt.NewScannerBackend()
	}
	newClientBackend = func(target ConnectTarget, opts ClientOptions) (ClientBackend, error) {
		return winrt.NewClientBackend(target, opts)
	}
}
