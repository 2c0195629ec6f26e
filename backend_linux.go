//go:build linux

package goble

import "github.com/gable-project/goble/internal/bluez"

func init() {
	newScannerBackend = func() (ScannerBackend, error) {
		return bluez.NewScannerBackend()
	}
	newClientBackend = func(target ConnectTarget, opts ClientOptions) (ClientBackend, error) {
		return bluez.NewClientBackend(target, opts)
	}
}
