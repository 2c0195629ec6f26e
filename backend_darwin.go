//go:build darwin

package goble

import "github.com/gable-project/goble/internal/corebluetooth"

func init() {
	newScannerBackend = func() (ScannerBackend, error) {
		return corebluetooth.NewScannerBackend()
	}
	newClientBackend = func(target ConnectTarget, opts ClientOptions) (ClientBackend, error) {
		return corebluetooth.NewClientBackend(target, opts)
	}
}
