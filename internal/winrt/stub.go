//go:build !windows

// Package winrt implements the goble.ScannerBackend and
// goble.ClientBackend contracts on top of Windows Runtime. This file
// satisfies `go build ./...` on non-Windows platforms; backend_windows.go
// is the only caller, so these constructors never run here.
package winrt

import (
	"context"
	"fmt"

	"github.com/gable-project/goble"
)

type ScannerBackend struct{}

func NewScannerBackend() (*ScannerBackend, error) {
	return nil, fmt.Errorf("winrt: not supported on this platform")
}

func (b *ScannerBackend) Start(ctx context.Context, opts goble.ScanOptions, deliver func(goble.AdvertisementEvent)) error {
	return goble.ErrNotSupported
}

func (b *ScannerBackend) Stop(ctx context.Context) error { return goble.ErrNotSupported }

type ClientBackend struct{}

func NewClientBackend(target goble.ConnectTarget, opts goble.ClientOptions) (*ClientBackend, error) {
	return nil, fmt.Errorf("winrt: not supported on this platform")
}

func (b *ClientBackend) Connect(ctx context.Context, pair bool) (*goble.Collection, error) {
	return nil, goble.ErrNotSupported
}
func (b *ClientBackend) Disconnect(ctx context.Context) error { return goble.ErrNotSupported }
func (b *ClientBackend) SetDisconnectCallback(cb func(error)) {}
func (b *ClientBackend) ReadCharacteristic(ctx context.Context, ch *goble.Characteristic, useCached bool) ([]byte, error) {
	return nil, goble.ErrNotSupported
}
func (b *ClientBackend) WriteCharacteristic(ctx context.Context, ch *goble.Characteristic, data []byte, withResponse bool) error {
	return goble.ErrNotSupported
}
func (b *ClientBackend) ReadDescriptor(ctx context.Context, d *goble.Descriptor) ([]byte, error) {
	return nil, goble.ErrNotSupported
}
func (b *ClientBackend) WriteDescriptor(ctx context.Context, d *goble.Descriptor, data []byte) error {
	return goble.ErrNotSupported
}
func (b *ClientBackend) StartNotify(ctx context.Context, ch *goble.Characteristic, forceIndicate bool, cb func([]byte)) error {
	return goble.ErrNotSupported
}
func (b *ClientBackend) StopNotify(ctx context.Context, ch *goble.Characteristic) error {
	return goble.ErrNotSupported
}
func (b *ClientBackend) Pair(ctx context.Context, agent goble.PairingAgent) error {
	return goble.ErrNotSupported
}
func (b *ClientBackend) Unpair(ctx context.Context) error { return goble.ErrNotSupported }
func (b *ClientBackend) Name() string                     { return "" }
