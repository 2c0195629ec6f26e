// Package mock provides in-process fake ScannerBackend/ClientBackend
// implementations for exercising the goble façades without real
// hardware or a platform D-Bus/WinRT/CoreBluetooth runtime. Start, Stop
// and Connect can be overridden through the StartFunc, StopFunc and
// ConnectFunc fields; every other method has fixed behavior.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/gable-project/goble"
)

// Peripheral is the fake device state a ClientBackend connects to: a GATT
// tree plus per-handle values. Notification subscriptions live on the
// ClientBackend.
type Peripheral struct {
	Address  string
	Name     string
	MTU      uint16
	Services []*goble.Service

	mu     sync.Mutex
	values map[goble.Handle][]byte
}

// NewPeripheral builds an empty peripheral with the given address/name.
func NewPeripheral(address, name string) *Peripheral {
	return &Peripheral{
		Address: address,
		Name:    name,
		MTU:     23,
		values:  make(map[goble.Handle][]byte),
	}
}

// SetValue sets the stored value for a characteristic or descriptor
// handle, as read by ReadCharacteristic/ReadDescriptor.
func (p *Peripheral) SetValue(h goble.Handle, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := append([]byte(nil), data...)
	p.values[h] = cp
}

// Value returns the stored value for a handle.
func (p *Peripheral) Value(h goble.Handle) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.values[h]...)
}

// buildCollection assembles a *goble.Collection from Services, mirroring
// what a real backend's discovery pass produces.
func (p *Peripheral) buildCollection() (*goble.Collection, error) {
	col := goble.NewCollection(p.MTU)
	for _, svc := range p.Services {
		chars := svc.Characteristics
		svcCopy := &goble.Service{Handle: svc.Handle, UUID: svc.UUID, Characteristics: nil}
		if err := col.AddService(svcCopy); err != nil {
			return nil, err
		}
		for _, ch := range chars {
			chCopy := &goble.Characteristic{
				Handle:        ch.Handle,
				UUID:          ch.UUID,
				Properties:    ch.Properties,
				ServiceHandle: svcCopy.Handle,
			}
			if err := col.AddCharacteristic(chCopy); err != nil {
				return nil, err
			}
			for _, d := range ch.Descriptors {
				dCopy := &goble.Descriptor{Handle: d.Handle, UUID: d.UUID, CharacteristicHandle: chCopy.Handle}
				if err := col.AddDescriptor(dCopy); err != nil {
					return nil, err
				}
			}
		}
	}
	return col, nil
}

// ScannerBackend is a fake goble.ScannerBackend that replays a fixed
// script of advertisement events on Start, spaced by Interval.
type ScannerBackend struct {
	Events   []goble.AdvertisementEvent
	Interval time.Duration

	// StartFunc, if set, replaces the default replay loop entirely.
	StartFunc func(ctx context.Context, opts goble.ScanOptions, deliver func(goble.AdvertisementEvent)) error
	StopFunc  func(ctx context.Context) error

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// NewScannerBackend returns a backend that replays events spaced by
// interval (10ms if zero) once Start is called.
func NewScannerBackend(events []goble.AdvertisementEvent, interval time.Duration) *ScannerBackend {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	return &ScannerBackend{Events: events, Interval: interval}
}

func (b *ScannerBackend) Start(ctx context.Context, opts goble.ScanOptions, deliver func(goble.AdvertisementEvent)) error {
	if b.StartFunc != nil {
		return b.StartFunc(ctx, opts, deliver)
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.running = true
	b.mu.Unlock()

	go func() {
		for _, ev := range b.Events {
			select {
			case <-runCtx.Done():
				return
			case <-time.After(b.Interval):
				deliver(ev)
			}
		}
	}()
	return nil
}

func (b *ScannerBackend) Stop(ctx context.Context) error {
	if b.StopFunc != nil {
		return b.StopFunc(ctx)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
	b.running = false
	return nil
}

// ClientBackend is a fake goble.ClientBackend bound to one Peripheral.
// Notifications and unsolicited disconnects are driven by calling
// Notify/SimulateDisconnect from test code.
type ClientBackend struct {
	Peripheral *Peripheral

	mu           sync.Mutex
	connected    bool
	disconnectCB func(error)
	notifyCBs    map[goble.Handle]func([]byte)

	// ConnectFunc, if set, replaces the default immediate-success connect.
	ConnectFunc func(ctx context.Context, pair bool) (*goble.Collection, error)
}

// NewClientBackend returns a backend bound to p.
func NewClientBackend(p *Peripheral) *ClientBackend {
	return &ClientBackend{Peripheral: p, notifyCBs: make(map[goble.Handle]func([]byte))}
}

func (b *ClientBackend) Connect(ctx context.Context, pair bool) (*goble.Collection, error) {
	if b.ConnectFunc != nil {
		return b.ConnectFunc(ctx, pair)
	}
	col, err := b.Peripheral.buildCollection()
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	return col, nil
}

func (b *ClientBackend) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	b.notifyCBs = make(map[goble.Handle]func([]byte))
	return nil
}

func (b *ClientBackend) SetDisconnectCallback(cb func(error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnectCB = cb
}

// SimulateDisconnect fires the registered disconnect callback as an
// unsolicited OS disconnect would, for exercising the S5 scenario.
func (b *ClientBackend) SimulateDisconnect(cause error) {
	b.mu.Lock()
	b.connected = false
	cb := b.disconnectCB
	b.mu.Unlock()
	if cb != nil {
		cb(cause)
	}
}

func (b *ClientBackend) ReadCharacteristic(ctx context.Context, ch *goble.Characteristic, useCached bool) ([]byte, error) {
	if !b.isConnected() {
		return nil, goble.ErrDisconnected
	}
	return b.Peripheral.Value(ch.Handle), nil
}

func (b *ClientBackend) WriteCharacteristic(ctx context.Context, ch *goble.Characteristic, data []byte, withResponse bool) error {
	if !b.isConnected() {
		return goble.ErrDisconnected
	}
	b.Peripheral.SetValue(ch.Handle, data)
	return nil
}

func (b *ClientBackend) ReadDescriptor(ctx context.Context, d *goble.Descriptor) ([]byte, error) {
	if !b.isConnected() {
		return nil, goble.ErrDisconnected
	}
	return b.Peripheral.Value(d.Handle), nil
}

func (b *ClientBackend) WriteDescriptor(ctx context.Context, d *goble.Descriptor, data []byte) error {
	if !b.isConnected() {
		return goble.ErrDisconnected
	}
	b.Peripheral.SetValue(d.Handle, data)
	return nil
}

func (b *ClientBackend) StartNotify(ctx context.Context, ch *goble.Characteristic, forceIndicate bool, cb func([]byte)) error {
	if !b.isConnected() {
		return goble.ErrDisconnected
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifyCBs[ch.Handle] = cb
	return nil
}

func (b *ClientBackend) StopNotify(ctx context.Context, ch *goble.Characteristic) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.notifyCBs, ch.Handle)
	return nil
}

// Notify delivers data as a notification on handle h, as a real
// peripheral emitting a GATT notification would. A no-op if nothing is
// subscribed to h.
func (b *ClientBackend) Notify(h goble.Handle, data []byte) {
	b.mu.Lock()
	cb := b.notifyCBs[h]
	b.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

func (b *ClientBackend) Pair(ctx context.Context, agent goble.PairingAgent) error {
	return nil
}

func (b *ClientBackend) Unpair(ctx context.Context) error {
	return nil
}

func (b *ClientBackend) Name() string {
	return b.Peripheral.Name
}

func (b *ClientBackend) isConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}
