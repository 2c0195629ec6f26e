//go:build linux

// Package bluez implements the goble.ScannerBackend and
// goble.ClientBackend contracts on top of BlueZ's D-Bus API
// (org.bluez.Adapter1/Device1/GattService1/GattCharacteristic1/
// GattDescriptor1), using the object-manager cache and property-change
// signals; waiting for ServicesResolved after connect polls the property.
package bluez

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/gable-project/goble"
)

const (
	busName           = "org.bluez"
	rootPath          = dbus.ObjectPath("/org/bluez")
	ifaceAdapter      = "org.bluez.Adapter1"
	ifaceDevice       = "org.bluez.Device1"
	ifaceGattService  = "org.bluez.GattService1"
	ifaceGattChar     = "org.bluez.GattCharacteristic1"
	ifaceGattDesc     = "org.bluez.GattDescriptor1"
	ifaceObjectMgr    = "org.freedesktop.DBus.ObjectManager"
	ifaceProperties   = "org.freedesktop.DBus.Properties"
	servicesResolved  = "ServicesResolved"
)

type managedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

func getManagedObjects(conn *dbus.Conn) (managedObjects, error) {
	obj := conn.Object(busName, rootPath)
	var objects managedObjects
	if err := obj.Call(ifaceObjectMgr+".GetManagedObjects", 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("bluez: GetManagedObjects: %w", err)
	}
	return objects, nil
}

func firstAdapterPath(objects managedObjects) (dbus.ObjectPath, error) {
	var paths []dbus.ObjectPath
	for path, ifaces := range objects {
		if _, ok := ifaces[ifaceAdapter]; ok {
			paths = append(paths, path)
		}
	}
	if len(paths) == 0 {
		return "", goble.NewBluetoothUnavailableError(goble.ReasonNoBluetooth, "no BlueZ adapter present")
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	return paths[0], nil
}

func variantString(v dbus.Variant) string {
	s, _ := v.Value().(string)
	return s
}

func variantInt16(v dbus.Variant) int16 {
	switch n := v.Value().(type) {
	case int16:
		return n
	case int32:
		return int16(n)
	}
	return 0
}

func variantUint16(v dbus.Variant) uint16 {
	switch n := v.Value().(type) {
	case uint16:
		return n
	case uint32:
		return uint16(n)
	case int32:
		return uint16(n)
	}
	return 0
}

func variantUUIDs(v dbus.Variant) []string {
	ss, _ := v.Value().([]string)
	return ss
}

func variantManufacturerData(v dbus.Variant) map[uint16][]byte {
	raw, ok := v.Value().(map[uint16]dbus.Variant)
	if !ok {
		return nil
	}
	out := make(map[uint16][]byte, len(raw))
	for k, vv := range raw {
		if b, ok := vv.Value().([]byte); ok {
			out[k] = b
		}
	}
	return out
}

func variantServiceData(v dbus.Variant) map[goble.UUID][]byte {
	raw, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return nil
	}
	out := make(map[goble.UUID][]byte, len(raw))
	for k, vv := range raw {
		u, err := goble.ParseUUID(k)
		if err != nil {
			continue
		}
		if b, ok := vv.Value().([]byte); ok {
			out[u] = b
		}
	}
	return out
}

func deviceToAdvertisement(props map[string]dbus.Variant) (goble.Device, goble.AdvertisementData) {
	addr := variantString(props["Address"])
	name := variantString(props["Name"])
	adv := goble.AdvertisementData{
		LocalName: variantString(props["Name"]),
		RSSI:      variantInt16(props["RSSI"]),
	}
	for _, s := range variantUUIDs(props["UUIDs"]) {
		if u, err := goble.ParseUUID(s); err == nil {
			adv.ServiceUUIDs = append(adv.ServiceUUIDs, u)
		}
	}
	if md, ok := props["ManufacturerData"]; ok {
		adv.ManufacturerData = variantManufacturerData(md)
	}
	if sd, ok := props["ServiceData"]; ok {
		adv.ServiceData = variantServiceData(sd)
	}
	return goble.Device{Address: addr, Name: name}, adv
}

// ScannerBackend implements goble.ScannerBackend over BlueZ discovery.
type ScannerBackend struct {
	conn *dbus.Conn

	mu         sync.Mutex
	adapter    dbus.ObjectPath
	signalCh   chan *dbus.Signal
	cancelScan context.CancelFunc
}

// NewScannerBackend dials the system bus and locates the default
// adapter.
func NewScannerBackend() (*ScannerBackend, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, goble.NewOSError(0, err)
	}
	objects, err := getManagedObjects(conn)
	if err != nil {
		return nil, goble.NewOSError(0, err)
	}
	adapter, err := firstAdapterPath(objects)
	if err != nil {
		return nil, err
	}
	return &ScannerBackend{conn: conn, adapter: adapter}, nil
}

func (b *ScannerBackend) Start(ctx context.Context, opts goble.ScanOptions, deliver func(goble.AdvertisementEvent)) error {
	if opts.Mode == goble.ScanPassive {
		// Passive scanning needs the AdvertisementMonitor1 API (BlueZ >=
		// 5.55); this backend sticks to Adapter1.StartDiscovery, which is
		// always an active scan from BlueZ's point of view.
		return goble.NewOSError(0, fmt.Errorf("bluez: passive scan requires advertisement-monitor support, not implemented"))
	}

	adapterObj := b.conn.Object(busName, b.adapter)

	if len(opts.ServiceUUIDs) > 0 {
		uuidStrs := make([]string, len(opts.ServiceUUIDs))
		for i, u := range opts.ServiceUUIDs {
			uuidStrs[i] = u.String()
		}
		filter := map[string]dbus.Variant{"UUIDs": dbus.MakeVariant(uuidStrs)}
		adapterObj.Call(ifaceAdapter+".SetDiscoveryFilter", 0, filter)
	}

	if err := adapterObj.CallWithContext(ctx, ifaceAdapter+".StartDiscovery", 0).Err; err != nil {
		return goble.NewOSError(0, fmt.Errorf("bluez: StartDiscovery: %w", err))
	}

	if err := b.conn.AddMatchSignal(dbus.WithMatchInterface(ifaceProperties)); err != nil {
		return goble.NewOSError(0, err)
	}
	if err := b.conn.AddMatchSignal(dbus.WithMatchInterface(ifaceObjectMgr)); err != nil {
		return goble.NewOSError(0, err)
	}

	sigCh := make(chan *dbus.Signal, 64)
	b.conn.Signal(sigCh)

	scanCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.signalCh = sigCh
	b.cancelScan = cancel
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-scanCtx.Done():
				return
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				b.handleSignal(sig, deliver)
			}
		}
	}()
	return nil
}

func (b *ScannerBackend) handleSignal(sig *dbus.Signal, deliver func(goble.AdvertisementEvent)) {
	switch sig.Name {
	case ifaceObjectMgr + ".InterfacesAdded":
		if len(sig.Body) < 2 {
			return
		}
		ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
		if !ok {
			return
		}
		props, ok := ifaces[ifaceDevice]
		if !ok {
			return
		}
		device, adv := deviceToAdvertisement(props)
		deliver(goble.AdvertisementEvent{Device: device, Advertisement: adv})
	case ifaceProperties + ".PropertiesChanged":
		if !strings.Contains(string(sig.Path), "/dev_") {
			return
		}
		if len(sig.Body) < 2 {
			return
		}
		iface, ok := sig.Body[0].(string)
		if !ok || iface != ifaceDevice {
			return
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return
		}
		device, adv := deviceToAdvertisement(changed)
		if device.Address == "" {
			return
		}
		deliver(goble.AdvertisementEvent{Device: device, Advertisement: adv})
	}
}

func (b *ScannerBackend) Stop(ctx context.Context) error {
	b.mu.Lock()
	cancel := b.cancelScan
	sigCh := b.signalCh
	b.signalCh = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sigCh != nil {
		b.conn.RemoveSignal(sigCh)
		close(sigCh)
	}

	adapterObj := b.conn.Object(busName, b.adapter)
	if err := adapterObj.CallWithContext(ctx, ifaceAdapter+".StopDiscovery", 0).Err; err != nil {
		return goble.NewOSError(0, fmt.Errorf("bluez: StopDiscovery: %w", err))
	}
	return nil
}

// ClientBackend implements goble.ClientBackend against one BlueZ Device1
// object and its cached GATT sub-tree.
type ClientBackend struct {
	conn       *dbus.Conn
	devicePath dbus.ObjectPath
	adapter    dbus.ObjectPath
	address    string

	mu           sync.Mutex
	connected    bool
	disconnectCB func(error)
	sigCh        chan *dbus.Signal
	cancelWatch  context.CancelFunc

	pathToHandle map[dbus.ObjectPath]goble.Handle
	handleToPath map[goble.Handle]dbus.ObjectPath
	nextHandle   goble.Handle

	notifyMu  sync.Mutex
	notifyCBs map[goble.Handle]func([]byte)
}

// NewClientBackend resolves target's address to a BlueZ device object
// path via the object-manager cache.
func NewClientBackend(target goble.ConnectTarget, opts goble.ClientOptions) (*ClientBackend, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, goble.NewOSError(0, err)
	}
	objects, err := getManagedObjects(conn)
	if err != nil {
		return nil, goble.NewOSError(0, err)
	}
	adapter, err := firstAdapterPath(objects)
	if err != nil {
		return nil, err
	}

	address := target.Address
	if target.Device != nil && target.Device.Address != "" {
		address = target.Device.Address
	}

	var devicePath dbus.ObjectPath
	for path, ifaces := range objects {
		props, ok := ifaces[ifaceDevice]
		if !ok {
			continue
		}
		if variantString(props["Address"]) == address {
			devicePath = path
			break
		}
	}
	if devicePath == "" {
		return nil, goble.ErrDeviceNotFound
	}

	return &ClientBackend{
		conn:         conn,
		devicePath:   devicePath,
		adapter:      adapter,
		address:      address,
		pathToHandle: make(map[dbus.ObjectPath]goble.Handle),
		handleToPath: make(map[goble.Handle]dbus.ObjectPath),
		notifyCBs:    make(map[goble.Handle]func([]byte)),
	}, nil
}

func (b *ClientBackend) deviceObj() dbus.BusObject {
	return b.conn.Object(busName, b.devicePath)
}

func (b *ClientBackend) allocHandle(path dbus.ObjectPath) goble.Handle {
	if h, ok := b.pathToHandle[path]; ok {
		return h
	}
	b.nextHandle++
	h := b.nextHandle
	b.pathToHandle[path] = h
	b.handleToPath[h] = path
	return h
}

func (b *ClientBackend) Connect(ctx context.Context, pair bool) (*goble.Collection, error) {
	if pair {
		if err := b.pairWithAgent(ctx, nil); err != nil {
			return nil, err
		}
	}

	if err := b.deviceObj().CallWithContext(ctx, ifaceDevice+".Connect", 0).Err; err != nil {
		return nil, goble.NewOSError(0, fmt.Errorf("bluez: Device1.Connect: %w", err))
	}

	if err := b.waitServicesResolved(ctx); err != nil {
		b.deviceObj().Call(ifaceDevice+".Disconnect", 0)
		return nil, err
	}

	col, err := b.discoverGATT(ctx)
	if err != nil {
		b.deviceObj().Call(ifaceDevice+".Disconnect", 0)
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan *dbus.Signal, 64)
	b.conn.Signal(sigCh)
	b.conn.AddMatchSignal(dbus.WithMatchInterface(ifaceProperties))

	b.mu.Lock()
	b.connected = true
	b.sigCh = sigCh
	b.cancelWatch = cancel
	b.mu.Unlock()

	go b.watchSignals(watchCtx, sigCh)

	return col, nil
}

func (b *ClientBackend) waitServicesResolved(ctx context.Context) error {
	for i := 0; i < 50; i++ {
		var resolved dbus.Variant
		err := b.deviceObj().CallWithContext(ctx, ifaceProperties+".Get", 0, ifaceDevice, servicesResolved).Store(&resolved)
		if err == nil {
			if v, ok := resolved.Value().(bool); ok && v {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return goble.NewOSError(0, fmt.Errorf("bluez: services never resolved"))
}

func (b *ClientBackend) discoverGATT(ctx context.Context) (*goble.Collection, error) {
	objects, err := getManagedObjects(b.conn)
	if err != nil {
		return nil, goble.NewOSError(0, err)
	}

	col := goble.NewCollection(0)
	prefix := string(b.devicePath) + "/"
	var mtu uint16

	var svcPaths []dbus.ObjectPath
	for path, ifaces := range objects {
		if _, ok := ifaces[ifaceGattService]; ok && strings.HasPrefix(string(path), prefix) {
			svcPaths = append(svcPaths, path)
		}
	}
	sort.Slice(svcPaths, func(i, j int) bool { return svcPaths[i] < svcPaths[j] })

	for _, svcPath := range svcPaths {
		svcProps := objects[svcPath][ifaceGattService]
		svcUUID, err := goble.ParseUUID(variantString(svcProps["UUID"]))
		if err != nil {
			continue
		}
		svcHandle := b.allocHandle(svcPath)
		if err := col.AddService(&goble.Service{Handle: svcHandle, UUID: svcUUID}); err != nil {
			return nil, err
		}

		var charPaths []dbus.ObjectPath
		for path, ifaces := range objects {
			if _, ok := ifaces[ifaceGattChar]; ok && strings.HasPrefix(string(path), string(svcPath)+"/") {
				charPaths = append(charPaths, path)
			}
		}
		sort.Slice(charPaths, func(i, j int) bool { return charPaths[i] < charPaths[j] })

		for _, charPath := range charPaths {
			charProps := objects[charPath][ifaceGattChar]
			charUUID, err := goble.ParseUUID(variantString(charProps["UUID"]))
			if err != nil {
				continue
			}
			charHandle := b.allocHandle(charPath)
			props := parseFlags(charProps["Flags"])
			if err := col.AddCharacteristic(&goble.Characteristic{
				Handle:        charHandle,
				UUID:          charUUID,
				Properties:    props,
				ServiceHandle: svcHandle,
			}); err != nil {
				return nil, err
			}
			// MTU lives on GattCharacteristic1, not Device1 — BlueZ reports
			// the connection-wide negotiated MTU from whichever
			// characteristic object happens to expose it first.
			if mtu == 0 {
				if v, ok := charProps["MTU"]; ok {
					if n := variantUint16(v); n > 0 {
						mtu = n
					}
				}
			}

			for path, ifaces := range objects {
				descProps, ok := ifaces[ifaceGattDesc]
				if !ok || !strings.HasPrefix(string(path), string(charPath)+"/") {
					continue
				}
				descUUID, err := goble.ParseUUID(variantString(descProps["UUID"]))
				if err != nil {
					continue
				}
				descHandle := b.allocHandle(path)
				col.AddDescriptor(&goble.Descriptor{Handle: descHandle, UUID: descUUID, CharacteristicHandle: charHandle})
			}
		}
	}

	if mtu > 0 {
		col.SetMTU(mtu)
	}
	return col, nil
}

func parseFlags(v dbus.Variant) goble.PropertyFlag {
	flags, _ := v.Value().([]string)
	var out goble.PropertyFlag
	for _, f := range flags {
		switch f {
		case "broadcast":
			out |= goble.PropertyBroadcast
		case "read":
			out |= goble.PropertyRead
		case "write-without-response":
			out |= goble.PropertyWriteWithoutResponse
		case "write":
			out |= goble.PropertyWrite
		case "notify":
			out |= goble.PropertyNotify
		case "indicate":
			out |= goble.PropertyIndicate
		case "authenticated-signed-writes":
			out |= goble.PropertyAuthenticatedSignedWrites
		case "reliable-write":
			out |= goble.PropertyReliableWrite
		case "writable-auxiliaries":
			out |= goble.PropertyWritableAuxiliaries
		}
	}
	return out
}

func (b *ClientBackend) watchSignals(ctx context.Context, sigCh chan *dbus.Signal) {
	prefix := string(b.devicePath)
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}
			if sig.Name != ifaceProperties+".PropertiesChanged" || !strings.HasPrefix(string(sig.Path), prefix) {
				continue
			}
			if strings.HasPrefix(string(sig.Path), prefix) && sig.Path == b.devicePath {
				b.handleDeviceProperties(sig)
				continue
			}
			b.handleCharProperties(sig)
		}
	}
}

func (b *ClientBackend) handleDeviceProperties(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}
	if v, ok := changed["Connected"]; ok {
		if connected, ok := v.Value().(bool); ok && !connected {
			b.mu.Lock()
			b.connected = false
			cb := b.disconnectCB
			b.mu.Unlock()
			if cb != nil {
				cb(nil)
			}
		}
	}
}

func (b *ClientBackend) handleCharProperties(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}
	v, ok := changed["Value"]
	if !ok {
		return
	}
	data, ok := v.Value().([]byte)
	if !ok {
		return
	}
	b.mu.Lock()
	h, ok := b.pathToHandle[sig.Path]
	b.mu.Unlock()
	if !ok {
		return
	}
	b.notifyMu.Lock()
	cb := b.notifyCBs[h]
	b.notifyMu.Unlock()
	if cb != nil {
		cb(data)
	}
}

func (b *ClientBackend) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return nil
	}
	b.connected = false
	cancel := b.cancelWatch
	sigCh := b.sigCh
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sigCh != nil {
		b.conn.RemoveSignal(sigCh)
		close(sigCh)
	}
	b.notifyMu.Lock()
	b.notifyCBs = make(map[goble.Handle]func([]byte))
	b.notifyMu.Unlock()

	if err := b.deviceObj().CallWithContext(ctx, ifaceDevice+".Disconnect", 0).Err; err != nil {
		return goble.NewOSError(0, err)
	}
	return nil
}

func (b *ClientBackend) SetDisconnectCallback(cb func(error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnectCB = cb
}

func (b *ClientBackend) charObj(h goble.Handle) (dbus.BusObject, error) {
	b.mu.Lock()
	path, ok := b.handleToPath[h]
	b.mu.Unlock()
	if !ok {
		return nil, goble.ErrCharacteristicNotFound
	}
	return b.conn.Object(busName, path), nil
}

func (b *ClientBackend) ReadCharacteristic(ctx context.Context, ch *goble.Characteristic, useCached bool) ([]byte, error) {
	obj, err := b.charObj(ch.Handle)
	if err != nil {
		return nil, err
	}
	var value []byte
	// BlueZ has no cached-read option; useCached is accepted and ignored,
	// per the backend contract's documented per-OS caveat.
	call := obj.CallWithContext(ctx, ifaceGattChar+".ReadValue", 0, map[string]dbus.Variant{})
	if call.Err != nil {
		return nil, goble.NewOSError(0, call.Err)
	}
	if err := call.Store(&value); err != nil {
		return nil, goble.NewOSError(0, err)
	}
	return value, nil
}

func (b *ClientBackend) WriteCharacteristic(ctx context.Context, ch *goble.Characteristic, data []byte, withResponse bool) error {
	obj, err := b.charObj(ch.Handle)
	if err != nil {
		return err
	}
	opts := map[string]dbus.Variant{}
	if !withResponse {
		opts["type"] = dbus.MakeVariant("command")
	} else {
		opts["type"] = dbus.MakeVariant("request")
	}
	call := obj.CallWithContext(ctx, ifaceGattChar+".WriteValue", 0, data, opts)
	if call.Err != nil {
		return goble.NewOSError(0, call.Err)
	}
	return nil
}

func (b *ClientBackend) descObj(h goble.Handle) (dbus.BusObject, error) {
	b.mu.Lock()
	path, ok := b.handleToPath[h]
	b.mu.Unlock()
	if !ok {
		return nil, goble.ErrDescriptorNotFound
	}
	return b.conn.Object(busName, path), nil
}

func (b *ClientBackend) ReadDescriptor(ctx context.Context, d *goble.Descriptor) ([]byte, error) {
	obj, err := b.descObj(d.Handle)
	if err != nil {
		return nil, err
	}
	var value []byte
	call := obj.CallWithContext(ctx, ifaceGattDesc+".ReadValue", 0, map[string]dbus.Variant{})
	if call.Err != nil {
		return nil, goble.NewOSError(0, call.Err)
	}
	if err := call.Store(&value); err != nil {
		return nil, goble.NewOSError(0, err)
	}
	return value, nil
}

func (b *ClientBackend) WriteDescriptor(ctx context.Context, d *goble.Descriptor, data []byte) error {
	obj, err := b.descObj(d.Handle)
	if err != nil {
		return err
	}
	call := obj.CallWithContext(ctx, ifaceGattDesc+".WriteValue", 0, data, map[string]dbus.Variant{})
	if call.Err != nil {
		return goble.NewOSError(0, call.Err)
	}
	return nil
}

// StartNotify always uses the StartNotify property-signal path rather
// than AcquireNotify: the fast file-descriptor path trades away the
// S6 guarantee (a notification the peripheral emits before its CCCD
// write completes must still reach the callback), which StartNotify's
// PropertiesChanged delivery preserves because BlueZ queues the signal
// regardless of when the write reply arrives.
func (b *ClientBackend) StartNotify(ctx context.Context, ch *goble.Characteristic, forceIndicate bool, cb func([]byte)) error {
	obj, err := b.charObj(ch.Handle)
	if err != nil {
		return err
	}
	b.notifyMu.Lock()
	b.notifyCBs[ch.Handle] = cb
	b.notifyMu.Unlock()

	if call := obj.CallWithContext(ctx, ifaceGattChar+".StartNotify", 0); call.Err != nil {
		b.notifyMu.Lock()
		delete(b.notifyCBs, ch.Handle)
		b.notifyMu.Unlock()
		return goble.NewOSError(0, call.Err)
	}
	return nil
}

func (b *ClientBackend) StopNotify(ctx context.Context, ch *goble.Characteristic) error {
	obj, err := b.charObj(ch.Handle)
	if err != nil {
		return err
	}
	b.notifyMu.Lock()
	delete(b.notifyCBs, ch.Handle)
	b.notifyMu.Unlock()

	if call := obj.CallWithContext(ctx, ifaceGattChar+".StopNotify", 0); call.Err != nil {
		return goble.NewOSError(0, call.Err)
	}
	return nil
}

func (b *ClientBackend) Pair(ctx context.Context, agent goble.PairingAgent) error {
	return b.pairWithAgent(ctx, agent)
}

// pairWithAgent registers a per-pairing org.bluez.Agent1 object (routing
// its callbacks through agent; when agent is nil, confirmation and
// authorization requests are accepted and PIN/passkey requests are
// rejected) before calling Device1.Pair, and always unregisters
// it afterward regardless of outcome.
func (b *ClientBackend) pairWithAgent(ctx context.Context, agent goble.PairingAgent) error {
	device := goble.Device{Address: b.address}
	cleanup, err := registerAgent(b.conn, agent, ctx, func(dbus.ObjectPath) goble.Device { return device })
	if err != nil {
		return goble.ErrPairingFailed.WithCause(err)
	}
	defer cleanup()

	if err := b.deviceObj().CallWithContext(ctx, ifaceDevice+".Pair", 0).Err; err != nil {
		return goble.ErrPairingFailed.WithCause(err)
	}
	return nil
}

// Unpair removes the bond by removing the device object from the
// adapter — BlueZ has no standalone "unpair" call; RemoveDevice both
// forgets the pairing and drops the cached object tree.
func (b *ClientBackend) Unpair(ctx context.Context) error {
	adapterObj := b.conn.Object(busName, b.adapter)
	if err := adapterObj.CallWithContext(ctx, ifaceAdapter+".RemoveDevice", 0, b.devicePath).Err; err != nil {
		return goble.NewOSError(0, err)
	}
	return nil
}

func (b *ClientBackend) Name() string {
	var name dbus.Variant
	if err := b.deviceObj().Call(ifaceProperties+".Get", 0, ifaceDevice, "Alias").Store(&name); err != nil {
		return ""
	}
	return variantString(name)
}
