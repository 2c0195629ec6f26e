//go:build windows

// Package winrt implements the goble.ScannerBackend and
// goble.ClientBackend contracts on top of Windows Runtime's
// Devices.Bluetooth APIs via github.com/saltosystems/winrt-go.
package winrt

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/saltosystems/winrt-go"
	"github.com/saltosystems/winrt-go/windows/devices/bluetooth"
	"github.com/saltosystems/winrt-go/windows/devices/bluetooth/advertisement"
	"github.com/saltosystems/winrt-go/windows/devices/bluetooth/genericattributeprofile"
	"github.com/saltosystems/winrt-go/windows/devices/enumeration"
	"github.com/saltosystems/winrt-go/windows/foundation"
	"github.com/saltosystems/winrt-go/windows/storage/streams"

	"github.com/gable-project/goble"
)

var initOnce sync.Once
var initErr error

func ensureInit() error {
	initOnce.Do(func() {
		initErr = winrt.RoInitialize(1) // RO_INIT_MULTITHREADED
	})
	return initErr
}

// awaitOperation polls an IAsyncOperation to completion or ctx
// cancellation. winrt-go exposes no native future/channel bridge for
// IAsyncOperation, so every blocking WinRT call in this backend goes
// through this helper rather than a bespoke one per call site.
func awaitOperation(ctx context.Context, op foundation.IAsyncOperationer) (any, error) {
	for {
		status, err := op.GetStatus()
		if err != nil {
			return nil, err
		}
		switch status {
		case foundation.AsyncStatusCompleted:
			return op.GetResults()
		case foundation.AsyncStatusError:
			return nil, fmt.Errorf("winrt: async operation failed")
		case foundation.AsyncStatusCanceled:
			return nil, fmt.Errorf("winrt: async operation canceled")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func addressToUint64(addr string) (uint64, error) {
	parts := strings.Split(addr, ":")
	if len(parts) != 6 {
		return 0, fmt.Errorf("winrt: malformed address %q", addr)
	}
	var out uint64
	for i := 0; i < 6; i++ {
		var b uint64
		if _, err := fmt.Sscanf(parts[i], "%x", &b); err != nil {
			return 0, fmt.Errorf("winrt: malformed address %q: %w", addr, err)
		}
		out |= b << (8 * (5 - i))
	}
	return out, nil
}

func uint64ToAddress(a uint64) string {
	b := make([]string, 6)
	for i := 0; i < 6; i++ {
		b[5-i] = fmt.Sprintf("%02X", byte(a>>(8*i)))
	}
	return strings.Join(b, ":")
}

// ScannerBackend implements goble.ScannerBackend with a
// BluetoothLEAdvertisementWatcher.
type ScannerBackend struct {
	watcher *advertisement.BluetoothLEAdvertisementWatcher
	token   foundation.EventRegistrationToken
}

func NewScannerBackend() (*ScannerBackend, error) {
	if err := ensureInit(); err != nil {
		return nil, goble.NewOSError(0, err)
	}
	return &ScannerBackend{}, nil
}

func (b *ScannerBackend) Start(ctx context.Context, opts goble.ScanOptions, deliver func(goble.AdvertisementEvent)) error {
	watcher, err := advertisement.NewBluetoothLEAdvertisementWatcher()
	if err != nil {
		return goble.NewOSError(0, err)
	}
	b.watcher = watcher

	mode := advertisement.BluetoothLEScanningModeActive
	if opts.Mode == goble.ScanPassive {
		mode = advertisement.BluetoothLEScanningModePassive
	}
	if err := watcher.SetScanningMode(mode); err != nil {
		return goble.NewOSError(0, err)
	}

	token, err := watcher.AddReceived(func(_ *advertisement.BluetoothLEAdvertisementWatcher, args *advertisement.BluetoothLEAdvertisementReceivedEventArgs) {
		b.handleReceived(args, deliver)
	})
	if err != nil {
		return goble.NewOSError(0, err)
	}
	b.token = token

	if err := watcher.Start(); err != nil {
		return goble.NewOSError(0, fmt.Errorf("winrt: watcher.Start: %w", err))
	}
	return nil
}

func (b *ScannerBackend) handleReceived(args *advertisement.BluetoothLEAdvertisementReceivedEventArgs, deliver func(goble.AdvertisementEvent)) {
	addr, err := args.GetBluetoothAddress()
	if err != nil {
		return
	}
	rssi, _ := args.GetRawSignalStrengthInDBm()
	adv, err := args.GetAdvertisement()
	if err != nil {
		return
	}
	localName, _ := adv.GetLocalName()

	device := goble.Device{Address: uint64ToAddress(addr), Name: localName}
	data := goble.AdvertisementData{LocalName: localName, RSSI: rssi}

	if uuids, err := adv.GetServiceUuids(); err == nil {
		for _, g := range uuids {
			if u, err := goble.ParseUUID(g.String()); err == nil {
				data.ServiceUUIDs = append(data.ServiceUUIDs, u)
			}
		}
	}

	deliver(goble.AdvertisementEvent{Device: device, Advertisement: data})
}

func (b *ScannerBackend) Stop(ctx context.Context) error {
	if b.watcher == nil {
		return nil
	}
	b.watcher.RemoveReceived(b.token)
	if err := b.watcher.Stop(); err != nil {
		return goble.NewOSError(0, err)
	}
	return nil
}

// ClientBackend implements goble.ClientBackend against one
// BluetoothLEDevice and its GATT service tree.
type ClientBackend struct {
	device  *bluetooth.BluetoothLEDevice
	session *genericattributeprofile.GattSession

	mu           sync.Mutex
	disconnectCB func(error)
	statusToken  foundation.EventRegistrationToken
	sessionToken foundation.EventRegistrationToken

	pathToHandle map[string]goble.Handle
	handleToObj  map[goble.Handle]*genericattributeprofile.GattCharacteristic
	descHandles  map[goble.Handle]*genericattributeprofile.GattDescriptor
	nextHandle   goble.Handle

	notifyMu  sync.Mutex
	notifyCBs map[goble.Handle]func([]byte)
}

func NewClientBackend(target goble.ConnectTarget, opts goble.ClientOptions) (*ClientBackend, error) {
	if err := ensureInit(); err != nil {
		return nil, goble.NewOSError(0, err)
	}
	address := target.Address
	if target.Device != nil && target.Device.Address != "" {
		address = target.Device.Address
	}
	addr, err := addressToUint64(address)
	if err != nil {
		return nil, goble.ErrDeviceNotFound.WithCause(err)
	}

	statics, err := bluetooth.GetBluetoothLEDeviceStatics()
	if err != nil {
		return nil, goble.NewOSError(0, err)
	}
	op, err := statics.FromBluetoothAddressAsync(addr)
	if err != nil {
		return nil, goble.NewOSError(0, err)
	}
	result, err := awaitOperation(context.Background(), op)
	if err != nil {
		return nil, goble.ErrDeviceNotFound.WithCause(err)
	}
	device, ok := result.(*bluetooth.BluetoothLEDevice)
	if !ok || device == nil {
		return nil, goble.ErrDeviceNotFound
	}

	return &ClientBackend{
		device:       device,
		pathToHandle: make(map[string]goble.Handle),
		handleToObj:  make(map[goble.Handle]*genericattributeprofile.GattCharacteristic),
		descHandles:  make(map[goble.Handle]*genericattributeprofile.GattDescriptor),
		notifyCBs:    make(map[goble.Handle]func([]byte)),
	}, nil
}

func (b *ClientBackend) allocHandle(key string) goble.Handle {
	if h, ok := b.pathToHandle[key]; ok {
		return h
	}
	b.nextHandle++
	b.pathToHandle[key] = b.nextHandle
	return b.nextHandle
}

// Connect opens a GattSession with MaintainConnection set, which is what
// actually keeps the device connected on Windows — there is no explicit
// "connect" call, only ownership of a session that outlives individual
// GATT operations — then discovers the GATT tree. WinRT can fire a
// GattServicesChanged event mid-discovery; per the documented retry rule
// this loops rediscovery until two consecutive passes agree.
func (b *ClientBackend) Connect(ctx context.Context, pair bool) (*goble.Collection, error) {
	if pair {
		if err := b.pairDefault(ctx, nil); err != nil {
			return nil, err
		}
	}

	if err := b.openSession(ctx); err != nil {
		return nil, err
	}

	var prev []string
	for attempt := 0; attempt < 5; attempt++ {
		col, names, err := b.discoverOnce(ctx)
		if err != nil {
			return nil, err
		}
		if attempt > 0 && sameServiceSet(prev, names) {
			b.watchConnectionStatus()
			return col, nil
		}
		prev = names
	}
	return nil, goble.NewOSError(0, fmt.Errorf("winrt: GATT discovery did not stabilize"))
}

// openSession starts the GattSession that represents a "true connect" on
// WinRT (spec: §4.6). MaintainConnection=true keeps the LE link up for as
// long as this backend holds the session; Disconnect drops it by setting
// MaintainConnection back to false and closing the session.
func (b *ClientBackend) openSession(ctx context.Context) error {
	deviceID, err := b.device.GetDeviceId()
	if err != nil {
		return goble.NewOSError(0, err)
	}
	statics, err := genericattributeprofile.GetGattSessionStatics()
	if err != nil {
		return goble.NewOSError(0, err)
	}
	op, err := statics.FromDeviceIdAsync(deviceID)
	if err != nil {
		return goble.NewOSError(0, err)
	}
	result, err := awaitOperation(ctx, op)
	if err != nil {
		return goble.NewOSError(0, err)
	}
	session, ok := result.(*genericattributeprofile.GattSession)
	if !ok || session == nil {
		return goble.NewOSError(0, fmt.Errorf("winrt: unexpected session result type"))
	}

	canMaintain, err := session.GetCanMaintainConnection()
	if err == nil && !canMaintain {
		return goble.NewOSError(0, fmt.Errorf("winrt: device does not support GATT sessions"))
	}
	if err := session.SetMaintainConnection(true); err != nil {
		return goble.NewOSError(0, err)
	}

	token, err := session.AddSessionStatusChanged(func(sess *genericattributeprofile.GattSession, _ *genericattributeprofile.GattSessionStatusChangedEventArgs) {
		status, err := sess.GetSessionStatus()
		if err != nil {
			return
		}
		if status == genericattributeprofile.GattSessionStatusClosed {
			b.mu.Lock()
			cb := b.disconnectCB
			b.mu.Unlock()
			if cb != nil {
				cb(nil)
			}
		}
	})
	if err == nil {
		b.sessionToken = token
	}

	b.session = session
	return nil
}

// negotiatedMTU reports the ATT MTU WinRT negotiated for the session,
// falling back to the default ATT MTU (23) if the session hasn't reported
// one yet.
func (b *ClientBackend) negotiatedMTU() uint16 {
	if b.session == nil {
		return 23
	}
	pdu, err := b.session.GetMaxPduSize()
	if err != nil || pdu == 0 {
		return 23
	}
	// MaxPduSize is the negotiated ATT MTU itself.
	return uint16(pdu)
}

func sameServiceSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (b *ClientBackend) discoverOnce(ctx context.Context) (*goble.Collection, []string, error) {
	op, err := b.device.GetGattServicesAsync()
	if err != nil {
		return nil, nil, goble.NewOSError(0, err)
	}
	result, err := awaitOperation(ctx, op)
	if err != nil {
		return nil, nil, goble.NewOSError(0, err)
	}
	svcResult, _ := result.(*genericattributeprofile.GattDeviceServicesResult)
	if svcResult == nil {
		return nil, nil, goble.NewOSError(0, fmt.Errorf("winrt: unexpected services result type"))
	}
	services, err := svcResult.GetServices()
	if err != nil {
		return nil, nil, goble.NewOSError(0, err)
	}

	col := goble.NewCollection(b.negotiatedMTU())
	var names []string

	for _, svc := range services {
		uuidStr, err := svc.GetUuid()
		if err != nil {
			continue
		}
		svcUUID, err := goble.ParseUUID(uuidStr.String())
		if err != nil {
			continue
		}
		names = append(names, uuidStr.String())
		svcHandle := b.allocHandle("svc:" + uuidStr.String())
		col.AddService(&goble.Service{Handle: svcHandle, UUID: svcUUID})

		charOp, err := svc.GetCharacteristicsAsync()
		if err != nil {
			continue
		}
		charResult, err := awaitOperation(ctx, charOp)
		if err != nil {
			continue
		}
		gcr, _ := charResult.(*genericattributeprofile.GattCharacteristicsResult)
		if gcr == nil {
			continue
		}
		chars, err := gcr.GetCharacteristics()
		if err != nil {
			continue
		}
		for _, ch := range chars {
			chUUIDStr, err := ch.GetUuid()
			if err != nil {
				continue
			}
			chUUID, err := goble.ParseUUID(chUUIDStr.String())
			if err != nil {
				continue
			}
			chHandle := b.allocHandle("char:" + chUUIDStr.String())
			b.handleToObj[chHandle] = ch
			props, _ := ch.GetCharacteristicProperties()
			col.AddCharacteristic(&goble.Characteristic{
				Handle:        chHandle,
				UUID:          chUUID,
				Properties:    winrtPropsToFlags(props),
				ServiceHandle: svcHandle,
			})

			descOp, err := ch.GetDescriptorsAsync()
			if err != nil {
				continue
			}
			descResult, err := awaitOperation(ctx, descOp)
			if err != nil {
				continue
			}
			gdr, _ := descResult.(*genericattributeprofile.GattDescriptorsResult)
			if gdr == nil {
				continue
			}
			descs, err := gdr.GetDescriptors()
			if err != nil {
				continue
			}
			for _, d := range descs {
				dUUIDStr, err := d.GetUuid()
				if err != nil {
					continue
				}
				dUUID, err := goble.ParseUUID(dUUIDStr.String())
				if err != nil {
					continue
				}
				dHandle := b.allocHandle("desc:" + dUUIDStr.String())
				b.descHandles[dHandle] = d
				col.AddDescriptor(&goble.Descriptor{Handle: dHandle, UUID: dUUID, CharacteristicHandle: chHandle})
			}
		}
	}
	return col, names, nil
}

// winrtPropsToFlags maps GattCharacteristicProperties bit values (as
// defined by the WinRT enum, which is bit-for-bit the BLE spec's ATT
// property byte) onto goble.PropertyFlag.
func winrtPropsToFlags(props genericattributeprofile.GattCharacteristicProperties) goble.PropertyFlag {
	return goble.PropertyFlag(props)
}

// pairDefault attempts the highest DevicePairingProtectionLevel first and
// descends on ProtectionLevelCouldNotBeMet (spec §4.2/§4.6), routing the
// ceremony through agent via a DeviceInformationCustomPairing handler — a
// nil agent accepts every pairing request, matching "just works" pairing
// with no application-level agent registered.
func (b *ClientBackend) pairDefault(ctx context.Context, agent goble.PairingAgent) error {
	info, err := b.device.GetDeviceInformation()
	if err != nil {
		return goble.ErrPairingFailed.WithCause(err)
	}
	pairing, err := info.GetPairing()
	if err != nil {
		return goble.ErrPairingFailed.WithCause(err)
	}
	if alreadyPaired, err := pairing.GetIsPaired(); err == nil && alreadyPaired {
		return nil
	}
	if canPair, err := pairing.GetCanPair(); err == nil && !canPair {
		return goble.ErrPairingFailed.WithCause(fmt.Errorf("winrt: device does not support pairing"))
	}

	custom, err := pairing.GetCustom()
	if err != nil {
		return goble.ErrPairingFailed.WithCause(err)
	}
	device := goble.Device{Address: b.Name()}
	token, err := custom.AddPairingRequested(func(_ *enumeration.DeviceInformationCustomPairing, args *enumeration.DevicePairingRequestedEventArgs) {
		b.handlePairingRequested(ctx, agent, device, args)
	})
	if err == nil {
		defer custom.RemovePairingRequested(token)
	}

	levels := []enumeration.DevicePairingProtectionLevel{
		enumeration.DevicePairingProtectionLevelEncryptionAndAuthentication,
		enumeration.DevicePairingProtectionLevelEncryption,
	}
	var lastErr error
	for _, level := range levels {
		op, err := custom.PairWithProtectionLevelAsync(enumeration.DevicePairingKindsConfirmOnly, level)
		if err != nil {
			return goble.ErrPairingFailed.WithCause(err)
		}
		result, err := awaitOperation(ctx, op)
		if err != nil {
			return goble.ErrPairingFailed.WithCause(err)
		}
		pr, _ := result.(*enumeration.DevicePairingResult)
		if pr == nil {
			return goble.ErrPairingFailed
		}
		status, err := pr.GetStatus()
		if err != nil {
			return goble.ErrPairingFailed.WithCause(err)
		}
		if status == enumeration.DevicePairingResultStatusPaired {
			return nil
		}
		if status != enumeration.DevicePairingResultStatusProtectionLevelCouldNotBeMet {
			return goble.ErrPairingFailed.WithCause(fmt.Errorf("winrt: pairing failed with status %v", status))
		}
		lastErr = fmt.Errorf("winrt: protection level %v could not be met", level)
	}
	return goble.ErrPairingFailed.WithCause(lastErr)
}

// handlePairingRequested dispatches one DeviceInformationCustomPairing
// ceremony step to agent, accepting automatically when agent is nil.
func (b *ClientBackend) handlePairingRequested(ctx context.Context, agent goble.PairingAgent, device goble.Device, args *enumeration.DevicePairingRequestedEventArgs) {
	kind, err := args.GetPairingKind()
	if err != nil {
		return
	}
	if agent == nil {
		args.Accept()
		return
	}
	switch kind {
	case enumeration.DevicePairingKindsConfirmOnly:
		ok, err := agent.Confirm(ctx, device)
		if err == nil && ok {
			args.Accept()
		}
	case enumeration.DevicePairingKindsDisplayPin:
		pin, _ := args.GetPin()
		if err := agent.DisplayPin(ctx, device, pin); err == nil {
			args.Accept()
		}
	case enumeration.DevicePairingKindsConfirmPinMatch:
		pin, _ := args.GetPin()
		ok, err := agent.ConfirmPin(ctx, device, pin)
		if err == nil && ok {
			args.Accept()
		}
	case enumeration.DevicePairingKindsProvidePin:
		pin, err := agent.RequestPin(ctx, device)
		if err == nil && pin != "" {
			args.AcceptWithPin(pin)
		}
	}
}

func (b *ClientBackend) watchConnectionStatus() {
	token, err := b.device.AddConnectionStatusChanged(func(dev *bluetooth.BluetoothLEDevice, _ any) {
		status, err := dev.GetConnectionStatus()
		if err != nil {
			return
		}
		if status != bluetooth.BluetoothConnectionStatusConnected {
			b.mu.Lock()
			cb := b.disconnectCB
			b.mu.Unlock()
			if cb != nil {
				cb(nil)
			}
		}
	})
	if err == nil {
		b.statusToken = token
	}
}

func (b *ClientBackend) Disconnect(ctx context.Context) error {
	if b.statusToken != (foundation.EventRegistrationToken{}) {
		b.device.RemoveConnectionStatusChanged(b.statusToken)
	}
	if b.session != nil {
		if b.sessionToken != (foundation.EventRegistrationToken{}) {
			b.session.RemoveSessionStatusChanged(b.sessionToken)
		}
		// Dropping MaintainConnection releases WinRT's hold on the LE link;
		// Close then frees the session object itself.
		b.session.SetMaintainConnection(false)
		b.session.Close()
		b.session = nil
	}
	b.device.Close()
	return nil
}

func (b *ClientBackend) SetDisconnectCallback(cb func(error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnectCB = cb
}

func (b *ClientBackend) charObj(h goble.Handle) (*genericattributeprofile.GattCharacteristic, error) {
	ch, ok := b.handleToObj[h]
	if !ok {
		return nil, goble.ErrCharacteristicNotFound
	}
	return ch, nil
}

func (b *ClientBackend) ReadCharacteristic(ctx context.Context, ch *goble.Characteristic, useCached bool) ([]byte, error) {
	obj, err := b.charObj(ch.Handle)
	if err != nil {
		return nil, err
	}
	mode := genericattributeprofile.BluetoothCacheModeUncached
	if useCached {
		mode = genericattributeprofile.BluetoothCacheModeCached
	}
	op, err := obj.ReadValueWithCacheModeAsync(mode)
	if err != nil {
		return nil, goble.NewOSError(0, err)
	}
	result, err := awaitOperation(ctx, op)
	if err != nil {
		return nil, goble.NewOSError(0, err)
	}
	readResult, _ := result.(*genericattributeprofile.GattReadResult)
	if readResult == nil {
		return nil, goble.NewOSError(0, fmt.Errorf("winrt: unexpected read result type"))
	}
	buf, err := readResult.GetValue()
	if err != nil {
		return nil, goble.NewOSError(0, err)
	}
	return bufferToBytes(buf)
}

func (b *ClientBackend) WriteCharacteristic(ctx context.Context, ch *goble.Characteristic, data []byte, withResponse bool) error {
	obj, err := b.charObj(ch.Handle)
	if err != nil {
		return err
	}
	buf, err := bytesToBuffer(data)
	if err != nil {
		return goble.NewOSError(0, err)
	}
	writeOption := genericattributeprofile.GattWriteOptionWriteWithResponse
	if !withResponse {
		writeOption = genericattributeprofile.GattWriteOptionWriteWithoutResponse
	}
	op, err := obj.WriteValueWithOptionAsync(buf, writeOption)
	if err != nil {
		return goble.NewOSError(0, err)
	}
	if _, err := awaitOperation(ctx, op); err != nil {
		return goble.NewOSError(0, err)
	}
	return nil
}

func (b *ClientBackend) ReadDescriptor(ctx context.Context, d *goble.Descriptor) ([]byte, error) {
	obj, ok := b.descHandles[d.Handle]
	if !ok {
		return nil, goble.ErrDescriptorNotFound
	}
	op, err := obj.ReadValueAsync()
	if err != nil {
		return nil, goble.NewOSError(0, err)
	}
	result, err := awaitOperation(ctx, op)
	if err != nil {
		return nil, goble.NewOSError(0, err)
	}
	readResult, _ := result.(*genericattributeprofile.GattReadResult)
	if readResult == nil {
		return nil, goble.NewOSError(0, fmt.Errorf("winrt: unexpected read result type"))
	}
	buf, err := readResult.GetValue()
	if err != nil {
		return nil, goble.NewOSError(0, err)
	}
	return bufferToBytes(buf)
}

func (b *ClientBackend) WriteDescriptor(ctx context.Context, d *goble.Descriptor, data []byte) error {
	obj, ok := b.descHandles[d.Handle]
	if !ok {
		return goble.ErrDescriptorNotFound
	}
	buf, err := bytesToBuffer(data)
	if err != nil {
		return goble.NewOSError(0, err)
	}
	op, err := obj.WriteValueAsync(buf)
	if err != nil {
		return goble.NewOSError(0, err)
	}
	if _, err := awaitOperation(ctx, op); err != nil {
		return goble.NewOSError(0, err)
	}
	return nil
}

// StartNotify prefers Notify over Indicate unless forceIndicate is set,
// the WinRT-specific knob named directly in the backend contract.
func (b *ClientBackend) StartNotify(ctx context.Context, ch *goble.Characteristic, forceIndicate bool, cb func([]byte)) error {
	obj, err := b.charObj(ch.Handle)
	if err != nil {
		return err
	}
	cccValue := genericattributeprofile.GattClientCharacteristicConfigurationDescriptorValueNotify
	if forceIndicate && ch.Properties.Has(goble.PropertyIndicate) {
		cccValue = genericattributeprofile.GattClientCharacteristicConfigurationDescriptorValueIndicate
	}

	b.notifyMu.Lock()
	b.notifyCBs[ch.Handle] = cb
	b.notifyMu.Unlock()

	_, err = obj.AddValueChanged(func(_ *genericattributeprofile.GattCharacteristic, args *genericattributeprofile.GattValueChangedEventArgs) {
		buf, err := args.GetCharacteristicValue()
		if err != nil {
			return
		}
		data, err := bufferToBytes(buf)
		if err != nil {
			return
		}
		b.notifyMu.Lock()
		fn := b.notifyCBs[ch.Handle]
		b.notifyMu.Unlock()
		if fn != nil {
			fn(data)
		}
	})
	if err != nil {
		return goble.NewOSError(0, err)
	}

	op, err := obj.WriteClientCharacteristicConfigurationDescriptorAsync(cccValue)
	if err != nil {
		return goble.NewOSError(0, err)
	}
	if _, err := awaitOperation(ctx, op); err != nil {
		return goble.NewOSError(0, err)
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

	op, err := obj.WriteClientCharacteristicConfigurationDescriptorAsync(
		genericattributeprofile.GattClientCharacteristicConfigurationDescriptorValueNone)
	if err != nil {
		return goble.NewOSError(0, err)
	}
	if _, err := awaitOperation(ctx, op); err != nil {
		return goble.NewOSError(0, err)
	}
	return nil
}

func (b *ClientBackend) Pair(ctx context.Context, agent goble.PairingAgent) error {
	return b.pairDefault(ctx, agent)
}

func (b *ClientBackend) Unpair(ctx context.Context) error {
	info, err := b.device.GetDeviceInformation()
	if err != nil {
		return goble.NewOSError(0, err)
	}
	pairing, err := info.GetPairing()
	if err != nil {
		return goble.NewOSError(0, err)
	}
	op, err := pairing.UnpairAsync()
	if err != nil {
		return goble.NewOSError(0, err)
	}
	if _, err := awaitOperation(ctx, op); err != nil {
		return goble.NewOSError(0, err)
	}
	return nil
}

func (b *ClientBackend) Name() string {
	name, err := b.device.GetName()
	if err != nil {
		return ""
	}
	return name
}

func bufferToBytes(buf *streams.IBuffer) ([]byte, error) {
	reader, err := streams.DataReaderFromBuffer(buf)
	if err != nil {
		return nil, err
	}
	length, err := buf.GetLength()
	if err != nil {
		return nil, err
	}
	data := make([]byte, length)
	if err := reader.ReadBytes(data); err != nil {
		return nil, err
	}
	return data, nil
}

func bytesToBuffer(data []byte) (*streams.IBuffer, error) {
	writer, err := streams.NewDataWriter()
	if err != nil {
		return nil, err
	}
	if err := writer.WriteBytes(data); err != nil {
		return nil, err
	}
	return writer.DetachBuffer()
}
