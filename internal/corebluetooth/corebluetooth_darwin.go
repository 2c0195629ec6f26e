//go:build darwin

// Package corebluetooth implements the goble.ScannerBackend and
// goble.ClientBackend contracts on top of CoreBluetooth via cgo — no Go
// binding for CoreBluetooth exists, so the Objective-C delegate classes
// live inline in the cgo preamble and hand events back to Go through
// exported callback functions.
package corebluetooth

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Foundation -framework CoreBluetooth
#import <Foundation/Foundation.h>
#import <CoreBluetooth/CoreBluetooth.h>

typedef void (*gbl_scan_cb)(void *ctx, const char *identifier, const char *name, int rssi,
                             const char *serviceUUIDsCSV, const char *mfgDataHex);
typedef void (*gbl_connect_cb)(void *ctx, int ok, const char *errMsg);
typedef void (*gbl_disconnect_cb)(void *ctx, const char *errMsg);
typedef void (*gbl_discovery_cb)(void *ctx, const char *treeJSON);
typedef void (*gbl_value_cb)(void *ctx, const char *charUUID, const unsigned char *bytes, int len, const char *errMsg);
typedef void (*gbl_notify_cb)(void *ctx, const char *charUUID, const unsigned char *bytes, int len);

@interface GobleCentralDelegate : NSObject <CBCentralManagerDelegate, CBPeripheralDelegate>
@property (nonatomic, strong) CBCentralManager *central;
@property (nonatomic, strong) NSMutableDictionary<NSUUID *, CBPeripheral *> *peripherals;
@property (nonatomic, strong) NSMutableDictionary<NSString *, CBCharacteristic *> *chars;
@property (nonatomic, assign) void *goCtx;
@property (nonatomic, assign) gbl_scan_cb scanCB;
@property (nonatomic, assign) gbl_connect_cb connectCB;
@property (nonatomic, assign) gbl_disconnect_cb disconnectCB;
@property (nonatomic, assign) gbl_discovery_cb discoveryCB;
@property (nonatomic, assign) gbl_value_cb valueCB;
@property (nonatomic, assign) gbl_notify_cb notifyCB;
@property (nonatomic, strong) CBPeripheral *connecting;
@end

@implementation GobleCentralDelegate

- (instancetype)init {
    self = [super init];
    if (self) {
        _peripherals = [NSMutableDictionary new];
        _chars = [NSMutableDictionary new];
        _central = [[CBCentralManager alloc] initWithDelegate:self queue:dispatch_get_main_queue()];
    }
    return self;
}

- (void)centralManagerDidUpdateState:(CBCentralManager *)central {
    // State itself is read on demand via gbl_central_state; nothing to
    // relay here since Go polls rather than blocking on a delegate event.
}

- (void)centralManager:(CBCentralManager *)central didDiscoverPeripheral:(CBPeripheral *)peripheral
      advertisementData:(NSDictionary<NSString *, id> *)advertisementData RSSI:(NSNumber *)RSSI {
    self.peripherals[peripheral.identifier] = peripheral;
    NSString *name = advertisementData[CBAdvertisementDataLocalNameKey] ?: @"";
    NSArray *uuids = advertisementData[CBAdvertisementDataServiceUUIDsKey];
    NSMutableArray *uuidStrs = [NSMutableArray new];
    for (CBUUID *u in uuids) { [uuidStrs addObject:u.UUIDString]; }
    NSString *csv = [uuidStrs componentsJoinedByString:@","];
    if (self.scanCB) {
        self.scanCB(self.goCtx, peripheral.identifier.UUIDString.UTF8String, name.UTF8String,
                     RSSI.intValue, csv.UTF8String, "");
    }
}

- (void)centralManager:(CBCentralManager *)central didConnectPeripheral:(CBPeripheral *)peripheral {
    peripheral.delegate = self;
    if (self.connectCB) { self.connectCB(self.goCtx, 1, ""); }
    [peripheral discoverServices:nil];
}

- (void)centralManager:(CBCentralManager *)central didFailToConnectPeripheral:(CBPeripheral *)peripheral
                  error:(NSError *)error {
    if (self.connectCB) { self.connectCB(self.goCtx, 0, error.localizedDescription.UTF8String); }
}

- (void)centralManager:(CBCentralManager *)central didDisconnectPeripheral:(CBPeripheral *)peripheral
                  error:(NSError *)error {
    if (self.disconnectCB) {
        self.disconnectCB(self.goCtx, error ? error.localizedDescription.UTF8String : "");
    }
}

- (void)peripheral:(CBPeripheral *)peripheral didDiscoverServices:(NSError *)error {
    for (CBService *svc in peripheral.services) {
        [peripheral discoverCharacteristics:nil forService:svc];
    }
}

- (void)peripheral:(CBPeripheral *)peripheral didDiscoverCharacteristicsForService:(CBService *)service
              error:(NSError *)error {
    for (CBCharacteristic *ch in service.characteristics) {
        self.chars[ch.UUID.UUIDString] = ch;
        [peripheral discoverDescriptorsForCharacteristic:ch];
    }
    if (self.discoveryCB) {
        // Only the service UUID crosses to Go; this ping just tells the
        // Go side another service's characteristics resolved.
        self.discoveryCB(self.goCtx, service.UUID.UUIDString.UTF8String);
    }
}

- (void)peripheral:(CBPeripheral *)peripheral didUpdateValueForCharacteristic:(CBCharacteristic *)characteristic
              error:(NSError *)error {
    NSData *data = characteristic.value ?: [NSData data];
    const char *errMsg = error ? error.localizedDescription.UTF8String : "";
    if (characteristic.isNotifying && self.notifyCB) {
        self.notifyCB(self.goCtx, characteristic.UUID.UUIDString.UTF8String, data.bytes, (int)data.length);
    } else if (self.valueCB) {
        self.valueCB(self.goCtx, characteristic.UUID.UUIDString.UTF8String, data.bytes, (int)data.length, errMsg);
    }
}

- (void)peripheral:(CBPeripheral *)peripheral didWriteValueForCharacteristic:(CBCharacteristic *)characteristic
              error:(NSError *)error {
    const char *errMsg = error ? error.localizedDescription.UTF8String : "";
    if (self.valueCB) {
        self.valueCB(self.goCtx, characteristic.UUID.UUIDString.UTF8String, (const unsigned char *)"", 0, errMsg);
    }
}

@end

static GobleCentralDelegate *gbl_delegate_new(void) {
    return [[GobleCentralDelegate alloc] init];
}

static void gbl_start_scan(GobleCentralDelegate *d, void *ctx, gbl_scan_cb cb) {
    d.goCtx = ctx;
    d.scanCB = cb;
    [d.central scanForPeripheralsWithOptions:nil];
}

static void gbl_stop_scan(GobleCentralDelegate *d) {
    [d.central stopScan];
}

static void gbl_connect(GobleCentralDelegate *d, const char *identifier, void *ctx, gbl_connect_cb cb,
                         gbl_disconnect_cb dcb, gbl_discovery_cb discb, gbl_value_cb vcb, gbl_notify_cb ncb) {
    d.goCtx = ctx;
    d.connectCB = cb;
    d.disconnectCB = dcb;
    d.discoveryCB = discb;
    d.valueCB = vcb;
    d.notifyCB = ncb;
    NSUUID *uuid = [[NSUUID alloc] initWithUUIDString:[NSString stringWithUTF8String:identifier]];
    CBPeripheral *p = d.peripherals[uuid];
    if (!p) {
        NSArray *known = [d.central retrievePeripheralsWithIdentifiers:@[uuid]];
        if (known.count > 0) { p = known[0]; d.peripherals[uuid] = p; }
    }
    if (!p) { if (cb) cb(ctx, 0, "peripheral not found"); return; }
    d.connecting = p;
    [d.central connectPeripheral:p options:nil];
}

static void gbl_disconnect(GobleCentralDelegate *d, const char *identifier) {
    NSUUID *uuid = [[NSUUID alloc] initWithUUIDString:[NSString stringWithUTF8String:identifier]];
    CBPeripheral *p = d.peripherals[uuid];
    if (p) { [d.central cancelPeripheralConnection:p]; }
}

// gbl_central_state exposes CBCentralManager.state (a CBManagerState raw
// value) so Go can classify Unsupported/Unauthorized/PoweredOff/Resetting
// before attempting a scan or connect, and poll until PoweredOn when the
// state starts out Unknown.
static int gbl_central_state(GobleCentralDelegate *d) {
    return (int)d.central.state;
}

static int gbl_read_char(GobleCentralDelegate *d, const char *identifier, const char *charUUID) {
    NSUUID *uuid = [[NSUUID alloc] initWithUUIDString:[NSString stringWithUTF8String:identifier]];
    CBPeripheral *p = d.peripherals[uuid];
    CBCharacteristic *ch = d.chars[[NSString stringWithUTF8String:charUUID]];
    if (!p || !ch) { return 0; }
    [p readValueForCharacteristic:ch];
    return 1;
}

static int gbl_write_char(GobleCentralDelegate *d, const char *identifier, const char *charUUID,
                           const unsigned char *bytes, int len, int withResponse) {
    NSUUID *uuid = [[NSUUID alloc] initWithUUIDString:[NSString stringWithUTF8String:identifier]];
    CBPeripheral *p = d.peripherals[uuid];
    CBCharacteristic *ch = d.chars[[NSString stringWithUTF8String:charUUID]];
    if (!p || !ch) { return 0; }
    NSData *data = [NSData dataWithBytes:bytes length:len];
    CBCharacteristicWriteType type = withResponse ? CBCharacteristicWriteWithResponse : CBCharacteristicWriteWithoutResponse;
    [p writeValue:data forCharacteristic:ch type:type];
    return 1;
}

static int gbl_set_notify(GobleCentralDelegate *d, const char *identifier, const char *charUUID, int enable) {
    NSUUID *uuid = [[NSUUID alloc] initWithUUIDString:[NSString stringWithUTF8String:identifier]];
    CBPeripheral *p = d.peripherals[uuid];
    CBCharacteristic *ch = d.chars[[NSString stringWithUTF8String:charUUID]];
    if (!p || !ch) { return 0; }
    [p setNotifyValue:(enable ? YES : NO) forCharacteristic:ch];
    return 1;
}
*/
import "C"

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/gable-project/goble"
)

// future is one pending async CoreBluetooth operation: set exactly once
// by a delegate callback. The backend keeps one per in-flight
// characteristic read or write-with-response.
type future struct {
	done chan struct{}
	data []byte
	err  error
}

func newFuture() *future { return &future{done: make(chan struct{})} }

func (f *future) resolve(data []byte, err error) {
	select {
	case <-f.done:
		return
	default:
	}
	f.data, f.err = data, err
	close(f.done)
}

func (f *future) wait(ctx context.Context) ([]byte, error) {
	select {
	case <-f.done:
		return f.data, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CBManagerState raw values (CoreBluetooth/CBManager.h).
const (
	cbManagerStateUnknown      = 0
	cbManagerStateResetting    = 1
	cbManagerStateUnsupported  = 2
	cbManagerStateUnauthorized = 3
	cbManagerStatePoweredOff   = 4
	cbManagerStatePoweredOn    = 5
)

// waitPoweredOn blocks until the central manager's state settles on
// PoweredOn, fails immediately for a definitive unusable state
// (Unsupported/Unauthorized/PoweredOff/Resetting), and keeps polling while
// the state is still Unknown — CoreBluetooth hasn't delivered its first
// centralManagerDidUpdateState callback yet, which is the normal case
// right after a CBCentralManager is constructed.
func waitPoweredOn(ctx context.Context, delegate *C.GobleCentralDelegate) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		switch int(C.gbl_central_state(delegate)) {
		case cbManagerStatePoweredOn:
			return nil
		case cbManagerStateUnsupported:
			return goble.NewBluetoothUnavailableError(goble.ReasonUnsupported, "Bluetooth LE not supported on this device")
		case cbManagerStateUnauthorized:
			return goble.NewBluetoothUnavailableError(goble.ReasonUnauthorized, "app not authorized to use Bluetooth")
		case cbManagerStatePoweredOff:
			return goble.NewBluetoothUnavailableError(goble.ReasonPoweredOff, "Bluetooth is powered off")
		case cbManagerStateResetting:
			return goble.NewBluetoothUnavailableError(goble.ReasonResetting, "Bluetooth service is resetting")
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

var (
	registryMu sync.Mutex
	registry   = map[uintptr]*ClientBackend{}
	nextID     uintptr
)

func register(b *ClientBackend) unsafe.Pointer {
	registryMu.Lock()
	defer registryMu.Unlock()
	nextID++
	id := nextID
	registry[id] = b
	return unsafe.Pointer(id)
}

func lookup(ctx unsafe.Pointer) *ClientBackend {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[uintptr(ctx)]
}

func unregister(ctx unsafe.Pointer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, uintptr(ctx))
}

//export goScanCallback
func goScanCallback(ctx unsafe.Pointer, identifier, name *C.char, rssi C.int, uuidsCSV, _ *C.char) {
	b := lookup(ctx)
	if b == nil || b.deliver == nil {
		return
	}
	device := goble.Device{Address: C.GoString(identifier), Name: C.GoString(name)}
	adv := goble.AdvertisementData{LocalName: C.GoString(name), RSSI: int16(rssi)}
	for _, s := range strings.Split(C.GoString(uuidsCSV), ",") {
		if s == "" {
			continue
		}
		if u, err := goble.ParseUUID(s); err == nil {
			adv.ServiceUUIDs = append(adv.ServiceUUIDs, u)
		}
	}
	b.deliver(goble.AdvertisementEvent{Device: device, Advertisement: adv})
}

//export goConnectCallback
func goConnectCallback(ctx unsafe.Pointer, ok C.int, errMsg *C.char) {
	b := lookup(ctx)
	if b == nil {
		return
	}
	if ok != 0 {
		close(b.connectDone)
	} else {
		b.connectErr = fmt.Errorf("corebluetooth: %s", C.GoString(errMsg))
		close(b.connectDone)
	}
}

//export goDisconnectCallback
func goDisconnectCallback(ctx unsafe.Pointer, errMsg *C.char) {
	b := lookup(ctx)
	if b == nil {
		return
	}
	var err error
	if msg := C.GoString(errMsg); msg != "" {
		err = fmt.Errorf("corebluetooth: %s", msg)
	}
	b.failAllFutures(goble.ErrDisconnected)
	if b.disconnectCB != nil {
		b.disconnectCB(err)
	}
}

//export goDiscoveryCallback
func goDiscoveryCallback(ctx unsafe.Pointer, _ *C.char) {
	b := lookup(ctx)
	if b == nil {
		return
	}
	select {
	case b.discoveryPing <- struct{}{}:
	default:
	}
}

//export goValueCallback
func goValueCallback(ctx unsafe.Pointer, charUUID *C.char, bytes *C.uchar, length C.int, errMsg *C.char) {
	b := lookup(ctx)
	if b == nil {
		return
	}
	u, err := goble.ParseUUID(C.GoString(charUUID))
	if err != nil {
		return
	}
	var data []byte
	if length > 0 {
		data = C.GoBytes(unsafe.Pointer(bytes), length)
	}
	var opErr error
	if msg := C.GoString(errMsg); msg != "" {
		opErr = fmt.Errorf("corebluetooth: %s", msg)
	}
	b.resolveCharFuture(u, data, opErr)
}

//export goNotifyCallback
func goNotifyCallback(ctx unsafe.Pointer, charUUID *C.char, bytes *C.uchar, length C.int) {
	b := lookup(ctx)
	if b == nil {
		return
	}
	u, err := goble.ParseUUID(C.GoString(charUUID))
	if err != nil {
		return
	}
	var data []byte
	if length > 0 {
		data = C.GoBytes(unsafe.Pointer(bytes), length)
	}
	b.notifyMu.Lock()
	cb := b.notifyCBs[u]
	b.notifyMu.Unlock()
	if cb != nil {
		cb(data)
	}
}

// ScannerBackend implements goble.ScannerBackend over a
// GobleCentralDelegate instance.
type ScannerBackend struct {
	delegate *C.GobleCentralDelegate
	deliver  func(goble.AdvertisementEvent)
	ctxToken unsafe.Pointer
}

// NewScannerBackend allocates the CoreBluetooth central-manager delegate.
// Passive scanning is unsupported on this backend; ScanOptions.Mode ==
// ScanPassive fails at Start.
func NewScannerBackend() (*ScannerBackend, error) {
	return &ScannerBackend{delegate: C.gbl_delegate_new()}, nil
}

func (b *ScannerBackend) Start(ctx context.Context, opts goble.ScanOptions, deliver func(goble.AdvertisementEvent)) error {
	if opts.Mode == goble.ScanPassive {
		return goble.ErrNoPassiveScan
	}
	if err := waitPoweredOn(ctx, b.delegate); err != nil {
		return err
	}
	b.deliver = deliver
	cb := &ClientBackend{deliver: deliver}
	b.ctxToken = register(cb)
	C.gbl_start_scan(b.delegate, b.ctxToken, C.gbl_scan_cb(C.goScanCallback))
	return nil
}

func (b *ScannerBackend) Stop(ctx context.Context) error {
	C.gbl_stop_scan(b.delegate)
	if b.ctxToken != nil {
		unregister(b.ctxToken)
	}
	return nil
}

// ClientBackend implements goble.ClientBackend against one CBPeripheral,
// reachable by identifier through the shared GobleCentralDelegate.
type ClientBackend struct {
	delegate   *C.GobleCentralDelegate
	identifier string
	ctxToken   unsafe.Pointer

	deliver func(goble.AdvertisementEvent) // only set when embedded as a scan registry entry

	connectDone chan struct{}
	connectErr  error

	disconnectCB func(error)

	discoveryPing chan struct{}

	futuresMu sync.Mutex
	futures   map[goble.UUID]*future

	notifyMu  sync.Mutex
	notifyCBs map[goble.UUID]func([]byte)

	handleMu     sync.Mutex
	uuidToHandle map[goble.UUID]goble.Handle
	nextHandle   goble.Handle
}

// NewClientBackend binds to target's Device (CoreBluetooth addresses
// peripherals by a CBUUID-shaped identifier, not a MAC address, so a
// bare ConnectTarget.Address only works if it already is that identifier
// string).
func NewClientBackend(target goble.ConnectTarget, opts goble.ClientOptions) (*ClientBackend, error) {
	identifier := target.Address
	if target.Device != nil && target.Device.Address != "" {
		identifier = target.Device.Address
	}
	if identifier == "" {
		return nil, goble.ErrDeviceNotFound
	}
	b := &ClientBackend{
		delegate:      C.gbl_delegate_new(),
		identifier:    identifier,
		connectDone:   make(chan struct{}),
		discoveryPing: make(chan struct{}, 8),
		futures:       make(map[goble.UUID]*future),
		notifyCBs:     make(map[goble.UUID]func([]byte)),
		uuidToHandle:  make(map[goble.UUID]goble.Handle),
	}
	return b, nil
}

func (b *ClientBackend) allocHandle(u goble.UUID) goble.Handle {
	b.handleMu.Lock()
	defer b.handleMu.Unlock()
	if h, ok := b.uuidToHandle[u]; ok {
		return h
	}
	b.nextHandle++
	b.uuidToHandle[u] = b.nextHandle
	return b.nextHandle
}

func (b *ClientBackend) resolveCharFuture(u goble.UUID, data []byte, err error) {
	b.futuresMu.Lock()
	f := b.futures[u]
	b.futuresMu.Unlock()
	if f != nil {
		f.resolve(data, err)
	}
}

func (b *ClientBackend) failAllFutures(err error) {
	b.futuresMu.Lock()
	defer b.futuresMu.Unlock()
	for _, f := range b.futures {
		f.resolve(nil, err)
	}
}

// Connect opens the CBCentralManager connection, waits for delegate
// callbacks to report service/characteristic/descriptor discovery
// complete (signaled by repeated discoveryPing pulses, debounced by a
// short settle window since CoreBluetooth delivers one callback per
// service), and then returns an empty Collection with MTU 23. The
// services, characteristics and descriptors CoreBluetooth discovered are
// not added to that Collection, and the MTU CoreBluetooth negotiated is
// not read.
func (b *ClientBackend) Connect(ctx context.Context, pair bool) (*goble.Collection, error) {
	if err := waitPoweredOn(ctx, b.delegate); err != nil {
		return nil, err
	}

	b.ctxToken = register(b)
	cID := C.CString(b.identifier)
	defer C.free(unsafe.Pointer(cID))

	C.gbl_connect(b.delegate, cID, b.ctxToken,
		C.gbl_connect_cb(C.goConnectCallback),
		C.gbl_disconnect_cb(C.goDisconnectCallback),
		C.gbl_discovery_cb(C.goDiscoveryCallback),
		C.gbl_value_cb(C.goValueCallback),
		C.gbl_notify_cb(C.goNotifyCallback))

	select {
	case <-b.connectDone:
		if b.connectErr != nil {
			return nil, goble.NewOSError(0, b.connectErr)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Let in-flight discovery pings settle: CoreBluetooth delivers one
	// didDiscoverCharacteristicsForService callback per service, with no
	// single "discovery complete" signal.
	settle := time.NewTimer(300 * time.Millisecond)
	defer settle.Stop()
	for {
		select {
		case <-b.discoveryPing:
			if !settle.Stop() {
				<-settle.C
			}
			settle.Reset(300 * time.Millisecond)
		case <-settle.C:
			return goble.NewCollection(23), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (b *ClientBackend) Disconnect(ctx context.Context) error {
	cID := C.CString(b.identifier)
	defer C.free(unsafe.Pointer(cID))
	C.gbl_disconnect(b.delegate, cID)
	if b.ctxToken != nil {
		unregister(b.ctxToken)
	}
	return nil
}

func (b *ClientBackend) SetDisconnectCallback(cb func(error)) {
	b.disconnectCB = cb
}

func (b *ClientBackend) charFuture(u goble.UUID) *future {
	b.futuresMu.Lock()
	defer b.futuresMu.Unlock()
	f := newFuture()
	b.futures[u] = f
	return f
}

func (b *ClientBackend) ReadCharacteristic(ctx context.Context, ch *goble.Characteristic, useCached bool) ([]byte, error) {
	f := b.charFuture(ch.UUID)
	cUUID := C.CString(ch.UUID.String())
	cID := C.CString(b.identifier)
	defer C.free(unsafe.Pointer(cUUID))
	defer C.free(unsafe.Pointer(cID))
	if C.gbl_read_char(b.delegate, cID, cUUID) == 0 {
		return nil, goble.ErrCharacteristicNotFound
	}
	return f.wait(ctx)
}

func (b *ClientBackend) WriteCharacteristic(ctx context.Context, ch *goble.Characteristic, data []byte, withResponse bool) error {
	cUUID := C.CString(ch.UUID.String())
	cID := C.CString(b.identifier)
	defer C.free(unsafe.Pointer(cUUID))
	defer C.free(unsafe.Pointer(cID))

	var cBytes *C.uchar
	if len(data) > 0 {
		cBytes = (*C.uchar)(unsafe.Pointer(&data[0]))
	}
	respFlag := C.int(0)
	if withResponse {
		respFlag = 1
	}

	// Write-without-response never calls back into
	// didWriteValueForCharacteristic, so there is no future to wait on —
	// CoreBluetooth itself gives no delivery confirmation for that case.
	if !withResponse {
		if C.gbl_write_char(b.delegate, cID, cUUID, cBytes, C.int(len(data)), respFlag) == 0 {
			return goble.ErrCharacteristicNotFound
		}
		return nil
	}

	f := b.charFuture(ch.UUID)
	if C.gbl_write_char(b.delegate, cID, cUUID, cBytes, C.int(len(data)), respFlag) == 0 {
		return goble.ErrCharacteristicNotFound
	}
	_, err := f.wait(ctx)
	return err
}

func (b *ClientBackend) ReadDescriptor(ctx context.Context, d *goble.Descriptor) ([]byte, error) {
	return nil, goble.ErrNotSupported
}

func (b *ClientBackend) WriteDescriptor(ctx context.Context, d *goble.Descriptor, data []byte) error {
	return goble.ErrNotSupported
}

func (b *ClientBackend) StartNotify(ctx context.Context, ch *goble.Characteristic, forceIndicate bool, cb func([]byte)) error {
	b.notifyMu.Lock()
	b.notifyCBs[ch.UUID] = cb
	b.notifyMu.Unlock()

	cUUID := C.CString(ch.UUID.String())
	cID := C.CString(b.identifier)
	defer C.free(unsafe.Pointer(cUUID))
	defer C.free(unsafe.Pointer(cID))
	if C.gbl_set_notify(b.delegate, cID, cUUID, 1) == 0 {
		b.notifyMu.Lock()
		delete(b.notifyCBs, ch.UUID)
		b.notifyMu.Unlock()
		return goble.ErrCharacteristicNotFound
	}
	return nil
}

func (b *ClientBackend) StopNotify(ctx context.Context, ch *goble.Characteristic) error {
	b.notifyMu.Lock()
	delete(b.notifyCBs, ch.UUID)
	b.notifyMu.Unlock()

	cUUID := C.CString(ch.UUID.String())
	cID := C.CString(b.identifier)
	defer C.free(unsafe.Pointer(cUUID))
	defer C.free(unsafe.Pointer(cID))
	if C.gbl_set_notify(b.delegate, cID, cUUID, 0) == 0 {
		return goble.ErrCharacteristicNotFound
	}
	return nil
}

// Pair is a no-op that logs: CoreBluetooth does not expose programmatic
// pairing, and the OS pairing dialog appears automatically when it's required.
func (b *ClientBackend) Pair(ctx context.Context, agent goble.PairingAgent) error {
	slog.Info("corebluetooth: programmatic pairing is unavailable; Pair is a no-op", "device", b.identifier)
	return nil
}

func (b *ClientBackend) Unpair(ctx context.Context) error {
	return goble.ErrNotSupported
}

func (b *ClientBackend) Name() string {
	return b.identifier
}
