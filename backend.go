package goble

import "context"

// ScanMode selects active or passive scanning.
type ScanMode int

const (
	// ScanActive sends scan requests and reports scan responses in
	// addition to advertisements.
	ScanActive ScanMode = iota
	// ScanPassive only listens to advertisements. Scanner.Start rejects it
	// with ErrNoPassiveScan when Patterns is empty. The BlueZ backend does
	// not implement passive scanning and its Start returns an error for
	// this mode; the CoreBluetooth backend rejects it as well.
	ScanPassive
)

func (m ScanMode) String() string {
	if m == ScanPassive {
		return "passive"
	}
	return "active"
}

// OrPattern is one BlueZ AdvertisementMonitor1 or-pattern: the OS reports
// an advertisement if, at Offset bytes into the raw PDU, it finds ADType
// followed by Prefix.
type OrPattern struct {
	Offset int
	ADType byte
	Prefix []byte
}

// ScanOptions configures a ScannerBackend.
type ScanOptions struct {
	Mode ScanMode
	// ServiceUUIDs is the OS-level discovery filter, configured when the
	// backend supports it. The core re-filters every event regardless (see
	// Scanner.matchesFilter), because OSes leak non-matching advertisements
	// when another process is scanning concurrently.
	ServiceUUIDs []UUID
	// Patterns must be non-empty when Mode == ScanPassive; Scanner.Start
	// checks this before any backend is started.
	Patterns []OrPattern
	// Backend carries backend-specific knobs (e.g. a BlueZ adapter path
	// override) that have no portable equivalent.
	Backend map[string]any
}

// AdvertisementEvent is one (device, advertisement) observation a
// ScannerBackend hands to its dispatch callback.
type AdvertisementEvent struct {
	Device        Device
	Advertisement AdvertisementData
}

// ScannerBackend is the platform contract a Scanner façade binds to. The
// façade owns filtering, deduplication, and callback fan-out (see
// Scanner.dispatch) — the backend's only job is turning OS events into
// AdvertisementEvent values and calling deliver once per event, in OS
// delivery order.
type ScannerBackend interface {
	// Start begins discovery. deliver is called from whatever goroutine
	// the backend's OS integration uses; it must not block for long, and
	// the backend must keep calling it until Stop returns or ctx is
	// canceled.
	Start(ctx context.Context, opts ScanOptions, deliver func(AdvertisementEvent)) error
	// Stop terminates discovery. Safe to call when not started.
	Stop(ctx context.Context) error
}

// ConnectTarget names what a Client connects to: either a Device already
// observed by a Scanner, or a bare address the backend must resolve via a
// scan-based lookup before it can open a connection.
type ConnectTarget struct {
	Device  *Device
	Address string
}

// ClientOptions configures a ClientBackend.
type ClientOptions struct {
	PairingAgent PairingAgent
	Backend      map[string]any
}

// ClientBackend is the platform contract a Client façade binds to. All
// methods are safe to call concurrently with themselves only to the
// extent the façade's state machine (see Client.transition) allows —
// the façade serializes connect/disconnect and funnels I/O calls only
// while Connected.
type ClientBackend interface {
	// Connect opens the OS-level connection, negotiates MTU where the OS
	// exposes a knob, and discovers the full GATT tree, optionally
	// pairing first if the backend pairs before connecting. Connect
	// returns the built Collection on success; on any failure all partial
	// backend state is released before the error is returned.
	Connect(ctx context.Context, pair bool) (*Collection, error)
	// Disconnect triggers the OS disconnect and releases backend handles.
	// Safe to call when not connected.
	Disconnect(ctx context.Context) error
	// SetDisconnectCallback registers the callback the backend invokes
	// exactly once when an OS-initiated disconnect or fatal I/O error
	// transitions the connection away from Connected. Never called for a
	// failed Connect.
	SetDisconnectCallback(cb func(error))

	ReadCharacteristic(ctx context.Context, ch *Characteristic, useCached bool) ([]byte, error)
	WriteCharacteristic(ctx context.Context, ch *Characteristic, data []byte, withResponse bool) error
	ReadDescriptor(ctx context.Context, d *Descriptor) ([]byte, error)
	WriteDescriptor(ctx context.Context, d *Descriptor, data []byte) error
	// StartNotify performs the OS CCCD write and arranges for cb to be
	// called once per notification/indication, in OS delivery order.
	// forceIndicate prefers indications over notifications where both are
	// available (the WinRT backend's only consumer of this flag today).
	StartNotify(ctx context.Context, ch *Characteristic, forceIndicate bool, cb func([]byte)) error
	// StopNotify writes the CCCD disable value and removes cb.
	StopNotify(ctx context.Context, ch *Characteristic) error

	Pair(ctx context.Context, agent PairingAgent) error
	Unpair(ctx context.Context) error

	Name() string
}

// newScannerBackend constructs the platform ScannerBackend. Exactly one
// implementation is linked into any given binary, selected by Go build
// tags in backend_<os>.go; this package never branches on runtime.GOOS.
var newScannerBackend func() (ScannerBackend, error)

// newClientBackend constructs the platform ClientBackend bound to
// target.
var newClientBackend func(target ConnectTarget, opts ClientOptions) (ClientBackend, error)
