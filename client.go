package goble

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gable-project/goble/internal/config"
)

// ConnectionState is the Client state machine's current state.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "disconnected"
	}
}

// DisconnectedCallback is invoked exactly once per Connected->Disconnected
// transition, whether triggered by Disconnect, an unsolicited OS
// disconnect, or a fatal I/O error. err is nil for an explicit Disconnect.
type DisconnectedCallback func(err error)

// ClientConfig constructs a Client. Exactly one of Device or Address must
// be set; when only Address is set, Connect resolves it with a
// scan-based lookup before opening the connection.
type ClientConfig struct {
	Device         *Device
	Address        string
	DisconnectedCB DisconnectedCallback
	PairingAgent   PairingAgent
	BackendOptions map[string]any
	ConnectTimeout time.Duration
	Logger         *slog.Logger
}

// Client is the C5 façade: connection lifecycle, pairing, and GATT I/O
// against one peripheral. The zero value is not usable — construct with
// NewClient.
type Client struct {
	target  ConnectTarget
	opts    ClientOptions
	timeout time.Duration
	log     *slog.Logger

	mu          sync.Mutex
	state       ConnectionState
	backend     ClientBackend
	testBackend ClientBackend
	collection  *Collection
	disconnCB   DisconnectedCallback
	exec        *executor

	notifyMu sync.Mutex
	notified map[Handle]func([]byte)
}

// NewClient constructs a disconnected Client. It does not touch the OS —
// no backend is created until Connect.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Device == nil && cfg.Address == "" {
		return nil, fmt.Errorf("goble: ClientConfig needs a Device or an Address")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = config.Default().ConnectTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		target: ConnectTarget{Device: cfg.Device, Address: cfg.Address},
		opts: ClientOptions{
			PairingAgent: cfg.PairingAgent,
			Backend:      cfg.BackendOptions,
		},
		timeout:   timeout,
		log:       logger,
		disconnCB: cfg.DisconnectedCB,
		notified:  make(map[Handle]func([]byte)),
	}, nil
}

// NewClientFromDevice is a convenience constructor for the common case of
// connecting to a Device already observed by a Scanner.
func NewClientFromDevice(d Device) (*Client, error) {
	return NewClient(ClientConfig{Device: &d})
}

// NewClientWithBackend constructs a Client bound to an already-built
// backend, bypassing the per-platform backend factory and address
// resolution. Intended for tests that exercise the façade against
// internal/mock rather than a real OS integration.
func NewClientWithBackend(backend ClientBackend, cfg ClientConfig) (*Client, error) {
	c, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	c.testBackend = backend
	return c, nil
}

// IsConnected reports whether the state is Connected.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Services returns the connection's GATT collection, or nil when not
// connected.
func (c *Client) Services() *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return nil
	}
	return c.collection
}

// MTU returns the connection's negotiated ATT MTU, or 0 when not
// connected.
func (c *Client) MTU() uint16 {
	col := c.Services()
	if col == nil {
		return 0
	}
	return col.MTU()
}

// Connect resolves an address target if needed, optionally pairs, opens
// the OS connection, negotiates MTU, and discovers the GATT tree — the
// whole sequence bounded by the Client's configured connect timeout.
// Concurrent Connect/Disconnect calls fail with ErrInvalidState rather
// than joining the in-flight transition, since the façade has no way to
// hand the caller the in-flight result.
func (c *Client) Connect(ctx context.Context, pair bool) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrInvalidState
	}
	c.state = StateConnecting
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	col, backend, err := c.doConnect(ctx, pair)

	c.mu.Lock()
	if err != nil {
		c.state = StateDisconnected
		c.mu.Unlock()
		return err
	}
	c.backend = backend
	c.collection = col
	c.state = StateConnected
	c.exec = newExecutor()
	go c.exec.run()
	c.mu.Unlock()

	backend.SetDisconnectCallback(func(cause error) {
		c.handleOSDisconnect(cause)
	})
	return nil
}

func (c *Client) doConnect(ctx context.Context, pair bool) (*Collection, ClientBackend, error) {
	if c.testBackend != nil {
		col, err := c.testBackend.Connect(ctx, pair)
		if err != nil {
			_ = c.testBackend.Disconnect(context.Background())
			return nil, nil, err
		}
		return col, c.testBackend, nil
	}

	target := c.target
	if target.Device == nil {
		d, ok, err := FindDeviceByAddress(ctx, target.Address, c.timeout)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, ErrDeviceNotFound
		}
		target.Device = &d
	}

	if newClientBackend == nil {
		return nil, nil, NewBluetoothUnavailableError(ReasonNoBluetooth, "no client backend linked for this platform")
	}
	backend, err := newClientBackend(target, c.opts)
	if err != nil {
		return nil, nil, err
	}

	col, err := backend.Connect(ctx, pair)
	if err != nil {
		_ = backend.Disconnect(context.Background())
		return nil, nil, err
	}
	return col, backend, nil
}

// handleOSDisconnect runs the Connected->Disconnected transition for an
// unsolicited disconnect or fatal I/O error reported by the backend. It
// is the backend's SetDisconnectCallback target, never called directly
// by Client methods.
func (c *Client) handleOSDisconnect(cause error) {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	exec := c.exec
	c.collection = nil
	c.mu.Unlock()

	c.notifyMu.Lock()
	c.notified = make(map[Handle]func([]byte))
	c.notifyMu.Unlock()

	if exec != nil {
		exec.close()
	}
	if c.disconnCB != nil {
		c.disconnCB(cause)
	}
}

// Disconnect triggers the OS disconnect, clears the notification callback
// table, closes backend handles, transitions to Disconnected, and invokes
// the disconnected callback exactly once. Safe to call when already
// disconnected.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	if c.state != StateConnected {
		c.mu.Unlock()
		return ErrInvalidState
	}
	c.state = StateDisconnecting
	backend := c.backend
	exec := c.exec
	c.mu.Unlock()

	err := backend.Disconnect(ctx)

	c.mu.Lock()
	c.state = StateDisconnected
	c.collection = nil
	c.mu.Unlock()

	c.notifyMu.Lock()
	c.notified = make(map[Handle]func([]byte))
	c.notifyMu.Unlock()

	if exec != nil {
		exec.close()
	}
	if c.disconnCB != nil {
		c.disconnCB(nil)
	}
	return err
}

// Close disconnects, satisfying io.Closer.
func (c *Client) Close() error {
	return c.Disconnect(context.Background())
}

func (c *Client) liveBackend() (ClientBackend, *Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return nil, nil, ErrDisconnected
	}
	return c.backend, c.collection, nil
}

// ReadGATTChar resolves spec (a *Characteristic, Handle, or UUID) and
// reads its raw value. useCached asks the OS to return its cached value
// without a device round trip; BlueZ ignores it.
func (c *Client) ReadGATTChar(ctx context.Context, spec any, useCached bool) ([]byte, error) {
	backend, col, err := c.liveBackend()
	if err != nil {
		return nil, err
	}
	ch, err := col.GetCharacteristic(spec)
	if err != nil {
		return nil, err
	}
	return backend.ReadCharacteristic(ctx, ch, useCached)
}

// WriteGATTChar resolves spec and writes data, falling back between
// with- and without-response per the characteristic's properties:
// requesting a response on a write-without-response-only characteristic
// downgrades with a log warning; requesting no response on a
// response-only characteristic upgrades. Fails with ErrNotSupported if
// neither property is present.
func (c *Client) WriteGATTChar(ctx context.Context, spec any, data []byte, response bool) error {
	backend, col, err := c.liveBackend()
	if err != nil {
		return err
	}
	ch, err := col.GetCharacteristic(spec)
	if err != nil {
		return err
	}

	hasResponse := ch.Properties.Has(PropertyWrite)
	hasNoResponse := ch.Properties.Has(PropertyWriteWithoutResponse)
	switch {
	case response && !hasResponse && hasNoResponse:
		c.log.Warn("downgrading to write-without-response", "characteristic", ch.UUID.String())
		response = false
	case !response && !hasNoResponse && hasResponse:
		response = true
	case response && !hasResponse:
		return ErrNotSupported
	case !response && !hasNoResponse:
		return ErrNotSupported
	}

	return backend.WriteCharacteristic(ctx, ch, data, response)
}

// ReadGATTDescriptor reads a descriptor by handle.
func (c *Client) ReadGATTDescriptor(ctx context.Context, h Handle) ([]byte, error) {
	backend, col, err := c.liveBackend()
	if err != nil {
		return nil, err
	}
	d, err := col.GetDescriptor(h)
	if err != nil {
		return nil, err
	}
	return backend.ReadDescriptor(ctx, d)
}

// WriteGATTDescriptor writes a descriptor by handle.
func (c *Client) WriteGATTDescriptor(ctx context.Context, h Handle, data []byte) error {
	backend, col, err := c.liveBackend()
	if err != nil {
		return err
	}
	d, err := col.GetDescriptor(h)
	if err != nil {
		return err
	}
	return backend.WriteDescriptor(ctx, d, data)
}

// StartNotify resolves spec, performs the OS CCCD write, and arranges for
// cb to be called once per notification on the client's executor, in OS
// delivery order. Calling StartNotify twice on the same characteristic
// replaces the prior callback. Fails with ErrNotSupported if neither
// Notify nor Indicate is in the characteristic's properties.
func (c *Client) StartNotify(ctx context.Context, spec any, forceIndicate bool, cb func([]byte)) error {
	backend, col, err := c.liveBackend()
	if err != nil {
		return err
	}
	ch, err := col.GetCharacteristic(spec)
	if err != nil {
		return err
	}
	if !ch.Properties.Has(PropertyNotify) && !ch.Properties.Has(PropertyIndicate) {
		return ErrNotSupported
	}

	c.mu.Lock()
	exec := c.exec
	c.mu.Unlock()

	if err := backend.StartNotify(ctx, ch, forceIndicate, func(data []byte) {
		if exec != nil {
			exec.post(func() { cb(data) })
		}
	}); err != nil {
		return err
	}

	c.notifyMu.Lock()
	c.notified[ch.Handle] = cb
	c.notifyMu.Unlock()
	return nil
}

// StopNotify writes the CCCD disable value and removes the callback.
// Notifications are also torn down automatically on disconnect; callers
// need not call this before Disconnect. Fails with ErrInvalidState if the
// characteristic has no active subscription.
func (c *Client) StopNotify(ctx context.Context, spec any) error {
	backend, col, err := c.liveBackend()
	if err != nil {
		return err
	}
	ch, err := col.GetCharacteristic(spec)
	if err != nil {
		return err
	}

	c.notifyMu.Lock()
	_, subscribed := c.notified[ch.Handle]
	c.notifyMu.Unlock()
	if !subscribed {
		return ErrInvalidState
	}

	if err := backend.StopNotify(ctx, ch); err != nil {
		return err
	}
	c.notifyMu.Lock()
	delete(c.notified, ch.Handle)
	c.notifyMu.Unlock()
	return nil
}

// Pair invokes the backend's pairing flow using the PairingAgent supplied
// at construction. On CoreBluetooth this is a no-op (programmatic pairing
// is unavailable there); the backend is responsible for that behavior.
func (c *Client) Pair(ctx context.Context) error {
	backend, _, err := c.liveBackend()
	if err != nil {
		return err
	}
	return backend.Pair(ctx, c.opts.PairingAgent)
}

// Unpair removes the OS pairing bond.
func (c *Client) Unpair(ctx context.Context) error {
	backend, _, err := c.liveBackend()
	if err != nil {
		return err
	}
	return backend.Unpair(ctx)
}

// Name returns the backend's human-readable connection name (typically
// the advertised or GAP device name), or "" when not connected.
func (c *Client) Name() string {
	c.mu.Lock()
	backend := c.backend
	state := c.state
	c.mu.Unlock()
	if state != StateConnected || backend == nil {
		return ""
	}
	return backend.Name()
}
