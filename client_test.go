package goble_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gable-project/goble"
	"github.com/gable-project/goble/internal/mock"
)

const (
	testServiceUUID = "0000180d-0000-1000-8000-00805f9b34fb"
	testCharRead    = "00002a19-0000-1000-8000-00805f9b34fb"
	testCharWrite   = "0000d4c6-dad3-0000-0000-00000000cafe"
	testCharNotify  = "d4c6dad3-0000-0000-0000-00000000c6fc"
)

func newTestPeripheral() *mock.Peripheral {
	p := mock.NewPeripheral("AA:BB:CC:DD:EE:FF", "test-peripheral")
	p.Services = []*goble.Service{
		{
			Handle: 1,
			UUID:   goble.MustParseUUID(testServiceUUID),
			Characteristics: map[goble.Handle]*goble.Characteristic{
				2: {Handle: 2, UUID: goble.MustParseUUID(testCharRead), ServiceHandle: 1, Properties: goble.PropertyRead},
				3: {Handle: 3, UUID: goble.MustParseUUID(testCharWrite), ServiceHandle: 1, Properties: goble.PropertyWrite},
				4: {Handle: 4, UUID: goble.MustParseUUID(testCharNotify), ServiceHandle: 1, Properties: goble.PropertyRead | goble.PropertyNotify},
			},
		},
	}
	p.SetValue(2, []byte{0x64}) // battery level 100
	return p
}

func connectedTestClient(t *testing.T) (*goble.Client, *mock.ClientBackend) {
	t.Helper()
	p := newTestPeripheral()
	backend := mock.NewClientBackend(p)
	c, err := goble.NewClientWithBackend(backend, goble.ClientConfig{Address: p.Address})
	if err != nil {
		t.Fatalf("NewClientWithBackend: %v", err)
	}
	if err := c.Connect(context.Background(), false); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c, backend
}

// TestClientReadCharacteristic is scenario S2.
func TestClientReadCharacteristic(t *testing.T) {
	c, _ := connectedTestClient(t)
	defer c.Close()

	data, err := c.ReadGATTChar(context.Background(), goble.MustParseUUID(testCharRead), false)
	if err != nil {
		t.Fatalf("ReadGATTChar: %v", err)
	}
	if len(data) != 1 || data[0] != 0x64 {
		t.Errorf("ReadGATTChar = %v, want [0x64]", data)
	}
}

// TestClientWriteCharacteristicWithResponse is scenario S3.
func TestClientWriteCharacteristicWithResponse(t *testing.T) {
	c, backend := connectedTestClient(t)
	defer c.Close()

	payload := []byte{0x01, 0x02, 0x03}
	if err := c.WriteGATTChar(context.Background(), goble.MustParseUUID(testCharWrite), payload, true); err != nil {
		t.Fatalf("WriteGATTChar: %v", err)
	}
	if got := backend.Peripheral.Value(3); string(got) != string(payload) {
		t.Errorf("peripheral value = %v, want %v", got, payload)
	}
}

// TestClientWriteNoPropertiesFails covers a characteristic that declares
// neither write property: a write to it fails with ErrNotSupported.
func TestClientWriteNoPropertiesFails(t *testing.T) {
	p := newTestPeripheral()
	p.Services[0].Characteristics[5] = &goble.Characteristic{Handle: 5, UUID: goble.MustParseUUID("2a05"), ServiceHandle: 1}
	backend := mock.NewClientBackend(p)
	c, err := goble.NewClientWithBackend(backend, goble.ClientConfig{Address: p.Address})
	if err != nil {
		t.Fatalf("NewClientWithBackend: %v", err)
	}
	if err := c.Connect(context.Background(), false); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if err := c.WriteGATTChar(context.Background(), goble.MustParseUUID("2a05"), []byte{1}, true); err != goble.ErrNotSupported {
		t.Errorf("WriteGATTChar on property-less characteristic = %v, want ErrNotSupported", err)
	}
}

// TestClientNotifyTwiceThenStop is scenario S4.
func TestClientNotifyTwiceThenStop(t *testing.T) {
	c, backend := connectedTestClient(t)
	defer c.Close()

	var mu sync.Mutex
	var received [][]byte
	done := make(chan struct{}, 2)

	err := c.StartNotify(context.Background(), goble.MustParseUUID(testCharNotify), false, func(data []byte) {
		mu.Lock()
		received = append(received, append([]byte(nil), data...))
		mu.Unlock()
		done <- struct{}{}
	})
	if err != nil {
		t.Fatalf("StartNotify: %v", err)
	}

	backend.Notify(4, []byte("1234"))
	<-done
	backend.Notify(4, []byte("2345"))
	<-done

	mu.Lock()
	got := append([][]byte(nil), received...)
	mu.Unlock()
	if len(got) != 2 || string(got[0]) != "1234" || string(got[1]) != "2345" {
		t.Fatalf("received = %v, want [1234 2345] in order", got)
	}

	if err := c.StopNotify(context.Background(), goble.MustParseUUID(testCharNotify)); err != nil {
		t.Fatalf("StopNotify: %v", err)
	}

	backend.Notify(4, []byte("3456"))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Errorf("notification delivered after StopNotify: %v", received)
	}
}

// TestClientStopNotifyWhenNotSubscribed covers the invariant that
// stop_notify on a characteristic with no active subscription is an error.
func TestClientStopNotifyWhenNotSubscribed(t *testing.T) {
	c, _ := connectedTestClient(t)
	defer c.Close()

	if err := c.StopNotify(context.Background(), goble.MustParseUUID(testCharNotify)); err != goble.ErrInvalidState {
		t.Errorf("StopNotify without subscription = %v, want ErrInvalidState", err)
	}
}

// TestClientDisconnectWhenDisconnectedIsNoOp covers the invariant that
// disconnect when already disconnected is a no-op returning success.
func TestClientDisconnectWhenDisconnectedIsNoOp(t *testing.T) {
	p := newTestPeripheral()
	backend := mock.NewClientBackend(p)
	c, err := goble.NewClientWithBackend(backend, goble.ClientConfig{Address: p.Address})
	if err != nil {
		t.Fatalf("NewClientWithBackend: %v", err)
	}
	if err := c.Disconnect(context.Background()); err != nil {
		t.Errorf("Disconnect on never-connected client = %v, want nil", err)
	}
}

// TestClientUnsolicitedDisconnect is scenario S5.
func TestClientUnsolicitedDisconnect(t *testing.T) {
	p := newTestPeripheral()
	backend := mock.NewClientBackend(p)

	var gotErr error
	disconnected := make(chan struct{})
	c, err := goble.NewClientWithBackend(backend, goble.ClientConfig{
		Address: p.Address,
		DisconnectedCB: func(err error) {
			gotErr = err
			close(disconnected)
		},
	})
	if err != nil {
		t.Fatalf("NewClientWithBackend: %v", err)
	}
	if err := c.Connect(context.Background(), false); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !c.IsConnected() {
		t.Fatal("expected client to be connected")
	}

	cause := goble.NewOSError(104, nil)
	backend.SimulateDisconnect(cause)

	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for disconnected callback")
	}

	if gotErr != cause {
		t.Errorf("disconnected callback err = %v, want %v", gotErr, cause)
	}
	if c.IsConnected() {
		t.Error("expected client to be disconnected after unsolicited disconnect")
	}
	if c.State() != goble.StateDisconnected {
		t.Errorf("State() = %v, want StateDisconnected", c.State())
	}

	// Any in-flight I/O against the stale connection fails with
	// ErrDisconnected rather than hanging.
	if _, err := c.ReadGATTChar(context.Background(), goble.MustParseUUID(testCharRead), false); err != goble.ErrDisconnected {
		t.Errorf("ReadGATTChar after disconnect = %v, want ErrDisconnected", err)
	}
}

// TestClientConnectTwiceFails covers the state-machine guard against a
// concurrent/duplicate Connect.
func TestClientConnectTwiceFails(t *testing.T) {
	c, _ := connectedTestClient(t)
	defer c.Close()

	if err := c.Connect(context.Background(), false); err != goble.ErrInvalidState {
		t.Errorf("second Connect() = %v, want ErrInvalidState", err)
	}
}

// TestClientMaxWriteWithoutResponse exercises the MTU-driven
// MaxWriteWithoutResponse arithmetic through a live connection.
func TestClientMaxWriteWithoutResponse(t *testing.T) {
	p := newTestPeripheral()
	p.MTU = 185
	backend := mock.NewClientBackend(p)
	c, err := goble.NewClientWithBackend(backend, goble.ClientConfig{Address: p.Address})
	if err != nil {
		t.Fatalf("NewClientWithBackend: %v", err)
	}
	if err := c.Connect(context.Background(), false); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if got, want := c.MTU(), uint16(185); got != want {
		t.Fatalf("MTU() = %d, want %d", got, want)
	}
	ch, err := c.Services().GetCharacteristic(goble.MustParseUUID(testCharRead))
	if err != nil {
		t.Fatalf("GetCharacteristic: %v", err)
	}
	if got, want := ch.MaxWriteWithoutResponse(), 185-3; got != want {
		t.Errorf("MaxWriteWithoutResponse() = %d, want %d", got, want)
	}
}
