//go:build linux

package bluez

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/gable-project/goble"
)

const (
	ifaceAgentManager = "org.bluez.AgentManager1"
	ifaceAgent        = "org.bluez.Agent1"
)

var agentSeq uint64

// dbusAgent implements org.bluez.Agent1, the method-call interface BlueZ
// invokes for every pairing ceremony step (agent-api.txt), and routes each
// callback to the caller-supplied goble.PairingAgent. With a nil agent,
// confirmation and authorization requests are accepted ("just works"
// pairing) while PIN and passkey requests are rejected.
type dbusAgent struct {
	ctx      context.Context
	agent    goble.PairingAgent
	deviceOf func(dbus.ObjectPath) goble.Device
}

func (a *dbusAgent) Release() *dbus.Error { return nil }

func (a *dbusAgent) RequestPinCode(device dbus.ObjectPath) (string, *dbus.Error) {
	if a.agent == nil {
		return "", dbus.NewError("org.bluez.Error.Rejected", []interface{}{"no pairing agent"})
	}
	pin, err := a.agent.RequestPin(a.ctx, a.deviceOf(device))
	if err != nil || pin == "" {
		return "", dbus.NewError("org.bluez.Error.Rejected", []interface{}{"pin request declined"})
	}
	return pin, nil
}

func (a *dbusAgent) DisplayPinCode(device dbus.ObjectPath, pincode string) *dbus.Error {
	if a.agent != nil {
		_ = a.agent.DisplayPin(a.ctx, a.deviceOf(device), pincode)
	}
	return nil
}

func (a *dbusAgent) RequestPasskey(device dbus.ObjectPath) (uint32, *dbus.Error) {
	if a.agent == nil {
		return 0, dbus.NewError("org.bluez.Error.Rejected", []interface{}{"no pairing agent"})
	}
	pin, err := a.agent.RequestPin(a.ctx, a.deviceOf(device))
	if err != nil || pin == "" {
		return 0, dbus.NewError("org.bluez.Error.Rejected", []interface{}{"passkey request declined"})
	}
	var passkey uint32
	if _, err := fmt.Sscanf(pin, "%d", &passkey); err != nil {
		return 0, dbus.NewError("org.bluez.Error.Rejected", []interface{}{"non-numeric passkey"})
	}
	return passkey, nil
}

func (a *dbusAgent) DisplayPasskey(device dbus.ObjectPath, passkey uint32, entered uint16) *dbus.Error {
	if a.agent != nil {
		_ = a.agent.DisplayPin(a.ctx, a.deviceOf(device), fmt.Sprintf("%06d", passkey))
	}
	return nil
}

func (a *dbusAgent) RequestConfirmation(device dbus.ObjectPath, passkey uint32) *dbus.Error {
	if a.agent == nil {
		return nil
	}
	ok, err := a.agent.ConfirmPin(a.ctx, a.deviceOf(device), fmt.Sprintf("%06d", passkey))
	if err != nil || !ok {
		return dbus.NewError("org.bluez.Error.Rejected", []interface{}{"passkey confirmation declined"})
	}
	return nil
}

func (a *dbusAgent) RequestAuthorization(device dbus.ObjectPath) *dbus.Error {
	if a.agent == nil {
		return nil
	}
	ok, err := a.agent.Confirm(a.ctx, a.deviceOf(device))
	if err != nil || !ok {
		return dbus.NewError("org.bluez.Error.Rejected", []interface{}{"pairing declined"})
	}
	return nil
}

func (a *dbusAgent) AuthorizeService(device dbus.ObjectPath, uuid string) *dbus.Error {
	return nil
}

func (a *dbusAgent) Cancel() *dbus.Error { return nil }

// registerAgent exports a fresh dbusAgent at a unique object path and
// registers it with BlueZ's AgentManager1, mirroring the original
// implementation's per-pairing agent lifecycle (register before Pair,
// unregister unconditionally afterward) rather than one process-wide
// agent. The returned cleanup unregisters and unexports it; callers must
// call it exactly once, typically via defer.
func registerAgent(conn *dbus.Conn, agent goble.PairingAgent, ctx context.Context, deviceOf func(dbus.ObjectPath) goble.Device) (func(), error) {
	n := atomic.AddUint64(&agentSeq, 1)
	path := dbus.ObjectPath(fmt.Sprintf("/org/goble/agent%d_%d", time.Now().UnixNano(), n))

	handler := &dbusAgent{ctx: ctx, agent: agent, deviceOf: deviceOf}
	if err := conn.Export(handler, path, ifaceAgent); err != nil {
		return nil, fmt.Errorf("bluez: export agent: %w", err)
	}

	capability := "KeyboardDisplay"
	if agent == nil {
		capability = "NoInputNoOutput"
	}

	mgr := conn.Object(busName, rootPath)
	if call := mgr.Call(ifaceAgentManager+".RegisterAgent", 0, path, capability); call.Err != nil {
		conn.Export(nil, path, ifaceAgent)
		return nil, fmt.Errorf("bluez: RegisterAgent: %w", call.Err)
	}

	return func() {
		mgr.Call(ifaceAgentManager+".UnregisterAgent", 0, path)
		conn.Export(nil, path, ifaceAgent)
	}, nil
}
