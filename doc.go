// Package goble is a cross-platform Bluetooth Low Energy (BLE) central-role
// client library for Go.
//
// It lets a host application discover nearby BLE peripherals, connect to
// them, enumerate their GATT service hierarchy, and perform reads, writes,
// notifications, indications, and pairing against remote characteristics
// and descriptors.
//
// # Architecture
//
// goble is a backend-agnostic façade over three OS-specific backends:
//
//   - Linux: BlueZ over D-Bus (internal/bluez)
//   - macOS/iOS: CoreBluetooth via cgo (internal/corebluetooth)
//   - Windows: WinRT projections (internal/winrt)
//
// Exactly one backend is compiled into any given binary, selected by Go
// build tags; the package never inspects runtime.GOOS. Every backend
// implements the ScannerBackend and ClientBackend contracts defined in this
// package, and the Scanner and Client façades hold a backend reference
// plus their own bookkeeping (callbacks, state, the GATT tree) — they own
// no OS state themselves.
//
// # Basic usage
//
//	devices, err := goble.Discover(ctx, 5*time.Second, nil, goble.ScanActive)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := goble.NewClientFromDevice(devices[0])
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Connect(ctx, false); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect(ctx)
//
//	data, err := client.ReadGATTChar(ctx, batteryLevelUUID, false)
//
// GATT-server (peripheral) support, mesh, classic Bluetooth, and L2CAP
// connection-oriented channels are out of scope for this package.
package goble
