package goble

import "context"

// PairingAgent routes OS pairing-dialog callbacks to the application. A
// Client holds at most one PairingAgent; the backend decides which method
// the current I/O capability flow calls.
//
// On CoreBluetooth, programmatic pairing is unavailable: Client.Pair is a
// no-op that logs and never calls the agent. On WinRT, the client attempts
// the highest supported DevicePairingProtectionLevel first, descending on
// ProtectionLevelCouldNotBeMet, and may call more than one agent method in
// sequence as it does so.
type PairingAgent interface {
	// Confirm asks the user to accept or reject pairing with device with
	// no PIN/passkey exchange ("just works" or numeric-comparison-less
	// confirmation flows).
	Confirm(ctx context.Context, device Device) (bool, error)

	// ConfirmPin asks the user to confirm that pin, displayed by the
	// peripheral, matches what the host expects.
	ConfirmPin(ctx context.Context, device Device, pin string) (bool, error)

	// DisplayPin shows pin to the user and blocks until the pairing
	// exchange completes or ctx is canceled.
	DisplayPin(ctx context.Context, device Device, pin string) error

	// RequestPin asks the user to type a PIN the peripheral is
	// requesting. Returns ("", nil) if the user declines.
	RequestPin(ctx context.Context, device Device) (string, error)
}
