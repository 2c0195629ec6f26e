package goble

import (
	"fmt"
	"regexp"
	"time"
)

// Validation constants, carried over from the address/UUID/MTU limits a
// BLE host actually enforces.
const (
	macAddressLength = 17
	macAddressRegex  = `^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`

	minATTMTU = 23  // default ATT MTU
	maxATTMTU = 517 // maximum per BLE spec

	maxDeviceNameLength = 248
)

var macAddressPattern = regexp.MustCompile(macAddressRegex)

// ValidationError reports an out-of-range or malformed parameter.
type ValidationError struct {
	Parameter string
	Value     any
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("goble: invalid %s: %v (%s)", e.Parameter, e.Value, e.Reason)
}

func newValidationError(parameter string, value any, reason string) *ValidationError {
	return &ValidationError{Parameter: parameter, Value: value, Reason: reason}
}

// ValidateAddressString checks that addr is a colon-separated MAC address
// (XX:XX:XX:XX:XX:XX). The BlueZ and WinRT backends take peripheral
// addresses in this form; CoreBluetooth addresses its peripherals by a
// CBUUID-shaped identifier instead and does not use this validator.
func ValidateAddressString(addr string) error {
	if len(addr) != macAddressLength {
		return newValidationError("address", addr, fmt.Sprintf("must be %d characters long", macAddressLength))
	}
	if !macAddressPattern.MatchString(addr) {
		return newValidationError("address", addr, "must be in format XX:XX:XX:XX:XX:XX")
	}
	return nil
}

// ValidateUUID rejects the zero UUID, which never names a real GATT
// service, characteristic, or descriptor.
func ValidateUUID(u UUID) error {
	if u.IsZero() {
		return newValidationError("uuid", u.String(), "cannot be the zero UUID")
	}
	return nil
}

// ValidateMTU checks mtu falls within the ATT MTU range the spec allows
// (23..517).
func ValidateMTU(mtu uint16) error {
	if mtu < minATTMTU || mtu > maxATTMTU {
		return newValidationError("mtu", mtu, fmt.Sprintf("must be between %d and %d", minATTMTU, maxATTMTU))
	}
	return nil
}

// ValidateTimeout rejects non-positive or unreasonably large timeouts for
// the named operation.
func ValidateTimeout(timeout time.Duration, operation string) error {
	if timeout <= 0 {
		return newValidationError("timeout", timeout, "must be positive for "+operation)
	}
	const maxTimeout = 5 * time.Minute
	if timeout > maxTimeout {
		return newValidationError("timeout", timeout, fmt.Sprintf("cannot exceed %v for %s", maxTimeout, operation))
	}
	return nil
}

// ValidateDeviceName rejects names longer than the GAP device name limit
// or containing control characters other than tab/LF/CR.
func ValidateDeviceName(name string) error {
	if len(name) > maxDeviceNameLength {
		return newValidationError("deviceName", name, fmt.Sprintf("must be <= %d bytes", maxDeviceNameLength))
	}
	for i, r := range name {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return newValidationError("deviceName", name, fmt.Sprintf("contains invalid control character at position %d", i))
		}
	}
	return nil
}
