package goble

import (
	"errors"
	"testing"
)

func TestErrorKindString(t *testing.T) {
	cases := map[ErrorKind]string{
		ErrorKindBluetoothNotAvailable:  "BluetoothNotAvailable",
		ErrorKindDeviceNotFound:         "DeviceNotFound",
		ErrorKindDisconnected:           "Disconnected",
		ErrorKindInvalidState:           "InvalidState",
		ErrorKindCharacteristicNotFound: "CharacteristicNotFound",
		ErrorKindDescriptorNotFound:     "DescriptorNotFound",
		ErrorKindNotSupported:           "NotSupported",
		ErrorKindPairingFailed:          "PairingFailed",
		ErrorKindPairingCancelled:       "PairingCancelled",
		ErrorKindNoPassiveScan:          "NoPassiveScan",
		ErrorKindAlreadyScanning:        "AlreadyScanning",
		ErrorKindOS:                     "OSError",
		ErrorKindUnknown:                "Unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestUnavailableReasonString(t *testing.T) {
	cases := map[UnavailableReason]string{
		ReasonNoBluetooth:    "NO_BLUETOOTH",
		ReasonDeniedByUser:   "DENIED_BY_USER",
		ReasonDeniedBySystem: "DENIED_BY_SYSTEM",
		ReasonDeniedByUnknown: "DENIED_BY_UNKNOWN",
		ReasonPoweredOff:     "POWERED_OFF",
		ReasonUnsupported:    "UNSUPPORTED",
		ReasonUnauthorized:   "UNAUTHORIZED",
		ReasonResetting:      "RESETTING",
		ReasonUnknown:        "UNKNOWN",
	}
	for reason, want := range cases {
		if got := reason.String(); got != want {
			t.Errorf("UnavailableReason(%d).String() = %q, want %q", reason, got, want)
		}
	}
}

func TestErrorIsMatchesByKind(t *testing.T) {
	wrapped := newError(ErrorKindDisconnected, "lost link during write").WithCause(errors.New("dbus timeout"))
	if !errors.Is(wrapped, ErrDisconnected) {
		t.Error("expected errors.Is to match by Kind despite differing Message/Cause")
	}
	if errors.Is(wrapped, ErrInvalidState) {
		t.Error("errors.Is should not match a different Kind")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying failure")
	e := newError(ErrorKindOS, "backend call failed").WithCause(cause)
	if got := errors.Unwrap(e); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
}

func TestErrorMessageFormatting(t *testing.T) {
	plain := newError(ErrorKindDeviceNotFound, "no such device")
	if got, want := plain.Error(), "DeviceNotFound: no such device"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	withCause := newError(ErrorKindOS, "backend call failed").WithCause(errors.New("boom"))
	if got, want := withCause.Error(), "OSError: backend call failed: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewBluetoothUnavailableError(t *testing.T) {
	e := NewBluetoothUnavailableError(ReasonPoweredOff, "adapter is off")
	if e.Kind != ErrorKindBluetoothNotAvailable {
		t.Errorf("Kind = %v, want ErrorKindBluetoothNotAvailable", e.Kind)
	}
	if e.Reason != ReasonPoweredOff {
		t.Errorf("Reason = %v, want ReasonPoweredOff", e.Reason)
	}
}

func TestNewOSError(t *testing.T) {
	cause := errors.New("connection reset")
	e := NewOSError(111, cause)
	if e.Kind != ErrorKindOS {
		t.Errorf("Kind = %v, want ErrorKindOS", e.Kind)
	}
	if e.Code != 111 {
		t.Errorf("Code = %d, want 111", e.Code)
	}
	if !errors.Is(e, cause) {
		t.Error("expected errors.Is to traverse into Cause")
	}
}

func TestJoinErrorsNilWhenAllNil(t *testing.T) {
	if err := joinErrors(nil, nil, nil); err != nil {
		t.Errorf("joinErrors(nil, nil, nil) = %v, want nil", err)
	}
}

func TestJoinErrorsAggregates(t *testing.T) {
	a := errors.New("first failure")
	b := errors.New("second failure")
	err := joinErrors(nil, a, b)
	if err == nil {
		t.Fatal("expected a non-nil aggregate error")
	}
	if !errors.Is(err, a) || !errors.Is(err, b) {
		t.Error("expected aggregate error to match both constituents via errors.Is")
	}
}

func TestSentinelErrorsDistinctKinds(t *testing.T) {
	sentinels := []*Error{
		ErrDeviceNotFound, ErrDisconnected, ErrInvalidState, ErrCharacteristicNotFound,
		ErrDescriptorNotFound, ErrNotSupported, ErrPairingFailed, ErrPairingCancelled,
		ErrNoPassiveScan, ErrAlreadyScanning,
	}
	seen := make(map[ErrorKind]bool)
	for _, s := range sentinels {
		if seen[s.Kind] {
			t.Errorf("duplicate ErrorKind %v among top-level sentinels", s.Kind)
		}
		seen[s.Kind] = true
	}
}
