package goble

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// baseUUIDSuffix is the Bluetooth Base UUID, used to expand 16-bit and
// 32-bit shorthand UUIDs to their canonical 128-bit form.
const baseUUIDSuffix = "0000-1000-8000-00805f9b34fb"

// UUID is a canonicalized Bluetooth UUID: always the lower-case 128-bit
// form xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx, regardless of how it was
// constructed.
type UUID struct {
	u uuid.UUID
}

// ParseUUID normalizes s, which may be a 16-bit ("180F"), 32-bit, or
// 128-bit UUID in any of the forms uuid.Parse accepts, into canonical
// form. 16-bit and 32-bit shorthand are expanded against the Bluetooth
// Base UUID.
func ParseUUID(s string) (UUID, error) {
	s = strings.TrimSpace(s)
	switch len(s) {
	case 4, 8:
		expanded := fmt.Sprintf("%08s-%s", strings.ToLower(s), baseUUIDSuffix)
		parsed, err := uuid.Parse(expanded)
		if err != nil {
			return UUID{}, fmt.Errorf("%w: %q", ErrInvalidUUID, s)
		}
		return UUID{u: parsed}, nil
	default:
		parsed, err := uuid.Parse(s)
		if err != nil {
			return UUID{}, fmt.Errorf("%w: %q", ErrInvalidUUID, s)
		}
		return UUID{u: parsed}, nil
	}
}

// MustParseUUID is like ParseUUID but panics on error. Intended for
// well-known constant UUIDs initialized at package load.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// String returns the canonical lower-case 128-bit form.
func (u UUID) String() string {
	return u.u.String()
}

// IsZero reports whether u is the zero-value UUID (all 128 bits zero, as
// in an uninitialized UUID or a parse of the nil UUID string).
func (u UUID) IsZero() bool {
	return u.u == uuid.UUID{}
}

// Equal reports whether two UUIDs are the same after canonicalization.
// Comparison is always case-insensitive because both sides are already
// canonical lower-case strings.
func (u UUID) Equal(other UUID) bool {
	return u.u == other.u
}

// Well-known GATT service, characteristic, and descriptor UUIDs from the
// Bluetooth SIG assigned numbers register.
var (
	UUIDGenericAccess     = MustParseUUID("1800")
	UUIDGenericAttribute  = MustParseUUID("1801")
	UUIDDeviceInformation = MustParseUUID("180A")
	UUIDBattery           = MustParseUUID("180F")
	UUIDHeartRate         = MustParseUUID("180D")

	UUIDDeviceName     = MustParseUUID("2A00")
	UUIDAppearance     = MustParseUUID("2A01")
	UUIDBatteryLevel   = MustParseUUID("2A19")
	UUIDManufacturer   = MustParseUUID("2A29")
	UUIDModelNumber    = MustParseUUID("2A24")
	UUIDSerialNumber   = MustParseUUID("2A25")
	UUIDFirmwareRev    = MustParseUUID("2A26")
	UUIDHardwareRev    = MustParseUUID("2A27")
	UUIDSoftwareRev    = MustParseUUID("2A28")
	UUIDSystemID       = MustParseUUID("2A23")

	UUIDCharacteristicExtendedProperties  = MustParseUUID("2900")
	UUIDCharacteristicUserDescription     = MustParseUUID("2901")
	UUIDClientCharacteristicConfiguration = MustParseUUID("2902")
	UUIDServerCharacteristicConfiguration = MustParseUUID("2903")
)

// PropertyFlag is a single GATT characteristic property bit.
type PropertyFlag uint16

const (
	PropertyBroadcast PropertyFlag = 1 << iota
	PropertyRead
	PropertyWriteWithoutResponse
	PropertyWrite
	PropertyNotify
	PropertyIndicate
	PropertyAuthenticatedSignedWrites
	PropertyExtendedProperties
	PropertyReliableWrite
	PropertyWritableAuxiliaries
)

var propertyNames = map[PropertyFlag]string{
	PropertyBroadcast:                 "broadcast",
	PropertyRead:                      "read",
	PropertyWriteWithoutResponse:      "write-without-response",
	PropertyWrite:                     "write",
	PropertyNotify:                    "notify",
	PropertyIndicate:                  "indicate",
	PropertyAuthenticatedSignedWrites: "authenticated-signed-writes",
	PropertyExtendedProperties:        "extended-properties",
	PropertyReliableWrite:             "reliable-write",
	PropertyWritableAuxiliaries:       "writable-auxiliaries",
}

var propertyByName = func() map[string]PropertyFlag {
	m := make(map[string]PropertyFlag, len(propertyNames))
	for flag, name := range propertyNames {
		m[name] = flag
	}
	return m
}()

// Has reports whether set contains flag.
func (f PropertyFlag) Has(flag PropertyFlag) bool {
	return f&flag != 0
}

// Names returns the property names set in f, in a stable order, matching
// the closed set named in the GATT property flags table.
func (f PropertyFlag) Names() []string {
	order := []PropertyFlag{
		PropertyBroadcast, PropertyRead, PropertyWriteWithoutResponse, PropertyWrite,
		PropertyNotify, PropertyIndicate, PropertyAuthenticatedSignedWrites,
		PropertyExtendedProperties, PropertyReliableWrite, PropertyWritableAuxiliaries,
	}
	var names []string
	for _, flag := range order {
		if f.Has(flag) {
			names = append(names, propertyNames[flag])
		}
	}
	return names
}

func (f PropertyFlag) String() string {
	return strings.Join(f.Names(), "|")
}

// PropertyFlagFromName maps a single BlueZ-style flag name ("write-without-response")
// to its PropertyFlag bit. Unknown names map to 0.
func PropertyFlagFromName(name string) PropertyFlag {
	return propertyByName[strings.ToLower(name)]
}
