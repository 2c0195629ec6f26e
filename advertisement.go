package goble

import "maps"

// AdvertisementData is an immutable record of one advertisement
// observation. A single advertising event on CoreBluetooth may arrive as
// a legacy advertisement plus a separate scan response. mergeScanResponse
// folds two such fragments together, but the Scanner does not call it:
// Scanner.dispatch keeps only the newest AdvertisementData per device, so a
// scan response replaces the advertisement seen before it.
type AdvertisementData struct {
	LocalName        string
	ManufacturerData map[uint16][]byte // company ID -> bytes
	ServiceData      map[UUID][]byte
	ServiceUUIDs     []UUID
	TxPower          *int8
	RSSI             int16
	PlatformData     any // opaque backend-specific blob
}

// Equal reports structural equality: same fields, same map contents,
// independent of map iteration order.
func (a AdvertisementData) Equal(b AdvertisementData) bool {
	if a.LocalName != b.LocalName || a.RSSI != b.RSSI {
		return false
	}
	if (a.TxPower == nil) != (b.TxPower == nil) {
		return false
	}
	if a.TxPower != nil && *a.TxPower != *b.TxPower {
		return false
	}
	if len(a.ManufacturerData) != len(b.ManufacturerData) || len(a.ServiceData) != len(b.ServiceData) {
		return false
	}
	for id, data := range a.ManufacturerData {
		if other, ok := b.ManufacturerData[id]; !ok || string(other) != string(data) {
			return false
		}
	}
	for id, data := range a.ServiceData {
		if other, ok := b.ServiceData[id]; !ok || string(other) != string(data) {
			return false
		}
	}
	if len(a.ServiceUUIDs) != len(b.ServiceUUIDs) {
		return false
	}
	for i, u := range a.ServiceUUIDs {
		if !u.Equal(b.ServiceUUIDs[i]) {
			return false
		}
	}
	return true
}

// hasServiceUUID reports whether uuid appears (case-insensitively, via
// canonical form comparison) in a's advertised service UUIDs.
func (a AdvertisementData) hasServiceUUID(uuid UUID) bool {
	for _, u := range a.ServiceUUIDs {
		if u.Equal(uuid) {
			return true
		}
	}
	return false
}

// mergeScanResponse folds a CoreBluetooth scan-response fragment (resp)
// into the legacy advertisement (a) already observed for the same device.
// The newest non-empty field from resp wins; maps are unioned rather than
// replaced, since CoreBluetooth often splits manufacturer/service data
// across the two events. Merging an empty AdvertisementData is identity.
func (a AdvertisementData) mergeScanResponse(resp AdvertisementData) AdvertisementData {
	merged := a
	if resp.LocalName != "" {
		merged.LocalName = resp.LocalName
	}
	if resp.TxPower != nil {
		merged.TxPower = resp.TxPower
	}
	if resp.RSSI != 0 {
		merged.RSSI = resp.RSSI
	}

	if len(resp.ManufacturerData) > 0 {
		merged.ManufacturerData = maps.Clone(a.ManufacturerData)
		if merged.ManufacturerData == nil {
			merged.ManufacturerData = make(map[uint16][]byte, len(resp.ManufacturerData))
		}
		maps.Copy(merged.ManufacturerData, resp.ManufacturerData)
	}
	if len(resp.ServiceData) > 0 {
		merged.ServiceData = maps.Clone(a.ServiceData)
		if merged.ServiceData == nil {
			merged.ServiceData = make(map[UUID][]byte, len(resp.ServiceData))
		}
		maps.Copy(merged.ServiceData, resp.ServiceData)
	}
	if len(resp.ServiceUUIDs) > 0 {
		merged.ServiceUUIDs = append(append([]UUID{}, a.ServiceUUIDs...), resp.ServiceUUIDs...)
	}
	if resp.PlatformData != nil {
		merged.PlatformData = resp.PlatformData
	}
	return merged
}

// Device is a BLE peripheral observed by a Scanner or targeted by a
// Client. It is created on first observation, mutated only by the scanner
// that created it (to refresh Name), and consumed by a Client on connect.
type Device struct {
	// Address is the backend-specific device identifier: colon-hex on
	// Linux/Windows/Android, a per-host random UUID on macOS (CoreBluetooth
	// never exposes the real MAC). Callers must treat it as an opaque
	// string — never parse it.
	Address string
	// Name is the OS-resolved display name, which may differ from the
	// advertised local name.
	Name string
	// Details is an opaque backend handle; it is the only field that
	// carries backend state out of the portable layer.
	Details any
}
