package goble

import "testing"

func TestAdvertisementDataEqual(t *testing.T) {
	tx := int8(-50)
	a := AdvertisementData{
		LocalName:        "widget",
		ManufacturerData: map[uint16][]byte{0x004c: {1, 2, 3}},
		ServiceData:      map[UUID][]byte{MustParseUUID("180d"): {9}},
		ServiceUUIDs:     []UUID{MustParseUUID("1800"), MustParseUUID("180d")},
		TxPower:          &tx,
		RSSI:             -60,
	}
	b := a
	b.ManufacturerData = map[uint16][]byte{0x004c: {1, 2, 3}}
	b.ServiceData = map[UUID][]byte{MustParseUUID("180d"): {9}}
	b.ServiceUUIDs = []UUID{MustParseUUID("1800"), MustParseUUID("180d")}
	txCopy := int8(-50)
	b.TxPower = &txCopy

	if !a.Equal(b) {
		t.Error("structurally identical AdvertisementData should be Equal")
	}

	b.RSSI = -70
	if a.Equal(b) {
		t.Error("differing RSSI should not be Equal")
	}
}

func TestAdvertisementDataEqualNilVsSetTxPower(t *testing.T) {
	a := AdvertisementData{LocalName: "x"}
	tx := int8(-40)
	b := AdvertisementData{LocalName: "x", TxPower: &tx}
	if a.Equal(b) {
		t.Error("nil TxPower vs set TxPower should not be Equal")
	}
}

func TestHasServiceUUID(t *testing.T) {
	a := AdvertisementData{ServiceUUIDs: []UUID{MustParseUUID("1800"), MustParseUUID("180d")}}
	if !a.hasServiceUUID(MustParseUUID("180d")) {
		t.Error("expected 180d to be found")
	}
	if a.hasServiceUUID(MustParseUUID("1801")) {
		t.Error("expected 1801 to be absent")
	}
}

func TestHasServiceUUIDEmptyList(t *testing.T) {
	a := AdvertisementData{}
	if a.hasServiceUUID(MustParseUUID("1800")) {
		t.Error("empty ServiceUUIDs should never match")
	}
}

func TestMergeScanResponseIdentityOnEmpty(t *testing.T) {
	a := AdvertisementData{
		LocalName:        "base",
		ManufacturerData: map[uint16][]byte{1: {0xff}},
		RSSI:             -55,
	}
	merged := a.mergeScanResponse(AdvertisementData{})
	if merged.LocalName != "base" {
		t.Errorf("LocalName = %q, want %q", merged.LocalName, "base")
	}
	if len(merged.ManufacturerData) != 1 {
		t.Errorf("ManufacturerData should be preserved, got %v", merged.ManufacturerData)
	}
	// A zero RSSI in the response is an empty field and leaves the
	// existing RSSI in place.
	if merged.RSSI != -55 {
		t.Errorf("RSSI = %d, want -55 (preserved by empty response)", merged.RSSI)
	}
}

func TestMergeScanResponseUnion(t *testing.T) {
	a := AdvertisementData{
		ManufacturerData: map[uint16][]byte{1: {0xaa}},
		ServiceData:      map[UUID][]byte{MustParseUUID("1800"): {1}},
		ServiceUUIDs:     []UUID{MustParseUUID("1800")},
	}
	resp := AdvertisementData{
		LocalName:        "scan-resp-name",
		ManufacturerData: map[uint16][]byte{2: {0xbb}},
		ServiceData:      map[UUID][]byte{MustParseUUID("180d"): {2}},
		ServiceUUIDs:     []UUID{MustParseUUID("180d")},
		RSSI:             -40,
	}
	merged := a.mergeScanResponse(resp)

	if merged.LocalName != "scan-resp-name" {
		t.Errorf("LocalName = %q, want scan-resp-name", merged.LocalName)
	}
	if len(merged.ManufacturerData) != 2 {
		t.Errorf("ManufacturerData union len = %d, want 2", len(merged.ManufacturerData))
	}
	if len(merged.ServiceData) != 2 {
		t.Errorf("ServiceData union len = %d, want 2", len(merged.ServiceData))
	}
	if len(merged.ServiceUUIDs) != 2 {
		t.Errorf("ServiceUUIDs concatenation len = %d, want 2", len(merged.ServiceUUIDs))
	}
	if merged.RSSI != -40 {
		t.Errorf("RSSI = %d, want -40", merged.RSSI)
	}

	// The original a's maps must not have been mutated in place.
	if len(a.ManufacturerData) != 1 {
		t.Errorf("original ManufacturerData mutated: %v", a.ManufacturerData)
	}
}

func TestMergeScanResponsePlatformData(t *testing.T) {
	a := AdvertisementData{PlatformData: "legacy"}
	merged := a.mergeScanResponse(AdvertisementData{PlatformData: "scan-response"})
	if merged.PlatformData != "scan-response" {
		t.Errorf("PlatformData = %v, want scan-response", merged.PlatformData)
	}
}
