package goble_test

import (
	"context"
	"testing"
	"time"

	"github.com/gable-project/goble"
	"github.com/gable-project/goble/internal/mock"
)

func widgetEvents() []goble.AdvertisementEvent {
	return []goble.AdvertisementEvent{
		{
			Device:        goble.Device{Address: "AA:BB:CC:DD:EE:01", Name: "widget-1"},
			Advertisement: goble.AdvertisementData{LocalName: "widget-1", ServiceUUIDs: []goble.UUID{goble.MustParseUUID("1800")}},
		},
		{
			Device:        goble.Device{Address: "AA:BB:CC:DD:EE:02", Name: "gadget-1"},
			Advertisement: goble.AdvertisementData{LocalName: "gadget-1", ServiceUUIDs: []goble.UUID{goble.MustParseUUID("180d")}},
		},
	}
}

// TestScannerDiscoverByName is scenario S1: scan, observe both devices, and
// pick the one matching a name predicate.
func TestScannerDiscoverByName(t *testing.T) {
	backend := mock.NewScannerBackend(widgetEvents(), time.Millisecond)
	var found []goble.Device
	s, err := goble.NewScannerWithBackend(backend, func(d goble.Device, _ goble.AdvertisementData) {
		found = append(found, d)
	}, nil, goble.ScanActive)
	if err != nil {
		t.Fatalf("NewScannerWithBackend: %v", err)
	}

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForCondition(t, func() bool { return len(found) == 2 })
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	var widget goble.Device
	for _, d := range found {
		if d.Name == "widget-1" {
			widget = d
		}
	}
	if widget.Address != "AA:BB:CC:DD:EE:01" {
		t.Fatalf("expected to discover widget-1, found %+v", found)
	}
}

// TestScannerSeenDevicesEmptyAfterStart covers the invariant that
// SeenDevices is empty immediately after Start, before any advertisement
// has been observed.
func TestScannerSeenDevicesEmptyAfterStart(t *testing.T) {
	backend := mock.NewScannerBackend(widgetEvents(), 50*time.Millisecond)
	s, err := goble.NewScannerWithBackend(backend, nil, nil, goble.ScanActive)
	if err != nil {
		t.Fatalf("NewScannerWithBackend: %v", err)
	}
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(ctx)

	if got := s.SeenDevices(); len(got) != 0 {
		t.Errorf("SeenDevices() immediately after Start = %v, want empty", got)
	}
}

// TestScannerEmptyFilterMatchesEverything covers the invariant that an
// empty/nil service_uuids list filters nothing.
func TestScannerEmptyFilterMatchesEverything(t *testing.T) {
	backend := mock.NewScannerBackend(widgetEvents(), time.Millisecond)
	count := 0
	s, err := goble.NewScannerWithBackend(backend, func(goble.Device, goble.AdvertisementData) {
		count++
	}, nil, goble.ScanActive)
	if err != nil {
		t.Fatalf("NewScannerWithBackend: %v", err)
	}
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForCondition(t, func() bool { return count == 2 })
	s.Stop(ctx)
}

// TestScannerServiceUUIDFilter covers the non-empty filter path: only
// advertisements carrying a matching service UUID are delivered.
func TestScannerServiceUUIDFilter(t *testing.T) {
	backend := mock.NewScannerBackend(widgetEvents(), time.Millisecond)
	var names []string
	s, err := goble.NewScannerWithBackend(backend, func(d goble.Device, _ goble.AdvertisementData) {
		names = append(names, d.Name)
	}, []goble.UUID{goble.MustParseUUID("180d")}, goble.ScanActive)
	if err != nil {
		t.Fatalf("NewScannerWithBackend: %v", err)
	}
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForCondition(t, func() bool { return len(names) == 1 })
	s.Stop(ctx)

	if len(names) != 1 || names[0] != "gadget-1" {
		t.Fatalf("expected only gadget-1 to pass the filter, got %v", names)
	}
}

// TestScannerAlreadyScanning covers the AlreadyScanning invariant.
func TestScannerAlreadyScanning(t *testing.T) {
	backend := mock.NewScannerBackend(nil, time.Millisecond)
	s, err := goble.NewScannerWithBackend(backend, nil, nil, goble.ScanActive)
	if err != nil {
		t.Fatalf("NewScannerWithBackend: %v", err)
	}
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(ctx)

	if err := s.Start(ctx); err != goble.ErrAlreadyScanning {
		t.Errorf("second Start() = %v, want ErrAlreadyScanning", err)
	}
}

// TestScannerNoPassiveScanWithoutPatterns covers the passive-scan guard.
func TestScannerNoPassiveScanWithoutPatterns(t *testing.T) {
	backend := mock.NewScannerBackend(nil, time.Millisecond)
	s, err := goble.NewScannerWithBackend(backend, nil, nil, goble.ScanPassive)
	if err != nil {
		t.Fatalf("NewScannerWithBackend: %v", err)
	}
	if err := s.Start(context.Background()); err != goble.ErrNoPassiveScan {
		t.Errorf("Start() = %v, want ErrNoPassiveScan", err)
	}
}

// TestScannerUnregister ensures an unregistered callback stops receiving
// events.
func TestScannerUnregister(t *testing.T) {
	backend := mock.NewScannerBackend(widgetEvents(), time.Millisecond)
	s, err := goble.NewScannerWithBackend(backend, nil, nil, goble.ScanActive)
	if err != nil {
		t.Fatalf("NewScannerWithBackend: %v", err)
	}
	count := 0
	tok := s.OnDetect(func(goble.Device, goble.AdvertisementData) { count++ })
	s.Unregister(tok)

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	s.Stop(ctx)

	if count != 0 {
		t.Errorf("unregistered callback fired %d times, want 0", count)
	}
}

func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}
