package goble

import (
	"context"
	"sync"
	"time"
)

// DetectionCallback observes one non-filtered advertisement event. It must
// not block — register an async callback instead if the handler needs to
// perform I/O.
type DetectionCallback func(Device, AdvertisementData)

// AsyncDetectionCallback is the async counterpart of DetectionCallback:
// the Scanner spawns a goroutine for each invocation and tracks it until
// completion, so Close can wait for in-flight handlers to finish.
type AsyncDetectionCallback func(context.Context, Device, AdvertisementData)

// DetectionToken unregisters a previously registered detection callback.
type DetectionToken uint64

type detectionEntry struct {
	token DetectionToken
	sync  DetectionCallback
	async AsyncDetectionCallback
}

// Scanner discovers nearby BLE peripherals. Construct with NewScanner;
// start discovery with Start, stop with Stop or Close.
type Scanner struct {
	backend ScannerBackend
	opts    ScanOptions

	mu         sync.Mutex
	started    bool
	cancelScan context.CancelFunc
	exec       *executor
	asyncWG    sync.WaitGroup

	callbackMu sync.Mutex
	callbacks  []detectionEntry
	nextToken  DetectionToken

	seenMu sync.RWMutex
	seen   map[string]seenEntry
}

type seenEntry struct {
	device Device
	adv    AdvertisementData
}

// NewScanner constructs a Scanner. callback, if non-nil, is registered as
// the first detection callback. serviceUUIDs, if non-empty, restricts
// delivered advertisements to those advertising at least one of the given
// UUIDs; an empty or nil list means "no filter". mode selects active or
// passive scanning — passive requires opts.Patterns to be non-empty
// (Start returns ErrNoPassiveScan otherwise; the BlueZ and CoreBluetooth
// backends reject passive mode in any case).
func NewScanner(callback DetectionCallback, serviceUUIDs []UUID, mode ScanMode, opts ...ScanOptions) (*Scanner, error) {
	if newScannerBackend == nil {
		return nil, NewBluetoothUnavailableError(ReasonNoBluetooth, "no scanner backend linked for this platform")
	}
	backend, err := newScannerBackend()
	if err != nil {
		return nil, err
	}
	var o ScanOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Mode = mode
	o.ServiceUUIDs = serviceUUIDs

	s := &Scanner{
		backend: backend,
		opts:    o,
		seen:    make(map[string]seenEntry),
	}
	if callback != nil {
		s.OnDetect(callback)
	}
	return s, nil
}

// NewScannerWithBackend constructs a Scanner bound to an already-built
// backend, bypassing the per-platform backend factory. Intended for tests
// that exercise the façade against internal/mock rather than a real OS
// integration.
func NewScannerWithBackend(backend ScannerBackend, callback DetectionCallback, serviceUUIDs []UUID, mode ScanMode, opts ...ScanOptions) (*Scanner, error) {
	var o ScanOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Mode = mode
	o.ServiceUUIDs = serviceUUIDs

	s := &Scanner{
		backend: backend,
		opts:    o,
		seen:    make(map[string]seenEntry),
	}
	if callback != nil {
		s.OnDetect(callback)
	}
	return s, nil
}

// OnDetect registers a synchronous detection callback, called in
// registration order for every non-filtered event. Returns a token for
// Unregister.
func (s *Scanner) OnDetect(cb DetectionCallback) DetectionToken {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	s.nextToken++
	tok := s.nextToken
	s.callbacks = append(s.callbacks, detectionEntry{token: tok, sync: cb})
	return tok
}

// OnDetectAsync registers an async detection callback: each invocation
// runs in its own goroutine, retained until completion so Close can drain
// them.
func (s *Scanner) OnDetectAsync(cb AsyncDetectionCallback) DetectionToken {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	s.nextToken++
	tok := s.nextToken
	s.callbacks = append(s.callbacks, detectionEntry{token: tok, async: cb})
	return tok
}

// Unregister removes a previously registered detection callback. A no-op
// if tok is unknown.
func (s *Scanner) Unregister(tok DetectionToken) {
	s.callbackMu.Lock()
	defer s.callbackMu.Unlock()
	for i, e := range s.callbacks {
		if e.token == tok {
			s.callbacks = append(s.callbacks[:i], s.callbacks[i+1:]...)
			return
		}
	}
}

// Start begins discovery. Fails with ErrAlreadyScanning if already
// started. seen_devices is cleared.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyScanning
	}
	if s.opts.Mode == ScanPassive && len(s.opts.Patterns) == 0 {
		s.mu.Unlock()
		return ErrNoPassiveScan
	}
	s.seenMu.Lock()
	s.seen = make(map[string]seenEntry)
	s.seenMu.Unlock()

	s.exec = newExecutor()
	go s.exec.run()

	scanCtx, cancel := context.WithCancel(ctx)
	s.cancelScan = cancel
	s.started = true
	s.mu.Unlock()

	if err := s.backend.Start(scanCtx, s.opts, func(ev AdvertisementEvent) {
		s.exec.post(func() { s.dispatch(ev) })
	}); err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		cancel()
		s.exec.close()
		return err
	}
	return nil
}

// Stop terminates discovery. Safe to call when not started.
func (s *Scanner) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancelScan
	exec := s.exec
	s.mu.Unlock()

	err := s.backend.Stop(ctx)
	if cancel != nil {
		cancel()
	}
	if exec != nil {
		exec.close()
	}
	s.asyncWG.Wait()
	return err
}

// Close stops the scanner, satisfying io.Closer.
func (s *Scanner) Close() error {
	return s.Stop(context.Background())
}

// matchesFilter implements the filter semantics: an empty filter passes
// everything; a non-empty filter drops advertisements with no service
// UUIDs and requires at least one case-insensitive match otherwise.
func (s *Scanner) matchesFilter(adv AdvertisementData) bool {
	if len(s.opts.ServiceUUIDs) == 0 {
		return true
	}
	if len(adv.ServiceUUIDs) == 0 {
		return false
	}
	for _, want := range s.opts.ServiceUUIDs {
		if adv.hasServiceUUID(want) {
			return true
		}
	}
	return false
}

// dispatch runs on the executor goroutine: it applies the filter, updates
// seen_devices (newest advertisement wins, no deep merge; device Name is
// refreshed), and fans the event out to every registered callback in
// registration order.
func (s *Scanner) dispatch(ev AdvertisementEvent) {
	if !s.matchesFilter(ev.Advertisement) {
		return
	}

	s.seenMu.Lock()
	if existing, ok := s.seen[ev.Device.Address]; ok {
		if ev.Device.Name != "" {
			existing.device.Name = ev.Device.Name
		}
		existing.adv = ev.Advertisement
		s.seen[ev.Device.Address] = existing
	} else {
		s.seen[ev.Device.Address] = seenEntry{device: ev.Device, adv: ev.Advertisement}
	}
	s.seenMu.Unlock()

	s.callbackMu.Lock()
	entries := append([]detectionEntry(nil), s.callbacks...)
	s.callbackMu.Unlock()

	for _, e := range entries {
		switch {
		case e.sync != nil:
			e.sync(ev.Device, ev.Advertisement)
		case e.async != nil:
			cb := e.async
			s.asyncWG.Add(1)
			go func() {
				defer s.asyncWG.Done()
				cb(context.Background(), ev.Device, ev.Advertisement)
			}()
		}
	}
}

// SeenDevices returns a snapshot of every (device, advertisement) pair
// observed since the most recent Start. Empty immediately after Start and
// before any advertisement is observed.
func (s *Scanner) SeenDevices() map[string]struct {
	Device        Device
	Advertisement AdvertisementData
} {
	s.seenMu.RLock()
	defer s.seenMu.RUnlock()
	out := make(map[string]struct {
		Device        Device
		Advertisement AdvertisementData
	}, len(s.seen))
	for addr, e := range s.seen {
		out[addr] = struct {
			Device        Device
			Advertisement AdvertisementData
		}{Device: e.device, Advertisement: e.adv}
	}
	return out
}

// Advertisements returns a range-over-func iterator yielding every
// (device, advertisement) pair observed after iteration begins. Stop
// ranging (break, or let the loop's context end) to cancel early; the
// Scanner itself is unaffected and can be iterated again.
func (s *Scanner) Advertisements(ctx context.Context) func(func(Device, AdvertisementData) bool) {
	return func(yield func(Device, AdvertisementData) bool) {
		ch := make(chan AdvertisementEvent, 16)
		tok := s.OnDetect(func(d Device, a AdvertisementData) {
			select {
			case ch <- AdvertisementEvent{Device: d, Advertisement: a}:
			default:
			}
		})
		defer s.Unregister(tok)

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if !yield(ev.Device, ev.Advertisement) {
					return
				}
			}
		}
	}
}

// Discover starts the scanner, waits for timeout, stops it, and returns a
// snapshot of every device observed.
func Discover(ctx context.Context, timeout time.Duration, serviceUUIDs []UUID, mode ScanMode) ([]Device, error) {
	s, err := NewScanner(nil, serviceUUIDs, mode)
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.Stop(context.Background())
		return nil, ctx.Err()
	case <-timer.C:
	}
	if err := s.Stop(ctx); err != nil {
		return nil, err
	}
	seen := s.SeenDevices()
	devices := make([]Device, 0, len(seen))
	for _, e := range seen {
		devices = append(devices, e.Device)
	}
	return devices, nil
}

// FindDeviceByFilter starts a scanner with a temporary callback that
// resolves on the first advertisement for which predicate returns true.
// Returns (Device{}, false, nil) on timeout.
func FindDeviceByFilter(ctx context.Context, predicate func(Device, AdvertisementData) bool, timeout time.Duration) (Device, bool, error) {
	s, err := NewScanner(nil, nil, ScanActive)
	if err != nil {
		return Device{}, false, err
	}

	found := make(chan Device, 1)
	s.OnDetect(func(d Device, a AdvertisementData) {
		if predicate(d, a) {
			select {
			case found <- d:
			default:
			}
		}
	})

	if err := s.Start(ctx); err != nil {
		return Device{}, false, err
	}
	defer s.Stop(context.Background())

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case d := <-found:
		return d, true, nil
	case <-timer.C:
		return Device{}, false, nil
	case <-ctx.Done():
		return Device{}, false, ctx.Err()
	}
}

// FindDeviceByAddress is FindDeviceByFilter specialized to an exact
// address match.
func FindDeviceByAddress(ctx context.Context, address string, timeout time.Duration) (Device, bool, error) {
	return FindDeviceByFilter(ctx, func(d Device, _ AdvertisementData) bool {
		return d.Address == address
	}, timeout)
}
