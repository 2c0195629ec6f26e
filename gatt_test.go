package goble

import "testing"

func buildTestCollection(t *testing.T) *Collection {
	t.Helper()
	c := NewCollection(185)
	if err := c.AddService(&Service{Handle: 1, UUID: MustParseUUID("1800")}); err != nil {
		t.Fatalf("AddService: %v", err)
	}
	if err := c.AddCharacteristic(&Characteristic{Handle: 2, UUID: MustParseUUID("2a00"), ServiceHandle: 1, Properties: PropertyRead}); err != nil {
		t.Fatalf("AddCharacteristic: %v", err)
	}
	if err := c.AddDescriptor(&Descriptor{Handle: 3, UUID: MustParseUUID("2902"), CharacteristicHandle: 2}); err != nil {
		t.Fatalf("AddDescriptor: %v", err)
	}
	return c
}

func TestCollectionAddAndValidate(t *testing.T) {
	c := buildTestCollection(t)
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestCollectionAddServiceDuplicateHandle(t *testing.T) {
	c := buildTestCollection(t)
	if err := c.AddService(&Service{Handle: 1, UUID: MustParseUUID("1801")}); err == nil {
		t.Fatal("expected error inserting duplicate service handle")
	}
}

func TestCollectionAddCharacteristicUnknownService(t *testing.T) {
	c := NewCollection(0)
	err := c.AddCharacteristic(&Characteristic{Handle: 2, UUID: MustParseUUID("2a00"), ServiceHandle: 99})
	if err == nil {
		t.Fatal("expected error referencing unknown service handle")
	}
}

func TestCollectionAddDescriptorUnknownCharacteristic(t *testing.T) {
	c := NewCollection(0)
	err := c.AddDescriptor(&Descriptor{Handle: 3, UUID: MustParseUUID("2902"), CharacteristicHandle: 99})
	if err == nil {
		t.Fatal("expected error referencing unknown characteristic handle")
	}
}

func TestCollectionDefaultMTU(t *testing.T) {
	c := NewCollection(0)
	if got := c.MTU(); got != 23 {
		t.Errorf("default MTU = %d, want 23", got)
	}
}

func TestCollectionSetMTU(t *testing.T) {
	c := NewCollection(23)
	c.SetMTU(185)
	if got := c.MTU(); got != 185 {
		t.Errorf("MTU() = %d, want 185", got)
	}
}

func TestCollectionGetServiceByHandle(t *testing.T) {
	c := buildTestCollection(t)
	svc, err := c.GetServiceByHandle(1)
	if err != nil {
		t.Fatalf("GetServiceByHandle: %v", err)
	}
	if !svc.UUID.Equal(MustParseUUID("1800")) {
		t.Errorf("unexpected service UUID %s", svc.UUID)
	}
	if _, err := c.GetServiceByHandle(42); err == nil {
		t.Fatal("expected error for unknown handle")
	}
}

func TestCollectionGetServiceByUUID(t *testing.T) {
	c := buildTestCollection(t)
	svc, err := c.GetServiceByUUID(MustParseUUID("1800"))
	if err != nil {
		t.Fatalf("GetServiceByUUID: %v", err)
	}
	if svc.Handle != 1 {
		t.Errorf("unexpected handle %d", svc.Handle)
	}
	if _, err := c.GetServiceByUUID(MustParseUUID("1801")); err == nil {
		t.Fatal("expected error for unknown UUID")
	}
}

func TestCollectionGetServiceByUUIDAmbiguous(t *testing.T) {
	c := buildTestCollection(t)
	if err := c.AddService(&Service{Handle: 10, UUID: MustParseUUID("1800")}); err != nil {
		t.Fatalf("AddService: %v", err)
	}
	if _, err := c.GetServiceByUUID(MustParseUUID("1800")); err == nil {
		t.Fatal("expected ambiguous-UUID error")
	}
}

func TestCollectionGetCharacteristicByHandleAndUUID(t *testing.T) {
	c := buildTestCollection(t)
	byHandle, err := c.GetCharacteristic(Handle(2))
	if err != nil {
		t.Fatalf("GetCharacteristic(Handle): %v", err)
	}
	byUUID, err := c.GetCharacteristic(MustParseUUID("2a00"))
	if err != nil {
		t.Fatalf("GetCharacteristic(UUID): %v", err)
	}
	if byHandle != byUUID {
		t.Error("expected both lookups to resolve to the same characteristic")
	}
	byInt, err := c.GetCharacteristic(2)
	if err != nil {
		t.Fatalf("GetCharacteristic(int): %v", err)
	}
	if byInt != byHandle {
		t.Error("int specifier should resolve identically to Handle")
	}
	byPtr, err := c.GetCharacteristic(byHandle)
	if err != nil {
		t.Fatalf("GetCharacteristic(*Characteristic): %v", err)
	}
	if byPtr != byHandle {
		t.Error("pointer specifier should resolve to itself")
	}
}

func TestCollectionGetCharacteristicAmbiguousUUID(t *testing.T) {
	c := buildTestCollection(t)
	if err := c.AddCharacteristic(&Characteristic{Handle: 20, UUID: MustParseUUID("2a00"), ServiceHandle: 1}); err != nil {
		t.Fatalf("AddCharacteristic: %v", err)
	}
	if _, err := c.GetCharacteristic(MustParseUUID("2a00")); err == nil {
		t.Fatal("expected ambiguous-UUID error")
	}
}

func TestCollectionGetCharacteristicUnsupportedSpec(t *testing.T) {
	c := buildTestCollection(t)
	if _, err := c.GetCharacteristic("not-a-valid-spec"); err == nil {
		t.Fatal("expected error for unsupported specifier type")
	}
}

func TestCollectionGetCharacteristicForeignPointer(t *testing.T) {
	c := buildTestCollection(t)
	foreign := &Characteristic{Handle: 99, UUID: MustParseUUID("2a19")}
	if _, err := c.GetCharacteristic(foreign); err == nil {
		t.Fatal("expected error for characteristic not attached to this connection")
	}
}

func TestCollectionGetDescriptor(t *testing.T) {
	c := buildTestCollection(t)
	d, err := c.GetDescriptor(3)
	if err != nil {
		t.Fatalf("GetDescriptor: %v", err)
	}
	if d.CharacteristicHandle != 2 {
		t.Errorf("unexpected characteristic handle %d", d.CharacteristicHandle)
	}
	if _, err := c.GetDescriptor(42); err == nil {
		t.Fatal("expected error for unknown descriptor handle")
	}
}

func TestCollectionServicesSortedByHandle(t *testing.T) {
	c := NewCollection(0)
	for _, h := range []Handle{5, 1, 3} {
		if err := c.AddService(&Service{Handle: h, UUID: MustParseUUID("1800")}); err != nil {
			t.Fatalf("AddService(%d): %v", h, err)
		}
	}
	svcs := c.Services()
	if len(svcs) != 3 {
		t.Fatalf("Services() len = %d, want 3", len(svcs))
	}
	for i := 1; i < len(svcs); i++ {
		if svcs[i-1].Handle >= svcs[i].Handle {
			t.Fatalf("Services() not sorted by handle: %v", svcs)
		}
	}
}

func TestCollectionValidateDanglingReferences(t *testing.T) {
	c := NewCollection(0)
	if err := c.AddService(&Service{Handle: 1, UUID: MustParseUUID("1800")}); err != nil {
		t.Fatalf("AddService: %v", err)
	}
	if err := c.AddCharacteristic(&Characteristic{Handle: 2, UUID: MustParseUUID("2a00"), ServiceHandle: 1}); err != nil {
		t.Fatalf("AddCharacteristic: %v", err)
	}
	// Directly corrupt the service handle to simulate a dangling reference
	// that bypassed AddCharacteristic's own check.
	ch, err := c.GetCharacteristic(Handle(2))
	if err != nil {
		t.Fatalf("GetCharacteristic: %v", err)
	}
	ch.ServiceHandle = 404
	if err := c.Validate(); err == nil {
		t.Fatal("expected Validate to catch dangling service handle")
	}
}

func TestMaxWriteWithoutResponse(t *testing.T) {
	c := buildTestCollection(t)
	ch, err := c.GetCharacteristic(Handle(2))
	if err != nil {
		t.Fatalf("GetCharacteristic: %v", err)
	}
	if got, want := ch.MaxWriteWithoutResponse(), 185-3; got != want {
		t.Errorf("MaxWriteWithoutResponse() = %d, want %d", got, want)
	}

	detached := &Characteristic{Handle: 99, UUID: MustParseUUID("2a19")}
	if got := detached.MaxWriteWithoutResponse(); got != 0 {
		t.Errorf("detached characteristic MaxWriteWithoutResponse() = %d, want 0", got)
	}
}
