package goble

import (
	"fmt"
	"sort"
	"sync"
)

// Handle is an OS-reported ATT attribute handle, unique per connection
// within its kind (service, characteristic, or descriptor all have
// independent handle spaces on the wire, but this package keeps three
// separate maps so a collision across kinds is never possible either).
type Handle = uint16

// Descriptor is a GATT descriptor: a metadata attribute attached to a
// characteristic (the CCCD being the canonical example). Descriptors are
// addressed by handle only — Android does not expose descriptor handles
// through its Java API and fabricates them from the owning characteristic
// handle plus a sequential index, so UUID-based descriptor lookup across
// backends is not offered.
type Descriptor struct {
	Handle               Handle
	UUID                 UUID
	CharacteristicHandle Handle
}

// Characteristic is a GATT characteristic: a readable/writable/notifiable
// attribute inside a Service, with zero or more descriptors.
type Characteristic struct {
	Handle        Handle
	UUID          UUID
	Properties    PropertyFlag
	ServiceHandle Handle
	Descriptors   map[Handle]*Descriptor

	collection *Collection // set when owned by a Collection; nil otherwise
}

// MaxWriteWithoutResponse returns the largest payload, in bytes, that a
// write-without-response call can send in one ATT PDU: the connection's
// negotiated MTU minus the 3-byte ATT header. Returns 0 if the
// characteristic is not attached to a live Collection.
func (c *Characteristic) MaxWriteWithoutResponse() int {
	if c.collection == nil {
		return 0
	}
	mtu := c.collection.MTU()
	if mtu <= 3 {
		return 0
	}
	return int(mtu) - 3
}

// Service is a GATT primary or secondary service: a named group of
// characteristics.
type Service struct {
	Handle          Handle
	UUID            UUID
	Characteristics map[Handle]*Characteristic
}

// Collection is the GATT object tree built for one connected Client: a
// Service -> Characteristic -> Descriptor hierarchy plus handle/UUID
// lookup. It is rebuilt from scratch on every connection (via NewCollection
// and AddService/AddCharacteristic/AddDescriptor during discovery) and
// discarded on disconnect.
//
// Invariants, maintained incrementally as entries are added:
//  1. every descriptor's CharacteristicHandle names a characteristic present
//     in the tree, and that characteristic's Descriptors map contains it back;
//  2. every characteristic's ServiceHandle names a service present in the
//     tree, and that service's Characteristics map contains it back;
//  3. no two entities of the same kind (service, characteristic, descriptor)
//     share a handle (the Add methods reject duplicates);
//  4. a UUID lookup that matches more than one entity of that kind fails —
//     callers must resolve the ambiguity by handle.
//
// Validate re-checks invariants 1 and 2 over the whole tree.
type Collection struct {
	mu    sync.RWMutex
	mtu   uint16
	svcs  map[Handle]*Service
	chars map[Handle]*Characteristic
	descs map[Handle]*Descriptor
}

// NewCollection returns an empty GATT tree with the given negotiated MTU
// (23 — the default ATT MTU — if the backend has not negotiated one).
func NewCollection(mtu uint16) *Collection {
	if mtu == 0 {
		mtu = 23
	}
	return &Collection{
		mtu:   mtu,
		svcs:  make(map[Handle]*Service),
		chars: make(map[Handle]*Characteristic),
		descs: make(map[Handle]*Descriptor),
	}
}

// MTU returns the connection's negotiated ATT MTU.
func (c *Collection) MTU() uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mtu
}

// SetMTU updates the negotiated MTU, used by a backend once MTU exchange
// completes (BlueZ reads it off the characteristic's MTU property;
// CoreBluetooth/WinRT/Android report it directly).
func (c *Collection) SetMTU(mtu uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mtu = mtu
}

// AddService inserts svc into the tree. Returns an error if its handle is
// already taken by another service.
func (c *Collection) AddService(svc *Service) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.svcs[svc.Handle]; exists {
		return fmt.Errorf("goble: duplicate service handle %d", svc.Handle)
	}
	if svc.Characteristics == nil {
		svc.Characteristics = make(map[Handle]*Characteristic)
	}
	c.svcs[svc.Handle] = svc
	return nil
}

// AddCharacteristic inserts ch under the service named by ch.ServiceHandle,
// which must already be present in the tree.
func (c *Collection) AddCharacteristic(ch *Characteristic) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	svc, ok := c.svcs[ch.ServiceHandle]
	if !ok {
		return fmt.Errorf("goble: characteristic %d references unknown service handle %d", ch.Handle, ch.ServiceHandle)
	}
	if _, exists := c.chars[ch.Handle]; exists {
		return fmt.Errorf("goble: duplicate characteristic handle %d", ch.Handle)
	}
	if ch.Descriptors == nil {
		ch.Descriptors = make(map[Handle]*Descriptor)
	}
	ch.collection = c
	c.chars[ch.Handle] = ch
	svc.Characteristics[ch.Handle] = ch
	return nil
}

// AddDescriptor inserts d under the characteristic named by
// d.CharacteristicHandle, which must already be present in the tree.
func (c *Collection) AddDescriptor(d *Descriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.chars[d.CharacteristicHandle]
	if !ok {
		return fmt.Errorf("goble: descriptor %d references unknown characteristic handle %d", d.Handle, d.CharacteristicHandle)
	}
	if _, exists := c.descs[d.Handle]; exists {
		return fmt.Errorf("goble: duplicate descriptor handle %d", d.Handle)
	}
	c.descs[d.Handle] = d
	ch.Descriptors[d.Handle] = d
	return nil
}

// Validate checks invariants 1 and 2 named on Collection's doc comment:
// each parent handle resolves and each parent's map contains the child.
// Discovery code should call it once a pass completes.
func (c *Collection) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for h, ch := range c.chars {
		svc, ok := c.svcs[ch.ServiceHandle]
		if !ok {
			return fmt.Errorf("goble: characteristic %d has dangling service handle %d", h, ch.ServiceHandle)
		}
		if svc.Characteristics[h] != ch {
			return fmt.Errorf("goble: service %d does not contain characteristic %d", ch.ServiceHandle, h)
		}
	}
	for h, d := range c.descs {
		ch, ok := c.chars[d.CharacteristicHandle]
		if !ok {
			return fmt.Errorf("goble: descriptor %d has dangling characteristic handle %d", h, d.CharacteristicHandle)
		}
		if ch.Descriptors[h] != d {
			return fmt.Errorf("goble: characteristic %d does not contain descriptor %d", d.CharacteristicHandle, h)
		}
	}
	return nil
}

// Services returns every service in the tree, ordered by handle for
// deterministic iteration.
func (c *Collection) Services() []*Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Service, 0, len(c.svcs))
	for _, s := range c.svcs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// GetServiceByHandle resolves a service by its unique handle.
func (c *Collection) GetServiceByHandle(h Handle) (*Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	svc, ok := c.svcs[h]
	if !ok {
		return nil, newError(ErrorKindOS, fmt.Sprintf("no service with handle %d", h))
	}
	return svc, nil
}

// GetServiceByUUID resolves a service by UUID. Fails if zero or more than
// one service shares that UUID — callers must fall back to
// GetServiceByHandle when a UUID is known to be duplicated.
func (c *Collection) GetServiceByUUID(uuid UUID) (*Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var match *Service
	for _, s := range c.svcs {
		if s.UUID.Equal(uuid) {
			if match != nil {
				return nil, fmt.Errorf("goble: %w: service UUID %s is ambiguous, resolve by handle", ErrServiceNotFound, uuid)
			}
			match = s
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, uuid)
	}
	return match, nil
}

// ErrServiceNotFound is the sentinel returned (wrapped) when a service
// lookup fails, including the ambiguous-UUID case.
var ErrServiceNotFound = newError(ErrorKindOS, "service not found")

// GetCharacteristic resolves spec to a single characteristic. spec may be
// a Handle, a UUID, or a *Characteristic (returned as-is after a presence
// check). Any other type, or no match, returns ErrCharacteristicNotFound;
// more than one UUID match also fails, per the "resolve by handle" rule.
func (c *Collection) GetCharacteristic(spec any) (*Characteristic, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch v := spec.(type) {
	case Handle:
		ch, ok := c.chars[v]
		if !ok {
			return nil, fmt.Errorf("%w: handle %d", ErrCharacteristicNotFound, v)
		}
		return ch, nil
	case int:
		return c.GetCharacteristic(Handle(v))
	case UUID:
		var match *Characteristic
		for _, ch := range c.chars {
			if ch.UUID.Equal(v) {
				if match != nil {
					return nil, fmt.Errorf("%w: UUID %s is ambiguous, resolve by handle", ErrCharacteristicNotFound, v)
				}
				match = ch
			}
		}
		if match == nil {
			return nil, fmt.Errorf("%w: %s", ErrCharacteristicNotFound, v)
		}
		return match, nil
	case *Characteristic:
		if v == nil {
			return nil, ErrCharacteristicNotFound
		}
		if _, ok := c.chars[v.Handle]; !ok {
			return nil, fmt.Errorf("%w: characteristic not attached to this connection", ErrCharacteristicNotFound)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unsupported characteristic specifier %T", ErrCharacteristicNotFound, spec)
	}
}

// GetDescriptor resolves a descriptor by handle.
func (c *Collection) GetDescriptor(h Handle) (*Descriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.descs[h]
	if !ok {
		return nil, fmt.Errorf("%w: handle %d", ErrDescriptorNotFound, h)
	}
	return d, nil
}
