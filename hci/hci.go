// Package hci implements the host side of the command/response transport
// spoken by CC3000-class WiFi co-processors over a byte-serial link.
//
// The package turns the link into a BSD-flavored network API: the
// application thread issues a command through the framing layer, then spins
// until the interrupt dispatcher flags the matching reply event. One
// hardware interrupt context and one application thread share a small set of
// atomic flags; there is no other synchronization between the two.
package hci

import (
	"sync"
	"sync/atomic"
)

// EventFunc receives unsolicited events from the co-processor, plus the
// driver-synthesized codes (EvntDeviceLocked, EvntUnexpectedData).
//
// It is invoked from the interrupt context and must not block or call back
// into the Device.
type EventFunc func(event uint16, arg uint32)

// Config holds the construction parameters for a Device.
type Config struct {
	// Link is the byte-level hardware access. Required.
	Link Link

	// OnEvent is called for every unsolicited event. Optional.
	OnEvent EventFunc
}

// Device is the session object for one co-processor. It owns all state
// shared between the application thread and the interrupt context and is
// expected to live for the lifetime of the process.
//
// Only one command/response transaction can be in flight at a time; the
// public API serializes itself on an internal mutex. ServiceIRQ is the only
// method that may run concurrently with the rest.
type Device struct {
	link    Link
	onEvent EventFunc

	// mu serializes the command/response path. The interrupt context never
	// takes it.
	mu sync.Mutex

	state uint32 // atomic: statePowerup, stateIdle or stateWaitAssert

	// Frame state. Reset at the start of every frame, consumed to zero by
	// its end. Written by whichever context owns the active frame.
	payloadRemaining uint32 // atomic: bytes left in the in-flight frame
	padPending       uint32 // atomic bool: trailing alignment byte owed

	// Pending reply slot.
	pendingEvent     uint32 // atomic: awaited event code, or eventNone
	pendingAvailable uint32 // atomic bool: reply frame is open and matched

	// Inbound data handshake.
	dataExpected  uint32 // atomic bool: a recv is waiting for a data frame
	dataAvailable uint32 // atomic bool: data frame headers consumed

	// Flow-control pool. Seeded by Init from the co-processor's report.
	bufferCount      uint32 // atomic: total outbound buffer credits
	bufferSize       uint32 // atomic: co-processor buffer size in bytes
	availableBuffers uint32 // atomic: 0..bufferCount

	// Connectivity state, mutated only by the interrupt context.
	connected uint32 // atomic bool
	dhcp      uint32 // atomic bool
	ipAddr    uint32 // atomic: packed address, a.b.c.d = byte 3..0
}

// New creates a Device over the given link. The device is not usable until
// the interrupt line is wired to ServiceIRQ and Init has run.
func New(cfg Config) (*Device, error) {
	if cfg.Link == nil {
		return nil, ErrNoLink
	}
	onEvent := cfg.OnEvent
	if onEvent == nil {
		onEvent = func(uint16, uint32) {}
	}
	return &Device{
		link:         cfg.Link,
		onEvent:      onEvent,
		state:        statePowerup,
		pendingEvent: eventNone,
	}, nil
}

// Connected reports whether the co-processor has joined a network.
func (d *Device) Connected() bool {
	return atomic.LoadUint32(&d.connected) != 0
}

// DHCPComplete reports whether a DHCP lease has been acquired since the
// last connect.
func (d *Device) DHCPComplete() bool {
	return atomic.LoadUint32(&d.dhcp) != 0
}

// IPAddr returns the leased IPv4 address in a.b.c.d order. Zero until
// DHCPComplete reports true.
func (d *Device) IPAddr() [4]byte {
	v := atomic.LoadUint32(&d.ipAddr)
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// BufferCredits returns the free and total outbound buffer credits.
func (d *Device) BufferCredits() (available, total uint8) {
	return uint8(atomic.LoadUint32(&d.availableBuffers)),
		uint8(atomic.LoadUint32(&d.bufferCount))
}

// BufferSize returns the co-processor's outbound buffer size in bytes, as
// reported during Init.
func (d *Device) BufferSize() uint16 {
	return uint16(atomic.LoadUint32(&d.bufferSize))
}
