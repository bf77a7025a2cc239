package hci

import "sync/atomic"

// Interrupt dispatcher. ServiceIRQ is the sole entry point for the
// interrupt context; everything it touches is atomic.

// ServiceIRQ handles one falling edge of the interrupt line. Wire it to
// the pin interrupt (or an edge-detecting poll loop, see host/bridge).
//
// In Powerup the line only carries the power-on readiness signal, which
// Init consumes; there is no frame to read and the link must not be
// touched, so the handler can be wired before the co-processor is
// powered. In WaitAssert the edge only means "ready to receive"; the
// dispatcher returns to Idle and no payload is read. In Idle the edge
// announces an inbound frame: the header is consumed here and the frame
// dispatched on its type byte. Unknown types are inert.
func (d *Device) ServiceIRQ() {
	if atomic.CompareAndSwapUint32(&d.state, stateWaitAssert, stateIdle) {
		return
	}
	if atomic.LoadUint32(&d.state) == statePowerup {
		return
	}

	d.beginReceive()

	switch d.readU8() {
	case typeEvent:
		d.dispatchEvent()
	case typeData:
		d.dispatchData()
	}
}

// dispatchEvent routes an inbound event frame.
//
// A frame matching the pending reply slot consumes the slot, is flagged
// and left open, header consumed; the command/response engine reads the
// body from the application thread. The consume is a compare-and-swap so
// that a concurrent command deadline and this match race on one atomic:
// whoever swaps the slot first owns the outcome. Anything else is
// unsolicited: known codes update the session state, the user callback
// runs, and the frame is drained here.
func (d *Device) dispatchEvent() {
	event := d.readU16()
	d.readU8() // argument-block size

	if atomic.CompareAndSwapUint32(&d.pendingEvent, uint32(event), eventNone) {
		atomic.StoreUint32(&d.pendingAvailable, 1)
		return
	}

	var arg uint32

	switch event {
	case EvntWlanUnsolConnect:
		atomic.StoreUint32(&d.connected, 1)

	case EvntWlanUnsolDisconnect:
		atomic.StoreUint32(&d.connected, 0)
		atomic.StoreUint32(&d.dhcp, 0)

	case EvntWlanUnsolDHCP:
		d.readU8() // status
		// Address bytes arrive d.c.b.a; pack as a.b.c.d.
		var ip uint32
		for i := 0; i < 4; i++ {
			ip |= uint32(d.readU8()) << (8 * i)
		}
		atomic.StoreUint32(&d.ipAddr, ip)
		atomic.StoreUint32(&d.dhcp, 1)

	case EvntWlanUnsolTCPCloseWait:
		d.readU8()        // status
		arg = d.readU32() // socket descriptor

	case EvntDataUnsolFreeBuffers:
		d.readU8() // status
		entries := d.readU16()
		var freed uint32
		for i := uint16(0); i < entries; i++ {
			d.readU16() // flush generation, unused
			freed += uint32(d.readU16())
		}
		d.releaseBuffers(freed)
	}

	d.onEvent(event, arg)
	d.endReceive()
}

// dispatchData handles an inbound data frame. The headers and argument
// block are consumed here; the payload is left on the link, frame open,
// for the application thread that requested it.
//
// A data frame nobody is waiting for is drained and reported as
// EvntUnexpectedData rather than being matched to a later, unrelated read.
func (d *Device) dispatchData() {
	d.readU8() // data opcode
	argsSize := d.readU8()
	d.readU16() // payload length, tracked by the frame budget

	for i := byte(0); i < argsSize; i++ {
		d.readU8()
	}

	if atomic.LoadUint32(&d.dataExpected) == 0 {
		d.endReceive()
		d.onEvent(EvntUnexpectedData, 0)
		return
	}

	atomic.StoreUint32(&d.dataAvailable, 1)
}
