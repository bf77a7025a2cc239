package hci

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Frame protocol. Every message is bracketed by chip-select assertion and
// release. Outbound frames start with the write-request header
// [0x01 len_hi len_lo 0x00 0x00]; inbound frames are requested with the
// read preamble [0x03 0x00 0x00] and answered with a big-endian 2-byte
// payload length. The total packet length on the wire must be 16-bit
// aligned, which is what the trailing pad byte is for.

// deviceReadyTimeout bounds the wait for the power-on readiness signal.
var deviceReadyTimeout = 5 * time.Second

// firstCommandDelay is the settling delay the bring-up sequence requires
// around the first header, twice.
const firstCommandDelay = 50 * time.Microsecond

// beginReceive reads the header of an inbound event or data frame and arms
// the codec budget with the declared payload length. Called from the
// interrupt context.
func (d *Device) beginReceive() {
	d.link.SetCS(true)

	d.link.Transfer(spiRead)
	d.link.Transfer(0)
	d.link.Transfer(0)

	p0 := d.link.Transfer(0)
	p1 := d.link.Transfer(0)
	atomic.StoreUint32(&d.payloadRemaining, uint32(p0)<<8|uint32(p1))
}

// endReceive drains whatever is left of the current inbound frame, releases
// chip select and waits for the interrupt line to return to idle.
//
// The deassert wait has no deadline: the co-processor deasserts promptly
// after every completed read transaction, and a line that stays low is a
// hardware fault, not a recoverable condition.
func (d *Device) endReceive() {
	for atomic.LoadUint32(&d.payloadRemaining) > 0 {
		d.readU8()
	}

	d.link.SetCS(false)

	for d.link.IRQAsserted() {
		runtime.Gosched()
	}
}

// armWrite sets the codec budget for an outbound frame to the caller's
// argument bytes and records whether a pad byte is owed. The headers are
// put on the link directly, so codec writes can never push the frame past
// its declared length.
func (d *Device) armWrite(args uint32, pad bool) {
	atomic.StoreUint32(&d.payloadRemaining, args)
	var p uint32
	if pad {
		p = 1
	}
	atomic.StoreUint32(&d.padPending, p)
}

// beginCommand sends the headers for a command frame, using the
// interrupt-driven ready handshake: chip select is asserted with the
// dispatcher in WaitAssert, and the co-processor answers by pulsing the
// interrupt line when it is ready to take the write.
//
// The handshake wait has no deadline; a co-processor that never signals
// ready after bring-up is a hardware fault.
func (d *Device) beginCommand(opcode uint16, argsSize uint16) {
	atomic.StoreUint32(&d.state, stateWaitAssert)
	d.link.SetCS(true)

	for atomic.LoadUint32(&d.state) != stateIdle {
		runtime.Gosched()
	}

	// Command packets are 5 header + 4 message header + args bytes; pad
	// when the args size is even so the total stays 16-bit aligned.
	pad := argsSize&1 == 0
	length := 4 + uint32(argsSize)
	if pad {
		length++
	}

	d.link.Transfer(spiWrite)
	d.link.Transfer(byte(length >> 8))
	d.link.Transfer(byte(length))
	d.link.Transfer(0)
	d.link.Transfer(0)

	d.link.Transfer(typeCommand)
	d.link.Transfer(byte(opcode))
	d.link.Transfer(byte(opcode >> 8))
	d.link.Transfer(byte(argsSize))

	d.armWrite(uint32(argsSize), pad)
}

// beginFirstCommand is the power-on variant of beginCommand. The first
// write after power-up does not use the ready handshake: the co-processor
// holds the interrupt line low to announce readiness, and the header must
// be split around two fixed settling delays.
func (d *Device) beginFirstCommand(opcode uint16, argsSize uint16) error {
	deadline := time.Now().Add(deviceReadyTimeout)
	for !d.link.IRQAsserted() {
		if time.Now().After(deadline) {
			return ErrDeviceNotFound
		}
		runtime.Gosched()
	}

	d.link.SetCS(true)
	time.Sleep(firstCommandDelay)

	pad := argsSize&1 == 0
	length := 4 + uint32(argsSize)
	if pad {
		length++
	}

	d.link.Transfer(spiWrite)
	d.link.Transfer(byte(length >> 8))
	d.link.Transfer(byte(length))
	d.link.Transfer(0)

	time.Sleep(firstCommandDelay)

	d.link.Transfer(0)
	d.link.Transfer(typeCommand)
	d.link.Transfer(byte(opcode))
	d.link.Transfer(byte(opcode >> 8))
	d.link.Transfer(byte(argsSize))

	d.armWrite(uint32(argsSize), pad)

	// Readiness consumed; from here every edge carries a frame.
	atomic.StoreUint32(&d.state, stateIdle)
	return nil
}

// beginData sends the headers for an outbound data frame. Same ready
// handshake as beginCommand; the message header carries the data opcode,
// the argument-block size and the 16-bit total payload length.
func (d *Device) beginData(opcode byte, argsSize byte, dataSize uint16) {
	atomic.StoreUint32(&d.state, stateWaitAssert)
	d.link.SetCS(true)

	for atomic.LoadUint32(&d.state) != stateIdle {
		runtime.Gosched()
	}

	total := uint32(argsSize) + uint32(dataSize)
	pad := total&1 != 0
	length := 4 + total
	if pad {
		length++
	}

	d.link.Transfer(spiWrite)
	d.link.Transfer(byte(length >> 8))
	d.link.Transfer(byte(length))
	d.link.Transfer(0)
	d.link.Transfer(0)

	d.link.Transfer(typeData)
	d.link.Transfer(opcode)
	d.link.Transfer(argsSize)
	d.link.Transfer(byte(total))
	d.link.Transfer(byte(total >> 8))

	d.armWrite(total, pad)
}
