package hci

import "sync/atomic"

// Bounded field codec. Every read and write is clipped to the payload
// budget declared by the active frame's header: reads past the budget
// return zeros, writes past it are dropped. The budget lives in
// payloadRemaining and all enforcement happens in the u8 primitives; the
// wider integers are built on top of them, little-endian.

// consumeBudget decrements the frame budget by one if any remains.
func (d *Device) consumeBudget() bool {
	for {
		n := atomic.LoadUint32(&d.payloadRemaining)
		if n == 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(&d.payloadRemaining, n, n-1) {
			return true
		}
	}
}

func (d *Device) readU8() byte {
	if !d.consumeBudget() {
		return 0
	}
	return d.link.Transfer(0)
}

func (d *Device) readU16() uint16 {
	b0 := d.readU8()
	b1 := d.readU8()
	return uint16(b0) | uint16(b1)<<8
}

func (d *Device) readU24() uint32 {
	b0 := d.readU8()
	b1 := d.readU8()
	b2 := d.readU8()
	return uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16
}

func (d *Device) readU32() uint32 {
	b0 := d.readU8()
	b1 := d.readU8()
	b2 := d.readU8()
	b3 := d.readU8()
	return uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16 | uint32(b3)<<24
}

func (d *Device) readBytes(buf []byte) {
	for i := range buf {
		buf[i] = d.readU8()
	}
}

func (d *Device) writeU8(v byte) {
	if !d.consumeBudget() {
		return
	}
	d.link.Transfer(v)
}

func (d *Device) writeU16(v uint16) {
	d.writeU8(byte(v))
	d.writeU8(byte(v >> 8))
}

func (d *Device) writeU32(v uint32) {
	d.writeU8(byte(v))
	d.writeU8(byte(v >> 8))
	d.writeU8(byte(v >> 16))
	d.writeU8(byte(v >> 24))
}

func (d *Device) writeBytes(buf []byte) {
	for _, b := range buf {
		d.writeU8(b)
	}
}
