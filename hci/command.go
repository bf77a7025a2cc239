package hci

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Command/response engine. A call site begins a command, streams its
// arguments through the codec, then hands control here to finalize the
// write and wait for the matching reply event.

// endCommandBeginReceive arms the pending reply slot, finalizes the
// outbound frame and spins until the interrupt dispatcher flags the reply
// or the deadline elapses.
//
// Arming happens before the frame is released so the reply interrupt can
// never race past an empty slot. On success the reply frame is left open
// with its header consumed; the caller reads the body and must finish with
// endReceive. On timeout the slot is cleared, EvntDeviceLocked is raised
// once through the callback and ErrCmdTimeout is returned; there is no
// frame to read.
//
// Timing out is done by swapping the slot back to empty, the same
// compare-and-swap the dispatcher uses to consume it, so the reply match
// and the deadline race on one atomic. Losing the swap here means the
// dispatcher is flagging the reply right now: keep waiting for it rather
// than abandoning an open frame.
func (d *Device) endCommandBeginReceive(event uint16, timeout time.Duration) error {
	atomic.StoreUint32(&d.pendingEvent, uint32(event))
	atomic.StoreUint32(&d.pendingAvailable, 0)
	atomic.StoreUint32(&d.dataAvailable, 0)
	deadline := time.Now().Add(timeout)

	if atomic.SwapUint32(&d.padPending, 0) != 0 {
		d.link.Transfer(0)
	}
	d.link.SetCS(false)

	for atomic.LoadUint32(&d.pendingAvailable) == 0 {
		if time.Now().After(deadline) {
			if atomic.CompareAndSwapUint32(&d.pendingEvent, uint32(event), eventNone) {
				// A reply arriving after this point is treated as
				// unsolicited and drained by the dispatcher.
				d.onEvent(EvntDeviceLocked, 0)
				return ErrCmdTimeout
			}
		}
		runtime.Gosched()
	}
	return nil
}

// endCommandU32Result finalizes a command and reads the most common reply
// shape: a status byte followed by a 32-bit result. The status byte is not
// part of the API and is discarded.
func (d *Device) endCommandU32Result(event uint16, timeout time.Duration) (int32, error) {
	if err := d.endCommandBeginReceive(event, timeout); err != nil {
		return -1, err
	}

	d.readU8() // status
	result := d.readU32()
	d.endReceive()

	return int32(result), nil
}

// waitData spins until the dispatcher has consumed the headers of the
// expected inbound data frame.
//
// No deadline: the co-processor always follows a positive recv reply with
// the data frame, so a missing frame is a hardware fault.
func (d *Device) waitData() {
	for atomic.LoadUint32(&d.dataAvailable) == 0 {
		runtime.Gosched()
	}
}
