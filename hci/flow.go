package hci

import (
	"runtime"
	"sync/atomic"
)

// Flow-control pool. The co-processor grants a fixed number of outbound
// buffer credits at bring-up; every accepted send consumes one and the
// unsolicited free-buffers event returns them. available never exceeds
// total.

// acquireBuffer takes one credit, spinning until the co-processor frees
// one. Outstanding sends always complete, so the pool refills; the wait
// therefore has no deadline.
func (d *Device) acquireBuffer() {
	for {
		n := atomic.LoadUint32(&d.availableBuffers)
		if n == 0 {
			runtime.Gosched()
			continue
		}
		if atomic.CompareAndSwapUint32(&d.availableBuffers, n, n-1) {
			return
		}
	}
}

// releaseBuffers returns n credits to the pool, clamped at the total.
// Called only from the free-buffers event path.
func (d *Device) releaseBuffers(n uint32) {
	total := atomic.LoadUint32(&d.bufferCount)
	for {
		cur := atomic.LoadUint32(&d.availableBuffers)
		next := cur + n
		if next > total {
			next = total
		}
		if atomic.CompareAndSwapUint32(&d.availableBuffers, cur, next) {
			return
		}
	}
}

// waitBuffersDrained spins until every credit is back in the pool, which
// means no send is in flight. Same no-deadline contract as acquireBuffer.
func (d *Device) waitBuffersDrained() {
	for atomic.LoadUint32(&d.availableBuffers) != atomic.LoadUint32(&d.bufferCount) {
		runtime.Gosched()
	}
}

// seedBuffers installs the pool geometry reported by the co-processor.
func (d *Device) seedBuffers(count uint8, size uint16) {
	atomic.StoreUint32(&d.bufferCount, uint32(count))
	atomic.StoreUint32(&d.availableBuffers, uint32(count))
	atomic.StoreUint32(&d.bufferSize, uint32(size))
}
