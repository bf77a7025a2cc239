package hci

import (
	"testing"
	"time"
)

func TestReleaseBuffersClampsAtTotal(t *testing.T) {
	d, _, _ := newTestDevice()

	d.releaseBuffers(100)
	avail, total := d.BufferCredits()
	if avail != total {
		t.Errorf("credits = %d/%d, release overflowed the pool", avail, total)
	}

	d.acquireBuffer()
	d.releaseBuffers(3)
	avail, total = d.BufferCredits()
	if avail != total {
		t.Errorf("credits = %d/%d, want full pool after clamped release", avail, total)
	}
}

func TestAcquireBufferBlocksUntilFreed(t *testing.T) {
	d, _, _ := newTestDevice()
	d.seedBuffers(1, 1500)

	d.acquireBuffer()

	acquired := make(chan struct{})
	go func() {
		d.acquireBuffer()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("acquire succeeded with an empty pool")
	case <-time.After(20 * time.Millisecond):
	}

	d.releaseBuffers(1)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("acquire did not observe the freed credit")
	}
}

func TestCloseSocketWaitsForFullPool(t *testing.T) {
	d, fl, _ := newTestDevice()
	fl.queueFrame(eventFrame(CmdCloseSocket, statusResult(0, 0)...))

	// A credit is outstanding; CloseSocket must not issue the command
	// until it comes back.
	d.acquireBuffer()

	issued := make(chan struct{})
	go func() {
		if _, err := d.CloseSocket(2); err != nil {
			t.Errorf("CloseSocket: %v", err)
		}
		close(issued)
	}()

	select {
	case <-issued:
		t.Fatal("close issued while a send was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	d.releaseBuffers(1)

	select {
	case <-issued:
	case <-time.After(time.Second):
		t.Fatal("close did not proceed after the pool refilled")
	}
}
