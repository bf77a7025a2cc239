package hci

import "time"

// PollIRQ emulates the edge-triggered interrupt for links that cannot
// deliver a real one, such as the serial bridge adapter: it samples the
// interrupt line every interval and calls ServiceIRQ on each falling edge,
// until stop is closed.
//
// Run it on its own goroutine before calling Init; that goroutine is the
// interrupt context. A line that is already asserted when polling starts
// does not count as an edge, matching the power-on readiness signal.
func (d *Device) PollIRQ(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := d.link.IRQAsserted()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		cur := d.link.IRQAsserted()
		if cur && !prev {
			d.ServiceIRQ()
		}
		prev = cur
	}
}
