package hci

// Link is the byte-level hardware access the driver needs: a full-duplex
// serial bus plus the two sideband signal lines. Implementations live in
// link/spilink (hardware SPI) and host/bridge (serial bridge adapter).
type Link interface {
	// Transfer exchanges one byte in each direction. There is no buffering
	// and no retry; a failure at this level is a hardware fault outside the
	// driver's remit.
	Transfer(out byte) byte

	// SetCS drives the chip-select line. active means asserted, which is
	// electrically low. The line is held for the duration of a transaction.
	SetCS(active bool)

	// IRQAsserted reports whether the interrupt/ready line is at its
	// asserted (low) level.
	IRQAsserted() bool
}
