// Package spilink implements hci.Link over a hardware SPI bus using the
// TinyGo driver interfaces. Pin access goes through accessor funcs so the
// package stays free of machine imports and testable off-target; see
// examples/pico for the board wiring.
package spilink

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// OutputPin drives a digital output level, true meaning electrically high.
type OutputPin func(high bool)

// InputPin samples a digital input level, true meaning electrically high.
type InputPin func() bool

// TraceFunc observes every byte exchanged on the bus.
type TraceFunc func(out, in byte)

// Config holds the bus and pin wiring for a Link.
type Config struct {
	// Bus is the SPI bus the co-processor hangs off. Mode 1, MSB first.
	// Required.
	Bus drivers.SPI

	// CS drives the chip-select line, active low. Required.
	CS OutputPin

	// IRQ samples the interrupt/ready line, active low. Required.
	IRQ InputPin

	// EN drives the power-enable line. Optional; PowerCycle is a no-op
	// without it.
	EN OutputPin

	// Trace, when set, sees every byte pair on the bus. Optional.
	Trace TraceFunc
}

// Link is an hci.Link over hardware SPI.
type Link struct {
	bus   drivers.SPI
	cs    OutputPin
	irq   InputPin
	en    OutputPin
	trace TraceFunc
}

// New validates the wiring and builds a Link. The chip-select line is
// released as a side effect.
func New(cfg Config) (*Link, error) {
	if cfg.Bus == nil {
		return nil, errors.New("spilink: no SPI bus configured")
	}
	if cfg.CS == nil || cfg.IRQ == nil {
		return nil, errors.New("spilink: CS and IRQ pins are required")
	}

	l := &Link{
		bus:   cfg.Bus,
		cs:    cfg.CS,
		irq:   cfg.IRQ,
		en:    cfg.EN,
		trace: cfg.Trace,
	}
	l.cs(true)
	return l, nil
}

// Transfer exchanges one byte on the bus.
func (l *Link) Transfer(out byte) byte {
	in, _ := l.bus.Transfer(out)
	if l.trace != nil {
		l.trace(out, in)
	}
	return in
}

// SetCS drives the chip-select line; asserted is low.
func (l *Link) SetCS(active bool) {
	l.cs(!active)
}

// IRQAsserted reports whether the interrupt line is low.
func (l *Link) IRQAsserted() bool {
	return !l.irq()
}

// PowerCycle runs the power-on sequence on the enable line: half a second
// off, then on with a settling delay. Call it before hci.Device.Init.
func (l *Link) PowerCycle() {
	if l.en == nil {
		return
	}
	l.en(false)
	time.Sleep(500 * time.Millisecond)
	l.en(true)
	time.Sleep(100 * time.Millisecond)
}
