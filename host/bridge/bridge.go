// Package bridge implements hci.Link over a USB-serial SPI bridge
// adapter, so the co-processor can be driven from a development host. The
// adapter speaks a single-byte command protocol: each request is answered
// before the next is sent.
//
// The host has no pin interrupts; pair this link with hci.Device.PollIRQ.
package bridge

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// Bridge adapter opcodes.
const (
	opExchange   = 'X' // exchange one SPI byte, adapter answers with the reply
	opChipSelect = 'C' // drive chip select: argument 0 = low, 1 = high
	opIRQLevel   = 'I' // sample the interrupt line, adapter answers 0 or 1
)

// Config holds the serial port settings for the bridge adapter.
type Config struct {
	// Device path, e.g. "/dev/ttyACM0" or "COM3".
	Device string

	// Baud rate. USB CDC adapters ignore it but tarm wants a value.
	Baud int

	// ReadTimeout guards against a wedged adapter.
	ReadTimeout time.Duration
}

// DefaultConfig returns the settings most adapters run at.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        921600,
		ReadTimeout: 2 * time.Second,
	}
}

// Link drives the bridge adapter. The zero value is not usable; construct
// with Open or NewLink.
//
// hci.Link methods cannot report failures, matching the hardware contract
// that a broken byte link is outside the driver's remit. An I/O error
// latches instead: subsequent transfers read back zeros and Err returns
// the first failure.
type Link struct {
	mu   sync.Mutex
	port io.ReadWriteCloser
	err  error
}

// Open connects to a bridge adapter on a serial port.
func Open(cfg *Config) (*Link, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bridge: config cannot be nil")
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("bridge: open %s: %w", cfg.Device, err)
	}

	return NewLink(port), nil
}

// NewLink wraps an already-open adapter connection. Useful for tests and
// for adapters reached over TCP.
func NewLink(port io.ReadWriteCloser) *Link {
	return &Link{port: port}
}

// Transfer exchanges one byte through the adapter.
func (l *Link) Transfer(out byte) byte {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return 0
	}
	if !l.write(opExchange, out) {
		return 0
	}
	return l.readByte()
}

// SetCS drives the chip-select line through the adapter; asserted is low.
func (l *Link) SetCS(active bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return
	}
	level := byte(1)
	if active {
		level = 0
	}
	l.write(opChipSelect, level)
}

// IRQAsserted samples the interrupt line through the adapter.
func (l *Link) IRQAsserted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return false
	}
	if !l.write(opIRQLevel) {
		return false
	}
	return l.readByte() == 0
}

// Err returns the first I/O failure seen on the adapter, if any.
func (l *Link) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close closes the adapter connection.
func (l *Link) Close() error {
	return l.port.Close()
}

func (l *Link) write(b ...byte) bool {
	if _, err := l.port.Write(b); err != nil {
		l.err = fmt.Errorf("bridge: write: %w", err)
		return false
	}
	return true
}

func (l *Link) readByte() byte {
	var in [1]byte
	if _, err := io.ReadFull(l.port, in[:]); err != nil {
		l.err = fmt.Errorf("bridge: read: %w", err)
		return 0
	}
	return in[0]
}
