package hci

import "time"

// WLAN management commands: link bring-up plus the connection/policy/timer
// surface. Same framing template as the socket layer.

// WLAN security types for WlanConnect.
const (
	SecurityOpen = 0
	SecurityWEP  = 1
	SecurityWPA  = 2
	SecurityWPA2 = 3
)

// mdnsServiceNameMaxLength bounds the name in MdnsAdvertise.
const mdnsServiceNameMaxLength = 32

// minTimerSeconds is the co-processor's floor on nonzero network timers.
const minTimerSeconds = 20

// Init runs the bring-up sequence: the power-on first command, the buffer
// geometry read that seeds the flow-control pool, and the unsolicited
// event mask.
//
// The interrupt line must already be wired to ServiceIRQ: every reply
// after the readiness signal is delivered through the dispatcher.
func (d *Device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.beginFirstCommand(CmdSimpleLinkStart, 1); err != nil {
		return err
	}
	d.writeU8(patchesRequestDefault)
	if err := d.endCommandBeginReceive(CmdSimpleLinkStart, time.Second); err != nil {
		return err
	}
	d.endReceive()

	d.beginCommand(CmdReadBufferSize, 0)
	if err := d.endCommandBeginReceive(CmdReadBufferSize, time.Second); err != nil {
		return err
	}
	d.readU8() // status
	count := d.readU8()
	size := d.readU16()
	d.seedBuffers(count, size)
	d.endReceive()

	d.beginCommand(CmdEventMask, 4)
	d.writeU32(uint32(EvntWlanKeepalive) | uint32(EvntWlanUnsolInit))
	if err := d.endCommandBeginReceive(CmdEventMask, time.Second); err != nil {
		return err
	}
	d.endReceive()

	return nil
}

// WlanConnect joins a network. bssid may be nil to associate by SSID
// alone; key is ignored for SecurityOpen. The co-processor reports the
// outcome asynchronously through the connect and DHCP events; the returned
// status only acknowledges the command.
func (d *Device) WlanConnect(secType uint32, ssid string, bssid *[6]byte, key []byte) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.beginCommand(CmdWlanConnect, uint16(28+len(ssid)+len(key)))
	d.writeU32(0x1C) // offset of the SSID block
	d.writeU32(uint32(len(ssid)))
	d.writeU32(secType)
	d.writeU32(uint32(16 + len(ssid))) // offset of the key block
	d.writeU32(uint32(len(key)))
	d.writeU16(0)

	var zero [6]byte
	if bssid != nil {
		d.writeBytes(bssid[:])
	} else {
		d.writeBytes(zero[:])
	}
	d.writeBytes([]byte(ssid))
	d.writeBytes(key)

	return d.endCommandU32Result(CmdWlanConnect, 60*time.Second)
}

// WlanDisconnect drops the current association.
func (d *Device) WlanDisconnect() (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.beginCommand(CmdWlanDisconnect, 0)
	return d.endCommandU32Result(CmdWlanDisconnect, time.Second)
}

// SetConnectionPolicy configures automatic connection behavior.
func (d *Device) SetConnectionPolicy(openAP, fastConnect, useProfiles bool) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.beginCommand(CmdSetConnectionPolicy, 12)
	d.writeU32(boolU32(openAP))
	d.writeU32(boolU32(fastConnect))
	d.writeU32(boolU32(useProfiles))

	return d.endCommandU32Result(CmdSetConnectionPolicy, time.Second)
}

// SetTimeouts configures the DHCP, ARP, keepalive and socket-inactivity
// timers, in seconds. Zero disables a timer; nonzero values below the
// co-processor's 20-second floor are raised to it.
func (d *Device) SetTimeouts(dhcp, arp, keepalive, inactivity uint32) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.beginCommand(CmdNetappSetTimers, 16)
	d.writeU32(clampTimer(dhcp))
	d.writeU32(clampTimer(arp))
	d.writeU32(clampTimer(keepalive))
	d.writeU32(clampTimer(inactivity))

	return d.endCommandU32Result(CmdNetappSetTimers, time.Second)
}

// MdnsAdvertise starts or stops mDNS advertisement of a service name.
// Firmware 1.32 and later dropped this command; calls against such
// firmware fail at the co-processor.
func (d *Device) MdnsAdvertise(enabled bool, serviceName string) (int32, error) {
	if len(serviceName) > mdnsServiceNameMaxLength {
		return -1, ErrServiceNameLength
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.beginCommand(CmdMdnsAdvertise, uint16(12+len(serviceName)))
	d.writeU32(boolU32(enabled))
	d.writeU32(8) // offset of the name block
	d.writeU32(uint32(len(serviceName)))
	d.writeBytes([]byte(serviceName))

	return d.endCommandU32Result(CmdMdnsAdvertise, 5*time.Second)
}

func clampTimer(v uint32) uint32 {
	if v != 0 && v < minTimerSeconds {
		return minTimerSeconds
	}
	return v
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
