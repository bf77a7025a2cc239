package hci

import (
	"sync/atomic"
	"time"
)

// Socket API layer. Each call marshals a fixed-shape argument block
// through the command/response engine, awaits the matching reply and
// unmarshals a fixed-shape result. Results follow the POSIX convention:
// the int32 is the remote's status and negative means failure there;
// errors cover driver-level failures such as a reply timeout.

// Address family, socket type and protocol numbers understood by the
// co-processor.
const (
	AFInet     = 2
	SockStream = 1
	SockDgram  = 2
	IPProtoTCP = 6
	IPProtoUDP = 17
)

// maxSockets is the co-processor's descriptor count; accept results
// outside [0, maxSockets) are failures.
const maxSockets = 8

// hostnameMaxLength is the longest name the remote resolver takes.
const hostnameMaxLength = 99

// SockAddr is the 8-byte socket address block the co-processor
// understands: little-endian family, network-order port, IPv4 address.
type SockAddr struct {
	Family uint16
	Port   uint16
	Addr   [4]byte
}

// TCPAddr builds an AF_INET address for ip:port.
func TCPAddr(ip [4]byte, port uint16) SockAddr {
	return SockAddr{Family: AFInet, Port: port, Addr: ip}
}

func (a SockAddr) marshal() [8]byte {
	var b [8]byte
	b[0] = byte(a.Family)
	b[1] = byte(a.Family >> 8)
	b[2] = byte(a.Port >> 8)
	b[3] = byte(a.Port)
	copy(b[4:], a.Addr[:])
	return b
}

func unmarshalSockAddr(b [8]byte) SockAddr {
	var a SockAddr
	a.Family = uint16(b[0]) | uint16(b[1])<<8
	a.Port = uint16(b[2])<<8 | uint16(b[3])
	copy(a.Addr[:], b[4:])
	return a
}

// FDSet is the 32-bit descriptor mask used by Select.
type FDSet uint32

// Set adds a descriptor to the set.
func (s *FDSet) Set(sd int32) { *s |= 1 << uint(sd) }

// Clear removes a descriptor from the set.
func (s *FDSet) Clear(sd int32) { *s &^= 1 << uint(sd) }

// IsSet reports whether a descriptor is in the set.
func (s FDSet) IsSet(sd int32) bool { return s&(1<<uint(sd)) != 0 }

// Zero empties the set.
func (s *FDSet) Zero() { *s = 0 }

// Socket opens a socket on the co-processor and returns its descriptor.
func (d *Device) Socket(domain, typ, protocol uint32) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.beginCommand(CmdSocket, 12)
	d.writeU32(domain)
	d.writeU32(typ)
	d.writeU32(protocol)

	return d.endCommandU32Result(CmdSocket, time.Second)
}

// Bind binds a socket to a local address.
func (d *Device) Bind(sd int32, addr SockAddr) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw := addr.marshal()

	d.beginCommand(CmdBind, 20)
	d.writeU32(uint32(sd))
	d.writeU32(8) // offset of the address block
	d.writeU32(uint32(len(raw)))
	d.writeBytes(raw[:])

	return d.endCommandU32Result(CmdBind, time.Second)
}

// Listen marks a socket as accepting connections.
func (d *Device) Listen(sd int32, backlog int32) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.beginCommand(CmdListen, 8)
	d.writeU32(uint32(sd))
	d.writeU32(uint32(backlog))

	return d.endCommandU32Result(CmdListen, time.Second)
}

// Accept takes the next connection on a listening socket, returning the
// new descriptor and the peer address. The reply's status field doubles as
// the accepted descriptor; values outside the descriptor range come back
// as ErrAcceptFailed.
func (d *Device) Accept(sd int32) (int32, SockAddr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.beginCommand(CmdAccept, 4)
	d.writeU32(uint32(sd))

	if err := d.endCommandBeginReceive(CmdAccept, time.Second); err != nil {
		return -1, SockAddr{}, err
	}

	d.readU8()  // status
	d.readU32() // listening descriptor, echoed back
	newSD := int32(d.readU32())

	var raw [8]byte
	d.readBytes(raw[:])
	d.endReceive()

	if newSD < 0 || newSD >= maxSockets {
		return -1, SockAddr{}, ErrAcceptFailed
	}
	return newSD, unmarshalSockAddr(raw), nil
}

// Connect connects a socket to a remote address.
func (d *Device) Connect(sd int32, addr SockAddr) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw := addr.marshal()

	d.beginCommand(CmdConnect, uint16(12+len(raw)))
	d.writeU32(uint32(sd))
	d.writeU32(8)
	d.writeU32(uint32(len(raw)))
	d.writeBytes(raw[:])

	return d.endCommandU32Result(CmdConnect, 10*time.Second)
}

// Send queues buf on a socket. One buffer credit is consumed per send;
// the call spins until a credit is free, then streams the data frame and
// waits for the acknowledging event. The returned count is len(buf): the
// co-processor accepts whole frames only.
func (d *Device) Send(sd int32, buf []byte, flags uint32) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.acquireBuffer()

	d.beginData(dataOpSend, 16, uint16(len(buf)))
	d.writeU32(uint32(sd))
	d.writeU32(12) // offset of the payload
	d.writeU32(uint32(len(buf)))
	d.writeU32(flags)
	d.writeBytes(buf)

	if err := d.endCommandBeginReceive(EvntSend, 5*time.Second); err != nil {
		return -1, err
	}
	d.endReceive()

	return int32(len(buf)), nil
}

// Recv reads from a socket into buf. The reply reports how much data the
// co-processor holds; a positive count is followed by a separate data
// frame whose payload is copied into buf.
//
// If the remote reports more data than buf holds, buf is filled and the
// remainder is drained from the link and discarded. That truncation is the
// documented contract, not an error.
func (d *Device) Recv(sd int32, buf []byte, flags uint32) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.beginCommand(CmdRecv, 12)
	d.writeU32(uint32(sd))
	d.writeU32(uint32(len(buf)))
	d.writeU32(flags)

	atomic.StoreUint32(&d.dataExpected, 1)
	defer atomic.StoreUint32(&d.dataExpected, 0)

	if err := d.endCommandBeginReceive(CmdRecv, 5*time.Second); err != nil {
		return -1, err
	}

	d.readU8()  // status
	d.readU32() // descriptor, echoed back
	n := int32(d.readU32())
	d.readU32() // flags
	d.endReceive()

	if n <= 0 {
		return n, nil
	}

	d.waitData()

	if n > int32(len(buf)) {
		n = int32(len(buf))
	}
	for i := int32(0); i < n; i++ {
		buf[i] = d.readU8()
	}
	d.endReceive()

	return n, nil
}

// Select polls up to nfds descriptors for readiness. Non-nil sets are both
// input and output: they carry the descriptors to watch in and the ready
// descriptors out. A nil timeout blocks until something is ready;
// otherwise timeouts below 5ms are raised to 5ms, the shortest interval
// the co-processor resolves.
func (d *Device) Select(nfds int32, read, write, except *FDSet, timeout *time.Duration) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var sec, usec uint32
	if timeout != nil {
		t := *timeout
		if t < 5*time.Millisecond {
			t = 5 * time.Millisecond
		}
		sec = uint32(t / time.Second)
		usec = uint32((t % time.Second) / time.Microsecond)
	}

	maskOf := func(s *FDSet) uint32 {
		if s == nil {
			return 0
		}
		return uint32(*s)
	}
	blocking := uint32(0)
	if timeout != nil {
		blocking = 1
	}

	d.beginCommand(CmdSelect, 44)
	d.writeU32(uint32(nfds))
	d.writeU32(0x14)
	d.writeU32(0x14)
	d.writeU32(0x14)
	d.writeU32(0x14)
	d.writeU32(blocking)
	d.writeU32(maskOf(read))
	d.writeU32(maskOf(write))
	d.writeU32(maskOf(except))
	d.writeU32(sec)
	d.writeU32(usec)

	if err := d.endCommandBeginReceive(CmdSelect, 10*time.Second); err != nil {
		return -1, err
	}

	d.readU8() // status
	status := int32(d.readU32())

	readMask := d.readU32()
	writeMask := d.readU32()
	exceptMask := d.readU32()
	d.endReceive()

	if read != nil {
		*read = FDSet(readMask)
	}
	if write != nil {
		*write = FDSet(writeMask)
	}
	if except != nil {
		*except = FDSet(exceptMask)
	}

	return status, nil
}

// SetSockOpt sets a socket option from its raw encoded value.
func (d *Device) SetSockOpt(sd int32, level, optname uint32, optval []byte) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.beginCommand(CmdSetSockOpt, uint16(20+len(optval)))
	d.writeU32(uint32(sd))
	d.writeU32(level)
	d.writeU32(optname)
	d.writeU32(8) // offset of the value block
	d.writeU32(uint32(len(optval)))
	d.writeBytes(optval)

	return d.endCommandU32Result(CmdSetSockOpt, time.Second)
}

// CloseSocket closes a socket. All outbound buffer credits must be back in
// the pool first, which guarantees no send is still in flight; the drain
// wait has no deadline because outstanding sends always complete.
func (d *Device) CloseSocket(sd int32) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.waitBuffersDrained()

	d.beginCommand(CmdCloseSocket, 4)
	d.writeU32(uint32(sd))

	return d.endCommandU32Result(CmdCloseSocket, time.Second)
}

// GetHostByName resolves a hostname through the co-processor, returning
// the address in a.b.c.d order.
func (d *Device) GetHostByName(host string) ([4]byte, error) {
	if len(host) == 0 || len(host) > hostnameMaxLength {
		return [4]byte{}, ErrHostnameLength
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.beginCommand(CmdGetHostByName, uint16(8+len(host)))
	d.writeU32(8) // offset of the name block
	d.writeU32(uint32(len(host)))
	d.writeBytes([]byte(host))

	if err := d.endCommandBeginReceive(CmdGetHostByName, 10*time.Second); err != nil {
		return [4]byte{}, err
	}

	d.readU8() // status byte
	status := int32(d.readU32())
	ip := d.readU32()
	d.endReceive()

	if status < 0 {
		return [4]byte{}, ErrHostNotFound
	}
	return [4]byte{byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip)}, nil
}
