package hci

// SPI transaction opcodes.
const (
	spiWrite = 0x01
	spiRead  = 0x03
)

// Message types, the leading byte of every inbound or outbound message.
const (
	typeCommand = 0x01
	typeData    = 0x02
	typePatch   = 0x03
	typeEvent   = 0x04
)

// Command opcodes. Replies carry the same code as their command.
const (
	CmdWlanConnect         uint16 = 0x0001
	CmdWlanDisconnect      uint16 = 0x0002
	CmdSetConnectionPolicy uint16 = 0x0004
	CmdEventMask           uint16 = 0x0008

	CmdSocket        uint16 = 0x1001
	CmdBind          uint16 = 0x1002
	CmdRecv          uint16 = 0x1004
	CmdAccept        uint16 = 0x1005
	CmdListen        uint16 = 0x1006
	CmdConnect       uint16 = 0x1007
	CmdSelect        uint16 = 0x1008
	CmdSetSockOpt    uint16 = 0x1009
	CmdCloseSocket   uint16 = 0x100B
	CmdGetHostByName uint16 = 0x1010
	CmdMdnsAdvertise uint16 = 0x1011

	CmdNetappSetTimers uint16 = 0x2009

	CmdSimpleLinkStart uint16 = 0x4000
	CmdReadBufferSize  uint16 = 0x400B
)

// Data opcodes, single bytes in the data message header.
const (
	dataOpSend     = 0x81
	dataOpSendTo   = 0x83
	dataOpRecvFrom = 0x84
	dataOpRecv     = 0x85
)

// Event codes delivered through EventFunc.
const (
	// EvntSend acknowledges an outbound data frame.
	EvntSend uint16 = 0x1003

	EvntWlanUnsolConnect      uint16 = 0x8001
	EvntWlanUnsolDisconnect   uint16 = 0x8002
	EvntWlanUnsolInit         uint16 = 0x8004
	EvntWlanTxComplete        uint16 = 0x8008
	EvntWlanUnsolDHCP         uint16 = 0x8010
	EvntWlanAsyncPingReport   uint16 = 0x8040
	EvntWlanKeepalive         uint16 = 0x8200
	EvntWlanUnsolTCPCloseWait uint16 = 0x8800

	EvntDataUnsolFreeBuffers uint16 = 0x4100
)

// Driver-synthesized event codes, outside the protocol's code space.
const (
	// EvntDeviceLocked signals that a command's reply never arrived within
	// its deadline. Raised once per timed-out command, alongside the
	// ErrCmdTimeout return.
	EvntDeviceLocked uint16 = 0xFFFE

	// EvntUnexpectedData signals an inbound data frame that no read was
	// waiting for. The frame is drained and discarded; it is never matched
	// to a later read.
	EvntUnexpectedData uint16 = 0xFFFD
)

// eventNone marks the pending reply slot as empty.
const eventNone = 0xFFFF

// Interrupt dispatcher states, in lifecycle order. A Device starts in
// Powerup, where the interrupt line only carries the power-on readiness
// signal and edges have no frame behind them; consuming the first command
// moves it to Idle.
const (
	statePowerup = iota
	stateIdle
	stateWaitAssert
)

// patchesRequestDefault asks the co-processor to use its own firmware
// patches during SIMPLE_LINK_START.
const patchesRequestDefault = 0
