package hci

// fakeLink is a scripted co-processor for tests. It logs every byte the
// driver puts on the link and plays back queued inbound frames, firing the
// attached interrupt handler synchronously the way the hardware edge
// would:
//
//   - asserting CS while the line is idle models the ready pulse of the
//     WaitAssert handshake and fires the handler immediately;
//   - releasing CS at the end of an outbound frame delivers the next
//     queued inbound frame, if any;
//   - releasing CS at the end of an inbound frame closes it and deasserts
//     the line; a further queued frame is delivered on the next line
//     sample, so the deassert wait in endReceive observes the idle level
//     first.
//
// Everything runs on the test goroutine, so tests are deterministic.
type fakeLink struct {
	irqHandler func()

	tx       []byte   // every byte the driver sent
	pending  [][]byte // command replies, delivered when an outbound frame ends
	followup [][]byte // pushed frames, delivered after an inbound frame closes
	cur      []byte   // inbound bytes being clocked out, nil when no frame open

	csActive    bool
	irqAsserted bool
	inISR       bool
	deferred    bool // a followup waiting for the deassert window to pass
}

func newFakeLink() *fakeLink {
	// The line starts idle. Bring-up tests assert it themselves to model
	// the power-on readiness signal.
	return &fakeLink{}
}

func (f *fakeLink) attach(d *Device) { f.irqHandler = d.ServiceIRQ }

// queueFrame schedules a command reply for delivery when the next
// outbound frame completes.
func (f *fakeLink) queueFrame(payload []byte) {
	f.pending = append(f.pending, payload)
}

// queueFollowup schedules a pushed frame, such as a recv data frame, for
// delivery once the currently queued inbound traffic has been consumed.
func (f *fakeLink) queueFollowup(payload []byte) {
	f.followup = append(f.followup, payload)
}

// deliverNow pushes an inbound frame immediately, the way an unsolicited
// event arrives.
func (f *fakeLink) deliverNow(payload []byte) {
	f.deliver(payload)
}

func (f *fakeLink) Transfer(out byte) byte {
	f.tx = append(f.tx, out)
	if len(f.cur) > 0 {
		b := f.cur[0]
		f.cur = f.cur[1:]
		return b
	}
	return 0
}

func (f *fakeLink) SetCS(active bool) {
	f.csActive = active

	if active {
		if !f.inISR && !f.irqAsserted {
			// Ready pulse for the WaitAssert handshake.
			f.irqAsserted = true
			f.fire()
		}
		return
	}

	if f.cur != nil {
		// End of an inbound frame.
		f.cur = nil
		f.irqAsserted = false
		if !f.inISR && len(f.followup) > 0 {
			// The remote reasserts only after the deassert window; see
			// IRQAsserted.
			f.deferred = true
		}
		return
	}

	// End of an outbound frame.
	f.irqAsserted = false
	if !f.inISR && len(f.pending) > 0 {
		payload := f.pending[0]
		f.pending = f.pending[1:]
		f.deliver(payload)
	}
}

func (f *fakeLink) IRQAsserted() bool {
	if f.deferred && !f.inISR {
		// The idle level was observable at this sample; the reassertion
		// for the next frame lands right after it.
		f.deferred = false
		payload := f.followup[0]
		f.followup = f.followup[1:]
		f.deliver(payload)
		return false
	}
	return f.irqAsserted
}

func (f *fakeLink) deliver(payload []byte) {
	// Five exchanged bytes cover the read preamble, then the big-endian
	// length, then the payload itself.
	stream := make([]byte, 0, 5+len(payload))
	stream = append(stream, 0, 0, 0, byte(len(payload)>>8), byte(len(payload)))
	stream = append(stream, payload...)
	f.cur = stream
	f.irqAsserted = true
	f.fire()
}

func (f *fakeLink) fire() {
	if f.irqHandler == nil {
		return
	}
	f.inISR = true
	f.irqHandler()
	f.inISR = false
}

// eventFrame builds an inbound event frame payload.
func eventFrame(event uint16, body ...byte) []byte {
	frame := []byte{typeEvent, byte(event), byte(event >> 8), byte(len(body))}
	return append(frame, body...)
}

// dataFrame builds an inbound data frame payload.
func dataFrame(opcode byte, args []byte, data []byte) []byte {
	total := len(args) + len(data)
	frame := []byte{typeData, opcode, byte(len(args)), byte(total), byte(total >> 8)}
	frame = append(frame, args...)
	return append(frame, data...)
}

// u32le encodes v little-endian.
func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// u16le encodes v little-endian.
func u16le(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

// statusResult builds the common reply body: status byte plus 32-bit
// little-endian result.
func statusResult(status byte, result uint32) []byte {
	return append([]byte{status}, u32le(result)...)
}

// newTestDevice wires a Device to a fresh fakeLink with seeded buffer
// credits and an event recorder.
func newTestDevice() (*Device, *fakeLink, *eventRecorder) {
	fl := newFakeLink()
	rec := &eventRecorder{}
	d, err := New(Config{Link: fl, OnEvent: rec.record})
	if err != nil {
		panic(err)
	}
	fl.attach(d)
	// Most tests start past bring-up: pool seeded, dispatcher in Idle.
	d.seedBuffers(6, 1500)
	d.state = stateIdle
	return d, fl, rec
}

type recordedEvent struct {
	event uint16
	arg   uint32
}

type eventRecorder struct {
	events []recordedEvent
}

func (r *eventRecorder) record(event uint16, arg uint32) {
	r.events = append(r.events, recordedEvent{event, arg})
}

func (r *eventRecorder) count(event uint16) int {
	n := 0
	for _, e := range r.events {
		if e.event == event {
			n++
		}
	}
	return n
}
