// Package hal names the hardware capabilities the drive core consumes but
// does not implement itself: GPIO pins, the outbound PWM ping-pong buffer
// and the inbound input-capture ping-pong buffer (spec.md §9 "model it as
// named capabilities"). Two implementations are provided: SimPins/
// SimPWMBuffer/SimCaptureBuffer for deterministic in-memory tests, and
// SerialBridge for driving real bench electronics over a serial link.
package hal

// Pins is the GPIO pin surface of spec.md §6, named after the physical
// signals rather than abstracted into generic booleans, since the drive
// state machine's transition table is itself expressed in terms of pin
// polarity.
type Pins interface {
	// ScanMediaLow reports whether SCAN_MEDIA is asserted (electrically
	// low), meaning the host wants the motor on.
	ScanMediaLow() bool

	// WriteHigh reports whether WRITE is high, meaning the host wants to
	// read (not write).
	WriteHigh() bool

	// SetReadyLow asserts or deasserts READY (electrically low when
	// asserted: bits on the read line are valid).
	SetReadyLow(asserted bool)

	// SetMediaSetLow asserts or deasserts MEDIA_SET (low when a disk is
	// loaded).
	SetMediaSetLow(asserted bool)

	// SetWritableMediaLow asserts or deasserts WRITABLE_MEDIA (low when
	// the loaded side is not read-only).
	SetWritableMediaLow(asserted bool)
}

// PWMBuffer is the outbound ping-pong buffer backing the modulated read
// line, filled by the read-DMA ISR of spec.md §4.3/§5.
type PWMBuffer interface {
	// Buffer returns the fixed-size ping-pong buffer. Each byte is a PWM
	// pulse width (0 = no pulse this half-period).
	Buffer() []byte

	// Start begins continuous PWM output of Buffer's contents.
	Start()

	// Stop aborts PWM output.
	Stop()

	// HalfComplete fires each time the first half of Buffer should be
	// refilled.
	HalfComplete() <-chan struct{}

	// Complete fires each time the second half of Buffer should be
	// refilled.
	Complete() <-chan struct{}
}

// CaptureBuffer is the inbound ping-pong buffer of raw input-capture timer
// values backing the modulated write line, consumed by the write-DMA ISR
// of spec.md §4.4/§5.
type CaptureBuffer interface {
	// Buffer returns the fixed-size ping-pong buffer of raw timer tick
	// values, one per captured pulse edge.
	Buffer() []uint16

	// Start begins continuous input capture into Buffer.
	Start()

	// Stop aborts input capture.
	Stop()

	// HalfComplete fires each time the first half of Buffer holds fresh
	// captures.
	HalfComplete() <-chan struct{}

	// Complete fires each time the second half of Buffer holds fresh
	// captures.
	Complete() <-chan struct{}
}
