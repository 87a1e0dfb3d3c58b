package hal

import (
	"fmt"
	"io"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Bench fixture command codes. Framing (command byte, payload bytes,
// 3-byte ACK reply of [command echo, pin level, status]) is modeled
// directly on the teacher's Greaseweazle CMD_SET_PIN/CMD_GET_PIN/doCommand
// protocol, repurposed here to read and drive the five FDS drive pins
// instead of a flux adapter's stepper/head pins.
const (
	cmdGetPins = 0x40
	cmdSetPin  = 0x41
)

// Bench pin indices, sent as the payload byte of cmdGetPins/cmdSetPin.
const (
	pinScanMedia = iota
	pinWrite
	pinReady
	pinMediaSet
	pinWritableMedia
)

const (
	ackOkay       = 0
	ackBadCommand = 1
	ackBadPin     = 2
)

func ackError(code byte) error {
	switch code {
	case ackOkay:
		return nil
	case ackBadCommand:
		return fmt.Errorf("hal: bench fixture reported bad command")
	case ackBadPin:
		return fmt.Errorf("hal: bench fixture reported bad pin")
	default:
		return fmt.Errorf("hal: bench fixture reported unknown status %#02x", code)
	}
}

// SerialBridge is a Pins implementation that drives and reads the five
// FDS pins of a real bench fixture attached over a serial link, for
// hardware-in-the-loop testing of the engine against actual drive
// electronics.
type SerialBridge struct {
	port serial.Port
}

// OpenSerialBridge opens portName at the bench fixture's fixed baud rate
// and returns a ready-to-use bridge.
func OpenSerialBridge(portName string) (*SerialBridge, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: 115200})
	if err != nil {
		return nil, fmt.Errorf("hal: failed to open serial port %s: %w", portName, err)
	}
	return &SerialBridge{port: port}, nil
}

// FindBenchFixture enumerates serial ports looking for one matching
// vendorID/productID, mirroring the teacher's VID/PID adapter probe in
// cmd/root.go.
func FindBenchFixture(vendorID, productID string) (*SerialBridge, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("hal: failed to list serial ports: %w", err)
	}
	for _, p := range ports {
		if p.VID == vendorID && p.PID == productID {
			return OpenSerialBridge(p.Name)
		}
	}
	return nil, fmt.Errorf("hal: no bench fixture found (VID=%s PID=%s)", vendorID, productID)
}

// Close releases the underlying serial port.
func (b *SerialBridge) Close() error {
	return b.port.Close()
}

func (b *SerialBridge) doCommand(cmd []byte) (byte, error) {
	if _, err := b.port.Write(cmd); err != nil {
		return 0, fmt.Errorf("hal: failed to write command: %w", err)
	}
	ack := make([]byte, 3)
	if _, err := io.ReadFull(b.port, ack); err != nil {
		return 0, fmt.Errorf("hal: failed to read ACK: %w", err)
	}
	if ack[0] != cmd[0] {
		return 0, fmt.Errorf("hal: bench fixture returned garbage (%#02x != %#02x)", ack[0], cmd[0])
	}
	if err := ackError(ack[2]); err != nil {
		return 0, err
	}
	return ack[1], nil
}

func (b *SerialBridge) getPin(pin byte) bool {
	level, err := b.doCommand([]byte{cmdGetPins, pin})
	if err != nil {
		// A communication fault with the bench fixture reads as the
		// pin's inactive level rather than panicking the drive engine:
		// SCAN_MEDIA not asserted, WRITE high (read mode).
		return pin == pinWrite
	}
	return level != 0
}

func (b *SerialBridge) setPin(pin byte, asserted bool) {
	level := byte(0)
	if asserted {
		level = 1
	}
	_, _ = b.doCommand([]byte{cmdSetPin, pin, level})
}

func (b *SerialBridge) ScanMediaLow() bool { return b.getPin(pinScanMedia) }
func (b *SerialBridge) WriteHigh() bool    { return b.getPin(pinWrite) }

func (b *SerialBridge) SetReadyLow(asserted bool)         { b.setPin(pinReady, asserted) }
func (b *SerialBridge) SetMediaSetLow(asserted bool)      { b.setPin(pinMediaSet, asserted) }
func (b *SerialBridge) SetWritableMediaLow(asserted bool) { b.setPin(pinWritableMedia, asserted) }
