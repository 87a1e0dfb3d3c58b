// Package demodulate implements the low-level pieces of the write
// demodulator: pulse-width bucketing, the carrier/bucket bit-emission
// table, and bit-level writes into the image (spec.md §4.4). The larger
// per-state pulse dispatch (WRITING_GAP/WRITING/WRITING_STOPPING and the
// transitions they trigger) lives in package drive, since it must also
// call back into the drive's own Stop/ResetWriting/StartReading methods.
package demodulate

import (
	"github.com/sergev/fdsdrive/fdsconst"
	"github.com/sergev/fdsdrive/image"
)

// State is the head cursor used while writing: byte/bit position within
// the side (CurrentBit over [0,8), one write bit per position), the
// demodulator's carrier-inversion state, and the last raw capture timer
// value (for computing the next pulse's width by 16-bit unsigned
// subtraction).
type State struct {
	CurrentByte      int
	CurrentBit       int
	WriteCarrier     byte
	CurrentBlockEnd  int
	WriteGapSkip     int
	LastWriteImpulse uint16
}

// Pulse computes the gap between two consecutive raw capture timer
// values, relying on 16-bit unsigned wraparound the way spec.md §4.4
// requires.
func Pulse(current, last uint16) uint16 {
	return current - last
}

// Bucket classifies a pulse width into one of the three legal spacings
// (10us/15us/20us), returned as 2, 3 or 4 per spec.md §4.4's table.
func Bucket(pulse uint16) byte {
	switch {
	case pulse < fdsconst.Threshold1:
		return 2
	case pulse < fdsconst.Threshold2:
		return 3
	default:
		return 4
	}
}

// Decode applies the carrier/bucket table of spec.md §4.4, returning the
// bits to emit (0, 1 or 2 bits), the new carrier state, and whether the
// (carrier, bucket) combination was valid. An invalid combination (0x84)
// emits no bits and leaves the carrier unchanged.
func Decode(carrier, bucket byte) (bits []byte, newCarrier byte, valid bool) {
	switch {
	case carrier == 0x80 && bucket == 2:
		return []byte{0}, 0x80, true
	case carrier == 0x80 && bucket == 3:
		return []byte{1}, 0, true
	case carrier == 0x80 && bucket == 4:
		return nil, carrier, false
	case carrier == 0x00 && bucket == 2:
		return []byte{1}, 0, true
	case carrier == 0x00 && bucket == 3:
		return []byte{0, 0}, 0x80, true
	case carrier == 0x00 && bucket == 4:
		return []byte{0, 1}, 0, true
	default:
		return nil, carrier, false
	}
}

// WriteBit shifts one demodulated bit LSB-first into the current byte of
// side and advances state, matching fdsemu.c's fds_write_bit. It reports
// whether the write cursor has just reached or passed CurrentBlockEnd
// (the caller decides how to react: full stop, switch to reading, or keep
// writing the next block).
func WriteBit(side *image.DiskSide, state *State, bit byte) (blockComplete bool) {
	cb := state.CurrentByte
	side.Raw[cb] = (side.Raw[cb] >> 1) | (bit << 7)
	state.CurrentBit++
	if state.CurrentBit <= 7 {
		return false
	}
	state.CurrentBit = 0
	state.CurrentByte = (state.CurrentByte + 1) % fdsconst.MaxSideSize
	return state.CurrentByte >= state.CurrentBlockEnd
}
