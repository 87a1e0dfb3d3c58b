// Package modulate implements the read modulator: the producer of the
// outbound modulated bit stream fed from the loaded image into the PWM
// ping-pong buffer (spec.md §4.3).
package modulate

import (
	"github.com/sergev/fdsdrive/fdsconst"
	"github.com/sergev/fdsdrive/image"
)

// State is the head cursor used while reading: byte/half-bit position
// within the side, the alternating carrier clock, and the last emitted
// modulated level (for rising-edge detection). Reading advances
// CurrentBit over [0,16) — two carrier half-periods per data bit.
type State struct {
	CurrentByte int
	CurrentBit  int
	Clock       byte
	LastValue   byte
}

// Reset zeroes the carrier and half-bit position, and additionally snaps
// CurrentByte to 0 when turbo is true, matching fdsemu.c's
// fds_reset_reading.
func (s *State) Reset(turbo bool) {
	s.Clock = 0
	if turbo {
		s.CurrentByte = 0
	}
	s.CurrentBit = 0
	s.LastValue = 0
}

// Fill steps the modulator one half-period at a time for length
// half-periods starting at buf[offset], writing PWM pulse widths into buf
// and advancing state. It reports whether a rewind condition (spec.md
// §4.3) was triggered during the fill: the head wrapping round to byte 0,
// or, with turboRewind, the head passing UsedSpace+NotReadyBytes (which
// also snaps CurrentByte back to 0). The result does not say which of the
// two occurred, and filling continues for the rest of length afterwards.
func Fill(buf []byte, offset, length int, state *State, side *image.DiskSide, turboRewind bool) (rewound bool) {
	for i := 0; i < length; i++ {
		state.Clock ^= 1
		bit := (side.Raw[state.CurrentByte] >> (state.CurrentBit / 2)) & 1
		value := bit ^ state.Clock

		if value == 1 && state.LastValue == 0 {
			buf[offset+i] = fdsconst.ReadImpulseLength - 1
		} else {
			buf[offset+i] = 0
		}
		state.LastValue = value

		state.CurrentBit++
		if state.CurrentBit > 15 {
			state.CurrentBit = 0
			state.CurrentByte = (state.CurrentByte + 1) % fdsconst.MaxSideSize

			if state.CurrentByte == 0 ||
				(turboRewind && state.CurrentByte > side.UsedSpace+fdsconst.NotReadyBytes) {
				rewound = true
				state.Reset(turboRewind)
			}
		}
	}
	return rewound
}
