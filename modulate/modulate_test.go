package modulate

import (
	"testing"

	"github.com/sergev/fdsdrive/fdsconst"
	"github.com/sergev/fdsdrive/image"
)

func newSide() *image.DiskSide {
	return image.New("test.fds", 0, false)
}

func TestFillEmitsImpulseOnRisingEdge(t *testing.T) {
	side := newSide()
	side.Raw[0] = 0x01 // bit 0 set, rest clear
	side.UsedSpace = 10

	state := &State{}
	buf := make([]byte, 16)
	Fill(buf, 0, 16, state, side, false)

	sawImpulse := false
	for _, v := range buf {
		if v == fdsconst.ReadImpulseLength-1 {
			sawImpulse = true
		} else if v != 0 {
			t.Fatalf("Fill() wrote unexpected pulse width %d", v)
		}
	}
	if !sawImpulse {
		t.Fatalf("Fill() over 16 half-periods of byte 0x01 produced no impulses")
	}
}

func TestFillAdvancesByteAfterSixteenHalfPeriods(t *testing.T) {
	side := newSide()
	side.UsedSpace = fdsconst.MaxSideSize // avoid spurious turbo rewind
	state := &State{CurrentByte: 5}
	buf := make([]byte, 16)

	Fill(buf, 0, 16, state, side, false)

	if state.CurrentByte != 6 {
		t.Fatalf("CurrentByte = %d, want 6 after 16 half-periods", state.CurrentByte)
	}
	if state.CurrentBit != 0 {
		t.Fatalf("CurrentBit = %d, want 0 after a full byte", state.CurrentBit)
	}
}

func TestFillWrapsAndRewindsAtByteZero(t *testing.T) {
	side := newSide()
	side.UsedSpace = fdsconst.MaxSideSize
	state := &State{CurrentByte: fdsconst.MaxSideSize - 1}
	buf := make([]byte, 16)

	rewound := Fill(buf, 0, 16, state, side, false)

	if !rewound {
		t.Fatalf("Fill() did not report rewind when wrapping past the last byte")
	}
	if state.CurrentByte != 0 {
		t.Fatalf("CurrentByte = %d, want 0 after wraparound", state.CurrentByte)
	}
	if state.CurrentBit != 0 || state.Clock != 0 || state.LastValue != 0 {
		t.Fatalf("State not reset after rewind: %+v", state)
	}
}

func TestFillTurboRewindsPastUsedSpace(t *testing.T) {
	side := newSide()
	side.UsedSpace = 100
	// One byte shy of crossing used_space+NotReadyBytes on this advance.
	state := &State{CurrentByte: 100 + fdsconst.NotReadyBytes, CurrentBit: 15}
	buf := make([]byte, 2)

	rewound := Fill(buf, 0, 1, state, side, true)

	if !rewound {
		t.Fatalf("Fill() did not trigger turbo rewind past used_space+NotReadyBytes")
	}
	if state.CurrentByte != 0 {
		t.Fatalf("CurrentByte = %d, want 0 after turbo rewind", state.CurrentByte)
	}
}

func TestFillOriginalRewindLeavesHeadInPlace(t *testing.T) {
	side := newSide()
	side.UsedSpace = 100
	state := &State{CurrentByte: 100 + fdsconst.NotReadyBytes, CurrentBit: 15}
	buf := make([]byte, 2)

	rewound := Fill(buf, 0, 1, state, side, false)

	if rewound {
		t.Fatalf("Fill() rewound under original (non-turbo) policy before reaching byte 0")
	}
	if state.CurrentByte != 100+fdsconst.NotReadyBytes+1 {
		t.Fatalf("CurrentByte = %d, unexpected advance under original rewind policy", state.CurrentByte)
	}
}
