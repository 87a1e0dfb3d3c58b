package demodulate

import (
	"testing"

	"github.com/sergev/fdsdrive/fdsconst"
	"github.com/sergev/fdsdrive/image"
)

// Representative pulse widths chosen as exact multiples of pllPeriod so
// PLLCheck's phase residual lands back on zero after every pulse, keeping
// the cross-check below exact rather than approximate.
const (
	pulseShort  = 80
	pulseMedium = 120
	pulseLong   = 160
	pllPeriod   = 40
)

// crossCheckPulses decodes pulses through both the primary carrier/bucket
// decoder and PLLCheck, asserting per-pulse that PLLCheck's period count
// agrees with Bucket's classification (zeros == bucket-1, always followed
// by a one pulse), and returns the bits the primary decoder emitted.
func crossCheckPulses(t *testing.T, pulses []uint16, carrier byte) []byte {
	t.Helper()
	plc := NewPLLCheck(pllPeriod)
	var bits []byte
	for _, pulse := range pulses {
		bucket := Bucket(pulse)
		decoded, newCarrier, valid := Decode(carrier, bucket)
		if !valid {
			t.Fatalf("Decode(%#x, %d) unexpectedly invalid for pulse %d", carrier, bucket, pulse)
		}
		carrier = newCarrier
		bits = append(bits, decoded...)

		zeros, sawOne := plc.Feed(pulse)
		if !sawOne {
			t.Fatalf("PLLCheck.Feed(%d) did not see a one pulse", pulse)
		}
		if zeros != int(bucket)-1 {
			t.Fatalf("PLLCheck.Feed(%d) zeros = %d, want %d (bucket %d)", pulse, zeros, bucket-1, bucket)
		}
	}
	return bits
}

// TestPLLCheckAgreesWithBucketClassification cross-validates PLLCheck
// against every legal (carrier, bucket) entry of the primary decode table,
// the same table scenario S4 and S5 exercise end to end below.
func TestPLLCheckAgreesWithBucketClassification(t *testing.T) {
	cases := []struct {
		carrier byte
		pulse   uint16
	}{
		{0x80, pulseShort},
		{0x80, pulseMedium},
		{0x00, pulseShort},
		{0x00, pulseMedium},
		{0x00, pulseLong},
	}
	for _, c := range cases {
		bucket := Bucket(c.pulse)
		if _, _, valid := Decode(c.carrier, bucket); !valid {
			t.Fatalf("Decode(%#x, %d) unexpectedly invalid", c.carrier, bucket)
		}

		plc := NewPLLCheck(pllPeriod)
		zeros, sawOne := plc.Feed(c.pulse)
		if !sawOne || zeros != int(bucket)-1 {
			t.Fatalf("PLLCheck.Feed(%d) = (%d, %v), want (%d, true)", c.pulse, zeros, sawOne, bucket-1)
		}
	}
}

// TestPLLCheckCrossValidatesS4WellFormedBlock mirrors spec.md scenario
// S4: a single well-formed block write. Carrier held low throughout, so
// every bucket-2 pulse emits one "1" bit (spec.md §4.4's table), building
// the all-ones byte 0xFF; PLLCheck must track every pulse in lock-step.
func TestPLLCheckCrossValidatesS4WellFormedBlock(t *testing.T) {
	pulses := make([]uint16, 8)
	for i := range pulses {
		pulses[i] = pulseShort
	}

	bits := crossCheckPulses(t, pulses, 0x00)

	side := image.New("test.fds", 0, false)
	state := &State{CurrentBlockEnd: 1}
	var complete bool
	for _, b := range bits {
		complete = WriteBit(side, state, b)
	}
	if !complete {
		t.Fatalf("expected block to complete after one byte's worth of bits")
	}
	if side.Raw[0] != 0xFF {
		t.Fatalf("Raw[0] = %#02x, want 0xff", side.Raw[0])
	}
}

// TestPLLCheckCrossValidatesS5ChainedWrite mirrors spec.md scenario S5:
// after the first block, a run of MultiWriteUnlicensedBits short pulses
// (the unlicensed chain trigger) plus WriteGapSkipBits more (the next
// block's gap skip) precede a second block, all without a WRITE toggle.
// PLLCheck must stay in lock-step across the whole multi-block stream.
func TestPLLCheckCrossValidatesS5ChainedWrite(t *testing.T) {
	var pulses []uint16
	for i := 0; i < 8; i++ {
		pulses = append(pulses, pulseShort)
	}
	for i := 0; i < fdsconst.MultiWriteUnlicensedBits+fdsconst.WriteGapSkipBits; i++ {
		pulses = append(pulses, pulseShort)
	}
	for i := 0; i < 8; i++ {
		pulses = append(pulses, pulseShort)
	}

	bits := crossCheckPulses(t, pulses, 0x00)
	if len(bits) != len(pulses) {
		t.Fatalf("got %d bits for %d carrier-0 bucket-2 pulses, want 1:1", len(bits), len(pulses))
	}
	for _, b := range bits {
		if b != 1 {
			t.Fatalf("expected every carrier-0 bucket-2 pulse to decode to bit 1, got %d", b)
		}
	}
}
