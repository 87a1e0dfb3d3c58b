// Package image holds the block-oriented model of one loaded side of an
// FDS disk image: the raw on-wire byte buffer, the block offset index,
// block sizing, and the invariants that must hold between operations.
package image

import (
	"encoding/binary"
	"fmt"

	"github.com/sergev/fdsdrive/crc"
	"github.com/sergev/fdsdrive/fdsconst"
)

// DiskSide is one loaded side of an FDS image, following spec.md §3.
type DiskSide struct {
	Raw          []byte
	BlockOffsets []int
	UsedSpace    int
	Changed      bool
	Readonly     bool
	Filename     string
	SideIndex    int
}

// New allocates an empty side, zeroing Raw the way fdsemu.c's
// fds_load_side does before decoding blocks into it.
func New(filename string, side int, readonly bool) *DiskSide {
	return &DiskSide{
		Raw:       make([]byte, fdsconst.MaxSideSize),
		Filename:  filename,
		SideIndex: side,
		Readonly:  readonly,
	}
}

// BlockCount reports the number of indexed blocks.
func (d *DiskSide) BlockCount() int {
	return len(d.BlockOffsets)
}

// gapLength returns the gap length in bytes (including the 0x80
// terminator) preceding block i.
func gapLength(i int) int {
	if i == 0 {
		return fdsconst.FirstGapBytes
	}
	return fdsconst.NextGapBytes
}

// BlockType returns the canonical block type tag for block index i:
// 1, 2, 3, 4, 3, 4, ... (spec.md §3).
func BlockType(i int) byte {
	switch {
	case i == 0:
		return fdsconst.BlockTypeDiskInfo
	case i == 1:
		return fdsconst.BlockTypeFileCount
	case i%2 == 0:
		return fdsconst.BlockTypeFileHeader
	default:
		return fdsconst.BlockTypeFileData
	}
}

// BlockBodySize returns the body length of block i, excluding gap and
// CRC, per spec.md §4.2. File-data blocks (odd i > 1) read their length
// from the preceding file-header's little-endian length field at body
// offsets 0x0D-0x0E, located in Raw from that header block's offset plus
// its gap length.
func (d *DiskSide) BlockBodySize(i int) (int, error) {
	switch {
	case i == 0:
		return fdsconst.DiskInfoBodySize, nil
	case i == 1:
		return fdsconst.FileCountBodySize, nil
	case i%2 == 0:
		return fdsconst.FileHeaderBodySize, nil
	default:
		if i-1 < 0 || i-1 >= len(d.BlockOffsets) {
			return 0, fmt.Errorf("image: no preceding header for block %d", i)
		}
		headerBody := d.BlockOffsets[i-1] + gapLength(i-1)
		if headerBody+0x0f > len(d.Raw) {
			return 0, fmt.Errorf("image: header for block %d out of range", i)
		}
		length := binary.LittleEndian.Uint16(d.Raw[headerBody+0x0D : headerBody+0x0F])
		return 1 + int(length), nil
	}
}

// BlockSize returns the canonical byte length of block i, optionally
// including its leading gap and/or trailing CRC (spec.md §4.2).
func (d *DiskSide) BlockSize(i int, includeGap, includeCRC bool) (int, error) {
	body, err := d.BlockBodySize(i)
	if err != nil {
		return 0, err
	}
	size := body
	if includeGap {
		size += gapLength(i)
	}
	if includeCRC {
		size += 2
	}
	return size, nil
}

// LocateBlock returns the index of the block containing bytePos, or -1 if
// bytePos lies beyond every indexed block.
func (d *DiskSide) LocateBlock(bytePos int) int {
	for i := range d.BlockOffsets {
		size, err := d.BlockSize(i, true, true)
		if err != nil {
			return -1
		}
		if bytePos < d.BlockOffsets[i]+size {
			return i
		}
	}
	return -1
}

// WriteGap writes gapLength(i)-1 zero bytes followed by the 0x80 gap
// terminator starting at offset, returning the offset immediately after
// the terminator. Mirrors the byte-at-a-time gap-writing idiom of
// mfm/writer.go's writeGap, generalized from MFM gap-fill bytes to FDS's
// zero-run-plus-terminator gap.
func (d *DiskSide) WriteGap(offset, i int) (int, error) {
	n := gapLength(i)
	if offset+n > len(d.Raw) {
		return 0, fmt.Errorf("image: gap for block %d overruns side", i)
	}
	for j := 0; j < n-1; j++ {
		d.Raw[offset+j] = 0
	}
	d.Raw[offset+n-1] = fdsconst.GapTerminator
	return offset + n, nil
}

// BlockCRC computes the checksum of block i's body as currently stored in
// Raw.
func (d *DiskSide) BlockCRC(i int) (uint16, error) {
	body, err := d.BlockBodySize(i)
	if err != nil {
		return 0, err
	}
	start := d.BlockOffsets[i] + gapLength(i)
	if start+body > len(d.Raw) {
		return 0, fmt.Errorf("image: block %d body out of range", i)
	}
	return crc.FDS(d.Raw[start : start+body]), nil
}

// StoredCRC reads the 2-byte little-endian CRC trailing block i.
func (d *DiskSide) StoredCRC(i int) (uint16, error) {
	body, err := d.BlockBodySize(i)
	if err != nil {
		return 0, err
	}
	start := d.BlockOffsets[i] + gapLength(i) + body
	if start+2 > len(d.Raw) {
		return 0, fmt.Errorf("image: block %d CRC out of range", i)
	}
	return binary.LittleEndian.Uint16(d.Raw[start : start+2]), nil
}

// CheckInvariants verifies invariants 1-4 of spec.md §3 (used space range,
// offset ordering, gaps and terminators, block type tags). Invariant 5,
// the per-block CRC, is checked by VerifyAllCRCs, which is what Save calls.
func (d *DiskSide) CheckInvariants() error {
	if d.UsedSpace < 0 || d.UsedSpace > fdsconst.MaxSideSize {
		return fmt.Errorf("image: used_space %d out of range", d.UsedSpace)
	}
	prev := -1
	for i, off := range d.BlockOffsets {
		if off <= prev {
			return fmt.Errorf("image: block_offsets not strictly increasing at %d", i)
		}
		if off >= d.UsedSpace {
			return fmt.Errorf("image: block %d offset %d >= used_space %d", i, off, d.UsedSpace)
		}
		prev = off

		n := gapLength(i)
		if d.Raw[off+n-1] != fdsconst.GapTerminator {
			return fmt.Errorf("image: block %d missing gap terminator", i)
		}
		for j := 0; j < n-1; j++ {
			if d.Raw[off+j] != 0 {
				return fmt.Errorf("image: block %d gap byte %d not zero", i, j)
			}
		}

		tag := d.Raw[off+n]
		if tag != BlockType(i) {
			return fmt.Errorf("image: block %d has type tag %#02x, want %#02x", i, tag, BlockType(i))
		}
	}
	return nil
}

// VerifyAllCRCs checks invariant 5 (every block's trailing CRC matches its
// body) across the whole side, returning the first mismatching block
// index or -1 if all blocks verify.
func (d *DiskSide) VerifyAllCRCs() int {
	for i := range d.BlockOffsets {
		want, err := d.BlockCRC(i)
		if err != nil {
			return i
		}
		got, err := d.StoredCRC(i)
		if err != nil || got != want {
			return i
		}
	}
	return -1
}
