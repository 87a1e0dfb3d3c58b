// Package fdsconst holds the fixed layout and timing constants shared by
// the image, modulate, demodulate, drive and storage packages. Keeping
// them in one leaf package avoids import cycles between the components
// that all need to agree on, for example, the byte layout of a side.
package fdsconst

import "time"

const (
	// MaxSideSize is the largest legal physical side, matching the .fds
	// on-disk side size.
	MaxSideSize = 65500

	// MaxBlocks is the nominal capacity of the block index. No package
	// consults it: the index is a slice that grows by append, and nothing
	// caps its length.
	MaxBlocks = 256

	// FirstGapBytes is the length in bytes (including the 0x80
	// terminator) of the gap preceding block 0.
	FirstGapBytes = 3537

	// NextGapBytes is the length in bytes (including the 0x80
	// terminator) of the gap preceding every block after the first.
	NextGapBytes = 122

	// ReadImpulseLength is the read-line impulse length; the modulator
	// writes ReadImpulseLength-1 into the PWM buffer on each low-to-high
	// transition of the modulated read line.
	ReadImpulseLength = 42

	// NotReadyBytes is the turbo-rewind slack: how far past UsedSpace the
	// head may travel before turbo rewind kicks in.
	NotReadyBytes = 16

	// GapTerminator is the single non-zero byte ending every gap.
	GapTerminator = 0x80
)

// Disk info, file-count, file-header and file-data block type tags, in
// the fixed position-implied order 1, 2, 3, 4, 3, 4, ...
const (
	BlockTypeDiskInfo  = 0x01
	BlockTypeFileCount = 0x02
	BlockTypeFileHeader = 0x03
	BlockTypeFileData  = 0x04
)

const (
	DiskInfoBodySize  = 56
	FileCountBodySize = 2
	FileHeaderBodySize = 16
)

// Write-pulse demodulation thresholds, in raw input-capture timer ticks.
// The host emits pulses spaced at nominally 10us, 15us or 20us; Threshold1
// separates the 10us bucket from the 15us bucket and Threshold2 separates
// the 15us bucket from the 20us bucket.
const (
	Threshold1 = 100
	Threshold2 = 140
)

const (
	// WriteGapSkipBits is how many leading pulses of a write gap are
	// discarded as garbage before the gap terminator start bit is
	// recognised.
	WriteGapSkipBits = 10

	// MultiWriteUnlicensedBits is the number of consecutive short pulses
	// in WritingStopping that triggers chaining into the next block
	// without a WRITE toggle, to tolerate unlicensed software.
	MultiWriteUnlicensedBits = 50
)

const (
	// RomHeaderSize is the length of the optional iNES-style header some
	// .fds dumps carry before the first side.
	RomHeaderSize = 16

	// RomSideSize is the on-disk size of one side in the .fds format.
	RomSideSize = 65500
)

const (
	// NotReadyTime is how long the drive stays not-ready after a turbo
	// rewind before reasserting READY.
	NotReadyTime = 150 * time.Millisecond

	// NotReadyTimeOriginal is the equivalent delay when settings select
	// the original (non-turbo) rewind speed, modelling the time a real
	// drive head takes to physically seek back to the start of the side.
	NotReadyTimeOriginal = 2000 * time.Millisecond

	// DefaultAutosaveDelay is the embedded-config fallback for how long
	// the drive must sit idle with unsaved changes before entering
	// SavePending. settings.AutosaveDelay is authoritative when set.
	DefaultAutosaveDelay = 2 * time.Second
)

// DiskInfoSignature is the fixed string block 0's body must carry at
// offset 1 for a .fds side to be considered valid.
const DiskInfoSignature = "*NINTENDO-HVC*"
