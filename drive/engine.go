package drive

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sergev/fdsdrive/demodulate"
	"github.com/sergev/fdsdrive/fdsconst"
	"github.com/sergev/fdsdrive/hal"
	"github.com/sergev/fdsdrive/image"
	"github.com/sergev/fdsdrive/modulate"
	"github.com/sergev/fdsdrive/settings"
)

// Engine is the singleton drive emulation core: one loaded side, the pin
// surface, the read/write ping-pong buffers, and the state machine that
// ties them together. A single mutex guards every field the pump
// goroutines and CheckPins touch, replacing the C firmware's
// single-word-write/volatile discipline (see the concurrency notes in
// the project's design document) since Go gives no equivalent guarantee
// for unsynchronized concurrent access.
type Engine struct {
	mu sync.Mutex

	side     *image.DiskSide
	state    State
	settings settings.Settings

	pins     hal.Pins
	readBuf  hal.PWMBuffer
	writeBuf hal.CaptureBuffer

	modState   modulate.State
	demodState demodulate.State

	notReadyTime   time.Time
	lastActionTime time.Time

	stopPumps chan struct{}
}

// NewEngine wires an engine around the given pin surface and ping-pong
// buffers, starting in StateOff with no side loaded.
func NewEngine(pins hal.Pins, readBuf hal.PWMBuffer, writeBuf hal.CaptureBuffer, s settings.Settings) *Engine {
	return &Engine{
		state:    StateOff,
		settings: s,
		pins:     pins,
		readBuf:  readBuf,
		writeBuf: writeBuf,
	}
}

// State reports the current top-level state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Settings returns a copy of the engine's current settings.
func (e *Engine) Settings() settings.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// IsChanged reports whether the loaded side has unsaved modifications.
func (e *Engine) IsChanged() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.side != nil && e.side.Changed
}

// GetBlock returns the index of the block currently under the head, or -1
// if the head lies past every indexed block (fds_get_block).
func (e *Engine) GetBlock() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.side == nil {
		return -1
	}
	return e.side.LocateBlock(e.modState.CurrentByte)
}

// GetBlockCount returns the number of indexed blocks (fds_get_block_count).
func (e *Engine) GetBlockCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.side == nil {
		return 0
	}
	return e.side.BlockCount()
}

// GetHeadPosition returns the virtual head position in bytes
// (fds_get_head_position).
func (e *Engine) GetHeadPosition() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modState.CurrentByte
}

// GetMaxSize returns the maximum side capacity in bytes
// (fds_get_max_size).
func (e *Engine) GetMaxSize() int {
	return fdsconst.MaxSideSize
}

// GetUsedSpace returns the number of bytes actually used on the loaded
// side (fds_get_used_space).
func (e *Engine) GetUsedSpace() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.side == nil {
		return 0
	}
	return e.side.UsedSpace
}

// stopReading aborts the read pump's buffer, mirroring fds_stop_reading.
func (e *Engine) stopReading() {
	e.readBuf.Stop()
}

// stopWriting aborts the write pump's buffer, mirroring fds_stop_writing.
func (e *Engine) stopWriting() {
	e.writeBuf.Stop()
}

// stop performs a full drive stop: both buffers aborted, READY deasserted
// (high: drive not ready), state back to idle. Mirrors fds_stop. Caller must
// hold e.mu.
func (e *Engine) stop() {
	e.stopReading()
	e.stopWriting()
	e.pins.SetReadyLow(false)
	e.state = StateIdle
}

// resetReading zeroes the carrier and half-bit position, snapping the
// head back to byte 0 under turbo rewind. Mirrors fds_reset_reading.
// Caller must hold e.mu.
func (e *Engine) resetReading() {
	e.modState.Reset(e.settings.RewindSpeed == settings.RewindTurbo)
}

// startReading begins filling the read buffer from the current head
// position and enters StateReading. Mirrors fds_start_reading. Caller
// must hold e.mu.
func (e *Engine) startReading() {
	e.modState.CurrentBit = 0
	turbo := e.settings.RewindSpeed == settings.RewindTurbo
	modulate.Fill(e.readBuf.Buffer(), 0, len(e.readBuf.Buffer()), &e.modState, e.side, turbo)
	e.readBuf.Start()
	e.state = StateReading
}

// startWriting locates the block to (over)write, writes its leading gap,
// and enters StateWritingGap. Mirrors fds_start_writing. Caller must hold
// e.mu.
func (e *Engine) startWriting() error {
	if err := e.resetWriting(); err != nil {
		return err
	}
	e.state = StateWritingGap
	e.writeBuf.Start()
	return nil
}

// fillReadHalf services a read-buffer half/full-complete signal, mirroring
// fds_dma_fill_read_buffer's half/full callbacks.
func (e *Engine) fillReadHalf(offset, length int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateReading, StateReadWaitReady:
	default:
		return
	}

	buf := e.readBuf.Buffer()
	turbo := e.settings.RewindSpeed == settings.RewindTurbo
	rewound := modulate.Fill(buf, offset, length, &e.modState, e.side, turbo)
	if rewound && e.modState.CurrentByte == 0 {
		e.pins.SetReadyLow(false)
		e.notReadyTime = time.Now()
		e.state = StateReadWaitReadyTimer
		e.resetReading()
	}
}

// RunReadPump drains the read buffer's half/full signals until stopCh
// closes, feeding each into fillReadHalf. Runs as its own goroutine,
// mirroring the two DMA half/full interrupt callbacks fdsemu.c registers.
func (e *Engine) RunReadPump(stopCh <-chan struct{}) {
	half := len(e.readBuf.Buffer()) / 2
	for {
		select {
		case <-e.readBuf.HalfComplete():
			e.fillReadHalf(0, half)
		case <-e.readBuf.Complete():
			e.fillReadHalf(half, half)
		case <-stopCh:
			return
		}
	}
}

// parseWriteHalf services a write-buffer half/full-complete signal,
// mirroring fds_dma_parse_write_buffer.
func (e *Engine) parseWriteHalf(offset, length int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	buf := e.writeBuf.Buffer()
	for i := offset; i < offset+length; i++ {
		pulse := demodulate.Pulse(buf[i], e.demodState.LastWriteImpulse)
		e.demodState.LastWriteImpulse = buf[i]
		e.handleWriteImpulse(pulse)
	}
}

// RunWritePump drains the write buffer's half/full signals until stopCh
// closes, feeding each into parseWriteHalf.
func (e *Engine) RunWritePump(stopCh <-chan struct{}) {
	half := len(e.writeBuf.Buffer()) / 2
	for {
		select {
		case <-e.writeBuf.HalfComplete():
			e.parseWriteHalf(0, half)
		case <-e.writeBuf.Complete():
			e.parseWriteHalf(half, half)
		case <-stopCh:
			return
		}
	}
}

// handleWriteImpulse is the per-state pulse dispatch of fds_write_impulse:
// WritingGap discards lead-in bits then locks onto the start bit; Writing
// buckets the pulse and decodes it through the carrier table, calling back
// into WriteBit and the state transitions it can trigger; WritingStopping
// watches for unlicensed multi-block writes that never toggle /WRITE.
// Caller must hold e.mu.
func (e *Engine) handleWriteImpulse(pulse uint16) {
	switch e.state {
	case StateWritingGap, StateWriting:
	case StateWritingStopping:
		if pulse < fdsconst.Threshold1 {
			e.demodState.WriteGapSkip++
		} else {
			e.demodState.WriteGapSkip = 0
		}
		if e.demodState.WriteGapSkip >= fdsconst.MultiWriteUnlicensedBits {
			if err := e.startWriting(); err != nil {
				log.Printf("drive: failed to start next unlicensed multi-write block: %v", err)
			}
		}
		return
	default:
		e.stopWriting()
		return
	}

	if e.state == StateWritingGap {
		if e.demodState.WriteGapSkip < fdsconst.WriteGapSkipBits {
			e.demodState.WriteGapSkip++
		} else if pulse >= fdsconst.Threshold1 {
			e.demodState.WriteCarrier = 0
			e.demodState.CurrentBit = 0
			e.state = StateWriting
		}
		return
	}

	bucket := demodulate.Bucket(pulse)
	bits, newCarrier, valid := demodulate.Decode(e.demodState.WriteCarrier, bucket)
	if !valid {
		return
	}
	e.demodState.WriteCarrier = newCarrier
	for _, b := range bits {
		if demodulate.WriteBit(e.side, &e.demodState, b) {
			e.onBlockWriteComplete()
			return
		}
	}
}

// onBlockWriteComplete runs when a write crosses CurrentBlockEnd,
// mirroring the tail of fds_write_bit.
func (e *Engine) onBlockWriteComplete() {
	if e.pins.ScanMediaLow() {
		// Still spinning.
		e.state = StateWritingStopping
		if e.pins.WriteHigh() {
			e.stopWriting()
			e.startReading()
		} else {
			e.demodState.WriteGapSkip = 0
			e.state = StateWritingStopping
		}
		return
	}
	e.stop()
}

// resetWriting locates (or appends) the block at the current head
// position, updates UsedSpace, trims any disaligned tail, and writes the
// new block's leading gap. Mirrors fdsemu.c's fds_reset_writing. Caller
// must hold e.mu.
func (e *Engine) resetWriting() error {
	side := e.side
	currentBlock := 0

	for i := 0; ; i++ {
		if i >= side.BlockCount() {
			offset := 0
			if i > 0 {
				size, err := side.BlockSize(i-1, true, true)
				if err != nil {
					return err
				}
				offset = side.BlockOffsets[i-1] + size
			}
			side.BlockOffsets = append(side.BlockOffsets, offset)
			currentBlock = i
			break
		}
		size, err := side.BlockSize(i, true, true)
		if err != nil {
			return err
		}
		if e.demodState.CurrentByte < side.BlockOffsets[i]+size {
			currentBlock = i
			break
		}
	}

	last := side.BlockCount() - 1
	lastSize, err := side.BlockSize(last, true, true)
	if err != nil {
		return err
	}
	side.UsedSpace = side.BlockOffsets[last] + lastSize
	if side.UsedSpace > fdsconst.MaxSideSize {
		side.BlockOffsets = side.BlockOffsets[:last]
		e.stop()
		return fmt.Errorf("drive: used space %d exceeds max side size", side.UsedSpace)
	}

	e.demodState.CurrentByte = side.BlockOffsets[currentBlock]
	gap := fdsconst.NextGapBytes
	if currentBlock == 0 {
		gap = fdsconst.FirstGapBytes
	}
	bodyAndCRC, err := side.BlockSize(currentBlock, false, true)
	if err != nil {
		return err
	}
	blockEnd := (e.demodState.CurrentByte + gap + bodyAndCRC) % fdsconst.MaxSideSize
	if blockEnd < e.demodState.CurrentByte {
		// Safety abort: a wraparound here means the located block would
		// straddle the end of the side, which never happens for a
		// correctly indexed image. fdsemu.c just deasserts READY and
		// returns; we surface it as an error instead of silently
		// continuing in a corrupted state.
		e.pins.SetReadyLow(false)
		return fmt.Errorf("drive: computed block end %d precedes current byte %d", blockEnd, e.demodState.CurrentByte)
	}
	e.demodState.CurrentBlockEnd = blockEnd

	if currentBlock+1 < side.BlockCount() && blockEnd != side.BlockOffsets[currentBlock+1] {
		// The next indexed block no longer starts where this write ends:
		// it was overwritten or left disaligned. Trim the index and erase
		// the stale tail, mirroring fds_reset_writing's memset.
		trimFrom := side.BlockOffsets[currentBlock+1]
		side.BlockOffsets = side.BlockOffsets[:currentBlock+1]
		for i := trimFrom; i < fdsconst.MaxSideSize; i++ {
			side.Raw[i] = 0
		}
	}

	offset, err := side.WriteGap(e.demodState.CurrentByte, currentBlock)
	if err != nil {
		return err
	}
	e.demodState.CurrentByte = offset
	e.demodState.WriteGapSkip = 0
	side.Changed = true
	e.lastActionTime = time.Now()
	return nil
}
