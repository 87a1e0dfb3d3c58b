package drive

import (
	"time"

	"github.com/sergev/fdsdrive/fdsconst"
	"github.com/sergev/fdsdrive/settings"
)

// CheckPins re-evaluates /SCAN_MEDIA and /WRITE against the current
// state and drives every transition that depends on them: motor
// stop/start, read/write pump start/stop, the not-ready pause before a
// fresh read, and the autosave schedule. Call it on every pin edge and,
// per fdsemu.c's comment, at least every ~100ms so the not-ready timer
// and autosave idle check keep advancing even without an edge. Mirrors
// fds_check_pins.
func (e *Engine) CheckPins() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkPinsLocked()
}

// checkPinsLocked is CheckPins' body, callable by methods that already
// hold e.mu (such as Save, which must re-evaluate the autosave/idle
// transition right after clearing the changed flag).
func (e *Engine) checkPinsLocked() {
	if !e.pins.ScanMediaLow() {
		// Motor off (SCAN_MEDIA deasserted).
		switch e.state {
		case StateOff, StateWriting:
			// Writing waits for WritingStopping once the in-flight DMA
			// buffer has drained; nothing to do yet.
		case StateIdle:
			if e.side != nil && e.side.Changed &&
				e.lastActionTime.Add(e.settings.AutosaveDelay).Before(time.Now()) {
				e.state = StateSavePending
			}
		case StateSavePending:
			if e.side == nil || !e.side.Changed {
				e.state = StateIdle
			}
		default:
			e.stop()
			if e.settings.RewindSpeed == settings.RewindTurbo {
				e.resetReading()
			}
		}
		return
	}

	// Motor on (SCAN_MEDIA asserted).
	if e.state == StateSavePending && (e.side == nil || !e.side.Changed) {
		e.state = StateIdle
	}

	if e.pins.WriteHigh() {
		switch e.state {
		case StateIdle:
			if e.settings.RewindSpeed == settings.RewindTurbo || e.modState.CurrentByte == 0 {
				e.notReadyTime = time.Now()
				e.state = StateReadWaitReadyTimer
				e.resetReading()
			} else {
				e.startReading()
				e.state = StateReadWaitReady
			}
		case StateReadWaitReadyTimer:
			delay := fdsconst.NotReadyTime
			if e.settings.RewindSpeed == settings.RewindOriginal {
				delay = fdsconst.NotReadyTimeOriginal
			}
			if e.notReadyTime.Add(delay).Before(time.Now()) {
				e.pins.SetReadyLow(true)
				e.startReading()
			}
		case StateWritingStopping:
			e.stopWriting()
			e.startReading()
		default:
			// every other state ignores /WRITE going high
		}
	} else {
		switch e.state {
		case StateIdle, StateReading, StateReadWaitReady, StateReadWaitReadyTimer:
			e.stopReading()
			if err := e.startWriting(); err != nil {
				e.stop()
			}
		default:
			// every other state ignores /WRITE going low
		}
	}

	e.lastActionTime = time.Now()
}
