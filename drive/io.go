package drive

import (
	"time"

	"github.com/sergev/fdsdrive/settings"
	"github.com/sergev/fdsdrive/storage"
)

// Load closes any previously loaded side, then loads filename/side into
// the engine, ready but not yet spinning. Mirrors the GPIO bookkeeping at
// the top of fds_load_side: READY deasserted, MEDIA_SET asserted
// (media present), WRITABLE_MEDIA reflecting readonly.
func (e *Engine) Load(filename string, side int, readonly bool) error {
	e.mu.Lock()
	policy := e.settings.BackupPolicy
	if e.side != nil {
		if err := storage.Close(e.side, false, policy); err != nil {
			e.mu.Unlock()
			return err
		}
	}
	e.resetReading()
	e.pins.SetReadyLow(false)
	e.pins.SetMediaSetLow(true)
	e.pins.SetWritableMediaLow(!readonly)
	e.notReadyTime = time.Now()
	e.mu.Unlock()

	side2, err := storage.LoadSide(filename, side, readonly, policy)
	if err != nil {
		e.mu.Lock()
		e.side = nil
		e.mu.Unlock()
		return err
	}

	e.mu.Lock()
	e.side = side2
	if e.pins.ScanMediaLow() && e.settings.RewindSpeed == settings.RewindTurbo {
		e.state = StateReadWaitReadyTimer
	} else {
		e.state = StateIdle
	}
	e.mu.Unlock()

	e.CheckPins()
	return nil
}

// Save persists any unsaved changes on the loaded side, returning nil
// immediately if there is nothing to save.
func (e *Engine) Save() error {
	e.mu.Lock()
	side := e.side
	policy := e.settings.BackupPolicy
	e.mu.Unlock()

	if side == nil {
		return nil
	}
	if err := storage.Save(side, policy); err != nil {
		return err
	}

	e.mu.Lock()
	e.checkPinsLocked()
	e.mu.Unlock()
	return nil
}

// Eject removes the media (deasserting MEDIA_SET/WRITABLE_MEDIA, i.e. high,
// optionally saving first) and stops the drive. Mirrors fds_close.
func (e *Engine) Eject(save bool) error {
	e.mu.Lock()
	side := e.side
	policy := e.settings.BackupPolicy
	e.mu.Unlock()

	if side == nil {
		return nil
	}

	e.pins.SetMediaSetLow(false)
	e.pins.SetWritableMediaLow(false)

	err := storage.Close(side, save, policy)

	e.mu.Lock()
	e.stop()
	e.state = StateOff
	e.side = nil
	e.mu.Unlock()

	return err
}
