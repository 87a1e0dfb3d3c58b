package drive

// Run starts the read and write pump goroutines and blocks until Shutdown
// closes the engine's stop channel. Intended to be launched with `go
// engine.Run()` from cmd/fdsdrive once a side is loaded.
func (e *Engine) Run() {
	e.mu.Lock()
	if e.stopPumps == nil {
		e.stopPumps = make(chan struct{})
	}
	stop := e.stopPumps
	e.mu.Unlock()

	done := make(chan struct{}, 2)
	go func() { e.RunReadPump(stop); done <- struct{}{} }()
	go func() { e.RunWritePump(stop); done <- struct{}{} }()
	<-done
	<-done
}

// Shutdown signals the pump goroutines started by Run to exit and brings
// the drive to a full stop.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.stopPumps != nil {
		close(e.stopPumps)
		e.stopPumps = nil
	}
	e.stop()
	e.mu.Unlock()
}
