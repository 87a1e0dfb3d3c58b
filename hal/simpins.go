package hal

import "sync"

// SimPins is an in-memory Pins implementation driven directly by tests
// (or by the cmd/fdsdrive "bench" harness in software-only mode), playing
// the role the host console plays on real hardware.
type SimPins struct {
	mu                         sync.Mutex
	scanMediaLow, writeHigh    bool
	readyLow, mediaSetLow      bool
	writableMediaLow           bool
}

// NewSimPins returns pins in the idle, motor-off, read-mode, not-ready
// state a freshly booted drive sees before a disk is loaded.
func NewSimPins() *SimPins {
	return &SimPins{scanMediaLow: false, writeHigh: true}
}

func (p *SimPins) ScanMediaLow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scanMediaLow
}

func (p *SimPins) WriteHigh() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeHigh
}

func (p *SimPins) SetReadyLow(asserted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readyLow = asserted
}

func (p *SimPins) SetMediaSetLow(asserted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mediaSetLow = asserted
}

func (p *SimPins) SetWritableMediaLow(asserted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writableMediaLow = asserted
}

// ReadyLow reports the last value SetReadyLow was called with; used by
// tests to observe the drive's output.
func (p *SimPins) ReadyLow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readyLow
}

// MediaSetLow reports the last value SetMediaSetLow was called with.
func (p *SimPins) MediaSetLow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mediaSetLow
}

// WritableMediaLow reports the last value SetWritableMediaLow was called
// with.
func (p *SimPins) WritableMediaLow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writableMediaLow
}

// DriveScanMedia sets the SCAN_MEDIA input the way a host would, asserting
// it (low) to spin the motor up.
func (p *SimPins) DriveScanMedia(low bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scanMediaLow = low
}

// DriveWrite sets the WRITE input the way a host would: high selects
// read, low selects write.
func (p *SimPins) DriveWrite(high bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeHigh = high
}

// SimPWMBuffer is an in-memory PWMBuffer for tests: Start/Stop just track
// whether output is active, and tests call FireHalf/FireFull to drive the
// read pump's refill logic deterministically.
type SimPWMBuffer struct {
	buf      []byte
	running  bool
	halfCh   chan struct{}
	fullCh   chan struct{}
}

// NewSimPWMBuffer allocates a ping-pong buffer of the given total size
// (must be even).
func NewSimPWMBuffer(size int) *SimPWMBuffer {
	return &SimPWMBuffer{
		buf:    make([]byte, size),
		halfCh: make(chan struct{}, 1),
		fullCh: make(chan struct{}, 1),
	}
}

func (b *SimPWMBuffer) Buffer() []byte              { return b.buf }
func (b *SimPWMBuffer) Start()                      { b.running = true }
func (b *SimPWMBuffer) Stop()                       { b.running = false }
func (b *SimPWMBuffer) Running() bool                { return b.running }
func (b *SimPWMBuffer) HalfComplete() <-chan struct{} { return b.halfCh }
func (b *SimPWMBuffer) Complete() <-chan struct{}     { return b.fullCh }

// FireHalf signals that the first half of the buffer needs refilling.
func (b *SimPWMBuffer) FireHalf() { b.halfCh <- struct{}{} }

// FireFull signals that the second half of the buffer needs refilling.
func (b *SimPWMBuffer) FireFull() { b.fullCh <- struct{}{} }

// SimCaptureBuffer is an in-memory CaptureBuffer for tests: tests populate
// Buffer() with synthetic timer ticks and call FireHalf/FireFull to drive
// the write pump's demodulation logic deterministically.
type SimCaptureBuffer struct {
	buf     []uint16
	running bool
	halfCh  chan struct{}
	fullCh  chan struct{}
}

// NewSimCaptureBuffer allocates a ping-pong buffer of the given total size
// (must be even).
func NewSimCaptureBuffer(size int) *SimCaptureBuffer {
	return &SimCaptureBuffer{
		buf:    make([]uint16, size),
		halfCh: make(chan struct{}, 1),
		fullCh: make(chan struct{}, 1),
	}
}

func (b *SimCaptureBuffer) Buffer() []uint16           { return b.buf }
func (b *SimCaptureBuffer) Start()                      { b.running = true }
func (b *SimCaptureBuffer) Stop()                       { b.running = false }
func (b *SimCaptureBuffer) Running() bool                { return b.running }
func (b *SimCaptureBuffer) HalfComplete() <-chan struct{} { return b.halfCh }
func (b *SimCaptureBuffer) Complete() <-chan struct{}     { return b.fullCh }

// FireHalf signals that the first half of the buffer holds fresh captures.
func (b *SimCaptureBuffer) FireHalf() { b.halfCh <- struct{}{} }

// FireFull signals that the second half of the buffer holds fresh
// captures.
func (b *SimCaptureBuffer) FireFull() { b.fullCh <- struct{}{} }
