// Package drive implements the FDS drive state machine: pin-change
// handling, the read/write pump goroutines, block location for writes,
// and the autosave schedule. It is the orchestrator that ties the
// image, modulate, demodulate and hal packages together, grounded on
// fdsemu.c's fds_check_pins/fds_reset_writing/fds_write_impulse state
// machine.
package drive

// State is the drive's top-level state, matching fdsemu.c's FDS_STATE
// enum.
type State int

const (
	StateOff State = iota
	StateIdle
	StateReading
	StateReadWaitReady
	StateReadWaitReadyTimer
	StateWritingGap
	StateWriting
	StateWritingStopping
	StateSavePending
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateReadWaitReady:
		return "read-wait-ready"
	case StateReadWaitReadyTimer:
		return "read-wait-ready-timer"
	case StateWritingGap:
		return "writing-gap"
	case StateWriting:
		return "writing"
	case StateWritingStopping:
		return "writing-stopping"
	case StateSavePending:
		return "save-pending"
	default:
		return "unknown"
	}
}
