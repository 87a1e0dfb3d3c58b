// Command fdsdrive drives the FDS emulation core from the command line:
// loading and saving .fds images against an in-memory drive engine, and
// a "bench" mode that polls CheckPins against a pin fixture attached over
// a serial link, with simulated PWM/capture buffers.
package main

func main() {
	Execute()
}
