package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sergev/fdsdrive/drive"
	"github.com/sergev/fdsdrive/hal"
	"github.com/sergev/fdsdrive/settings"
)

var engine *drive.Engine

var rootCmd = &cobra.Command{
	Use:   "fdsdrive",
	Short: "Famicom Disk System drive emulation core",
	Long:  "fdsdrive loads, serves and saves .fds disk images through the same read-modulate/write-demodulate state machine a hardware FDS drive emulator runs.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch cmd.Name() {
		case "status", "load", "save", "bench":
			// These commands need a running engine.
		default:
			return
		}

		s, err := settings.Load()
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to load settings: %w", err))
		}

		pins := hal.NewSimPins()
		readBuf := hal.NewSimPWMBuffer(512)
		writeBuf := hal.NewSimCaptureBuffer(512)
		engine = drive.NewEngine(pins, readBuf, writeBuf, s)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
