package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sergev/fdsdrive/drive"
	"github.com/sergev/fdsdrive/hal"
)

var benchPort string

var benchCmd = &cobra.Command{
	Use:   "bench <file.fds>",
	Short: "Drive the engine against real bench electronics over a serial link",
	Long:  "bench loads the given image and polls a serial-attached pin fixture every 100ms, feeding its readings into CheckPins the way a real drive's pin-change interrupt would.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if benchPort == "" {
			cobra.CheckErr(fmt.Errorf("--port is required"))
		}
		bridge, err := hal.OpenSerialBridge(benchPort)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("failed to open bench fixture: %w", err))
		}
		defer bridge.Close()

		// Replace the SimPins engine PersistentPreRun set up with one
		// wired to the real bench fixture, with fresh simulated ping-pong
		// buffers of the same size and the same settings.
		engine = drive.NewEngine(bridge, hal.NewSimPWMBuffer(512), hal.NewSimCaptureBuffer(512), engine.Settings())

		if err := engine.Load(args[0], 0, false); err != nil {
			cobra.CheckErr(fmt.Errorf("failed to load %s: %w", args[0], err))
		}

		go engine.Run()
		defer engine.Shutdown()

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			engine.CheckPins()
			fmt.Printf("\r%s  block=%d  head=%d/%d  changed=%v   ",
				engine.State(), engine.GetBlock(), engine.GetHeadPosition(), engine.GetMaxSize(), engine.IsChanged())
		}
	},
}

func init() {
	benchCmd.Flags().StringVar(&benchPort, "port", "", "serial port of the bench pin fixture")
	rootCmd.AddCommand(benchCmd)
}
