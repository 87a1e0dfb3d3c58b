package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	loadSide     int
	loadReadonly bool
)

var loadCmd = &cobra.Command{
	Use:   "load <file.fds>",
	Short: "Load a .fds image into the drive engine",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := engine.Load(args[0], loadSide, loadReadonly); err != nil {
			cobra.CheckErr(fmt.Errorf("failed to load %s: %w", args[0], err))
		}
		fmt.Printf("Loaded %s (side %d), %d blocks, %d/%d bytes used\n",
			args[0], loadSide, engine.GetBlockCount(), engine.GetUsedSpace(), engine.GetMaxSize())
	},
}

func init() {
	loadCmd.Flags().IntVar(&loadSide, "side", 0, "disk side to load")
	loadCmd.Flags().BoolVar(&loadReadonly, "readonly", false, "load the side read-only")
	rootCmd.AddCommand(loadCmd)
}
