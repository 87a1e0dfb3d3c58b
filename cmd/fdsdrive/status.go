package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the drive engine's current state",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("State: %s\n", engine.State())
		fmt.Printf("Block: %d / %d\n", engine.GetBlock(), engine.GetBlockCount())
		fmt.Printf("Head position: %d / %d bytes\n", engine.GetHeadPosition(), engine.GetMaxSize())
		fmt.Printf("Used space: %d bytes\n", engine.GetUsedSpace())
		fmt.Printf("Changed: %v\n", engine.IsChanged())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
