package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save any pending changes on the loaded side",
	Run: func(cmd *cobra.Command, args []string) {
		if !engine.IsChanged() {
			fmt.Println("Nothing to save")
			return
		}
		if err := engine.Save(); err != nil {
			cobra.CheckErr(fmt.Errorf("failed to save: %w", err))
		}
		fmt.Println("Saved")
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
}
