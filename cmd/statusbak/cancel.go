package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"statusbak/pkg/state"
)

// cancelCmd represents the cancel command
var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Abandon the in-flight backup run",
	Long: `Clear the persisted backup cursor. A run that is currently paced
between pages notices the missing cursor when it wakes and stops
before touching another page. Cancelling when no run is in flight
does nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := state.NewFileStore()
		if err != nil {
			return err
		}
		if err := state.NewMachine(store, nil).Cancel(); err != nil {
			return err
		}
		fmt.Println("backup run cancelled")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}
