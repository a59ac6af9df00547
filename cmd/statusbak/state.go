package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"statusbak/pkg/state"
)

// stateCmd represents the state command
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the persisted backup cursor",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := state.NewFileStore()
		if err != nil {
			return err
		}
		st, err := store.Get()
		if err != nil {
			return err
		}
		if st == nil {
			fmt.Println("no backup run in flight")
			return nil
		}

		saved := time.UnixMilli(st.Timestamp)
		fmt.Printf("user:         %s\n", st.UserName)
		fmt.Printf("range:        pages %d..%d\n", st.StartPage, st.EndPage)
		fmt.Printf("current page: %d\n", st.CurrentPage)
		fmt.Printf("processed:    %d/%d (%.0f%%)\n", len(st.Processed), st.TotalPages(), st.Progress()*100)
		fmt.Printf("saved:        %s (%s ago)\n", saved.Format(time.RFC3339), time.Since(saved).Round(time.Second))
		if st.IsExpired(time.Now()) {
			fmt.Println("status:       expired, will be cleared on the next run")
		} else {
			fmt.Printf("status:       %s\n", st.Status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}
