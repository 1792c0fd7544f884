package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Manage the breaking change database",
}

var changesUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh the breaking change database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		added, err := a.mgr.UpdateBreakingChanges()
		if err != nil {
			return err
		}
		if added {
			fmt.Printf("Database updated, %d records total\n", a.store.Len())
		} else {
			fmt.Println("No new breaking changes found")
		}
		return nil
	},
}

func init() {
	changesCmd.AddCommand(changesUpdateCmd)
}
