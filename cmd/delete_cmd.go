package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <backup-id>",
	Short: "Delete a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.mgr.DeleteBackup(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Backup %s deleted\n", args[0])
		return nil
	},
}
