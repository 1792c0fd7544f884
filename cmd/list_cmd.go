package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		backups, err := a.mgr.ListBackups(cmd.Context())
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Println("No backups found")
			return nil
		}
		for _, b := range backups {
			fmt.Printf("%-10s %-30s %-26s %-8s %s\n",
				b.ID, b.Name, b.Date, b.Type, b.Size)
		}
		return nil
	},
}
