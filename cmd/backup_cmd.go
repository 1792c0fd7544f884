package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kebairia/habackup/internal/manager"
)

var (
	backupPassword string
	backupAddons   []string
	backupFolders  []string
)

var backupCmd = &cobra.Command{
	Use:   "backup <name>",
	Short: "Create a new backup",
	Long: `Create a full backup, or a partial one when --addons or --folders
limit the scope.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		partial := len(backupAddons) > 0 || len(backupFolders) > 0
		var result *manager.CreateResult
		if partial {
			result, err = a.mgr.CreatePartialBackup(cmd.Context(), args[0], backupAddons, backupFolders, backupPassword)
		} else {
			result, err = a.mgr.CreateBackup(cmd.Context(), args[0], backupPassword)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Backup created: %s\n", result.BackupID)
		return nil
	},
}

func init() {
	backupCmd.Flags().
		StringVarP(&backupPassword, "password", "p", "", "encrypt the backup with a password")
	backupCmd.Flags().
		StringSliceVar(&backupAddons, "addons", nil, "add-on slugs to include (partial backup)")
	backupCmd.Flags().
		StringSliceVar(&backupFolders, "folders", nil, "folders to include (partial backup)")
}
