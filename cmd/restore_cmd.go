package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kebairia/habackup/internal/manager"
)

var (
	restorePassword string
	restoreAddons   []string
	restoreFolders  []string
)

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-id>",
	Short: "Restore a backup, validating it first",
	Long: `Restore a full backup, or a partial one covering the core plus the
add-ons and folders given by --addons and --folders.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		partial := len(restoreAddons) > 0 || len(restoreFolders) > 0
		var result *manager.RestoreResult
		if partial {
			result, err = a.mgr.RestorePartialBackup(cmd.Context(), args[0], restoreAddons, restoreFolders, restorePassword)
		} else {
			result, err = a.mgr.RestoreBackup(cmd.Context(), args[0], restorePassword)
		}
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		if v := result.Validation; v != nil {
			fmt.Printf("Validation: status=%s risk=%s\n", v.Status, v.RiskLevel)
			if v.Status == manager.StatusIncompatible {
				fmt.Println(v.Recommendation)
			}
		}
		return nil
	},
}

func init() {
	restoreCmd.Flags().
		StringVarP(&restorePassword, "password", "p", "", "password if the backup is encrypted")
	restoreCmd.Flags().
		StringSliceVar(&restoreAddons, "addons", nil, "add-on slugs to restore (partial restore)")
	restoreCmd.Flags().
		StringSliceVar(&restoreFolders, "folders", nil, "folders to restore (partial restore)")
}
