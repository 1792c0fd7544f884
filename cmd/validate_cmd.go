package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <backup-id>",
	Short: "Validate a backup against the running system",
	Long: `validate downloads the backup, reads its manifest, compares the
platform version against the running system and matches known breaking
changes against the backup's integrations. The full report is printed as
JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		report := a.mgr.ValidateBackup(cmd.Context(), args[0])

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return nil
	},
}
