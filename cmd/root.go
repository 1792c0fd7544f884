package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kebairia/habackup/internal/logger"
)

var (
	// DataDir is where the add-on keeps its persisted state.
	DataDir string
	// Debug enables debug-level logging.
	Debug bool

	rootCmd = &cobra.Command{
		Use:   "habackup",
		Short: "Backup assistant for Home Assistant",
		Long: `habackup talks to the Home Assistant supervisor to list, create,
validate, restore and delete backups, and flags version incompatibilities
and known breaking changes before a restore is attempted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().
		StringVar(&DataDir, "data-dir", "/data", "directory for persisted state")
	rootCmd.PersistentFlags().
		BoolVar(&Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(changesCmd)
}
