package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kebairia/habackup/internal/server"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the backup assistant HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		if !a.api.Ping(cmd.Context()) {
			a.log.Warn("supervisor API unreachable, backup operations will fail until it recovers")
		}

		handlers := server.NewHandlers(a.mgr, a.settings, a.api, a.log)
		router := server.NewRouter(handlers)

		a.log.Info("starting HTTP API", "addr", listenAddr)
		if err := router.Run(listenAddr); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().
		StringVarP(&listenAddr, "listen", "l", ":8099", "address to listen on")
}
