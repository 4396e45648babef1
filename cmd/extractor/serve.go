package main

import (
	"github.com/spf13/cobra"

	"github.com/PadsterH2012/extractor/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the extraction session API server",
	Long: `Start the extractor HTTP server.

The server hosts upload/extract sessions with live progress streaming and
connects to the vector and document stores named in the configuration. A
store that is unreachable at startup degrades that side of persistence
instead of preventing the server from coming up.

Examples:
  extractor serve                  # Listen on the configured address
  extractor serve --addr :9000     # Listen on a custom address`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		logger := newLogger(cfg)

		srv, err := server.New(mgr, logger)
		if err != nil {
			return err
		}
		return srv.Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
