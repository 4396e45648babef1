package main

import (
	"github.com/spf13/cobra"

	"github.com/PadsterH2012/extractor/internal/api"
	"github.com/PadsterH2012/extractor/internal/server/endpoints"
)

var statusServerURL string

var statusCmd = &cobra.Command{
	Use:          "status",
	Short:        "Print server health and recent sessions",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.NewClient(statusServerURL)
		var resp endpoints.StatusResponse
		if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
			return err
		}
		return api.Output(resp)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusServerURL, "server", "http://localhost:8087", "Server URL")
	rootCmd.AddCommand(statusCmd)
}
