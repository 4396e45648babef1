package main

import (
	"github.com/PadsterH2012/extractor/internal/api"
	"github.com/PadsterH2012/extractor/internal/server/endpoints"
)

var serverURL string

// getServerURL returns the server URL at runtime, after flag parsing.
func getServerURL() string {
	return serverURL
}

func init() {
	registry := api.NewRegistry()
	for _, ep := range endpoints.All() {
		registry.Register(ep)
	}
	apiCmd := registry.BuildCommands(getServerURL)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8087", "Server URL",
	)
	rootCmd.AddCommand(apiCmd)
}
