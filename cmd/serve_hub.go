package cmd

import (
	"github.com/fleetware/hub/pkg/cmd/server"
	"github.com/spf13/cobra"
)

// serveHubCmd represents the serve hub command
var serveHubCmd = &cobra.Command{
	Use:   "hub",
	Short: "Serve endpoint control hub instance",
	Run:   server.RunServeHub(c),
}

func init() {
	serveCmd.AddCommand(serveHubCmd)
}
