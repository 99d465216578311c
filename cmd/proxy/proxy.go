package proxy

import (
	"github.com/spf13/cobra"
)

// Cmd represents the proxy command
var Cmd = &cobra.Command{
	Use:   "proxy",
	Short: "Intercepting proxy operations",
	Long: `Commands for running tidyhttp as an intercepting HTTP proxy.

Available operations:
- serve: Run the reverse proxy and clean bodies in flight
- gate: Check whether traffic from a tool to a URL would be processed

Examples:
  tidyhttp proxy serve --upstream http://127.0.0.1:3000
  tidyhttp proxy gate repeater https://api.example.com/users`,
}

func init() {
	Cmd.AddCommand(ServeCmd)
	Cmd.AddCommand(GateCmd)
}
