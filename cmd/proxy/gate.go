package proxy

import (
	"fmt"

	"github.com/quickkly/tidyhttp/internal/config"

	"github.com/spf13/cobra"
)

// GateCmd represents the proxy gate command
var GateCmd = &cobra.Command{
	Use:   "gate <tool> <url>",
	Short: "Check whether traffic would be processed",
	Long: `Evaluate the configured settings for a tool and URL.

Traffic is processed when the tool is enabled and either the scope is not
restricted or the URL's host matches one of scope.hosts.`,
	Args: cobra.ExactArgs(2),
	Example: `  tidyhttp proxy gate repeater https://api.example.com/users
  tidyhttp proxy gate scanner http://localhost:3000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGate(cmd, args[0], args[1])
	},
}

func runGate(cmd *cobra.Command, toolName, rawURL string) error {
	cfg, err := config.GetFromContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to get configuration: %w", err)
	}

	tool, err := config.ParseTool(toolName)
	if err != nil {
		return err
	}

	settings := config.NewSettings(cfg)
	out := cmd.OutOrStdout()

	enabled := settings.IsEnabled(tool)
	inScope := settings.InScope(rawURL)

	switch {
	case enabled && inScope:
		fmt.Fprintf(out, "✅ %s traffic to %s is processed\n", tool, rawURL)
	case !enabled:
		fmt.Fprintf(out, "❌ %s is disabled\n", tool)
	default:
		fmt.Fprintf(out, "❌ %s is out of scope\n", rawURL)
	}
	fmt.Fprintln(out, settings.Description())
	return nil
}
