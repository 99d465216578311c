package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/quickkly/tidyhttp/cmd/proxy"
	"github.com/quickkly/tidyhttp/internal/config"
	"github.com/quickkly/tidyhttp/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Global flags - moved to top for clarity
var (
	cfgFile  string
	verbose  bool
	dryRun   bool
	quiet    bool
	logLevel string
	logJSON  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tidyhttp",
	Short: "Remove stray blank lines from HTTP messages",
	Long: `tidyhttp normalizes blank lines in raw HTTP messages without touching binary payloads.

The tool provides:
- Cleaning saved requests and responses on disk or from stdin
- Inspecting how a message body is classified
- An intercepting reverse proxy that cleans bodies in flight
- Per-tool enablement and host scope settings
- Configuration management`,
	PersistentPreRunE: setupRootCommand,
	SilenceUsage:      true, // Don't show usage on errors
	SilenceErrors:     true, // Don't show errors twice
}

// setupRootCommand initializes the root command and loads configuration
func setupRootCommand(cmd *cobra.Command, _ []string) error {
	// Pick up TIDYHTTP_* overrides from a local .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	// Load configuration
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// Store configuration in command context
	config.SetInContext(cmd, cfg)

	// Set up logging based on flags
	setupLogging(cmd)

	return nil
}

// setupLogging configures the default logger from the global flags
func setupLogging(cmd *cobra.Command) {
	level := logLevel
	switch {
	case verbose:
		level = string(logger.DebugLevel)
	case quiet:
		level = string(logger.ErrorLevel)
	}
	logger.SetupLogger(level, logJSON, false)
	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), logger.GetDefault()))
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	setupGlobalFlags()
	setupSubcommands()
}

// setupGlobalFlags configures all global flags
func setupGlobalFlags() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .tidyhttp/config.yaml or ~/.config/tidyhttp/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "show what would happen without executing")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", string(logger.InfoLevel), "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
}

// setupSubcommands adds all subcommands to the root command
func setupSubcommands() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(proxy.Cmd)
}

// =============================================================================
// GLOBAL FLAG ACCESSORS
// =============================================================================

// IsVerbose returns whether verbose mode is enabled
func IsVerbose() bool {
	return verbose
}

// IsDryRun returns whether dry-run mode is enabled
func IsDryRun() bool {
	return dryRun
}

// IsQuiet returns whether quiet mode is enabled
func IsQuiet() bool {
	return quiet
}
