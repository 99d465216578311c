package cmd

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/quickkly/tidyhttp/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// CONFIGURATION COMMAND DEFINITIONS
// =============================================================================

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Manage tidyhttp configuration settings.

Available subcommands:
- show: Display current configuration and the effective gate
- set: Set a configuration value
- get: Get a configuration value
- validate: Validate configuration syntax and values
- reset: Restore the default tools and scope`,
}

// configShowCmd shows the current configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current configuration in YAML format",
	RunE:  runConfigShow,
}

// configSetCmd sets a configuration value
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Use dot notation for nested keys (e.g., scope.restricted). List values are comma separated.",
	Args:  cobra.ExactArgs(2),
	Example: `  tidyhttp config set modules.enabled "proxy,repeater,cli"
  tidyhttp config set scope.restricted true
  tidyhttp config set scope.hosts "*.example.com,api.internal"
  tidyhttp config set proxy.upstream "http://127.0.0.1:3000"`,
	RunE: runConfigSet,
}

// configGetCmd gets a configuration value
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long:  "Get a configuration value. Use dot notation for nested keys",
	Args:  cobra.ExactArgs(1),
	Example: `  tidyhttp config get modules.enabled
  tidyhttp config get proxy.listen`,
	RunE: runConfigGet,
}

// configValidateCmd validates the configuration
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Validate the configuration file syntax and required values",
	RunE:  runConfigValidate,
}

// configResetCmd restores default settings
var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset tools and scope to defaults",
	Long:  "Enable the default tools and lift any scope restriction in the active config file",
	RunE:  runConfigReset,
}

// validKeys lists every known configuration key
var validKeys = []string{
	"modules.enabled",
	"scope.restricted", "scope.hosts",
	"processing.min_message_size", "processing.max_body_bytes", "processing.decode_content",
	"proxy.listen", "proxy.upstream", "proxy.timeout", "proxy.metrics_path",
}

// listKeys hold comma separated values on the command line
var listKeys = []string{"modules.enabled", "scope.hosts"}

func init() {
	// Add subcommands
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configResetCmd)
}

// =============================================================================
// CONFIGURATION COMMAND IMPLEMENTATIONS
// =============================================================================

// runConfigShow displays the current configuration
func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := config.GetFromContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to get configuration: %w", err)
	}

	// Marshal to YAML for pretty printing
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(data))
	if IsVerbose() {
		fmt.Fprintf(out, "\n%s\n", config.NewSettings(cfg).Description())
	}
	return nil
}

// runConfigSet sets a configuration value
func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Validate the key format
	if err := validateConfigKey(key); err != nil {
		return fmt.Errorf("invalid config key: %w", err)
	}

	// Validate the value for known keys
	if err := validateConfigValue(key, value); err != nil {
		return fmt.Errorf("invalid config value: %w", err)
	}

	// Load and update configuration
	v, err := loadViperConfig()
	if err != nil {
		return err
	}

	if slices.Contains(listKeys, key) {
		v.Set(key, splitList(value))
	} else {
		v.Set(key, value)
	}

	if IsDryRun() {
		fmt.Fprintf(cmd.OutOrStdout(), "Would set %s = %s\n", key, value)
		return nil
	}

	if err := writeViperConfig(v); err != nil {
		return err
	}

	if !IsQuiet() {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s = %s\n", key, value)
	}

	return nil
}

// runConfigGet gets a configuration value
func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	// Validate the key format
	if err := validateConfigKey(key); err != nil {
		return fmt.Errorf("invalid config key: %w", err)
	}

	// Load configuration
	v, err := loadViperConfig()
	if err != nil {
		return err
	}

	value := v.Get(key)
	if value == nil {
		return fmt.Errorf("key '%s' not found", key)
	}

	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

// runConfigValidate validates the configuration
func runConfigValidate(cmd *cobra.Command, _ []string) error {
	// Load configuration
	v, err := loadViperConfig()
	if err != nil {
		return err
	}

	// Parse into config struct to validate
	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("configuration syntax error: %w", err)
	}

	// Validate required fields
	if err := config.Validate(&cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if !IsQuiet() {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	}

	return nil
}

// runConfigReset restores default tools and scope
func runConfigReset(cmd *cobra.Command, _ []string) error {
	v, err := loadViperConfig()
	if err != nil {
		return err
	}

	settings := config.NewSettings(nil)
	tools := make([]string, 0, len(config.DefaultTools))
	for _, tool := range settings.EnabledTools() {
		tools = append(tools, string(tool))
	}
	v.Set("modules.enabled", tools)
	v.Set("scope.restricted", settings.IsScopeRestricted())
	v.Set("scope.hosts", []string{})

	if IsDryRun() {
		fmt.Fprintln(cmd.OutOrStdout(), settings.Description())
		return nil
	}

	if err := writeViperConfig(v); err != nil {
		return err
	}

	if !IsQuiet() {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Settings reset\n%s\n", settings.Description())
	}
	return nil
}

// =============================================================================
// CONFIGURATION UTILITIES
// =============================================================================

// loadViperConfig loads the viper configuration
func loadViperConfig() (*viper.Viper, error) {
	v := viper.New()
	config.SetDefaults(v)

	// Set config file path
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		config.AddSearchPaths(v)
	}

	// Read existing config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file doesn't exist, that's okay for set operations
	}

	return v, nil
}

// writeViperConfig writes back to the file that was read, or creates the
// global config file when none exists yet
func writeViperConfig(v *viper.Viper) error {
	target := v.ConfigFileUsed()
	if target == "" {
		path, err := config.GetConfigFilePath()
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		target = path
	}

	if err := v.WriteConfigAs(target); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// validateConfigKey validates the configuration key format
func validateConfigKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	// Check for valid key format (alphanumeric, dots, underscores)
	for _, char := range key {
		if !isValidConfigKeyChar(char) {
			return fmt.Errorf("key contains invalid character '%c'", char)
		}
	}

	if !slices.Contains(validKeys, key) {
		// Allow unknown keys but warn
		if IsVerbose() {
			fmt.Printf("Warning: Unknown configuration key '%s'\n", key)
		}
	}

	return nil
}

// validateConfigValue validates configuration values for known keys
func validateConfigValue(key, value string) error {
	switch key {
	case "modules.enabled":
		for _, name := range splitList(value) {
			if _, err := config.ParseTool(name); err != nil {
				return err
			}
		}
	case "scope.restricted", "processing.decode_content":
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%s must be true or false", key)
		}
	case "processing.min_message_size":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("min_message_size must be a non-negative integer")
		}
	case "processing.max_body_bytes":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("max_body_bytes must be a positive integer")
		}
	case "proxy.upstream":
		if value == "" {
			return nil
		}
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("upstream must be a valid HTTP/HTTPS URL")
		}
	case "proxy.timeout":
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return fmt.Errorf("timeout must be a positive duration with unit (s, m, h)")
		}
	case "proxy.metrics_path":
		if value != "" && !strings.HasPrefix(value, "/") {
			return fmt.Errorf("metrics_path must start with '/'")
		}
	}

	return nil
}

// splitList splits a comma separated value, dropping empty items
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// isValidConfigKeyChar checks if a character is valid in a config key
func isValidConfigKeyChar(char rune) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == '.' || char == '_' || char == '-'
}
