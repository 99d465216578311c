package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Modules    ModulesConfig    `mapstructure:"modules" yaml:"modules"`
	Scope      ScopeConfig      `mapstructure:"scope" yaml:"scope"`
	Processing ProcessingConfig `mapstructure:"processing" yaml:"processing"`
	Proxy      ProxyConfig      `mapstructure:"proxy" yaml:"proxy"`
}

// ModulesConfig selects the tool categories whose traffic is cleaned
type ModulesConfig struct {
	Enabled []string `mapstructure:"enabled" yaml:"enabled"`
}

// ScopeConfig restricts processing to in-scope hosts
type ScopeConfig struct {
	Restricted bool     `mapstructure:"restricted" yaml:"restricted"`
	Hosts      []string `mapstructure:"hosts" yaml:"hosts"` // glob patterns, e.g. *.example.com
}

// ProcessingConfig holds limits applied before a message reaches the processor
type ProcessingConfig struct {
	MinMessageSize int   `mapstructure:"min_message_size" yaml:"min_message_size"`
	MaxBodyBytes   int64 `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	DecodeContent  bool  `mapstructure:"decode_content" yaml:"decode_content"` // gzip/br bodies
}

// ProxyConfig represents the intercepting proxy configuration
type ProxyConfig struct {
	Listen      string        `mapstructure:"listen" yaml:"listen"`
	Upstream    string        `mapstructure:"upstream" yaml:"upstream"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MetricsPath string        `mapstructure:"metrics_path" yaml:"metrics_path"`
}

// DefaultTools are the tool categories enabled out of the box
var DefaultTools = []Tool{ToolProxy, ToolRepeater, ToolIntruder, ToolExtensions, ToolCLI}

// Load initializes and loads the configuration
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	SetDefaults(v)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		AddSearchPaths(v)
	}

	// Environment variable support
	v.SetEnvPrefix("TIDYHTTP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	tools := make([]string, 0, len(DefaultTools))
	for _, tool := range DefaultTools {
		tools = append(tools, string(tool))
	}
	v.SetDefault("modules.enabled", tools)

	v.SetDefault("scope.restricted", false)
	v.SetDefault("scope.hosts", []string{})

	v.SetDefault("processing.min_message_size", 10)
	v.SetDefault("processing.max_body_bytes", 10<<20)
	v.SetDefault("processing.decode_content", false)

	v.SetDefault("proxy.listen", "127.0.0.1:8080")
	v.SetDefault("proxy.upstream", "")
	v.SetDefault("proxy.timeout", "30s")
	v.SetDefault("proxy.metrics_path", "/__tidyhttp/metrics")
}

// AddSearchPaths registers the local-first config search paths
func AddSearchPaths(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Local config paths (like Git's local config)
	v.AddConfigPath(".tidyhttp")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Global config path
	if configDir, err := getConfigDir(); err == nil {
		v.AddConfigPath(configDir)
	}
}

// Validate performs basic validation of a loaded configuration
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	for _, name := range cfg.Modules.Enabled {
		if _, err := ParseTool(name); err != nil {
			return fmt.Errorf("modules.enabled: %w", err)
		}
	}

	if cfg.Processing.MinMessageSize < 0 {
		return fmt.Errorf("processing.min_message_size must not be negative")
	}
	if cfg.Processing.MaxBodyBytes <= 0 {
		return fmt.Errorf("processing.max_body_bytes must be positive")
	}
	if cfg.Proxy.Timeout <= 0 {
		return fmt.Errorf("proxy.timeout must be positive")
	}

	return nil
}

// getConfigDir returns the global configuration directory path
func getConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "tidyhttp"), nil
}

// GetConfigFilePath returns the default global config file path
func GetConfigFilePath() (string, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// configContextKey is the key used to store config in context
type configContextKey struct{}

// GetFromContext retrieves the configuration from the command context
func GetFromContext(cmd *cobra.Command) (*Config, error) {
	if cmd == nil || cmd.Context() == nil {
		return nil, fmt.Errorf("command or context is nil")
	}

	cfg, ok := cmd.Context().Value(configContextKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not found in context")
	}

	return cfg, nil
}

// SetInContext stores the configuration in the command context
func SetInContext(cmd *cobra.Command, cfg *Config) {
	if cmd == nil {
		return
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, configContextKey{}, cfg))
}
