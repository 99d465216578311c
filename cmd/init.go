package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// =============================================================================
// INIT COMMAND DEFINITION
// =============================================================================

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize tidyhttp in a directory",
	Long: `Initialize tidyhttp in the current directory or specified directory.

This command will:
- Create .tidyhttp directory in the target location
- Create default config.yaml file with sensible defaults
- Create .tidyhttpignore file listing files 'tidyhttp clean' should skip

The configuration will be created with default values suitable for most users.
You can customize it later using 'tidyhttp config set' commands.

Examples:
  tidyhttp init                    # Initialize in current directory
  tidyhttp init /path/to/project   # Initialize in specified directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetDir := "."
		if len(args) > 0 {
			targetDir = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		return runInit(cmd, appFs, targetDir, force)
	},
}

func init() {
	initCmd.Flags().BoolP("force", "f", false, "Force initialization even if .tidyhttp directory already exists")
}

func runInit(cmd *cobra.Command, fsys afero.Fs, targetDir string, force bool) error {
	out := cmd.OutOrStdout()
	if !IsQuiet() {
		fmt.Fprintf(out, "🚀 Initializing tidyhttp in: %s\n", targetDir)
	}

	// Step 1: Validate and prepare target directory
	if err := validateTargetDirectory(fsys, targetDir); err != nil {
		return err
	}

	// Step 2: Ensure .tidyhttp directory exists
	if err := ensureLocalConfigDirectory(cmd, fsys, targetDir, force); err != nil {
		return err
	}

	// Step 3: Create default config file
	if err := createLocalConfigFile(cmd, fsys, targetDir, force); err != nil {
		return err
	}

	// Step 4: Create .tidyhttpignore file
	if err := createIgnoreFile(cmd, fsys, targetDir, force); err != nil {
		return err
	}

	displayLocalInitSuccess(cmd, targetDir)
	return nil
}

// validateTargetDirectory validates the target directory
func validateTargetDirectory(fsys afero.Fs, targetDir string) error {
	ok, err := afero.DirExists(fsys, targetDir)
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !ok {
		return fmt.Errorf("directory does not exist: %s", targetDir)
	}
	return nil
}

// ensureLocalConfigDirectory creates the .tidyhttp directory
func ensureLocalConfigDirectory(cmd *cobra.Command, fsys afero.Fs, targetDir string, force bool) error {
	localDir := filepath.Join(targetDir, ".tidyhttp")

	if ok, _ := afero.DirExists(fsys, localDir); ok {
		if !force {
			return fmt.Errorf(".tidyhttp directory already exists in %s. Use --force to overwrite", targetDir)
		}
		if IsVerbose() {
			fmt.Fprintf(cmd.OutOrStdout(), "⚠️  .tidyhttp directory exists, overwriting due to --force flag\n")
		}
	}

	if err := fsys.MkdirAll(localDir, 0755); err != nil {
		return fmt.Errorf("failed to create .tidyhttp directory: %w", err)
	}

	if IsVerbose() {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ .tidyhttp directory created: %s\n", localDir)
	}

	return nil
}

// createLocalConfigFile creates the local configuration file
func createLocalConfigFile(cmd *cobra.Command, fsys afero.Fs, targetDir string, force bool) error {
	configPath := filepath.Join(targetDir, ".tidyhttp", "config.yaml")

	if ok, _ := afero.Exists(fsys, configPath); ok && !force {
		if !IsQuiet() {
			fmt.Fprintf(cmd.OutOrStdout(), "ℹ️  Config file already exists at %s\n", configPath)
		}
		return nil
	}

	if err := afero.WriteFile(fsys, configPath, []byte(defaultLocalConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if IsVerbose() {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Config file created: %s\n", configPath)
	}

	return nil
}

// createIgnoreFile creates a .tidyhttpignore file
func createIgnoreFile(cmd *cobra.Command, fsys afero.Fs, targetDir string, force bool) error {
	ignorePath := filepath.Join(targetDir, ignoreFileName)

	if ok, _ := afero.Exists(fsys, ignorePath); ok && !force {
		if IsVerbose() {
			fmt.Fprintf(cmd.OutOrStdout(), "ℹ️  %s already exists, skipping\n", ignoreFileName)
		}
		return nil
	}

	if err := afero.WriteFile(fsys, ignorePath, []byte(defaultIgnore), 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", ignoreFileName, err)
	}

	if IsVerbose() {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s created: %s\n", ignoreFileName, ignorePath)
	}

	return nil
}

// displayLocalInitSuccess shows the success message and next steps
func displayLocalInitSuccess(cmd *cobra.Command, targetDir string) {
	if IsQuiet() {
		return
	}

	out := cmd.OutOrStdout()
	configPath := filepath.Join(targetDir, ".tidyhttp", "config.yaml")

	fmt.Fprintf(out, "\n✅ tidyhttp initialized successfully in: %s\n", targetDir)
	fmt.Fprintf(out, "⚙️  Config file: %s\n", configPath)
	fmt.Fprintf(out, "🚫 Ignore file: %s\n", filepath.Join(targetDir, ignoreFileName))

	fmt.Fprintf(out, "\n🎯 Next steps:\n")
	fmt.Fprintf(out, "1. Clean saved messages:\n")
	fmt.Fprintf(out, "   tidyhttp clean --in-place captures/*.http\n")
	fmt.Fprintf(out, "\n2. Run the proxy in front of a service:\n")
	fmt.Fprintf(out, "   tidyhttp config set proxy.upstream \"http://127.0.0.1:3000\"\n")
	fmt.Fprintf(out, "   tidyhttp proxy serve\n")
	fmt.Fprintf(out, "\n3. View your configuration:\n")
	fmt.Fprintf(out, "   tidyhttp config show\n")
}

const defaultLocalConfig = `# tidyhttp configuration
# This is a local configuration file for this project

# Tool categories whose traffic is cleaned:
# proxy, repeater, intruder, scanner, extensions, cli
modules:
  enabled: [proxy, repeater, intruder, extensions, cli]

# Restrict processing to matching hosts (glob patterns, e.g. "*.example.com")
scope:
  restricted: false
  hosts: []

processing:
  # Raw messages shorter than this are never rewritten
  min_message_size: 10
  # Proxy bodies larger than this are streamed through untouched
  max_body_bytes: 10485760
  # Decode gzip/br response bodies before cleaning
  decode_content: false

proxy:
  listen: "127.0.0.1:8080"
  # Leave empty to act as a forward proxy
  upstream: ""
  timeout: "30s"
  metrics_path: "/__tidyhttp/metrics"
`

const defaultIgnore = `# tidyhttp ignore file
# Glob patterns (doublestar syntax) skipped by 'tidyhttp clean'

# Binary captures
**/*.bin
**/*.pcap

# Backup files
**/*.bak
**/*~

# VCS and tool state
.git/**
.tidyhttp/**
`
