package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Should apply defaults when the file is empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"proxy", "repeater", "intruder", "extensions", "cli"}, cfg.Modules.Enabled)
		assert.False(t, cfg.Scope.Restricted)
		assert.Equal(t, 10, cfg.Processing.MinMessageSize)
		assert.Equal(t, int64(10<<20), cfg.Processing.MaxBodyBytes)
		assert.Equal(t, 30*time.Second, cfg.Proxy.Timeout)
		require.NoError(t, Validate(cfg))
	})

	t.Run("Should read values from the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `modules:
  enabled: [repeater]
scope:
  restricted: true
  hosts: ["*.example.com"]
proxy:
  upstream: "http://localhost:9000"
  timeout: 5s
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"repeater"}, cfg.Modules.Enabled)
		assert.True(t, cfg.Scope.Restricted)
		assert.Equal(t, []string{"*.example.com"}, cfg.Scope.Hosts)
		assert.Equal(t, "http://localhost:9000", cfg.Proxy.Upstream)
		assert.Equal(t, 5*time.Second, cfg.Proxy.Timeout)
	})

	t.Run("Should fail on a malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("modules: [\n"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Modules:    ModulesConfig{Enabled: []string{"proxy"}},
			Processing: ProcessingConfig{MaxBodyBytes: 1},
			Proxy:      ProxyConfig{Timeout: time.Second},
		}
	}

	assert.NoError(t, Validate(valid()))
	assert.Error(t, Validate(nil))

	cfg := valid()
	cfg.Modules.Enabled = []string{"burp"}
	assert.ErrorContains(t, Validate(cfg), "unknown tool")

	cfg = valid()
	cfg.Processing.MaxBodyBytes = 0
	assert.Error(t, Validate(cfg))

	cfg = valid()
	cfg.Proxy.Timeout = 0
	assert.Error(t, Validate(cfg))
}

func TestContext(t *testing.T) {
	cmd := &cobra.Command{}
	_, err := GetFromContext(cmd)
	assert.Error(t, err)

	cfg := &Config{}
	SetInContext(cmd, cfg)
	got, err := GetFromContext(cmd)
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
