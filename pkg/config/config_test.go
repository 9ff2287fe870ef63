package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, []string{"cygwin1.dll", "msys-2.0.dll"}, cfg.Translator.Libraries)
	assert.Equal(t, "cygwin_conv_path", cfg.Translator.EntryPoint)
	assert.Equal(t, ".lnk", cfg.Translator.SymlinkSuffix)
	assert.Empty(t, cfg.Metrics.Addr, "metrics should be disabled by default")
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CYGBRIDGE_TRANSLATOR_LIBRARIES", "msys-2.0.dll, cygwin1.dll")
	t.Setenv("CYGBRIDGE_TRANSLATOR_SYMLINK_SUFFIX", ".lnk2")
	t.Setenv("CYGBRIDGE_STORE_STATE_DIR", "/var/lib/cygbridge")
	t.Setenv("CYGBRIDGE_METRICS_ADDR", ":9310")
	t.Setenv("CYGBRIDGE_WATCH_SETTLE_DELAY", "250ms")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"msys-2.0.dll", "cygwin1.dll"}, cfg.Translator.Libraries)
	assert.Equal(t, ".lnk2", cfg.Translator.SymlinkSuffix)
	assert.Equal(t, "/var/lib/cygbridge", cfg.Store.StateDir)
	assert.Equal(t, ":9310", cfg.Metrics.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.SettleDelay)
	assert.Equal(t, "cygwin_conv_path", cfg.Translator.EntryPoint, "default entry point should survive")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cygbridge.yaml")
	content := []byte(`translator:
  libraries: ["msys-2.0.dll"]
store:
  state_dir: /tmp/links
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"msys-2.0.dll"}, cfg.Translator.Libraries)
	assert.Equal(t, "/tmp/links", cfg.Store.StateDir)
	assert.Equal(t, ".lnk", cfg.Translator.SymlinkSuffix, "default suffix should survive")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default", func(*Config) {}, false},
		{"no libraries", func(c *Config) { c.Translator.Libraries = nil }, true},
		{"blank library", func(c *Config) { c.Translator.Libraries = []string{" "} }, true},
		{"empty entry point", func(c *Config) { c.Translator.EntryPoint = "" }, true},
		{"suffix without dot", func(c *Config) { c.Translator.SymlinkSuffix = "lnk" }, true},
		{"negative settle delay", func(c *Config) { c.Watch.SettleDelay = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
