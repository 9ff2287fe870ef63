package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (CYGBRIDGE_STORE_STATE_DIR, ...)
const EnvPrefix = "CYGBRIDGE"

// Config holds configuration for the cygbridge tool
type Config struct {
	// Translator controls how the compatibility library is located and how symlinks are recognised
	Translator TranslatorConfig `mapstructure:"translator"`

	// Store configures the on-disk link store
	Store StoreConfig `mapstructure:"store"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Watch configures the filesystem watcher
	Watch WatchConfig `mapstructure:"watch"`
}

// TranslatorConfig captures settings for runtime linking to the compatibility layer
type TranslatorConfig struct {
	// Libraries are tried in order; the first one that loads wins
	Libraries []string `mapstructure:"libraries"`

	// EntryPoint is the exported conversion function
	EntryPoint string `mapstructure:"entry_point"`

	// SymlinkSuffix marks legacy shortcut-style symlinks
	SymlinkSuffix string `mapstructure:"symlink_suffix"`
}

// StoreConfig locates the Pebble database used to persist findings
type StoreConfig struct {
	StateDir string `mapstructure:"state_dir"`
}

// MetricsConfig configures the /metrics listener. An empty address disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// WatchConfig tunes the watcher
type WatchConfig struct {
	// SettleDelay is how long to wait after an event before checking attributes,
	// since the compatibility layer sets them after creating the file
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Translator: defaultTranslatorConfig(),
		Store:      StoreConfig{StateDir: ""},
		Metrics:    MetricsConfig{Addr: ""},
		Watch:      WatchConfig{SettleDelay: 50 * time.Millisecond},
	}
}

func defaultTranslatorConfig() TranslatorConfig {
	return TranslatorConfig{
		Libraries:     []string{"cygwin1.dll", "msys-2.0.dll"},
		EntryPoint:    "cygwin_conv_path",
		SymlinkSuffix: ".lnk",
	}
}

// Load builds a configuration from defaults, an optional config file and
// CYGBRIDGE_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load with a caller-supplied viper instance, so command-line
// flags bound on v take precedence over everything else.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	def := DefaultConfig()

	v.SetDefault("translator.libraries", def.Translator.Libraries)
	v.SetDefault("translator.entry_point", def.Translator.EntryPoint)
	v.SetDefault("translator.symlink_suffix", def.Translator.SymlinkSuffix)
	v.SetDefault("store.state_dir", def.Store.StateDir)
	v.SetDefault("metrics.addr", def.Metrics.Addr)
	v.SetDefault("watch.settle_delay", def.Watch.SettleDelay)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Entries split from the environment keep their surrounding whitespace.
	cfg.Translator.Libraries = splitList(strings.Join(cfg.Translator.Libraries, ","))

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Translator.Validate(); err != nil {
		return fmt.Errorf("translator config invalid: %w", err)
	}

	if c.Watch.SettleDelay < 0 {
		return fmt.Errorf("watch settle delay must be >= 0, got: %s", c.Watch.SettleDelay)
	}

	return nil
}

// Validate ensures the translator can attempt a load at all
func (c TranslatorConfig) Validate() error {
	if len(c.Libraries) == 0 {
		return fmt.Errorf("at least one library name is required")
	}
	for _, lib := range c.Libraries {
		if strings.TrimSpace(lib) == "" {
			return fmt.Errorf("library names must not be empty")
		}
	}
	if c.EntryPoint == "" {
		return fmt.Errorf("entry point must not be empty")
	}
	if c.SymlinkSuffix == "" || !strings.HasPrefix(c.SymlinkSuffix, ".") {
		return fmt.Errorf("symlink suffix must start with '.', got: %q", c.SymlinkSuffix)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
