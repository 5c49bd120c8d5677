package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is the optional config file read from the working directory
const DefaultFile = "flow-builder.toml"

// EnvPrefix prefixes environment overrides, e.g. FLOW_BUILDER_PORT=9090 or
// FLOW_BUILDER_BANNER_CONNECT=5s
const EnvPrefix = "FLOW_BUILDER_"

// Config holds all configuration for the application
type Config struct {
	Port        int    `koanf:"port"`
	OpenBrowser bool   `koanf:"open"`
	Verbosity   string `koanf:"verbosity"`
	VerboseCnt  int    `koanf:"verbose"`
	JSONLogs    bool   `koanf:"json"`
	Assets      string `koanf:"assets"` // Serve and watch UI assets from disk instead of the embedded copy
	Check       string `koanf:"check"`  // Validate a flow file and exit instead of serving

	Banner BannerConfig `koanf:"banner"`
	Watch  WatchConfig  `koanf:"watch"`
	CORS   CORSConfig   `koanf:"cors"`
}

// BannerConfig sets how long error banners stay visible
type BannerConfig struct {
	Connect time.Duration `koanf:"connect"` // Rejected connection
	Save    time.Duration `koanf:"save"`    // Rejected save
}

// WatchConfig tunes the asset watcher debouncing
type WatchConfig struct {
	Quiet   time.Duration `koanf:"quiet"`
	MaxWait time.Duration `koanf:"maxwait"`
}

// CORSConfig lists origins allowed to call the API
type CORSConfig struct {
	Origins []string `koanf:"origins"`
}

// Defaults returns the built-in configuration values
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"port":      8080,
		"open":      false,
		"verbosity": "",
		"verbose":   0,
		"json":      false,
		"assets":    "",
		"check":     "",
		"banner": map[string]interface{}{
			"connect": 3 * time.Second,
			"save":    5 * time.Second,
		},
		"watch": map[string]interface{}{
			"quiet":   200 * time.Millisecond,
			"maxwait": 2 * time.Second,
		},
		"cors": map[string]interface{}{
			"origins": []string{"*"},
		},
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(DefaultFile, f)
}

// LoadFile is Load with an explicit config file path
func LoadFile(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	// We ignore errors here as the file might not exist
	_ = k.Load(file.Provider(path), toml.Parser())

	// 3. Environment Variables
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Flags registers the command-line flags understood by Load
func Flags(name string) *pflag.FlagSet {
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)
	f.Int("port", 8080, "Port for the web server")
	f.Bool("open", false, "Open the editor in a browser after start")
	f.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.Bool("json", false, "Write logs as JSON")
	f.String("assets", "", "Serve UI assets from this directory and reload browsers on change")
	f.String("check", "", "Validate a flow file (.json, .yaml) and exit")
	return f
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Banner.Connect < 0 || c.Banner.Save < 0 {
		return fmt.Errorf("banner durations must not be negative")
	}
	if c.Watch.Quiet <= 0 || c.Watch.MaxWait < c.Watch.Quiet {
		return fmt.Errorf("watch.maxwait (%s) must be at least watch.quiet (%s) and both positive", c.Watch.MaxWait, c.Watch.Quiet)
	}
	return nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
