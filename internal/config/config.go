package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates every tunable the daemon reads at startup. It is
// loaded once and treated as immutable afterwards.
type Config struct {
	Selection    SelectionConfig
	Debounce     DebounceConfig
	Art          ArtConfig
	Output       OutputConfig
	Presentation PresentationConfig
}

// SelectionConfig drives the player selection algorithm.
type SelectionConfig struct {
	// Priority is an ordered list of player name prefixes.
	Priority []string
	// RememberLast keeps the previous selection sticky while nothing plays.
	RememberLast bool `mapstructure:"remember_last"`
	// Fallback is "any" or "none".
	Fallback string
	// Include/Exclude are name prefix filters for registry membership.
	Include []string
	Exclude []string
}

// DebounceConfig holds the ingestion gate widths.
type DebounceConfig struct {
	EnumerateMS int `mapstructure:"enumerate_ms"`
	StatusMS    int `mapstructure:"status_ms"`
}

// ArtConfig controls cover art resolution.
type ArtConfig struct {
	Enabled      bool
	DownloadHTTP bool `mapstructure:"download_http"`
	TimeoutMS    int  `mapstructure:"timeout_ms"`
	CacheDir     string `mapstructure:"cache_dir"`
	DefaultImage string `mapstructure:"default_image"`
	CurrentPath  string `mapstructure:"current_path"`
	UseSymlink   bool   `mapstructure:"use_symlink"`
}

// OutputConfig points at the snapshot and event stream files.
type OutputConfig struct {
	SnapshotPath   string `mapstructure:"snapshot_path"`
	EventsPath     string `mapstructure:"events_path"`
	PrettySnapshot bool   `mapstructure:"pretty_snapshot"`
}

// PresentationConfig bounds title/artist lengths. Zero disables truncation.
type PresentationConfig struct {
	TruncateTitle  int `mapstructure:"truncate_title"`
	TruncateArtist int `mapstructure:"truncate_artist"`
}

// Load reads configuration from file and env. Env var overrides use prefix MPRISBRIDGE_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("selection.priority", []string{"firefox", "spotify", "vlc", "mpv"})
	v.SetDefault("selection.remember_last", true)
	v.SetDefault("selection.fallback", "any")
	v.SetDefault("selection.include", []string{})
	v.SetDefault("selection.exclude", []string{})
	v.SetDefault("debounce.enumerate_ms", 300)
	v.SetDefault("debounce.status_ms", 250)
	v.SetDefault("art.enabled", true)
	v.SetDefault("art.download_http", true)
	v.SetDefault("art.timeout_ms", 5000)
	v.SetDefault("art.cache_dir", "$XDG_CACHE_HOME/mprisbridge/art")
	v.SetDefault("art.default_image", "$XDG_CONFIG_HOME/mprisbridge/cover.png")
	v.SetDefault("art.current_path", "$XDG_CACHE_HOME/mprisbridge/current")
	v.SetDefault("art.use_symlink", false)
	v.SetDefault("output.snapshot_path", "$XDG_RUNTIME_DIR/mprisbridge/state.json")
	v.SetDefault("output.events_path", "$XDG_RUNTIME_DIR/mprisbridge/events.jsonl")
	v.SetDefault("output.pretty_snapshot", false)
	v.SetDefault("presentation.truncate_title", 120)
	v.SetDefault("presentation.truncate_artist", 120)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("MPRISBRIDGE_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(configHome(), "mprisbridge"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("MPRISBRIDGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// config file is optional; defaults cover a working setup
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	c.expandPaths()
	return c, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Selection.Fallback) {
	case "any", "none":
		c.Selection.Fallback = strings.ToLower(c.Selection.Fallback)
	default:
		return fmt.Errorf("selection.fallback must be \"any\" or \"none\", got %q", c.Selection.Fallback)
	}
	if c.Debounce.EnumerateMS <= 0 {
		return fmt.Errorf("debounce.enumerate_ms must be > 0")
	}
	if c.Debounce.StatusMS <= 0 {
		return fmt.Errorf("debounce.status_ms must be > 0")
	}
	if c.Art.TimeoutMS <= 0 {
		return fmt.Errorf("art.timeout_ms must be > 0")
	}
	return nil
}

func (c *Config) expandPaths() {
	c.Art.CacheDir = Expand(c.Art.CacheDir)
	c.Art.DefaultImage = Expand(c.Art.DefaultImage)
	c.Art.CurrentPath = Expand(c.Art.CurrentPath)
	c.Output.SnapshotPath = Expand(c.Output.SnapshotPath)
	c.Output.EventsPath = Expand(c.Output.EventsPath)
}

// EnumerateInterval returns the enumeration debounce window.
func (c Config) EnumerateInterval() time.Duration {
	return time.Duration(c.Debounce.EnumerateMS) * time.Millisecond
}

// StatusInterval returns the status-refresh debounce window.
func (c Config) StatusInterval() time.Duration {
	return time.Duration(c.Debounce.StatusMS) * time.Millisecond
}

// ArtTimeout returns the remote art fetch budget.
func (c Config) ArtTimeout() time.Duration {
	return time.Duration(c.Art.TimeoutMS) * time.Millisecond
}

// Expand substitutes the supported path tokens. The runtime and cache
// roots are environment inputs, never computed here.
func Expand(path string) string {
	s := path
	if home, err := os.UserHomeDir(); err == nil {
		s = strings.ReplaceAll(s, "$HOME", home)
	}
	s = strings.ReplaceAll(s, "$XDG_CONFIG_HOME", configHome())
	s = strings.ReplaceAll(s, "$XDG_CACHE_HOME", cacheHome())
	s = strings.ReplaceAll(s, "$XDG_RUNTIME_DIR", RuntimeDir())
	return s
}

func configHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

func cacheHome() string {
	if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache")
}

// RuntimeDir returns the per-user runtime root.
func RuntimeDir() string {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return v
	}
	return fmt.Sprintf("/run/user/%d", os.Getuid())
}
