package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FeedConfig enables/disables the two seismic feeds and selects the
// query window for the regional one.
type FeedConfig struct {
	// UseGlobal enables the worldwide feed (USGS summary).
	UseGlobal bool `yaml:"use_global" json:"use_global"`
	// UseRegional enables the regional feed (EMSC fdsnws).
	UseRegional bool `yaml:"use_regional" json:"use_regional"`
	// Window is one of hour/day/week/month; empty means hour.
	Window string `yaml:"window" json:"window"`
}

// VolcanoConfig describes the volcanic activity watch.
type VolcanoConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	Lat     float64 `yaml:"lat" json:"lat"`
	Lon     float64 `yaml:"lon" json:"lon"`
	// Ignore lists label substrings whose alerts are dropped.
	Ignore []string `yaml:"ignore" json:"ignore"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the status API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the status API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for day boundaries and display
	// hours (e.g. "America/Denver"). Empty means the system local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DataDir is where day snapshots are written.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// LogLevel is one of debug/info/warn/error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Feeds   FeedConfig    `yaml:"feeds" json:"feeds"`
	Volcano VolcanoConfig `yaml:"volcano" json:"volcano"`

	// AcquireInterval is how often a feed is polled. The two feeds
	// alternate, so each individual feed is hit every other cycle.
	AcquireInterval time.Duration `yaml:"acquire_interval" json:"acquire_interval"`
	// BlinkInterval drives the current-event blink.
	BlinkInterval time.Duration `yaml:"blink_interval" json:"blink_interval"`
	// SummaryInterval is how often the summary page is shown.
	SummaryInterval time.Duration `yaml:"summary_interval" json:"summary_interval"`
	// VolcanoInterval is how often volcanic alerts are polled.
	VolcanoInterval time.Duration `yaml:"volcano_interval" json:"volcano_interval"`

	// FetchTimeout bounds a single feed request.
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`

	// DisplayOnHour/DisplayOffHour bound the viewing hours: the panel is
	// on for local hour in [on, off).
	DisplayOnHour  int `yaml:"display_on_hour" json:"display_on_hour"`
	DisplayOffHour int `yaml:"display_off_hour" json:"display_off_hour"`

	// SnapshotCron is a cron-style schedule string for the periodic
	// ledger snapshot save (e.g. "*/15 * * * *").
	SnapshotCron string `yaml:"snapshot_cron" json:"snapshot_cron"`

	// BacklightPin is the GPIO pin driving the panel backlight
	// (e.g. "GPIO18"). Empty disables GPIO control.
	BacklightPin string `yaml:"backlight_pin" json:"backlight_pin"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		Timezone: "",
		DataDir:  "/var/lib/quakemap",
		LogLevel: "info",
		Feeds: FeedConfig{
			UseGlobal:   true,
			UseRegional: true,
			Window:      "hour",
		},
		Volcano: VolcanoConfig{
			Enabled: false,
			Ignore:  []string{},
		},
		AcquireInterval: 15 * time.Second,
		BlinkInterval:   500 * time.Millisecond,
		SummaryInterval: 15 * time.Minute,
		VolcanoInterval: 10 * time.Minute,
		FetchTimeout:    10 * time.Second,
		DisplayOnHour:   7,
		DisplayOffHour:  22,
		SnapshotCron:    "*/15 * * * *",
		BacklightPin:    "GPIO18",
		BasicAuth:       nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.DataDir == "" {
		c.DataDir = "/var/lib/quakemap"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	switch c.Feeds.Window {
	case "hour", "day", "week", "month":
		// ok
	default:
		c.Feeds.Window = "hour"
	}
	if !c.Feeds.UseGlobal && !c.Feeds.UseRegional {
		// A daemon with no feeds does nothing useful; keep the global one.
		c.Feeds.UseGlobal = true
	}
	if c.Volcano.Ignore == nil {
		c.Volcano.Ignore = []string{}
	}
	if c.AcquireInterval <= 0 {
		c.AcquireInterval = 15 * time.Second
	}
	if c.BlinkInterval <= 0 {
		c.BlinkInterval = 500 * time.Millisecond
	}
	if c.SummaryInterval <= 0 {
		c.SummaryInterval = 15 * time.Minute
	}
	if c.VolcanoInterval <= 0 {
		c.VolcanoInterval = 10 * time.Minute
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.DisplayOnHour < 0 || c.DisplayOnHour > 23 {
		c.DisplayOnHour = 7
	}
	if c.DisplayOffHour <= c.DisplayOnHour || c.DisplayOffHour > 24 {
		c.DisplayOffHour = 22
	}
	if c.SnapshotCron == "" {
		c.SnapshotCron = "*/15 * * * *"
	}
}

// Location resolves the configured timezone, falling back to the system
// local zone when empty or invalid.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".quakemap-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
