package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefaultConfigIsAlreadyNormalized(t *testing.T) {
	cfg := DefaultConfig()
	before := DefaultConfig()
	cfg.Normalize()
	if !reflect.DeepEqual(cfg, before) {
		t.Errorf("Normalize changed the defaults:\n got %+v\nwant %+v", cfg, before)
	}
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	var cfg Config
	cfg.Normalize()

	if cfg.Listen == "" || cfg.DataDir == "" || cfg.LogLevel == "" {
		t.Errorf("zero config not filled: %+v", cfg)
	}
	if cfg.Feeds.Window != "hour" {
		t.Errorf("window=%q, want hour", cfg.Feeds.Window)
	}
	if !cfg.Feeds.UseGlobal {
		t.Error("with no feeds enabled, the global one should be forced on")
	}
	if cfg.AcquireInterval <= 0 || cfg.BlinkInterval <= 0 || cfg.FetchTimeout <= 0 {
		t.Errorf("intervals not filled: %+v", cfg)
	}
	if cfg.DisplayOnHour != 7 || cfg.DisplayOffHour != 22 {
		t.Errorf("display hours=%d..%d, want 7..22", cfg.DisplayOnHour, cfg.DisplayOffHour)
	}
}

func TestNormalizeRepairsDisplayHours(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DisplayOnHour = 30
	cfg.DisplayOffHour = 5
	cfg.Normalize()

	if cfg.DisplayOnHour != 7 || cfg.DisplayOffHour != 22 {
		t.Errorf("display hours=%d..%d, want 7..22", cfg.DisplayOnHour, cfg.DisplayOffHour)
	}

	cfg = DefaultConfig()
	cfg.DisplayOnHour = 9
	cfg.DisplayOffHour = 9 // off must be strictly after on
	cfg.Normalize()
	if cfg.DisplayOffHour != 22 {
		t.Errorf("off hour=%d, want repaired to 22", cfg.DisplayOffHour)
	}
}

func TestNormalizeRejectsUnknownWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Feeds.Window = "fortnight"
	cfg.Normalize()
	if cfg.Feeds.Window != "hour" {
		t.Errorf("window=%q, want hour", cfg.Feeds.Window)
	}
}

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != DefaultConfig().Listen {
		t.Errorf("listen=%q, want default", cfg.Listen)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode=%o, want 600", perm)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:9999"
	cfg.Timezone = "America/Denver"
	cfg.Feeds.UseRegional = false
	cfg.Volcano = VolcanoConfig{Enabled: true, Lat: 61.2, Lon: -150.0, Ignore: []string{"Spurr"}}
	cfg.AcquireInterval = 30 * time.Second
	cfg.BasicAuth = &BasicAuthConfig{Username: "eq", Password: "map"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Listen != cfg.Listen || loaded.Timezone != cfg.Timezone {
		t.Errorf("loaded=%+v", loaded)
	}
	if loaded.Feeds.UseRegional {
		t.Error("use_regional should survive as false")
	}
	if !loaded.Volcano.Enabled || len(loaded.Volcano.Ignore) != 1 {
		t.Errorf("volcano=%+v", loaded.Volcano)
	}
	if loaded.AcquireInterval != 30*time.Second {
		t.Errorf("acquire_interval=%v", loaded.AcquireInterval)
	}
	if loaded.BasicAuth == nil || loaded.BasicAuth.Username != "eq" {
		t.Errorf("basic_auth=%+v", loaded.BasicAuth)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "UTC"
	if loc := cfg.Location(); loc.String() != "UTC" {
		t.Errorf("location=%v, want UTC", loc)
	}

	cfg.Timezone = "Not/AZone"
	if loc := cfg.Location(); loc != time.Local {
		t.Errorf("invalid timezone should fall back to local, got %v", loc)
	}

	cfg.Timezone = ""
	if loc := cfg.Location(); loc != time.Local {
		t.Errorf("empty timezone should fall back to local, got %v", loc)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	initial := DefaultConfig()
	if err := initial.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	w := NewWatcher(path, initial)
	changed := make(chan *Config, 1)
	w.OnChange(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	stop, err := w.Watch()
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer stop()

	// Rewrite in place so the watched inode sees a plain Write event.
	body := "listen: \"127.0.0.1:7777\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case cfg := <-changed:
		if cfg.Listen != "127.0.0.1:7777" {
			t.Errorf("reloaded listen=%q", cfg.Listen)
		}
		if w.Config().Listen != "127.0.0.1:7777" {
			t.Errorf("Config() not updated: %q", w.Config().Listen)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed after file write")
	}
}
