package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"quakemap/internal/config"
	"quakemap/internal/display"
	appLog "quakemap/internal/log"
	"quakemap/internal/sched"
	"quakemap/internal/source"
	"quakemap/internal/store"
	"quakemap/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	headless   bool
	once       bool
}

func main() {
	appLog.Info("quakemap starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(conf.LogLevel)

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"data_dir", conf.DataDir,
		"use_global", conf.Feeds.UseGlobal,
		"use_regional", conf.Feeds.UseRegional,
		"window", conf.Feeds.Window,
		"volcano", conf.Volcano.Enabled,
		"acquire_interval", conf.AcquireInterval,
		"headless", flags.headless,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	loc := conf.Location()
	st := store.New(conf.DataDir, loc, time.Now())

	// Display sink: the console sink narrates draw commands; the GPIO
	// backlight is real where the hardware exists.
	var backlight display.Backlight
	if !flags.headless {
		backlight = display.NewBacklight(conf.BacklightPin)
	}
	sink := display.NewConsole(backlight)

	// Feed sources.
	var global, regional source.Source
	if conf.Feeds.UseGlobal {
		global = source.NewUSGS(conf.FetchTimeout, "")
	}
	if conf.Feeds.UseRegional {
		regional = source.NewEMSC(conf.FetchTimeout, "", 1)
	}
	var volcano *source.Volcano
	if conf.Volcano.Enabled {
		volcano = source.NewVolcano(conf.FetchTimeout, "", conf.Volcano.Lat, conf.Volcano.Lon, conf.Volcano.Ignore)
	}

	scheduler := sched.New(st, sink, global, regional, volcano, loc, sched.SettingsFromConfig(conf))

	// Config hot reload: only the reloadable settings apply live;
	// feed/listen topology changes need a restart.
	watcher := config.NewWatcher(flags.configPath, conf)
	watcher.OnChange(func(newCfg *config.Config) {
		appLog.SetLevel(newCfg.LogLevel)
		scheduler.UpdateSettings(sched.SettingsFromConfig(newCfg))
	})
	stopWatch, err := watcher.Watch()
	if err != nil {
		appLog.Warn("config watcher unavailable (hot reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// Periodic snapshot save, so a crash loses at most one interval.
	cr := cron.New()
	if _, err := cr.AddFunc(conf.SnapshotCron, func() {
		if err := st.SaveSnapshot(); err != nil {
			appLog.Error("periodic snapshot save failed", err)
		}
	}); err != nil {
		appLog.Error("invalid snapshot cron expression; periodic save disabled", err, "cron", conf.SnapshotCron)
	} else {
		cr.Start()
		defer cr.Stop()
	}

	// Status HTTP API.
	srv := &http.Server{
		Addr:         conf.Listen,
		Handler:      web.NewServer(conf, st).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		appLog.Info("status server listening", "addr", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Error("status server failed", err)
			cancel()
		}
	}()

	if flags.once {
		// Single-shot mode: one acquisition pass, then exit. Useful for
		// smoke tests and cron-style invocations.
		scheduler.RunOnce()
	} else {
		scheduler.Run(ctx)
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)

	appLog.Info("quakemap exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/quakemap/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.headless, "headless", false, "Do not touch display hardware (GPIO backlight)")
	flag.BoolVar(&cfg.once, "once", false, "Run one acquisition cycle and exit")

	flag.Parse()

	return cfg
}
