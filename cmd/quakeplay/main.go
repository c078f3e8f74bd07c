// quakeplay replays a persisted day snapshot onto the display sink:
// it loads the N-th most recent day file and redraws its markers, so a
// past day's activity can be reviewed without the live daemon.
package main

import (
	"flag"
	"os"
	"time"

	"quakemap/internal/config"
	"quakemap/internal/display"
	appLog "quakemap/internal/log"
	"quakemap/internal/model"
	"quakemap/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "/etc/quakemap/config.yaml", "Path to config file")
		dataDir    = flag.String("data-dir", "", "Snapshot directory (overrides config if set)")
		day        = flag.Int("day", 0, "Day index to replay (0 = most recent)")
		delay      = flag.Duration("delay", 0, "Pause between markers (e.g. 200ms)")
	)
	flag.Parse()

	dir := *dataDir
	if dir == "" {
		conf, err := config.Load(*configPath)
		if err != nil {
			appLog.Error("failed to load config", err, "config_path", *configPath)
			os.Exit(1)
		}
		dir = conf.DataDir
	}

	events, available, err := store.LoadDay(dir, *day)
	if err != nil {
		appLog.Error("failed to load day snapshot", err, "data_dir", dir, "day", *day)
		os.Exit(1)
	}
	appLog.Info("replaying day snapshot", "day", *day, "events", len(events), "days_available", available)

	sink := display.NewConsole(nil)
	sink.ShowMap()

	// Snapshots are newest-first; replay in acquisition order.
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		sink.DrawMarker(ev.Lon, ev.Lat, ev.Magnitude, model.SeverityForMagnitude(ev.Magnitude))
		sink.ShowEventLine(ev.Location, ev.Magnitude, ev.Depth)
		if *delay > 0 {
			time.Sleep(*delay)
		}
	}
}
