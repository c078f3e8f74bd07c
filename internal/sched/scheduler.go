// Package sched runs the single-threaded cooperative loop that drives
// acquisition, blink, summary display, display power and day rollover.
// There is no preemption: each iteration reads the clock once, fires
// every past-due action synchronously, then re-arms it relative to the
// current wall clock. A long gap between iterations therefore skips
// missed firings instead of catching up.
package sched

import (
	"context"
	"fmt"
	"time"

	"quakemap/internal/config"
	"quakemap/internal/display"
	appLog "quakemap/internal/log"
	"quakemap/internal/metrics"
	"quakemap/internal/model"
	"quakemap/internal/source"
	"quakemap/internal/store"
)

// loopTick is the granularity of the cooperative loop. It bounds how
// late an action can fire; the blink interval is the tightest consumer.
const loopTick = 100 * time.Millisecond

// Settings is the reloadable subset of the configuration. The watcher
// publishes a new value and the loop picks it up between iterations.
type Settings struct {
	AcquireInterval time.Duration
	BlinkInterval   time.Duration
	SummaryInterval time.Duration
	VolcanoInterval time.Duration
	FetchTimeout    time.Duration

	DisplayOnHour  int
	DisplayOffHour int

	UseGlobal   bool
	UseRegional bool
	Window      model.FeedWindow

	VolcanoIgnore []string
}

// SettingsFromConfig extracts the reloadable settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		AcquireInterval: cfg.AcquireInterval,
		BlinkInterval:   cfg.BlinkInterval,
		SummaryInterval: cfg.SummaryInterval,
		VolcanoInterval: cfg.VolcanoInterval,
		FetchTimeout:    cfg.FetchTimeout,
		DisplayOnHour:   cfg.DisplayOnHour,
		DisplayOffHour:  cfg.DisplayOffHour,
		UseGlobal:       cfg.Feeds.UseGlobal,
		UseRegional:     cfg.Feeds.UseRegional,
		Window:          model.FeedWindow(cfg.Feeds.Window),
		VolcanoIgnore:   cfg.Volcano.Ignore,
	}
}

// state is the explicit scheduler state: current-event snapshot, the
// toggles, and the volcano alert cache. All of it lives here rather
// than in package globals.
type state struct {
	current    model.QuakeEvent
	hasCurrent bool

	// lastID remembers the last event id seen per feed, so a feed
	// re-serving the same event is not re-processed.
	lastID map[string]string

	// sourceToggle alternates the two seismic feeds across acquisition
	// cycles so each feed is hit once per two intervals.
	sourceToggle bool
	blinkToggle  bool

	displayOn bool

	volcanoAlerts []model.VolcanoAlert
}

// entry is one scheduled action: a due time and the interval used to
// re-arm it after firing.
type entry struct {
	due      time.Time
	interval func(s Settings) time.Duration
	fire     func(now time.Time)
}

// Scheduler owns the cooperative loop. Construct with New, then Run.
type Scheduler struct {
	st   *store.Store
	sink display.Sink
	loc  *time.Location
	now  func() time.Time

	global   source.Source
	regional source.Source
	volcano  *source.Volcano

	settingsCh chan Settings
	settings   Settings

	state   state
	entries []*entry
}

// New wires a Scheduler. global/regional may be nil when the matching
// feed is disabled; volcano may be nil when the watch is off.
func New(st *store.Store, sink display.Sink, global, regional source.Source, volcano *source.Volcano, loc *time.Location, settings Settings) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		st:         st,
		sink:       sink,
		loc:        loc,
		now:        time.Now,
		global:     global,
		regional:   regional,
		volcano:    volcano,
		settingsCh: make(chan Settings, 1),
		settings:   settings,
		state: state{
			lastID: make(map[string]string),
		},
	}

	start := s.now()
	s.entries = []*entry{
		{due: start, interval: func(st Settings) time.Duration { return st.AcquireInterval }, fire: s.acquire},
		{due: start, interval: func(st Settings) time.Duration { return st.BlinkInterval }, fire: s.blink},
		{due: start, interval: func(st Settings) time.Duration { return st.SummaryInterval }, fire: s.summaryPage},
	}
	if volcano != nil {
		s.entries = append(s.entries, &entry{
			due:      start,
			interval: func(st Settings) time.Duration { return st.VolcanoInterval },
			fire:     s.volcanoPoll,
		})
	}
	return s
}

// UpdateSettings hands new settings to the loop. Safe to call from any
// goroutine; the loop applies them at its next iteration.
func (s *Scheduler) UpdateSettings(settings Settings) {
	// Keep only the freshest pending value.
	select {
	case <-s.settingsCh:
	default:
	}
	s.settingsCh <- settings
}

// Run drives the loop until ctx is cancelled. State is not flushed on
// exit; persistence relies on the rollover and periodic save paths.
func (s *Scheduler) Run(ctx context.Context) {
	appLog.Info("scheduler started",
		"acquire_interval", s.settings.AcquireInterval,
		"blink_interval", s.settings.BlinkInterval,
		"summary_interval", s.settings.SummaryInterval,
	)
	ticker := time.NewTicker(loopTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			appLog.Info("scheduler stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			s.step(s.now())
		}
	}
}

// RunOnce performs a single acquisition pass over both feeds plus one
// summary page, without entering the loop. Used by the -once flag.
func (s *Scheduler) RunOnce() {
	now := s.now()
	s.acquire(now)
	s.acquire(now)
	if s.volcano != nil {
		s.volcanoPoll(now)
	}
	s.summaryPage(now)
}

// step is one loop iteration at the given instant. Exposed within the
// package for deterministic tests.
func (s *Scheduler) step(now time.Time) {
	// Apply a pending settings update before anything fires.
	select {
	case settings := <-s.settingsCh:
		s.settings = settings
		if s.volcano != nil {
			s.volcano.SetIgnore(settings.VolcanoIgnore)
		}
		appLog.Info("scheduler settings applied")
	default:
	}

	local := now.In(s.loc)

	// Day boundary: the store's latch makes repeated hour-0 ticks a
	// no-op, so this is safe to evaluate every iteration.
	if local.Hour() == 0 {
		if err := s.st.Rollover(now); err != nil {
			appLog.Error("rollover snapshot save failed; will retry on next save", err)
		}
	}

	s.evalDisplay(local)

	for _, e := range s.entries {
		if now.Before(e.due) {
			continue
		}
		e.fire(now)
		e.due = now.Add(e.interval(s.settings))
	}
}

// evalDisplay derives the display power state from the local hour:
// on for hour in [on, off). The off→on edge repaints and shows the
// summary page; the on→off edge only drops the backlight.
func (s *Scheduler) evalDisplay(local time.Time) {
	h := local.Hour()
	want := h >= s.settings.DisplayOnHour && h < s.settings.DisplayOffHour

	switch {
	case want && !s.state.displayOn:
		s.state.displayOn = true
		s.sink.Backlight(true)
		s.summaryPage(local)
	case !want && s.state.displayOn:
		s.state.displayOn = false
		s.sink.Backlight(false)
	}
}

// acquire polls one of the two seismic feeds, alternating every cycle.
// Any failure is swallowed into a logged no-op poll; the next cycle
// retries on the other feed.
func (s *Scheduler) acquire(now time.Time) {
	src := s.pickSource()
	if src == nil {
		return
	}

	metrics.FetchAttempts.WithLabelValues(src.Name()).Inc()

	ctx, cancel := context.WithTimeout(context.Background(), s.settings.FetchTimeout)
	defer cancel()

	ev, err := src.Fetch(ctx, s.settings.Window)
	if err != nil {
		kind := "transport"
		if source.IsParse(err) {
			kind = "parse"
		}
		metrics.FetchFailures.WithLabelValues(src.Name(), kind).Inc()
		appLog.Warn("fetch failed; skipping cycle", "source", src.Name(), "kind", kind, "err", err)
		return
	}

	// Same event id as last time from this feed: nothing new.
	if s.state.lastID[ev.Source] == ev.ID {
		return
	}

	// Coordinate dedup against the newest accepted entry catches the
	// same physical event arriving via the other feed.
	if s.st.IsDuplicate(ev.Lon, ev.Lat) {
		metrics.EventsDuplicate.Inc()
		appLog.Debug("duplicate event dropped", "source", ev.Source, "id", ev.ID)
		return
	}

	if err := s.st.Add(ev); err != nil {
		appLog.Warn("event rejected", "source", ev.Source, "id", ev.ID, "mag", ev.Magnitude, "err", err)
		return
	}

	s.state.lastID[ev.Source] = ev.ID
	s.state.current = ev
	s.state.hasCurrent = true

	appLog.Info("event accepted",
		"source", ev.Source,
		"id", ev.ID,
		"mag", ev.Magnitude,
		"location", ev.Location,
	)
	s.repaint(now)
}

// pickSource alternates the enabled feeds; with one feed enabled it is
// returned every cycle.
func (s *Scheduler) pickSource() source.Source {
	useGlobal := s.settings.UseGlobal && s.global != nil
	useRegional := s.settings.UseRegional && s.regional != nil

	switch {
	case useGlobal && useRegional:
		s.state.sourceToggle = !s.state.sourceToggle
		if s.state.sourceToggle {
			return s.global
		}
		return s.regional
	case useGlobal:
		return s.global
	case useRegional:
		return s.regional
	default:
		return nil
	}
}

// repaint redraws the whole surface from store state.
func (s *Scheduler) repaint(now time.Time) {
	s.sink.ShowMap()
	s.sink.ShowClock(now.In(s.loc))

	if s.state.hasCurrent {
		cur := s.state.current
		s.sink.ShowEventLine(cur.Location, cur.Magnitude, cur.Depth)
		largest := "none"
		if mag, _, _ := s.st.Largest(); mag != nil {
			largest = fmt.Sprintf("%.1f", *mag)
		}
		s.sink.ShowStatusBar(display.AlarmWord(cur), s.st.Count(), largest)
	}

	for _, ev := range s.st.Events() {
		s.sink.DrawMarker(ev.Lon, ev.Lat, ev.Magnitude, model.SeverityForMagnitude(ev.Magnitude))
	}
	if len(s.state.volcanoAlerts) > 0 {
		s.sink.ShowVolcanoes(s.state.volcanoAlerts)
	}
}

// blink toggles the current-event marker; the clock is refreshed on the
// off beat so it stays current between repaints.
func (s *Scheduler) blink(now time.Time) {
	if !s.state.hasCurrent {
		return
	}
	cur := s.state.current
	if s.state.blinkToggle {
		s.sink.DrawMarker(cur.Lon, cur.Lat, cur.Magnitude, model.SeverityForMagnitude(cur.Magnitude))
		s.state.blinkToggle = false
	} else {
		s.sink.HideMarker(cur.Lon, cur.Lat, cur.Magnitude)
		s.state.blinkToggle = true
		s.sink.ShowClock(now.In(s.loc))
	}
}

// summaryPage shows the title/summary page and then restores the map.
func (s *Scheduler) summaryPage(now time.Time) {
	mag, marker, location := s.st.Largest()
	region, _ := s.st.ActiveRegion(false)
	yesterday, hasYesterday := s.st.LastDailyTotal()

	var lastEvent time.Time
	if ev, ok := s.st.Newest(); ok {
		lastEvent = ev.ObservedAt
	}

	s.sink.ShowSummary(display.Summary{
		LargestMag:      mag,
		Marker:          marker,
		LargestLocation: location,
		ActiveRegion:    region,
		EventCount:      s.st.Count(),
		LastEventAt:     lastEvent,
		YesterdayTotal:  yesterday,
		HasYesterday:    hasYesterday,
		DailyDelta:      s.st.DailyDelta(),
		Date:            now.In(s.loc),
	})
	s.repaint(now)
}

// volcanoPoll refreshes the volcanic alert overlay.
func (s *Scheduler) volcanoPoll(now time.Time) {
	metrics.FetchAttempts.WithLabelValues(s.volcano.Name()).Inc()

	ctx, cancel := context.WithTimeout(context.Background(), s.settings.FetchTimeout)
	defer cancel()

	alerts, err := s.volcano.FetchAlerts(ctx)
	if err != nil {
		kind := "transport"
		if source.IsParse(err) {
			kind = "parse"
		}
		metrics.FetchFailures.WithLabelValues(s.volcano.Name(), kind).Inc()
		appLog.Warn("volcano fetch failed; keeping previous alerts", "kind", kind, "err", err)
		return
	}

	s.state.volcanoAlerts = alerts
	metrics.VolcanoAlerts.Set(float64(len(alerts)))
	if len(alerts) > 0 {
		s.sink.ShowVolcanoes(alerts)
	}
}
