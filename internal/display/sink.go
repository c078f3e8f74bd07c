// Package display defines the semantic draw surface the engine talks
// to. The core never touches pixels: it issues draw requests and an
// implementation renders them (or just logs them, for headless runs).
package display

import (
	"time"

	"quakemap/internal/model"
)

// maxLocationChars bounds location labels on the event line; longer
// names overlap the surrounding layout.
const maxLocationChars = 24

// Summary is the payload of the periodic summary ("wash") page.
type Summary struct {
	// LargestMag is nil when the ledger is empty.
	LargestMag      *float64
	Marker          model.TrendMarker
	LargestLocation string
	ActiveRegion    string
	EventCount      int
	LastEventAt     time.Time

	// YesterdayTotal is the previous completed day's event count;
	// HasYesterday is false before the first rollover.
	YesterdayTotal int
	HasYesterday   bool
	// DailyDelta compares the two most recent daily totals.
	DailyDelta model.TrendMarker

	Date time.Time
}

// Sink accepts semantic draw requests from the scheduler.
type Sink interface {
	// ShowMap repaints the base map, clearing all markers.
	ShowMap()

	// DrawMarker draws an event marker sized by magnitude and colored
	// by severity.
	DrawMarker(lon, lat, mag float64, sev model.Severity)

	// HideMarker blanks the marker at the given position (blink off-beat).
	HideMarker(lon, lat, mag float64)

	// ShowClock refreshes the on-screen clock.
	ShowClock(t time.Time)

	// ShowEventLine shows the most recent event's location, magnitude
	// and depth.
	ShowEventLine(location string, mag, depth float64)

	// ShowStatusBar shows the alarm word, event count and largest
	// magnitude of the day.
	ShowStatusBar(alarm string, count int, largest string)

	// ShowSummary displays the summary page.
	ShowSummary(s Summary)

	// ShowVolcanoes displays the current volcanic alerts.
	ShowVolcanoes(alerts []model.VolcanoAlert)

	// Backlight turns the panel backlight on or off.
	Backlight(on bool)
}

// TruncateLocation shortens a location label for the event line.
func TruncateLocation(location string) string {
	r := []rune(location)
	if len(r) <= maxLocationChars {
		return location
	}
	return string(r[:maxLocationChars])
}

// AlarmWord derives the status-bar alarm from the newest event. Ordered
// so the most urgent condition wins.
func AlarmWord(ev model.QuakeEvent) string {
	switch {
	case ev.Alert != model.AlertNone:
		return "ALERT"
	case ev.Tsunami:
		return "TSUNAMI"
	case ev.Magnitude > 7:
		return "MAJOR"
	default:
		return ""
	}
}
