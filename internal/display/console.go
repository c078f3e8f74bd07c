package display

import (
	"fmt"
	"time"

	appLog "quakemap/internal/log"
	"quakemap/internal/model"
)

// Console is a Sink that narrates draw requests to the log. It backs
// headless runs and development machines without a panel; the backlight
// is still driven for real when GPIO is available.
type Console struct {
	backlight Backlight
}

// NewConsole builds a console sink. backlight may be nil, in which case
// backlight requests are log-only.
func NewConsole(backlight Backlight) *Console {
	return &Console{backlight: backlight}
}

func (c *Console) ShowMap() {
	appLog.Debug("display: repaint map")
}

func (c *Console) DrawMarker(lon, lat, mag float64, sev model.Severity) {
	appLog.Debug("display: marker",
		"lon", fmt.Sprintf("%.2f", lon),
		"lat", fmt.Sprintf("%.2f", lat),
		"mag", mag,
		"severity", sev.String(),
	)
}

func (c *Console) HideMarker(lon, lat, mag float64) {
	appLog.Debug("display: marker off",
		"lon", fmt.Sprintf("%.2f", lon),
		"lat", fmt.Sprintf("%.2f", lat),
	)
}

func (c *Console) ShowClock(t time.Time) {
	appLog.Debug("display: clock", "time", t.Format("15:04"))
}

func (c *Console) ShowEventLine(location string, mag, depth float64) {
	appLog.Info("display: event",
		"location", TruncateLocation(location),
		"mag", mag,
		"depth_km", depth,
	)
}

func (c *Console) ShowStatusBar(alarm string, count int, largest string) {
	appLog.Info("display: status", "alarm", alarm, "events", count, "hi_mag", largest)
}

func (c *Console) ShowSummary(s Summary) {
	largest := "none"
	if s.LargestMag != nil {
		largest = fmt.Sprintf("%.1f", *s.LargestMag)
	}
	yesterday := "no data"
	if s.HasYesterday {
		yesterday = fmt.Sprintf("%d", s.YesterdayTotal)
	}
	appLog.Info("display: summary page",
		"date", s.Date.Format("Monday January 02"),
		"hi_mag", largest,
		"hi_mag_location", s.LargestLocation,
		"trend", string(s.Marker),
		"active_region", s.ActiveRegion,
		"events", s.EventCount,
		"last_event", s.LastEventAt.Format(time.RFC3339),
		"yesterday", yesterday,
		"daily_delta", string(s.DailyDelta),
	)
}

func (c *Console) ShowVolcanoes(alerts []model.VolcanoAlert) {
	for _, a := range alerts {
		appLog.Info("display: volcano alert", "label", a.Label, "lat", a.Lat, "lon", a.Lon)
	}
}

func (c *Console) Backlight(on bool) {
	appLog.Info("display: backlight", "on", on)
	if c.backlight != nil {
		if err := c.backlight.Set(on); err != nil {
			appLog.Error("display: backlight switch failed", err)
		}
	}
}
