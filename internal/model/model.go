package model

import (
	"math"
	"time"
)

// AlertLevel is the PAGER-style alert attached to some feed events.
// Not every source reports it; absent values stay AlertNone.
type AlertLevel string

const (
	AlertNone   AlertLevel = ""
	AlertGreen  AlertLevel = "green"
	AlertYellow AlertLevel = "yellow"
	AlertOrange AlertLevel = "orange"
	AlertRed    AlertLevel = "red"
)

// ParseAlertLevel maps a raw feed string to an AlertLevel. Unknown or
// empty values map to AlertNone rather than failing the whole event.
func ParseAlertLevel(s string) AlertLevel {
	switch AlertLevel(s) {
	case AlertGreen, AlertYellow, AlertOrange, AlertRed:
		return AlertLevel(s)
	default:
		return AlertNone
	}
}

// QuakeEvent is one normalized seismic event as delivered by a feed.
// Values are immutable once constructed; the store never mutates them.
type QuakeEvent struct {
	// ID is the source-provided identifier, or a generated one when the
	// feed omits it.
	ID string `json:"id"`

	Source string `json:"source"`

	// Lon/Lat are degrees, -180..180 / -90..90.
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`

	// Magnitude in the source's units. The store only accepts finite
	// values > 0.
	Magnitude float64 `json:"magnitude"`

	// Depth in km.
	Depth float64 `json:"depth"`

	Alert   AlertLevel `json:"alert,omitempty"`
	Tsunami bool       `json:"tsunami,omitempty"`

	// Location is the free-text label from the feed. Stored untruncated;
	// display consumers shorten it.
	Location string `json:"location"`

	// ObservedAt is when this process acquired the event (local clock),
	// not the origin time reported by the feed.
	ObservedAt time.Time `json:"observed_at"`
}

// ValidMagnitude reports whether the event's magnitude is acceptable
// for the store: finite and strictly positive.
func (e QuakeEvent) ValidMagnitude() bool {
	return !math.IsNaN(e.Magnitude) && !math.IsInf(e.Magnitude, 0) && e.Magnitude > 0
}

// VolcanoAlert is one volcanic activity notice near a watched position.
type VolcanoAlert struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// FeedWindow selects the time span a feed query covers.
type FeedWindow string

const (
	WindowHour  FeedWindow = "hour"
	WindowDay   FeedWindow = "day"
	WindowWeek  FeedWindow = "week"
	WindowMonth FeedWindow = "month"
)

// Duration returns the window span, defaulting to one hour.
func (w FeedWindow) Duration() time.Duration {
	switch w {
	case WindowDay:
		return 24 * time.Hour
	case WindowWeek:
		return 7 * 24 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// Severity buckets a magnitude into display tiers.
type Severity int

const (
	SeverityMinor Severity = iota
	SeverityModerate
	SeverityMajor
)

// SeverityForMagnitude maps a magnitude to its severity tier. The input
// is rounded to the nearest integer first; anything below 1 counts as 1.
func SeverityForMagnitude(mag float64) Severity {
	imag := int(mag + 0.5)
	if imag < 1 {
		imag = 1
	}
	switch {
	case imag <= 3:
		return SeverityMinor
	case imag <= 6:
		return SeverityModerate
	default:
		return SeverityMajor
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "minor"
	case SeverityModerate:
		return "moderate"
	case SeverityMajor:
		return "major"
	default:
		return "unknown"
	}
}

// TrendMarker is the qualitative comparison of the two most recently
// accepted magnitudes.
type TrendMarker string

const (
	TrendNone       TrendMarker = "none"
	TrendIncreasing TrendMarker = "increasing"
	TrendDecreasing TrendMarker = "decreasing"
	TrendSteady     TrendMarker = "steady"
)
