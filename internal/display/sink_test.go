package display

import (
	"strings"
	"testing"

	"quakemap/internal/model"
)

func TestTruncateLocation(t *testing.T) {
	short := "Anchorage, Alaska"
	if got := TruncateLocation(short); got != short {
		t.Errorf("short label changed: %q", got)
	}

	long := strings.Repeat("a", 40)
	if got := TruncateLocation(long); len([]rune(got)) != maxLocationChars {
		t.Errorf("len=%d, want %d", len([]rune(got)), maxLocationChars)
	}

	// Multibyte labels truncate on rune boundaries.
	runes := strings.Repeat("é", 30)
	got := TruncateLocation(runes)
	if len([]rune(got)) != maxLocationChars {
		t.Errorf("rune len=%d, want %d", len([]rune(got)), maxLocationChars)
	}
	if !strings.HasPrefix(runes, got) {
		t.Errorf("truncation split a rune: %q", got)
	}
}

func TestAlarmWord(t *testing.T) {
	cases := []struct {
		name string
		ev   model.QuakeEvent
		want string
	}{
		{"alert wins", model.QuakeEvent{Alert: model.AlertRed, Tsunami: true, Magnitude: 8}, "ALERT"},
		{"tsunami", model.QuakeEvent{Tsunami: true, Magnitude: 8}, "TSUNAMI"},
		{"major", model.QuakeEvent{Magnitude: 7.5}, "MAJOR"},
		{"exactly seven is not major", model.QuakeEvent{Magnitude: 7.0}, ""},
		{"quiet", model.QuakeEvent{Magnitude: 4.0}, ""},
	}
	for _, c := range cases {
		if got := AlarmWord(c.ev); got != c.want {
			t.Errorf("%s: AlarmWord=%q, want %q", c.name, got, c.want)
		}
	}
}

func TestNewBacklightFallsBackToNoop(t *testing.T) {
	// An empty pin name always yields the no-op implementation; Set must
	// be callable without hardware.
	b := NewBacklight("")
	if err := b.Set(true); err != nil {
		t.Errorf("noop backlight Set: %v", err)
	}
	if err := b.Set(false); err != nil {
		t.Errorf("noop backlight Set: %v", err)
	}
}

func TestConsoleAcceptsNilBacklight(t *testing.T) {
	c := NewConsole(nil)
	// Draw requests are logged, never panic.
	c.ShowMap()
	c.DrawMarker(10, 20, 5, model.SeverityModerate)
	c.HideMarker(10, 20, 5)
	c.ShowEventLine("Anchorage, Alaska", 5.2, 40)
	c.ShowStatusBar("", 1, "5.2")
	c.ShowVolcanoes([]model.VolcanoAlert{{Label: "Spurr"}})
	c.Backlight(true)
}
