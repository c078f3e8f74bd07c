package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quakemap/internal/config"
	"quakemap/internal/model"
	"quakemap/internal/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New("", time.UTC, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	events := []model.QuakeEvent{
		{ID: "a", Source: "usgs", Lon: 10, Lat: 20, Magnitude: 5.5, Location: "Alaska",
			ObservedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		{ID: "b", Source: "emsc", Lon: 26, Lat: 38, Magnitude: 4.1, Location: "Turkey",
			ObservedAt: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)},
	}
	for _, ev := range events {
		if err := st.Add(ev); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return st
}

func TestHealth(t *testing.T) {
	cfg := config.DefaultConfig()
	srv := httptest.NewServer(NewServer(cfg, seededStore(t)).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status=%d", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	cfg := config.DefaultConfig()
	st := seededStore(t)
	srv := httptest.NewServer(NewServer(cfg, st).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		EventCount   int      `json:"event_count"`
		LargestMag   *float64 `json:"largest_mag"`
		TrendMarker  string   `json:"trend_marker"`
		ActiveRegion string   `json:"active_region"`
		HourlyCounts [24]int  `json:"hourly_counts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if body.EventCount != 2 {
		t.Errorf("event_count=%d, want 2", body.EventCount)
	}
	if body.LargestMag == nil || *body.LargestMag != 5.5 {
		t.Errorf("largest_mag=%v, want 5.5", body.LargestMag)
	}
	if body.TrendMarker != "decreasing" {
		t.Errorf("trend_marker=%q, want decreasing (4.1 after 5.5)", body.TrendMarker)
	}
	if body.HourlyCounts[9] != 1 || body.HourlyCounts[10] != 1 {
		t.Errorf("hourly_counts=%v", body.HourlyCounts)
	}

	// The status API takes a preserving read: the active-region window is
	// still intact for the summary page afterwards.
	if region, ok := st.ActiveRegion(false); !ok || region == "" {
		t.Errorf("active-region window consumed by the API: %q ok=%v", region, ok)
	}
}

func TestEventsEndpoint(t *testing.T) {
	cfg := config.DefaultConfig()
	srv := httptest.NewServer(NewServer(cfg, seededStore(t)).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/events")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Events []struct {
			ID       string `json:"id"`
			Severity string `json:"severity"`
		} `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(body.Events) != 2 {
		t.Fatalf("events=%d, want 2", len(body.Events))
	}
	// Newest first.
	if body.Events[0].ID != "b" || body.Events[1].ID != "a" {
		t.Errorf("order=%q,%q, want b,a", body.Events[0].ID, body.Events[1].ID)
	}
	if body.Events[1].Severity != "moderate" {
		t.Errorf("severity=%q, want moderate for mag 5.5", body.Events[1].Severity)
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "eq", Password: "map"}
	srv := httptest.NewServer(NewServer(cfg, seededStore(t)).Handler())
	defer srv.Close()

	// No credentials: rejected.
	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status=%d without credentials, want 401", resp.StatusCode)
	}

	// Health stays open.
	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status=%d, want 200 without credentials", resp.StatusCode)
	}

	// Correct credentials: accepted.
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/status", nil)
	req.SetBasicAuth("eq", "map")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status=%d with credentials, want 200", resp.StatusCode)
	}

	// Wrong password: rejected.
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/status", nil)
	req.SetBasicAuth("eq", "wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status=%d with bad password, want 401", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	cfg := config.DefaultConfig()
	srv := httptest.NewServer(NewServer(cfg, seededStore(t)).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status=%d", resp.StatusCode)
	}
}
