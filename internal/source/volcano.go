package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"quakemap/internal/model"
)

const volcanoBaseURL = "https://volcanoes.usgs.gov/hans-public/api/volcano/getElevatedVolcanoes"

// volcanoTolerance is the half-width of the watch window in degrees.
const volcanoTolerance = 10.0

// Volcano polls the elevated-volcanoes feed and keeps only alerts
// within ±10° of the configured center. An ignore list of label
// substrings drops known-noisy entries.
type Volcano struct {
	client  *resty.Client
	baseURL string

	centerLat float64
	centerLon float64
	ignore    []string
}

// NewVolcano builds the volcanic-activity source watching the window
// around (lat, lon). baseURL overrides the endpoint in tests.
func NewVolcano(timeout time.Duration, baseURL string, lat, lon float64, ignore []string) *Volcano {
	if baseURL == "" {
		baseURL = volcanoBaseURL
	}
	return &Volcano{
		client:    newClient(timeout),
		baseURL:   baseURL,
		centerLat: lat,
		centerLon: lon,
		ignore:    ignore,
	}
}

func (v *Volcano) Name() string { return "volcano" }

// SetIgnore replaces the label ignore list (used on config hot reload).
func (v *Volcano) SetIgnore(ignore []string) { v.ignore = ignore }

// FetchAlerts returns zero or more alerts inside the watch window.
// Rows with unparseable coordinates are skipped, not fatal; the feed
// mixes strings and numbers for the same fields between entries.
func (v *Volcano) FetchAlerts(ctx context.Context) ([]model.VolcanoAlert, error) {
	resp, err := v.client.R().
		SetContext(ctx).
		Get(v.baseURL)
	if err != nil {
		return nil, transportErr(v.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return nil, transportErr(v.Name(), fmt.Errorf("status %d", resp.StatusCode()))
	}

	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, parseErr(v.Name(), "body", err)
	}

	alerts := make([]model.VolcanoAlert, 0, len(rows))
	for _, row := range rows {
		label := rawString(row["volcano_name"])
		if label == "" {
			label = rawString(row["volcano_name_appended"])
		}
		if v.ignored(label) {
			continue
		}

		lat, okLat := rawFloat(row["latitude"])
		lon, okLon := rawFloat(row["longitude"])
		if !okLat || !okLon {
			continue
		}
		if !v.inWindow(lat, lon) {
			continue
		}

		id := rawString(row["vnum"])
		if id == "" {
			id = uuid.NewString()
		}
		alerts = append(alerts, model.VolcanoAlert{
			ID:    id,
			Label: label,
			Lat:   lat,
			Lon:   lon,
		})
	}
	return alerts, nil
}

func (v *Volcano) inWindow(lat, lon float64) bool {
	return lat >= v.centerLat-volcanoTolerance && lat <= v.centerLat+volcanoTolerance &&
		lon >= v.centerLon-volcanoTolerance && lon <= v.centerLon+volcanoTolerance
}

func (v *Volcano) ignored(label string) bool {
	for _, sub := range v.ignore {
		if sub != "" && strings.Contains(label, sub) {
			return true
		}
	}
	return false
}

// rawString decodes a JSON value that may be a string or a number.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// rawFloat decodes a JSON value that may be a number or a numeric string.
// null decodes into a float64 without error, so it needs an explicit check.
func rawFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var n json.Number = json.Number(s)
		if fv, err := n.Float64(); err == nil {
			return fv, true
		}
	}
	return 0, false
}
