package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"quakemap/internal/model"
)

const usgsBaseURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary"

// USGS is the global feed: the single most recent worldwide event from
// the USGS GeoJSON summary for the selected window.
type USGS struct {
	client  *resty.Client
	baseURL string
}

// usgsResponse mirrors the GeoJSON summary shape. Mandatory numeric
// fields decode into pointers so that null/absent can be told apart
// from zero.
type usgsResponse struct {
	Features []struct {
		ID         string `json:"id"`
		Properties struct {
			Mag     *float64 `json:"mag"`
			Place   string   `json:"place"`
			Alert   *string  `json:"alert"`
			Tsunami int      `json:"tsunami"`
		} `json:"properties"`
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // lon, lat, depth
		} `json:"geometry"`
	} `json:"features"`
}

// NewUSGS builds the global feed client. baseURL overrides the USGS
// endpoint in tests; empty means production.
func NewUSGS(timeout time.Duration, baseURL string) *USGS {
	if baseURL == "" {
		baseURL = usgsBaseURL
	}
	return &USGS{client: newClient(timeout), baseURL: baseURL}
}

func (u *USGS) Name() string { return "usgs" }

// Fetch returns the most recent event in the window. The feed is sorted
// newest first, so only features[0] is consulted.
func (u *USGS) Fetch(ctx context.Context, window model.FeedWindow) (model.QuakeEvent, error) {
	url := fmt.Sprintf("%s/all_%s.geojson", u.baseURL, windowSlug(window))

	var body usgsResponse
	resp, err := u.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get(url)
	if err != nil {
		return model.QuakeEvent{}, transportErr(u.Name(), err)
	}
	if resp.StatusCode() != 200 {
		return model.QuakeEvent{}, transportErr(u.Name(), fmt.Errorf("status %d", resp.StatusCode()))
	}
	if len(body.Features) == 0 {
		return model.QuakeEvent{}, parseErr(u.Name(), "features", errors.New("empty feature list"))
	}

	f := body.Features[0]
	if f.Properties.Mag == nil {
		return model.QuakeEvent{}, parseErr(u.Name(), "magnitude", errors.New("missing or non-numeric"))
	}
	if len(f.Geometry.Coordinates) < 2 {
		return model.QuakeEvent{}, parseErr(u.Name(), "coordinates", errors.New("fewer than 2 values"))
	}

	id := f.ID
	if id == "" {
		id = uuid.NewString()
	}
	alert := model.AlertNone
	if f.Properties.Alert != nil {
		alert = model.ParseAlertLevel(*f.Properties.Alert)
	}
	depth := 0.0
	if len(f.Geometry.Coordinates) >= 3 {
		depth = f.Geometry.Coordinates[2]
	}

	return model.QuakeEvent{
		ID:         id,
		Source:     u.Name(),
		Lon:        round2(f.Geometry.Coordinates[0]),
		Lat:        round2(f.Geometry.Coordinates[1]),
		Magnitude:  round2(*f.Properties.Mag),
		Depth:      depth,
		Alert:      alert,
		Tsunami:    f.Properties.Tsunami != 0,
		Location:   trimPlace(f.Properties.Place),
		ObservedAt: time.Now(),
	}, nil
}

func windowSlug(w model.FeedWindow) string {
	switch w {
	case model.WindowDay, model.WindowWeek, model.WindowMonth:
		return string(w)
	default:
		return "hour"
	}
}

// trimPlace strips the "NN km W of " distance prefix USGS puts in front
// of the place name; the map marker already conveys position.
func trimPlace(place string) string {
	const marker = " of "
	if i := strings.Index(place, marker); i >= 0 {
		return place[i+len(marker):]
	}
	return place
}
