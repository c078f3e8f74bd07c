package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"quakemap/internal/model"
)

const emscBaseURL = "https://www.seismicportal.eu/fdsnws/event/1/query"

// EMSC is the regional feed: the European-Mediterranean seismic portal.
// Unlike the global feed it takes a query window and a result limit.
type EMSC struct {
	client  *resty.Client
	baseURL string
	limit   int
}

type emscResponse struct {
	Features []struct {
		ID         string `json:"id"`
		Properties struct {
			Lon         *float64 `json:"lon"`
			Lat         *float64 `json:"lat"`
			Mag         *float64 `json:"mag"`
			Depth       float64  `json:"depth"`
			FlynnRegion string   `json:"flynn_region"`
		} `json:"properties"`
	} `json:"features"`
}

// NewEMSC builds the regional feed client. baseURL overrides the portal
// endpoint in tests; empty means production. limit <= 0 means 1.
func NewEMSC(timeout time.Duration, baseURL string, limit int) *EMSC {
	if baseURL == "" {
		baseURL = emscBaseURL
	}
	if limit <= 0 {
		limit = 1
	}
	return &EMSC{client: newClient(timeout), baseURL: baseURL, limit: limit}
}

func (e *EMSC) Name() string { return "emsc" }

// Fetch queries the portal for the most recent event inside the window.
func (e *EMSC) Fetch(ctx context.Context, window model.FeedWindow) (model.QuakeEvent, error) {
	start := time.Now().UTC().Add(-window.Duration())

	var body emscResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"limit":     fmt.Sprintf("%d", e.limit),
			"format":    "json",
			"starttime": start.Format("2006-01-02T15:04:05"),
		}).
		SetResult(&body).
		Get(e.baseURL)
	if err != nil {
		return model.QuakeEvent{}, transportErr(e.Name(), err)
	}
	switch resp.StatusCode() {
	case 200:
	case 204:
		// The portal answers 204 when the window holds no events.
		return model.QuakeEvent{}, parseErr(e.Name(), "features", errors.New("no events in window"))
	default:
		return model.QuakeEvent{}, transportErr(e.Name(), fmt.Errorf("status %d", resp.StatusCode()))
	}
	if len(body.Features) == 0 {
		return model.QuakeEvent{}, parseErr(e.Name(), "features", errors.New("empty feature list"))
	}

	p := body.Features[0].Properties
	if p.Mag == nil {
		return model.QuakeEvent{}, parseErr(e.Name(), "magnitude", errors.New("missing or non-numeric"))
	}
	if p.Lon == nil || p.Lat == nil {
		return model.QuakeEvent{}, parseErr(e.Name(), "coordinates", errors.New("missing lon/lat"))
	}

	id := body.Features[0].ID
	if id == "" {
		id = uuid.NewString()
	}

	// EMSC does not report tsunami or alert level; both stay absent.
	return model.QuakeEvent{
		ID:         id,
		Source:     e.Name(),
		Lon:        round2(*p.Lon),
		Lat:        round2(*p.Lat),
		Magnitude:  round2(*p.Mag),
		Depth:      p.Depth,
		Location:   p.FlynnRegion,
		ObservedAt: time.Now(),
	}, nil
}
