// Package web exposes the status HTTP API: health, current ledger
// statistics, the ledger itself, and Prometheus metrics.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quakemap/internal/config"
	appLog "quakemap/internal/log"
	"quakemap/internal/model"
	"quakemap/internal/store"
)

// Server provides the read-only status API over the event store.
type Server struct {
	cfg *config.Config
	st  *store.Store
	mux *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, st *store.Store) *Server {
	s := &Server{
		cfg: cfg,
		st:  st,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.Handle("/metrics", promhttp.Handler())
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health is always reachable without credentials.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="QuakeMap", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// statusResponse is the JSON response shape for /api/status.
type statusResponse struct {
	EventCount   int       `json:"event_count"`
	LargestMag   *float64  `json:"largest_mag"`
	TrendMarker  string    `json:"trend_marker"`
	LargestAt    string    `json:"largest_location"`
	ActiveRegion string    `json:"active_region"`
	LastEventAt  time.Time `json:"last_event_at,omitzero"`
	HourlyCounts [24]int   `json:"hourly_counts"`
	LastDayTotal *int      `json:"last_day_total"`
	DailyDelta   string    `json:"daily_delta"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	mag, marker, location := s.st.Largest()

	// Preserving read: the status API must not consume the poll-to-poll
	// active-region window the summary page depends on.
	region, _ := s.st.ActiveRegion(true)

	resp := statusResponse{
		EventCount:   s.st.Count(),
		LargestMag:   mag,
		TrendMarker:  string(marker),
		LargestAt:    location,
		ActiveRegion: region,
		HourlyCounts: s.st.HourlyCounts(),
		DailyDelta:   string(s.st.DailyDelta()),
	}
	if ev, ok := s.st.Newest(); ok {
		resp.LastEventAt = ev.ObservedAt
	}
	if total, ok := s.st.LastDailyTotal(); ok {
		resp.LastDayTotal = &total
	}

	writeJSON(w, http.StatusOK, resp)
}

// eventDTO is a JSON-friendly view of one ledger entry.
type eventDTO struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Lon        float64   `json:"lon"`
	Lat        float64   `json:"lat"`
	Magnitude  float64   `json:"magnitude"`
	Depth      float64   `json:"depth"`
	Alert      string    `json:"alert,omitempty"`
	Tsunami    bool      `json:"tsunami,omitempty"`
	Location   string    `json:"location"`
	Severity   string    `json:"severity"`
	ObservedAt time.Time `json:"observed_at"`
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	events := s.st.Events()
	dtos := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, eventDTO{
			ID:         ev.ID,
			Source:     ev.Source,
			Lon:        ev.Lon,
			Lat:        ev.Lat,
			Magnitude:  ev.Magnitude,
			Depth:      ev.Depth,
			Alert:      string(ev.Alert),
			Tsunami:    ev.Tsunami,
			Location:   ev.Location,
			Severity:   model.SeverityForMagnitude(ev.Magnitude).String(),
			ObservedAt: ev.ObservedAt,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Events []eventDTO `json:"events"`
	}{Events: dtos})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}
