// Package store keeps the in-memory ledger of accepted events for the
// current day, the derived statistics (largest event, active region,
// hourly and daily trend), and the day-keyed snapshot persistence.
package store

import (
	"errors"
	"sync"
	"time"

	"quakemap/internal/metrics"
	"quakemap/internal/model"
)

// ErrRejectedEvent is returned by Add for non-finite or non-positive
// magnitudes. The ledger is left untouched.
var ErrRejectedEvent = errors.New("store: rejected event: invalid magnitude")

const hoursPerDay = 24

// Store owns the event ledger and all derived state. The cooperative
// scheduler loop is the only hot-path writer, but the status API and
// the cron snapshot job read concurrently, so access is mutex-guarded.
type Store struct {
	mu sync.Mutex

	dataDir string
	loc     *time.Location

	// ledger is newest-first and unbounded within a day.
	ledger []model.QuakeEvent

	// tally counts location labels since the last non-preserving
	// ActiveRegion read. Only Add ever inserts.
	tally map[string]int

	// hourly counts accepted events per local hour-of-day.
	hourly [hoursPerDay]int

	// dailyTotals is append-only: one total per completed day.
	dailyTotals []int

	// currentDay keys the snapshot file for the ledger's contents.
	currentDay string

	// lastRolloverDay latches Rollover to at most once per calendar
	// day. Re-arms by itself when the day key changes.
	lastRolloverDay string
}

// New creates a Store for the given snapshot directory and timezone.
// now anchors the initial day key.
func New(dataDir string, loc *time.Location, now time.Time) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		dataDir:    dataDir,
		loc:        loc,
		tally:      make(map[string]int),
		currentDay: dayKey(now.In(loc)),
	}
}

func dayKey(t time.Time) string {
	return t.Format("20060102")
}

// Add accepts ev into the ledger, or returns ErrRejectedEvent when the
// magnitude is not a finite number > 0. Deduplication is the caller's
// job; Add never inspects prior entries.
func (s *Store) Add(ev model.QuakeEvent) error {
	if !ev.ValidMagnitude() {
		metrics.EventsRejected.Inc()
		return ErrRejectedEvent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger = append([]model.QuakeEvent{ev}, s.ledger...)
	if ev.Location != "" {
		s.tally[ev.Location]++
	}
	hour := ev.ObservedAt.In(s.loc).Hour()
	s.hourly[hour]++

	metrics.EventsAccepted.WithLabelValues(ev.Source).Inc()
	metrics.LedgerSize.Set(float64(len(s.ledger)))
	return nil
}

// Count returns the current ledger size.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledger)
}

// Newest returns the most recently accepted event, if any.
func (s *Store) Newest() (model.QuakeEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ledger) == 0 {
		return model.QuakeEvent{}, false
	}
	return s.ledger[0], true
}

// Events returns a copy of the ledger, newest first.
func (s *Store) Events() []model.QuakeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.QuakeEvent, len(s.ledger))
	copy(out, s.ledger)
	return out
}

// Largest returns the maximum magnitude in the ledger, the trend marker
// comparing the two most recently accepted magnitudes (by insertion
// order, not by value), and the location of the first ledger entry
// whose magnitude equals the maximum. mag is nil on an empty ledger.
func (s *Store) Largest() (mag *float64, marker model.TrendMarker, location string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ledger) == 0 {
		return nil, model.TrendNone, ""
	}

	max := s.ledger[0].Magnitude
	for _, ev := range s.ledger[1:] {
		if ev.Magnitude > max {
			max = ev.Magnitude
		}
	}
	for _, ev := range s.ledger {
		if ev.Magnitude == max {
			location = ev.Location
			break
		}
	}

	marker = model.TrendNone
	if len(s.ledger) >= 2 {
		switch {
		case s.ledger[0].Magnitude > s.ledger[1].Magnitude:
			marker = model.TrendIncreasing
		case s.ledger[0].Magnitude < s.ledger[1].Magnitude:
			marker = model.TrendDecreasing
		default:
			marker = model.TrendSteady
		}
	}

	m := max
	return &m, marker, location
}

// ActiveRegion returns the most frequent location label recorded since
// the last non-preserving read. When preserve is false the tally is
// cleared as a side effect, so each read covers a poll-to-poll window.
func (s *Store) ActiveRegion(preserve bool) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tally) == 0 {
		return "", false
	}

	best := ""
	bestCount := 0
	for label, n := range s.tally {
		if n > bestCount || (n == bestCount && label < best) {
			best = label
			bestCount = n
		}
	}

	if !preserve {
		s.tally = make(map[string]int)
	}
	return best, true
}

// HourlyCounts returns a snapshot of the 24-slot hourly trend.
func (s *Store) HourlyCounts() [hoursPerDay]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hourly
}

// LastDailyTotal returns the most recent completed day's event total.
// ok is false when no day has completed yet.
func (s *Store) LastDailyTotal() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.dailyTotals) == 0 {
		return 0, false
	}
	return s.dailyTotals[len(s.dailyTotals)-1], true
}

// DailyDelta compares the two most recent daily totals.
func (s *Store) DailyDelta() model.TrendMarker {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.dailyTotals)
	if n < 2 {
		return model.TrendNone
	}
	switch {
	case s.dailyTotals[n-1] > s.dailyTotals[n-2]:
		return model.TrendIncreasing
	case s.dailyTotals[n-1] < s.dailyTotals[n-2]:
		return model.TrendDecreasing
	default:
		return model.TrendSteady
	}
}

// Rollover performs the day-boundary transition: appends the current
// ledger size to the daily totals, persists the ending day's snapshot,
// resets the hourly trend, and clears the ledger. It is latched to at
// most once per local calendar day; extra calls inside the same hour==0
// window are no-ops.
func (s *Store) Rollover(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(now.In(s.loc))
	if key == s.lastRolloverDay {
		return nil
	}
	s.lastRolloverDay = key

	s.dailyTotals = append(s.dailyTotals, len(s.ledger))

	var saveErr error
	if s.dataDir != "" {
		saveErr = saveSnapshot(s.dataDir, s.currentDay, s.ledger)
		if saveErr != nil {
			metrics.SnapshotSaves.WithLabelValues("error").Inc()
		} else {
			metrics.SnapshotSaves.WithLabelValues("ok").Inc()
		}
	}

	s.hourly = [hoursPerDay]int{}
	s.ledger = nil
	s.currentDay = key

	metrics.Rollovers.Inc()
	metrics.LedgerSize.Set(0)

	// Save failure is recoverable: the periodic snapshot path retries.
	return saveErr
}

// SaveSnapshot persists the current ledger under the current day key.
// Used by the periodic cron save so a crash loses at most one interval.
func (s *Store) SaveSnapshot() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataDir == "" {
		return nil
	}
	err := saveSnapshot(s.dataDir, s.currentDay, s.ledger)
	if err != nil {
		metrics.SnapshotSaves.WithLabelValues("error").Inc()
		return err
	}
	metrics.SnapshotSaves.WithLabelValues("ok").Inc()
	return nil
}

// Clear empties the ledger without persisting. Distinct from Rollover:
// this is the discard path.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = nil
	metrics.LedgerSize.Set(0)
}
