package store

import "fmt"

// IsDuplicate reports whether an event at (lon, lat) is already
// represented by the single most recently accepted ledger entry.
//
// Coordinates are compared as "%.2f"-formatted strings to tolerate
// minor precision drift between feeds reporting the same physical
// event. Only the newest entry is consulted: this bounds the check to
// O(1) and matches the case of two feeds reporting the same quake in
// the same polling cycle. Two feeds that round the same event to
// different hundredths slip through; that false negative is a known
// limitation of the comparison, kept deliberately.
func (s *Store) IsDuplicate(lon, lat float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ledger) == 0 {
		return false
	}
	last := s.ledger[0]
	return coordKey(lon) == coordKey(last.Lon) && coordKey(lat) == coordKey(last.Lat)
}

func coordKey(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
