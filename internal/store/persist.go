package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"quakemap/internal/model"
)

// snapshotVersion tags the envelope so future format changes can still
// read old day files.
const snapshotVersion = 1

const (
	snapshotPrefix = "events-"
	snapshotSuffix = ".json"
)

// snapshotFile is the on-disk envelope for one day's ledger.
type snapshotFile struct {
	Version int                `json:"version"`
	Day     string             `json:"day"`
	SavedAt time.Time          `json:"saved_at"`
	Events  []model.QuakeEvent `json:"events"`
}

// saveSnapshot writes the ledger for day (YYYYMMDD) atomically: temp
// file in the same directory, then rename.
func saveSnapshot(dir, day string, events []model.QuakeEvent) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("store: create data dir: %w", err)
	}

	snap := snapshotFile{
		Version: snapshotVersion,
		Day:     day,
		SavedAt: time.Now().UTC(),
		Events:  events,
	}
	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}

	final := filepath.Join(dir, snapshotPrefix+day+snapshotSuffix)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, final)
}

// LoadDay returns the ledger persisted for the index-th most recent day
// (0 = newest) along with the total number of available day files.
// Unlike save failures, a load failure has no sensible fallback and is
// always propagated.
func LoadDay(dir string, index int) ([]model.QuakeEvent, int, error) {
	days, err := listDayFiles(dir)
	if err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(days) {
		return nil, len(days), fmt.Errorf("store: no snapshot for day index %d (%d available)", index, len(days))
	}

	// Day keys sort lexicographically, so the newest file is last.
	path := filepath.Join(dir, days[len(days)-1-index])
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, len(days), fmt.Errorf("store: read snapshot %s: %w", path, err)
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, len(days), fmt.Errorf("store: parse snapshot %s: %w", path, err)
	}
	if snap.Version > snapshotVersion {
		return nil, len(days), fmt.Errorf("store: snapshot %s has unsupported version %d", path, snap.Version)
	}
	return snap.Events, len(days), nil
}

// DayCount returns the number of day snapshot files on disk.
func DayCount(dir string) (int, error) {
	days, err := listDayFiles(dir)
	if err != nil {
		return 0, err
	}
	return len(days), nil
}

func listDayFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read data dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
