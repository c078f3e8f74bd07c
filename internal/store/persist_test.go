package store_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"quakemap/internal/store"
)

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir, time.UTC, day1)

	_ = s.Add(makeEvent(5.5, "Alaska", day1))
	_ = s.Add(makeEvent(3.1, "Nevada", day1))

	if err := s.SaveSnapshot(); err != nil {
		t.Fatalf("save: %v", err)
	}

	events, available, err := store.LoadDay(dir, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if available != 1 {
		t.Errorf("available=%d, want 1", available)
	}
	if len(events) != 2 {
		t.Fatalf("len(events)=%d, want 2", len(events))
	}
	// Newest first, as stored.
	if events[0].Location != "Nevada" || events[1].Location != "Alaska" {
		t.Errorf("unexpected order: %q, %q", events[0].Location, events[1].Location)
	}
	if events[0].Magnitude != 3.1 {
		t.Errorf("magnitude=%v, want 3.1", events[0].Magnitude)
	}
}

func TestLoadDayIndexesNewestFirst(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir, time.UTC, day1)

	// Day 1 holds one event; rolling into day 2 snapshots it.
	_ = s.Add(makeEvent(4.0, "DayOne", day1))
	if err := s.Rollover(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("rollover: %v", err)
	}

	_ = s.Add(makeEvent(6.0, "DayTwo", time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)))
	if err := s.Rollover(time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("rollover: %v", err)
	}

	if n, err := store.DayCount(dir); err != nil || n != 2 {
		t.Fatalf("day count=%d err=%v, want 2", n, err)
	}

	newest, _, err := store.LoadDay(dir, 0)
	if err != nil {
		t.Fatalf("load index 0: %v", err)
	}
	if len(newest) != 1 || newest[0].Location != "DayTwo" {
		t.Errorf("index 0 should be the newest day, got %+v", newest)
	}

	older, _, err := store.LoadDay(dir, 1)
	if err != nil {
		t.Fatalf("load index 1: %v", err)
	}
	if len(older) != 1 || older[0].Location != "DayOne" {
		t.Errorf("index 1 should be the older day, got %+v", older)
	}
}

func TestLoadDayOutOfRange(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir, time.UTC, day1)
	_ = s.Add(makeEvent(4.0, "A", day1))
	if err := s.SaveSnapshot(); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, available, err := store.LoadDay(dir, 3); err == nil {
		t.Error("expected error for out-of-range index")
	} else if available != 1 {
		t.Errorf("available=%d, want 1", available)
	}
	if _, _, err := store.LoadDay(dir, -1); err == nil {
		t.Error("expected error for negative index")
	}
}

func TestLoadDayMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never-created")

	if n, err := store.DayCount(dir); err != nil || n != 0 {
		t.Errorf("missing dir: count=%d err=%v, want 0/nil", n, err)
	}
	if _, _, err := store.LoadDay(dir, 0); err == nil {
		t.Error("expected error loading from an empty dir")
	}
}

func TestLoadDayCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events-20250310.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, _, err := store.LoadDay(dir, 0); err == nil {
		t.Error("corrupt snapshot must propagate a parse error")
	}
}

func TestLoadDayRejectsFutureVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events-20250310.json")
	body := `{"version": 99, "day": "20250310", "events": []}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, _, err := store.LoadDay(dir, 0); err == nil {
		t.Error("snapshot from a future version must be rejected")
	}
}

func TestRolloverSaveFailureIsRecoverable(t *testing.T) {
	// Point the store at a path that exists as a file, so MkdirAll fails.
	base := t.TempDir()
	blocked := filepath.Join(base, "data")
	if err := os.WriteFile(blocked, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := store.New(blocked, time.UTC, day1)
	_ = s.Add(makeEvent(5.0, "A", day1))

	err := s.Rollover(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("expected save error from rollover")
	}
	// In-memory state still rolled: total recorded, ledger cleared.
	if total, ok := s.LastDailyTotal(); !ok || total != 1 {
		t.Errorf("daily total=%d ok=%v, want 1", total, ok)
	}
	if s.Count() != 0 {
		t.Errorf("count=%d after failed-save rollover, want 0", s.Count())
	}
}
