package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rustproof/rustproof/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveAndList(t *testing.T) {
	s := openTestStore(t)

	started := time.Now().Add(-time.Minute).UTC()
	run := &Run{
		ID:         uuid.NewString(),
		CrateDir:   "/work/example",
		Backend:    "klee",
		Status:     domain.StatusOverflow,
		Passed:     2,
		Failed:     1,
		StartedAt:  started,
		FinishedAt: started.Add(30 * time.Second),
	}
	outcomes := []domain.Outcome{
		{
			Entry:    domain.EntryPoint{DisplayName: "tests::t1"},
			Status:   domain.StatusVerified,
			Stats:    domain.Statistics{"total instructions": 100},
			Duration: 4 * time.Second,
		},
		{
			Entry:  domain.EntryPoint{DisplayName: "tests::t2"},
			Status: domain.StatusOverflow,
			Stats:  domain.Statistics{},
		},
	}

	if err := s.SaveRun(run, outcomes); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	runs, err := s.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.ID != run.ID || got.Status != domain.StatusOverflow || got.Passed != 2 || got.Failed != 1 {
		t.Errorf("run = %+v, want %+v", got, run)
	}

	entries, err := s.RunEntries(run.ID)
	if err != nil {
		t.Fatalf("RunEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Entry.DisplayName != "tests::t1" || entries[0].Stats["total instructions"] != 100 {
		t.Errorf("entry = %+v", entries[0])
	}
	if entries[0].Duration != 4*time.Second {
		t.Errorf("duration = %s, want 4s", entries[0].Duration)
	}
}

func TestStore_RecentRunsOrderAndLimit(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		run := &Run{
			ID:         uuid.NewString(),
			CrateDir:   "/work/example",
			Backend:    "klee",
			Status:     domain.StatusVerified,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		}
		if err := s.SaveRun(run, nil); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	runs, err := s.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Errorf("runs not ordered newest first: %v then %v", runs[0].StartedAt, runs[1].StartedAt)
	}
}
