package sched

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rustproof/rustproof/internal/domain"
)

// stubRunner reports canned statuses keyed by display name and tracks the
// peak number of concurrent invocations.
type stubRunner struct {
	statuses map[string]domain.Status
	active   atomic.Int32
	peak     atomic.Int32
}

func (r *stubRunner) Verify(_ context.Context, _ string, e domain.EntryPoint) domain.Outcome {
	n := r.active.Add(1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	r.active.Add(-1)

	status, ok := r.statuses[e.DisplayName]
	if !ok {
		status = domain.StatusVerified
	}
	return domain.Outcome{Entry: e, Status: status}
}

func makeEntries(n int) []domain.EntryPoint {
	entries := make([]domain.EntryPoint, n)
	for i := range entries {
		entries[i] = domain.EntryPoint{DisplayName: fmt.Sprintf("tests::t%02d", i)}
	}
	return entries
}

func TestRun_TotalsAtEveryPoolWidth(t *testing.T) {
	entries := makeEntries(9)
	statuses := map[string]domain.Status{
		"tests::t02": domain.StatusOverflow,
		"tests::t05": domain.StatusTimeout,
	}

	for _, workers := range []int{1, 4, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			runner := &stubRunner{statuses: statuses}
			results, agg := Run(context.Background(), runner, "a.bc", entries, workers, nil)

			if len(results) != len(entries) {
				t.Fatalf("got %d results, want %d", len(results), len(entries))
			}
			if agg.Passed+agg.Failed != len(entries) {
				t.Errorf("passed %d + failed %d != total %d", agg.Passed, agg.Failed, len(entries))
			}
			if agg.Passed != 7 || agg.Failed != 2 {
				t.Errorf("passed/failed = %d/%d, want 7/2", agg.Passed, agg.Failed)
			}
			if agg.Status == domain.StatusVerified {
				t.Error("aggregate VERIFIED despite failures")
			}
			if peak := runner.peak.Load(); int(peak) > workers {
				t.Errorf("peak concurrency %d exceeded pool width %d", peak, workers)
			}
			// Results stay addressable by submission index regardless of
			// completion order.
			for i, o := range results {
				if o.Entry.DisplayName != entries[i].DisplayName {
					t.Errorf("result[%d] = %s, want %s", i, o.Entry.DisplayName, entries[i].DisplayName)
				}
			}
		})
	}
}

func TestRun_AggregateVerifiedIffNoFailures(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[string]domain.Status
		want     domain.Status
	}{
		{"all pass", nil, domain.StatusVerified},
		{"one failure", map[string]domain.Status{"tests::t01": domain.StatusError}, domain.StatusError},
		{"failing statuses mixed", map[string]domain.Status{
			"tests::t00": domain.StatusReachable,
			"tests::t01": domain.StatusReachable,
			"tests::t02": domain.StatusReachable,
		}, domain.StatusReachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{statuses: tt.statuses}
			_, agg := Run(context.Background(), runner, "a.bc", makeEntries(3), 4, nil)
			if agg.Status != tt.want {
				t.Errorf("aggregate status = %s, want %s", agg.Status, tt.want)
			}
			if (agg.Failed == 0) != (agg.Status == domain.StatusVerified) {
				t.Errorf("status %s inconsistent with failed count %d", agg.Status, agg.Failed)
			}
		})
	}
}

func TestRun_NoEntries(t *testing.T) {
	runner := &stubRunner{}
	results, agg := Run(context.Background(), runner, "a.bc", nil, 4, nil)
	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
	if agg.Status != domain.StatusVerified || agg.Passed != 0 || agg.Failed != 0 {
		t.Errorf("aggregate = %+v, want zero counts and VERIFIED", agg)
	}
}

func TestRun_OnResultSeesEveryOutcome(t *testing.T) {
	runner := &stubRunner{statuses: map[string]domain.Status{"tests::t01": domain.StatusError}}
	seen := make(map[string]domain.Status)
	Run(context.Background(), runner, "a.bc", makeEntries(5), 3, func(o domain.Outcome) {
		seen[o.Entry.DisplayName] = o.Status
	})
	if len(seen) != 5 {
		t.Errorf("callback saw %d outcomes, want 5", len(seen))
	}
	if seen["tests::t01"] != domain.StatusError {
		t.Errorf("callback status for tests::t01 = %s, want ERROR", seen["tests::t01"])
	}
}
