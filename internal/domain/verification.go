// Package domain holds the shared value types of the verification harness.
package domain

import "time"

// Status is the closed verification-status taxonomy. Every entry point ends
// up with exactly one Status per run.
type Status string

const (
	StatusVerified  Status = "VERIFIED"
	StatusError     Status = "ERROR"
	StatusOverflow  Status = "OVERFLOW"
	StatusReachable Status = "REACHABLE"
	StatusTimeout   Status = "TIMEOUT"
	StatusUnknown   Status = "UNKNOWN"
)

// Passed reports whether the status counts toward the aggregate pass count.
// StatusVerified is the only success value.
func (s Status) Passed() bool {
	return s == StatusVerified
}

// EntryPoint identifies one independently verifiable unit of a compiled
// artifact. DisplayName is the dotted path used in reports, MangledName is
// the binary symbol handed to the backend as point of entry.
type EntryPoint struct {
	DisplayName string
	MangledName string
}

// Statistics maps a backend metric name to its count. Purely informational;
// statistics never influence classification.
type Statistics map[string]int64

// Outcome is the completed result of verifying a single entry point.
type Outcome struct {
	Entry    EntryPoint
	Status   Status
	Stats    Statistics
	Duration time.Duration
}

// Aggregate is the final result of a whole run. Status is StatusVerified
// exactly when Failed is zero; otherwise it carries the status of one of the
// failing entries. Which one is unspecified when several entries fail.
type Aggregate struct {
	Passed int
	Failed int
	Status Status
}

// Merge folds one outcome into the aggregate.
func (a *Aggregate) Merge(o Outcome) {
	if o.Status.Passed() {
		a.Passed++
		if a.Failed == 0 {
			a.Status = StatusVerified
		}
		return
	}
	a.Failed++
	a.Status = o.Status
}
