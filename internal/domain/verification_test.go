package domain

import "testing"

func TestStatus_Passed(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusVerified, true},
		{StatusError, false},
		{StatusOverflow, false},
		{StatusReachable, false},
		{StatusTimeout, false},
		{StatusUnknown, false},
	}
	for _, tt := range tests {
		if got := tt.status.Passed(); got != tt.want {
			t.Errorf("%s.Passed() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestAggregate_Merge(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Aggregate
	}{
		{
			name:     "all passing",
			statuses: []Status{StatusVerified, StatusVerified},
			want:     Aggregate{Passed: 2, Failed: 0, Status: StatusVerified},
		},
		{
			name:     "single failure carries its status",
			statuses: []Status{StatusVerified, StatusOverflow, StatusVerified},
			want:     Aggregate{Passed: 2, Failed: 1, Status: StatusOverflow},
		},
		{
			name:     "late pass does not mask earlier failure",
			statuses: []Status{StatusTimeout, StatusVerified},
			want:     Aggregate{Passed: 1, Failed: 1, Status: StatusTimeout},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := Aggregate{Status: StatusVerified}
			for _, s := range tt.statuses {
				agg.Merge(Outcome{Status: s})
			}
			if agg != tt.want {
				t.Errorf("aggregate = %+v, want %+v", agg, tt.want)
			}
		})
	}
}
