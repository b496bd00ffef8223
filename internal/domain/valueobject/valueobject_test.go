package valueobject

import (
	"testing"
	"time"
)

func TestSeverity_Validate(t *testing.T) {
	tests := []struct {
		severity Severity
		wantErr  bool
	}{
		{SeverityCritical, false},
		{SeverityWarning, false},
		{SeverityInfo, false},
		{Severity("fatal"), true},
		{Severity(""), true},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			err := tt.severity.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSeverity_Rank(t *testing.T) {
	if !(SeverityCritical.Rank() > SeverityWarning.Rank() && SeverityWarning.Rank() > SeverityInfo.Rank()) {
		t.Error("severity ranks are not ordered critical > warning > info")
	}
}

func TestConnectionStatus_Degraded(t *testing.T) {
	for _, s := range AllConnectionStatuses() {
		want := s != StatusConnected
		if got := s.Degraded(); got != want {
			t.Errorf("%s.Degraded() = %v, want %v", s, got, want)
		}
	}
}

func TestBuildStatus_Terminal(t *testing.T) {
	tests := map[BuildStatus]bool{
		BuildPending:       false,
		BuildRunning:       false,
		BuildSuccess:       true,
		BuildFailed:        true,
		BuildCancelled:     true,
		BuildStatus("odd"): false,
	}

	for status, want := range tests {
		if got := status.Terminal(); got != want {
			t.Errorf("%q.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestTimeRange(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tr, err := NewTimeRangeEndingAt(now, 10*time.Minute)
	if err != nil {
		t.Fatalf("NewTimeRangeEndingAt() error = %v", err)
	}
	if tr.Duration() != 10*time.Minute {
		t.Errorf("Duration() = %v, want 10m", tr.Duration())
	}
	if !tr.Contains(now.Add(-5 * time.Minute)) {
		t.Error("Contains() = false for time inside range")
	}
	if tr.Contains(now.Add(time.Second)) {
		t.Error("Contains() = true for time after range")
	}

	if _, err := NewTimeRangeEndingAt(now, 0); err == nil {
		t.Error("NewTimeRangeEndingAt(0) error = nil, want error")
	}
	if _, err := NewTimeRange(now, now.Add(-time.Second)); err == nil {
		t.Error("NewTimeRange(end before start) error = nil, want error")
	}
}
