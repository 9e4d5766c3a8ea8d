package model

import (
	"testing"
	"time"
)

func TestNewFlightEvent(t *testing.T) {
	tests := []struct {
		typ         EventType
		wantTitle   string
		wantSummary string
	}{
		{EventCrash, "light at (100.0, 20.0, -3.5)", "31.2 m/s, vertical -18.4 m/s"},
		{EventTakeoff, "light at (100.0, 20.0, -3.5)", "31.2 m/s"},
		{EventReset, "light at (100.0, 20.0, -3.5)", ""},
	}
	for _, tt := range tests {
		e := NewFlightEvent("f1", "light", tt.typ, 100, 20, -3.5, 31.24, -18.4)
		if e.Title != tt.wantTitle {
			t.Errorf("%s: title = %q, want %q", tt.typ, e.Title, tt.wantTitle)
		}
		if e.Summary != tt.wantSummary {
			t.Errorf("%s: summary = %q, want %q", tt.typ, e.Summary, tt.wantSummary)
		}
		if e.FlightID != "f1" || e.Timestamp.IsZero() {
			t.Errorf("%s: missing identity fields: %+v", tt.typ, e)
		}
	}
}

func TestFlight_Duration(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := Flight{StartedAt: start}
	if !f.Active() {
		t.Error("flight without end time should be active")
	}

	f.EndedAt = start.Add(90 * time.Second)
	if f.Active() {
		t.Error("ended flight reported active")
	}
	if got := f.Duration(); got != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", got)
	}
}
