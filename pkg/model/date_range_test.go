package model

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		wantErr bool
	}{
		{name: "valid range", start: "2026-03-01", end: "2026-03-05"},
		{name: "single night", start: "2026-03-01", end: "2026-03-02"},
		{name: "bad start format", start: "01-03-2026", end: "2026-03-05", wantErr: true},
		{name: "bad end format", start: "2026-03-01", end: "march 5", wantErr: true},
		{name: "empty start", start: "", end: "2026-03-05", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := ParseDateRange(tt.start, tt.end)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", rng)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rng.Start.Hour() != 0 || rng.Start.Location() != time.UTC {
				t.Errorf("start not normalized to UTC midnight: %v", rng.Start)
			}
		})
	}
}

func TestDateRangeOverlaps(t *testing.T) {
	base := DateRange{Start: date("2026-03-05"), End: date("2026-03-10")}

	tests := []struct {
		name  string
		other DateRange
		want  bool
	}{
		{"identical", DateRange{date("2026-03-05"), date("2026-03-10")}, true},
		{"contained", DateRange{date("2026-03-06"), date("2026-03-08")}, true},
		{"overlap start", DateRange{date("2026-03-03"), date("2026-03-06")}, true},
		{"overlap end", DateRange{date("2026-03-09"), date("2026-03-12")}, true},
		{"adjacent before", DateRange{date("2026-03-01"), date("2026-03-05")}, false},
		{"adjacent after", DateRange{date("2026-03-10"), date("2026-03-14")}, false},
		{"disjoint", DateRange{date("2026-04-01"), date("2026-04-03")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Overlaps(tt.other); got != tt.want {
				t.Errorf("Overlaps(%v) = %v, want %v", tt.other, got, tt.want)
			}
			// Overlap is symmetric.
			if got := tt.other.Overlaps(base); got != tt.want {
				t.Errorf("reverse Overlaps(%v) = %v, want %v", base, got, tt.want)
			}
		})
	}
}

func TestDateRangeNights(t *testing.T) {
	rng := DateRange{Start: date("2026-03-01"), End: date("2026-03-04")}

	if got := rng.NightCount(); got != 3 {
		t.Fatalf("NightCount() = %d, want 3", got)
	}

	nights := rng.Nights()
	if len(nights) != 3 {
		t.Fatalf("Nights() returned %d entries, want 3", len(nights))
	}
	// Checkout day is not a night.
	last := nights[len(nights)-1]
	if !last.Equal(date("2026-03-03")) {
		t.Errorf("last night = %v, want 2026-03-03", last)
	}
}

func TestLockBucketID(t *testing.T) {
	got := LockBucketID("listing-42", date("2026-03-01"))
	want := "listing-42:2026-03-01"
	if got != want {
		t.Errorf("LockBucketID = %q, want %q", got, want)
	}
}

func TestIntentExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	intent := &BookingIntent{
		State:     IntentActive,
		ExpiresAt: now.Add(10 * time.Minute),
	}

	if intent.ExpiredAt(now) {
		t.Error("intent with future expiry reported expired")
	}
	if !intent.HoldsLockAt(now) {
		t.Error("active intent with future expiry should hold its lock")
	}
	if got := intent.RemainingSeconds(now); got != 600 {
		t.Errorf("RemainingSeconds = %d, want 600", got)
	}

	// A lapsed lease loses the lock even while the state is still active.
	lapsed := &BookingIntent{
		State:     IntentActive,
		ExpiresAt: now.Add(-time.Second),
	}
	if !lapsed.ExpiredAt(now) {
		t.Error("lapsed intent not reported expired")
	}
	if lapsed.HoldsLockAt(now) {
		t.Error("lapsed intent should not hold its lock")
	}
	if got := lapsed.RemainingSeconds(now); got != 0 {
		t.Errorf("RemainingSeconds = %d, want 0", got)
	}
}

func TestIntentStateTerminal(t *testing.T) {
	if IntentActive.Terminal() {
		t.Error("active must not be terminal")
	}
	for _, s := range []IntentState{IntentConfirmed, IntentCancelled, IntentExpired} {
		if !s.Terminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}
