package scheduler

import (
	"errors"
	"testing"
)

func TestParseClock(t *testing.T) {
	t.Parallel()

	valid := map[string]int{"00:00": 0, "08:30": 510, "23:59": 1439}
	for value, want := range valid {
		got, err := ParseClock(value)
		if err != nil {
			t.Fatalf("ParseClock(%q) failed: %v", value, err)
		}
		if got != want {
			t.Fatalf("ParseClock(%q) = %d, want %d", value, got, want)
		}
	}

	for _, value := range []string{"", "8:30", "24:00", "12:60", "ab:cd", "12-30", "12:3", "+1:30"} {
		if _, err := ParseClock(value); !errors.Is(err, ErrInvalidClock) {
			t.Fatalf("expected ErrInvalidClock for %q, got %v", value, err)
		}
	}
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd string
		want                       bool
	}{
		{"partial overlap", "08:00", "09:00", "08:30", "10:00", true},
		{"touching endpoints", "08:00", "09:00", "09:00", "10:00", false},
		{"disjoint", "08:00", "09:00", "09:01", "10:00", false},
		{"containment", "08:00", "12:00", "09:00", "10:00", true},
		{"symmetric", "08:30", "10:00", "08:00", "09:00", true},
	}
	for _, tc := range cases {
		got, err := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	if _, err := Overlaps("08:00", "9", "08:30", "10:00"); !errors.Is(err, ErrInvalidClock) {
		t.Fatalf("expected ErrInvalidClock, got %v", err)
	}
}

func TestDetectConflicts(t *testing.T) {
	t.Parallel()

	morning := Range{Start: 8 * 60, End: 10 * 60}
	existing := []Slot{
		{BookingID: 1, RoomID: 1, Date: "2024-05-01", Range: morning},
		{BookingID: 2, RoomID: 2, Date: "2024-05-01", Range: morning},
		{BookingID: 3, RoomID: 1, Date: "2024-05-02", Range: morning},
		{BookingID: 4, RoomID: 1, Date: "2024-05-01", Range: Range{Start: 10 * 60, End: 11 * 60}},
	}

	t.Run("room overlap produces conflict", func(t *testing.T) {
		candidate := Slot{RoomID: 1, Date: "2024-05-01", Range: Range{Start: 9 * 60, End: 10*60 + 30}}
		conflicts := DetectConflicts(existing, candidate)
		if len(conflicts) != 2 || conflicts[0].WithBookingID != 1 || conflicts[1].WithBookingID != 4 {
			t.Fatalf("expected conflicts with bookings 1 and 4, got %+v", conflicts)
		}
	})

	t.Run("other rooms and dates are ignored", func(t *testing.T) {
		candidate := Slot{RoomID: 3, Date: "2024-05-01", Range: morning}
		if conflicts := DetectConflicts(existing, candidate); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("candidate does not conflict with itself", func(t *testing.T) {
		candidate := existing[0]
		if conflicts := DetectConflicts(existing[:1], candidate); len(conflicts) != 0 {
			t.Fatalf("expected self to be skipped, got %+v", conflicts)
		}
	})
}

func TestIntervalsOverlap(t *testing.T) {
	base := Slot{RoomID: 1, Date: "2024-05-01", Range: Range{Start: 9 * 60, End: 10 * 60}}

	cases := []struct {
		name  string
		other Slot
		want  bool
	}{
		{"same slot", base, true},
		{"touching end", Slot{RoomID: 1, Date: "2024-05-01", Range: Range{Start: 10 * 60, End: 11 * 60}}, false},
		{"other room", Slot{RoomID: 2, Date: "2024-05-01", Range: base.Range}, false},
		{"other date", Slot{RoomID: 1, Date: "2024-05-02", Range: base.Range}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IntervalsOverlap(base, tc.other); got != tc.want {
				t.Fatalf("IntervalsOverlap = %v, want %v", got, tc.want)
			}
		})
	}
}
