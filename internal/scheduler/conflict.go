package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidClock is returned when a clock time is not a valid 24h HH:MM value.
var ErrInvalidClock = errors.New("scheduler: invalid clock time")

// ParseClock converts an HH:MM clock time into minutes since midnight.
func ParseClock(value string) (int, error) {
	hh, mm, ok := strings.Cut(value, ":")
	if !ok || !twoDigits(hh) || !twoDigits(mm) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	hours, err := strconv.Atoi(hh)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return hours*60 + minutes, nil
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// Overlaps reports whether the half-open clock ranges [aStart,aEnd) and
// [bStart,bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd string) (bool, error) {
	a, err := NewRange(aStart, aEnd)
	if err != nil {
		return false, err
	}
	b, err := NewRange(bStart, bEnd)
	if err != nil {
		return false, err
	}
	return a.Overlaps(b), nil
}

// Range is a half-open interval of minutes since midnight.
type Range struct {
	Start int
	End   int
}

// NewRange parses both ends of a clock range.
func NewRange(start, end string) (Range, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Range{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: s, End: e}, nil
}

// Overlaps reports whether two ranges intersect.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// Slot is a booked clock range in a room on a calendar date.
type Slot struct {
	BookingID int64
	RoomID    int64
	Date      string
	Range     Range
}

// IntervalsOverlap reports whether two slots collide: same room, same date
// and intersecting ranges.
func IntervalsOverlap(a, b Slot) bool {
	return a.RoomID == b.RoomID && a.Date == b.Date && a.Range.Overlaps(b.Range)
}

// Conflict names an existing slot that overlaps a candidate.
type Conflict struct {
	WithBookingID int64
	RoomID        int64
	Date          string
}

// DetectConflicts returns every existing slot in the candidate's room and date
// whose range overlaps the candidate. The candidate's own booking id is skipped.
func DetectConflicts(existing []Slot, candidate Slot) []Conflict {
	var conflicts []Conflict
	for _, slot := range existing {
		if candidate.BookingID != 0 && slot.BookingID == candidate.BookingID {
			continue
		}
		if !IntervalsOverlap(slot, candidate) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithBookingID: slot.BookingID,
			RoomID:        slot.RoomID,
			Date:          slot.Date,
		})
	}
	return conflicts
}
