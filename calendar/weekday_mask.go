package calendar

import "time"

// WeekdayMask is the fixed-arity seven-day operating pattern, indexed 0..6 where
// index 0 is Sunday and 6 is Saturday (time.Weekday's own numbering).
type WeekdayMask [7]bool

// NewWeekdayMask builds a mask from sun..sat flags, in time.Weekday order.
func NewWeekdayMask(sun, mon, tue, wed, thu, fri, sat bool) WeekdayMask {
	return WeekdayMask{sun, mon, tue, wed, thu, fri, sat}
}

// Has reports whether wd is an operating day under m.
func (m WeekdayMask) Has(wd time.Weekday) bool {
	return m[int(wd)]
}

// IsZero reports whether no weekday is set.
func (m WeekdayMask) IsZero() bool {
	return m == WeekdayMask{}
}

// Bits packs m into the seven bits 0..6 concatenated MSB-first (bit index 0 is
// the Sunday flag, the spec's identity encoding for ScheduleCalendar).
func (m WeekdayMask) Bits() uint8 {
	var b uint8
	for i, on := range m {
		if on {
			b |= 1 << uint(6-i)
		}
	}
	return b
}

// And returns the bitwise AND of two masks (used for the cheap disjointness
// check before falling back to day-by-day overlap iteration).
func (m WeekdayMask) And(o WeekdayMask) WeekdayMask {
	var r WeekdayMask
	for i := range m {
		r[i] = m[i] && o[i]
	}
	return r
}

// Sub returns m with every bit set in remove cleared; bits not in remove keep
// their current value. This is ScheduleCalendar.clone's mask-subtraction rule.
func (m WeekdayMask) Sub(remove WeekdayMask) WeekdayMask {
	var r WeekdayMask
	for i := range m {
		r[i] = m[i] && !remove[i]
	}
	return r
}

// ShiftForward rotates the mask by one position: Sunday's flag moves to
// Monday, ..., Saturday's flag moves to Sunday.
func (m WeekdayMask) ShiftForward() WeekdayMask {
	var r WeekdayMask
	for i := range m {
		r[(i+1)%7] = m[i]
	}
	return r
}

// ShiftBackward is the inverse of ShiftForward.
func (m WeekdayMask) ShiftBackward() WeekdayMask {
	var r WeekdayMask
	for i := range m {
		r[i] = m[(i+1)%7]
	}
	return r
}
