package calendar

import "sort"

// Overlap is the result of comparing two ScheduleCalendars for shared operating
// days.
type Overlap int

const (
	// OverlapNone means the two calendars share no operating day.
	OverlapNone Overlap = iota
	// OverlapShort means the two calendars share at least one operating day.
	OverlapShort
)

// Calendar is a date range [From, To] (inclusive, calendar-day resolution), a
// weekday mask, and a set of excluded dates. It is the ScheduleCalendar of the
// spec: immutable once built — every operation below returns a fresh value (or
// nil, for operations that can collapse a calendar to no operating days).
type Calendar struct {
	From    Date
	To      Date
	Mask    WeekdayMask
	Exclude map[Date]struct{}
}

// New builds a Calendar, filtering excludes to those inside [from, to] per the
// spec's invariant that the exclusion set only ever contains in-range dates.
func New(from, to Date, mask WeekdayMask, excludes map[Date]struct{}) *Calendar {
	filtered := make(map[Date]struct{}, len(excludes))
	for d := range excludes {
		if !d.Before(from) && !d.After(to) {
			filtered[d] = struct{}{}
		}
	}
	return &Calendar{From: from, To: to, Mask: mask, Exclude: filtered}
}

// SortedExcludes returns the exclusion set in ascending date order, used both
// for the spec's identity definition and for calendar_dates.txt emission.
func (c *Calendar) SortedExcludes() []Date {
	out := make([]Date, 0, len(c.Exclude))
	for d := range c.Exclude {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Identity is the spec's ScheduleCalendar identity: runsFrom, runsTo, the 7-bit
// mask, and the sorted exclusion set, concatenated into a stable string suitable
// for use as a dedup/grouping key.
func (c *Calendar) Identity() string {
	s := c.From.Compact() + "_" + c.To.Compact() + "_" + formatBits(c.Mask.Bits())
	for _, d := range c.SortedExcludes() {
		s += "_" + d.Compact()
	}
	return s
}

func formatBits(b uint8) string {
	out := make([]byte, 7)
	for i := 0; i < 7; i++ {
		if b&(1<<uint(6-i)) != 0 {
			out[i] = '1'
		} else {
			out[i] = '0'
		}
	}
	return string(out)
}

func (c *Calendar) isExcluded(d Date) bool {
	_, ok := c.Exclude[d]
	return ok
}

// ActiveOn reports whether c has service on d: d is in range, d's weekday bit
// is set, and d is not excluded.
func (c *Calendar) ActiveOn(d Date) bool {
	if d.Before(c.From) || d.After(c.To) {
		return false
	}
	if !c.Mask.Has(d.Weekday()) {
		return false
	}
	return !c.isExcluded(d)
}

// Overlap returns OverlapNone if the weekday masks are disjoint or no shared
// day survives exclusion, else OverlapShort.
func (c *Calendar) Overlap(o *Calendar) Overlap {
	if c.Mask.And(o.Mask) == (WeekdayMask{}) {
		return OverlapNone
	}
	it := NewSharedDayIterator(c, o)
	if _, ok := it.Next(); ok {
		return OverlapShort
	}
	return OverlapNone
}

// SharedDayIterator yields every calendar day on which both of two calendars
// operate, day by day, across their overlapping date range. It models the
// spec's "sharedDays" generator as a restartable, finite iterator object
// (construct a fresh one to iterate again) rather than a goroutine-backed
// channel, since the sequence is always small and the caller usually wants
// only the first element (for Overlap) or all of them (for AddExcludeDays).
type SharedDayIterator struct {
	a, b    *Calendar
	cur     Date
	end     Date
	started bool
	done    bool
}

// NewSharedDayIterator builds an iterator over the shared operating days of a
// and b, restricted to their overlapping date range.
func NewSharedDayIterator(a, b *Calendar) *SharedDayIterator {
	start := MaxDate(a.From, b.From)
	end := MinDate(a.To, b.To)
	return &SharedDayIterator{a: a, b: b, cur: start, end: end, done: start.After(end)}
}

// Next returns the next shared operating day, or (Date{}, false) once
// exhausted.
func (it *SharedDayIterator) Next() (Date, bool) {
	for !it.done {
		d := it.cur
		if d.Before(it.end) {
			it.cur = d.AddDays(1)
		} else {
			it.done = true
		}
		if it.a.ActiveOn(d) && it.b.ActiveOn(d) {
			return d, true
		}
	}
	return Date{}, false
}

// AddExcludeDays inserts every day shared with other into a fresh copy of c's
// exclusion set, then clones with no mask bits removed. Returns nil if the
// result would have no operating day left.
func (c *Calendar) AddExcludeDays(other *Calendar) *Calendar {
	newExclude := make(map[Date]struct{}, len(c.Exclude))
	for d := range c.Exclude {
		newExclude[d] = struct{}{}
	}
	it := NewSharedDayIterator(c, other)
	for d, ok := it.Next(); ok; d, ok = it.Next() {
		newExclude[d] = struct{}{}
	}
	return c.Clone(c.From, c.To, WeekdayMask{}, newExclude)
}

// Clone subtracts removeMask from c's mask, crops [start, end] inward to the
// first/last day that is still a candidate operating day, filters excludeSet
// to the cropped range, and returns the result. Returns nil if the new mask
// has no operating weekday left in the new range.
func (c *Calendar) Clone(start, end Date, removeMask WeekdayMask, excludeSet map[Date]struct{}) *Calendar {
	newMask := c.Mask.Sub(removeMask)

	isCandidate := func(d Date) bool {
		if !newMask.Has(d.Weekday()) {
			return false
		}
		_, excluded := excludeSet[d]
		return !excluded
	}

	s := start
	for !s.After(end) && !isCandidate(s) {
		s = s.AddDays(1)
	}
	if s.After(end) {
		return nil
	}

	e := end
	for !e.Before(s) && !isCandidate(e) {
		e = e.AddDays(-1)
	}

	filtered := make(map[Date]struct{}, len(excludeSet))
	for d := range excludeSet {
		if !d.Before(s) && !d.After(e) {
			filtered[d] = struct{}{}
		}
	}

	return &Calendar{From: s, To: e, Mask: newMask, Exclude: filtered}
}

// ShiftForward advances From, To, and every excluded date by one day, and
// rotates the weekday mask forward (Sunday's flag moves to Monday, etc).
func (c *Calendar) ShiftForward() *Calendar {
	return c.shift(1, WeekdayMask.ShiftForward)
}

// ShiftBackward is the inverse of ShiftForward.
func (c *Calendar) ShiftBackward() *Calendar {
	return c.shift(-1, WeekdayMask.ShiftBackward)
}

func (c *Calendar) shift(delta int, rotate func(WeekdayMask) WeekdayMask) *Calendar {
	excl := make(map[Date]struct{}, len(c.Exclude))
	for d := range c.Exclude {
		excl[d.AddDays(delta)] = struct{}{}
	}
	return &Calendar{
		From:    c.From.AddDays(delta),
		To:      c.To.AddDays(delta),
		Mask:    rotate(c.Mask),
		Exclude: excl,
	}
}
