package calendar

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func allDays() WeekdayMask {
	return WeekdayMask{true, true, true, true, true, true, true}
}

func weekdaysOnly() WeekdayMask {
	return WeekdayMask{false, true, true, true, true, true, false}
}

func weekendOnly() WeekdayMask {
	return WeekdayMask{true, false, false, false, false, false, true}
}

func excludeSet(t *testing.T, dates ...string) map[Date]struct{} {
	t.Helper()
	out := make(map[Date]struct{}, len(dates))
	for _, s := range dates {
		out[mustDate(t, s)] = struct{}{}
	}
	return out
}

func dateRange(t *testing.T, from, to string) []Date {
	t.Helper()
	f, tt := mustDate(t, from), mustDate(t, to)
	var out []Date
	for d := f; !d.After(tt); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Scenario 1: overlap short / none.
func TestOverlapShort(t *testing.T) {
	a := New(mustDate(t, "2017-01-01"), mustDate(t, "2017-01-31"), allDays(), nil)
	b := New(mustDate(t, "2016-12-05"), mustDate(t, "2017-01-09"), allDays(), nil)
	if got := a.Overlap(b); got != OverlapShort {
		t.Errorf("a.Overlap(b) = %v, want Short", got)
	}

	c := New(mustDate(t, "2017-02-05"), mustDate(t, "2017-02-07"), allDays(), nil)
	if got := a.Overlap(c); got != OverlapNone {
		t.Errorf("a.Overlap(c) = %v, want None", got)
	}
}

// Scenario 2: disjoint masks never overlap, regardless of direction.
func TestOverlapDisjointMasks(t *testing.T) {
	a := New(mustDate(t, "2017-01-01"), mustDate(t, "2017-01-31"), weekdaysOnly(), nil)
	b := New(mustDate(t, "2017-01-01"), mustDate(t, "2017-01-31"), weekendOnly(), nil)

	if got := a.Overlap(b); got != OverlapNone {
		t.Errorf("a.Overlap(b) = %v, want None", got)
	}
	if got := b.Overlap(a); got != OverlapNone {
		t.Errorf("b.Overlap(a) = %v, want None", got)
	}
}

// Scenario 3: addExcludeDays tightens the range once every day of each
// boundary week is excluded.
func TestAddExcludeDaysTightensRange(t *testing.T) {
	c := New(mustDate(t, "2017-01-05"), mustDate(t, "2017-01-31"), allDays(), nil)

	excl1 := New(mustDate(t, "2017-01-01"), mustDate(t, "2017-01-07"), allDays(), nil)
	c = c.AddExcludeDays(excl1)
	if c == nil {
		t.Fatal("unexpected nil after first exclusion")
	}

	excl2 := New(mustDate(t, "2017-01-30"), mustDate(t, "2017-02-07"), allDays(), nil)
	c = c.AddExcludeDays(excl2)
	if c == nil {
		t.Fatal("unexpected nil after second exclusion")
	}

	if c.From != mustDate(t, "2017-01-08") {
		t.Errorf("From = %v, want 2017-01-08", c.From)
	}
	if c.To != mustDate(t, "2017-01-29") {
		t.Errorf("To = %v, want 2017-01-29", c.To)
	}
	if len(c.Exclude) != 0 {
		t.Errorf("Exclude = %v, want empty", c.Exclude)
	}
}

// Scenario 4: addExcludeDays can empty a schedule entirely.
func TestAddExcludeDaysEmpties(t *testing.T) {
	sundayOnly := WeekdayMask{true, false, false, false, false, false, false}
	c := New(mustDate(t, "2017-01-01"), mustDate(t, "2017-01-15"), sundayOnly, nil)

	excl1 := New(mustDate(t, "2017-01-01"), mustDate(t, "2017-01-07"), sundayOnly, nil)
	c = c.AddExcludeDays(excl1)
	if c == nil {
		t.Fatal("unexpected nil after first exclusion")
	}
	if c.From != mustDate(t, "2017-01-08") || c.To != mustDate(t, "2017-01-15") {
		t.Errorf("range = [%v, %v], want [2017-01-08, 2017-01-15]", c.From, c.To)
	}

	excl2 := New(mustDate(t, "2017-01-08"), mustDate(t, "2017-01-15"), sundayOnly, nil)
	c = c.AddExcludeDays(excl2)
	if c != nil {
		t.Errorf("expected nil after emptying exclusion, got %+v", c)
	}
}

// Scenario 5: shiftForward rotates the mask and advances every date by a day.
func TestShiftForward(t *testing.T) {
	mask := WeekdayMask{false, true, false, false, false, false, true} // Mon, Sat
	c := New(mustDate(t, "2017-07-03"), mustDate(t, "2017-07-14"), mask, excludeSet(t, "2017-07-10"))

	out := c.ShiftForward()

	want := WeekdayMask{true, false, true, false, false, false, false} // Sun, Tue
	if out.Mask != want {
		t.Errorf("Mask = %v, want %v", out.Mask, want)
	}
	if out.From != mustDate(t, "2017-07-04") {
		t.Errorf("From = %v, want 2017-07-04", out.From)
	}
	if out.To != mustDate(t, "2017-07-15") {
		t.Errorf("To = %v, want 2017-07-15", out.To)
	}
	if _, ok := out.Exclude[mustDate(t, "2017-07-11")]; !ok {
		t.Errorf("Exclude = %v, want {2017-07-11}", out.Exclude)
	}
	if len(out.Exclude) != 1 {
		t.Errorf("len(Exclude) = %d, want 1", len(out.Exclude))
	}
}

// shiftForward/shiftBackward must be inverses.
func TestShiftRoundTrip(t *testing.T) {
	mask := WeekdayMask{true, false, true, false, true, false, true}
	c := New(mustDate(t, "2020-03-01"), mustDate(t, "2020-03-31"), mask, excludeSet(t, "2020-03-15"))

	back := c.ShiftForward().ShiftBackward()
	if back.From != c.From || back.To != c.To || back.Mask != c.Mask {
		t.Fatalf("round trip mismatch: got %+v, want %+v", back, c)
	}
	for d := range c.Exclude {
		if _, ok := back.Exclude[d]; !ok {
			t.Errorf("exclude %v lost in round trip", d)
		}
	}
}

// addExcludeDays never shrinks the exclusion set and the resulting calendar's
// day set is always a subset of the original.
func TestAddExcludeDaysMonotonic(t *testing.T) {
	c := New(mustDate(t, "2017-01-01"), mustDate(t, "2017-03-31"), allDays(), excludeSet(t, "2017-01-10"))
	other := New(mustDate(t, "2017-01-01"), mustDate(t, "2017-01-20"), weekdaysOnly(), nil)

	result := c.AddExcludeDays(other)
	if result == nil {
		t.Fatal("unexpected nil")
	}
	if len(result.Exclude) < len(c.Exclude) {
		t.Fatalf("exclusion set shrank: %d -> %d", len(c.Exclude), len(result.Exclude))
	}
	for _, d := range dateRange(t, "2017-01-01", "2017-03-31") {
		if result.ActiveOn(d) && !c.ActiveOn(d) {
			t.Errorf("day %v active in result but not in original", d)
		}
	}
}

func TestWeekdayMaskBits(t *testing.T) {
	m := WeekdayMask{true, false, false, false, false, false, true} // Sun, Sat
	if got := m.Bits(); got != 0b1000001 {
		t.Errorf("Bits() = %07b, want 1000001", got)
	}
}

func TestToCalendarDates(t *testing.T) {
	c := New(mustDate(t, "2017-01-01"), mustDate(t, "2017-01-31"), allDays(), excludeSet(t, "2017-01-02", "2017-01-01"))
	rows := c.ToCalendarDates("SVC1")
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].Date != "20170101" || rows[1].Date != "20170102" {
		t.Errorf("rows out of order: %+v", rows)
	}
	for _, r := range rows {
		if r.ExceptionType != 2 {
			t.Errorf("ExceptionType = %d, want 2", r.ExceptionType)
		}
	}
}

func TestToCalendarSkipsZeroMask(t *testing.T) {
	c := New(mustDate(t, "2017-01-01"), mustDate(t, "2017-01-01"), WeekdayMask{}, nil)
	if _, ok := c.ToCalendar("SVC1"); ok {
		t.Errorf("expected no calendar.txt row for an all-zero mask")
	}
}

func TestDateWeekday(t *testing.T) {
	d := mustDate(t, "2017-01-01") // a Sunday
	if d.Weekday() != time.Sunday {
		t.Errorf("Weekday() = %v, want Sunday", d.Weekday())
	}
}
