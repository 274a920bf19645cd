package assoc

import (
	"testing"

	"github.com/ukrail-gtfs/assembler/calendar"
	"github.com/ukrail-gtfs/assembler/idhash"
	"github.com/ukrail-gtfs/assembler/overlay"
	"github.com/ukrail-gtfs/assembler/railrecord"
)

func mustDate(t *testing.T, s string) calendar.Date {
	t.Helper()
	d, err := calendar.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func allDays() calendar.WeekdayMask {
	return calendar.WeekdayMask{true, true, true, true, true, true, true}
}

func stop(tiploc, crs, arrival, departure string) railrecord.StopTime {
	return railrecord.StopTime{
		TIPLOC:        tiploc,
		CRS:           crs,
		ArrivalTime:   arrival,
		DepartureTime: departure,
		PickupType:    railrecord.PickupDropoffRegular,
		DropOffType:   railrecord.PickupDropoffRegular,
	}
}

func buildIndexes(t *testing.T, rec *railrecord.Association, base, assocSched *railrecord.Schedule) (*overlay.Index[*railrecord.Schedule], *overlay.Index[*railrecord.Association]) {
	t.Helper()
	schedules := overlay.Resolve([]*railrecord.Schedule{base, assocSched})
	associations := overlay.Resolve([]*railrecord.Association{rec})
	return schedules, associations
}

func TestApplySplitMergesAtJunction(t *testing.T) {
	cal := calendar.New(mustDate(t, "2017-01-01"), mustDate(t, "2017-01-31"), allDays(), nil)

	base := &railrecord.Schedule{
		ID: 1, TUID: "BASE", STP: railrecord.STPPermanent, Calendar: cal,
		StopTimes: []railrecord.StopTime{
			stop("ORIG", "ORG", "", "10:00:00"),
			stop("JUNC", "JNC", "10:30:00", "10:35:00"),
			stop("DESTA", "DSA", "11:00:00", ""),
		},
	}
	assocSched := &railrecord.Schedule{
		ID: 2, TUID: "ASSOC", STP: railrecord.STPPermanent, Calendar: cal,
		StopTimes: []railrecord.StopTime{
			stop("JUNC", "JNC", "10:30:00", "10:40:00"),
			stop("DESTB", "DSB", "11:15:00", ""),
		},
	}

	rec := &railrecord.Association{
		ID: 1, STP: railrecord.STPPermanent, Calendar: cal,
		BaseTUID: "BASE", AssocTUID: "ASSOC", AssocLocation: "JUNC",
		DateIndicator: railrecord.DateSame, Type: railrecord.AssocSplit,
	}

	schedules, associations := buildIndexes(t, rec, base, assocSched)
	ids := idhash.NewIDGenerator(2)

	out := Apply(schedules, associations, ids)

	var merged *railrecord.Schedule
	for _, s := range out {
		if s.TUID == "BASE_ASSOC" {
			merged = s
		}
	}
	if merged == nil {
		t.Fatalf("no merged schedule with TUID BASE_ASSOC found in %d results", len(out))
	}
	if len(merged.StopTimes) != 4 {
		t.Fatalf("len(StopTimes) = %d, want 4 (ORIG, JUNC-merged, DESTA, DESTB)", len(merged.StopTimes))
	}
	junc := merged.StopTimes[1]
	if junc.ArrivalTime != "10:30:00" {
		t.Errorf("junction arrival = %q, want 10:30:00 (from the base piece)", junc.ArrivalTime)
	}
	if junc.DropOffType != railrecord.PickupDropoffNotAllowed {
		t.Errorf("junction drop_off_type = %v, want NotAllowed for a Split", junc.DropOffType)
	}
	for i, st := range merged.StopTimes {
		if st.Sequence != i+1 {
			t.Errorf("stop %d Sequence = %d, want %d", i, st.Sequence, i+1)
		}
	}
}

func TestApplyMissingJunctionStopTolerates(t *testing.T) {
	cal := calendar.New(mustDate(t, "2017-01-01"), mustDate(t, "2017-01-31"), allDays(), nil)

	base := &railrecord.Schedule{
		ID: 1, TUID: "BASE", STP: railrecord.STPPermanent, Calendar: cal,
		StopTimes: []railrecord.StopTime{stop("ORIG", "ORG", "", "10:00:00")},
	}
	assocSched := &railrecord.Schedule{
		ID: 2, TUID: "ASSOC", STP: railrecord.STPPermanent, Calendar: cal,
		StopTimes: []railrecord.StopTime{stop("ELSEWHERE", "ELS", "11:00:00", "")},
	}

	rec := &railrecord.Association{
		ID: 1, STP: railrecord.STPPermanent, Calendar: cal,
		BaseTUID: "BASE", AssocTUID: "ASSOC", AssocLocation: "NOWHERE",
		DateIndicator: railrecord.DateSame, Type: railrecord.AssocSplit,
	}

	schedules, associations := buildIndexes(t, rec, base, assocSched)
	out := Apply(schedules, associations, idhash.NewIDGenerator(2))

	found := false
	for _, s := range out {
		if s == assocSched {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the unmerged assoc schedule to be emitted unchanged when the junction stop is missing")
	}
}

// A strict-subset association calendar must not also produce a second,
// exclusion-tightened clone of assocSched alongside the fallback pass-through
// — that would leave two overlapping Schedules under the same TUID.
func TestApplyMissingJunctionStopDoesNotAlsoEmitExclusionClone(t *testing.T) {
	schedCal := calendar.New(mustDate(t, "2017-01-01"), mustDate(t, "2017-01-31"), allDays(), nil)
	assocRecCal := calendar.New(mustDate(t, "2017-01-10"), mustDate(t, "2017-01-20"), allDays(), nil)

	base := &railrecord.Schedule{
		ID: 1, TUID: "BASE", STP: railrecord.STPPermanent, Calendar: schedCal,
		StopTimes: []railrecord.StopTime{stop("ORIG", "ORG", "", "10:00:00")},
	}
	assocSched := &railrecord.Schedule{
		ID: 2, TUID: "ASSOC", STP: railrecord.STPPermanent, Calendar: schedCal,
		StopTimes: []railrecord.StopTime{stop("ELSEWHERE", "ELS", "11:00:00", "")},
	}

	rec := &railrecord.Association{
		ID: 1, STP: railrecord.STPPermanent, Calendar: assocRecCal,
		BaseTUID: "BASE", AssocTUID: "ASSOC", AssocLocation: "NOWHERE",
		DateIndicator: railrecord.DateSame, Type: railrecord.AssocSplit,
	}

	schedules, associations := buildIndexes(t, rec, base, assocSched)
	out := Apply(schedules, associations, idhash.NewIDGenerator(2))

	count := 0
	for _, s := range out {
		if s.TUID == "ASSOC" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("got %d schedules with TUID ASSOC, want exactly 1 (the unmodified fallback, no exclusion clone)", count)
	}
}

func TestApplyUnrelatedScheduleUntouched(t *testing.T) {
	cal := calendar.New(mustDate(t, "2017-01-01"), mustDate(t, "2017-01-31"), allDays(), nil)

	unrelated := &railrecord.Schedule{ID: 3, TUID: "LONER", STP: railrecord.STPPermanent, Calendar: cal}

	schedules := overlay.Resolve([]*railrecord.Schedule{unrelated})
	associations := overlay.Resolve([]*railrecord.Association{})

	out := Apply(schedules, associations, idhash.NewIDGenerator(3))
	if len(out) != 1 || out[0] != unrelated {
		t.Errorf("expected the unrelated schedule to pass through unchanged, got %d results", len(out))
	}
}
