package ingest

import (
	"testing"

	"github.com/ukrail-gtfs/assembler/calendar"
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

func baseRow(t *testing.T, id, stopID int) Row {
	return Row{
		ID:       id,
		StopID:   stopID,
		TrainUID: "TUID1",
		RunsFrom: mustDate(t, "2017-01-01"),
		RunsTo:   mustDate(t, "2017-01-31"),
		Weekdays: calendar.WeekdayMask{true, true, true, true, true, true, true},
		STP:      railrecord.STPPermanent,
	}
}

// Scenario 6: rollover across midnight.
func TestBuildRollover(t *testing.T) {
	r1 := baseRow(t, 1, 1)
	r1.TIPLOC, r1.CRS, r1.PublicDeparture = "STOP1", "ST1", "23:30"

	r2 := baseRow(t, 1, 2)
	r2.TIPLOC, r2.CRS, r2.PublicDeparture = "STOP2", "ST2", "00:30"

	res, err := Build(NewSliceSource([]Row{r1, r2}), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Schedules) != 1 {
		t.Fatalf("len(Schedules) = %d, want 1", len(res.Schedules))
	}

	sched := res.Schedules[0]
	if len(sched.StopTimes) != 2 {
		t.Fatalf("len(StopTimes) = %d, want 2", len(sched.StopTimes))
	}
	if sched.StopTimes[0].DepartureTime != "23:30:00" {
		t.Errorf("stop1 departure = %q, want 23:30:00", sched.StopTimes[0].DepartureTime)
	}
	if sched.StopTimes[1].DepartureTime != "24:30:00" {
		t.Errorf("stop2 departure = %q, want 24:30:00", sched.StopTimes[1].DepartureTime)
	}
}

func TestBuildStopSequenceContiguous(t *testing.T) {
	rows := []Row{baseRow(t, 1, 1), baseRow(t, 1, 2), baseRow(t, 1, 3)}
	for i := range rows {
		rows[i].TIPLOC = string(rune('A' + i))
		rows[i].CRS = string(rune('A' + i))
		rows[i].PublicDeparture = "10:00"
	}

	res, err := Build(NewSliceSource(rows), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	stops := res.Schedules[0].StopTimes
	for i, st := range stops {
		if st.Sequence != i+1 {
			t.Errorf("stop %d has Sequence %d, want %d", i, st.Sequence, i+1)
		}
	}
}

func TestBuildCancellationHasNoStops(t *testing.T) {
	row := baseRow(t, 1, 1)
	row.STP = railrecord.STPCancellation
	row.TIPLOC, row.CRS, row.PublicDeparture = "STOP1", "ST1", "10:00"

	res, err := Build(NewSliceSource([]Row{row}), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Schedules) != 1 {
		t.Fatalf("len(Schedules) = %d, want 1", len(res.Schedules))
	}
	if len(res.Schedules[0].StopTimes) != 0 {
		t.Errorf("cancellation schedule has %d stops, want 0", len(res.Schedules[0].StopTimes))
	}
}

func TestBuildMultipleSchedules(t *testing.T) {
	r1 := baseRow(t, 1, 1)
	r1.TIPLOC, r1.CRS, r1.PublicDeparture = "A", "AAA", "10:00"
	r2 := baseRow(t, 2, 1)
	r2.TIPLOC, r2.CRS, r2.PublicDeparture = "B", "BBB", "11:00"

	res, err := Build(NewSliceSource([]Row{r1, r2}), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Schedules) != 2 {
		t.Fatalf("len(Schedules) = %d, want 2", len(res.Schedules))
	}
	if res.IDs.Next() != 3 {
		t.Errorf("IDGenerator should continue after max observed id 2")
	}
}

func TestActivityPickupDropoff(t *testing.T) {
	cases := []struct {
		activity       string
		wantPickup     railrecord.PickupDropoffType
		wantDropoff    railrecord.PickupDropoffType
	}{
		{"TB    ", railrecord.PickupDropoffRegular, railrecord.PickupDropoffNotAllowed},
		{"TF    ", railrecord.PickupDropoffNotAllowed, railrecord.PickupDropoffRegular},
		{"T     ", railrecord.PickupDropoffRegular, railrecord.PickupDropoffRegular},
		{"T ", railrecord.PickupDropoffRegular, railrecord.PickupDropoffRegular},
		{"U ", railrecord.PickupDropoffRegular, railrecord.PickupDropoffNotAllowed},
		{"D ", railrecord.PickupDropoffNotAllowed, railrecord.PickupDropoffRegular},
		{"N ", railrecord.PickupDropoffNotAllowed, railrecord.PickupDropoffNotAllowed},
		{"R ", railrecord.PickupDropoffCoordinated, railrecord.PickupDropoffCoordinated},
		{"TBN ", railrecord.PickupDropoffNotAllowed, railrecord.PickupDropoffNotAllowed},
	}
	for _, c := range cases {
		pickup, dropoff := activityPickupDropoff(c.activity)
		if pickup != c.wantPickup {
			t.Errorf("activity %q: pickup = %v, want %v", c.activity, pickup, c.wantPickup)
		}
		if dropoff != c.wantDropoff {
			t.Errorf("activity %q: dropoff = %v, want %v", c.activity, dropoff, c.wantDropoff)
		}
	}
}

func TestSameCRSMergeReplacesInPlace(t *testing.T) {
	r1 := baseRow(t, 1, 1)
	r1.TIPLOC, r1.CRS = "STOP1", "AAA"
	r1.Activity = "D " // drop-off only, pickup not allowed

	r2 := baseRow(t, 1, 2)
	r2.TIPLOC, r2.CRS = "STOP1", "AAA" // same CRS as previous
	r2.Activity = "U "                 // pickup allowed -> qualifies to replace
	r2.PublicDeparture = "12:00"

	res, err := Build(NewSliceSource([]Row{r1, r2}), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	stops := res.Schedules[0].StopTimes
	if len(stops) != 1 {
		t.Fatalf("len(StopTimes) = %d, want 1 (second row should replace, not append)", len(stops))
	}
	if stops[0].DepartureTime != "12:00:00" {
		t.Errorf("DepartureTime = %q, want 12:00:00 (from the replacing row)", stops[0].DepartureTime)
	}
}

func TestSameCRSMergeDropsWhenNeitherAllowed(t *testing.T) {
	r1 := baseRow(t, 1, 1)
	r1.TIPLOC, r1.CRS = "STOP1", "AAA"
	r1.Activity = "U "

	r2 := baseRow(t, 1, 2)
	r2.TIPLOC, r2.CRS = "STOP1", "AAA"
	r2.Activity = "N " // neither pickup nor dropoff allowed -> dropped

	res, err := Build(NewSliceSource([]Row{r1, r2}), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	stops := res.Schedules[0].StopTimes
	if len(stops) != 1 {
		t.Fatalf("len(StopTimes) = %d, want 1 (second row should be dropped)", len(stops))
	}
}

func TestRouteTypeAndFlagsDerivation(t *testing.T) {
	r := baseRow(t, 1, 1)
	r.TIPLOC, r.CRS, r.PublicDeparture = "A", "AAA", "10:00"
	r.TrainCategory = "BS"
	r.TrainClass = "S"
	r.Reservations = "R"

	res, err := Build(NewSliceSource([]Row{r}), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s := res.Schedules[0]
	if s.RouteType != railrecord.RouteTypeBus {
		t.Errorf("RouteType = %v, want Bus", s.RouteType)
	}
	if s.FirstClassAvailable {
		t.Errorf("FirstClassAvailable = true, want false for a Bus")
	}
	if !s.ReservationPossible {
		t.Errorf("ReservationPossible = false, want true")
	}
}

func TestUnknownTrainCategoryDefaultsToRail(t *testing.T) {
	r := baseRow(t, 1, 1)
	r.TIPLOC, r.CRS, r.PublicDeparture = "A", "AAA", "10:00"
	r.TrainCategory = "ZZZ"

	res, err := Build(NewSliceSource([]Row{r}), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Schedules[0].RouteType != railrecord.RouteTypeRail {
		t.Errorf("RouteType = %v, want Rail", res.Schedules[0].RouteType)
	}
}
