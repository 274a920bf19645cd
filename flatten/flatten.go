// Package flatten implements ScheduleFlattener and LateNightDuplicator: the
// two passes that turn AssociationApplier's output into the final per-trip
// schedule list ready for headsign inference and route/shape grouping
// (§4.5 and §4.6 of the spec).
//
// Both passes are plain single-pass slice walks in the style of the
// teacher's processors/calendarminimizer.go: no intermediate index, just an
// accumulator slice and a small amount of per-item state.
package flatten

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ukrail-gtfs/assembler/idhash"
	"github.com/ukrail-gtfs/assembler/railrecord"
)

// Flatten implements ScheduleFlattener: it keeps one schedule per trip id,
// drops any schedule with no public call, and errors on a duplicate trip id
// — a fatal invariant violation per §7.
func Flatten(schedules []*railrecord.Schedule) ([]*railrecord.Schedule, error) {
	seen := make(map[string]bool, len(schedules))
	out := make([]*railrecord.Schedule, 0, len(schedules))

	for _, s := range schedules {
		if !hasPublicCall(s) {
			continue
		}
		tripID := s.TripID()
		if seen[tripID] {
			return nil, errors.Errorf("flatten: duplicate trip id %q", tripID)
		}
		seen[tripID] = true
		out = append(out, s)
	}
	return out, nil
}

func hasPublicCall(s *railrecord.Schedule) bool {
	for _, st := range s.StopTimes {
		if st.HasPublicCall() {
			return true
		}
	}
	return false
}

// DuplicateLateNight implements LateNightDuplicator: for every schedule whose
// first stop's formatted departure (or, failing that, arrival) hour is ≥ 24,
// a second copy is appended with its calendar shifted back one day and every
// stop time reduced by 24 hours, so the service appears exactly once per
// calendar day in the assembled feed.
func DuplicateLateNight(schedules []*railrecord.Schedule, ids *idhash.IDGenerator) []*railrecord.Schedule {
	out := make([]*railrecord.Schedule, 0, len(schedules))

	for _, s := range schedules {
		out = append(out, s)

		hour, ok := firstStopHour(s)
		if !ok || hour < 24 {
			continue
		}

		dup := s.CloneWith(s.Calendar.ShiftBackward(), ids.Next())
		for i := range dup.StopTimes {
			dup.StopTimes[i].ArrivalTime = sub24h(dup.StopTimes[i].ArrivalTime)
			dup.StopTimes[i].DepartureTime = sub24h(dup.StopTimes[i].DepartureTime)
		}
		out = append(out, dup)
	}

	return out
}

func firstStopHour(s *railrecord.Schedule) (int, bool) {
	if len(s.StopTimes) == 0 {
		return 0, false
	}
	st := s.StopTimes[0]
	if st.DepartureTime != "" {
		return parseHour(st.DepartureTime), true
	}
	if st.ArrivalTime != "" {
		return parseHour(st.ArrivalTime), true
	}
	return 0, false
}

func parseHour(hhmmss string) int {
	parts := strings.SplitN(hhmmss, ":", 2)
	h, _ := strconv.Atoi(parts[0])
	return h
}

func sub24h(hhmmss string) string {
	if hhmmss == "" {
		return hhmmss
	}
	parts := strings.Split(hhmmss, ":")
	if len(parts) != 3 {
		return hhmmss
	}
	h, _ := strconv.Atoi(parts[0])
	return fmt.Sprintf("%02d:%s:%s", h-24, parts[1], parts[2])
}
