// Package assoc implements AssociationApplier: resolving each split/join
// Association against the base and associated Schedule it names, producing
// merged trips at the junction stop and the exclusion-adjusted remainder of
// the stand-alone associated schedule (§4.4 of the spec).
//
// There is no direct ancestor for a split/join merge in the teacher (gtfstidy
// never joins two trips into one); the shape of a pass that walks a resolved
// index once and builds replacement records follows overlay.Resolve, and the
// stop-time splicing follows the slice-surgery style of the teacher's
// processors/shapeminimizer.go (build a new slice from two sub-slices of an
// existing one rather than mutating in place).
package assoc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ukrail-gtfs/assembler/calendar"
	"github.com/ukrail-gtfs/assembler/idhash"
	"github.com/ukrail-gtfs/assembler/overlay"
	"github.com/ukrail-gtfs/assembler/railrecord"
)

// Apply runs AssociationApplier over the resolved schedule and association
// indexes. Every (base, associated) Schedule pair consumed by a matching
// Association is replaced by the pair's merge result plus the exclusion-
// adjusted stand-alone clone of the associated schedule — unless the
// junction stop was missing, in which case the pair yields only the
// unmodified assoc schedule (§7's tolerate rule), not a second clone of it.
// Every Schedule never touched by any Association passes through unchanged.
func Apply(schedules *overlay.Index[*railrecord.Schedule], associations *overlay.Index[*railrecord.Association], ids *idhash.IDGenerator) []*railrecord.Schedule {
	consumed := make(map[*railrecord.Schedule]bool)
	var out []*railrecord.Schedule

	for _, tuid := range associations.Keys() {
		for _, rec := range associations.Get(tuid) {
			assocCal := shiftForDateIndicator(rec.Calendar, rec.DateIndicator)

			for _, base := range schedules.Get(rec.BaseTUID) {
				if base.Calendar.Overlap(assocCal) == calendar.OverlapNone {
					continue
				}
				for _, assocSched := range schedules.Get(rec.AssocTUID) {
					if assocSched.Calendar.Overlap(assocCal) == calendar.OverlapNone {
						continue
					}

					merged, ok := mergeSchedules(base, assocSched, assocCal, rec, ids)
					if ok && merged != nil {
						out = append(out, merged)
					}
					consumed[base] = true
					consumed[assocSched] = true

					// The exclusion clone only belongs alongside a real merge
					// (§4.4 step 3, "in addition to the merged schedule"). When
					// mergeSchedules took the missing-junction-stop fallback, it
					// returned assocSched itself unchanged — that pass-through
					// already is the tolerated output, so a second, exclusion-
					// tightened clone of the same TUID would double-emit it.
					if ok && merged != assocSched {
						if excludeCal := assocSched.Calendar.AddExcludeDays(assocCal); excludeCal != nil {
							out = append(out, assocSched.CloneWith(excludeCal, ids.Next()))
						}
					}
				}
			}
		}
	}

	for _, tuid := range schedules.Keys() {
		for _, sched := range schedules.Get(tuid) {
			if !consumed[sched] {
				out = append(out, sched)
			}
		}
	}

	return out
}

func shiftForDateIndicator(cal *calendar.Calendar, di railrecord.DateIndicator) *calendar.Calendar {
	switch di {
	case railrecord.DateNext:
		return cal.ShiftForward()
	case railrecord.DatePrevious:
		return cal.ShiftBackward()
	default:
		return cal
	}
}

// mergeSchedules implements §4.4 step 2. ok is false only when the merged
// calendar collapses to no operating day; the missing-junction-stop fallback
// returns (assocSched, true) unchanged, per the tolerate rule in §7.
func mergeSchedules(base, assocSched *railrecord.Schedule, assocCal *calendar.Calendar, rec *railrecord.Association, ids *idhash.IDGenerator) (*railrecord.Schedule, bool) {
	baseIdx := base.StopAt(rec.AssocLocation)
	assocIdx := assocSched.StopAt(rec.AssocLocation)
	if baseIdx < 0 || assocIdx < 0 {
		return assocSched, true
	}

	var tuid string
	var head, tail []railrecord.StopTime
	if rec.Type == railrecord.AssocJoin {
		tuid = assocSched.TUID + "_" + base.TUID
		head = assocSched.Before(assocIdx)
		tail = base.After(baseIdx)
	} else {
		tuid = base.TUID + "_" + assocSched.TUID
		head = base.Before(baseIdx)
		tail = assocSched.After(assocIdx)
	}

	mergeStop := buildMergeStop(head[len(head)-1], tail[0], rec)

	stops := make([]railrecord.StopTime, 0, len(head)+len(tail)-1)
	stops = append(stops, head[:len(head)-1]...)
	stops = append(stops, mergeStop)
	stops = append(stops, tail[1:]...)

	shiftTail := (rec.Type == railrecord.AssocSplit && rec.DateIndicator == railrecord.DateNext) ||
		(rec.Type == railrecord.AssocJoin && rec.DateIndicator == railrecord.DatePrevious)
	if shiftTail {
		for i := len(head); i < len(stops); i++ {
			stops[i].ArrivalTime = add24h(stops[i].ArrivalTime)
			stops[i].DepartureTime = add24h(stops[i].DepartureTime)
		}
	}
	for i := range stops {
		stops[i].Sequence = i + 1
	}

	mergedCal := intersectCalendars(assocCal, assocSched.Calendar)
	if mergedCal == nil {
		return nil, false
	}

	merged := base.CloneWith(mergedCal, ids.Next())
	merged.TUID = tuid
	merged.StopTimes = stops
	return merged, true
}

// buildMergeStop combines the last stop of the leading piece and the first
// stop of the trailing piece into the junction stop, per §4.4 step 2.
func buildMergeStop(head, tail railrecord.StopTime, rec *railrecord.Association) railrecord.StopTime {
	departure := tail.DepartureTime
	if head.ArrivalTime != "" && departure != "" && clockSeconds(head.ArrivalTime) > clockSeconds(departure) {
		if rec.DateIndicator == railrecord.DateNext {
			departure = add24h(departure)
		} else {
			departure = tail.ArrivalTime
		}
	}

	pickup, dropoff := tail.PickupType, head.DropOffType
	switch rec.Type {
	case railrecord.AssocJoin:
		pickup = railrecord.PickupDropoffNotAllowed
	case railrecord.AssocSplit:
		dropoff = railrecord.PickupDropoffNotAllowed
	}

	return railrecord.StopTime{
		ArrivalTime:   head.ArrivalTime,
		DepartureTime: departure,
		ATCO:          tail.ATCO,
		CRS:           tail.CRS,
		TIPLOC:        tail.TIPLOC,
		PickupType:    pickup,
		DropOffType:   dropoff,
		Timepoint:     true,
	}
}

// intersectCalendars computes the overlapping date range of a and b, ANDs
// their weekday masks, and unions their exclusion sets, returning nil if the
// result has no operating day left.
func intersectCalendars(a, b *calendar.Calendar) *calendar.Calendar {
	from := calendar.MaxDate(a.From, b.From)
	to := calendar.MinDate(a.To, b.To)
	if from.After(to) {
		return nil
	}

	excl := make(map[calendar.Date]struct{}, len(a.Exclude)+len(b.Exclude))
	for d := range a.Exclude {
		excl[d] = struct{}{}
	}
	for d := range b.Exclude {
		excl[d] = struct{}{}
	}

	seed := &calendar.Calendar{From: from, To: to, Mask: a.Mask.And(b.Mask)}
	return seed.Clone(from, to, calendar.WeekdayMask{}, excl)
}

func clockSeconds(hhmmss string) int {
	h, m, s := parseHMS(hhmmss)
	return h*3600 + m*60 + s
}

func parseHMS(hhmmss string) (h, m, s int) {
	parts := strings.Split(hhmmss, ":")
	if len(parts) != 3 {
		return 0, 0, 0
	}
	h, _ = strconv.Atoi(parts[0])
	m, _ = strconv.Atoi(parts[1])
	s, _ = strconv.Atoi(parts[2])
	return h, m, s
}

func add24h(hhmmss string) string {
	if hhmmss == "" {
		return hhmmss
	}
	h, m, s := parseHMS(hhmmss)
	return fmt.Sprintf("%02d:%02d:%02d", h+24, m, s)
}
