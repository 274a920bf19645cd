package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ukrail-gtfs/assembler/calendar"
	"github.com/ukrail-gtfs/assembler/idhash"
	"github.com/ukrail-gtfs/assembler/railrecord"
)

// Options controls the one behavioural fork the spec leaves open (§9).
type Options struct {
	// UseScheduledWhenNoPublic falls back to the scheduled arrival/departure
	// when neither public time is set. Defaults to false (leave both times
	// null), matching the later/canonical source variant per the spec's
	// stated default.
	UseScheduledWhenNoPublic bool
}

// Result is the output of Build: the assembled schedules in first-seen order,
// and an id generator primed to continue after the highest row id observed.
type Result struct {
	Schedules []*railrecord.Schedule
	IDs       *idhash.IDGenerator
}

var routeTypeByCategory = map[string]railrecord.RouteType{
	"OO": railrecord.RouteTypeRail,
	"XX": railrecord.RouteTypeRail,
	"XZ": railrecord.RouteTypeRail,
	"XC": railrecord.RouteTypeRail,
	"BR": railrecord.RouteTypeReplacementBus,
	"BS": railrecord.RouteTypeBus,
	"OL": railrecord.RouteTypeSubway,
	"SS": railrecord.RouteTypeFerry,
}

func routeTypeFor(trainCategory string) railrecord.RouteType {
	if rt, ok := routeTypeByCategory[trainCategory]; ok {
		return rt
	}
	return railrecord.RouteTypeRail
}

// Build folds src into a per-schedule list of railrecord.Schedule, per §4.2.
func Build(src RowSource, opts Options) (*Result, error) {
	b := &builder{opts: opts}

	for {
		row, ok, err := src.Next()
		if err != nil {
			return nil, errors.Wrap(err, "ingest: row stream I/O error")
		}
		if !ok {
			break
		}
		if err := b.feed(row); err != nil {
			return nil, err
		}
	}
	b.flush()

	return &Result{Schedules: b.out, IDs: idhash.NewIDGenerator(b.maxID)}, nil
}

// builder is the fold state for StreamingScheduleBuilder. It assumes rows of
// the same schedule id arrive contiguously (the required stream order), so a
// change in row.ID is the only signal needed to close out the current group.
type builder struct {
	opts Options

	out   []*railrecord.Schedule
	maxID int

	haveCurrent   bool
	curID         int
	curHeader     Row
	departureHour int
	stops         []railrecord.StopTime
}

func (b *builder) feed(row Row) error {
	if row.ID > b.maxID {
		b.maxID = row.ID
	}

	if !b.haveCurrent || row.ID != b.curID {
		b.flush()
		b.haveCurrent = true
		b.curID = row.ID
		b.curHeader = row
		b.departureHour = departureHourOf(row)
		b.stops = nil
	}

	if row.STP == railrecord.STPCancellation {
		// the schedule is represented by the Cancellation STP entry alone;
		// it carries no stop times (§4.2 step 2).
		return nil
	}

	stop, err := b.buildStopTime(row)
	if err != nil {
		return errors.Wrapf(err, "ingest: schedule %d stop %d", row.ID, row.StopID)
	}

	if n := len(b.stops); n > 0 && b.stops[n-1].CRS == stop.CRS {
		if stop.PickupType == railrecord.PickupDropoffRegular || stop.DropOffType == railrecord.PickupDropoffRegular {
			b.stops[n-1] = *stop
		}
		// else: incoming row dropped, per §4.2 step 6
		return nil
	}

	b.stops = append(b.stops, *stop)
	return nil
}

// flush finalises the in-progress schedule, if any, and appends it to out.
func (b *builder) flush() {
	if !b.haveCurrent {
		return
	}
	defer func() { b.haveCurrent = false }()

	for i := range b.stops {
		b.stops[i].Sequence = i + 1
	}

	row := b.curHeader
	cal := calendar.New(row.RunsFrom, row.RunsTo, row.Weekdays, nil)
	routeType := routeTypeFor(row.TrainCategory)

	b.out = append(b.out, &railrecord.Schedule{
		ID:                  row.ID,
		TUID:                row.TrainUID,
		STP:                 row.STP,
		Calendar:            cal,
		RSID:                row.RSID,
		StopTimes:           b.stops,
		RouteType:           routeType,
		OperatorCode:        row.ATOCCode,
		FirstClassAvailable: routeType == railrecord.RouteTypeRail && row.TrainClass != "S",
		ReservationPossible: row.Reservations != "",
	})
}

// departureHourOf is the schedule-level reference hour used by midnight
// rollover normalisation: the first row's public arrival hour if set, else
// its public departure hour, else 4 (§4.2 step 1).
func departureHourOf(row Row) int {
	if row.PublicArrival != "" {
		if h, err := parseHour(row.PublicArrival); err == nil {
			return h
		}
	}
	if row.PublicDeparture != "" {
		if h, err := parseHour(row.PublicDeparture); err == nil {
			return h
		}
	}
	return 4
}

func parseHour(hhmmss string) (int, error) {
	if len(hhmmss) < 2 {
		return 0, fmt.Errorf("malformed time %q", hhmmss)
	}
	h, err := strconv.Atoi(hhmmss[:2])
	if err != nil {
		return 0, fmt.Errorf("malformed time %q: %w", hhmmss, err)
	}
	return h, nil
}

// normalizeTime formats raw ("HH:MM" or "HH:MM:SS") as "HH:MM:SS", adding 24
// to the hour if shift is true.
func normalizeTime(raw string, shift bool) (string, error) {
	if raw == "" {
		return "", nil
	}
	h, err := parseHour(raw)
	if err != nil {
		return "", err
	}
	rest := raw[2:]
	if rest == "" {
		rest = ":00:00"
	} else if strings.Count(rest, ":") == 1 {
		rest += ":00"
	}
	if shift {
		h += 24
	}
	return fmt.Sprintf("%02d%s", h, rest), nil
}

// buildStopTime derives one StopTime from row, applying the public/scheduled
// time source rule, midnight rollover, and activity-code pickup/drop-off
// parsing. It always returns a populated StopTime; the same-CRS merge rule
// that can drop or replace a stop (§4.2 step 6) is applied by the caller,
// feed, once this stop time is known.
func (b *builder) buildStopTime(row Row) (*railrecord.StopTime, error) {
	arrival, departure := selectTimes(row, b.opts.UseScheduledWhenNoPublic)

	hour, haveHour := stopHour(arrival, departure)
	shift := haveHour && b.departureHour >= 4 && hour < b.departureHour

	normArrival, err := normalizeTime(arrival, shift)
	if err != nil {
		return nil, err
	}
	normDeparture, err := normalizeTime(departure, shift)
	if err != nil {
		return nil, err
	}

	pickup, dropoff := activityPickupDropoff(row.Activity)
	if hasActivity(row.Activity, "N ") {
		normArrival, normDeparture = "", ""
	}

	return &railrecord.StopTime{
		ArrivalTime:   normArrival,
		DepartureTime: normDeparture,
		ATCO:          row.ATCO,
		CRS:           row.CRS,
		TIPLOC:        row.TIPLOC,
		PickupType:    pickup,
		DropOffType:   dropoff,
		Timepoint:     normArrival != "" || normDeparture != "",
	}, nil
}

// selectTimes implements §4.2 step 3: use the public pair if either half is
// set; otherwise fall back to scheduled times only when enabled.
func selectTimes(row Row, useScheduledFallback bool) (arrival, departure string) {
	if row.PublicArrival != "" || row.PublicDeparture != "" {
		return row.PublicArrival, row.PublicDeparture
	}
	if useScheduledFallback {
		return row.ScheduledArrival, row.ScheduledDeparture
	}
	return "", ""
}

func stopHour(arrival, departure string) (int, bool) {
	if arrival != "" {
		if h, err := parseHour(arrival); err == nil {
			return h, true
		}
	}
	if departure != "" {
		if h, err := parseHour(departure); err == nil {
			return h, true
		}
	}
	return 0, false
}

func splitActivity(activity string) []string {
	var codes []string
	for i := 0; i+1 < len(activity); i += 2 {
		codes = append(codes, activity[i:i+2])
	}
	return codes
}

func hasActivity(activity, code string) bool {
	for _, c := range splitActivity(activity) {
		if c == code {
			return true
		}
	}
	return false
}

func hasAnyActivity(activity string, codes ...string) bool {
	for _, c := range codes {
		if hasActivity(activity, c) {
			return true
		}
	}
	return false
}

// activityPickupDropoff implements §4.2 step 5.
func activityPickupDropoff(activity string) (pickup, dropoff railrecord.PickupDropoffType) {
	pickup = railrecord.PickupDropoffNotAllowed
	if hasAnyActivity(activity, "T ", "TB", "U ") && !hasActivity(activity, "N ") {
		pickup = railrecord.PickupDropoffRegular
	}

	dropoff = railrecord.PickupDropoffNotAllowed
	if hasAnyActivity(activity, "T ", "TF", "D ") && !hasActivity(activity, "N ") {
		dropoff = railrecord.PickupDropoffRegular
	}

	if hasActivity(activity, "R ") {
		pickup, dropoff = railrecord.PickupDropoffCoordinated, railrecord.PickupDropoffCoordinated
	}

	return pickup, dropoff
}
