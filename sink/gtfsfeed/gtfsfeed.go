// Package gtfsfeed implements the reference sink.RowSink: it loads every row
// the pipeline produces into a real github.com/patrickbr/gtfsparser/gtfs.Feed
// and serializes it with github.com/patrickbr/gtfswriter — the teacher's own
// output library, now serving assembly output instead of feed-tidying
// output. CSV/zip emission itself stays entirely inside gtfswriter.Writer,
// exactly as gtfstidy.go's own `w.Write(feed, *outputPath)` call site does.
package gtfsfeed

import (
	"strconv"

	"github.com/patrickbr/gtfsparser"
	"github.com/patrickbr/gtfsparser/gtfs"
	"github.com/patrickbr/gtfswriter"

	"github.com/ukrail-gtfs/assembler/calendar"
	"github.com/ukrail-gtfs/assembler/railrecord"
	"github.com/ukrail-gtfs/assembler/sink"
)

// Sink builds a *gtfsparser.Feed in memory as rows arrive and writes it to
// OutputPath on Close, the same two-step shape gtfstidy.go itself follows
// (parse/build into a Feed, then a single Writer.Write call at the end).
type Sink struct {
	OutputPath string
	Writer     gtfswriter.Writer

	feed *gtfsparser.Feed

	stopsByPlatform map[string]string // unused; original_trip_id values live in feed.TripsAddFlds
}

// New builds a Sink that will write a GTFS feed (directory or .zip,
// following gtfswriter.Writer.Write's own convention) to outputPath on
// Close. ZipCompressionLevel/Sorted mirror gtfstidy.go's own defaults.
func New(outputPath string) *Sink {
	feed := gtfsparser.NewFeed()
	feed.TripsAddFlds = make(map[string]map[string]string)
	return &Sink{
		OutputPath: outputPath,
		Writer:     gtfswriter.Writer{ZipCompressionLevel: 9, Sorted: true},
		feed:       feed,
	}
}

// PutAgency implements sink.RowSink.
func (s *Sink) PutAgency(row sink.AgencyRow) {
	s.feed.Agencies[row.AgencyID] = &gtfs.Agency{
		Id:       row.AgencyID,
		Name:     row.Name,
		Url:      row.URL,
		Timezone: row.Timezone,
	}
}

// PutStop implements sink.RowSink.
func (s *Sink) PutStop(row sink.StopRow) {
	s.feed.Stops[row.StopID] = &gtfs.Stop{
		Id:            row.StopID,
		Code:          row.Code,
		Name:          row.Name,
		Lat:           float32(row.Lat),
		Lon:           float32(row.Lon),
		Platform_code: row.PlatformCode,
	}
}

// PutRoute implements sink.RowSink.
func (s *Sink) PutRoute(row sink.RouteRow) {
	r := &gtfs.Route{
		Id:         row.RouteID,
		Short_name: row.ShortName,
		Long_name:  row.LongName,
		Type:       gtfsRouteType(row.Type),
		Color:      row.Color,
		Text_color: row.TextColor,
	}
	if a, ok := s.feed.Agencies[row.AgencyID]; ok {
		r.Agency = a
	}
	s.feed.Routes[row.RouteID] = r
}

// gtfsRouteType maps railrecord.RouteType onto the GTFS route_type
// enumeration (§3: Rail/Bus/ReplacementBus/Subway/Ferry). ReplacementBus has
// no distinct GTFS mode of its own, so it is emitted as route_type 3 (Bus),
// matching the spec's own note that a replacement bus route only earns a
// distinguishing "_BUS" suffix on its route id (§4.8), not a separate mode.
func gtfsRouteType(rt railrecord.RouteType) int16 {
	switch rt {
	case railrecord.RouteTypeRail:
		return 2
	case railrecord.RouteTypeBus, railrecord.RouteTypeReplacementBus:
		return 3
	case railrecord.RouteTypeSubway:
		return 1
	case railrecord.RouteTypeFerry:
		return 4
	default:
		return 2
	}
}

// PutCalendar implements sink.RowSink.
func (s *Sink) PutCalendar(row calendar.CalendarRow) {
	svc := s.service(row.ServiceID)
	svc.SetDaymap(0, row.Sunday)
	svc.SetDaymap(1, row.Monday)
	svc.SetDaymap(2, row.Tuesday)
	svc.SetDaymap(3, row.Wednesday)
	svc.SetDaymap(4, row.Thursday)
	svc.SetDaymap(5, row.Friday)
	svc.SetDaymap(6, row.Saturday)
	svc.SetStart_date(gtfsDate(row.StartDate))
	svc.SetEnd_date(gtfsDate(row.EndDate))
}

// PutCalendarDate implements sink.RowSink.
func (s *Sink) PutCalendarDate(row calendar.CalendarDateRow) {
	svc := s.service(row.ServiceID)
	svc.Exceptions()[gtfsDate(row.Date)] = row.ExceptionType == 1
}

func (s *Sink) service(id string) *gtfs.Service {
	svc, ok := s.feed.Services[id]
	if !ok {
		svc = gtfs.EmptyService()
		svc.SetId(id)
		s.feed.Services[id] = svc
	}
	return svc
}

// gtfsDate parses the "YYYYMMDD" rows this package's callers always supply
// (calendar.Date.Compact's format) into a gtfs.Date.
func gtfsDate(compact string) gtfs.Date {
	d, err := calendar.ParseDateCompact(compact)
	if err != nil {
		return gtfs.Date{}
	}
	return gtfs.NewDate(uint8(d.Day), uint8(d.Month), uint16(d.Year))
}

// PutShape implements sink.RowSink.
func (s *Sink) PutShape(row sink.ShapeRow) {
	shape, ok := s.feed.Shapes[row.ShapeID]
	if !ok {
		shape = &gtfs.Shape{Id: row.ShapeID}
		s.feed.Shapes[row.ShapeID] = shape
	}
	shape.Points = append(shape.Points, gtfs.ShapePoint{
		Lat:      float32(row.Lat),
		Lon:      float32(row.Lon),
		Sequence: uint32(row.Sequence),
	})
}

// PutTrip implements sink.RowSink. It stashes the trip in the feed; its
// stop times are attached by subsequent PutStopTime calls keyed by trip id.
func (s *Sink) PutTrip(row sink.TripRow) {
	headsign := row.Headsign
	t := &gtfs.Trip{
		Id: row.TripID,
	}
	if headsign != "" {
		t.Headsign = &headsign
	}
	if r, ok := s.feed.Routes[row.RouteID]; ok {
		t.Route = r
	}
	if svc, ok := s.feed.Services[row.ServiceID]; ok {
		t.Service = svc
	}
	if sh, ok := s.feed.Shapes[row.ShapeID]; ok {
		t.Shape = sh
	}
	s.feed.Trips[row.TripID] = t

	if s.feed.TripsAddFlds["original_trip_id"] == nil {
		s.feed.TripsAddFlds["original_trip_id"] = make(map[string]string)
	}
	s.feed.TripsAddFlds["original_trip_id"][row.TripID] = row.OriginalTripID
}

// PutStopTime implements sink.RowSink. Stop times must arrive in sequence
// order per trip, as the pipeline itself always produces them (§8).
func (s *Sink) PutStopTime(row sink.StopTimeRow) {
	t, ok := s.feed.Trips[row.TripID]
	if !ok {
		return // tolerate: trip row hadn't arrived yet (out-of-order caller)
	}

	headsign := row.Headsign
	st := gtfs.StopTime{}
	st.SetArrival_time(gtfsTime(row.ArrivalTime))
	st.SetDeparture_time(gtfsTime(row.DepartureTime))
	st.SetPickup_type(int8(row.PickupType))
	st.SetDrop_off_type(int8(row.DropOffType))
	st.SetTimepoint(row.Timepoint)
	if headsign != "" {
		st.SetHeadsign(&headsign)
	}
	if stop, ok := s.feed.Stops[row.StopID]; ok {
		st.SetStop(stop)
	}

	t.StopTimes = append(t.StopTimes, st)
}

// gtfsTime parses "HH:MM:SS" (hours may exceed 23 per the spec's rollover
// rule) into a gtfs.Time.
func gtfsTime(hhmmss string) gtfs.Time {
	if hhmmss == "" {
		return gtfs.Time{}
	}
	h, m, sec := 0, 0, 0
	parts := [3]*int{&h, &m, &sec}
	start := 0
	idx := 0
	for i := 0; i <= len(hhmmss) && idx < 3; i++ {
		if i == len(hhmmss) || hhmmss[i] == ':' {
			v, _ := strconv.Atoi(hhmmss[start:i])
			*parts[idx] = v
			idx++
			start = i + 1
		}
	}
	return gtfs.Time{Hour: int8(h), Minute: int8(m), Second: int8(sec)}
}

// PutTransfer implements sink.RowSink.
func (s *Sink) PutTransfer(row sink.TransferRow) {
	from, okFrom := s.feed.Stops[row.FromStopID]
	to, okTo := s.feed.Stops[row.ToStopID]
	if !okFrom || !okTo {
		return
	}
	s.feed.Transfers[&gtfs.Transfer{
		From_stop:         from,
		To_stop:           to,
		Transfer_type:     int8(row.TransferType),
		Min_transfer_time: int(row.MinTransferTime),
	}] = true
}

// PutFeedInfo implements sink.RowSink. feed_info.txt has no direct call site
// anywhere in the pack's copy of gtfstidy (it never writes one), so this is
// a best-effort mapping onto gtfsparser's FeedInfo entity, following the
// direct-field style every other entity in this file uses. pipeline.Run never
// calls it; the row's StartDate and EndDate are not mapped.
func (s *Sink) PutFeedInfo(row sink.FeedInfoRow) {
	s.feed.FeedInfos = append(s.feed.FeedInfos, &gtfs.FeedInfo{
		Publisher_name: row.PublisherName,
		Publisher_url:  row.PublisherURL,
		Lang:           row.Lang,
		Version:        row.Version,
	})
}

// PutLink is a no-op: links.txt has no analogue in gtfsparser/gtfswriter's
// GTFS-reference entity set (§6 calls it out as a passthrough-only file);
// a sink that needs it would serialize LinkRow directly rather than through
// this gtfs.Feed-backed implementation.
func (s *Sink) PutLink(sink.LinkRow) {}

// Close writes the accumulated feed to s.OutputPath via gtfswriter.
func (s *Sink) Close() error {
	return s.Writer.Write(s.feed, s.OutputPath)
}
