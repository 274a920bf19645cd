// Package sink declares the output boundary the core pipeline writes to
// without owning (§1: "emits an in-memory representation of GTFS entities to
// a row sink it does not own"). It holds the plain output record tuples named
// in §3 ("Route / Shape / Trip ... plain record tuples used only as
// outputs") plus the RowSink interface every concrete emitter implements.
//
// Two concrete sinks live alongside this package: sink/gtfsfeed (the
// reference implementation, writing a real GTFS feed via the teacher's own
// gtfsparser/gtfswriter) and sink/geojson (a debug preview of shapes only).
package sink

import (
	"github.com/ukrail-gtfs/assembler/calendar"
	"github.com/ukrail-gtfs/assembler/railrecord"
)

// TripRow is one trips.txt record, including the non-standard
// original_trip_id column the spec calls out in §6.
type TripRow struct {
	RouteID        string
	ServiceID      string
	TripID         string
	ShapeID        string
	Headsign       string
	OriginalTripID string // the source TUID, §6
}

// StopTimeRow is one stop_times.txt record.
type StopTimeRow struct {
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string // ATCO code
	Sequence      int
	Headsign      string
	PickupType    railrecord.PickupDropoffType
	DropOffType   railrecord.PickupDropoffType
	Timepoint     bool
}

// RouteRow is one routes.txt record.
type RouteRow struct {
	RouteID   string
	AgencyID  string
	ShortName string
	LongName  string
	Type      railrecord.RouteType
	Color     string
	TextColor string
}

// ShapeRow is one shapes.txt record (one row per sequenced point).
type ShapeRow struct {
	ShapeID  string
	Sequence int
	Lat      float64
	Lon      float64
}

// StopRow is one stops.txt record. PlatformCode is the non-standard column
// the spec calls out in §6; everything else is standard GTFS.
type StopRow struct {
	StopID       string // ATCO code
	Code         string // CRS
	Name         string
	Lat          float64
	Lon          float64
	PlatformCode string
}

// AgencyRow is one agency.txt record.
type AgencyRow struct {
	AgencyID string
	Name     string
	URL      string
	Timezone string
}

// TransferRow, FeedInfoRow are pure pass-through shapes: the core never
// constructs these itself (§1 scope line; station-interchange distances and
// feed metadata are external-collaborator territory), but a conforming sink
// still needs somewhere to put rows its caller supplies directly.
type TransferRow struct {
	FromStopID      string
	ToStopID        string
	TransferType    int
	MinTransferTime int
}

// FeedInfoRow is the feed_info.txt passthrough row (§6, populated by the
// caller, never by the core itself).
type FeedInfoRow struct {
	PublisherName string
	PublisherURL  string
	Lang          string
	StartDate     string
	EndDate       string
	Version       string
}

// LinkRow is the links.txt passthrough row (out of scope per §1; carried
// verbatim from whatever the caller supplies).
type LinkRow struct {
	FromStopID string
	ToStopID   string
	URL        string
}

// RowSink is the output boundary the assembled pipeline writes rows to. It
// does not own the rows' lifetime or their serialization format; a sink
// implementation decides whether to buffer, stream to CSV, or load into an
// in-memory GTFS feed object.
type RowSink interface {
	PutTrip(TripRow)
	PutStopTime(StopTimeRow)
	PutRoute(RouteRow)
	PutShape(ShapeRow)
	PutStop(StopRow)
	PutAgency(AgencyRow)
	PutCalendar(calendar.CalendarRow)
	PutCalendarDate(calendar.CalendarDateRow)
	PutTransfer(TransferRow)
	PutFeedInfo(FeedInfoRow)
	PutLink(LinkRow)

	// Close flushes and finalises the sink, returning any write error.
	Close() error
}

// Multi fans every Put call out to all of Sinks in order, and closes each of
// them on Close, collecting the first error encountered. It lets a caller
// attach a debug sink (sink/geojson) alongside the reference one
// (sink/gtfsfeed) without re-running the pipeline once per sink.
type Multi struct {
	Sinks []RowSink
}

func (m Multi) PutTrip(row TripRow) {
	for _, s := range m.Sinks {
		s.PutTrip(row)
	}
}

func (m Multi) PutStopTime(row StopTimeRow) {
	for _, s := range m.Sinks {
		s.PutStopTime(row)
	}
}

func (m Multi) PutRoute(row RouteRow) {
	for _, s := range m.Sinks {
		s.PutRoute(row)
	}
}

func (m Multi) PutShape(row ShapeRow) {
	for _, s := range m.Sinks {
		s.PutShape(row)
	}
}

func (m Multi) PutStop(row StopRow) {
	for _, s := range m.Sinks {
		s.PutStop(row)
	}
}

func (m Multi) PutAgency(row AgencyRow) {
	for _, s := range m.Sinks {
		s.PutAgency(row)
	}
}

func (m Multi) PutCalendar(row calendar.CalendarRow) {
	for _, s := range m.Sinks {
		s.PutCalendar(row)
	}
}

func (m Multi) PutCalendarDate(row calendar.CalendarDateRow) {
	for _, s := range m.Sinks {
		s.PutCalendarDate(row)
	}
}

func (m Multi) PutTransfer(row TransferRow) {
	for _, s := range m.Sinks {
		s.PutTransfer(row)
	}
}

func (m Multi) PutFeedInfo(row FeedInfoRow) {
	for _, s := range m.Sinks {
		s.PutFeedInfo(row)
	}
}

func (m Multi) PutLink(row LinkRow) {
	for _, s := range m.Sinks {
		s.PutLink(row)
	}
}

// Close closes every sink, returning the first error encountered (after
// still attempting to close the rest).
func (m Multi) Close() error {
	var first error
	for _, s := range m.Sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
