// Package railrecord holds the domain records shared by the overlay, association
// and flattening passes: the OverlayRecord capability, Schedule, StopTime and
// Association. Field shapes follow github.com/patrickbr/gtfsparser/gtfs's own
// Service/Trip/StopTime records (as used throughout the teacher's processors
// package), generalised from GTFS-native fields to the CIF/TTIS fields this
// engine actually ingests.
package railrecord

import (
	"fmt"

	"github.com/ukrail-gtfs/assembler/calendar"
)

// STPIndicator is the Short-Term Planning indicator carried by every overlay
// record.
type STPIndicator int

const (
	STPPermanent STPIndicator = iota
	STPOverlay
	STPNew
	STPCancellation
)

func (s STPIndicator) String() string {
	switch s {
	case STPPermanent:
		return "Permanent"
	case STPOverlay:
		return "Overlay"
	case STPNew:
		return "New"
	case STPCancellation:
		return "Cancellation"
	default:
		return fmt.Sprintf("STPIndicator(%d)", int(s))
	}
}

// RouteType is the GTFS-ish mode an assembled schedule runs as.
type RouteType int

const (
	RouteTypeRail RouteType = iota
	RouteTypeBus
	RouteTypeReplacementBus
	RouteTypeSubway
	RouteTypeFerry
)

// DateIndicator is an association's day-shift relative to its base schedule.
type DateIndicator int

const (
	DateSame DateIndicator = iota
	DateNext
	DatePrevious
)

// AssociationType is the kind of join/split an Association record describes.
type AssociationType int

const (
	AssocNA AssociationType = iota
	AssocSplit
	AssocJoin
)

// PickupDropoffType is a GTFS stop_times pickup_type/drop_off_type value.
type PickupDropoffType int

const (
	PickupDropoffRegular     PickupDropoffType = 0
	PickupDropoffNotAllowed  PickupDropoffType = 1
	PickupDropoffPhone       PickupDropoffType = 2
	PickupDropoffCoordinated PickupDropoffType = 3
)

// OverlayRecord is the capability shared by every record kind the overlay
// resolver operates on: a numeric id, a TUID, an STP indicator, a calendar,
// and the ability to clone itself with a replacement calendar and id while
// keeping every other field untouched. OverlayResolver is written generically
// in terms of this interface so the same algorithm handles both Schedule and
// Association.
type OverlayRecord[T any] interface {
	RecordID() int
	RecordTUID() string
	RecordSTP() STPIndicator
	RecordCalendar() *calendar.Calendar
	CloneWith(cal *calendar.Calendar, id int) T
}

// StopTime is one stop visit within a Schedule.
type StopTime struct {
	TripID        string
	ArrivalTime   string // "HH:MM:SS", hours may exceed 23 after rollover
	DepartureTime string
	ATCO          string
	CRS           string
	TIPLOC        string
	Sequence      int // 1-based
	Headsign      string
	PickupType    PickupDropoffType
	DropOffType   PickupDropoffType
	Timepoint     bool
}

// HasPublicCall reports whether this stop has at least one non-empty public
// time, i.e. it is a real passenger call and not a pure pass-through.
func (s StopTime) HasPublicCall() bool {
	return s.ArrivalTime != "" || s.DepartureTime != ""
}

// Schedule is one concrete, STP-resolved working of a train: an OverlayRecord
// plus its derived trip id, ordered stop times and service attributes.
type Schedule struct {
	ID       int
	TUID     string
	STP      STPIndicator
	Calendar *calendar.Calendar

	RSID                string
	StopTimes           []StopTime
	RouteType           RouteType
	OperatorCode        string
	FirstClassAvailable bool
	ReservationPossible bool
}

// TripID derives the spec's `{tuid}_{runsFrom:YYYYMMDD}_{runsTo:YYYYMMDD}` id.
// It is computed fresh from the current calendar rather than cached, since the
// calendar changes (via Clone) every time an overlay or association is applied.
func (s *Schedule) TripID() string {
	if s.Calendar == nil {
		return s.TUID
	}
	return s.TUID + "_" + s.Calendar.From.Compact() + "_" + s.Calendar.To.Compact()
}

// Origin returns the stop id of the first stop time, or "" if there are none.
func (s *Schedule) Origin() string {
	if len(s.StopTimes) == 0 {
		return ""
	}
	return s.StopTimes[0].TIPLOC
}

// Destination returns the stop id of the last stop time, or "" if there are
// none.
func (s *Schedule) Destination() string {
	if len(s.StopTimes) == 0 {
		return ""
	}
	return s.StopTimes[len(s.StopTimes)-1].TIPLOC
}

// StopAt returns the index of the first stop time at the given TIPLOC, or -1.
func (s *Schedule) StopAt(tiploc string) int {
	for i, st := range s.StopTimes {
		if st.TIPLOC == tiploc {
			return i
		}
	}
	return -1
}

// Before returns a copy of the stop times up to and including idx.
func (s *Schedule) Before(idx int) []StopTime {
	out := make([]StopTime, idx+1)
	copy(out, s.StopTimes[:idx+1])
	return out
}

// After returns a copy of the stop times from idx onward.
func (s *Schedule) After(idx int) []StopTime {
	out := make([]StopTime, len(s.StopTimes)-idx)
	copy(out, s.StopTimes[idx:])
	return out
}

// RecordID implements OverlayRecord.
func (s *Schedule) RecordID() int { return s.ID }

// RecordTUID implements OverlayRecord.
func (s *Schedule) RecordTUID() string { return s.TUID }

// RecordSTP implements OverlayRecord.
func (s *Schedule) RecordSTP() STPIndicator { return s.STP }

// RecordCalendar implements OverlayRecord.
func (s *Schedule) RecordCalendar() *calendar.Calendar { return s.Calendar }

// CloneWith implements OverlayRecord: every field except the calendar and id
// is copied verbatim, including a fresh copy of the stop-time slice so the
// clone never aliases the original's backing array.
func (s *Schedule) CloneWith(cal *calendar.Calendar, id int) *Schedule {
	stops := make([]StopTime, len(s.StopTimes))
	copy(stops, s.StopTimes)
	return &Schedule{
		ID:                  id,
		TUID:                s.TUID,
		STP:                 s.STP,
		Calendar:            cal,
		RSID:                s.RSID,
		StopTimes:           stops,
		RouteType:           s.RouteType,
		OperatorCode:        s.OperatorCode,
		FirstClassAvailable: s.FirstClassAvailable,
		ReservationPossible: s.ReservationPossible,
	}
}

// Association is a declaration that two TUID-identified schedules join or
// split at a given TIPLOC, possibly across the service-day boundary.
type Association struct {
	ID       int
	STP      STPIndicator
	Calendar *calendar.Calendar

	BaseTUID      string
	AssocTUID     string
	AssocLocation string
	DateIndicator DateIndicator
	Type          AssociationType
}

// TUID is the spec's derived association key: `{baseTUID}_{assocTUID}_`.
func (a *Association) TUID() string {
	return a.BaseTUID + "_" + a.AssocTUID + "_"
}

// RecordID implements OverlayRecord.
func (a *Association) RecordID() int { return a.ID }

// RecordTUID implements OverlayRecord.
func (a *Association) RecordTUID() string { return a.TUID() }

// RecordSTP implements OverlayRecord.
func (a *Association) RecordSTP() STPIndicator { return a.STP }

// RecordCalendar implements OverlayRecord.
func (a *Association) RecordCalendar() *calendar.Calendar { return a.Calendar }

// CloneWith implements OverlayRecord.
func (a *Association) CloneWith(cal *calendar.Calendar, id int) *Association {
	return &Association{
		ID:            id,
		STP:           a.STP,
		Calendar:      cal,
		BaseTUID:      a.BaseTUID,
		AssocTUID:     a.AssocTUID,
		AssocLocation: a.AssocLocation,
		DateIndicator: a.DateIndicator,
		Type:          a.Type,
	}
}
