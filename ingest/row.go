// Package ingest implements StreamingScheduleBuilder: the single-pass fold
// that turns a lazily-streamed sequence of CIF/TTIS stop-time rows into a
// per-schedule list of railrecord.Schedule, normalising midnight rollover and
// deriving pickup/drop-off semantics from the CIF activity codes on the way
// (§4.2 of the spec).
//
// There is no direct ancestor for a CIF row fold in the teacher (gtfstidy
// starts from an already-parsed gtfs.Feed), so this package's row-to-struct
// shape instead follows other_examples/4d91934e_aaroncutress-gtfs-go__models-service.go.go
// and its sibling service.go (stateful scan over csv/sql rows into a domain
// struct, database/sql-style nullable fields).
package ingest

import (
	"github.com/ukrail-gtfs/assembler/calendar"
	"github.com/ukrail-gtfs/assembler/railrecord"
)

// Row is one stop-time row as streamed from the relational schema (§4.2). All
// text fields arrive exactly as the external SQL collaborator emits them;
// this package never talks to a database directly.
type Row struct {
	ID       int // schedule id; identical across every row of one schedule
	StopID   int // position-generated ordering key within the schedule
	TrainUID string
	RSID     string

	RunsFrom calendar.Date
	RunsTo   calendar.Date
	Weekdays calendar.WeekdayMask

	ATCO   string
	TIPLOC string
	CRS    string

	STP railrecord.STPIndicator

	PublicArrival      string
	PublicDeparture    string
	ScheduledArrival   string
	ScheduledDeparture string

	TrainCategory string
	ATOCCode      string
	Platform      string
	Activity      string
	TrainClass    string
	Reservations  string
}

// RowSource is a lazy, backpressure-free push source of Rows, ordered by
// `(stp_indicator DESC, id, stop_id)` as required by §5. It is the core's one
// I/O boundary; the core never owns or closes the underlying stream.
type RowSource interface {
	// Next returns the next row. ok is false once the source is exhausted.
	// Any non-nil error aborts the build per §7 ("Row stream I/O error ...
	// propagate; no partial schedules emitted").
	Next() (row Row, ok bool, err error)
}

// SliceSource adapts an in-memory slice of Rows to RowSource, for tests and
// for small feeds assembled ahead of time.
type SliceSource struct {
	rows []Row
	pos  int
}

// NewSliceSource builds a RowSource over rows.
func NewSliceSource(rows []Row) *SliceSource {
	return &SliceSource{rows: rows}
}

// Next implements RowSource.
func (s *SliceSource) Next() (Row, bool, error) {
	if s.pos >= len(s.rows) {
		return Row{}, false, nil
	}
	r := s.rows[s.pos]
	s.pos++
	return r, true, nil
}
