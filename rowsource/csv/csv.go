// Package csv implements a dev/test ingest.RowSource and pipeline.AssociationSource
// backed by CSV files, standing in for the out-of-scope SQL row stream (§1)
// so the pipeline is exercisable without a live database.
//
// Grounded directly on tidbyt-gtfs's own CSV ingestion path
// (parse/stop_times.go, parse/parse.go): github.com/gocarina/gocsv for the
// column-tagged row structs, and github.com/spkg/bom.NewReader stripping a
// leading UTF-8 BOM before gocsv sees it. Unlike that path, each source here
// parses its whole file eagerly with gocsv.Unmarshal and then serves the
// buffered rows one at a time.
package csv

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spkg/bom"

	"github.com/ukrail-gtfs/assembler/calendar"
	"github.com/ukrail-gtfs/assembler/ingest"
	"github.com/ukrail-gtfs/assembler/railrecord"
)

// StopTimeRow is the on-disk shape of one ingest.Row, column-tagged for
// gocsv the same way tidbyt-gtfs's StopTimeCSV is.
type StopTimeRow struct {
	ID       int    `csv:"id"`
	StopID   int    `csv:"stop_id"`
	TrainUID string `csv:"train_uid"`
	RSID     string `csv:"rsid"`

	RunsFrom string `csv:"runs_from"`
	RunsTo   string `csv:"runs_to"`
	Sunday   int    `csv:"sunday"`
	Monday   int    `csv:"monday"`
	Tuesday  int    `csv:"tuesday"`
	Wednesday int   `csv:"wednesday"`
	Thursday int    `csv:"thursday"`
	Friday   int    `csv:"friday"`
	Saturday int    `csv:"saturday"`

	ATCO   string `csv:"atco_code"`
	TIPLOC string `csv:"tiploc_code"`
	CRS    string `csv:"stop_code"`

	STP string `csv:"stp_indicator"`

	PublicArrival      string `csv:"public_arrival"`
	PublicDeparture    string `csv:"public_departure"`
	ScheduledArrival   string `csv:"scheduled_arrival"`
	ScheduledDeparture string `csv:"scheduled_departure"`

	TrainCategory string `csv:"train_category"`
	ATOCCode      string `csv:"atoc_code"`
	Platform      string `csv:"platform"`
	Activity      string `csv:"activity"`
	TrainClass    string `csv:"train_class"`
	Reservations  string `csv:"reservations"`
}

// AssociationRow is the on-disk shape of one railrecord.Association.
type AssociationRow struct {
	ID   int    `csv:"id"`
	STP  string `csv:"stp_indicator"`

	RunsFrom string `csv:"runs_from"`
	RunsTo   string `csv:"runs_to"`
	Sunday   int    `csv:"sunday"`
	Monday   int    `csv:"monday"`
	Tuesday  int    `csv:"tuesday"`
	Wednesday int   `csv:"wednesday"`
	Thursday int    `csv:"thursday"`
	Friday   int    `csv:"friday"`
	Saturday int    `csv:"saturday"`

	BaseTUID      string `csv:"base_uid"`
	AssocTUID     string `csv:"assoc_uid"`
	AssocLocation string `csv:"location"`
	DateIndicator string `csv:"date_indicator"`
	Type          string `csv:"category"`
}

var stpByCode = map[string]railrecord.STPIndicator{
	"P": railrecord.STPPermanent,
	"O": railrecord.STPOverlay,
	"N": railrecord.STPNew,
	"C": railrecord.STPCancellation,
}

var dateIndicatorByCode = map[string]railrecord.DateIndicator{
	"S": railrecord.DateSame,
	"N": railrecord.DateNext,
	"P": railrecord.DatePrevious,
}

var assocTypeByCode = map[string]railrecord.AssociationType{
	"VV": railrecord.AssocNA,
	"JJ": railrecord.AssocJoin,
	"VS": railrecord.AssocSplit,
}

// StopTimeSource reads ingest.Row values from a CSV file, fully buffered in
// memory, since the caller already guarantees the required stream order
// (`stp_indicator DESC, id, stop_id`) by sorting the export on the way out of
// the database (§5).
type StopTimeSource struct {
	rows []ingest.Row
	pos  int
}

// NewStopTimeSource parses every row of r eagerly and returns a RowSource
// over the result.
func NewStopTimeSource(r io.Reader) (*StopTimeSource, error) {
	var csvRows []StopTimeRow
	if err := gocsv.Unmarshal(bom.NewReader(r), &csvRows); err != nil {
		return nil, errors.Wrap(err, "rowsource/csv: parsing stop-time rows")
	}

	rows := make([]ingest.Row, 0, len(csvRows))
	for i, c := range csvRows {
		row, err := toIngestRow(c)
		if err != nil {
			return nil, errors.Wrapf(err, "rowsource/csv: row %d", i)
		}
		rows = append(rows, row)
	}
	return &StopTimeSource{rows: rows}, nil
}

// Next implements ingest.RowSource.
func (s *StopTimeSource) Next() (ingest.Row, bool, error) {
	if s.pos >= len(s.rows) {
		return ingest.Row{}, false, nil
	}
	r := s.rows[s.pos]
	s.pos++
	return r, true, nil
}

func toIngestRow(c StopTimeRow) (ingest.Row, error) {
	from, err := calendar.ParseDate(c.RunsFrom)
	if err != nil {
		return ingest.Row{}, err
	}
	to, err := calendar.ParseDate(c.RunsTo)
	if err != nil {
		return ingest.Row{}, err
	}
	stp, ok := stpByCode[c.STP]
	if !ok {
		return ingest.Row{}, errors.Errorf("unknown stp_indicator %q", c.STP)
	}

	return ingest.Row{
		ID:       c.ID,
		StopID:   c.StopID,
		TrainUID: c.TrainUID,
		RSID:     c.RSID,
		RunsFrom: from,
		RunsTo:   to,
		Weekdays: calendar.NewWeekdayMask(
			c.Sunday != 0, c.Monday != 0, c.Tuesday != 0,
			c.Wednesday != 0, c.Thursday != 0, c.Friday != 0, c.Saturday != 0,
		),
		ATCO:               c.ATCO,
		TIPLOC:             c.TIPLOC,
		CRS:                c.CRS,
		STP:                stp,
		PublicArrival:      c.PublicArrival,
		PublicDeparture:    c.PublicDeparture,
		ScheduledArrival:   c.ScheduledArrival,
		ScheduledDeparture: c.ScheduledDeparture,
		TrainCategory:      c.TrainCategory,
		ATOCCode:           c.ATOCCode,
		Platform:           c.Platform,
		Activity:           c.Activity,
		TrainClass:         c.TrainClass,
		Reservations:       c.Reservations,
	}, nil
}

// AssociationSource reads railrecord.Association values from a CSV file,
// fully buffered for the same ordering reason as StopTimeSource.
type AssociationSource struct {
	rows []railrecord.Association
	pos  int
}

// NewAssociationSource parses every row of r eagerly.
func NewAssociationSource(r io.Reader) (*AssociationSource, error) {
	var csvRows []AssociationRow
	if err := gocsv.Unmarshal(bom.NewReader(r), &csvRows); err != nil {
		return nil, errors.Wrap(err, "rowsource/csv: parsing association rows")
	}

	rows := make([]railrecord.Association, 0, len(csvRows))
	for i, c := range csvRows {
		rec, err := toAssociation(c)
		if err != nil {
			return nil, errors.Wrapf(err, "rowsource/csv: association row %d", i)
		}
		rows = append(rows, rec)
	}
	return &AssociationSource{rows: rows}, nil
}

// Next implements pipeline.AssociationSource.
func (s *AssociationSource) Next() (railrecord.Association, bool, error) {
	if s.pos >= len(s.rows) {
		return railrecord.Association{}, false, nil
	}
	r := s.rows[s.pos]
	s.pos++
	return r, true, nil
}

func toAssociation(c AssociationRow) (railrecord.Association, error) {
	from, err := calendar.ParseDate(c.RunsFrom)
	if err != nil {
		return railrecord.Association{}, err
	}
	to, err := calendar.ParseDate(c.RunsTo)
	if err != nil {
		return railrecord.Association{}, err
	}
	stp, ok := stpByCode[c.STP]
	if !ok {
		return railrecord.Association{}, errors.Errorf("unknown stp_indicator %q", c.STP)
	}
	di, ok := dateIndicatorByCode[c.DateIndicator]
	if !ok {
		return railrecord.Association{}, errors.Errorf("unknown date_indicator %q", c.DateIndicator)
	}
	typ, ok := assocTypeByCode[c.Type]
	if !ok {
		return railrecord.Association{}, errors.Errorf("unknown association category %q", c.Type)
	}

	mask := calendar.NewWeekdayMask(
		c.Sunday != 0, c.Monday != 0, c.Tuesday != 0,
		c.Wednesday != 0, c.Thursday != 0, c.Friday != 0, c.Saturday != 0,
	)

	return railrecord.Association{
		ID:            c.ID,
		STP:           stp,
		Calendar:      calendar.New(from, to, mask, nil),
		BaseTUID:      c.BaseTUID,
		AssocTUID:     c.AssocTUID,
		AssocLocation: c.AssocLocation,
		DateIndicator: di,
		Type:          typ,
	}, nil
}
