// Package geojson implements a debug/preview sink.RowSink: it accumulates
// every Shape the pipeline assigns and, on Close, writes one GeoJSON
// FeatureCollection with one LineString feature per distinct shape, for
// visual QA of the shape-dedup pass (§4.8). Every other entity kind is
// accepted and discarded; this sink exists for shape preview only.
//
// Grounded on github.com/paulmach/go.geojson (declared in the teacher's own
// go.mod with no call site in the pack's copy of gtfstidy's source — wired
// here instead of left dead) and github.com/twpayne/go-polyline, used by
// OneBusAway-maglev's internal/restapi/shapes_handler_test.go for polyline
// *decoding*; used here for the inverse, *encoding*, to attach a compact
// polyline string alongside each feature for quick eyeballing in a log line.
package geojson

import (
	"encoding/json"
	"io"
	"sort"

	geo "github.com/paulmach/go.geojson"
	"github.com/twpayne/go-polyline"

	"github.com/ukrail-gtfs/assembler/calendar"
	"github.com/ukrail-gtfs/assembler/sink"
)

// Sink accumulates shape points keyed by shape id and writes a GeoJSON
// FeatureCollection to W on Close.
type Sink struct {
	W io.Writer

	points map[string][]sink.ShapeRow
}

// New builds a Sink writing to w.
func New(w io.Writer) *Sink {
	return &Sink{W: w, points: make(map[string][]sink.ShapeRow)}
}

// PutShape implements sink.RowSink.
func (s *Sink) PutShape(row sink.ShapeRow) {
	s.points[row.ShapeID] = append(s.points[row.ShapeID], row)
}

// PutTrip, PutStopTime, PutRoute, PutStop, PutAgency, PutCalendar,
// PutCalendarDate, PutTransfer, PutFeedInfo and PutLink implement the rest of
// sink.RowSink as no-ops: this sink previews shapes only.
func (s *Sink) PutTrip(sink.TripRow)                            {}
func (s *Sink) PutStopTime(sink.StopTimeRow)                    {}
func (s *Sink) PutRoute(sink.RouteRow)                          {}
func (s *Sink) PutStop(sink.StopRow)                            {}
func (s *Sink) PutAgency(sink.AgencyRow)                        {}
func (s *Sink) PutCalendar(calendar.CalendarRow)                {}
func (s *Sink) PutCalendarDate(calendar.CalendarDateRow)        {}
func (s *Sink) PutTransfer(sink.TransferRow)                    {}
func (s *Sink) PutFeedInfo(sink.FeedInfoRow)                    {}
func (s *Sink) PutLink(sink.LinkRow)                            {}

// Close writes the accumulated shapes as a GeoJSON FeatureCollection.
func (s *Sink) Close() error {
	fc := geo.NewFeatureCollection()

	ids := make([]string, 0, len(s.points))
	for id := range s.points {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		pts := s.points[id]
		sort.Slice(pts, func(i, j int) bool { return pts[i].Sequence < pts[j].Sequence })

		geoCoords := make([][]float64, len(pts))
		plCoords := make([][]float64, len(pts))
		for i, p := range pts {
			geoCoords[i] = []float64{p.Lon, p.Lat} // GeoJSON order: lon, lat
			plCoords[i] = []float64{p.Lat, p.Lon}  // Google polyline order: lat, lng
		}

		feature := geo.NewLineStringFeature(geoCoords)
		feature.SetProperty("shape_id", id)
		feature.SetProperty("polyline", string(polyline.EncodeCoords(plCoords)))
		fc.AddFeature(feature)
	}

	enc := json.NewEncoder(s.W)
	return enc.Encode(fc)
}
