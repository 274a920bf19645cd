// Package routegroup implements RouteGrouping and ShapeDedup: the two passes
// that turn the flattened schedule list into GTFS routes.txt and shapes.txt
// entities (§4.8 of the spec).
//
// The operator colour/name table is encoded verbatim from the spec's wire
// format; the dedup-by-hash-key technique for both routes and shapes follows
// the teacher's processors/routeduplicateremover.go (fnv hash of a composite
// key, first writer owns the id) via idhash.HashStrings.
package routegroup

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/ukrail-gtfs/assembler/idhash"
	"github.com/ukrail-gtfs/assembler/railrecord"
)

// operatorInfo is one row of the §6 operator colour/name table.
type operatorInfo struct {
	Short  string
	Long   string
	Colour string // "" means null/unbranded
}

// operatorTable is the §6 table, encoded verbatim.
var operatorTable = map[string]operatorInfo{
	"AW": {"TfW Rail", "Transport for Wales", "#ff0000"},
	"CC": {"c2c", "", "#b7007c"},
	"CH": {"Chiltern Railways", "", "#00bfff"},
	"XC": {"CrossCountry", "", "#660f21"},
	"GR": {"LNER", "LNER long", "#ce0e2d"},
	"EM": {"EMR", "East Midlands Railway", "#713563"},
	"ES": {"Eurostar", "", "#ffd700"},
	"GW": {"GWR", "Great Western Railway", "#0a493e"},
	"HT": {"Hull Trains", "", "#de005c"},
	"TP": {"TPE", "TransPennine Express", "#09a4ec"},
	"GX": {"Gatwick Express", "", "#eb1e2d"},
	"GC": {"Grand Central", "", "#1d1d1b"},
	"GN": {"Great Northern", "", "#0099ff"},
	"LE": {"Greater Anglia", "", "#d70428"},
	"HX": {"Heathrow Express", "", "#532e63"},
	"IL": {"Island Line", "", "#1e90ff"},
	"LD": {"Lumo", "", "#2b6ef5"},
	"LM": {"WMT", "West Midlands Trains", ""},
	"LO": {"Overground", "London Overground", "#ff7518"},
	"LT": {"Underground", "London Underground", "#000f9f"},
	"ME": {"Merseyrail", "", "#fff200"},
	"NT": {"Northern", "", "#0f0d78"},
	"SR": {"ScotRail", "", "#1e467d"},
	"SW": {"SWR", "South Western Railway", "#24398c"},
	"SE": {"Southeastern", "", "#389cff"},
	"SN": {"Southern", "", "#8cc63e"},
	"TL": {"Thameslink", "", "#ff5aa4"},
	"VT": {"Avanti", "Avanti West Coast", "#004354"},
	"TW": {"Metro", "Tyne & Wear Metro", ""},
	"CS": {"Caledonian Sleeper", "", "#1d2e35"},
	"XR": {"Elizabeth line", "", "#9364cc"},
	"QC": {"Caledonian MacBrayne", "", ""},
	"QS": {"Stena Line", "", ""},
	"ZZ": {"Other operator", "", ""},
}

// lmCityTokens are the city names that route an LM (West Midlands Trains)
// service to the long-distance "LNR" brand rather than the local "WMR" one.
var lmCityTokens = []string{"Liverpool", "Crewe", "Tring"}

// loLines are the six disjoint CRS sets used to name London Overground
// services by line rather than by the single "Overground" brand.
var loLines = map[string][]string{
	"Watford DC Line":       {"WFJ", "HRO", "BSH", "CEY"},
	"Gospel Oak to Barking": {"GPO", "BKG"},
	"Romford to Upminster":  {"RMF", "UPM"},
	"East London Line":      {"HHY", "NWX", "WWC"},
	"West London Line":      {"WLO", "SRY"},
	"North London Line":     {"RMD", "WIJ", "SYD"},
}

// meLines splits Merseyrail into its two named lines by CRS set.
var meLines = map[string][]string{
	"Northern Line": {"SDB", "KKB", "HLR"},
	"Wirral Line":   {"WRX", "NBN", "HED"},
}

// Route is one GTFS route entity as derived by RouteGrouping.
type Route struct {
	AgencyID  string
	RouteType railrecord.RouteType
	ShortName string
	LongName  string
	Color     string
	TextColor string
}

func (r Route) key() string {
	return strings.Join([]string{r.AgencyID, strconv.Itoa(int(r.RouteType)), r.ShortName, r.LongName, r.Color, r.TextColor}, "|")
}

// GroupRoutes implements RouteGrouping: it assigns one route id per distinct
// (agency, mode, short name, long name, colour, text colour) key, the first
// schedule to contribute a key owning that id. It returns the assigned route
// id for every schedule and the Route metadata for every assigned id.
func GroupRoutes(schedules []*railrecord.Schedule) (map[*railrecord.Schedule]string, map[string]Route) {
	assign := make(map[*railrecord.Schedule]string, len(schedules))
	byID := make(map[string]Route)
	idByKey := make(map[string]string)

	for _, s := range schedules {
		route := deriveRoute(s)
		key := route.key()

		id, ok := idByKey[key]
		if !ok {
			id = fmt.Sprintf("%x", idhash.HashStrings(key))
			if s.RouteType == railrecord.RouteTypeReplacementBus {
				id += "_BUS"
			}
			idByKey[key] = id
			byID[id] = route
		}
		assign[s] = id
	}

	return assign, byID
}

// deriveRoute implements the per-operator branching of §4.8.
func deriveRoute(s *railrecord.Schedule) Route {
	op := s.OperatorCode
	info, known := operatorTable[op]

	route := Route{AgencyID: op, RouteType: s.RouteType}

	if !known {
		route.ShortName = unknownShortName(s)
		return route
	}

	route.ShortName, route.LongName, route.Color = info.Short, info.Long, info.Colour

	switch op {
	case "LM":
		if containsAny(stopDisplayNames(s), lmCityTokens) {
			route.ShortName, route.LongName = "LNR", "London Northwestern Railway"
		} else {
			route.ShortName, route.LongName = "WMR", "West Midlands Railway"
		}
	case "LE":
		names := stopDisplayNames(s)
		if containsAny(names, []string{"London"}) && containsAny(names, []string{"Stansted Airport"}) {
			route.ShortName, route.LongName = "Stansted Express", "Stansted Express"
		}
	case "LO":
		if line, ok := matchLineSet(s, loLines); ok {
			route.ShortName, route.LongName = line, line
		}
	case "ME":
		if line, ok := matchLineSet(s, meLines); ok {
			route.ShortName, route.LongName = line, line
		}
	}

	return route
}

func unknownShortName(s *railrecord.Schedule) string {
	if len(s.RSID) >= 6 {
		return s.RSID[:6]
	}
	if s.RSID != "" {
		return s.RSID
	}
	return s.TUID
}

func stopDisplayNames(s *railrecord.Schedule) []string {
	out := make([]string, 0, len(s.StopTimes))
	for _, st := range s.StopTimes {
		out = append(out, st.CRS, st.TIPLOC)
	}
	return out
}

func containsAny(haystack, needles []string) bool {
	for _, h := range haystack {
		for _, n := range needles {
			if strings.Contains(h, n) {
				return true
			}
		}
	}
	return false
}

func matchLineSet(s *railrecord.Schedule, lines map[string][]string) (string, bool) {
	for name, crsSet := range lines {
		for _, st := range s.StopTimes {
			if containsCRS(crsSet, st.CRS) {
				return name, true
			}
		}
	}
	return "", false
}

func containsCRS(set []string, crs string) bool {
	return slices.Contains(set, crs)
}

// Point is a WGS84 coordinate, as supplied by the external station-location
// overlay (out of scope per §1; the caller injects it here).
type Point struct {
	Lat, Lon float64
}

// ShapePoint is one sequence-numbered point of a GTFS shape.
type ShapePoint struct {
	Sequence int
	Lat      float64
	Lon      float64
}

// DedupShapes implements ShapeDedup: one shape sequence per distinct
// stop-id sequence, keyed by a hash of that sequence so two schedules
// calling at the identical ordered stops share a shape id.
func DedupShapes(schedules []*railrecord.Schedule, coords map[string]Point) (map[*railrecord.Schedule]string, map[string][]ShapePoint) {
	assign := make(map[*railrecord.Schedule]string, len(schedules))
	shapes := make(map[string][]ShapePoint)
	idByKey := make(map[string]string)
	stopIDsByKey := make(map[string][]string)

	for _, s := range schedules {
		stopIDs := make([]string, len(s.StopTimes))
		for i, st := range s.StopTimes {
			stopIDs[i] = st.TIPLOC
		}
		key := fmt.Sprintf("%x", idhash.HashStrings(stopIDs...))

		id, ok := idByKey[key]
		if ok && !slices.Equal(stopIDs, stopIDsByKey[key]) {
			// hash collision between two different stop sequences: fall back
			// to a fresh id rather than merging unrelated shapes.
			ok = false
			key = fmt.Sprintf("%s-%d", key, len(shapes))
		}
		if !ok {
			id = key
			idByKey[key] = id
			stopIDsByKey[key] = stopIDs
			shapes[id] = buildShapePoints(s, coords)
		}
		assign[s] = id
	}

	return assign, shapes
}

func buildShapePoints(s *railrecord.Schedule, coords map[string]Point) []ShapePoint {
	var pts []ShapePoint
	seq := 0
	for _, st := range s.StopTimes {
		p, ok := coords[st.TIPLOC]
		if !ok {
			continue
		}
		pts = append(pts, ShapePoint{Sequence: seq, Lat: p.Lat, Lon: p.Lon})
		seq++
	}
	return pts
}
