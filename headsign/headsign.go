// Package headsign implements HeadsignInference: a per-stop, per-schedule
// pass that assigns GTFS stop_headsign values using two layered, data-driven
// rule tables rather than hard-coded branches (§4.7 of the spec).
//
// The teacher has no headsign concept (gtfstidy only tidies an already-built
// feed), so the shape of "a table of data keyed by a small code, walked once
// per entity" is grounded instead on processors/routeduplicateremover.go's
// static operator-keyed tables and on the lookup-table style of §6's route
// colour/name table.
package headsign

import "github.com/ukrail-gtfs/assembler/railrecord"

// TopologyRule is one row of the layer-1 rule table: for a stop on a
// schedule run by Operator, if FindCRS is called later in the same
// schedule, assign a headsign built from FalseDest and ViaPlace.
//
//   - FalseDest set, ViaPlace empty   -> "<FalseDest>"
//   - FalseDest empty, ViaPlace set   -> "<Destination> (via <ViaPlace>)"
//   - both set                       -> "<FalseDest> (via <ViaPlace>)"
//
// Operator "*" is the catch-all rule, tried after every operator-specific
// rule for the schedule's own operator has failed to match.
type TopologyRule struct {
	Operator  string
	FindCRS   string
	FalseDest string
	ViaPlace  string
}

// stationNames is the minimal CRS -> display name table needed by the rule
// set below. It is deliberately small: only codes actually referenced by a
// TopologyRule or ViaEntry need an entry.
var stationNames = map[string]string{
	"WAT": "London Waterloo",
	"KNG": "Kingston",
	"HOU": "Hounslow",
	"GLD": "Guildford",
	"PMH": "Portsmouth Harbour",
	"CHX": "London Charing Cross",
	"DFD": "Dartford",
	"WWA": "Woolwich Arsenal",
	"BXH": "Bexleyheath",
	"SID": "Sidcup",
	"RAM": "Ramsgate",
	"CLJ": "Clapham Junction",
	"HHY": "Highbury & Islington",
	"LVJ": "Liverpool James Street",
	"NBN": "New Brighton",
	"WRX": "West Kirby",
	"MYT": "Merthyr Tydfil",
	"CDF": "Cardiff Central",
	"HUD": "Huddersfield",
	"BGH": "Brighouse",
}

func displayName(crs string) string {
	if n, ok := stationNames[crs]; ok {
		return n
	}
	return crs
}

// TopologyRules is the layer-1 table, organised by operator code (§4.7.1).
var TopologyRules = []TopologyRule{
	// SW: Kingston and Hounslow loops, Guildford, Portsmouth.
	{Operator: "SW", FindCRS: "KNG", ViaPlace: "Kingston"},
	{Operator: "SW", FindCRS: "HOU", ViaPlace: "Hounslow"},
	{Operator: "SW", FindCRS: "GLD", FalseDest: "Guildford"},
	{Operator: "SW", FindCRS: "PMH", FalseDest: "Portsmouth Harbour"},

	// SE: Dartford, Woolwich, Bexleyheath, Sidcup, Kent Coast.
	{Operator: "SE", FindCRS: "DFD", ViaPlace: "Dartford"},
	{Operator: "SE", FindCRS: "WWA", ViaPlace: "Woolwich"},
	{Operator: "SE", FindCRS: "BXH", ViaPlace: "Bexleyheath"},
	{Operator: "SE", FindCRS: "SID", ViaPlace: "Sidcup"},
	{Operator: "SE", FindCRS: "RAM", FalseDest: "Ramsgate"},

	// LO: Clapham Junction and Highbury loops.
	{Operator: "LO", FindCRS: "CLJ", FalseDest: "Clapham Junction"},
	{Operator: "LO", FindCRS: "HHY", FalseDest: "Highbury & Islington"},

	// ME: Wirral.
	{Operator: "ME", FindCRS: "WRX", ViaPlace: "West Kirby"},
	{Operator: "ME", FindCRS: "NBN", ViaPlace: "New Brighton"},

	// AW: Merthyr.
	{Operator: "AW", FindCRS: "MYT", FalseDest: "Merthyr Tydfil"},

	// Catch-all Huddersfield/Brighouse rule.
	{Operator: "*", FindCRS: "BGH", FalseDest: "Brighouse"},
	{Operator: "*", FindCRS: "HUD", FalseDest: "Huddersfield"},
}

// ViaEntry is one row of the layer-2 via-text table, keyed by the stop CRS
// at which it may apply (§4.7.2).
type ViaEntry struct {
	At      string
	Dest    string // false-destination TIPLOC, or the true destination TIPLOC
	Loc1    string
	Loc2    string // "" means no second via point required
	ViaText string
}

// ViaTable is the layer-2 table.
var ViaTable = map[string][]ViaEntry{
	"WAT": {
		{At: "WAT", Dest: "GLD", Loc1: "CLJ", ViaText: "Clapham Junction"},
	},
	"CHX": {
		{At: "CHX", Dest: "RAM", Loc1: "DFD", Loc2: "SID", ViaText: "Dartford & Sidcup"},
	},
}

// findCallingIndex returns the index of the first stop at or after start
// whose CRS equals crs, or -1.
func findCallingIndex(s *railrecord.Schedule, crs string, start int) int {
	for i := start; i < len(s.StopTimes); i++ {
		if s.StopTimes[i].CRS == crs {
			return i
		}
	}
	return -1
}

// Infer runs both layers of HeadsignInference over every stop of s,
// assigning StopTime.Headsign in place.
func Infer(s *railrecord.Schedule) {
	for i := range s.StopTimes {
		headsign := topologyHeadsign(s, i)
		if headsign == "" {
			headsign = viaHeadsign(s, i)
		}
		s.StopTimes[i].Headsign = headsign
	}
}

func topologyHeadsign(s *railrecord.Schedule, stopIdx int) string {
	op := s.OperatorCode
	for _, rule := range TopologyRules {
		if rule.Operator != op && rule.Operator != "*" {
			continue
		}
		if findCallingIndex(s, rule.FindCRS, stopIdx+1) < 0 {
			continue
		}
		switch {
		case rule.FalseDest != "" && rule.ViaPlace != "":
			return rule.FalseDest + " (via " + rule.ViaPlace + ")"
		case rule.ViaPlace != "":
			return displayName(s.Destination()) + " (via " + rule.ViaPlace + ")"
		default:
			return rule.FalseDest
		}
	}
	return ""
}

func viaHeadsign(s *railrecord.Schedule, stopIdx int) string {
	stopCRS := s.StopTimes[stopIdx].CRS
	entries := ViaTable[stopCRS]
	if len(entries) == 0 {
		return ""
	}

	var best *ViaEntry
	bestPos := -1

	for i := range entries {
		e := &entries[i]
		destIdx := s.StopAt(e.Dest)
		if destIdx < 0 || destIdx <= stopIdx {
			continue
		}
		via := viaTIPLOCs(s, stopIdx+1, destIdx)
		loc1Pos := indexOf(via, e.Loc1)
		if loc1Pos < 0 {
			continue
		}
		if e.Loc2 != "" {
			loc2Pos := indexOf(via, e.Loc2)
			if loc2Pos < 0 || loc2Pos <= loc1Pos {
				continue
			}
		}
		if best == nil || loc1Pos < bestPos {
			best = e
			bestPos = loc1Pos
		}
	}

	if best == nil {
		return ""
	}
	return displayName(best.Dest) + " (" + best.ViaText + ")"
}

// viaTIPLOCs collects the TIPLOCs of stops in [from, to) that have a
// non-null arrival time, per §4.7.2.
func viaTIPLOCs(s *railrecord.Schedule, from, to int) []string {
	var out []string
	for i := from; i < to && i < len(s.StopTimes); i++ {
		if s.StopTimes[i].ArrivalTime != "" {
			out = append(out, s.StopTimes[i].TIPLOC)
		}
	}
	return out
}

func indexOf(haystack []string, needle string) int {
	for i, v := range haystack {
		if v == needle {
			return i
		}
	}
	return -1
}
