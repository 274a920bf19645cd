// Command assemblefeed is the CLI entrypoint for the schedule assembly
// engine: it reads CIF/TTIS stop-time and association rows from CSV files
// (standing in for the out-of-scope SQL row stream per §1 of the spec) and
// writes an assembled GTFS feed.
//
// Grounded directly on gtfstidy.go: github.com/spf13/pflag short+long flag
// declarations, a top-level `defer recover()` error boundary, and
// os.Exit(1) on failure.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/ukrail-gtfs/assembler/ingest"
	"github.com/ukrail-gtfs/assembler/pipeline"
	rowcsv "github.com/ukrail-gtfs/assembler/rowsource/csv"
	"github.com/ukrail-gtfs/assembler/sink"
	"github.com/ukrail-gtfs/assembler/sink/geojson"
	"github.com/ukrail-gtfs/assembler/sink/gtfsfeed"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "assemblefeed - CIF/TTIS to GTFS schedule assembly\n\nUsage:\n\n  %s [<options>] <stop-times.csv>\n\nAllowed options:\n\n", os.Args[0])
		flag.PrintDefaults()
	}

	outputPath := flag.StringP("output", "o", "gtfs-out", "GTFS output directory or zip file (must end with .zip)")
	associationsPath := flag.StringP("associations", "a", "", "association rows CSV file (optional)")
	geojsonPath := flag.StringP("shapes-geojson", "g", "", "also write a debug GeoJSON preview of deduplicated shapes to this path")
	useScheduledFallback := flag.BoolP("scheduled-fallback", "s", false, "fall back to scheduled arrival/departure when neither public time is set")
	help := flag.BoolP("help", "?", false, "this message")

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "No stop-time CSV specified, see --help")
		os.Exit(1)
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "Error:", r)
			os.Exit(1)
		}
	}()

	stopTimesFile, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error opening stop-time CSV:", err)
		os.Exit(1)
	}
	defer stopTimesFile.Close()

	scheduleSrc, err := rowcsv.NewStopTimeSource(stopTimesFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error parsing stop-time CSV:", err)
		os.Exit(1)
	}

	var assocSrc pipeline.AssociationSource
	if *associationsPath != "" {
		assocFile, err := os.Open(*associationsPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error opening association CSV:", err)
			os.Exit(1)
		}
		defer assocFile.Close()

		src, err := rowcsv.NewAssociationSource(assocFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error parsing association CSV:", err)
			os.Exit(1)
		}
		assocSrc = src
	}

	out := sink.RowSink(gtfsfeed.New(*outputPath))

	var geoFile *os.File
	if *geojsonPath != "" {
		geoFile, err = os.Create(*geojsonPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error creating GeoJSON output:", err)
			os.Exit(1)
		}
		defer geoFile.Close()
		out = sink.Multi{Sinks: []sink.RowSink{out, geojson.New(geoFile)}}
	}

	p := &pipeline.Pipeline{
		Schedules:    scheduleSrc,
		Associations: assocSrc,
		Sink:         out,
		Options: pipeline.Options{
			Ingest: ingest.Options{UseScheduledWhenNoPublic: *useScheduledFallback},
		},
	}

	result, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "\nError while assembling feed:")
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Assembled %d trips, %d routes, %d shapes from %d schedules and %d associations.\n",
		result.TripsEmitted, result.RoutesEmitted, result.ShapesEmitted, result.SchedulesBuilt, result.AssociationsLoaded)
}
