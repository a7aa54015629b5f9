// Command fetch runs one fetch→normalize→filter pass against the feed and
// writes the result as JSON or CSV. Useful for eyeballing live feed data and
// generating test fixtures without standing up the full service.
//
// Usage:
//
//	go run ./cmd/fetch -window 24h -min-mag 2.5 -format csv -out today.csv
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/seismoscope/quake-feed-service/internal/adapter/usgs"
	"github.com/seismoscope/quake-feed-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	baseURL := flag.String("base-url", "https://earthquake.usgs.gov/fdsnws/event/1/query", "feed query endpoint")
	window := flag.Duration("window", 24*time.Hour, "lookback from now")
	timeout := flag.Duration("timeout", 10*time.Second, "fetch timeout")
	minMag := flag.Float64("min-mag", -10, "minimum magnitude, inclusive")
	maxMag := flag.Float64("max-mag", 12, "maximum magnitude, inclusive")
	format := flag.String("format", "json", "output format: json or csv")
	out := flag.String("out", "", "output path (default stdout)")
	flag.Parse()

	if *format != "json" && *format != "csv" {
		flag.Usage()
		return fmt.Errorf("invalid -format %q: want json or csv", *format)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := usgs.NewClient(*baseURL, *timeout, logger)

	now := time.Now().UTC()
	fetchWindow := domain.TimeWindow{Start: now.Add(-*window), End: now}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+5*time.Second)
	defer cancel()

	raw, err := client.Fetch(ctx, fetchWindow)
	if err != nil {
		return err
	}

	records, drops := domain.Normalize(raw)
	criteria := domain.FilterCriteria{
		Window:    fetchWindow,
		Magnitude: domain.MagnitudeRange{Min: *minMag, Max: *maxMag},
	}
	if err := criteria.Validate(); err != nil {
		return err
	}
	filtered := domain.ApplyFilter(records, criteria)

	logger.Info("fetched",
		"raw", len(raw),
		"dropped", drops.Total(),
		"matched", len(filtered),
	)

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if *format == "csv" {
		return writeCSV(w, filtered)
	}
	return writeJSON(w, filtered)
}

func writeJSON(w io.Writer, records []domain.EventRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeCSV(w io.Writer, records []domain.EventRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "id", "place", "magnitude", "depth_km", "latitude", "longitude", "severity"}); err != nil {
		return err
	}
	for _, ev := range records {
		row := []string{
			ev.Time.Format(time.RFC3339),
			ev.ID,
			ev.Place,
			strconv.FormatFloat(ev.Magnitude, 'f', 2, 64),
			strconv.FormatFloat(ev.Depth, 'f', 1, 64),
			strconv.FormatFloat(ev.Latitude, 'f', 4, 64),
			strconv.FormatFloat(ev.Longitude, 'f', 4, 64),
			ev.Severity,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
