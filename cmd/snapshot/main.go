// Command snapshot downloads the pandemic and city reference sources and
// stores them as local files, so later runs can point COVID_SOURCE and
// CITIES_SOURCE at a fixed copy. Pandemic entries that are not objects are
// dropped on the way.
//
// Usage:
//
//	go run ./cmd/snapshot --out data/snapshot
//	go run ./cmd/snapshot --out data/snapshot --schema=countries --cities=<url>
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/adapter/file"
	"github.com/couchcryptid/city-weather-etl/internal/adapter/source"
	"github.com/couchcryptid/city-weather-etl/internal/config"
	"github.com/couchcryptid/city-weather-etl/internal/observability"
	"github.com/docopt/docopt-go"
)

const usage = `Reference data snapshot.

Usage:
  snapshot --out=<dir> [--covid=<source>] [--cities=<source>] [--schema=<schema>] [--timeout=<duration>]
  snapshot -h | --help

Options:
  -h --help               Show this screen.
  --out=<dir>             Directory the snapshot files are written to.
  --covid=<source>        Pandemic statistics path or URL [default: ` + config.DefaultCovidSource + `].
  --cities=<source>       City reference path or URL [default: ` + config.DefaultCitiesSource + `].
  --schema=<schema>       City document shape, cities or countries [default: cities].
  --timeout=<duration>    Per-source fetch timeout [default: 120s].
`

type options struct {
	Out     string `docopt:"--out"`
	Covid   string `docopt:"--covid"`
	Cities  string `docopt:"--cities"`
	Schema  string `docopt:"--schema"`
	Timeout string `docopt:"--timeout"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	arguments, err := docopt.ParseDoc(usage)
	if err != nil {
		return fmt.Errorf("parse arguments: %w", err)
	}
	var opts options
	if err := arguments.Bind(&opts); err != nil {
		return fmt.Errorf("bind arguments: %w", err)
	}
	if opts.Schema != source.SchemaCities && opts.Schema != source.SchemaCountries {
		return fmt.Errorf("invalid --schema %q: want cities or countries", opts.Schema)
	}
	timeout, err := time.ParseDuration(opts.Timeout)
	if err != nil || timeout <= 0 {
		return fmt.Errorf("invalid --timeout %q", opts.Timeout)
	}

	logger := observability.NewLogger(os.Stderr, "text", slog.LevelInfo, observability.NewRunID())
	fetcher := source.NewFetcher(timeout, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	covid, err := fetcher.Fetch(ctx, opts.Covid)
	if err != nil {
		return err
	}
	covid, stripped, err := source.StripNonObjects(covid)
	if err != nil {
		return err
	}
	covidPath := filepath.Join(opts.Out, "covid.json")
	if err := file.WriteSnapshot(covidPath, covid); err != nil {
		return err
	}
	logger.Info("pandemic snapshot written", "path", covidPath, "stripped", stripped)

	cities, err := fetcher.Fetch(ctx, opts.Cities)
	if err != nil {
		return err
	}
	parse := source.ParseCities
	name := "cities.json"
	if opts.Schema == source.SchemaCountries {
		parse = source.ParseCountries
		name = "countries+cities.json"
	}
	batch, err := parse(cities)
	if err != nil {
		return err
	}
	citiesPath := filepath.Join(opts.Out, name)
	if err := file.WriteSnapshot(citiesPath, cities); err != nil {
		return err
	}
	logger.Info("city snapshot written", "path", citiesPath, "cities", len(batch.Records), "skipped", len(batch.Skipped))
	return nil
}
