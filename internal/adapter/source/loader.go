package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/couchcryptid/city-weather-etl/internal/observability"
)

// City document schemas.
const (
	SchemaCities    = "cities"    // flat cities.json
	SchemaCountries = "countries" // nested countries+cities.json
)

// Loader extracts the pandemic statistics and the city reference dataset.
type Loader struct {
	fetcher     *Fetcher
	covidSource string
	citySource  string
	citySchema  string
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewLoader creates a Loader reading from the given locators.
func NewLoader(fetcher *Fetcher, covidSource, citySource, citySchema string, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		fetcher:     fetcher,
		covidSource: covidSource,
		citySource:  citySource,
		citySchema:  citySchema,
		logger:      logger,
		metrics:     metrics,
	}
}

// CountryStats fetches and parses the pandemic statistics.
func (l *Loader) CountryStats(ctx context.Context) ([]domain.CountryStat, error) {
	data, err := l.fetcher.Fetch(ctx, l.covidSource)
	if err != nil {
		return nil, fmt.Errorf("load pandemic statistics: %w", err)
	}
	batch, err := ParseCountryStats(data)
	if err != nil {
		return nil, fmt.Errorf("load pandemic statistics: %w", err)
	}
	l.report("covid", len(batch.Records), batch.Skipped)
	return batch.Records, nil
}

// Cities fetches and parses the city reference dataset in the configured schema.
func (l *Loader) Cities(ctx context.Context) ([]domain.CityRecord, error) {
	data, err := l.fetcher.Fetch(ctx, l.citySource)
	if err != nil {
		return nil, fmt.Errorf("load cities: %w", err)
	}

	var batch Batch[domain.CityRecord]
	if l.citySchema == SchemaCountries {
		batch, err = ParseCountries(data)
	} else {
		batch, err = ParseCities(data)
	}
	if err != nil {
		return nil, fmt.Errorf("load cities: %w", err)
	}
	l.report("cities", len(batch.Records), batch.Skipped)
	return batch.Records, nil
}

func (l *Loader) report(source string, loaded int, skipped []error) {
	for _, err := range skipped {
		l.logger.Warn("source entry skipped", "source", source, "error", err)
	}
	l.metrics.SourceRecords.WithLabelValues(source, "loaded").Add(float64(loaded))
	l.metrics.SourceRecords.WithLabelValues(source, "skipped").Add(float64(len(skipped)))
	l.logger.Info("source loaded", "source", source, "records", loaded, "skipped", len(skipped))
}
