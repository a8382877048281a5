package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/couchcryptid/city-weather-etl/internal/observability"
)

// SourceLoader extracts the pandemic statistics and the city reference data.
type SourceLoader interface {
	CountryStats(ctx context.Context) ([]domain.CountryStat, error)
	Cities(ctx context.Context) ([]domain.CityRecord, error)
}

// WeatherResolver enriches the selected cities with current weather.
type WeatherResolver interface {
	Resolve(ctx context.Context, cities []domain.CityRecord) (domain.ResolveResult, error)
}

// Sink writes the joined table to one destination.
type Sink interface {
	Name() string
	Write(ctx context.Context, rows []domain.JoinedRow) error
}

// DropRecorder persists the cities that missed both weather lookups.
type DropRecorder interface {
	Write(dropped []domain.Resolution) error
}

// Result summarizes one completed run.
type Result struct {
	Countries int            `json:"countries"`
	Cities    int            `json:"cities"`
	Selected  int            `json:"selected"`
	ByName    int            `json:"resolved_by_name"`
	ByCoords  int            `json:"resolved_by_coordinates"`
	Dropped   int            `json:"dropped"`
	Rows      int            `json:"rows"`
	Written   map[string]int `json:"written"`
	Duration  time.Duration  `json:"duration_ns"`
	Finished  time.Time      `json:"finished"`
}

// Pipeline runs extract, select, resolve, join and load once, strictly in
// that order.
type Pipeline struct {
	source   SourceLoader
	selector *CitySelector
	resolver WeatherResolver
	join     domain.JoinOptions
	sinks    []Sink
	drops    DropRecorder
	logger   *slog.Logger
	metrics  *observability.Metrics

	ready atomic.Bool
	last  atomic.Pointer[Result]
}

// New creates a Pipeline with the given stages and observability. drops may
// be nil when no drop list is kept.
func New(
	source SourceLoader,
	selector *CitySelector,
	resolver WeatherResolver,
	join domain.JoinOptions,
	sinks []Sink,
	drops DropRecorder,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Pipeline {
	return &Pipeline{
		source:   source,
		selector: selector,
		resolver: resolver,
		join:     join,
		sinks:    sinks,
		drops:    drops,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// LastResult returns the summary of the most recent successful run.
func (p *Pipeline) LastResult() (Result, bool) {
	r := p.last.Load()
	if r == nil {
		return Result{}, false
	}
	return *r, true
}

// Run executes one full run. Sinks are only written after the join
// succeeds; any error before that leaves every output untouched.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	p.logger.Info("pipeline started", "sinks", sinkNames(p.sinks), "join_key", p.join.Key, "join_type", p.join.Type)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	stats, err := p.source.CountryStats(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("extract: %w", err)
	}
	cities, err := p.source.Cities(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("extract: %w", err)
	}

	selected := p.selector.Select(stats, cities)
	p.metrics.CitiesSelected.Set(float64(len(selected)))

	resolved, err := p.resolver.Resolve(ctx, selected)
	if err != nil {
		return Result{}, fmt.Errorf("resolve: %w", err)
	}
	p.metrics.CitiesDropped.Add(float64(len(resolved.Dropped)))

	rows := domain.Join(stats, resolved.Observations, p.join)
	p.metrics.RowsJoined.Set(float64(len(rows)))
	p.logger.Info("join complete", "rows", len(rows), "observations", len(resolved.Observations), "countries", len(stats))

	result := Result{
		Countries: len(stats),
		Cities:    len(cities),
		Selected:  len(selected),
		ByName:    resolved.NameHits,
		ByCoords:  resolved.CoordHits,
		Dropped:   len(resolved.Dropped),
		Rows:      len(rows),
		Written:   make(map[string]int, len(p.sinks)),
	}

	if err := p.load(ctx, rows, result.Written); err != nil {
		return Result{}, err
	}
	if p.drops != nil {
		if err := p.drops.Write(resolved.Dropped); err != nil {
			return Result{}, fmt.Errorf("load: %w", err)
		}
	}

	result.Duration = time.Since(start)
	result.Finished = time.Now().UTC()
	p.metrics.RunDuration.Observe(result.Duration.Seconds())
	p.last.Store(&result)
	p.ready.Store(true)

	p.logger.Info("pipeline finished",
		"selected", result.Selected,
		"by_name", result.ByName,
		"by_coordinates", result.ByCoords,
		"dropped", result.Dropped,
		"rows", result.Rows,
		"duration", result.Duration,
	)
	return result, nil
}

func (p *Pipeline) load(ctx context.Context, rows []domain.JoinedRow, written map[string]int) error {
	for _, s := range p.sinks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("load: %w", err)
		}
		if err := s.Write(ctx, rows); err != nil {
			return fmt.Errorf("load %s: %w", s.Name(), err)
		}
		written[s.Name()] = len(rows)
		p.metrics.RowsWritten.WithLabelValues(s.Name()).Add(float64(len(rows)))
		p.logger.Info("sink written", "sink", s.Name(), "rows", len(rows))
	}
	return nil
}

func sinkNames(sinks []Sink) []string {
	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	return names
}
