package domain

import (
	"context"
	"fmt"
	"log/slog"
)

// ResolutionState is a city's position in the lookup state machine.
type ResolutionState int

const (
	StatePending ResolutionState = iota
	StateNameHit
	StateNameMiss
	StateCoordHit
	StateCoordMiss
)

func (s ResolutionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateNameHit:
		return "name_hit"
	case StateNameMiss:
		return "name_miss"
	case StateCoordHit:
		return "coord_hit"
	case StateCoordMiss:
		return "coord_miss"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Resolution is the tagged outcome of resolving one city.
type Resolution struct {
	City        CityRecord
	State       ResolutionState
	Observation *WeatherObservation
	NameErr     error
	CoordErr    error
}

// Resolved reports whether either lookup produced an observation.
func (r Resolution) Resolved() bool {
	return r.State == StateNameHit || r.State == StateCoordHit
}

// Dropped reports whether both lookups missed.
func (r Resolution) Dropped() bool {
	return r.State == StateCoordMiss
}

// ResolveResult is the outcome of one resolver batch.
type ResolveResult struct {
	// Observations holds name-lookup hits in selection order followed by
	// coordinate-lookup hits in deferral order.
	Observations []WeatherObservation
	// Dropped holds the resolutions of cities that missed both lookups.
	Dropped []Resolution
	// Resolutions holds every city's final state, in selection order.
	Resolutions []Resolution

	NameHits  int
	CoordHits int
}

// Resolver enriches selected cities with current weather.
type Resolver struct {
	provider WeatherProvider
	logger   *slog.Logger
}

// NewResolver creates a Resolver backed by provider.
func NewResolver(provider WeatherProvider, logger *slog.Logger) *Resolver {
	return &Resolver{provider: provider, logger: logger}
}

// Resolve runs the two-phase lookup over cities. Every city is first looked
// up by name; only after the whole batch has been tried are the misses
// retried once by coordinates. A city missing both is dropped, never fatal.
// The only error is a missing provider, reported before any lookup.
func (r *Resolver) Resolve(ctx context.Context, cities []CityRecord) (ResolveResult, error) {
	if r.provider == nil {
		return ResolveResult{}, fmt.Errorf("resolve weather: %w", ErrCredentialMissing)
	}

	resolutions := make([]Resolution, len(cities))
	for i, c := range cities {
		resolutions[i] = Resolution{City: c, State: StatePending}
	}

	var result ResolveResult
	deferred := make([]int, 0)

	r.logger.Info("weather name lookups starting", "cities", len(cities))
	for i := range resolutions {
		res := &resolutions[i]
		r.lookupByName(ctx, res, i+1, len(cities))
		if err := ctx.Err(); err != nil {
			return ResolveResult{}, fmt.Errorf("resolve weather: %w", err)
		}
		if res.State == StateNameHit {
			result.Observations = append(result.Observations, *res.Observation)
			result.NameHits++
			continue
		}
		deferred = append(deferred, i)
	}

	r.logger.Info("weather coordinate lookups starting",
		"resolved_by_name", result.NameHits,
		"deferred", len(deferred),
	)
	for n, i := range deferred {
		res := &resolutions[i]
		r.lookupByCoordinates(ctx, res, n+1, len(deferred))
		if err := ctx.Err(); err != nil {
			return ResolveResult{}, fmt.Errorf("resolve weather: %w", err)
		}
		if res.State == StateCoordHit {
			result.Observations = append(result.Observations, *res.Observation)
			result.CoordHits++
			continue
		}
		result.Dropped = append(result.Dropped, *res)
	}

	result.Resolutions = resolutions
	r.logger.Info("weather resolution complete",
		"selected", len(cities),
		"by_name", result.NameHits,
		"by_coordinates", result.CoordHits,
		"dropped", len(result.Dropped),
	)
	return result, nil
}

func (r *Resolver) lookupByName(ctx context.Context, res *Resolution, idx, total int) {
	r.logger.Debug("fetching weather by city name", "city", res.City.Name, "attempt", idx, "of", total)

	cond, err := r.provider.CurrentByName(ctx, res.City.Name)
	if err != nil {
		r.logger.Warn("weather name lookup missed, deferring to coordinates",
			"city", res.City.Name,
			"country", res.City.CountryName,
			"error", err,
		)
		res.State = StateNameMiss
		res.NameErr = err
		return
	}
	res.State = StateNameHit
	res.Observation = newObservation(res.City, cond, LookupByName)
}

func (r *Resolver) lookupByCoordinates(ctx context.Context, res *Resolution, idx, total int) {
	if !res.City.HasCoordinates {
		res.State = StateCoordMiss
		res.CoordErr = fmt.Errorf("no coordinates for %q: %w", res.City.Name, ErrLookupMiss)
		r.logger.Warn("weather coordinate lookup skipped, dropping city",
			"city", res.City.Name,
			"country", res.City.CountryName,
		)
		return
	}

	r.logger.Debug("fetching weather by coordinates",
		"city", res.City.Name,
		"lat", res.City.Latitude,
		"lon", res.City.Longitude,
		"attempt", idx, "of", total,
	)

	cond, err := r.provider.CurrentByCoordinates(ctx, res.City.Latitude, res.City.Longitude)
	if err != nil {
		r.logger.Warn("weather coordinate lookup missed, dropping city",
			"city", res.City.Name,
			"country", res.City.CountryName,
			"lat", res.City.Latitude,
			"lon", res.City.Longitude,
			"error", err,
		)
		res.State = StateCoordMiss
		res.CoordErr = err
		return
	}
	res.State = StateCoordHit
	res.Observation = newObservation(res.City, cond, LookupByCoordinates)
}

func newObservation(c CityRecord, cond CurrentConditions, source LookupStrategy) *WeatherObservation {
	return &WeatherObservation{
		City:           c,
		Condition:      cond.Description,
		MinTemperature: cond.MinTemperature,
		MaxTemperature: cond.MaxTemperature,
		Source:         source,
	}
}
