package domain

import "fmt"

// JoinKey selects the country identifier shared by both sides of the join.
type JoinKey string

const (
	// JoinOnCode matches CountryStat.Code against CityRecord.CountryCode.
	JoinOnCode JoinKey = "code"
	// JoinOnName matches CountryStat.Location against CityRecord.CountryName.
	JoinOnName JoinKey = "name"
)

// JoinType selects what happens to countries without a weather match.
type JoinType string

const (
	// InnerJoin drops countries with no matching observation.
	InnerJoin JoinType = "inner"
	// LeftJoin keeps every country, with empty weather fields when unmatched.
	LeftJoin JoinType = "left"
)

// JoinOptions configures Join.
type JoinOptions struct {
	Key  JoinKey
	Type JoinType
}

// ParseJoinKey validates a configured join key.
func ParseJoinKey(s string) (JoinKey, error) {
	switch k := JoinKey(s); k {
	case JoinOnCode, JoinOnName:
		return k, nil
	default:
		return "", fmt.Errorf("unknown join key %q (want %q or %q)", s, JoinOnCode, JoinOnName)
	}
}

// ParseJoinType validates a configured join type.
func ParseJoinType(s string) (JoinType, error) {
	switch t := JoinType(s); t {
	case InnerJoin, LeftJoin:
		return t, nil
	default:
		return "", fmt.Errorf("unknown join type %q (want %q or %q)", s, InnerJoin, LeftJoin)
	}
}

func (o JoinOptions) statKey(s CountryStat) string {
	if o.Key == JoinOnCode {
		return NormalizeKey(s.Code)
	}
	return NormalizeKey(s.Location)
}

func (o JoinOptions) cityKey(c CityRecord) string {
	if o.Key == JoinOnCode {
		return NormalizeKey(c.CountryCode)
	}
	return NormalizeKey(c.CountryName)
}

// Join merges country statistics with weather observations on the
// normalized country key. Rows follow the statistics' order; a country
// matching several observations yields one row per observation, in
// observation order.
func Join(stats []CountryStat, observations []WeatherObservation, opts JoinOptions) []JoinedRow {
	byKey := make(map[string][]int, len(observations))
	for i, obs := range observations {
		k := opts.cityKey(obs.City)
		if k == "" {
			continue
		}
		byKey[k] = append(byKey[k], i)
	}

	now := clock.Now().UTC()
	rows := make([]JoinedRow, 0, len(observations))
	for _, stat := range stats {
		matches := byKey[opts.statKey(stat)]
		if len(matches) == 0 {
			if opts.Type == LeftJoin {
				rows = append(rows, JoinedRow{Stat: stat, ProcessedAt: now})
			}
			continue
		}
		for _, i := range matches {
			obs := observations[i]
			rows = append(rows, JoinedRow{Stat: stat, Weather: &obs, ProcessedAt: now})
		}
	}
	return rows
}
