package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
)

// Default source locations.
const (
	DefaultCovidSource  = "https://raw.githubusercontent.com/owid/covid-19-data/master/public/data/latest/owid-covid-latest.json"
	DefaultCitiesSource = "https://raw.githubusercontent.com/dr5hn/countries-states-cities-database/master/json/cities.json"
	DefaultWeatherURL   = "https://api.openweathermap.org/data/2.5/weather"
)

// Output formats accepted in OUTPUT_FORMATS.
const (
	FormatCSV     = "csv"
	FormatXLSX    = "xlsx"
	FormatParquet = "parquet"
	FormatSQLite  = "sqlite"
	FormatKafka   = "kafka"
	FormatMQTT    = "mqtt"
)

var knownFormats = []string{FormatCSV, FormatXLSX, FormatParquet, FormatSQLite, FormatKafka, FormatMQTT}

// Config holds all run settings, populated from environment variables.
type Config struct {
	// Weather provider.
	WeatherKey             string
	WeatherBaseURL         string `env:"WEATHER_BASE_URL" validate:"http_url"`
	WeatherUnits           string `env:"WEATHER_UNITS" validate:"oneof=standard metric imperial"`
	WeatherTimeout         time.Duration
	WeatherCacheSize       int
	WeatherBreakerFailures uint32

	// Reference sources.
	CovidSource   string
	CitiesSource  string
	CitySchema    string `env:"CITY_SCHEMA" validate:"oneof=cities countries"`
	SourceTimeout time.Duration

	// City selection.
	TargetCountries      []string
	TopCountriesByDeaths int
	CitiesPerCountry     int
	CapitalsOnly         bool

	JoinKey  domain.JoinKey
	JoinType domain.JoinType

	// Sinks.
	OutputDir     string
	OutputTable   string `env:"OUTPUT_TABLE" validate:"required,excludesall=/\\"`
	OutputFormats []string
	SQLitePath    string
	KafkaBrokers  []string
	KafkaTopic    string

	MQTTBroker      string
	MQTTPort        int `env:"MQTT_PORT" validate:"max=65535"`
	MQTTClientID    string
	MQTTTopicPrefix string

	HTTPAddr        string
	MetricsTextfile string
	LogLevel        string
	LogFormat       string `env:"LOG_FORMAT" validate:"oneof=json text"`
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// A missing WEATHER_KEY is reported as domain.ErrCredentialMissing.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := parsePositiveDuration("WEATHER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	sourceTimeout, err := parsePositiveDuration("SOURCE_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("WEATHER_CACHE_SIZE", 1000, 1)
	if err != nil {
		return nil, err
	}
	breakerFailures, err := parseInt("WEATHER_BREAKER_FAILURES", 0, 0)
	if err != nil {
		return nil, err
	}
	mqttPort, err := parseInt("MQTT_PORT", 1883, 1)
	if err != nil {
		return nil, err
	}
	topN, err := parseInt("TOP_COUNTRIES_BY_DEATHS", 0, 0)
	if err != nil {
		return nil, err
	}
	perCountry, err := parseInt("CITIES_PER_COUNTRY", 10, 0)
	if err != nil {
		return nil, err
	}
	capitalsOnly, err := strconv.ParseBool(sharedcfg.EnvOrDefault("CAPITALS_ONLY", "false"))
	if err != nil {
		return nil, errors.New("invalid CAPITALS_ONLY")
	}
	joinKey, err := domain.ParseJoinKey(sharedcfg.EnvOrDefault("JOIN_KEY", string(domain.JoinOnName)))
	if err != nil {
		return nil, fmt.Errorf("invalid JOIN_KEY: %w", err)
	}
	joinType, err := domain.ParseJoinType(sharedcfg.EnvOrDefault("JOIN_TYPE", string(domain.InnerJoin)))
	if err != nil {
		return nil, fmt.Errorf("invalid JOIN_TYPE: %w", err)
	}
	formats, err := parseFormats(sharedcfg.EnvOrDefault("OUTPUT_FORMATS", "csv,xlsx"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		WeatherKey:             strings.TrimSpace(os.Getenv("WEATHER_KEY")),
		WeatherBaseURL:         sharedcfg.EnvOrDefault("WEATHER_BASE_URL", DefaultWeatherURL),
		WeatherUnits:           sharedcfg.EnvOrDefault("WEATHER_UNITS", "metric"),
		WeatherTimeout:         weatherTimeout,
		WeatherCacheSize:       cacheSize,
		WeatherBreakerFailures: uint32(breakerFailures), //nolint:gosec // validated non-negative

		CovidSource:   sharedcfg.EnvOrDefault("COVID_SOURCE", DefaultCovidSource),
		CitiesSource:  sharedcfg.EnvOrDefault("CITIES_SOURCE", DefaultCitiesSource),
		CitySchema:    sharedcfg.EnvOrDefault("CITY_SCHEMA", "cities"),
		SourceTimeout: sourceTimeout,

		TargetCountries:      parseList(sharedcfg.EnvOrDefault("TARGET_COUNTRIES", "United States,Brazil,India")),
		TopCountriesByDeaths: topN,
		CitiesPerCountry:     perCountry,
		CapitalsOnly:         capitalsOnly,

		JoinKey:  joinKey,
		JoinType: joinType,

		OutputDir:     sharedcfg.EnvOrDefault("OUTPUT_DIR", "."),
		OutputTable:   sharedcfg.EnvOrDefault("OUTPUT_TABLE", "City_Weather_Covid_Data"),
		OutputFormats: formats,
		SQLitePath:    sharedcfg.EnvOrDefault("SQLITE_PATH", "city_weather_covid.db"),
		KafkaBrokers:  sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:    sharedcfg.EnvOrDefault("KAFKA_TOPIC", "city-weather-covid"),

		MQTTBroker:      sharedcfg.EnvOrDefault("MQTT_BROKER", "localhost"),
		MQTTPort:        mqttPort,
		MQTTClientID:    sharedcfg.EnvOrDefault("MQTT_CLIENT_ID", "city-weather-etl"),
		MQTTTopicPrefix: strings.Trim(sharedcfg.EnvOrDefault("MQTT_TOPIC_PREFIX", "city-weather"), "/"),

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.WeatherKey == "" {
		return nil, fmt.Errorf("WEATHER_KEY is required: %w", domain.ErrCredentialMissing)
	}
	if err := validateFields(cfg); err != nil {
		return nil, err
	}
	if len(cfg.TargetCountries) == 0 && cfg.TopCountriesByDeaths == 0 {
		return nil, errors.New("TARGET_COUNTRIES is required when TOP_COUNTRIES_BY_DEATHS is 0")
	}
	if cfg.HasFormat(FormatKafka) {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required for the kafka output")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required for the kafka output")
		}
	}

	if cfg.HasFormat(FormatMQTT) && cfg.MQTTTopicPrefix == "" {
		return nil, errors.New("MQTT_TOPIC_PREFIX is required for the mqtt output")
	}

	return cfg, nil
}

// HasFormat reports whether format is among the configured outputs.
func (c *Config) HasFormat(format string) bool {
	return slices.Contains(c.OutputFormats, format)
}

var validate = newValidator()

// newValidator reports field errors by their environment variable name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})
	return v
}

func validateFields(cfg *Config) error {
	err := validate.Struct(cfg)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fe := fieldErrs[0]
	if fe.Param() == "" {
		return fmt.Errorf("invalid %s %v: must satisfy %s", fe.Field(), fe.Value(), fe.Tag())
	}
	return fmt.Errorf("invalid %s %v: must satisfy %s=%s", fe.Field(), fe.Value(), fe.Tag(), fe.Param())
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseInt(key string, fallback, minimum int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s: must be an integer >= %d", key, minimum)
	}
	return n, nil
}

// parseList splits a comma-separated list, trimming whitespace and dropping
// empty items.
func parseList(value string) []string {
	return sharedcfg.ParseBrokers(value)
}

func parseFormats(value string) ([]string, error) {
	var formats []string
	seen := map[string]bool{}
	for _, f := range parseList(strings.ToLower(value)) {
		if !slices.Contains(knownFormats, f) {
			return nil, fmt.Errorf("invalid OUTPUT_FORMATS: unknown format %q", f)
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		return nil, errors.New("OUTPUT_FORMATS must name at least one format")
	}
	return formats, nil
}
