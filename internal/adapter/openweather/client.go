package openweather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/couchcryptid/city-weather-etl/internal/observability"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
)

// DefaultBaseURL is the OpenWeather current weather endpoint.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

var errServerError = errors.New("server error")

// Options configures a Client.
type Options struct {
	BaseURL string
	Units   string
	Timeout time.Duration
	// BreakerFailures is the number of consecutive transport or 5xx failures
	// that open the circuit. Zero disables the breaker. An open circuit is
	// reported in the logs but never turns a lookup into a miss.
	BreakerFailures uint32
}

// Client implements domain.WeatherProvider using the OpenWeather current
// weather API.
type Client struct {
	key        string
	units      string
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an OpenWeather client authenticated by key.
func NewClient(key string, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Units == "" {
		opts.Units = "metric"
	}
	return &Client{
		key:        key,
		units:      opts.Units,
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    opts.BaseURL,
		breaker:    newBreaker(opts.BreakerFailures, logger),
		logger:     logger,
		metrics:    metrics,
	}
}

func newBreaker(failures uint32, logger *slog.Logger) *gobreaker.CircuitBreaker {
	if failures == 0 {
		return nil
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("weather circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

// CurrentByName looks up current conditions by free-text location name.
func (c *Client) CurrentByName(ctx context.Context, name string) (domain.CurrentConditions, error) {
	params := url.Values{"q": {name}}
	return c.doRequest(ctx, params, domain.LookupByName)
}

// CurrentByCoordinates looks up current conditions by latitude/longitude.
func (c *Client) CurrentByCoordinates(ctx context.Context, lat, lon float64) (domain.CurrentConditions, error) {
	params := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	return c.doRequest(ctx, params, domain.LookupByCoordinates)
}

func (c *Client) doRequest(ctx context.Context, params url.Values, strategy domain.LookupStrategy) (domain.CurrentConditions, error) {
	params.Set("appid", c.key)
	params.Set("units", c.units)

	start := time.Now()
	status, body, err := c.execute(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.WeatherAPIDuration.WithLabelValues(string(strategy)).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.WeatherLookups.WithLabelValues(string(strategy), "miss").Inc()
		return domain.CurrentConditions{}, fmt.Errorf("%s weather request: %v: %w", strategy, err, domain.ErrLookupMiss)
	}

	cond, err := classify(status, body)
	if err != nil {
		c.metrics.WeatherLookups.WithLabelValues(string(strategy), "miss").Inc()
		return domain.CurrentConditions{}, fmt.Errorf("%s weather lookup: %w", strategy, err)
	}
	c.metrics.WeatherLookups.WithLabelValues(string(strategy), "hit").Inc()
	return cond, nil
}

// execute performs the GET through the circuit breaker. Only transport
// failures and 5xx responses count against the breaker; a 404 for an unknown
// city is an ordinary miss. An open breaker never rejects a lookup: the
// request is sent anyway so each city still gets its own attempt.
func (c *Client) execute(ctx context.Context, fullURL string) (int, []byte, error) {
	call := func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: status %d", errServerError, resp.StatusCode)
		}
		return reply{status: resp.StatusCode, body: body}, nil
	}

	var (
		out any
		err error
	)
	if c.breaker != nil {
		out, err = c.breaker.Execute(call)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Debug("weather circuit breaker open, sending request anyway", "state", c.breaker.State().String())
			out, err = call()
		}
	} else {
		out, err = call()
	}
	if err != nil {
		return 0, nil, err
	}
	r := out.(reply)
	return r.status, r.body, nil
}

type reply struct {
	status int
	body   []byte
}

// classify accepts a response only when the status is 2xx, the payload code
// (when present) is 200, and at least one weather entry is returned.
func classify(status int, body []byte) (domain.CurrentConditions, error) {
	var payload response
	decodeErr := json.Unmarshal(body, &payload)

	if status < 200 || status > 299 {
		msg := strings.TrimSpace(payload.Message)
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return domain.CurrentConditions{}, fmt.Errorf("status %d: %s: %w", status, msg, domain.ErrLookupMiss)
	}
	if decodeErr != nil {
		return domain.CurrentConditions{}, fmt.Errorf("decode response: %v: %w", decodeErr, domain.ErrLookupMiss)
	}
	if payload.Cod != nil && *payload.Cod != http.StatusOK {
		return domain.CurrentConditions{}, fmt.Errorf("payload cod %d: %s: %w", *payload.Cod, payload.Message, domain.ErrLookupMiss)
	}
	if len(payload.Weather) == 0 {
		return domain.CurrentConditions{}, fmt.Errorf("no weather in response: %w", domain.ErrLookupMiss)
	}

	return domain.CurrentConditions{
		Description:    payload.Weather[0].Description,
		MinTemperature: payload.Main.TempMin,
		MaxTemperature: payload.Main.TempMax,
	}, nil
}

// OpenWeather API response types.

type response struct {
	Cod     *statusCode `json:"cod"`
	Message string      `json:"message"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		TempMin *float64 `json:"temp_min"`
		TempMax *float64 `json:"temp_max"`
	} `json:"main"`
}

// statusCode decodes the payload "cod" field, which the API sends as a
// number on success and as a string on errors.
type statusCode int

func (s *statusCode) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("cod %s: %w", b, err)
	}
	*s = statusCode(n)
	return nil
}
