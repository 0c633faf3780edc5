// Package weather summarises multi-year daily climate from the Open-Meteo
// archive API for the supported cotton regions.
package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/dmitrijs2005/cottonadvisor/internal/agronomy"
	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/logging"
	"github.com/dmitrijs2005/cottonadvisor/internal/timex"
)

var ErrIncompleteData = errors.New("incomplete climate data")

const (
	dailyVariables = "temperature_2m_mean,precipitation_sum,shortwave_radiation_sum"
	dewpointOffset = 5.0
	defaultRainCV  = 20.0

	// Outcomes passed to a Recorder.
	ResultOK       = "ok"
	ResultFallback = "fallback"
)

// Recorder observes the outcome of every example lookup.
type Recorder interface {
	WeatherRequest(result string)
}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Years    int
	Timezone string
}

// Client fetches archive climate through a circuit breaker.
type Client struct {
	cfg      Config
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[Climate]
	log      logging.Logger
	recorder Recorder
	now      func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its timeout is left as is.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithRecorder(r Recorder) Option {
	return func(cl *Client) { cl.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

func NewClient(cfg Config, log logging.Logger, opts ...Option) *Client {
	if cfg.Years <= 0 {
		cfg.Years = 10
	}
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
		now:  time.Now,
	}
	c.breaker = gobreaker.NewCircuitBreaker[Climate](gobreaker.Settings{
		Name:        "open-meteo",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn(context.Background(), "weather circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	for _, o := range opts {
		o(c)
	}
	return c
}

type archiveResponse struct {
	Daily struct {
		Temperature []*float64 `json:"temperature_2m_mean"`
		Precip      []*float64 `json:"precipitation_sum"`
		Solar       []*float64 `json:"shortwave_radiation_sum"`
	} `json:"daily"`
}

// sumCount adds the non-null values of v.
func sumCount(v []*float64) (sum float64, n int) {
	for _, x := range v {
		if x != nil {
			sum += *x
			n++
		}
	}
	return sum, n
}

func (c *Client) requestURL(r Region) string {
	end := timex.Yesterday(c.now())
	start := time.Date(end.Year()-c.cfg.Years+1, time.January, 1, 0, 0, 0, 0, time.UTC)

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(r.Lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(r.Lon, 'f', -1, 64))
	q.Set("start_date", start.Format(time.DateOnly))
	q.Set("end_date", end.Format(time.DateOnly))
	q.Set("daily", dailyVariables)
	q.Set("timezone", c.cfg.Timezone)
	return c.cfg.BaseURL + "?" + q.Encode()
}

func (c *Client) fetch(ctx context.Context, r Region) (Climate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(r), http.NoBody)
	if err != nil {
		return Climate{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Climate{}, fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Climate{}, fmt.Errorf("archive request: unexpected status %d", resp.StatusCode)
	}

	var body archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Climate{}, fmt.Errorf("archive response: %w", err)
	}

	tSum, tN := sumCount(body.Daily.Temperature)
	pSum, pN := sumCount(body.Daily.Precip)
	sSum, sN := sumCount(body.Daily.Solar)
	if tN == 0 || pN == 0 || sN == 0 {
		return Climate{}, ErrIncompleteData
	}

	temp := tSum / float64(tN)
	annual := pSum / float64(c.cfg.Years)
	return Climate{
		TempC:      common.Round(temp, 1),
		DewpointC:  common.Round(temp-dewpointOffset, 1),
		PrecipMM:   common.Round(annual/12, 1),
		SolarRad:   common.Round(sSum/float64(sN), 1),
		AnnualRain: common.Round(annual, 1),
		RainCV:     defaultRainCV,
	}, nil
}

// FetchClimate returns the archive climate for r. It fails fast while the
// breaker is open.
func (c *Client) FetchClimate(ctx context.Context, r Region) (Climate, error) {
	return c.breaker.Execute(func() (Climate, error) {
		return c.fetch(ctx, r)
	})
}

// Example is a pre-filled geographic form for a region.
type Example struct {
	Key    string                  `json:"key"`
	Name   string                  `json:"name"`
	Source string                  `json:"source"`
	Site   agronomy.SiteConditions `json:"site"`
}

// BuildExample returns live climate for the region, or its static values
// when the archive cannot be reached. Unknown keys resolve to Busia.
func (c *Client) BuildExample(ctx context.Context, key string) Example {
	r := LookupRegion(key)

	climate, err := c.FetchClimate(ctx, r)
	result := ResultOK
	if err != nil {
		c.log.Warn(ctx, "weather lookup failed, using static values", "region", r.Key, "error", err)
		climate = r.Fallback
		result = ResultFallback
	}
	if c.recorder != nil {
		c.recorder.WeatherRequest(result)
	}

	return Example{
		Key:    r.Key,
		Name:   r.Name,
		Source: result,
		Site: agronomy.SiteConditions{
			Location:   r.Name,
			TempC:      climate.TempC,
			DewpointC:  climate.DewpointC,
			PrecipMM:   climate.PrecipMM,
			SolarRad:   climate.SolarRad,
			AnnualRain: climate.AnnualRain,
			RainCV:     climate.RainCV,
			SoilType:   r.SoilType,
			Irrigation: r.Irrigation,
			PrevYield:  r.PrevYield,
		},
	}
}
