package weather

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cottonadvisor/internal/logging"
)

const testURL = "https://archive.example.test/v1/archive"

type countingRecorder map[string]int

func (c countingRecorder) WeatherRequest(result string) { c[result]++ }

func newTestClient(t *testing.T) (*Client, *httpmock.MockTransport, countingRecorder) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	rec := countingRecorder{}
	c := NewClient(Config{BaseURL: testURL, Timeout: time.Second, Years: 2, Timezone: "Africa/Nairobi"},
		logging.Nop{},
		WithHTTPClient(&http.Client{Transport: mt}),
		WithRecorder(rec),
		WithClock(func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }),
	)
	return c, mt, rec
}

func archiveBody() map[string]any {
	return map[string]any{
		"daily": map[string]any{
			"temperature_2m_mean":     []any{20.0, nil, 22.0},
			"precipitation_sum":       []any{100.0, 300.0},
			"shortwave_radiation_sum": []any{15.0, 17.0},
		},
	}
}

func TestFetchClimate_Success(t *testing.T) {
	c, mt, _ := newTestClient(t)

	var query map[string][]string
	mt.RegisterResponder(http.MethodGet, testURL, func(req *http.Request) (*http.Response, error) {
		query = req.URL.Query()
		return httpmock.NewJsonResponse(http.StatusOK, archiveBody())
	})

	got, err := c.FetchClimate(context.Background(), LookupRegion("kenya_kitui"))
	require.NoError(t, err)
	assert.Equal(t, Climate{TempC: 21, DewpointC: 16, PrecipMM: 16.7, SolarRad: 16, AnnualRain: 200, RainCV: 20}, got)

	assert.Equal(t, []string{"-1.3664"}, query["latitude"])
	assert.Equal(t, []string{"38.0106"}, query["longitude"])
	assert.Equal(t, []string{"2025-01-01"}, query["start_date"])
	assert.Equal(t, []string{"2026-03-14"}, query["end_date"])
	assert.Equal(t, []string{dailyVariables}, query["daily"])
	assert.Equal(t, []string{"Africa/Nairobi"}, query["timezone"])
}

func TestFetchClimate_Failures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{"server error", httpmock.NewStringResponder(http.StatusInternalServerError, "oops")},
		{"bad json", httpmock.NewStringResponder(http.StatusOK, "{")},
		{"empty daily", httpmock.NewStringResponder(http.StatusOK, `{"daily":{"temperature_2m_mean":[]}}`)},
		{"transport error", httpmock.NewErrorResponder(assert.AnError)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mt, _ := newTestClient(t)
			mt.RegisterResponder(http.MethodGet, testURL, tt.responder)
			_, err := c.FetchClimate(context.Background(), LookupRegion(DefaultRegionKey))
			assert.Error(t, err)
		})
	}
}

func TestFetchClimate_BreakerOpens(t *testing.T) {
	c, mt, _ := newTestClient(t)
	mt.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(http.StatusBadGateway, ""))

	for i := 0; i < 3; i++ {
		_, err := c.FetchClimate(context.Background(), LookupRegion(DefaultRegionKey))
		require.Error(t, err)
	}
	_, err := c.FetchClimate(context.Background(), LookupRegion(DefaultRegionKey))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, mt.GetTotalCallCount())
}

func TestBuildExample_Live(t *testing.T) {
	c, mt, rec := newTestClient(t)
	mt.RegisterResponder(http.MethodGet, testURL, httpmock.NewJsonResponderOrPanic(http.StatusOK, archiveBody()))

	ex := c.BuildExample(context.Background(), "kenya_baringo")
	assert.Equal(t, "kenya_baringo", ex.Key)
	assert.Equal(t, ResultOK, ex.Source)
	assert.Equal(t, "Black", ex.Site.SoilType)
	assert.Equal(t, 38.0, ex.Site.Irrigation)
	assert.Equal(t, 1.4, ex.Site.PrevYield)
	assert.Equal(t, 200.0, ex.Site.AnnualRain)
	assert.Equal(t, "Kenya - Baringo County", ex.Site.Location)
	assert.Equal(t, 1, rec[ResultOK])
}

func TestBuildExample_FallbackAndUnknownKey(t *testing.T) {
	c, mt, rec := newTestClient(t)
	mt.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))

	ex := c.BuildExample(context.Background(), "atlantis")
	assert.Equal(t, DefaultRegionKey, ex.Key)
	assert.Equal(t, ResultFallback, ex.Source)
	assert.Equal(t, 24.0, ex.Site.TempC)
	assert.Equal(t, 1300.0, ex.Site.AnnualRain)
	assert.Equal(t, 18.0, ex.Site.RainCV)
	assert.Equal(t, 1, rec[ResultFallback])
}

func TestRegions(t *testing.T) {
	all := Regions()
	require.Len(t, all, 13)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Name, all[i].Name)
	}
	assert.Equal(t, "Kenya - Kilifi County", LookupRegion("kenya_kilifi").Name)
	assert.Equal(t, DefaultRegionKey, LookupRegion("").Key)
}
