package agronomy

import (
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/forest"
)

// SiteConditions describe a location for the geographic model.
type SiteConditions struct {
	Location   string  `json:"location"`
	TempC      float64 `json:"temp_c"`
	DewpointC  float64 `json:"dewpoint_c"`
	PrecipMM   float64 `json:"precip_mm"`
	SolarRad   float64 `json:"solar_rad"`
	AnnualRain float64 `json:"annual_rain"`
	RainCV     float64 `json:"rain_cv"`
	SoilType   string  `json:"soil_type"`
	Irrigation float64 `json:"irrigation"`
	PrevYield  float64 `json:"prev_yield"`
}

const (
	DefaultRainCV    = 20.0
	DefaultPrevYield = 1.5
	UnknownLocation  = "Unknown Location"

	baseYear = 2000
	z95      = 1.96
)

// DefaultSite is the starting point of the optimal planting scan.
func DefaultSite() SiteConditions {
	return SiteConditions{
		Location:   UnknownLocation,
		TempC:      24,
		DewpointC:  20,
		PrecipMM:   100,
		SolarRad:   17,
		AnnualRain: 1000,
		RainCV:     DefaultRainCV,
		SoilType:   "Red",
		Irrigation: 20,
		PrevYield:  DefaultPrevYield,
	}
}

// GeographicFeatures builds the 15 element vector the geographic model was
// trained on. The season slot is always zero.
func GeographicFeatures(s SiteConditions, soilIndex, year int) []float64 {
	return []float64{
		s.TempC,
		s.DewpointC,
		s.PrecipMM,
		s.SolarRad,
		s.AnnualRain,
		s.AnnualRain * 0.7,
		s.AnnualRain * 0.3,
		s.RainCV,
		float64(soilIndex),
		s.Irrigation,
		float64(year - baseYear),
		s.PrevYield,
		0,
		s.TempC * s.AnnualRain / 1000,
		s.AnnualRain / (s.Irrigation + 1),
	}
}

// RainfallZone buckets annual rainfall in millimetres.
func RainfallZone(annual float64) string {
	switch {
	case annual < 500:
		return "Arid"
	case annual < 750:
		return "Semi-arid"
	case annual < 1200:
		return "Sub-humid"
	default:
		return "Humid"
	}
}

var soilTips = map[string]string{
	"Black":    "Black cotton soil is excellent. Maintain pH 7.0-8.5.",
	"Red":      "Red soil: Add organic matter. Maintain pH 6.5-7.5.",
	"Alluvial": "Alluvial soil is well-suited with good fertility management.",
	"Laterite": "Laterite needs organic amendments. Monitor pH (6.0-7.0).",
	"Mixed":    "Mixed soil: Test pH and adjust based on type.",
}

// SiteAdvice returns the recommendations shown with a geographic prediction.
func SiteAdvice(s SiteConditions, prediction float64) []Advice {
	var out []Advice

	switch {
	case s.AnnualRain < 600:
		out = append(out, warning("⚠️", "Low rainfall zone. Irrigation is critical for cotton success."))
	case s.AnnualRain > 1500:
		out = append(out, info("💧", "High rainfall zone. Ensure proper drainage to prevent waterlogging."))
	default:
		out = append(out, success("✓", "Rainfall levels are suitable for cotton cultivation."))
	}

	if s.Irrigation < 30 && s.AnnualRain < 800 {
		out = append(out, info("💡", fmt.Sprintf(
			"Consider irrigation to 50%%. Could improve yield by ~15%% (est. %.1f bales/ha)", prediction*1.15)))
	}

	if tip, ok := soilTips[s.SoilType]; ok {
		out = append(out, info("🌱", tip))
	}

	if s.TempC > 32 {
		out = append(out, warning("🌡️", "High temperatures. Ensure adequate irrigation and heat-tolerant varieties."))
	}

	return append(out, info("🐛", "Monitor for bollworms during flowering and boll formation."))
}

// GeographicEstimate is a geographic model prediction with its interval.
type GeographicEstimate struct {
	Site            SiteConditions `json:"site"`
	PredictedYield  float64        `json:"predicted_yield"`
	LowerBound      float64        `json:"confidence_lower"`
	UpperBound      float64        `json:"confidence_upper"`
	RainfallZone    string         `json:"rainfall_zone"`
	Recommendations []Advice       `json:"recommendations"`
}

// GeographicModel pairs the forest with its metadata.
type GeographicModel struct {
	Forest *forest.Forest
	Meta   *forest.Metadata
}

func (m GeographicModel) available() bool {
	return m.Forest != nil && m.Meta != nil
}

// rawPredict evaluates the forest for a site without clamping or rounding.
func (m GeographicModel) rawPredict(s SiteConditions, now time.Time) (float64, error) {
	if !m.available() {
		return 0, common.ErrModelUnavailable
	}
	idx, ok := m.Meta.SoilIndex(s.SoilType)
	if !ok {
		return 0, fmt.Errorf("%w: %q", common.ErrUnknownSoilType, s.SoilType)
	}
	return m.Forest.Predict(GeographicFeatures(s, idx, now.Year()))
}

// Predict runs the geographic model. The interval is ±1.96·RMSE from the
// training metrics, with the lower bound and the estimate floored at zero.
func (m GeographicModel) Predict(s SiteConditions, now time.Time) (GeographicEstimate, error) {
	p, err := m.rawPredict(s, now)
	if err != nil {
		return GeographicEstimate{}, err
	}
	if s.Location == "" {
		s.Location = UnknownLocation
	}

	margin := m.Meta.GeographicMetrics().TestRMSE * z95
	lower := math.Max(0, p-margin)
	upper := p + margin
	p = math.Max(0, p)

	return GeographicEstimate{
		Site:            s,
		PredictedYield:  common.Round(p, 2),
		LowerBound:      common.Round(lower, 2),
		UpperBound:      common.Round(upper, 2),
		RainfallZone:    RainfallZone(s.AnnualRain),
		Recommendations: SiteAdvice(s, p),
	}, nil
}
