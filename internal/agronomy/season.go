package agronomy

import (
	"fmt"
	"math"

	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/forest"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
)

// SeasonFeatureNames is the column order of the seasonal model.
var SeasonFeatureNames = []string{
	"temp_c_mean", "dewpoint_c_mean", "precip_mm_mean", "precip_mm_sum",
	"ssrd_MJm2_mean", "year_index", "yield_lag1", "season_Rabi",
}

// DefaultYieldLag is used when no historical yield exists for a state.
const DefaultYieldLag = 2.0

// DefaultSeasonClimate is used when the district and state have no history.
func DefaultSeasonClimate() models.SeasonClimate {
	return models.SeasonClimate{
		TempCMean:     25.5,
		DewpointCMean: 20,
		PrecipMMMean:  5.5,
		PrecipMMSum:   600,
		SSRDMJm2Mean:  18.5,
	}
}

// ValidSeason reports whether s is Kharif or Rabi.
func ValidSeason(s string) bool {
	return s == common.SeasonKharif || s == common.SeasonRabi
}

// SeasonRequest identifies a district-season-year and its inputs.
type SeasonRequest struct {
	State     string               `json:"state"`
	District  string               `json:"district"`
	Season    string               `json:"season"`
	Year      int                  `json:"year"`
	Climate   models.SeasonClimate `json:"climate"`
	YieldLag1 float64              `json:"previous_year_yield"`
}

// SeasonFeatures builds the seasonal model vector.
func SeasonFeatures(r SeasonRequest) []float64 {
	rabi := 0.0
	if r.Season == common.SeasonRabi {
		rabi = 1
	}
	c := r.Climate
	return []float64{
		c.TempCMean, c.DewpointCMean, c.PrecipMMMean, c.PrecipMMSum,
		c.SSRDMJm2Mean, float64(r.Year - baseYear), r.YieldLag1, rabi,
	}
}

// SeasonEstimate is a seasonal model prediction. The interval comes from
// the spread of individual tree outputs.
type SeasonEstimate struct {
	Request        SeasonRequest `json:"input"`
	PredictedYield float64       `json:"predicted_yield"`
	LowerBound     float64       `json:"confidence_lower"`
	UpperBound     float64       `json:"confidence_upper"`
}

// PredictSeason runs the seasonal model for r.
func PredictSeason(f *forest.Forest, r SeasonRequest) (SeasonEstimate, error) {
	if f == nil {
		return SeasonEstimate{}, common.ErrModelUnavailable
	}
	if !ValidSeason(r.Season) {
		return SeasonEstimate{}, fmt.Errorf("%w: invalid season %q", common.ErrValidation, r.Season)
	}

	trees, err := f.TreePredictions(SeasonFeatures(r))
	if err != nil {
		return SeasonEstimate{}, err
	}
	mean, std := forest.MeanStd(trees)

	return SeasonEstimate{
		Request:        r,
		PredictedYield: common.Round(mean, 2),
		LowerBound:     common.Round(math.Max(0, mean-z95*std), 2),
		UpperBound:     common.Round(mean+z95*std, 2),
	}, nil
}
