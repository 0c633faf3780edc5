package agronomy

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/cottonadvisor/internal/common"
)

// Share of annual rainfall falling in each month, January first. Kenya has a
// bimodal pattern with long rains in March-May and short rains in October-December.
var monthlyRainShare = [12]float64{0.04, 0.04, 0.12, 0.16, 0.13, 0.05, 0.04, 0.04, 0.06, 0.11, 0.14, 0.07}

var monthlyTempShift = [12]float64{0, 1, 1, 0, -1, -2, -2, -1, 0, 1, 1, 0}

const (
	growingMonths = 4
	topMonths     = 3

	SeasonLongRains  = "Long Rains"
	SeasonShortRains = "Short Rains"
	SeasonDry        = "Dry Season"
)

func rainyMonth(m int) bool {
	return (m >= 3 && m <= 5) || (m >= 10 && m <= 12)
}

// KenyaSeason names the season a calendar month falls in.
func KenyaSeason(m int) string {
	switch {
	case m >= 3 && m <= 5:
		return SeasonLongRains
	case m >= 10 && m <= 12:
		return SeasonShortRains
	default:
		return SeasonDry
	}
}

// AdjustForMonth estimates the climate a crop planted in month m (1-12)
// will see over its first four months.
func AdjustForMonth(base SiteConditions, m int) SiteConditions {
	adj := base

	var growingRain float64
	for i := 0; i < growingMonths; i++ {
		growingRain += base.AnnualRain * monthlyRainShare[(m-1+i)%12]
	}
	adj.PrecipMM = growingRain / growingMonths
	adj.TempC = base.TempC + monthlyTempShift[m-1]

	if rainyMonth(m) {
		adj.SolarRad = base.SolarRad - 1
	} else {
		adj.SolarRad = base.SolarRad + 1
	}

	if growingRain > 300 {
		adj.DewpointC = adj.TempC - 5
	} else {
		adj.DewpointC = adj.TempC - 8
	}
	return adj
}

// MonthlyEstimate is the predicted yield for planting in one month.
type MonthlyEstimate struct {
	Month          string  `json:"month"`
	MonthNum       int     `json:"month_num"`
	PredictedYield float64 `json:"predicted_yield"`
	Season         string  `json:"season"`
}

// PlantingScan is the result of scanning all twelve planting months.
type PlantingScan struct {
	Location        string            `json:"location"`
	AnnualRain      float64           `json:"annual_rain"`
	Monthly         []MonthlyEstimate `json:"monthly_predictions"`
	Best            []MonthlyEstimate `json:"best_months"`
	Recommendations []Advice          `json:"recommendations"`
}

// ScanPlantingMonths predicts the yield for every planting month and ranks
// them. Months with equal yields keep calendar order.
func (m GeographicModel) ScanPlantingMonths(base SiteConditions, now time.Time) (PlantingScan, error) {
	if base.Location == "" {
		base.Location = UnknownLocation
	}

	monthly := make([]MonthlyEstimate, 0, 12)
	for month := 1; month <= 12; month++ {
		p, err := m.rawPredict(AdjustForMonth(base, month), now)
		if err != nil {
			return PlantingScan{}, err
		}
		monthly = append(monthly, MonthlyEstimate{
			Month:          time.Month(month).String(),
			MonthNum:       month,
			PredictedYield: common.Round(math.Max(0, p), 2),
			Season:         KenyaSeason(month),
		})
	}

	sort.SliceStable(monthly, func(i, j int) bool {
		return monthly[i].PredictedYield > monthly[j].PredictedYield
	})
	best := monthly[:topMonths]

	return PlantingScan{
		Location:        base.Location,
		AnnualRain:      base.AnnualRain,
		Monthly:         monthly,
		Best:            best,
		Recommendations: monthlyAdvice(best, base.AnnualRain),
	}, nil
}

func monthlyAdvice(best []MonthlyEstimate, annualRain float64) []Advice {
	top, last := best[0], best[len(best)-1]

	out := []Advice{success("🏆", fmt.Sprintf("Best planting month: %s (Predicted yield: %s bales/ha)",
		top.Month, num(top.PredictedYield)))}

	if len(best) > 1 {
		alts := make([]string, 0, len(best)-1)
		for _, b := range best[1:] {
			alts = append(alts, fmt.Sprintf("%s (%s bales/ha)", b.Month, num(b.PredictedYield)))
		}
		out = append(out, info("📅", "Alternative planting months: "+strings.Join(alts, ", ")))
	}

	if diff := top.PredictedYield - last.PredictedYield; diff > 0.5 {
		out = append(out, warning("⚠️", fmt.Sprintf("Planting in %s increases yield by %.1f bales/ha compared to %s",
			top.Month, diff, last.Month)))
	}

	switch top.Season {
	case SeasonLongRains:
		out = append(out, info("🌳", "Long rains season (March-May) is Kenya's main cotton planting period with reliable rainfall"))
	case SeasonShortRains:
		out = append(out, info("🌱", "Short rains season (October-December) offers a secondary planting window"))
	}

	switch {
	case annualRain < 600:
		out = append(out, warning("💧", fmt.Sprintf(
			"Low rainfall area (%smm). Ensure irrigation is available, especially during flowering stage", num(annualRain))))
	case annualRain > 1200:
		out = append(out, info("☔", fmt.Sprintf(
			"High rainfall area (%smm). Good drainage is essential to prevent waterlogging", num(annualRain))))
	}
	return out
}
