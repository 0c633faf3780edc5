package agronomy

import (
	"fmt"

	"github.com/dmitrijs2005/cottonadvisor/internal/common"
)

// Window is a named planting period within a season.
type Window struct {
	Key         string  `json:"key"`
	Label       string  `json:"label"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Description string  `json:"description"`
	Factor      float64 `json:"adjustment_factor"`
}

// Dates renders the window range, e.g. "06-01 to 06-15".
func (w Window) Dates() string {
	return w.Start + " to " + w.End
}

const (
	WindowEarly = "early"
	WindowMid   = "mid"
	WindowLate  = "late"
)

var plantingWindows = map[string][]Window{
	common.SeasonKharif: {
		{WindowEarly, "Early June (1-15)", "06-01", "06-15", "Early monsoon planting", 0.97},
		{WindowMid, "Late June (16-30)", "06-16", "06-30", "Peak monsoon planting", 1.00},
		{WindowLate, "Early July (1-15)", "07-01", "07-15", "Late monsoon planting", 0.95},
	},
	common.SeasonRabi: {
		{WindowEarly, "Early October (1-15)", "10-01", "10-15", "Early winter planting", 0.97},
		{WindowMid, "Late October (16-31)", "10-16", "10-31", "Peak winter planting", 1.00},
		{WindowLate, "Early November (1-15)", "11-01", "11-15", "Late winter planting", 0.95},
	},
}

// Windows returns the planting windows for a season, early first.
func Windows(season string) ([]Window, error) {
	w, ok := plantingWindows[season]
	if !ok {
		return nil, fmt.Errorf("%w: invalid season %q", common.ErrValidation, season)
	}
	return append([]Window(nil), w...), nil
}

// AllWindows returns a copy of the window table keyed by season.
func AllWindows() map[string][]Window {
	out := make(map[string][]Window, len(plantingWindows))
	for s, w := range plantingWindows {
		out[s] = append([]Window(nil), w...)
	}
	return out
}

// WindowEstimate is the seasonal estimate scaled for one window.
type WindowEstimate struct {
	Window
	Dates          string  `json:"dates"`
	PredictedYield float64 `json:"predicted_yield"`
	LowerBound     float64 `json:"confidence_lower"`
	UpperBound     float64 `json:"confidence_upper"`
	Difference     float64 `json:"difference_from_optimal"`
	IsOptimal      bool    `json:"is_optimal"`
}

// WindowPlan ranks the windows of one season.
type WindowPlan struct {
	Estimate        SeasonEstimate   `json:"estimate"`
	Windows         []WindowEstimate `json:"windows"`
	Optimal         WindowEstimate   `json:"optimal"`
	ConfidenceLevel string           `json:"confidence_level"`
	Summary         string           `json:"summary"`
	Reasoning       []string         `json:"reasoning"`
}

// ConfidenceLevel grades how tight the optimal window's lower bound is.
func ConfidenceLevel(optimal, lower float64) string {
	switch r := optimal - lower; {
	case r < 0.5:
		return "High"
	case r < 1.0:
		return "Medium"
	default:
		return "Low"
	}
}

// PlanWindows scales a seasonal estimate by each window's timing factor and
// picks the best. On ties the earlier window wins.
func PlanWindows(est SeasonEstimate) (WindowPlan, error) {
	windows, err := Windows(est.Request.Season)
	if err != nil {
		return WindowPlan{}, err
	}

	out := make([]WindowEstimate, len(windows))
	best := 0
	for i, w := range windows {
		out[i] = WindowEstimate{
			Window:         w,
			Dates:          w.Dates(),
			PredictedYield: common.Round(est.PredictedYield*w.Factor, 2),
			LowerBound:     common.Round(est.LowerBound*w.Factor, 2),
			UpperBound:     common.Round(est.UpperBound*w.Factor, 2),
		}
		if out[i].PredictedYield > out[best].PredictedYield {
			best = i
		}
	}
	for i := range out {
		out[i].Difference = common.Round(out[i].PredictedYield-out[best].PredictedYield, 2)
		out[i].IsOptimal = i == best
	}
	opt := out[best]

	return WindowPlan{
		Estimate:        est,
		Windows:         out,
		Optimal:         opt,
		ConfidenceLevel: ConfidenceLevel(opt.PredictedYield, opt.LowerBound),
		Summary:         fmt.Sprintf("Plant during %s for maximum yield", opt.Label),
		Reasoning:       windowReasoning(opt, out, est),
	}, nil
}

func windowReasoning(opt WindowEstimate, all []WindowEstimate, est SeasonEstimate) []string {
	var out []string
	switch opt.Key {
	case WindowMid:
		out = append(out, fmt.Sprintf("Mid-season planting (%s) provides optimal growing conditions", opt.Dates))
	case WindowEarly:
		out = append(out, fmt.Sprintf("Early planting (%s) recommended to maximize growing season", opt.Dates))
	default:
		out = append(out, fmt.Sprintf("Late planting (%s) shows best yield potential for this season", opt.Dates))
	}

	lo, hi := all[0].PredictedYield, all[0].PredictedYield
	for _, w := range all[1:] {
		lo = min(lo, w.PredictedYield)
		hi = max(hi, w.PredictedYield)
	}
	if spread := hi - lo; spread > 0.3 {
		out = append(out, fmt.Sprintf("Significant yield difference (%.2f bales/ha) between planting times - timing matters!", spread))
	} else {
		out = append(out, "Small yield difference between windows - flexible planting schedule possible")
	}

	c := est.Request.Climate
	if est.Request.Season == common.SeasonKharif {
		if c.PrecipMMSum > 500 {
			out = append(out, fmt.Sprintf("Good rainfall forecast (%.0fmm) supports this planting window", c.PrecipMMSum))
		} else {
			out = append(out, fmt.Sprintf("Lower rainfall forecast (%.0fmm) - ensure irrigation readiness", c.PrecipMMSum))
		}
	} else if c.TempCMean < 25 {
		out = append(out, fmt.Sprintf("Favorable temperature (%.1f°C) for winter cotton", c.TempCMean))
	}
	return out
}
