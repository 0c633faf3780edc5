package web

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/cottonadvisor/internal/agronomy"
)

func parseFieldConditions(c echo.Context) (agronomy.FieldConditions, error) {
	var f agronomy.FieldConditions
	err := echo.FormFieldBinder(c).
		MustFloat64("temperature", &f.Temperature).
		MustFloat64("rainfall", &f.Rainfall).
		MustFloat64("humidity", &f.Humidity).
		MustFloat64("soil_ph", &f.SoilPH).
		MustFloat64("nitrogen", &f.Nitrogen).
		MustFloat64("phosphorus", &f.Phosphorus).
		MustFloat64("potassium", &f.Potassium).
		MustFloat64("area", &f.Area).
		BindError()
	if err != nil {
		return f, err
	}
	return f, finite(f.Temperature, f.Rainfall, f.Humidity, f.SoilPH,
		f.Nitrogen, f.Phosphorus, f.Potassium, f.Area)
}

var errNotFinite = errors.New("NaN and infinite values are not accepted")

// finite rejects NaN and ±Inf, which strconv accepts as numbers.
func finite(vals ...float64) error {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errNotFinite
		}
	}
	return nil
}

var requiredSiteFields = []string{
	"temp_c", "dewpoint_c", "precip_mm", "solar_rad", "annual_rain", "soil_type", "irrigation",
}

// missingSiteField returns the first required geographic field left blank.
func missingSiteField(c echo.Context) string {
	for _, f := range requiredSiteFields {
		if strings.TrimSpace(c.FormValue(f)) == "" {
			return f
		}
	}
	return ""
}

// parseSite fills a site from the form. Blank fields keep the values
// already in base.
func parseSite(c echo.Context, base agronomy.SiteConditions) (agronomy.SiteConditions, error) {
	s := base
	err := echo.FormFieldBinder(c).
		Float64("temp_c", &s.TempC).
		Float64("dewpoint_c", &s.DewpointC).
		Float64("precip_mm", &s.PrecipMM).
		Float64("solar_rad", &s.SolarRad).
		Float64("annual_rain", &s.AnnualRain).
		Float64("rain_cv", &s.RainCV).
		Float64("irrigation", &s.Irrigation).
		Float64("prev_yield", &s.PrevYield).
		BindError()
	if err == nil {
		err = finite(s.TempC, s.DewpointC, s.PrecipMM, s.SolarRad, s.AnnualRain, s.RainCV, s.Irrigation, s.PrevYield)
	}
	if err != nil {
		return s, fmt.Errorf("invalid number: %w", err)
	}
	if v := strings.TrimSpace(c.FormValue("soil_type")); v != "" {
		s.SoilType = v
	}
	if v := strings.TrimSpace(c.FormValue("location")); v != "" {
		s.Location = v
	}
	return s, nil
}

// geographicBase holds the optional defaults of the prediction form.
func geographicBase() agronomy.SiteConditions {
	return agronomy.SiteConditions{
		Location:  agronomy.UnknownLocation,
		RainCV:    agronomy.DefaultRainCV,
		PrevYield: agronomy.DefaultPrevYield,
	}
}
