package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/cottonadvisor/internal/agronomy"
	"github.com/dmitrijs2005/cottonadvisor/internal/catalog"
	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/services"
	"github.com/dmitrijs2005/cottonadvisor/internal/weather"
)

// modelError turns prediction failures users can act on into a flash
// message; anything else is returned unchanged.
func modelError(err error) (string, bool) {
	switch {
	case errors.Is(err, common.ErrModelUnavailable):
		return "The prediction model is not available right now. Please try again later.", true
	case errors.Is(err, common.ErrUnknownSoilType), errors.Is(err, common.ErrValidation):
		return err.Error(), true
	}
	return "", false
}

type geographicFormView struct {
	SoilTypes []string
	R2        float64
	Site      agronomy.SiteConditions
	Example   *weather.Example
	Regions   []weather.Region
}

func (s *Server) geographicForm(c echo.Context, site agronomy.SiteConditions, ex *weather.Example) error {
	info := s.advisor.ModelInfo()
	return s.render(c, "geographic_form", "Geographic Prediction", geographicFormView{
		SoilTypes: info.SoilClasses,
		R2:        info.R2,
		Site:      site,
		Example:   ex,
		Regions:   weather.Regions(),
	})
}

func (s *Server) handleGeographicForm(c echo.Context) error {
	return s.geographicForm(c, geographicBase(), nil)
}

func (s *Server) handleExample(c echo.Context) error {
	ex := s.examples.BuildExample(c.Request().Context(), c.Param("name"))
	if ex.Source == weather.ResultFallback {
		s.flash(c, FlashInfo, fmt.Sprintf("Live weather data is unavailable; showing typical values for %s.", ex.Name))
	} else {
		s.flash(c, FlashSuccess, fmt.Sprintf("Loaded climate data for %s.", ex.Name))
	}
	if isXHR(c) {
		return c.JSON(http.StatusOK, ex)
	}
	return s.geographicForm(c, ex.Site, &ex)
}

func (s *Server) handleGeographicPredict(c echo.Context) error {
	if f := missingSiteField(c); f != "" {
		return s.redirectWith(c, "/geographic/predict-form", FlashError, fmt.Sprintf("%s is required.", titleCase(f)))
	}
	site, err := parseSite(c, geographicBase())
	if err != nil {
		return s.redirectWith(c, "/geographic/predict-form", FlashError, "Prediction error: "+err.Error())
	}

	est, err := s.advisor.Geographic(c.Request().Context(), s.currentUserID(c), site)
	if err != nil {
		if msg, ok := modelError(err); ok {
			return s.redirectWith(c, "/geographic/predict-form", FlashError, "Prediction error: "+msg)
		}
		return err
	}
	if isXHR(c) {
		return c.JSON(http.StatusOK, est)
	}
	return s.render(c, "geographic_result", "Prediction Result", est)
}

func (s *Server) handleGeographicHistory(c echo.Context) error {
	list, err := s.advisor.GeographicHistory(c.Request().Context(), s.currentUserID(c))
	if err != nil {
		return err
	}
	return s.render(c, "geographic_history", "Geographic Prediction History", list)
}

func (s *Server) handleAbout(c echo.Context) error {
	return s.render(c, "about", "About the Models", s.advisor.ModelInfo())
}

func (s *Server) handlePlantingForm(c echo.Context) error {
	return s.render(c, "planting_form", "Optimal Planting Time", geographicFormView{
		SoilTypes: s.advisor.ModelInfo().SoilClasses,
		Site:      agronomy.DefaultSite(),
		Regions:   weather.Regions(),
	})
}

func (s *Server) handleOptimalPlanting(c echo.Context) error {
	site, err := parseSite(c, agronomy.DefaultSite())
	if err != nil {
		return s.redirectWith(c, "/geographic/optimal-planting-form", FlashError, "Calculation error: "+err.Error())
	}

	scan, err := s.advisor.OptimalPlanting(c.Request().Context(), s.currentUserID(c), site)
	if err != nil {
		if msg, ok := modelError(err); ok {
			return s.redirectWith(c, "/geographic/optimal-planting-form", FlashError, "Calculation error: "+msg)
		}
		return err
	}
	if isXHR(c) {
		return c.JSON(http.StatusOK, scan)
	}
	return s.render(c, "planting_result", "Optimal Planting Time", scan)
}

type seasonFormView struct {
	Catalog *catalog.Catalog
	Query   services.SeasonQuery
}

func (s *Server) handleSeasonForm(c echo.Context) error {
	return s.render(c, "season_form", "Seasonal Prediction", seasonFormView{
		Catalog: s.advisor.Catalog(),
		Query:   services.SeasonQuery{Season: common.SeasonKharif, Year: defaultSeasonYear},
	})
}

func (s *Server) handleWindowsForm(c echo.Context) error {
	return s.render(c, "windows_form", "Planting Windows", seasonFormView{
		Catalog: s.advisor.Catalog(),
		Query:   services.SeasonQuery{Season: common.SeasonKharif, Year: defaultSeasonYear},
	})
}

const defaultSeasonYear = 2025

func parseSeasonQuery(c echo.Context) (services.SeasonQuery, error) {
	q := services.SeasonQuery{
		State:    strings.TrimSpace(c.FormValue("state")),
		District: strings.TrimSpace(c.FormValue("district")),
		Season:   strings.TrimSpace(c.FormValue("season")),
		Year:     defaultSeasonYear,
	}
	if err := echo.FormFieldBinder(c).Int("year", &q.Year).BindError(); err != nil {
		return q, fmt.Errorf("%w: year must be a number", common.ErrValidation)
	}
	if q.State == "" || q.District == "" || q.Season == "" {
		return q, fmt.Errorf("%w: Missing required fields", common.ErrValidation)
	}
	return q, nil
}

// seasonFailure answers XHR calls with JSON and browsers with a flash.
func (s *Server) seasonFailure(c echo.Context, back string, err error) error {
	msg, ok := modelError(err)
	if !ok {
		return err
	}
	if isXHR(c) {
		code := http.StatusBadRequest
		if errors.Is(err, common.ErrModelUnavailable) {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, map[string]string{"error": msg})
	}
	return s.redirectWith(c, back, FlashError, msg)
}

func (s *Server) handleSeasonPredict(c echo.Context) error {
	q, err := parseSeasonQuery(c)
	if err != nil {
		return s.seasonFailure(c, "/season/predict", err)
	}
	out, err := s.advisor.Season(c.Request().Context(), s.currentUserID(c), q)
	if err != nil {
		return s.seasonFailure(c, "/season/predict", err)
	}
	if isXHR(c) {
		return c.JSON(http.StatusOK, map[string]any{"success": true, "prediction": out.Estimate, "climate_source": out.ClimateSource})
	}
	return s.render(c, "season_result", "Seasonal Prediction", out)
}

func (s *Server) handlePlantingWindows(c echo.Context) error {
	q, err := parseSeasonQuery(c)
	if err != nil {
		return s.seasonFailure(c, "/season/planting-windows", err)
	}
	plan, err := s.advisor.PlantingWindows(c.Request().Context(), s.currentUserID(c), q)
	if err != nil {
		return s.seasonFailure(c, "/season/planting-windows", err)
	}
	if isXHR(c) {
		return c.JSON(http.StatusOK, map[string]any{"success": true, "result": plan})
	}
	return s.render(c, "windows_result", "Planting Windows", plan)
}

func (s *Server) handleSeasonHistory(c echo.Context) error {
	list, err := s.advisor.SeasonHistory(c.Request().Context(), s.currentUserID(c))
	if err != nil {
		return err
	}
	return s.render(c, "season_history", "Seasonal Prediction History", list)
}

func (s *Server) handleRecommendations(c echo.Context) error {
	list, err := s.advisor.Recommendations(c.Request().Context(), s.currentUserID(c))
	if err != nil {
		return err
	}
	return s.render(c, "recommendations", "Planting Recommendations", list)
}

// handleDistricts feeds the cascading state/district dropdown. Unknown
// states get an empty list.
func (s *Server) handleDistricts(c echo.Context) error {
	districts, err := s.advisor.Catalog().Districts(c.Param("state"))
	if err != nil {
		districts = []string{}
	}
	return c.JSON(http.StatusOK, map[string][]string{"districts": districts})
}
