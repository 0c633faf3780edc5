package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/dmitrijs2005/cottonadvisor/internal/agronomy"
	"github.com/dmitrijs2005/cottonadvisor/internal/catalog"
	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/forest"
	"github.com/dmitrijs2005/cottonadvisor/internal/logging"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/historicalyields"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/repomanager"
)

const (
	recentLimit        = 5
	seasonHistoryLimit = 20

	ModelQuick      = "quick"
	ModelGeographic = "geographic"
	ModelPlanting   = "planting"
	ModelSeason     = "season"
	ModelWindows    = "windows"

	ClimateFromDistrict = "district history"
	ClimateFromState    = "state history"
	ClimateFromDefaults = "defaults"
)

// Recorder counts served predictions by model.
type Recorder interface {
	Prediction(model string)
}

type nopRecorder struct{}

func (nopRecorder) Prediction(string) {}

// PredictionService runs the yield models and keeps each user's history.
type PredictionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	models      *forest.Bundle
	catalog     *catalog.Catalog
	recorder    Recorder
	log         logging.Logger
	now         func() time.Time
}

func NewPredictionService(db *sql.DB, m repomanager.RepositoryManager, b *forest.Bundle, c *catalog.Catalog, r Recorder, log logging.Logger) *PredictionService {
	if r == nil {
		r = nopRecorder{}
	}
	if b == nil {
		b = &forest.Bundle{Meta: forest.DefaultMetadata()}
	}
	if c == nil {
		c = catalog.New(nil)
	}
	return &PredictionService{
		db:          db,
		repomanager: m,
		models:      b,
		catalog:     c,
		recorder:    r,
		log:         log,
		now:         time.Now,
	}
}

func (s *PredictionService) geographic() agronomy.GeographicModel {
	return agronomy.GeographicModel{Forest: s.models.Geographic, Meta: s.models.Meta}
}

// ModelInfo describes the loaded models for the about page.
type ModelInfo struct {
	Version             string
	R2                  float64
	RMSE                float64
	SoilClasses         []string
	GeographicAvailable bool
	SeasonAvailable     bool
}

func (s *PredictionService) ModelInfo() ModelInfo {
	m := s.models.Meta.GeographicMetrics()
	return ModelInfo{
		Version:             s.models.Meta.Version,
		R2:                  m.TestR2,
		RMSE:                m.TestRMSE,
		SoilClasses:         s.models.Meta.SoilClasses,
		GeographicAvailable: s.models.Geographic != nil,
		SeasonAvailable:     s.models.Season != nil,
	}
}

func (s *PredictionService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Quick scores field conditions with the heuristic model and stores the result.
func (s *PredictionService) Quick(ctx context.Context, userID string, c agronomy.FieldConditions) (*models.Prediction, error) {
	est := agronomy.Heuristic(c)
	p, err := s.repomanager.Predictions(s.db).Create(ctx, &models.Prediction{
		UserID:              userID,
		Temperature:         c.Temperature,
		Rainfall:            c.Rainfall,
		Humidity:            c.Humidity,
		SoilPH:              c.SoilPH,
		Nitrogen:            c.Nitrogen,
		Phosphorus:          c.Phosphorus,
		Potassium:           c.Potassium,
		Area:                c.Area,
		PredictedYield:      est.YieldPercent,
		EstimatedProduction: est.EstimatedProduction,
	})
	if err != nil {
		return nil, err
	}
	s.recorder.Prediction(ModelQuick)
	return p, nil
}

func (s *PredictionService) QuickHistory(ctx context.Context, userID string) ([]models.Prediction, error) {
	return s.repomanager.Predictions(s.db).ListByUser(ctx, userID, 0)
}

// QuickStats summarises quick predictions for the profile page.
type QuickStats struct {
	Total    int
	AvgYield float64
	Recent   []models.Prediction
}

func (s *PredictionService) QuickStats(ctx context.Context, userID string) (*QuickStats, error) {
	repo := s.repomanager.Predictions(s.db)
	st, err := repo.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := repo.ListByUser(ctx, userID, recentLimit)
	if err != nil {
		return nil, err
	}
	return &QuickStats{Total: st.Total, AvgYield: common.Round(st.AvgYield, 1), Recent: recent}, nil
}

// Geographic runs the geographic model and stores the result.
func (s *PredictionService) Geographic(ctx context.Context, userID string, site agronomy.SiteConditions) (*agronomy.GeographicEstimate, error) {
	est, err := s.geographic().Predict(site, s.now())
	if err != nil {
		return nil, err
	}

	_, err = s.repomanager.GeoPredictions(s.db).Create(ctx, &models.GeographicPrediction{
		UserID:         userID,
		Location:       est.Site.Location,
		TempC:          site.TempC,
		DewpointC:      site.DewpointC,
		PrecipMM:       site.PrecipMM,
		SolarRad:       site.SolarRad,
		AnnualRain:     site.AnnualRain,
		RainCV:         site.RainCV,
		SoilType:       site.SoilType,
		Irrigation:     site.Irrigation,
		PrevYield:      site.PrevYield,
		PredictedYield: est.PredictedYield,
		LowerBound:     est.LowerBound,
		UpperBound:     est.UpperBound,
		RainfallZone:   est.RainfallZone,
	})
	if err != nil {
		return nil, err
	}
	s.recorder.Prediction(ModelGeographic)
	return &est, nil
}

func (s *PredictionService) GeographicHistory(ctx context.Context, userID string) ([]models.GeographicPrediction, error) {
	return s.repomanager.GeoPredictions(s.db).ListByUser(ctx, userID, 0)
}

// Dashboard aggregates the user's geographic predictions.
type Dashboard struct {
	Total    int
	AvgYield float64
	MaxYield float64
	MinYield float64
	Farms    int
	Recent   []models.GeographicPrediction
}

func (s *PredictionService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	repo := s.repomanager.GeoPredictions(s.db)
	st, err := repo.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := repo.ListByUser(ctx, userID, recentLimit)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Total:    st.Total,
		AvgYield: common.Round(st.AvgYield, 1),
		MaxYield: st.MaxYield,
		MinYield: st.MinYield,
		Farms:    st.Locations,
		Recent:   recent,
	}
	if d.Total > 0 && d.Farms == 0 {
		d.Farms = 1
	}
	return d, nil
}

// OptimalPlanting scans the twelve planting months for a site and records
// the best one.
func (s *PredictionService) OptimalPlanting(ctx context.Context, userID string, site agronomy.SiteConditions) (*agronomy.PlantingScan, error) {
	scan, err := s.geographic().ScanPlantingMonths(site, s.now())
	if err != nil {
		return nil, err
	}

	annual := scan.AnnualRain
	best := scan.Best[0]
	_, err = s.repomanager.Recommendations(s.db).Create(ctx, &models.PlantingRecommendation{
		UserID:     userID,
		Kind:       models.RecommendationMonthly,
		Location:   scan.Location,
		AnnualRain: &annual,
		BestPeriod: best.Month,
		BestScore:  best.PredictedYield,
	})
	if err != nil {
		return nil, err
	}
	s.recorder.Prediction(ModelPlanting)
	return &scan, nil
}

// SeasonQuery selects the district-season-year to predict.
type SeasonQuery struct {
	State    string
	District string
	Season   string
	Year     int
}

func (s *PredictionService) checkQuery(q *SeasonQuery) error {
	q.State = strings.TrimSpace(q.State)
	q.District = strings.TrimSpace(q.District)
	if q.State == "" || q.District == "" {
		return fmt.Errorf("%w: state and district are required", common.ErrValidation)
	}
	if !agronomy.ValidSeason(q.Season) {
		return fmt.Errorf("%w: invalid season %q", common.ErrValidation, q.Season)
	}
	if q.Year < 2000 || q.Year > 2100 {
		return fmt.Errorf("%w: year %d out of range", common.ErrValidation, q.Year)
	}
	if len(s.catalog.States) > 0 && !s.catalog.HasDistrict(q.State, q.District) {
		return fmt.Errorf("%w: unknown district %s, %s", common.ErrValidation, q.District, q.State)
	}
	return nil
}

// seasonClimate averages the recorded climate of the district, then the
// state, falling back to fixed defaults.
func (s *PredictionService) seasonClimate(ctx context.Context, repo historicalyields.Repository, q SeasonQuery) (models.SeasonClimate, string, error) {
	c, ok, err := repo.ClimateAverage(ctx, historicalyields.Filter{State: q.State, District: q.District, Season: q.Season})
	if err != nil {
		return models.SeasonClimate{}, "", err
	}
	if ok {
		return *c, ClimateFromDistrict, nil
	}
	c, ok, err = repo.ClimateAverage(ctx, historicalyields.Filter{State: q.State, Season: q.Season})
	if err != nil {
		return models.SeasonClimate{}, "", err
	}
	if ok {
		return *c, ClimateFromState, nil
	}
	return agronomy.DefaultSeasonClimate(), ClimateFromDefaults, nil
}

// yieldLag finds the previous season's yield: the exact year, else the mean
// of the three years before, else the district, else the state average.
func (s *PredictionService) yieldLag(ctx context.Context, repo historicalyields.Repository, q SeasonQuery) (float64, error) {
	y, err := repo.YieldFor(ctx, q.State, q.District, q.Season, q.Year-1)
	if err == nil {
		return y, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return 0, err
	}

	filters := []historicalyields.Filter{
		{State: q.State, District: q.District, Season: q.Season, FromYear: q.Year - 3, ToYear: q.Year - 1},
		{State: q.State, District: q.District, Season: q.Season},
		{State: q.State, Season: q.Season},
	}
	for _, f := range filters {
		avg, ok, err := repo.AverageYield(ctx, f)
		if err != nil {
			return 0, err
		}
		if ok {
			return avg, nil
		}
	}
	return agronomy.DefaultYieldLag, nil
}

// SeasonOutcome is a seasonal estimate with the source of its climate.
type SeasonOutcome struct {
	Estimate      agronomy.SeasonEstimate
	ClimateSource string
}

func (s *PredictionService) estimateSeason(ctx context.Context, q SeasonQuery) (*SeasonOutcome, error) {
	if s.models.Season == nil {
		return nil, common.ErrModelUnavailable
	}
	if err := s.checkQuery(&q); err != nil {
		return nil, err
	}

	repo := s.repomanager.HistoricalYields(s.db)
	climate, source, err := s.seasonClimate(ctx, repo, q)
	if err != nil {
		return nil, err
	}
	lag, err := s.yieldLag(ctx, repo, q)
	if err != nil {
		return nil, err
	}

	est, err := agronomy.PredictSeason(s.models.Season, agronomy.SeasonRequest{
		State:     q.State,
		District:  q.District,
		Season:    q.Season,
		Year:      q.Year,
		Climate:   climate,
		YieldLag1: common.Round(lag, 2),
	})
	if err != nil {
		return nil, err
	}
	return &SeasonOutcome{Estimate: est, ClimateSource: source}, nil
}

// Season predicts a district-season yield and stores it with its climate.
func (s *PredictionService) Season(ctx context.Context, userID string, q SeasonQuery) (*SeasonOutcome, error) {
	out, err := s.estimateSeason(ctx, q)
	if err != nil {
		return nil, err
	}

	climate, err := json.Marshal(out.Estimate.Request.Climate)
	if err != nil {
		return nil, err
	}
	r := out.Estimate.Request
	_, err = s.repomanager.SeasonPredictions(s.db).Create(ctx, &models.SeasonPrediction{
		UserID:         userID,
		State:          r.State,
		District:       r.District,
		Season:         r.Season,
		Year:           r.Year,
		PredictedYield: out.Estimate.PredictedYield,
		LowerBound:     out.Estimate.LowerBound,
		UpperBound:     out.Estimate.UpperBound,
		ClimateJSON:    climate,
	})
	if err != nil {
		return nil, err
	}
	s.recorder.Prediction(ModelSeason)
	return out, nil
}

func (s *PredictionService) SeasonHistory(ctx context.Context, userID string) ([]models.SeasonPrediction, error) {
	return s.repomanager.SeasonPredictions(s.db).ListByUser(ctx, userID, seasonHistoryLimit)
}

// PlantingWindows ranks the season's planting windows and records the best
// one along with the yield of every window.
func (s *PredictionService) PlantingWindows(ctx context.Context, userID string, q SeasonQuery) (*agronomy.WindowPlan, error) {
	out, err := s.estimateSeason(ctx, q)
	if err != nil {
		return nil, err
	}
	plan, err := agronomy.PlanWindows(out.Estimate)
	if err != nil {
		return nil, err
	}

	r := out.Estimate.Request
	rec := &models.PlantingRecommendation{
		UserID:          userID,
		Kind:            models.RecommendationWindow,
		Location:        fmt.Sprintf("%s, %s", r.District, r.State),
		BestPeriod:      plan.Optimal.Label,
		BestScore:       plan.Optimal.PredictedYield,
		ConfidenceLevel: plan.ConfidenceLevel,
	}
	for _, w := range plan.Windows {
		y := w.PredictedYield
		switch w.Key {
		case agronomy.WindowEarly:
			rec.EarlyYield = &y
		case agronomy.WindowMid:
			rec.MidYield = &y
		case agronomy.WindowLate:
			rec.LateYield = &y
		}
	}
	_, err = s.repomanager.Recommendations(s.db).Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.recorder.Prediction(ModelWindows)
	return &plan, nil
}

func (s *PredictionService) Recommendations(ctx context.Context, userID string) ([]models.PlantingRecommendation, error) {
	return s.repomanager.Recommendations(s.db).ListByUser(ctx, userID, 0)
}
