package historicalyields

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/dbx"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM historical_yields`); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, rows []models.HistoricalYield) (int, error) {
	query :=
		`INSERT INTO historical_yields (state, district, season, year, actual_yield, temp_c_mean,
		 dewpoint_c_mean, precip_mm_mean, precip_mm_sum, ssrd_mjm2_mean)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (state, district, season, year) DO UPDATE SET
		 actual_yield = EXCLUDED.actual_yield, temp_c_mean = EXCLUDED.temp_c_mean,
		 dewpoint_c_mean = EXCLUDED.dewpoint_c_mean, precip_mm_mean = EXCLUDED.precip_mm_mean,
		 precip_mm_sum = EXCLUDED.precip_mm_sum, ssrd_mjm2_mean = EXCLUDED.ssrd_mjm2_mean`

	for i, h := range rows {
		if _, err := r.db.ExecContext(ctx, query, h.State, h.District, h.Season, h.Year, h.ActualYield,
			h.TempCMean, h.DewpointCMean, h.PrecipMMMean, h.PrecipMMSum, h.SSRDMJm2Mean); err != nil {
			return i, fmt.Errorf("db error: %w", err)
		}
	}
	return len(rows), nil
}

func (r *PostgresRepository) YieldFor(ctx context.Context, state, district, season string, year int) (float64, error) {
	query :=
		`SELECT actual_yield FROM historical_yields
		 WHERE state = $1 AND district = $2 AND season = $3 AND year = $4`

	var v float64
	if err := r.db.QueryRowContext(ctx, query, state, district, season, year).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (f Filter) where() (string, []any) {
	conds := []string{"state = $1", "season = $2"}
	args := []any{f.State, f.Season}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.District != "" {
		add("district = $%d", f.District)
	}
	if f.FromYear != 0 {
		add("year >= $%d", f.FromYear)
	}
	if f.ToYear != 0 {
		add("year <= $%d", f.ToYear)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) AverageYield(ctx context.Context, f Filter) (float64, bool, error) {
	where, args := f.where()
	var avg sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, `SELECT AVG(actual_yield) FROM historical_yields`+where, args...).Scan(&avg); err != nil {
		return 0, false, fmt.Errorf("db error: %w", err)
	}
	return avg.Float64, avg.Valid, nil
}

func (r *PostgresRepository) ClimateAverage(ctx context.Context, f Filter) (*models.SeasonClimate, bool, error) {
	where, args := f.where()
	query := `SELECT AVG(temp_c_mean), AVG(dewpoint_c_mean), AVG(precip_mm_mean), AVG(precip_mm_sum),
		 AVG(ssrd_mjm2_mean) FROM historical_yields` + where

	var t, d, pm, ps, s sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&t, &d, &pm, &ps, &s); err != nil {
		return nil, false, fmt.Errorf("db error: %w", err)
	}
	if !t.Valid {
		return nil, false, nil
	}
	return &models.SeasonClimate{
		TempCMean:     t.Float64,
		DewpointCMean: d.Float64,
		PrecipMMMean:  pm.Float64,
		PrecipMMSum:   ps.Float64,
		SSRDMJm2Mean:  s.Float64,
	}, true, nil
}

func (r *PostgresRepository) StatesDistricts(ctx context.Context) ([]StateDistricts, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT state, district FROM historical_yields ORDER BY state, district`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []StateDistricts
	for rows.Next() {
		var state, district string
		if err := rows.Scan(&state, &district); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Name != state {
			out = append(out, StateDistricts{Name: state})
		}
		last := &out[len(out)-1]
		last.Districts = append(last.Districts, district)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
