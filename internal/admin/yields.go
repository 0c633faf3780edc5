package admin

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
)

// Column headers of the merged yield + climate dataset.
const (
	colState    = "State"
	colDistrict = "District"
	colSeason   = "Season"
	colYear     = "HarvestYear"
	colYield    = "Yield_bales_per_ha"
	colTemp     = "temp_c_mean"
	colDewpoint = "dewpoint_c_mean"
	colPrecip   = "precip_mm_mean"
	colPrecipSm = "precip_mm_sum"
	colSSRD     = "ssrd_MJm2_mean"
)

var yieldColumns = []string{
	colState, colDistrict, colSeason, colYear, colYield,
	colTemp, colDewpoint, colPrecip, colPrecipSm, colSSRD,
}

// YieldImport is the cleaned content of a dataset file.
type YieldImport struct {
	Rows    []models.HistoricalYield
	Skipped int
}

func ReadYieldsCSV(r io.Reader) (*YieldImport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return parseYieldRecords(records)
}

// ReadYieldsXLSX reads the first sheet of a workbook.
func ReadYieldsXLSX(r io.Reader) (*YieldImport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	records, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	return parseYieldRecords(records)
}

// parseYieldRecords trims every cell, forward-fills blank districts and
// drops rows that lack any value the schema requires.
func parseYieldRecords(records [][]string) (*YieldImport, error) {
	if len(records) == 0 {
		return nil, errors.New("dataset is empty")
	}

	index := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		index[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, c := range yieldColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	out := &YieldImport{}
	lastDistrict := ""
	for _, rec := range records[1:] {
		cell := func(col string) string {
			if i := index[col]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		if isBlank(rec) {
			continue
		}

		district := cell(colDistrict)
		if district == "" {
			district = lastDistrict
		}
		lastDistrict = district

		row, ok := buildYield(cell, district)
		if !ok {
			out.Skipped++
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func buildYield(cell func(string) string, district string) (models.HistoricalYield, bool) {
	h := models.HistoricalYield{
		State:    cell(colState),
		District: district,
		Season:   cell(colSeason),
	}
	if h.State == "" || h.District == "" || h.Season == "" {
		return h, false
	}

	year, ok := parseFinite(cell(colYear))
	if !ok {
		return h, false
	}
	h.Year = int(year)

	for _, f := range []struct {
		col string
		dst *float64
	}{
		{colYield, &h.ActualYield},
		{colTemp, &h.TempCMean},
		{colDewpoint, &h.DewpointCMean},
		{colPrecip, &h.PrecipMMMean},
		{colPrecipSm, &h.PrecipMMSum},
		{colSSRD, &h.SSRDMJm2Mean},
	} {
		v, ok := parseFinite(cell(f.col))
		if !ok {
			return h, false
		}
		*f.dst = v
	}
	return h, true
}

// parseFinite treats NaN and infinities like an empty cell.
func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
