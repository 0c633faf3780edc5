package models

// HistoricalYield is one observed district-season yield with its climate.
type HistoricalYield struct {
	State         string
	District      string
	Season        string
	Year          int
	ActualYield   float64
	TempCMean     float64
	DewpointCMean float64
	PrecipMMMean  float64
	PrecipMMSum   float64
	SSRDMJm2Mean  float64
}

// SeasonClimate is the averaged climate fed to the seasonal model.
type SeasonClimate struct {
	TempCMean     float64 `json:"temp_c_mean"`
	DewpointCMean float64 `json:"dewpoint_c_mean"`
	PrecipMMMean  float64 `json:"precip_mm_mean"`
	PrecipMMSum   float64 `json:"precip_mm_sum"`
	SSRDMJm2Mean  float64 `json:"ssrd_MJm2_mean"`
}
