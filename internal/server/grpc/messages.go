package grpc

import (
	"time"

	"github.com/dmitrijs2005/cottonadvisor/internal/agronomy"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Code is an authenticator code or a backup code.
	Code string `json:"code"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

// SiteRequest carries the site for geographic predictions and the planting
// scan. Zero-valued optional fields take the usual defaults.
type SiteRequest struct {
	Site agronomy.SiteConditions `json:"site"`
}

type SeasonRequest struct {
	State    string `json:"state"`
	District string `json:"district"`
	Season   string `json:"season"`
	Year     int    `json:"year"`
}

type SeasonResponse struct {
	Prediction    agronomy.SeasonEstimate `json:"prediction"`
	ClimateSource string                  `json:"climate_source"`
}

// HistoryRequest selects stored predictions. Model is "geographic",
// "season" or empty for both.
type HistoryRequest struct {
	Model string `json:"model"`
}

type HistoryEntry struct {
	Model          string    `json:"model"`
	Location       string    `json:"location"`
	PredictedYield float64   `json:"predicted_yield"`
	LowerBound     float64   `json:"confidence_lower"`
	UpperBound     float64   `json:"confidence_upper"`
	CreatedAt      time.Time `json:"created_at"`
}

type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}
