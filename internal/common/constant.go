package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the access
// token on API requests.
const AccessTokenHeaderName = "access_token"

// Seasons recognised by the seasonal model.
const (
	SeasonKharif = "Kharif"
	SeasonRabi   = "Rabi"
)
