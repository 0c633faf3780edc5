// Package common defines shared constants and sentinel errors used across the
// web, API and CLI layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrEmailExists    = errors.New("email already exists")
	ErrGoogleIDExists = errors.New("google account already linked to another user")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrValidation     = errors.New("validation error")

	// Authentication flow errors.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidMFACode     = errors.New("invalid authentication code or backup code")
	ErrPasswordNotSet     = errors.New("account has no password")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Inference errors.
	ErrModelUnavailable = errors.New("prediction model is not available")
	ErrUnknownSoilType  = errors.New("unknown soil type")
)
