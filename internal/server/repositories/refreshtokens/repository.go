// Package refreshtokens persists the refresh tokens handed to API clients
// alongside their short-lived access tokens. Tokens are addressed by hash.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	// FindByHash returns common.ErrorNotFound when no token matches.
	FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	// DeleteByHash reports whether a row was removed.
	DeleteByHash(ctx context.Context, tokenHash string) (bool, error)
	// DeleteExpired purges tokens of userID that expired at or before now.
	DeleteExpired(ctx context.Context, userID string, now time.Time) (int64, error)
}
