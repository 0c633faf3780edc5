// Package backupcodes stores hashed single-use MFA recovery codes.
package backupcodes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
)

type Repository interface {
	// Replace drops every code of userID and stores the given hashes.
	Replace(ctx context.Context, userID string, hashes []string) error
	// FindUnused returns the unused code with the given hash or common.ErrorNotFound.
	FindUnused(ctx context.Context, userID string, hash string) (*models.BackupCode, error)
	// MarkUsed consumes a code. A code that is already used yields common.ErrorNotFound.
	MarkUsed(ctx context.Context, id string, at time.Time) error
	CountUnused(ctx context.Context, userID string) (int, error)
}
