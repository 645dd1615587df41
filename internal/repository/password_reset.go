package repository

import (
	"ballotbox/internal/models"
	"context"
	"time"

	"github.com/google/uuid"
)

// PasswordResetRepository defines the interface for reset-token operations
type PasswordResetRepository interface {
	// Create issues a new token valid for ttl, replacing any unused tokens
	// the user already holds (one active token per user).
	Create(ctx context.Context, q Querier, userID uuid.UUID, ttl time.Duration) (*models.PasswordReset, error)
	// GetByTokenForUpdate locks the token row for the duration of the
	// caller's transaction so a token can only be consumed once.
	GetByTokenForUpdate(ctx context.Context, q Querier, token string) (*models.PasswordReset, error)
	MarkAsUsed(ctx context.Context, q Querier, id uuid.UUID) error
}
