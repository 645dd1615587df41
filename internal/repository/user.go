package repository

import (
	"ballotbox/internal/models"
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines the interface for account-related database operations
type UserRepository interface {
	Create(ctx context.Context, q Querier, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByEmailForUpdate locks the account row for the duration of tx so
	// concurrent login or registration attempts for the same email serialize.
	GetByEmailForUpdate(ctx context.Context, tx *sql.Tx, email string) (*models.User, error)
	List(ctx context.Context, filter UserFilter) ([]models.User, error)
	UpdateFailedAttempts(ctx context.Context, q Querier, id uuid.UUID, attempts int, lockedUntil *time.Time) error
	SetOTP(ctx context.Context, q Querier, id uuid.UUID, code string, expiresAt time.Time) error
	SetFaceVerified(ctx context.Context, q Querier, id uuid.UUID, verified bool) error
	// ResetLoginState clears attempts, lockout and OTP state and stamps the
	// last successful login. Called only on full authentication.
	ResetLoginState(ctx context.Context, q Querier, id uuid.UUID, lastLogin time.Time) error
	// UpdatePassword replaces the password hash, clears the temporary
	// password and activates the account.
	UpdatePassword(ctx context.Context, q Querier, id uuid.UUID, hashedPassword string) error
	SetHasVoted(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
	// DeleteVoterCascade removes a voter and all dependent rows inside tx and
	// reports per-category counts plus the face image path for post-commit
	// file cleanup. Fails with ErrUserNotFound if no account row was deleted.
	DeleteVoterCascade(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*DeleteCounts, error)
	// DeleteAllVotersCascade removes every voter account the same way.
	DeleteAllVotersCascade(ctx context.Context, tx *sql.Tx) (*DeleteCounts, error)
}

// UserFilter defines the filter options for listing users
type UserFilter struct {
	Role    *models.Role
	Search  *string // Search by name or email
	OrderBy string
	Limit   *int
	Offset  *int
}

// DeleteCounts reports what a cascade delete removed
type DeleteCounts struct {
	Accounts       int
	Votes          int
	Eligibility    int
	PasswordResets int
	FacePaths      []string
}
