package postgres

import (
	"context"
	"database/sql"
	"time"

	"ballotbox/internal/models"
	"ballotbox/internal/repository"

	"github.com/google/uuid"
)

type passwordResetRepository struct {
	repository.BaseRepository
}

// NewPasswordResetRepository creates a new PostgreSQL password-reset repository
func NewPasswordResetRepository(db *sql.DB) repository.PasswordResetRepository {
	return &passwordResetRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *passwordResetRepository) Create(ctx context.Context, q repository.Querier, userID uuid.UUID, ttl time.Duration) (*models.PasswordReset, error) {
	// One active token per user: drop any prior unused tokens first.
	_, err := q.ExecContext(ctx,
		"DELETE FROM password_resets WHERE user_id = $1 AND used_at IS NULL", userID)
	if err != nil {
		return nil, err
	}

	reset := &models.PasswordReset{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(ttl),
	}

	query := `
		INSERT INTO password_resets (id, user_id, token, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err = q.QueryRowContext(ctx, query, reset.ID, reset.UserID, reset.Token, reset.ExpiresAt).
		Scan(&reset.CreatedAt)
	if err != nil {
		return nil, err
	}

	return reset, nil
}

func (r *passwordResetRepository) GetByTokenForUpdate(ctx context.Context, q repository.Querier, token string) (*models.PasswordReset, error) {
	reset := &models.PasswordReset{}
	query := `
		SELECT id, user_id, token, expires_at, used_at, created_at
		FROM password_resets
		WHERE token = $1
		FOR UPDATE`

	err := q.QueryRowContext(ctx, query, token).Scan(
		&reset.ID,
		&reset.UserID,
		&reset.Token,
		&reset.ExpiresAt,
		&reset.UsedAt,
		&reset.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrResetTokenInvalid
	}
	if err != nil {
		return nil, err
	}

	if reset.UsedAt != nil {
		return nil, repository.ErrResetTokenUsed
	}
	if time.Now().After(reset.ExpiresAt) {
		return nil, repository.ErrResetTokenExpired
	}

	return reset, nil
}

func (r *passwordResetRepository) MarkAsUsed(ctx context.Context, q repository.Querier, id uuid.UUID) error {
	query := `
		UPDATE password_resets
		SET used_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND used_at IS NULL`

	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(result, repository.ErrResetTokenInvalid)
}
