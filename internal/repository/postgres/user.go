package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ballotbox/internal/models"
	"ballotbox/internal/repository"

	"github.com/google/uuid"
)

type userRepository struct {
	repository.BaseRepository
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

const userColumns = `
	id, role, name, email, password, temp_password, password_changed,
	account_status, login_attempts, account_locked_until,
	face_image_path, face_verified, otp_code, otp_expires_at, otp_required,
	has_voted, authorized, authorized_at, authorized_by,
	date_of_birth, last_login_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Role,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.TempPassword,
		&user.PasswordChanged,
		&user.AccountStatus,
		&user.LoginAttempts,
		&user.AccountLockedUntil,
		&user.FaceImagePath,
		&user.FaceVerified,
		&user.OTPCode,
		&user.OTPExpiresAt,
		&user.OTPRequired,
		&user.HasVoted,
		&user.Authorized,
		&user.AuthorizedAt,
		&user.AuthorizedBy,
		&user.DateOfBirth,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, q repository.Querier, user *models.User) error {
	query := `
		INSERT INTO users (
			id, role, name, email, password, temp_password, password_changed,
			account_status, login_attempts, account_locked_until,
			face_image_path, face_verified, otp_required, has_voted,
			authorized, authorized_at, authorized_by, date_of_birth,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $19
		)
		RETURNING created_at, updated_at`

	now := time.Now()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = NormalizeEmail(user.Email)

	return q.QueryRowContext(ctx, query,
		user.ID,
		user.Role,
		user.Name,
		user.Email,
		user.Password,
		user.TempPassword,
		user.PasswordChanged,
		user.AccountStatus,
		user.LoginAttempts,
		user.AccountLockedUntil,
		user.FaceImagePath,
		user.FaceVerified,
		user.OTPRequired,
		user.HasVoted,
		user.Authorized,
		user.AuthorizedAt,
		user.AuthorizedBy,
		user.DateOfBirth,
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.DB().QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE LOWER(email) = $1`
	return scanUser(r.DB().QueryRowContext(ctx, query, NormalizeEmail(email)))
}

func (r *userRepository) GetByEmailForUpdate(ctx context.Context, tx *sql.Tx, email string) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE LOWER(email) = $1 FOR UPDATE`
	return scanUser(tx.QueryRowContext(ctx, query, NormalizeEmail(email)))
}

func (r *userRepository) List(ctx context.Context, filter repository.UserFilter) ([]models.User, error) {
	conditions := make([]string, 0)
	args := make([]interface{}, 0)
	argCount := 1

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argCount))
		args = append(args, *filter.Role)
		argCount++
	}

	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", argCount, argCount))
		args = append(args, "%"+*filter.Search+"%")
		argCount++
	}

	query := `SELECT` + userColumns + ` FROM users`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	if filter.OrderBy != "" {
		query += fmt.Sprintf(" ORDER BY %s", filter.OrderBy)
	} else {
		query += " ORDER BY email ASC"
	}

	if filter.Limit != nil {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, *filter.Limit)
		argCount++
	}
	if filter.Offset != nil {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, *filter.Offset)
	}

	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}

	return users, rows.Err()
}

func (r *userRepository) UpdateFailedAttempts(ctx context.Context, q repository.Querier, id uuid.UUID, attempts int, lockedUntil *time.Time) error {
	query := `
		UPDATE users
		SET login_attempts = $1,
		    account_locked_until = $2,
		    account_status = CASE WHEN $2::timestamptz IS NOT NULL THEN 'locked' ELSE account_status END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $3`

	result, err := q.ExecContext(ctx, query, attempts, lockedUntil, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(result, repository.ErrUserNotFound)
}

func (r *userRepository) SetOTP(ctx context.Context, q repository.Querier, id uuid.UUID, code string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET otp_code = $1, otp_expires_at = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3`

	result, err := q.ExecContext(ctx, query, code, expiresAt, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(result, repository.ErrUserNotFound)
}

func (r *userRepository) SetFaceVerified(ctx context.Context, q repository.Querier, id uuid.UUID, verified bool) error {
	query := `
		UPDATE users
		SET face_verified = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`

	result, err := q.ExecContext(ctx, query, verified, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(result, repository.ErrUserNotFound)
}

func (r *userRepository) ResetLoginState(ctx context.Context, q repository.Querier, id uuid.UUID, lastLogin time.Time) error {
	query := `
		UPDATE users
		SET login_attempts = 0,
		    account_locked_until = NULL,
		    otp_code = NULL,
		    otp_expires_at = NULL,
		    account_status = CASE WHEN account_status = 'locked' THEN 'active' ELSE account_status END,
		    last_login_at = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`

	result, err := q.ExecContext(ctx, query, lastLogin, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(result, repository.ErrUserNotFound)
}

func (r *userRepository) UpdatePassword(ctx context.Context, q repository.Querier, id uuid.UUID, hashedPassword string) error {
	query := `
		UPDATE users
		SET password = $1,
		    temp_password = NULL,
		    password_changed = TRUE,
		    account_status = 'active',
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`

	result, err := q.ExecContext(ctx, query, hashedPassword, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(result, repository.ErrUserNotFound)
}

func (r *userRepository) SetHasVoted(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	query := `
		UPDATE users
		SET has_voted = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(result, repository.ErrUserNotFound)
}

func (r *userRepository) DeleteVoterCascade(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*repository.DeleteCounts, error) {
	var role models.Role
	var facePath *string
	var email string
	err := tx.QueryRowContext(ctx,
		`SELECT role, face_image_path, email FROM users WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&role, &facePath, &email)
	if err == sql.ErrNoRows {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if role == models.RoleAdmin {
		return nil, repository.ErrAdminDelete
	}

	counts := &repository.DeleteCounts{}

	counts.Votes, err = execCount(ctx, tx, `DELETE FROM votes WHERE user_id = $1`, id)
	if err != nil {
		return nil, err
	}

	counts.Eligibility, err = execCount(ctx, tx,
		`DELETE FROM eligible_voters WHERE email = $1`, email)
	if err != nil {
		return nil, err
	}

	counts.PasswordResets, err = execCount(ctx, tx,
		`DELETE FROM password_resets WHERE user_id = $1`, id)
	if err != nil {
		return nil, err
	}

	counts.Accounts, err = execCount(ctx, tx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if counts.Accounts == 0 {
		return nil, repository.ErrUserNotFound
	}

	if facePath != nil {
		counts.FacePaths = append(counts.FacePaths, *facePath)
	}
	return counts, nil
}

func (r *userRepository) DeleteAllVotersCascade(ctx context.Context, tx *sql.Tx) (*repository.DeleteCounts, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, face_image_path, email FROM users WHERE role = 'voter' FOR UPDATE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	var emails []string
	counts := &repository.DeleteCounts{}
	for rows.Next() {
		var id uuid.UUID
		var facePath *string
		var email string
		if err := rows.Scan(&id, &facePath, &email); err != nil {
			return nil, err
		}
		ids = append(ids, id)
		emails = append(emails, email)
		if facePath != nil {
			counts.FacePaths = append(counts.FacePaths, *facePath)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return counts, nil
	}

	counts.Votes, err = execCount(ctx, tx,
		`DELETE FROM votes WHERE user_id IN (SELECT id FROM users WHERE role = 'voter')`)
	if err != nil {
		return nil, err
	}

	counts.Eligibility, err = execCount(ctx, tx,
		`DELETE FROM eligible_voters WHERE email = ANY(SELECT email FROM users WHERE role = 'voter')`)
	if err != nil {
		return nil, err
	}

	counts.PasswordResets, err = execCount(ctx, tx,
		`DELETE FROM password_resets WHERE user_id IN (SELECT id FROM users WHERE role = 'voter')`)
	if err != nil {
		return nil, err
	}

	counts.Accounts, err = execCount(ctx, tx, `DELETE FROM users WHERE role = 'voter'`)
	if err != nil {
		return nil, err
	}
	if counts.Accounts == 0 {
		return nil, repository.ErrUserNotFound
	}

	return counts, nil
}

// NormalizeEmail lower-cases and trims an email address. Uniqueness across
// the store is case-insensitive, so every write and lookup goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func execCount(ctx context.Context, q repository.Querier, query string, args ...interface{}) (int, error) {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func requireRowsAffected(result sql.Result, errIfNone error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errIfNone
	}
	return nil
}
