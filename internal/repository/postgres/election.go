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

type electionRepository struct {
	repository.BaseRepository
}

// NewElectionRepository creates a new PostgreSQL election repository
func NewElectionRepository(db *sql.DB) repository.ElectionRepository {
	return &electionRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *electionRepository) Create(ctx context.Context, election *models.Election) error {
	query := `
		INSERT INTO elections (id, title, description, start_date, end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING created_at, updated_at`

	if election.ID == uuid.Nil {
		election.ID = uuid.New()
	}
	if election.Status == "" {
		election.Status = models.ElectionDraft
	}

	return r.DB().QueryRowContext(ctx, query,
		election.ID,
		election.Title,
		election.Description,
		election.StartDate,
		election.EndDate,
		election.Status,
		time.Now(),
	).Scan(&election.CreatedAt, &election.UpdatedAt)
}

func (r *electionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Election, error) {
	query := `
		SELECT id, title, description, start_date, end_date, status, created_at, updated_at
		FROM elections
		WHERE id = $1`

	election := &models.Election{}
	err := r.DB().QueryRowContext(ctx, query, id).Scan(
		&election.ID,
		&election.Title,
		&election.Description,
		&election.StartDate,
		&election.EndDate,
		&election.Status,
		&election.CreatedAt,
		&election.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrElectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return election, nil
}

func (r *electionRepository) GetByIDForShare(ctx context.Context, q repository.Querier, id uuid.UUID) (*models.Election, error) {
	query := `
		SELECT id, title, description, start_date, end_date, status, created_at, updated_at
		FROM elections
		WHERE id = $1
		FOR SHARE`

	election := &models.Election{}
	err := q.QueryRowContext(ctx, query, id).Scan(
		&election.ID,
		&election.Title,
		&election.Description,
		&election.StartDate,
		&election.EndDate,
		&election.Status,
		&election.CreatedAt,
		&election.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrElectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return election, nil
}

func (r *electionRepository) Update(ctx context.Context, election *models.Election) error {
	query := `
		UPDATE elections
		SET title = $1, description = $2, start_date = $3, end_date = $4,
		    status = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING updated_at`

	err := r.DB().QueryRowContext(ctx, query,
		election.Title,
		election.Description,
		election.StartDate,
		election.EndDate,
		election.Status,
		election.ID,
	).Scan(&election.UpdatedAt)
	if err == sql.ErrNoRows {
		return repository.ErrElectionNotFound
	}
	return err
}

func (r *electionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.DB().ExecContext(ctx, `DELETE FROM elections WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(result, repository.ErrElectionNotFound)
}

func (r *electionRepository) List(ctx context.Context, filter repository.ElectionFilter) ([]models.Election, error) {
	conditions := make([]string, 0)
	args := make([]interface{}, 0)
	argCount := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCount))
		args = append(args, *filter.Status)
		argCount++
	}

	query := `
		SELECT id, title, description, start_date, end_date, status, created_at, updated_at
		FROM elections`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_date DESC"

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

	var elections []models.Election
	for rows.Next() {
		var e models.Election
		err := rows.Scan(
			&e.ID,
			&e.Title,
			&e.Description,
			&e.StartDate,
			&e.EndDate,
			&e.Status,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		elections = append(elections, e)
	}

	return elections, rows.Err()
}
