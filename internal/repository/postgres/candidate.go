package postgres

import (
	"context"
	"database/sql"
	"time"

	"ballotbox/internal/models"
	"ballotbox/internal/repository"

	"github.com/google/uuid"
)

type candidateRepository struct {
	repository.BaseRepository
}

// NewCandidateRepository creates a new PostgreSQL candidate repository
func NewCandidateRepository(db *sql.DB) repository.CandidateRepository {
	return &candidateRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *candidateRepository) Create(ctx context.Context, candidate *models.Candidate) error {
	// Verify the election exists first so the caller gets a domain error
	// instead of a raw foreign key violation.
	var exists bool
	err := r.DB().QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM elections WHERE id = $1)", candidate.ElectionID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return repository.ErrElectionNotFound
	}

	query := `
		INSERT INTO candidates (id, election_id, name, party, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	if candidate.ID == uuid.Nil {
		candidate.ID = uuid.New()
	}

	return r.DB().QueryRowContext(ctx, query,
		candidate.ID,
		candidate.ElectionID,
		candidate.Name,
		candidate.Party,
		time.Now(),
	).Scan(&candidate.CreatedAt)
}

func (r *candidateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error) {
	query := `
		SELECT id, election_id, name, party, created_at
		FROM candidates
		WHERE id = $1`

	candidate := &models.Candidate{}
	err := r.DB().QueryRowContext(ctx, query, id).Scan(
		&candidate.ID,
		&candidate.ElectionID,
		&candidate.Name,
		&candidate.Party,
		&candidate.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrCandidateNotFound
	}
	if err != nil {
		return nil, err
	}
	return candidate, nil
}

func (r *candidateRepository) ListByElection(ctx context.Context, electionID uuid.UUID) ([]models.Candidate, error) {
	query := `
		SELECT id, election_id, name, party, created_at
		FROM candidates
		WHERE election_id = $1
		ORDER BY name ASC`

	rows, err := r.DB().QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.Name, &c.Party, &c.CreatedAt); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

func (r *candidateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.DB().ExecContext(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(result, repository.ErrCandidateNotFound)
}

func (r *candidateRepository) BelongsToElection(ctx context.Context, q repository.Querier, candidateID, electionID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM candidates WHERE id = $1 AND election_id = $2)",
		candidateID, electionID,
	).Scan(&exists)
	return exists, err
}
