package postgres

import (
	"context"
	"database/sql"
	"time"

	"ballotbox/internal/models"
	"ballotbox/internal/repository"

	"github.com/google/uuid"
)

type voteRepository struct {
	repository.BaseRepository
}

// NewVoteRepository creates a new PostgreSQL vote repository
func NewVoteRepository(db *sql.DB) repository.VoteRepository {
	return &voteRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

const voteColumns = `id, user_id, election_id, candidate_id, ledger_hash, ledger_confirmed, created_at`

func scanVote(row rowScanner) (*models.Vote, error) {
	vote := &models.Vote{}
	err := row.Scan(
		&vote.ID,
		&vote.UserID,
		&vote.ElectionID,
		&vote.CandidateID,
		&vote.LedgerHash,
		&vote.LedgerConfirmed,
		&vote.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrVoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return vote, nil
}

func (r *voteRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, userID, electionID uuid.UUID) (*models.Vote, error) {
	query := `SELECT ` + voteColumns + `
		FROM votes
		WHERE user_id = $1 AND election_id = $2
		FOR UPDATE`

	return scanVote(tx.QueryRowContext(ctx, query, userID, electionID))
}

func (r *voteRepository) Create(ctx context.Context, tx *sql.Tx, vote *models.Vote) error {
	query := `
		INSERT INTO votes (id, user_id, election_id, candidate_id, ledger_hash, ledger_confirmed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	if vote.ID == uuid.Nil {
		vote.ID = uuid.New()
	}

	err := tx.QueryRowContext(ctx, query,
		vote.ID,
		vote.UserID,
		vote.ElectionID,
		vote.CandidateID,
		vote.LedgerHash,
		vote.LedgerConfirmed,
		time.Now(),
	).Scan(&vote.CreatedAt)
	if isUniqueViolation(err) {
		return repository.ErrAlreadyVoted
	}
	return err
}

func (r *voteRepository) GetByUserAndElection(ctx context.Context, userID, electionID uuid.UUID) (*models.Vote, error) {
	query := `SELECT ` + voteColumns + `
		FROM votes
		WHERE user_id = $1 AND election_id = $2`

	return scanVote(r.DB().QueryRowContext(ctx, query, userID, electionID))
}

func (r *voteRepository) SetLedgerResult(ctx context.Context, tx *sql.Tx, id uuid.UUID, hash string, confirmed bool) error {
	query := `
		UPDATE votes
		SET ledger_hash = $1, ledger_confirmed = $2
		WHERE id = $3`

	result, err := tx.ExecContext(ctx, query, hash, confirmed, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(result, repository.ErrVoteNotFound)
}

func (r *voteRepository) ListUnconfirmed(ctx context.Context, limit int) ([]models.Vote, error) {
	query := `SELECT ` + voteColumns + `
		FROM votes
		WHERE ledger_confirmed = FALSE
		ORDER BY created_at ASC
		LIMIT $1`

	rows, err := r.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		vote, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		votes = append(votes, *vote)
	}

	return votes, rows.Err()
}

func (r *voteRepository) MarkConfirmed(ctx context.Context, id uuid.UUID, hash string) error {
	query := `
		UPDATE votes
		SET ledger_hash = $1, ledger_confirmed = TRUE
		WHERE id = $2`

	result, err := r.DB().ExecContext(ctx, query, hash, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(result, repository.ErrVoteNotFound)
}

func (r *voteRepository) CountByElection(ctx context.Context, electionID uuid.UUID) (int, error) {
	var count int
	err := r.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM votes WHERE election_id = $1", electionID).Scan(&count)
	return count, err
}
