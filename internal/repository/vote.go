package repository

import (
	"ballotbox/internal/models"
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// VoteRepository defines the interface for vote-related database operations
type VoteRepository interface {
	// GetForUpdate locks any existing vote row for (user, election) within tx.
	// Returns ErrVoteNotFound when no vote exists; the lock on the gap plus
	// the unique (user_id, election_id) index serialize concurrent casts.
	GetForUpdate(ctx context.Context, tx *sql.Tx, userID, electionID uuid.UUID) (*models.Vote, error)
	Create(ctx context.Context, tx *sql.Tx, vote *models.Vote) error
	GetByUserAndElection(ctx context.Context, userID, electionID uuid.UUID) (*models.Vote, error)
	// SetLedgerResult records the external ledger receipt inside tx.
	SetLedgerResult(ctx context.Context, tx *sql.Tx, id uuid.UUID, hash string, confirmed bool) error
	// ListUnconfirmed returns committed votes without a confirmed ledger
	// receipt, oldest first, for the reconciliation job.
	ListUnconfirmed(ctx context.Context, limit int) ([]models.Vote, error)
	MarkConfirmed(ctx context.Context, id uuid.UUID, hash string) error
	CountByElection(ctx context.Context, electionID uuid.UUID) (int, error)
}
