package repository

import (
	"ballotbox/internal/models"
	"context"

	"github.com/google/uuid"
)

// CandidateRepository defines the interface for candidate-related database operations
type CandidateRepository interface {
	Create(ctx context.Context, candidate *models.Candidate) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error)
	ListByElection(ctx context.Context, electionID uuid.UUID) ([]models.Candidate, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// BelongsToElection reports whether the candidate stands in the election.
	// Runs on q so the voting service can check it inside its transaction.
	BelongsToElection(ctx context.Context, q Querier, candidateID, electionID uuid.UUID) (bool, error)
}
