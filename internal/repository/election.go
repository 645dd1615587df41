package repository

import (
	"ballotbox/internal/models"
	"context"

	"github.com/google/uuid"
)

// ElectionRepository defines the interface for election-related database operations
type ElectionRepository interface {
	Create(ctx context.Context, election *models.Election) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Election, error)
	// GetByIDForShare reads the election through q under a share lock, so a
	// concurrent status or date change cannot commit before the caller's
	// transaction does.
	GetByIDForShare(ctx context.Context, q Querier, id uuid.UUID) (*models.Election, error)
	Update(ctx context.Context, election *models.Election) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ElectionFilter) ([]models.Election, error)
}

// ElectionFilter defines the filter options for listing elections
type ElectionFilter struct {
	Status *models.ElectionStatus
	Limit  *int
	Offset *int
}
