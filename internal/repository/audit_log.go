package repository

import (
	"ballotbox/internal/models"
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditLogRepository defines the interface for activity-log operations
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.CreateAuditLogRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)
	List(ctx context.Context, filter AuditLogFilter) ([]models.AuditLog, error)
}

// AuditLogFilter defines the filter options for listing audit logs
type AuditLogFilter struct {
	UserID        *uuid.UUID
	Actions       []string
	EntityTypes   []string
	CreatedBefore *time.Time
	CreatedAfter  *time.Time
	Limit         *int
	Offset        *int
}
