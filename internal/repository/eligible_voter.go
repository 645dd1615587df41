package repository

import (
	"ballotbox/internal/models"
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// UpsertOutcome reports what an eligible-voter upsert did
type UpsertOutcome int

const (
	UpsertInserted UpsertOutcome = iota
	UpsertUpdated
	UpsertSkipped
)

// EligibleVoterRepository defines the interface for election allow-list operations
type EligibleVoterRepository interface {
	GetByElectionAndEmail(ctx context.Context, electionID uuid.UUID, email string) (*models.EligibleVoter, error)
	ListByElection(ctx context.Context, electionID uuid.UUID) ([]models.EligibleVoter, error)
	// MarkRegistered upserts the allow-list entry with has_registered set,
	// inside the registration transaction.
	MarkRegistered(ctx context.Context, tx *sql.Tx, electionID uuid.UUID, email, name string) error
	// UpsertImport inserts or updates an entry during a bulk import. Entries
	// with has_registered already set are never demoted: their name may be
	// refreshed but the flag and active state are preserved.
	UpsertImport(ctx context.Context, tx *sql.Tx, entry *models.EligibleVoter) (UpsertOutcome, error)
	// DeactivateMissing marks entries of the election not present in emails
	// as inactive, sparing registered ones. Returns the number deactivated.
	DeactivateMissing(ctx context.Context, tx *sql.Tx, electionID uuid.UUID, emails []string) (int, error)
	// ExportRows returns the registered-voter export joined with elections
	// and accounts, ordered by election then email.
	ExportRows(ctx context.Context) ([]ExportRow, error)
}

// ExportRow is one line of the registered-voter CSV export
type ExportRow struct {
	ElectionID    uuid.UUID
	ElectionTitle string
	Name          string
	Email         string
	DateOfBirth   string
}
