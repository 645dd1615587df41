package postgres

import (
	"context"
	"database/sql"
	"time"

	"ballotbox/internal/models"
	"ballotbox/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type eligibleVoterRepository struct {
	repository.BaseRepository
}

// NewEligibleVoterRepository creates a new PostgreSQL eligible-voter repository
func NewEligibleVoterRepository(db *sql.DB) repository.EligibleVoterRepository {
	return &eligibleVoterRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *eligibleVoterRepository) GetByElectionAndEmail(ctx context.Context, electionID uuid.UUID, email string) (*models.EligibleVoter, error) {
	query := `
		SELECT id, election_id, email, name, active, has_registered, created_at, updated_at
		FROM eligible_voters
		WHERE election_id = $1 AND email = $2`

	ev := &models.EligibleVoter{}
	err := r.DB().QueryRowContext(ctx, query, electionID, NormalizeEmail(email)).Scan(
		&ev.ID,
		&ev.ElectionID,
		&ev.Email,
		&ev.Name,
		&ev.Active,
		&ev.HasRegistered,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func (r *eligibleVoterRepository) ListByElection(ctx context.Context, electionID uuid.UUID) ([]models.EligibleVoter, error) {
	query := `
		SELECT id, election_id, email, name, active, has_registered, created_at, updated_at
		FROM eligible_voters
		WHERE election_id = $1
		ORDER BY email ASC`

	rows, err := r.DB().QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.EligibleVoter
	for rows.Next() {
		var ev models.EligibleVoter
		err := rows.Scan(
			&ev.ID,
			&ev.ElectionID,
			&ev.Email,
			&ev.Name,
			&ev.Active,
			&ev.HasRegistered,
			&ev.CreatedAt,
			&ev.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ev)
	}

	return entries, rows.Err()
}

func (r *eligibleVoterRepository) MarkRegistered(ctx context.Context, tx *sql.Tx, electionID uuid.UUID, email, name string) error {
	query := `
		INSERT INTO eligible_voters (id, election_id, email, name, active, has_registered, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, TRUE, $5, $5)
		ON CONFLICT (election_id, email) DO UPDATE
		SET name = EXCLUDED.name,
		    active = TRUE,
		    has_registered = TRUE,
		    updated_at = EXCLUDED.updated_at`

	_, err := tx.ExecContext(ctx, query, uuid.New(), electionID, NormalizeEmail(email), name, time.Now())
	return err
}

func (r *eligibleVoterRepository) UpsertImport(ctx context.Context, tx *sql.Tx, entry *models.EligibleVoter) (repository.UpsertOutcome, error) {
	// Registered entries keep their flags; only the name is refreshed.
	// The WHERE clause drops no-op updates, so a conflicting row with
	// nothing to change yields no row here and counts as skipped.
	// xmax = 0 distinguishes a fresh insert from a conflict-update.
	query := `
		INSERT INTO eligible_voters (id, election_id, email, name, active, has_registered, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, FALSE, $5, $5)
		ON CONFLICT (election_id, email) DO UPDATE
		SET name = EXCLUDED.name,
		    active = CASE WHEN eligible_voters.has_registered THEN eligible_voters.active ELSE TRUE END,
		    updated_at = EXCLUDED.updated_at
		WHERE eligible_voters.name IS DISTINCT FROM EXCLUDED.name
		   OR (NOT eligible_voters.has_registered AND NOT eligible_voters.active)
		RETURNING (xmax = 0) AS inserted`

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.Email = NormalizeEmail(entry.Email)

	var inserted bool
	err := tx.QueryRowContext(ctx, query,
		entry.ID,
		entry.ElectionID,
		entry.Email,
		entry.Name,
		time.Now(),
	).Scan(&inserted)
	if err == sql.ErrNoRows {
		return repository.UpsertSkipped, nil
	}
	if err != nil {
		return repository.UpsertSkipped, err
	}
	if inserted {
		return repository.UpsertInserted, nil
	}
	return repository.UpsertUpdated, nil
}

func (r *eligibleVoterRepository) DeactivateMissing(ctx context.Context, tx *sql.Tx, electionID uuid.UUID, emails []string) (int, error) {
	normalized := make([]string, len(emails))
	for i, e := range emails {
		normalized[i] = NormalizeEmail(e)
	}

	query := `
		UPDATE eligible_voters
		SET active = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE election_id = $1
		  AND has_registered = FALSE
		  AND NOT (email = ANY($2))`

	result, err := tx.ExecContext(ctx, query, electionID, pq.Array(normalized))
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func (r *eligibleVoterRepository) ExportRows(ctx context.Context) ([]repository.ExportRow, error) {
	query := `
		SELECT ev.election_id, e.title, u.name, u.email,
		       COALESCE(TO_CHAR(u.date_of_birth, 'YYYY-MM-DD'), '')
		FROM eligible_voters ev
		JOIN elections e ON e.id = ev.election_id
		JOIN users u ON LOWER(u.email) = ev.email
		WHERE ev.has_registered = TRUE
		ORDER BY e.title ASC, u.email ASC`

	rows, err := r.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.ExportRow
	for rows.Next() {
		var row repository.ExportRow
		err := rows.Scan(&row.ElectionID, &row.ElectionTitle, &row.Name, &row.Email, &row.DateOfBirth)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}

	return out, rows.Err()
}
