package postgres_test

import (
	"ballotbox/internal/models"
	"ballotbox/internal/repository"
	"ballotbox/internal/testutil"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestElectionRepository_GetByIDForShare(t *testing.T) {
	tc := testutil.NewTestContext(t)
	election := tc.CreateTestElection("Locked Election", models.ElectionActive)

	tx, err := tc.DB.Begin()
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	found, err := tc.ElectionRepo.GetByIDForShare(context.Background(), tx, election.ID)
	require.NoError(t, err)
	require.Equal(t, election.ID, found.ID)
	require.Equal(t, models.ElectionActive, found.Status)

	_, err = tc.ElectionRepo.GetByIDForShare(context.Background(), tx, uuid.New())
	require.ErrorIs(t, err, repository.ErrElectionNotFound)
}
