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

func TestVoteRepository_Create(t *testing.T) {
	tc := testutil.NewTestContext(t)
	voter := tc.CreateTestVoter("Vote Caster", "caster@example.com", "password123")
	election := tc.CreateTestElection("General Election", models.ElectionActive)
	candidate := tc.CreateTestCandidate(election.ID, "Candidate A", "Party A")

	tx, err := tc.DB.Begin()
	require.NoError(t, err)

	vote := &models.Vote{
		UserID:      voter.ID,
		ElectionID:  election.ID,
		CandidateID: candidate.ID,
	}
	err = tc.VoteRepo.Create(context.Background(), tx, vote)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, vote.ID)
	require.False(t, vote.CreatedAt.IsZero())

	// A second vote by the same voter in the same election violates the
	// unique index
	duplicate := &models.Vote{
		UserID:      voter.ID,
		ElectionID:  election.ID,
		CandidateID: candidate.ID,
	}
	err = tc.VoteRepo.Create(context.Background(), tx, duplicate)
	require.ErrorIs(t, err, repository.ErrAlreadyVoted)

	require.NoError(t, tx.Rollback())
}

func TestVoteRepository_GetForUpdate(t *testing.T) {
	tc := testutil.NewTestContext(t)
	voter := tc.CreateTestVoter("Locked Voter", "locked@example.com", "password123")
	election := tc.CreateTestElection("Lock Election", models.ElectionActive)
	candidate := tc.CreateTestCandidate(election.ID, "Candidate A", "Party A")

	tx, err := tc.DB.Begin()
	require.NoError(t, err)
	defer tx.Rollback()

	// No vote yet
	_, err = tc.VoteRepo.GetForUpdate(context.Background(), tx, voter.ID, election.ID)
	require.ErrorIs(t, err, repository.ErrVoteNotFound)

	vote := &models.Vote{UserID: voter.ID, ElectionID: election.ID, CandidateID: candidate.ID}
	require.NoError(t, tc.VoteRepo.Create(context.Background(), tx, vote))

	locked, err := tc.VoteRepo.GetForUpdate(context.Background(), tx, voter.ID, election.ID)
	require.NoError(t, err)
	require.Equal(t, vote.ID, locked.ID)
}

func TestVoteRepository_SetLedgerResult(t *testing.T) {
	tc := testutil.NewTestContext(t)
	voter := tc.CreateTestVoter("Ledger Voter", "ledger@example.com", "password123")
	election := tc.CreateTestElection("Ledger Election", models.ElectionActive)
	candidate := tc.CreateTestCandidate(election.ID, "Candidate A", "Party A")

	tx, err := tc.DB.Begin()
	require.NoError(t, err)
	vote := &models.Vote{UserID: voter.ID, ElectionID: election.ID, CandidateID: candidate.ID}
	require.NoError(t, tc.VoteRepo.Create(context.Background(), tx, vote))
	require.NoError(t, tc.VoteRepo.SetLedgerResult(context.Background(), tx, vote.ID, "0xabc123", false))
	require.NoError(t, tx.Commit())

	fetched, err := tc.VoteRepo.GetByUserAndElection(context.Background(), voter.ID, election.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.LedgerHash)
	require.Equal(t, "0xabc123", *fetched.LedgerHash)
	require.False(t, fetched.LedgerConfirmed)
}

func TestVoteRepository_ListUnconfirmed(t *testing.T) {
	tc := testutil.NewTestContext(t)
	election := tc.CreateTestElection("Reconcile Election", models.ElectionActive)
	candidate := tc.CreateTestCandidate(election.ID, "Candidate A", "Party A")

	confirmed := tc.CreateTestVoter("Confirmed", "confirmed@example.com", "password123")
	pending := tc.CreateTestVoter("Pending", "pending@example.com", "password123")

	tx, err := tc.DB.Begin()
	require.NoError(t, err)

	confirmedVote := &models.Vote{UserID: confirmed.ID, ElectionID: election.ID, CandidateID: candidate.ID}
	require.NoError(t, tc.VoteRepo.Create(context.Background(), tx, confirmedVote))
	require.NoError(t, tc.VoteRepo.SetLedgerResult(context.Background(), tx, confirmedVote.ID, "0xconfirmed", true))

	pendingVote := &models.Vote{UserID: pending.ID, ElectionID: election.ID, CandidateID: candidate.ID}
	require.NoError(t, tc.VoteRepo.Create(context.Background(), tx, pendingVote))
	require.NoError(t, tc.VoteRepo.SetLedgerResult(context.Background(), tx, pendingVote.ID, "0xpending", false))

	require.NoError(t, tx.Commit())

	unconfirmed, err := tc.VoteRepo.ListUnconfirmed(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, unconfirmed, 1)
	require.Equal(t, pendingVote.ID, unconfirmed[0].ID)
}

func TestVoteRepository_MarkConfirmed(t *testing.T) {
	tc := testutil.NewTestContext(t)
	voter := tc.CreateTestVoter("Confirm Voter", "confirm@example.com", "password123")
	election := tc.CreateTestElection("Confirm Election", models.ElectionActive)
	candidate := tc.CreateTestCandidate(election.ID, "Candidate A", "Party A")

	tx, err := tc.DB.Begin()
	require.NoError(t, err)
	vote := &models.Vote{UserID: voter.ID, ElectionID: election.ID, CandidateID: candidate.ID}
	require.NoError(t, tc.VoteRepo.Create(context.Background(), tx, vote))
	require.NoError(t, tc.VoteRepo.SetLedgerResult(context.Background(), tx, vote.ID, "0xdeadbeef", false))
	require.NoError(t, tx.Commit())

	require.NoError(t, tc.VoteRepo.MarkConfirmed(context.Background(), vote.ID, "0xdeadbeef"))

	fetched, err := tc.VoteRepo.GetByUserAndElection(context.Background(), voter.ID, election.ID)
	require.NoError(t, err)
	require.True(t, fetched.LedgerConfirmed)

	remaining, err := tc.VoteRepo.ListUnconfirmed(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestVoteRepository_CountByElection(t *testing.T) {
	tc := testutil.NewTestContext(t)
	election := tc.CreateTestElection("Count Election", models.ElectionActive)
	other := tc.CreateTestElection("Other Election", models.ElectionActive)
	candidate := tc.CreateTestCandidate(election.ID, "Candidate A", "Party A")
	otherCandidate := tc.CreateTestCandidate(other.ID, "Candidate B", "Party B")

	voters := []*models.User{
		tc.CreateTestVoter("Count One", "count1@example.com", "password123"),
		tc.CreateTestVoter("Count Two", "count2@example.com", "password123"),
	}
	outsider := tc.CreateTestVoter("Count Three", "count3@example.com", "password123")

	tx, err := tc.DB.Begin()
	require.NoError(t, err)
	for _, v := range voters {
		vote := &models.Vote{UserID: v.ID, ElectionID: election.ID, CandidateID: candidate.ID}
		require.NoError(t, tc.VoteRepo.Create(context.Background(), tx, vote))
	}
	outsiderVote := &models.Vote{UserID: outsider.ID, ElectionID: other.ID, CandidateID: otherCandidate.ID}
	require.NoError(t, tc.VoteRepo.Create(context.Background(), tx, outsiderVote))
	require.NoError(t, tx.Commit())

	count, err := tc.VoteRepo.CountByElection(context.Background(), election.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
