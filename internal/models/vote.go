package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote represents a cast vote. LedgerHash and LedgerConfirmed track the
// external ledger record; a committed vote with LedgerConfirmed=false is
// picked up by the reconciliation job.
type Vote struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	ElectionID      uuid.UUID `json:"election_id"`
	CandidateID     uuid.UUID `json:"candidate_id"`
	LedgerHash      *string   `json:"ledger_hash,omitempty"`
	LedgerConfirmed bool      `json:"ledger_confirmed"`
	CreatedAt       time.Time `json:"created_at"`
}

// CastVoteRequest represents the request to cast a vote
type CastVoteRequest struct {
	ElectionID  uuid.UUID `json:"election_id" binding:"required"`
	CandidateID uuid.UUID `json:"candidate_id" binding:"required"`
}

// VoteStatusResponse reports whether the caller has voted in an election
type VoteStatusResponse struct {
	ElectionID uuid.UUID `json:"election_id"`
	HasVoted   bool      `json:"has_voted"`
	Vote       *Vote     `json:"vote,omitempty"`
}
