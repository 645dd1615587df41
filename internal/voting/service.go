package voting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"ballotbox/internal/config"
	"ballotbox/internal/ledger"
	"ballotbox/internal/models"
	"ballotbox/internal/repository"

	"github.com/google/uuid"
)

// Service casts votes. A cast is one local transaction that also submits
// the vote to the external ledger: if the ledger rejects it the transaction
// rolls back, so no vote is ever committed locally without a ledger record.
// The converse gap (ledger accepted, local commit failed) is handled by the
// reconciliation job, never by mutating votes here.
type Service struct {
	base       repository.BaseRepository
	users      repository.UserRepository
	elections  repository.ElectionRepository
	candidates repository.CandidateRepository
	votes      repository.VoteRepository
	auditLogs  repository.AuditLogRepository
	ledger     ledger.Client
	ledgerCfg  *config.LedgerConfig
}

// NewService creates a new voting service
func NewService(
	db *sql.DB,
	users repository.UserRepository,
	elections repository.ElectionRepository,
	candidates repository.CandidateRepository,
	votes repository.VoteRepository,
	auditLogs repository.AuditLogRepository,
	ledgerClient ledger.Client,
	ledgerCfg *config.LedgerConfig,
) *Service {
	return &Service{
		base:       repository.NewBaseRepository(db),
		users:      users,
		elections:  elections,
		candidates: candidates,
		votes:      votes,
		auditLogs:  auditLogs,
		ledger:     ledgerClient,
		ledgerCfg:  ledgerCfg,
	}
}

// Cast records a vote for the user. Returns a *Error carrying a rejection
// code when the vote is refused.
func (s *Service) Cast(ctx context.Context, userID uuid.UUID, req *models.CastVoteRequest) (*models.CastVoteResponse, error) {
	var receipt *ledger.Receipt
	voteID := uuid.New()

	err := s.base.Transaction(ctx, func(tx *sql.Tx) error {
		// Lock any existing vote row first; the unique (user, election)
		// index serializes concurrent first votes.
		_, err := s.votes.GetForUpdate(ctx, tx, userID, req.ElectionID)
		if err == nil {
			return rejection(CodeAlreadyVoted, "a vote has already been cast in this election")
		}
		if !errors.Is(err, repository.ErrVoteNotFound) {
			return rejection(CodeInternalError, "failed to check existing vote")
		}

		// The share lock keeps an admin status or date change from
		// committing between this check and the vote insert.
		election, err := s.elections.GetByIDForShare(ctx, tx, req.ElectionID)
		if err != nil {
			if errors.Is(err, repository.ErrElectionNotFound) {
				return rejection(CodeInactiveElection, "election not found")
			}
			return rejection(CodeInternalError, "failed to load election")
		}
		if !election.IsOpenAt(time.Now()) {
			return rejection(CodeInactiveElection, "election is not open for voting")
		}

		ok, err := s.candidates.BelongsToElection(ctx, tx, req.CandidateID, req.ElectionID)
		if err != nil {
			return rejection(CodeInternalError, "failed to verify candidate")
		}
		if !ok {
			return rejection(CodeInvalidCandidate, "candidate does not stand in this election")
		}

		vote := &models.Vote{
			ID:          voteID,
			UserID:      userID,
			ElectionID:  req.ElectionID,
			CandidateID: req.CandidateID,
		}
		if err := s.votes.Create(ctx, tx, vote); err != nil {
			if errors.Is(err, repository.ErrAlreadyVoted) {
				return rejection(CodeAlreadyVoted, "a vote has already been cast in this election")
			}
			return rejection(CodeInternalError, "failed to record vote")
		}
		if err := s.users.SetHasVoted(ctx, tx, userID); err != nil {
			return rejection(CodeInternalError, "failed to update voter state")
		}

		// Ledger submit runs inside the transaction on purpose: a ledger
		// rejection rolls the local vote back.
		receipt, err = s.ledger.Submit(ctx, voteID, req.ElectionID, req.CandidateID)
		if err != nil {
			log.Printf("Ledger submit failed for vote %s: %v", voteID, err)
			return rejection(CodeBlockchainError, "vote could not be recorded on the ledger")
		}

		return s.votes.SetLedgerResult(ctx, tx, voteID, receipt.TxHash, receipt.Confirmed)
	})
	if err != nil {
		var vErr *Error
		if errors.As(err, &vErr) {
			return nil, vErr
		}
		return nil, rejection(CodeInternalError, "failed to cast vote")
	}

	s.logVote(ctx, userID, voteID, req.ElectionID)

	return &models.CastVoteResponse{
		Success:           true,
		TransactionHash:   receipt.TxHash,
		BlockchainAddress: s.ledgerCfg.ContractAddress,
		Message:           "vote recorded",
	}, nil
}

// Status reports whether the user has voted in the election
func (s *Service) Status(ctx context.Context, userID, electionID uuid.UUID) (*models.VoteStatusResponse, error) {
	if _, err := s.elections.GetByID(ctx, electionID); err != nil {
		return nil, err
	}

	vote, err := s.votes.GetByUserAndElection(ctx, userID, electionID)
	if err != nil {
		if errors.Is(err, repository.ErrVoteNotFound) {
			return &models.VoteStatusResponse{ElectionID: electionID, HasVoted: false}, nil
		}
		return nil, err
	}

	return &models.VoteStatusResponse{ElectionID: electionID, HasVoted: true, Vote: vote}, nil
}

func (s *Service) logVote(ctx context.Context, userID, voteID, electionID uuid.UUID) {
	err := s.auditLogs.Create(ctx, &models.CreateAuditLogRequest{
		UserID:      &userID,
		Action:      models.AuditActionVoteCast,
		EntityType:  "vote",
		EntityID:    voteID.String(),
		Description: fmt.Sprintf("Vote cast in election %s", electionID),
	})
	if err != nil {
		log.Printf("Failed to write audit log entry: %v", err)
	}
}
