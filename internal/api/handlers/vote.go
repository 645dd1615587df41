package handlers

import (
	"errors"
	"net/http"

	"ballotbox/internal/auth"
	"ballotbox/internal/models"
	"ballotbox/internal/repository"
	"ballotbox/internal/voting"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VoteHandler handles vote casting and status requests
type VoteHandler struct {
	voting *voting.Service
}

// NewVoteHandler creates a new vote handler
func NewVoteHandler(votingService *voting.Service) *VoteHandler {
	return &VoteHandler{voting: votingService}
}

// Cast godoc
// @Summary Cast a vote
// @Description Record the caller's vote for a candidate in an open election. The vote is written to the external ledger in the same step; a ledger failure leaves no local vote behind.
// @Tags votes
// @Accept json
// @Produce json
// @Param request body models.CastVoteRequest true "Election and candidate"
// @Success 200 {object} models.CastVoteResponse "Vote recorded with ledger receipt"
// @Failure 400 {object} models.ErrorResponse "Invalid request, inactive election, or unknown candidate"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 409 {object} models.ErrorResponse "Vote already cast"
// @Failure 502 {object} models.ErrorResponse "Ledger unavailable"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /votes [post]
func (h *VoteHandler) Cast(c *gin.Context) {
	var req models.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		return
	}

	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "authentication required"})
		return
	}

	resp, err := h.voting.Cast(c.Request.Context(), userID, &req)
	if err != nil {
		var vErr *voting.Error
		if errors.As(err, &vErr) {
			c.JSON(statusForCode(vErr.Code), models.ErrorResponse{
				Message: vErr.Message,
				Code:    string(vErr.Code),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Message: "failed to cast vote",
			Code:    string(voting.CodeInternalError),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func statusForCode(code voting.Code) int {
	switch code {
	case voting.CodeAlreadyVoted:
		return http.StatusConflict
	case voting.CodeInactiveElection, voting.CodeInvalidCandidate:
		return http.StatusBadRequest
	case voting.CodeBlockchainError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Status godoc
// @Summary Vote status
// @Description Report whether the caller has voted in an election
// @Tags votes
// @Produce json
// @Param election_id path string true "Election ID"
// @Success 200 {object} models.VoteStatusResponse
// @Failure 400 {object} models.ErrorResponse "Invalid election id"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 404 {object} models.ErrorResponse "Election not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /votes/status/{election_id} [get]
func (h *VoteHandler) Status(c *gin.Context) {
	electionID, err := uuid.Parse(c.Param("election_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid election id"})
		return
	}

	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "authentication required"})
		return
	}

	status, err := h.voting.Status(c.Request.Context(), userID, electionID)
	if err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "election not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to get vote status"})
		return
	}

	c.JSON(http.StatusOK, status)
}
