package handlers

import (
	"errors"
	"net/http"

	"ballotbox/internal/models"
	"ballotbox/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CandidateHandler handles candidate management requests
type CandidateHandler struct {
	candidateRepo repository.CandidateRepository
}

// NewCandidateHandler creates a new candidate handler
func NewCandidateHandler(candidateRepo repository.CandidateRepository) *CandidateHandler {
	return &CandidateHandler{candidateRepo: candidateRepo}
}

// Create godoc
// @Summary Add candidate
// @Description Add a candidate to an election
// @Tags candidates
// @Accept json
// @Produce json
// @Param id path string true "Election ID"
// @Param request body models.CreateCandidateRequest true "Candidate details"
// @Success 201 {object} models.Candidate
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 404 {object} models.ErrorResponse "Election not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /elections/{id}/candidates [post]
func (h *CandidateHandler) Create(c *gin.Context) {
	electionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid election id"})
		return
	}

	var req models.CreateCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		return
	}

	candidate := &models.Candidate{
		ElectionID: electionID,
		Name:       req.Name,
		Party:      req.Party,
	}

	if err := h.candidateRepo.Create(c.Request.Context(), candidate); err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "election not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to create candidate"})
		return
	}

	c.JSON(http.StatusCreated, candidate)
}

// List godoc
// @Summary List candidates
// @Description List the candidates standing in an election
// @Tags candidates
// @Produce json
// @Param id path string true "Election ID"
// @Success 200 {array} models.Candidate
// @Failure 400 {object} models.ErrorResponse "Invalid election id"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /elections/{id}/candidates [get]
func (h *CandidateHandler) List(c *gin.Context) {
	electionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid election id"})
		return
	}

	candidates, err := h.candidateRepo.ListByElection(c.Request.Context(), electionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to list candidates"})
		return
	}

	c.JSON(http.StatusOK, candidates)
}

// Delete godoc
// @Summary Remove candidate
// @Description Remove a candidate from an election
// @Tags candidates
// @Produce json
// @Param id path string true "Election ID"
// @Param candidate_id path string true "Candidate ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse "Invalid candidate id"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 404 {object} models.ErrorResponse "Candidate not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /elections/{id}/candidates/{candidate_id} [delete]
func (h *CandidateHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("candidate_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid candidate id"})
		return
	}

	if err := h.candidateRepo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrCandidateNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "candidate not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to delete candidate"})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "candidate deleted"})
}
