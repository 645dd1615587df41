package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ballotbox/internal/models"
	"ballotbox/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ElectionHandler handles election management requests
type ElectionHandler struct {
	electionRepo repository.ElectionRepository
	voteRepo     repository.VoteRepository
}

// NewElectionHandler creates a new election handler
func NewElectionHandler(electionRepo repository.ElectionRepository, voteRepo repository.VoteRepository) *ElectionHandler {
	return &ElectionHandler{electionRepo: electionRepo, voteRepo: voteRepo}
}

// Create godoc
// @Summary Create election
// @Description Create a new election in draft status
// @Tags elections
// @Accept json
// @Produce json
// @Param request body models.CreateElectionRequest true "Election details"
// @Success 201 {object} models.Election
// @Failure 400 {object} models.ErrorResponse "Invalid request or end date before start date"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /elections [post]
func (h *ElectionHandler) Create(c *gin.Context) {
	var req models.CreateElectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		return
	}

	if !req.EndDate.After(req.StartDate) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "end date must be after start date"})
		return
	}

	election := &models.Election{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      models.ElectionDraft,
	}

	if err := h.electionRepo.Create(c.Request.Context(), election); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to create election"})
		return
	}

	c.JSON(http.StatusCreated, election)
}

// Get godoc
// @Summary Get election
// @Description Get an election by ID
// @Tags elections
// @Produce json
// @Param id path string true "Election ID"
// @Success 200 {object} models.Election
// @Failure 400 {object} models.ErrorResponse "Invalid election id"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 404 {object} models.ErrorResponse "Election not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /elections/{id} [get]
func (h *ElectionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid election id"})
		return
	}

	election, err := h.electionRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "election not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to get election"})
		return
	}

	c.JSON(http.StatusOK, election)
}

// List godoc
// @Summary List elections
// @Description List elections, optionally filtered by status
// @Tags elections
// @Produce json
// @Param status query string false "Filter by status" Enums(draft, active, closed)
// @Param limit query int false "Maximum number of results"
// @Param offset query int false "Number of results to skip"
// @Success 200 {array} models.Election
// @Failure 400 {object} models.ErrorResponse "Invalid filter"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /elections [get]
func (h *ElectionHandler) List(c *gin.Context) {
	filter := repository.ElectionFilter{}

	if status := c.Query("status"); status != "" {
		s := models.ElectionStatus(status)
		switch s {
		case models.ElectionDraft, models.ElectionActive, models.ElectionClosed:
			filter.Status = &s
		default:
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid status filter"})
			return
		}
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid limit"})
			return
		}
		filter.Limit = &limit
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid offset"})
			return
		}
		filter.Offset = &offset
	}

	elections, err := h.electionRepo.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to list elections"})
		return
	}

	c.JSON(http.StatusOK, elections)
}

// Update godoc
// @Summary Update election
// @Description Update an election's details or status
// @Tags elections
// @Accept json
// @Produce json
// @Param id path string true "Election ID"
// @Param request body models.UpdateElectionRequest true "Fields to update"
// @Success 200 {object} models.Election
// @Failure 400 {object} models.ErrorResponse "Invalid request or date range"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 404 {object} models.ErrorResponse "Election not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /elections/{id} [put]
func (h *ElectionHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid election id"})
		return
	}

	var req models.UpdateElectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		return
	}

	election, err := h.electionRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "election not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to get election"})
		return
	}

	if req.Title != nil {
		election.Title = *req.Title
	}
	if req.Description != nil {
		election.Description = *req.Description
	}
	if req.StartDate != nil {
		election.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		election.EndDate = *req.EndDate
	}
	if req.Status != nil {
		election.Status = *req.Status
	}

	if !election.EndDate.After(election.StartDate) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "end date must be after start date"})
		return
	}

	if err := h.electionRepo.Update(c.Request.Context(), election); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to update election"})
		return
	}

	c.JSON(http.StatusOK, election)
}

// Delete godoc
// @Summary Delete election
// @Description Delete an election and everything tied to it
// @Tags elections
// @Produce json
// @Param id path string true "Election ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse "Invalid election id"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 404 {object} models.ErrorResponse "Election not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /elections/{id} [delete]
func (h *ElectionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid election id"})
		return
	}

	if err := h.electionRepo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "election not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to delete election"})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "election deleted"})
}

// electionResults is the per-election vote count payload
type electionResults struct {
	ElectionID uuid.UUID `json:"election_id"`
	Status     models.ElectionStatus `json:"status"`
	TotalVotes int       `json:"total_votes"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

// Results godoc
// @Summary Election results
// @Description Get the total vote count for a closed election
// @Tags elections
// @Produce json
// @Param id path string true "Election ID"
// @Success 200 {object} handlers.electionResults
// @Failure 400 {object} models.ErrorResponse "Election still open"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 404 {object} models.ErrorResponse "Election not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /elections/{id}/results [get]
func (h *ElectionHandler) Results(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid election id"})
		return
	}

	election, err := h.electionRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "election not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to get election"})
		return
	}

	if election.Status != models.ElectionClosed {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "results are only available for closed elections"})
		return
	}

	total, err := h.voteRepo.CountByElection(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to count votes"})
		return
	}

	c.JSON(http.StatusOK, electionResults{
		ElectionID: election.ID,
		Status:     election.Status,
		TotalVotes: total,
		ClosedAt:   &election.UpdatedAt,
	})
}
