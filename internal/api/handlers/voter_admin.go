package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"ballotbox/internal/auth"
	"ballotbox/internal/face"
	"ballotbox/internal/importer"
	"ballotbox/internal/models"
	"ballotbox/internal/registration"
	"ballotbox/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VoterAdminHandler handles the admin voter-management endpoints
type VoterAdminHandler struct {
	registration *registration.Service
	importer     *importer.Service
	auditRepo    repository.AuditLogRepository
}

// NewVoterAdminHandler creates a new voter administration handler
func NewVoterAdminHandler(
	registrationService *registration.Service,
	importerService *importer.Service,
	auditRepo repository.AuditLogRepository,
) *VoterAdminHandler {
	return &VoterAdminHandler{
		registration: registrationService,
		importer:     importerService,
		auditRepo:    auditRepo,
	}
}

// RegisterVoter godoc
// @Summary Register a voter
// @Description Create a voter account for an election, store the face image and mail the credentials
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.RegisterVoterRequest true "Voter details with base64 face image"
// @Success 201 {object} models.SuccessResponse{data=models.RegisterVoterData} "Voter registered"
// @Failure 400 {object} models.ErrorResponse "Invalid request format, underage voter, or bad face image"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 404 {object} models.ErrorResponse "Election not found"
// @Failure 409 {object} models.ErrorResponse "Email already registered"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /admin/register-voter [post]
func (h *VoterAdminHandler) RegisterVoter(c *gin.Context) {
	var req models.RegisterVoterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		return
	}

	admin := auth.GetUserFromContext(c)
	if admin == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "authentication required"})
		return
	}

	data, err := h.registration.RegisterVoter(c.Request.Context(), admin.ID, &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			c.JSON(http.StatusConflict, models.ErrorResponse{Message: "email already registered"})
		case errors.Is(err, repository.ErrElectionNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "election not found"})
		case errors.Is(err, registration.ErrElectionClosed):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "election is closed"})
		case errors.Is(err, face.ErrInvalidImage):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid face image"})
		default:
			log.Printf("Failed to register voter: %v", err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to register voter"})
		}
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Success: true,
		Message: "voter registered",
		Data:    data,
	})
}

// DeleteVoter godoc
// @Summary Delete a voter
// @Description Remove a voter account with its votes, eligibility entries, reset tokens and face image
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.DeleteVoterRequest true "Voter to delete"
// @Success 200 {object} models.SuccessResponse{data=models.DeleteVotersData} "Voter deleted"
// @Failure 400 {object} models.ErrorResponse "Invalid request or attempt to delete an admin"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 404 {object} models.ErrorResponse "Voter not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /admin/delete-voter [post]
func (h *VoterAdminHandler) DeleteVoter(c *gin.Context) {
	var req models.DeleteVoterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		return
	}

	admin := auth.GetUserFromContext(c)
	if admin == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "authentication required"})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid user id"})
		return
	}

	data, err := h.registration.DeleteVoter(c.Request.Context(), admin.ID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "voter not found"})
		case errors.Is(err, repository.ErrAdminDelete):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "admin accounts cannot be deleted"})
		default:
			log.Printf("Failed to delete voter: %v", err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to delete voter"})
		}
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "voter deleted",
		Data:    data,
	})
}

// DeleteAllVoters godoc
// @Summary Delete every voter
// @Description Remove all voter accounts. Requires an explicit confirm flag.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.DeleteAllVotersRequest true "Confirmation"
// @Success 200 {object} models.SuccessResponse{data=models.DeleteVotersData} "Voters deleted"
// @Failure 400 {object} models.ErrorResponse "Confirmation missing"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /admin/delete-all-voters [post]
func (h *VoterAdminHandler) DeleteAllVoters(c *gin.Context) {
	var req models.DeleteAllVotersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		return
	}

	if !req.Confirm {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "confirmation required to delete all voters"})
		return
	}

	admin := auth.GetUserFromContext(c)
	if admin == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "authentication required"})
		return
	}

	data, err := h.registration.DeleteAllVoters(c.Request.Context(), admin.ID)
	if err != nil {
		log.Printf("Failed to delete voters: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to delete voters"})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "all voters deleted",
		Data:    data,
	})
}

// ExportVotersCSV godoc
// @Summary Export registered voters
// @Description Download all registered voters across elections as CSV
// @Tags admin
// @Produce text/csv
// @Success 200 {string} string "CSV export"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /admin/export-voters-csv [get]
func (h *VoterAdminHandler) ExportVotersCSV(c *gin.Context) {
	filename := fmt.Sprintf("registered_voters_%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.registration.ExportCSV(c.Request.Context(), c.Writer); err != nil {
		log.Printf("Failed to export voters: %v", err)
		c.Status(http.StatusInternalServerError)
	}
}

// ProcessVoterList godoc
// @Summary Import an eligible-voter list
// @Description Upload a CSV or xlsx list of eligible voters for an election. With replace_existing, entries absent from the upload are deactivated unless they already registered.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param election_id formData string true "Election ID"
// @Param replace_existing formData bool false "Deactivate entries missing from the upload"
// @Param file formData file true "CSV or xlsx file with name and email columns"
// @Success 200 {object} models.SuccessResponse{data=importer.Report} "Import report"
// @Failure 400 {object} models.ErrorResponse "Missing file or malformed CSV"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 404 {object} models.ErrorResponse "Election not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /admin/process-voter-list [post]
func (h *VoterAdminHandler) ProcessVoterList(c *gin.Context) {
	admin := auth.GetUserFromContext(c)
	if admin == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "authentication required"})
		return
	}

	electionID, err := uuid.Parse(c.PostForm("election_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid election id"})
		return
	}
	replaceExisting := c.PostForm("replace_existing") == "true"

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "voter list file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to read voter list"})
		return
	}
	defer func() { _ = file.Close() }()

	report, err := h.importer.Import(c.Request.Context(), electionID, fileHeader.Filename, file, replaceExisting)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrElectionNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "election not found"})
		default:
			log.Printf("Failed to import voter list: %v", err)
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		}
		return
	}

	auditLog := &models.CreateAuditLogRequest{
		UserID:     &admin.ID,
		Action:     models.AuditActionImport,
		EntityType: "election",
		EntityID:   electionID.String(),
		Description: fmt.Sprintf("Imported voter list: %d inserted, %d updated, %d skipped, %d deactivated",
			report.Inserted, report.Updated, report.Skipped, report.Deactivated),
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
	if err := h.auditRepo.Create(c.Request.Context(), auditLog); err != nil {
		log.Printf("Failed to create audit log: %v", err)
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "voter list processed",
		Data:    report,
	})
}
