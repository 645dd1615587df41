// Package handlers contains the HTTP handlers for the API
package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"ballotbox/internal/auth"
	"ballotbox/internal/config"
	"ballotbox/internal/email"
	"ballotbox/internal/face"
	"ballotbox/internal/models"
	"ballotbox/internal/repository"
	"ballotbox/internal/repository/postgres"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash keeps the response time for unknown voter IDs in line with a
// real bcrypt comparison so the two cases cannot be told apart
var dummyHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("dummy-timing-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// AuthHandler handles HTTP requests for the multi-stage voter login flow
type AuthHandler struct {
	base         repository.BaseRepository
	userRepo     repository.UserRepository
	resetRepo    repository.PasswordResetRepository
	auditRepo    repository.AuditLogRepository
	authService  *auth.Service
	emailService email.Sender
	faceMatcher  face.Matcher
	config       *config.Config
}

// NewAuthHandler creates a new authentication handler with the given dependencies
func NewAuthHandler(
	db *sql.DB,
	userRepo repository.UserRepository,
	resetRepo repository.PasswordResetRepository,
	auditRepo repository.AuditLogRepository,
	authService *auth.Service,
	emailService email.Sender,
	faceMatcher face.Matcher,
	config *config.Config,
) *AuthHandler {
	return &AuthHandler{
		base:         repository.NewBaseRepository(db),
		userRepo:     userRepo,
		resetRepo:    resetRepo,
		auditRepo:    auditRepo,
		authService:  authService,
		emailService: emailService,
		faceMatcher:  faceMatcher,
		config:       config,
	}
}

// loginOutcome carries the response decided inside the login transaction
type loginOutcome struct {
	status int
	body   interface{}
}

// Login godoc
// @Summary Voter login
// @Description Multi-stage login: password, then face verification, then a one-time code. Each stage is a new request carrying the earlier credentials plus the next factor.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials with optional face image and OTP"
// @Success 200 {object} models.LoginResponse "Stage passed or session token issued"
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 401 {object} models.LoginResponse "Invalid credentials or failed verification"
// @Failure 403 {object} models.LoginResponse "Account locked or suspended"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		return
	}

	normalizedEmail := postgres.NormalizeEmail(req.VoterID)

	var outcome *loginOutcome
	err := h.base.Transaction(c.Request.Context(), func(tx *sql.Tx) error {
		var err error
		outcome, err = h.runLogin(c, tx, normalizedEmail, &req)
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to process login"})
		return
	}

	c.JSON(outcome.status, outcome.body)
}

// runLogin walks the login stages while holding the account row lock, so
// the cumulative failed-attempt counter stays consistent under concurrent
// requests for the same voter.
func (h *AuthHandler) runLogin(c *gin.Context, tx *sql.Tx, email string, req *models.LoginRequest) (*loginOutcome, error) {
	ctx := c.Request.Context()
	now := time.Now()

	user, err := h.userRepo.GetByEmailForUpdate(ctx, tx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		// Burn a comparison so unknown IDs take as long as bad passwords,
		// and answer exactly like a first failed attempt on a known account
		// so the two cannot be told apart.
		_ = h.authService.ComparePasswords(dummyHash, req.Password)
		remaining := h.config.Auth.MaxLoginAttempts - 1
		return invalidCredentials(&remaining), nil
	}
	if err != nil {
		return nil, err
	}

	if user.AccountStatus == models.StatusSuspended {
		return &loginOutcome{http.StatusForbidden, models.LoginResponse{
			Message: "account is suspended",
		}}, nil
	}

	if user.IsLockedAt(now) {
		return lockedOutcome(user, now), nil
	}

	// Stage 1: password. The short-lived verify token issued with a forced
	// password change stands in for it, so the voter can finish the
	// remaining stages right after resetting the temporary password.
	if !h.verifyTokenValid(req.VerifyToken, user) {
		if err := h.authService.ComparePasswords(user.Password, req.Password); err != nil {
			return h.recordFailure(ctx, tx, user, now)
		}
	}

	// A correct temporary password short-circuits into a forced password
	// change before any further factor.
	if !user.PasswordChanged {
		reset, err := h.resetRepo.Create(ctx, tx, user.ID, h.config.Auth.ResetTokenTTL)
		if err != nil {
			return nil, err
		}
		verifyToken, err := h.authService.GenerateFaceVerifyToken(user)
		if err != nil {
			return nil, err
		}
		return &loginOutcome{http.StatusOK, models.LoginResponse{
			Success:                true,
			RequiresPasswordChange: true,
			ResetToken:             reset.Token,
			VerifyToken:            verifyToken,
			Message:                "password change required",
		}}, nil
	}

	// Stage 2: face verification
	if user.FaceImagePath != nil {
		if req.FaceImage == "" {
			return &loginOutcome{http.StatusOK, models.LoginResponse{
				Success:                  true,
				RequiresFaceVerification: true,
				Message:                  "face verification required",
			}}, nil
		}

		captured, _, err := face.DecodeImage(req.FaceImage)
		if err != nil {
			return h.recordFailure(ctx, tx, user, now)
		}
		match, err := h.faceMatcher.Match(ctx, *user.FaceImagePath, captured)
		if err != nil {
			log.Printf("Face matching failed for %s: %v", user.Email, err)
			return &loginOutcome{http.StatusServiceUnavailable, models.ErrorResponse{
				Message: "face verification is temporarily unavailable",
			}}, nil
		}
		if !match {
			return h.recordFailure(ctx, tx, user, now)
		}
	}

	// Stage 3: one-time code
	if user.OTPRequired {
		if req.OTP == "" {
			return h.issueOTP(ctx, tx, user, now)
		}
		if user.OTPCode == nil || user.OTPExpiresAt == nil ||
			now.After(*user.OTPExpiresAt) || *user.OTPCode != req.OTP {
			return h.recordFailure(ctx, tx, user, now)
		}
	}

	// Fully authenticated
	if err := h.userRepo.ResetLoginState(ctx, tx, user.ID, now); err != nil {
		return nil, err
	}

	token, err := h.authService.GenerateSessionToken(user)
	if err != nil {
		return nil, err
	}

	h.logLogin(c, user)

	return &loginOutcome{http.StatusOK, models.LoginResponse{
		Success: true,
		Token:   token,
		Message: "login successful",
	}}, nil
}

// recordFailure bumps the cumulative failed-attempt counter and locks the
// account once it reaches the configured maximum
func (h *AuthHandler) recordFailure(ctx context.Context, tx *sql.Tx, user *models.User, now time.Time) (*loginOutcome, error) {
	attempts := user.LoginAttempts + 1

	if attempts >= h.config.Auth.MaxLoginAttempts {
		lockedUntil := now.Add(h.config.Auth.LockoutDuration)
		if err := h.userRepo.UpdateFailedAttempts(ctx, tx, user.ID, attempts, &lockedUntil); err != nil {
			return nil, err
		}
		user.AccountLockedUntil = &lockedUntil
		return lockedOutcome(user, now), nil
	}

	if err := h.userRepo.UpdateFailedAttempts(ctx, tx, user.ID, attempts, nil); err != nil {
		return nil, err
	}

	remaining := h.config.Auth.MaxLoginAttempts - attempts
	return invalidCredentials(&remaining), nil
}

// issueOTP sends a one-time code and reports that the OTP stage is pending.
// An unexpired code is re-sent rather than replaced, so a voter retrying
// before the email arrives does not invalidate it.
func (h *AuthHandler) issueOTP(ctx context.Context, tx *sql.Tx, user *models.User, now time.Time) (*loginOutcome, error) {
	code := ""
	if user.OTPCode != nil && user.OTPExpiresAt != nil && now.Before(*user.OTPExpiresAt) {
		code = *user.OTPCode
	} else {
		generated, err := auth.GenerateOTP()
		if err != nil {
			return nil, err
		}
		expiresAt := now.Add(h.config.Auth.OTPTTL)
		if err := h.userRepo.SetOTP(ctx, tx, user.ID, generated, expiresAt); err != nil {
			return nil, err
		}
		code = generated
	}

	if err := h.emailService.SendOTP(user.Email, user.Name, code); err != nil {
		log.Printf("Failed to send OTP email to %s: %v", user.Email, err)
		return &loginOutcome{http.StatusServiceUnavailable, models.ErrorResponse{
			Message: "could not send verification code",
		}}, nil
	}

	return &loginOutcome{http.StatusOK, models.LoginResponse{
		Success:     true,
		RequiresOTP: true,
		Message:     "verification code sent",
	}}, nil
}

// verifyTokenValid reports whether token is a live face-verify token bound
// to this account
func (h *AuthHandler) verifyTokenValid(token string, user *models.User) bool {
	if token == "" {
		return false
	}
	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		return false
	}
	return claims.Scope == auth.ScopeFaceVerify && claims.UserID == user.ID.String()
}

func invalidCredentials(attemptsRemaining *int) *loginOutcome {
	return &loginOutcome{http.StatusUnauthorized, models.LoginResponse{
		Message:           "invalid credentials",
		AttemptsRemaining: attemptsRemaining,
	}}
}

func lockedOutcome(user *models.User, now time.Time) *loginOutcome {
	minutes := user.LockedMinutesRemaining(now)
	return &loginOutcome{http.StatusForbidden, models.LoginResponse{
		Message:       fmt.Sprintf("account locked, try again in %d minutes", minutes),
		LockedMinutes: &minutes,
	}}
}

func (h *AuthHandler) logLogin(c *gin.Context, user *models.User) {
	auditLog := &models.CreateAuditLogRequest{
		UserID:      &user.ID,
		Action:      models.AuditActionLogin,
		EntityType:  "user",
		EntityID:    user.ID.String(),
		Description: fmt.Sprintf("Voter %s logged in successfully", user.Email),
		IPAddress:   c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
	}
	if err := h.auditRepo.Create(c.Request.Context(), auditLog); err != nil {
		log.Printf("Failed to create audit log: %v", err)
	}
}

// ChangePassword godoc
// @Summary Change password with a reset token
// @Description Set a new password using the single-use reset token issued during first login. Returns a session token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ChangePasswordRequest true "Reset token and new password"
// @Success 200 {object} models.LoginResponse "Password changed, session token issued"
// @Failure 400 {object} models.ErrorResponse "Invalid request, mismatched passwords, or invalid/expired/used token"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
		return
	}

	if req.NewPassword != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "passwords do not match"})
		return
	}

	hashedPassword, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to process password"})
		return
	}

	// Consume the token and set the password in one transaction while the
	// token row is locked, so concurrent requests with the same token
	// serialize and only one of them gets past GetByTokenForUpdate.
	var userID uuid.UUID
	err = h.base.Transaction(c.Request.Context(), func(tx *sql.Tx) error {
		reset, err := h.resetRepo.GetByTokenForUpdate(c.Request.Context(), tx, req.Token)
		if err != nil {
			return err
		}
		if err := h.userRepo.UpdatePassword(c.Request.Context(), tx, reset.UserID, hashedPassword); err != nil {
			return err
		}
		if err := h.resetRepo.MarkAsUsed(c.Request.Context(), tx, reset.ID); err != nil {
			return err
		}
		userID = reset.UserID
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrResetTokenExpired):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "reset token has expired"})
		return
	case errors.Is(err, repository.ErrResetTokenUsed):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "reset token has already been used"})
		return
	case errors.Is(err, repository.ErrResetTokenInvalid):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid reset token"})
		return
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to change password"})
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to issue session token"})
		return
	}
	token, err := h.authService.GenerateSessionToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to issue session token"})
		return
	}

	auditLog := &models.CreateAuditLogRequest{
		UserID:      &userID,
		Action:      models.AuditActionPasswordChanged,
		EntityType:  "user",
		EntityID:    userID.String(),
		Description: "Password changed with reset token",
		IPAddress:   c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
	}
	if err := h.auditRepo.Create(c.Request.Context(), auditLog); err != nil {
		log.Printf("Failed to create audit log: %v", err)
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Success: true,
		Token:   token,
		Message: "password changed successfully",
	})
}
