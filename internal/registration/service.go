// Package registration implements admin-driven voter account management:
// registration, deletion and the registered-voter export
package registration

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"ballotbox/internal/auth"
	"ballotbox/internal/config"
	"ballotbox/internal/csvaudit"
	"ballotbox/internal/email"
	"ballotbox/internal/face"
	"ballotbox/internal/models"
	"ballotbox/internal/repository"
	"ballotbox/internal/repository/postgres"

	"github.com/google/uuid"
)

// CSV audit outcomes reported to the admin
const (
	CSVStatusRecorded = "recorded"
	CSVStatusFailed   = "failed"
)

// ErrElectionClosed rejects registration into a closed election
var ErrElectionClosed = errors.New("election is closed")

// Service handles voter lifecycle operations performed by admins
type Service struct {
	base      repository.BaseRepository
	users     repository.UserRepository
	elections repository.ElectionRepository
	eligible  repository.EligibleVoterRepository
	auditLogs repository.AuditLogRepository
	auth      *auth.Service
	email     email.Sender
	audit     *csvaudit.Writer
	storage   *config.StorageConfig
}

// NewService creates a new registration service
func NewService(
	db *sql.DB,
	users repository.UserRepository,
	elections repository.ElectionRepository,
	eligible repository.EligibleVoterRepository,
	auditLogs repository.AuditLogRepository,
	authService *auth.Service,
	sender email.Sender,
	audit *csvaudit.Writer,
	storage *config.StorageConfig,
) *Service {
	return &Service{
		base:      repository.NewBaseRepository(db),
		users:     users,
		elections: elections,
		eligible:  eligible,
		auditLogs: auditLogs,
		auth:      authService,
		email:     sender,
		audit:     audit,
		storage:   storage,
	}
}

// RegisterVoter creates a voter account for an election. The face image is
// written to disk before the transaction opens and removed again if the
// transaction fails; the CSV audit entry and the credentials email happen
// after commit and never fail the registration.
func (s *Service) RegisterVoter(ctx context.Context, adminID uuid.UUID, req *models.RegisterVoterRequest) (*models.RegisterVoterData, error) {
	electionID, err := uuid.Parse(req.ElectionID)
	if err != nil {
		return nil, repository.ErrElectionNotFound
	}

	election, err := s.elections.GetByID(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if election.Status == models.ElectionClosed {
		return nil, ErrElectionClosed
	}

	normalizedEmail := postgres.NormalizeEmail(req.Email)

	if _, err := s.users.GetByEmail(ctx, normalizedEmail); err == nil {
		return nil, repository.ErrEmailExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	imageData, ext, err := face.DecodeImage(req.FaceImage)
	if err != nil {
		return nil, err
	}

	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("invalid date of birth: %w", err)
	}

	tempPassword, err := auth.GenerateTempPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate temporary password: %w", err)
	}
	hashed, err := s.auth.HashPassword(tempPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID := uuid.New()
	imagePath, err := s.writeFaceImage(userID, ext, imageData)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:            userID,
		Role:          models.RoleVoter,
		Name:          req.Name,
		Email:         normalizedEmail,
		Password:      hashed,
		TempPassword:  &hashed,
		AccountStatus: models.StatusTempPassword,
		FaceImagePath: &imagePath,
		OTPRequired:   true,
		DateOfBirth:   &dob,
	}

	err = s.base.Transaction(ctx, func(tx *sql.Tx) error {
		// Re-check under a row lock so two concurrent registrations for
		// the same email serialize instead of both passing the early check.
		_, err := s.users.GetByEmailForUpdate(ctx, tx, normalizedEmail)
		if err == nil {
			return repository.ErrEmailExists
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return err
		}

		if err := s.users.Create(ctx, tx, user); err != nil {
			return err
		}
		return s.eligible.MarkRegistered(ctx, tx, electionID, normalizedEmail, req.Name)
	})
	if err != nil {
		if removeErr := os.Remove(imagePath); removeErr != nil {
			log.Printf("Failed to remove face image after rollback: %v", removeErr)
		}
		return nil, err
	}

	csvStatus := CSVStatusRecorded
	if err := s.audit.Append(electionID, election.Title, csvaudit.Record{
		Name:        req.Name,
		Email:       normalizedEmail,
		DateOfBirth: req.DateOfBirth,
		Timestamp:   time.Now(),
	}); err != nil {
		log.Printf("Failed to append registration audit record: %v", err)
		csvStatus = CSVStatusFailed
	}

	emailSent := true
	if err := s.email.SendCredentials(normalizedEmail, req.Name, normalizedEmail, tempPassword); err != nil {
		log.Printf("Failed to send credentials email to %s: %v", normalizedEmail, err)
		emailSent = false
	}

	s.logAction(ctx, &adminID, models.AuditActionVoterRegistered, "user", userID.String(),
		fmt.Sprintf("Registered voter %s for election %s", normalizedEmail, election.Title))

	return &models.RegisterVoterData{
		UserID:    userID.String(),
		Email:     normalizedEmail,
		EmailSent: emailSent,
		CSVStatus: csvStatus,
	}, nil
}

// DeleteVoter removes a voter account and everything tied to it. Face image
// files are removed after the transaction commits.
func (s *Service) DeleteVoter(ctx context.Context, adminID, userID uuid.UUID) (*models.DeleteVotersData, error) {
	var counts *repository.DeleteCounts
	err := s.base.Transaction(ctx, func(tx *sql.Tx) error {
		var err error
		counts, err = s.users.DeleteVoterCascade(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	removed := s.removeFaceImages(counts.FacePaths)

	s.logAction(ctx, &adminID, models.AuditActionVoterDeleted, "user", userID.String(),
		fmt.Sprintf("Deleted voter account %s", userID))

	return &models.DeleteVotersData{
		Accounts:       counts.Accounts,
		Votes:          counts.Votes,
		Eligibility:    counts.Eligibility,
		PasswordResets: counts.PasswordResets,
		FaceImages:     removed,
	}, nil
}

// DeleteAllVoters removes every voter account in the system
func (s *Service) DeleteAllVoters(ctx context.Context, adminID uuid.UUID) (*models.DeleteVotersData, error) {
	var counts *repository.DeleteCounts
	err := s.base.Transaction(ctx, func(tx *sql.Tx) error {
		var err error
		counts, err = s.users.DeleteAllVotersCascade(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	removed := s.removeFaceImages(counts.FacePaths)

	s.logAction(ctx, &adminID, models.AuditActionVoterDeleted, "user", "all",
		fmt.Sprintf("Deleted all %d voter accounts", counts.Accounts))

	return &models.DeleteVotersData{
		Accounts:       counts.Accounts,
		Votes:          counts.Votes,
		Eligibility:    counts.Eligibility,
		PasswordResets: counts.PasswordResets,
		FaceImages:     removed,
	}, nil
}

var exportHeader = []string{"Election ID", "Election", "Name", "Email", "DOB"}

// ExportCSV writes the registered-voter export for all elections to w
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.eligible.ExportRows(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.ElectionID.String(),
			row.ElectionTitle,
			row.Name,
			row.Email,
			row.DateOfBirth,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Service) writeFaceImage(userID uuid.UUID, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(s.storage.FaceImageDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create face image directory: %w", err)
	}
	path := filepath.Join(s.storage.FaceImageDir, fmt.Sprintf("%s.%s", userID, ext))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write face image: %w", err)
	}
	return path, nil
}

func (s *Service) removeFaceImages(paths []string) int {
	removed := 0
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Failed to remove face image %s: %v", path, err)
			}
			continue
		}
		removed++
	}
	return removed
}

func (s *Service) logAction(ctx context.Context, userID *uuid.UUID, action models.AuditAction, entityType, entityID, description string) {
	err := s.auditLogs.Create(ctx, &models.CreateAuditLogRequest{
		UserID:      userID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
	})
	if err != nil {
		log.Printf("Failed to write audit log entry: %v", err)
	}
}
