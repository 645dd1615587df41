// Package testutil provides utilities for testing
package testutil

import (
	"ballotbox/internal/api/handlers"
	"ballotbox/internal/auth"
	"ballotbox/internal/config"
	"ballotbox/internal/csvaudit"
	"ballotbox/internal/importer"
	"ballotbox/internal/ledger"
	"ballotbox/internal/models"
	"ballotbox/internal/registration"
	"ballotbox/internal/repository"
	"ballotbox/internal/repository/postgres"
	"ballotbox/internal/testutil/db"
	"ballotbox/internal/validation"
	"ballotbox/internal/voting"
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// LoadTestConfig loads the test configuration
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return db.LoadTestConfig(t)
}

// TestContext holds common test dependencies
type TestContext struct {
	T                 *testing.T
	DB                *sql.DB
	Config            *config.Config
	UserRepo          repository.UserRepository
	ElectionRepo      repository.ElectionRepository
	CandidateRepo     repository.CandidateRepository
	VoteRepo          repository.VoteRepository
	EligibleVoterRepo repository.EligibleVoterRepository
	PasswordResetRepo repository.PasswordResetRepository
	AuditRepo         repository.AuditLogRepository
	AuthService       *auth.Service
	EmailSender       *MockEmailSender
	FaceMatcher       *FakeFaceMatcher
	LedgerClient      *FakeLedgerClient
	Registration      *registration.Service
	Importer          *importer.Service
	Voting            *voting.Service
	AuthHandler       *handlers.AuthHandler
	VoterAdminHandler *handlers.VoterAdminHandler
	VoteHandler       *handlers.VoteHandler
	ElectionHandler   *handlers.ElectionHandler
	CandidateHandler  *handlers.CandidateHandler
}

// SentCredentials records one SendCredentials call
type SentCredentials struct {
	To           string
	Name         string
	VoterID      string
	TempPassword string
}

// SentOTP records one SendOTP call
type SentOTP struct {
	To   string
	Name string
	Code string
}

// MockEmailSender records sent messages instead of talking to an SMTP server
type MockEmailSender struct {
	mu          sync.Mutex
	Credentials []SentCredentials
	OTPs        []SentOTP
	Err         error
}

func NewMockEmailSender() *MockEmailSender {
	return &MockEmailSender{}
}

func (s *MockEmailSender) SendCredentials(to, name, voterID, tempPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Credentials = append(s.Credentials, SentCredentials{To: to, Name: name, VoterID: voterID, TempPassword: tempPassword})
	return nil
}

func (s *MockEmailSender) SendOTP(to, name, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.OTPs = append(s.OTPs, SentOTP{To: to, Name: name, Code: code})
	return nil
}

// LastOTP returns the most recently sent OTP code
func (s *MockEmailSender) LastOTP(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.OTPs, "No OTP was sent")
	return s.OTPs[len(s.OTPs)-1].Code
}

// FakeFaceMatcher returns a configurable match result
type FakeFaceMatcher struct {
	Result bool
	Err    error
	Calls  int
}

func (m *FakeFaceMatcher) Match(ctx context.Context, storedPath string, captured []byte) (bool, error) {
	m.Calls++
	if m.Err != nil {
		return false, m.Err
	}
	return m.Result, nil
}

// LedgerSubmission records one Submit call
type LedgerSubmission struct {
	VoteID      uuid.UUID
	ElectionID  uuid.UUID
	CandidateID uuid.UUID
}

// FakeLedgerClient returns configurable receipts without a ledger node
type FakeLedgerClient struct {
	mu           sync.Mutex
	SubmitErr    error
	Confirmed    bool
	VerifyResult bool
	VerifyErr    error
	Submissions  []LedgerSubmission
}

func (c *FakeLedgerClient) Submit(ctx context.Context, voteID, electionID, candidateID uuid.UUID) (*ledger.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SubmitErr != nil {
		return nil, c.SubmitErr
	}
	c.Submissions = append(c.Submissions, LedgerSubmission{VoteID: voteID, ElectionID: electionID, CandidateID: candidateID})
	return &ledger.Receipt{
		TxHash:    fmt.Sprintf("0x%032x", len(c.Submissions)),
		Confirmed: c.Confirmed,
	}, nil
}

func (c *FakeLedgerClient) Verify(ctx context.Context, txHash string) (bool, error) {
	if c.VerifyErr != nil {
		return false, c.VerifyErr
	}
	return c.VerifyResult, nil
}

// NewTestContext creates a new test context with all dependencies
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)

	// Register custom validators
	validation.Initialize()

	// Load test config
	cfg := LoadTestConfig(t)

	// Setup test database
	testDB := db.SetupTestDB(t, &cfg.Database)

	// Initialize repositories
	userRepo := postgres.NewUserRepository(testDB)
	electionRepo := postgres.NewElectionRepository(testDB)
	candidateRepo := postgres.NewCandidateRepository(testDB)
	voteRepo := postgres.NewVoteRepository(testDB)
	eligibleRepo := postgres.NewEligibleVoterRepository(testDB)
	passwordResetRepo := postgres.NewPasswordResetRepository(testDB)
	auditRepo := postgres.NewAuditLogRepository(testDB)

	// Initialize services with fakes for the external systems
	authService := auth.NewService(cfg)
	emailSender := NewMockEmailSender()
	faceMatcher := &FakeFaceMatcher{Result: true}
	ledgerClient := &FakeLedgerClient{Confirmed: true, VerifyResult: true}
	auditWriter := csvaudit.NewWriter(t.TempDir())
	cfg.Storage.FaceImageDir = t.TempDir()

	registrationService := registration.NewService(
		testDB,
		userRepo,
		electionRepo,
		eligibleRepo,
		auditRepo,
		authService,
		emailSender,
		auditWriter,
		&cfg.Storage,
	)
	importerService := importer.NewService(testDB, electionRepo, eligibleRepo)
	votingService := voting.NewService(
		testDB,
		userRepo,
		electionRepo,
		candidateRepo,
		voteRepo,
		auditRepo,
		ledgerClient,
		&cfg.Ledger,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		testDB,
		userRepo,
		passwordResetRepo,
		auditRepo,
		authService,
		emailSender,
		faceMatcher,
		cfg,
	)
	voterAdminHandler := handlers.NewVoterAdminHandler(registrationService, importerService, auditRepo)
	voteHandler := handlers.NewVoteHandler(votingService)
	electionHandler := handlers.NewElectionHandler(electionRepo, voteRepo)
	candidateHandler := handlers.NewCandidateHandler(candidateRepo)

	tc := &TestContext{
		T:                 t,
		DB:                testDB,
		Config:            cfg,
		UserRepo:          userRepo,
		ElectionRepo:      electionRepo,
		CandidateRepo:     candidateRepo,
		VoteRepo:          voteRepo,
		EligibleVoterRepo: eligibleRepo,
		PasswordResetRepo: passwordResetRepo,
		AuditRepo:         auditRepo,
		AuthService:       authService,
		EmailSender:       emailSender,
		FaceMatcher:       faceMatcher,
		LedgerClient:      ledgerClient,
		Registration:      registrationService,
		Importer:          importerService,
		Voting:            votingService,
		AuthHandler:       authHandler,
		VoterAdminHandler: voterAdminHandler,
		VoteHandler:       voteHandler,
		ElectionHandler:   electionHandler,
		CandidateHandler:  candidateHandler,
	}

	// Register cleanup function
	t.Cleanup(func() {
		tc.cleanup()
	})

	return tc
}

// cleanup performs necessary cleanup after tests
func (tc *TestContext) cleanup() {
	if tc.DB != nil {
		if err := db.CleanupTestDB(tc.DB); err != nil {
			tc.T.Errorf("Failed to cleanup test database: %v", err)
		}
		tc.DB.Close()
	}
}

// CreateTestAdmin creates an active admin account and returns it
func (tc *TestContext) CreateTestAdmin(name, email, password string) *models.User {
	tc.T.Helper()
	return tc.createUser(name, email, password, models.RoleAdmin, models.StatusActive, true)
}

// CreateTestVoter creates a fully activated voter account and returns it
func (tc *TestContext) CreateTestVoter(name, email, password string) *models.User {
	tc.T.Helper()
	return tc.createUser(name, email, password, models.RoleVoter, models.StatusActive, true)
}

// CreateTestVoterWithTempPassword creates a voter who has not completed the
// forced password change yet
func (tc *TestContext) CreateTestVoterWithTempPassword(name, email, password string) *models.User {
	tc.T.Helper()
	return tc.createUser(name, email, password, models.RoleVoter, models.StatusTempPassword, false)
}

func (tc *TestContext) createUser(name, email, password string, role models.Role, status models.AccountStatus, passwordChanged bool) *models.User {
	tc.T.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(tc.T, err, "Failed to hash password")

	dob := time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC)
	user := &models.User{
		Role:            role,
		Name:            name,
		Email:           email,
		Password:        string(hashed),
		PasswordChanged: passwordChanged,
		AccountStatus:   status,
		DateOfBirth:     &dob,
	}
	if !passwordChanged {
		temp := string(hashed)
		user.TempPassword = &temp
	}

	err = tc.UserRepo.Create(context.Background(), tc.DB, user)
	require.NoError(tc.T, err, "Failed to create test user")

	return user
}

// SetFaceImage stores a face image path on the user so login requires the
// face verification stage
func (tc *TestContext) SetFaceImage(userID uuid.UUID, path string) {
	tc.T.Helper()
	_, err := tc.DB.Exec(`UPDATE users SET face_image_path = $1 WHERE id = $2`, path, userID)
	require.NoError(tc.T, err, "Failed to set face image path")
}

// RequireOTP flags the account so login requires the OTP stage
func (tc *TestContext) RequireOTP(userID uuid.UUID) {
	tc.T.Helper()
	_, err := tc.DB.Exec(`UPDATE users SET otp_required = TRUE WHERE id = $1`, userID)
	require.NoError(tc.T, err, "Failed to set otp_required")
}

// CreateTestElection creates an election in the given status, open from an
// hour ago until a day from now
func (tc *TestContext) CreateTestElection(title string, status models.ElectionStatus) *models.Election {
	tc.T.Helper()

	election := &models.Election{
		Title:       title,
		Description: "test election",
		StartDate:   time.Now().Add(-time.Hour),
		EndDate:     time.Now().Add(24 * time.Hour),
		Status:      models.ElectionDraft,
	}

	err := tc.ElectionRepo.Create(context.Background(), election)
	require.NoError(tc.T, err, "Failed to create test election")

	if status != models.ElectionDraft {
		_, err = tc.DB.Exec(`UPDATE elections SET status = $1 WHERE id = $2`, status, election.ID)
		require.NoError(tc.T, err, "Failed to set election status")
		election.Status = status
	}

	return election
}

// CreateTestCandidate adds a candidate to an election and returns it
func (tc *TestContext) CreateTestCandidate(electionID uuid.UUID, name, party string) *models.Candidate {
	tc.T.Helper()

	candidate := &models.Candidate{
		ElectionID: electionID,
		Name:       name,
		Party:      party,
	}

	err := tc.CandidateRepo.Create(context.Background(), candidate)
	require.NoError(tc.T, err, "Failed to create test candidate")

	return candidate
}

// GetTestJWT generates a session token for testing
func (tc *TestContext) GetTestJWT(userID uuid.UUID) string {
	tc.T.Helper()

	user, err := tc.UserRepo.GetByID(context.Background(), userID)
	require.NoError(tc.T, err, "Failed to get user")

	token, err := tc.AuthService.GenerateSessionToken(user)
	require.NoError(tc.T, err, "Failed to generate test JWT")
	return token
}
