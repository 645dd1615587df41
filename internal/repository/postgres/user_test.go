package postgres_test

import (
	"ballotbox/internal/models"
	"ballotbox/internal/repository"
	"ballotbox/internal/repository/postgres"
	"ballotbox/internal/testutil"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create(t *testing.T) {
	tc := testutil.NewTestContext(t)

	tests := []struct {
		name    string
		user    *models.User
		wantErr error
	}{
		{
			name: "Success - Create Voter",
			user: &models.User{
				Role:          models.RoleVoter,
				Name:          "Alice Voter",
				Email:         "alice@example.com",
				Password:      "hashed-password",
				AccountStatus: models.StatusTempPassword,
				OTPRequired:   true,
			},
			wantErr: nil,
		},
		{
			name: "Success - Create Admin",
			user: &models.User{
				Role:            models.RoleAdmin,
				Name:            "Election Admin",
				Email:           "admin@example.com",
				Password:        "hashed-password",
				PasswordChanged: true,
				AccountStatus:   models.StatusActive,
			},
			wantErr: nil,
		},
		{
			name: "Error - Duplicate Email",
			user: &models.User{
				Role:          models.RoleVoter,
				Name:          "Alice Again",
				Email:         "alice@example.com",
				Password:      "hashed-password",
				AccountStatus: models.StatusTempPassword,
			},
			wantErr: repository.ErrEmailExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tc.UserRepo.Create(context.Background(), tc.DB, tt.user)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotEqual(t, uuid.Nil, tt.user.ID)
			require.False(t, tt.user.CreatedAt.IsZero())

			fetched, err := tc.UserRepo.GetByID(context.Background(), tt.user.ID)
			require.NoError(t, err)
			require.Equal(t, tt.user.Email, fetched.Email)
			require.Equal(t, tt.user.Role, fetched.Role)
			require.Equal(t, tt.user.AccountStatus, fetched.AccountStatus)
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestVoter("Bob Voter", "bob@example.com", "password123")

	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		{
			name:  "Success - Existing Email",
			email: "bob@example.com",
		},
		{
			name:    "Error - Unknown Email",
			email:   "nobody@example.com",
			wantErr: repository.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetched, err := tc.UserRepo.GetByEmail(context.Background(), tt.email)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, fetched)
				return
			}

			require.NoError(t, err)
			require.Equal(t, user.ID, fetched.ID)
			require.Equal(t, user.Name, fetched.Name)
		})
	}
}

func TestUserRepository_GetByEmailForUpdate(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestVoter("Carol Voter", "carol@example.com", "password123")

	tx, err := tc.DB.Begin()
	require.NoError(t, err)
	defer tx.Rollback()

	fetched, err := tc.UserRepo.GetByEmailForUpdate(context.Background(), tx, "carol@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, fetched.ID)

	_, err = tc.UserRepo.GetByEmailForUpdate(context.Background(), tx, "missing@example.com")
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserRepository_UpdateFailedAttempts(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestVoter("Dave Voter", "dave@example.com", "password123")

	// Attempts accumulate without a lockout
	err := tc.UserRepo.UpdateFailedAttempts(context.Background(), tc.DB, user.ID, 3, nil)
	require.NoError(t, err)

	fetched, err := tc.UserRepo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 3, fetched.LoginAttempts)
	require.Nil(t, fetched.AccountLockedUntil)
	require.False(t, fetched.IsLockedAt(time.Now()))

	// Hitting the maximum locks the account
	lockedUntil := time.Now().Add(30 * time.Minute)
	err = tc.UserRepo.UpdateFailedAttempts(context.Background(), tc.DB, user.ID, 5, &lockedUntil)
	require.NoError(t, err)

	fetched, err = tc.UserRepo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 5, fetched.LoginAttempts)
	require.NotNil(t, fetched.AccountLockedUntil)
	require.True(t, fetched.IsLockedAt(time.Now()))
	require.Equal(t, models.StatusLocked, fetched.AccountStatus)
}

func TestUserRepository_ResetLoginState(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestVoter("Erin Voter", "erin@example.com", "password123")

	lockedUntil := time.Now().Add(-time.Minute)
	err := tc.UserRepo.UpdateFailedAttempts(context.Background(), tc.DB, user.ID, 4, &lockedUntil)
	require.NoError(t, err)
	err = tc.UserRepo.SetOTP(context.Background(), tc.DB, user.ID, "123456", time.Now().Add(10*time.Minute))
	require.NoError(t, err)

	loginTime := time.Now()
	err = tc.UserRepo.ResetLoginState(context.Background(), tc.DB, user.ID, loginTime)
	require.NoError(t, err)

	fetched, err := tc.UserRepo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Zero(t, fetched.LoginAttempts)
	require.Nil(t, fetched.AccountLockedUntil)
	require.Nil(t, fetched.OTPCode)
	require.Nil(t, fetched.OTPExpiresAt)
	require.NotNil(t, fetched.LastLoginAt)
	require.WithinDuration(t, loginTime, *fetched.LastLoginAt, time.Second)
}

func TestUserRepository_SetOTP(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestVoter("Frank Voter", "frank@example.com", "password123")

	expiresAt := time.Now().Add(10 * time.Minute)
	err := tc.UserRepo.SetOTP(context.Background(), tc.DB, user.ID, "654321", expiresAt)
	require.NoError(t, err)

	fetched, err := tc.UserRepo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.OTPCode)
	require.Equal(t, "654321", *fetched.OTPCode)
	require.NotNil(t, fetched.OTPExpiresAt)
	require.WithinDuration(t, expiresAt, *fetched.OTPExpiresAt, time.Second)
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestVoterWithTempPassword("Grace Voter", "grace@example.com", "temp-password")

	require.False(t, user.PasswordChanged)

	err := tc.UserRepo.UpdatePassword(context.Background(), tc.DB, user.ID, "new-hash")
	require.NoError(t, err)

	fetched, err := tc.UserRepo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", fetched.Password)
	require.True(t, fetched.PasswordChanged)
	require.Nil(t, fetched.TempPassword)
	require.Equal(t, models.StatusActive, fetched.AccountStatus)
}

func TestUserRepository_DeleteVoterCascade(t *testing.T) {
	tc := testutil.NewTestContext(t)
	voter := tc.CreateTestVoter("Henry Voter", "henry@example.com", "password123")
	admin := tc.CreateTestAdmin("Admin", "admin@example.com", "password123")

	election := tc.CreateTestElection("City Council", models.ElectionActive)
	candidate := tc.CreateTestCandidate(election.ID, "Candidate A", "Party A")

	// Give the voter a vote and a reset token so the cascade has work to do
	tx, err := tc.DB.Begin()
	require.NoError(t, err)
	vote := &models.Vote{UserID: voter.ID, ElectionID: election.ID, CandidateID: candidate.ID}
	require.NoError(t, tc.VoteRepo.Create(context.Background(), tx, vote))
	_, err = tc.PasswordResetRepo.Create(context.Background(), tx, voter.ID, time.Hour)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tests := []struct {
		name    string
		id      uuid.UUID
		wantErr error
	}{
		{
			name: "Success - Voter With Dependents",
			id:   voter.ID,
		},
		{
			name:    "Error - Admin Account",
			id:      admin.ID,
			wantErr: repository.ErrAdminDelete,
		},
		{
			name:    "Error - Unknown User",
			id:      uuid.New(),
			wantErr: repository.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := tc.DB.Begin()
			require.NoError(t, err)
			defer tx.Rollback()

			counts, err := tc.UserRepo.DeleteVoterCascade(context.Background(), tx, tt.id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NoError(t, tx.Commit())
			require.Equal(t, 1, counts.Accounts)
			require.Equal(t, 1, counts.Votes)
			require.Equal(t, 1, counts.PasswordResets)

			_, err = tc.UserRepo.GetByID(context.Background(), tt.id)
			require.ErrorIs(t, err, repository.ErrUserNotFound)
		})
	}
}

func TestUserRepository_List(t *testing.T) {
	tc := testutil.NewTestContext(t)
	tc.CreateTestVoter("Voter One", "one@example.com", "password123")
	tc.CreateTestVoter("Voter Two", "two@example.com", "password123")
	tc.CreateTestAdmin("Admin", "admin@example.com", "password123")

	role := models.RoleVoter
	users, err := tc.UserRepo.List(context.Background(), repository.UserFilter{Role: &role})
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		require.Equal(t, models.RoleVoter, u.Role)
	}
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "voter@example.com", postgres.NormalizeEmail("  Voter@Example.COM "))
	require.Equal(t, "a@b.c", postgres.NormalizeEmail("a@b.c"))
}
