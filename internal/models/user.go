package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the account type
type Role string

const (
	RoleAdmin Role = "admin"
	RoleVoter Role = "voter"
)

// AccountStatus represents the lifecycle state of an account
type AccountStatus string

const (
	StatusTempPassword AccountStatus = "temp_password"
	StatusActive       AccountStatus = "active"
	StatusLocked       AccountStatus = "locked"
	StatusSuspended    AccountStatus = "suspended"
)

// User represents an account in the system, either an admin or a voter
type User struct {
	ID                 uuid.UUID     `json:"id"`
	Role               Role          `json:"role"`
	Name               string        `json:"name"`
	Email              string        `json:"email"`
	Password           string        `json:"-"`
	TempPassword       *string       `json:"-"`
	PasswordChanged    bool          `json:"password_changed"`
	AccountStatus      AccountStatus `json:"account_status"`
	LoginAttempts      int           `json:"-"`
	AccountLockedUntil *time.Time    `json:"-"`
	FaceImagePath      *string       `json:"-"`
	FaceVerified       bool          `json:"face_verified"`
	OTPCode            *string       `json:"-"`
	OTPExpiresAt       *time.Time    `json:"-"`
	OTPRequired        bool          `json:"otp_required"`
	HasVoted           bool          `json:"has_voted"`
	Authorized         bool          `json:"authorized"`
	AuthorizedAt       *time.Time    `json:"authorized_at,omitempty"`
	AuthorizedBy       *uuid.UUID    `json:"authorized_by,omitempty"`
	DateOfBirth        *time.Time    `json:"date_of_birth,omitempty"`
	LastLoginAt        *time.Time    `json:"last_login_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// IsAdmin returns true if the account has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsLockedAt reports whether the account lockout is still in effect at t
func (u *User) IsLockedAt(t time.Time) bool {
	return u.AccountLockedUntil != nil && t.Before(*u.AccountLockedUntil)
}

// LockedMinutesRemaining returns the whole minutes left on the lockout,
// rounded up, or 0 when the account is not locked at t.
func (u *User) LockedMinutesRemaining(t time.Time) int {
	if !u.IsLockedAt(t) {
		return 0
	}
	remaining := u.AccountLockedUntil.Sub(t)
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
