package repository

import "errors"

var (
	// Common errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// User errors
	ErrEmailExists   = errors.New("email already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrAdminDelete   = errors.New("cannot delete admin user")
	ErrAccountLocked = errors.New("account is locked")

	// Election errors
	ErrElectionNotFound = errors.New("election not found")
	ErrElectionInactive = errors.New("election is not open for voting")

	// Candidate errors
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrInvalidCandidate  = errors.New("candidate does not belong to election")

	// Vote errors
	ErrAlreadyVoted = errors.New("vote already cast for this election")
	ErrVoteNotFound = errors.New("vote not found")

	// Reset token errors
	ErrResetTokenInvalid = errors.New("invalid reset token")
	ErrResetTokenExpired = errors.New("reset token expired")
	ErrResetTokenUsed    = errors.New("reset token already used")
)
