package models

import (
	"time"

	"github.com/google/uuid"
)

// ElectionStatus represents the lifecycle state of an election
type ElectionStatus string

const (
	ElectionDraft  ElectionStatus = "draft"
	ElectionActive ElectionStatus = "active"
	ElectionClosed ElectionStatus = "closed"
)

// Election represents an election voters can be enrolled in
type Election struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	StartDate   time.Time      `json:"start_date"`
	EndDate     time.Time      `json:"end_date"`
	Status      ElectionStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsOpenAt reports whether votes may be cast at t: the election must be
// active and t must fall inside [StartDate, EndDate].
func (e *Election) IsOpenAt(t time.Time) bool {
	return e.Status == ElectionActive && !t.Before(e.StartDate) && !t.After(e.EndDate)
}

// CreateElectionRequest represents the request to create an election
type CreateElectionRequest struct {
	Title       string    `json:"title" binding:"required,max=200"`
	Description string    `json:"description" binding:"max=2000"`
	StartDate   time.Time `json:"start_date" binding:"required"`
	EndDate     time.Time `json:"end_date" binding:"required"`
}

// UpdateElectionRequest represents the request to update an election
type UpdateElectionRequest struct {
	Title       *string         `json:"title,omitempty" binding:"omitempty,max=200"`
	Description *string         `json:"description,omitempty" binding:"omitempty,max=2000"`
	StartDate   *time.Time      `json:"start_date,omitempty"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	Status      *ElectionStatus `json:"status,omitempty" binding:"omitempty,oneof=draft active closed"`
}
