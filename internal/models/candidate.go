package models

import (
	"time"

	"github.com/google/uuid"
)

// Candidate represents a candidate standing in an election
type Candidate struct {
	ID         uuid.UUID `json:"id"`
	ElectionID uuid.UUID `json:"election_id"`
	Name       string    `json:"name"`
	Party      string    `json:"party"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateCandidateRequest represents the request to add a candidate to an election
type CreateCandidateRequest struct {
	Name  string `json:"name" binding:"required,max=200"`
	Party string `json:"party" binding:"max=200"`
}
