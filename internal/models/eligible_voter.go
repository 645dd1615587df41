package models

import (
	"time"

	"github.com/google/uuid"
)

// EligibleVoter is an entry in an election's allow-list. Email is stored
// normalized (trimmed, lower-cased); (ElectionID, Email) is unique.
type EligibleVoter struct {
	ID            uuid.UUID `json:"id"`
	ElectionID    uuid.UUID `json:"election_id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Active        bool      `json:"active"`
	HasRegistered bool      `json:"has_registered"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
