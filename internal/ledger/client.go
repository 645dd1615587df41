// Package ledger records cast votes on an external append-only vote ledger
// and reconciles receipts that were lost after commit
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ballotbox/internal/config"

	"github.com/google/uuid"
)

// Receipt is the ledger's acknowledgement of a recorded vote
type Receipt struct {
	// TxHash identifies the ledger transaction that recorded the vote
	TxHash string
	// Confirmed reports whether the ledger has finalized the transaction
	Confirmed bool
}

// Client submits votes to the external ledger and checks their status
type Client interface {
	// Submit records a vote on the ledger and returns its receipt
	Submit(ctx context.Context, voteID, electionID, candidateID uuid.UUID) (*Receipt, error)
	// Verify checks whether a previously submitted transaction is finalized
	Verify(ctx context.Context, txHash string) (bool, error)
}

// HTTPClient talks to a ledger gateway node over HTTP
type HTTPClient struct {
	config *config.LedgerConfig
	client *http.Client
}

// NewHTTPClient creates a client for the configured ledger gateway
func NewHTTPClient(config *config.LedgerConfig) *HTTPClient {
	return &HTTPClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type submitRequest struct {
	Contract    string `json:"contract"`
	VoteID      string `json:"vote_id"`
	ElectionID  string `json:"election_id"`
	CandidateID string `json:"candidate_id"`
}

type submitResponse struct {
	TxHash    string `json:"tx_hash"`
	Confirmed bool   `json:"confirmed"`
}

type verifyResponse struct {
	Confirmed bool `json:"confirmed"`
}

// Submit records a vote on the ledger and returns its receipt
func (c *HTTPClient) Submit(ctx context.Context, voteID, electionID, candidateID uuid.UUID) (*Receipt, error) {
	payload := submitRequest{
		Contract:    c.config.ContractAddress,
		VoteID:      voteID.String(),
		ElectionID:  electionID.String(),
		CandidateID: candidateID.String(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.NodeURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ledger returned status %d: %s", resp.StatusCode, msg)
	}

	var result submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode ledger response: %w", err)
	}
	if result.TxHash == "" {
		return nil, fmt.Errorf("ledger returned empty transaction hash")
	}

	return &Receipt{TxHash: result.TxHash, Confirmed: result.Confirmed}, nil
}

// Verify checks whether a previously submitted transaction is finalized
func (c *HTTPClient) Verify(ctx context.Context, txHash string) (bool, error) {
	url := fmt.Sprintf("%s/transactions/%s", c.config.NodeURL, txHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("ledger request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("ledger returned status %d: %s", resp.StatusCode, msg)
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode ledger response: %w", err)
	}
	return result.Confirmed, nil
}
