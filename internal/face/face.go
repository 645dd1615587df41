// Package face verifies a captured face image against a voter's stored
// registration image through an external matching service
package face

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"ballotbox/internal/config"
)

// Matcher compares a captured face image against a stored reference image
type Matcher interface {
	// Match returns true when the captured image matches the reference
	// image stored at storedPath
	Match(ctx context.Context, storedPath string, captured []byte) (bool, error)
}

// HTTPMatcher calls an external face-matching service
type HTTPMatcher struct {
	config *config.FaceConfig
	client *http.Client
}

// NewHTTPMatcher creates a matcher backed by the configured service
func NewHTTPMatcher(config *config.FaceConfig) *HTTPMatcher {
	return &HTTPMatcher{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type matchResponse struct {
	Similarity float64 `json:"similarity"`
}

// Match uploads both images to the matching service and compares the
// returned similarity score against the configured threshold
func (m *HTTPMatcher) Match(ctx context.Context, storedPath string, captured []byte) (bool, error) {
	stored, err := os.ReadFile(storedPath)
	if err != nil {
		return false, fmt.Errorf("failed to read stored face image: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writeImagePart(writer, "reference", filepath.Base(storedPath), stored); err != nil {
		return false, err
	}
	if err := writeImagePart(writer, "candidate", "captured.jpg", captured); err != nil {
		return false, err
	}
	if err := writer.Close(); err != nil {
		return false, fmt.Errorf("failed to finalize request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.ServiceURL+"/compare", &buf)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("face service request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("face service returned status %d: %s", resp.StatusCode, body)
	}

	var result matchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode face service response: %w", err)
	}

	return result.Similarity >= m.config.Threshold, nil
}

func writeImagePart(writer *multipart.Writer, field, filename string, data []byte) error {
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write image data: %w", err)
	}
	return nil
}
