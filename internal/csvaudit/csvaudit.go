// Package csvaudit maintains per-election CSV files recording every voter
// registration, as an audit trail independent of the database
package csvaudit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var header = []string{"Name", "Email", "DOB", "Registration Timestamp"}

// Writer appends registration records to per-election audit files
type Writer struct {
	dir string
}

// NewWriter creates a writer storing audit files under dir
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Record describes a single voter registration entry
type Record struct {
	Name        string
	Email       string
	DateOfBirth string
	Timestamp   time.Time
}

// Append adds a registration record to the election's audit file, creating
// the file with a header row on first use
func (w *Writer) Append(electionID uuid.UUID, electionTitle string, record Record) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	path := w.FilePath(electionID, electionTitle)

	info, err := os.Stat(path)
	writeHeader := os.IsNotExist(err) || (err == nil && info.Size() == 0)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat audit file: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cw := csv.NewWriter(f)
	if writeHeader {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("failed to write audit header: %w", err)
		}
	}
	row := []string{
		record.Name,
		record.Email,
		record.DateOfBirth,
		record.Timestamp.UTC().Format(time.RFC3339),
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush audit record: %w", err)
	}
	return nil
}

// FilePath returns the audit file path for an election
func (w *Writer) FilePath(electionID uuid.UUID, electionTitle string) string {
	name := fmt.Sprintf("election_%s_%s_voters.csv", electionID, Slugify(electionTitle))
	return filepath.Join(w.dir, name)
}

// Slugify lowercases a title and replaces every run of non-alphanumeric
// characters with a single underscore
func Slugify(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
