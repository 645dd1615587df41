// Package importer loads eligible-voter allow-lists for an election from
// uploaded CSV or xlsx files
package importer

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"net/mail"
	"path/filepath"
	"strings"

	"ballotbox/internal/models"
	"ballotbox/internal/repository"
	"ballotbox/internal/repository/postgres"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// maxReportedErrors caps how many row errors a report carries
const maxReportedErrors = 20

// Report summarizes what a voter-list import did
type Report struct {
	// Inserted counts newly added allow-list entries
	Inserted int `json:"inserted"`
	// Updated counts existing entries whose name was refreshed
	Updated int `json:"updated"`
	// Skipped counts rows ignored because the entry already registered
	Skipped int `json:"skipped"`
	// Deactivated counts entries removed because they were absent from the
	// uploaded list (replace mode only)
	Deactivated int `json:"deactivated"`
	// Errors lists per-row problems, capped at 20; ErrorsTruncated reports
	// whether more occurred
	Errors          []string `json:"errors,omitempty"`
	ErrorsTruncated bool     `json:"errors_truncated,omitempty"`
}

func (r *Report) addError(line int, msg string) {
	if len(r.Errors) >= maxReportedErrors {
		r.ErrorsTruncated = true
		return
	}
	r.Errors = append(r.Errors, fmt.Sprintf("line %d: %s", line, msg))
}

// entry is one validated row of the uploaded list
type entry struct {
	name  string
	email string
}

// Service imports voter lists into an election's allow-list
type Service struct {
	base      repository.BaseRepository
	elections repository.ElectionRepository
	eligible  repository.EligibleVoterRepository
}

// NewService creates a new importer service
func NewService(db *sql.DB, elections repository.ElectionRepository, eligible repository.EligibleVoterRepository) *Service {
	return &Service{
		base:      repository.NewBaseRepository(db),
		elections: elections,
		eligible:  eligible,
	}
}

// Import parses the uploaded list and applies it to the election's
// allow-list in a single transaction. The filename extension selects the
// parser: .xlsx goes through the workbook reader, everything else is read
// as CSV. When replaceExisting is set, active entries missing from the
// upload are deactivated, sparing those that already registered.
func (s *Service) Import(ctx context.Context, electionID uuid.UUID, filename string, r io.Reader, replaceExisting bool) (*Report, error) {
	if _, err := s.elections.GetByID(ctx, electionID); err != nil {
		return nil, err
	}

	report := &Report{}
	entries, err := parse(filename, r, report)
	if err != nil {
		return nil, err
	}

	err = s.base.Transaction(ctx, func(tx *sql.Tx) error {
		emails := make([]string, 0, len(entries))
		for _, e := range entries {
			outcome, err := s.eligible.UpsertImport(ctx, tx, &models.EligibleVoter{
				ElectionID: electionID,
				Email:      e.email,
				Name:       e.name,
				Active:     true,
			})
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", e.email, err)
			}
			switch outcome {
			case repository.UpsertInserted:
				report.Inserted++
			case repository.UpsertUpdated:
				report.Updated++
			case repository.UpsertSkipped:
				report.Skipped++
			}
			emails = append(emails, e.email)
		}

		if replaceExisting {
			deactivated, err := s.eligible.DeactivateMissing(ctx, tx, electionID, emails)
			if err != nil {
				return fmt.Errorf("failed to deactivate missing entries: %w", err)
			}
			report.Deactivated = deactivated
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// row is one raw record of the uploaded list with its source line number
type row struct {
	line   int
	fields []string
}

// parse reads the upload into validated entries, recording row problems on
// the report
func parse(filename string, r io.Reader, report *Report) ([]entry, error) {
	var rows []row
	var err error
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		rows, err = readWorkbook(r)
	} else {
		rows, err = readCSV(r, report)
	}
	if err != nil {
		return nil, err
	}
	return build(rows, report)
}

func readCSV(r io.Reader, report *Report) ([]row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	var rows []row
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if line == 1 {
				return nil, fmt.Errorf("failed to read voter list header: %w", err)
			}
			report.addError(line, "malformed row")
			continue
		}
		rows = append(rows, row{line: line, fields: record})
	}
	return rows, nil
}

// readWorkbook loads the first sheet of an xlsx upload
func readWorkbook(r io.Reader) ([]row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open voter list workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read voter list workbook: %w", err)
	}
	rows := make([]row, 0, len(records))
	for i, record := range records {
		rows = append(rows, row{line: i + 1, fields: record})
	}
	return rows, nil
}

// build validates the raw rows into entries. The header row must contain
// name and email columns in any order.
func build(rows []row, report *Report) ([]entry, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("voter list is empty")
	}

	nameCol, emailCol := -1, -1
	for i, col := range rows[0].fields {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "name":
			nameCol = i
		case "email":
			emailCol = i
		}
	}
	if nameCol < 0 || emailCol < 0 {
		return nil, fmt.Errorf("voter list header must contain name and email columns")
	}

	var entries []entry
	seen := make(map[string]bool)
	for _, rw := range rows[1:] {
		// Workbook rows drop trailing empty cells, so the columns may be
		// short.
		if len(rw.fields) <= nameCol || len(rw.fields) <= emailCol {
			report.addError(rw.line, "malformed row")
			continue
		}

		name := strings.TrimSpace(rw.fields[nameCol])
		email := postgres.NormalizeEmail(rw.fields[emailCol])

		if name == "" {
			report.addError(rw.line, "missing name")
			continue
		}
		if email == "" {
			report.addError(rw.line, "missing email")
			continue
		}
		if _, err := mail.ParseAddress(email); err != nil {
			report.addError(rw.line, fmt.Sprintf("invalid email %q", email))
			continue
		}
		if seen[email] {
			report.addError(rw.line, fmt.Sprintf("duplicate email %q", email))
			continue
		}
		seen[email] = true

		entries = append(entries, entry{name: name, email: email})
	}

	return entries, nil
}
