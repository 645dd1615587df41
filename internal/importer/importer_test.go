package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantCount  int
		wantErrors []string
		wantErr    bool
	}{
		{
			name:      "valid list",
			input:     "name,email\nJane Smith,jane@example.com\nBob Jones,BOB@Example.COM\n",
			wantCount: 2,
		},
		{
			name:      "columns in any order",
			input:     "email,name\njane@example.com,Jane Smith\n",
			wantCount: 1,
		},
		{
			name:    "missing email column",
			input:   "name,address\nJane,somewhere\n",
			wantErr: true,
		},
		{
			name:    "empty file",
			input:   "",
			wantErr: true,
		},
		{
			name:       "invalid email reported",
			input:      "name,email\nJane,not-an-email\nBob,bob@example.com\n",
			wantCount:  1,
			wantErrors: []string{`line 2: invalid email "not-an-email"`},
		},
		{
			name:       "missing name reported",
			input:      "name,email\n,jane@example.com\n",
			wantCount:  0,
			wantErrors: []string{"line 2: missing name"},
		},
		{
			name:       "duplicate email reported once",
			input:      "name,email\nJane,jane@example.com\nJanet,jane@example.com\n",
			wantCount:  1,
			wantErrors: []string{`line 3: duplicate email "jane@example.com"`},
		},
		{
			name:       "malformed row reported",
			input:      "name,email\nJane,jane@example.com,extra\nBob,bob@example.com\n",
			wantCount:  1,
			wantErrors: []string{"line 2: malformed row"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := &Report{}
			entries, err := parse("voters.csv", strings.NewReader(tt.input), report)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, entries, tt.wantCount)
			require.Equal(t, tt.wantErrors, report.Errors)
		})
	}
}

func TestParseNormalizesEmail(t *testing.T) {
	report := &Report{}
	entries, err := parse("voters.csv", strings.NewReader("name,email\nJane,  JANE@Example.COM \n"), report)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "jane@example.com", entries[0].email)
	require.Empty(t, report.Errors)
}

func TestParseErrorCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("name,email\n")
	for i := 0; i < 30; i++ {
		b.WriteString("Jane,bad-email\n")
	}

	report := &Report{}
	entries, err := parse("voters.csv", strings.NewReader(b.String()), report)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Len(t, report.Errors, 20)
	require.True(t, report.ErrorsTruncated)
}
